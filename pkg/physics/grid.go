package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// DefaultCellSize is about twice the largest asteroid diameter.
const DefaultCellSize = 8.0

type cell struct{ x, y, z int32 }

// Grid is a sparse uniform grid for broad-phase queries. The world is
// unbounded, so only occupied cells are stored.
type Grid struct {
	size  float32
	cells map[cell][]int
}

func NewGrid(cellSize float32) *Grid {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	return &Grid{size: cellSize, cells: make(map[cell][]int)}
}

func (g *Grid) coord(v float32) int32 {
	return int32(math.Floor(float64(v / g.size)))
}

func (g *Grid) cellOf(p mgl32.Vec3) cell {
	return cell{g.coord(p[0]), g.coord(p[1]), g.coord(p[2])}
}

// InsertSphere adds ref to all cells overlapping the sphere's bounding box.
func (g *Grid) InsertSphere(center mgl32.Vec3, radius float32, ref int) {
	ext := mgl32.Vec3{radius, radius, radius}
	g.each(center.Sub(ext), center.Add(ext), func(c cell) {
		g.cells[c] = append(g.cells[c], ref)
	})
}

// QuerySegment appends the refs in cells overlapping the segment's bounding
// box to buf.
func (g *Grid) QuerySegment(a, b mgl32.Vec3, buf []int) []int {
	lo := mgl32.Vec3{min(a[0], b[0]), min(a[1], b[1]), min(a[2], b[2])}
	hi := mgl32.Vec3{max(a[0], b[0]), max(a[1], b[1]), max(a[2], b[2])}
	g.each(lo, hi, func(c cell) {
		buf = append(buf, g.cells[c]...)
	})
	return buf
}

func (g *Grid) each(lo, hi mgl32.Vec3, fn func(cell)) {
	from, to := g.cellOf(lo), g.cellOf(hi)
	for x := from.x; x <= to.x; x++ {
		for y := from.y; y <= to.y; y++ {
			for z := from.z; z <= to.z; z++ {
				fn(cell{x, y, z})
			}
		}
	}
}

// Len is the number of occupied cells.
func (g *Grid) Len() int {
	return len(g.cells)
}
