// Package physics holds the static asteroid field ships and lasers collide
// with. Asteroids are spheres indexed by a sparse uniform grid.
package physics

import (
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	AsteroidMinRadius = 0.5
	AsteroidMaxRadius = 2.0
)

type Asteroid struct {
	Center mgl32.Vec3
	Radius float32
}

// Cloud describes one randomly scattered group of asteroids inside the cube
// [-Span, Span]^3.
type Cloud struct {
	Count int
	Span  float32
}

// Layout is the asteroid field recipe. The same seed always produces the same
// field, so a server and its clients agree on obstacles without sending them.
type Layout struct {
	Seed   uint64
	Clouds []Cloud
}

func DefaultLayout() Layout {
	return Layout{
		Seed:   1,
		Clouds: []Cloud{{Count: 100, Span: 20}, {Count: 50, Span: 80}},
	}
}

// Field is an immutable set of asteroids. It implements entity.Raycaster.
type Field struct {
	Asteroids []Asteroid
	grid      *Grid
}

func NewField(asteroids []Asteroid) *Field {
	f := &Field{Asteroids: asteroids, grid: NewGrid(DefaultCellSize)}
	for i, a := range asteroids {
		f.grid.InsertSphere(a.Center, a.Radius, i)
	}
	return f
}

// Generate scatters the asteroids described by l.
func Generate(l Layout) *Field {
	rng := rand.New(rand.NewPCG(l.Seed, l.Seed^0x9e3779b97f4a7c15))
	var asteroids []Asteroid
	for _, c := range l.Clouds {
		for i := 0; i < c.Count; i++ {
			center := mgl32.Vec3{
				signed(rng) * c.Span,
				signed(rng) * c.Span,
				signed(rng) * c.Span,
			}
			r := AsteroidMinRadius + rng.Float32()*(AsteroidMaxRadius-AsteroidMinRadius)
			asteroids = append(asteroids, Asteroid{Center: center, Radius: r})
		}
	}
	return NewField(asteroids)
}

// signed returns a value in [-1, 1).
func signed(rng *rand.Rand) float32 {
	return rng.Float32()*2 - 1
}

// Raycast reports whether the segment from origin along dir of length
// maxDist touches any asteroid. dir need not be normalized.
func (f *Field) Raycast(origin, dir mgl32.Vec3, maxDist float32) bool {
	if f == nil || maxDist <= 0 || dir.Len() == 0 {
		return false
	}
	end := origin.Add(dir.Normalize().Mul(maxDist))

	var buf [32]int
	for _, idx := range f.grid.QuerySegment(origin, end, buf[:0]) {
		a := f.Asteroids[idx]
		if SegmentSphereIntersect(origin, end, a.Center, a.Radius) {
			return true
		}
	}
	return false
}
