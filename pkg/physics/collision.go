package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// SegmentSphereIntersect checks if the segment a-b intersects the sphere at c
// with radius r. A segment entirely inside the sphere counts as a hit.
func SegmentSphereIntersect(a, b, c mgl32.Vec3, r float32) bool {
	d := b.Sub(a)
	f := a.Sub(c)
	qa := d.Dot(d)
	qc := f.Dot(f) - r*r
	if qa == 0 {
		return qc <= 0
	}
	qb := 2 * f.Dot(d)
	disc := qb*qb - 4*qa*qc
	if disc < 0 {
		return false
	}
	disc = float32(math.Sqrt(float64(disc)))
	t1 := (-qb - disc) / (2 * qa)
	t2 := (-qb + disc) / (2 * qa)
	return (t1 >= 0 && t1 <= 1) || (t2 >= 0 && t2 <= 1) || (t1 <= 0 && t2 >= 1)
}
