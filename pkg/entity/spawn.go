package entity

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	SpawnPointCount = 32
	SpawnRadius     = 100.0
)

// SpawnRing hands out spawn points on a horizontal ring around the origin.
// Fresh ships take the points in order; respawns hop through the ring with
// an xorshift sequence.
type SpawnRing struct {
	Points []mgl32.Vec3

	next uint64
	seed uint64
}

func NewSpawnRing() *SpawnRing {
	r := &SpawnRing{seed: 16}
	for i := 0; i < SpawnPointCount; i++ {
		angle := float64(i) / 33 * math.Pi * 2
		r.Points = append(r.Points, mgl32.Vec3{
			float32(SpawnRadius * math.Cos(angle)),
			0,
			float32(SpawnRadius * math.Sin(angle)),
		})
	}
	return r
}

// Reset restores the initial sequence state.
func (r *SpawnRing) Reset() {
	r.next = 0
	r.seed = 16
}

// Next returns the next point in order.
func (r *SpawnRing) Next() (mgl32.Vec3, mgl32.Quat) {
	p := r.Points[r.next%uint64(len(r.Points))]
	r.next++
	return p, FaceOrigin(p)
}

// Random returns a pseudo-random point.
func (r *SpawnRing) Random() (mgl32.Vec3, mgl32.Quat) {
	r.seed ^= r.seed << 13
	r.seed ^= r.seed >> 17
	r.seed ^= r.seed << 5
	p := r.Points[r.seed%uint64(len(r.Points))]
	return p, FaceOrigin(p)
}

// FaceOrigin orients a ship at p so its nose (+Z) points at the origin and
// its top (+Y) stays up.
func FaceOrigin(p mgl32.Vec3) mgl32.Quat {
	if p.Len() == 0 {
		return mgl32.QuatIdent()
	}
	return LookRotation(p.Normalize().Mul(-1), mgl32.Vec3{0, 1, 0})
}

// LookRotation returns the rotation taking +Z to forward with +Y as close to up as possible.
func LookRotation(forward, up mgl32.Vec3) mgl32.Quat {
	f := forward.Normalize()
	right := up.Cross(f)
	if right.Len() < 1e-6 {
		return mgl32.QuatBetweenVectors(mgl32.Vec3{0, 0, 1}, f)
	}
	right = right.Normalize()
	return mgl32.Mat4ToQuat(mgl32.Mat3FromCols(right, f.Cross(right), f).Mat4()).Normalize()
}
