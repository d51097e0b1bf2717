package motion

import "github.com/go-gl/mathgl/mgl32"

// Body is the kinematic state of an entity at one instant.
type Body struct {
	Position     mgl32.Vec3
	Velocity     mgl32.Vec3
	Acceleration mgl32.Vec3
	Orientation  mgl32.Quat
}

// At returns a body resting at position with the given orientation.
func At(position mgl32.Vec3, orientation mgl32.Quat) Body {
	return Body{Position: position, Orientation: orientation}
}

// Rest is a body at the origin with identity orientation.
func Rest() Body {
	return At(mgl32.Vec3{}, mgl32.QuatIdent())
}

// ApproxEqual compares position, velocity, acceleration and orientation within eps.
func (b Body) ApproxEqual(o Body, eps float32) bool {
	return b.Position.ApproxEqualThreshold(o.Position, eps) &&
		b.Velocity.ApproxEqualThreshold(o.Velocity, eps) &&
		b.Acceleration.ApproxEqualThreshold(o.Acceleration, eps) &&
		b.Orientation.ApproxEqualThreshold(o.Orientation, eps)
}

// Lerp is a*(1-t) + b*t, exact at both endpoints.
func Lerp(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Mul(1 - t).Add(b.Mul(t))
}

// Slerp blends two orientations, returning the inputs unchanged at t<=0 and t>=1.
func Slerp(a, b mgl32.Quat, t float32) mgl32.Quat {
	switch {
	case t <= 0:
		return a
	case t >= 1:
		return b
	}
	return mgl32.QuatSlerp(a, b, t)
}
