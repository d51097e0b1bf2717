package entity

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"spaceship-netcode/pkg/motion"
)

const (
	NormalSpeed       = 1.0
	BoostSpeed        = NormalSpeed * 2
	AccelFactor       = 1.0
	RotationSpeed     = 1.8  // radians/s at full deflection
	RotationSmoothing = 10.0 // per fixed 60Hz step
	MoveScale         = 10.0 // world units per velocity unit per second
)

// Collider ray endpoints in ship space, wing tips, canopy, nose and tail.
var colliderEndPoints = [8]mgl32.Vec3{
	{-1.10657, -0.480347, -0.346542},
	{1.10657, -0.480347, -0.346542},
	{-0.342382, 0.25109, -0.010299},
	{0.342382, 0.25109, -0.010299},
	{-0.285614, -0.10917, 0.869609},
	{0.285614, -0.10917, 0.869609},
	{-0.279064, -0.10917, -0.98846},
	{0.279064, -0.10917, -0.98846},
}

// Raycaster answers whether a ray hits static geometry within maxDist.
type Raycaster interface {
	Raycast(origin, dir mgl32.Vec3, maxDist float32) bool
}

// SpaceShip is a player-controlled ship. The server drives it with
// ServerUpdate from inputs; clients drive it with ClientUpdate from snapshots.
type SpaceShip struct {
	ID          uint32
	Position    mgl32.Vec3
	Orientation mgl32.Quat
	Velocity    mgl32.Vec3

	Input  Input
	Motion *motion.DeadReckoning

	inputApplied bool

	Hit            bool
	SinceLastLaser float32 // seconds
	Speed          float32

	rotSmooth mgl32.Vec3 // yaw, pitch, roll
}

func NewSpaceShip(id uint32, serverDelta time.Duration) *SpaceShip {
	return &SpaceShip{
		ID:          id,
		Orientation: mgl32.QuatIdent(),
		Motion:      motion.New(serverDelta),
	}
}

func (s *SpaceShip) EntityID() uint32 { return s.ID }

// Body is the ship's kinematic state as sent in snapshots.
func (s *SpaceShip) Body() motion.Body {
	return motion.Body{
		Position:    s.Position,
		Velocity:    s.Velocity,
		Orientation: s.Orientation,
	}
}

// Place moves the ship without blending and stops it.
func (s *SpaceShip) Place(position mgl32.Vec3, orientation mgl32.Quat) {
	s.Position = position
	s.Orientation = orientation
	s.Velocity = mgl32.Vec3{}
	s.Speed = 0
	s.rotSmooth = mgl32.Vec3{}
}

// ApplyInput stores in if it is newer than the last applied sample. The
// first sample is always taken, whatever its timestamp.
func (s *SpaceShip) ApplyInput(in Input) bool {
	if s.inputApplied && in.Timestamp <= s.Input.Timestamp {
		return false
	}
	s.Input = in
	s.inputApplied = true
	return true
}

// ServerUpdate integrates the flight model for dt seconds.
func (s *SpaceShip) ServerUpdate(dt float32) {
	in := s.Input
	switch {
	case in.W && in.Shift:
		s.Speed = mix(s.Speed, BoostSpeed, min(1, dt*30))
	case in.W:
		s.Speed = mix(s.Speed, NormalSpeed, min(1, dt*90))
	default:
		s.Speed = 0
	}

	desired := s.Orientation.Rotate(mgl32.Vec3{0, 0, s.Speed})
	s.Velocity = motion.Lerp(s.Velocity, desired, dt*AccelFactor)
	s.Position = s.Position.Add(s.Velocity.Mul(dt * MoveScale))

	rot := mgl32.Vec3{
		axis(in.Left, in.Right),
		-axis(in.Up, in.Down),
		-axis(in.A, in.D),
	}
	const fixedDt = 1.0 / 60
	s.rotSmooth = motion.Lerp(s.rotSmooth, rot.Mul(RotationSpeed*dt), RotationSmoothing*fixedDt)

	yaw, pitch, roll := s.rotSmooth[0], s.rotSmooth[1], s.rotSmooth[2]
	local := mgl32.AnglesToQuat(roll, yaw, -pitch, mgl32.ZYX)
	s.Orientation = s.Orientation.Mul(local).Normalize()
}

// ClientUpdate advances the ship's dead reckoning by dt seconds.
func (s *SpaceShip) ClientUpdate(dt float32) {
	b := s.Motion.Advance(dt)
	s.Position = b.Position
	s.Velocity = b.Velocity
	s.Orientation = b.Orientation
	s.Speed = b.Velocity.Len()
}

// AcceptSnapshot routes a server snapshot into the ship's motion state.
func (s *SpaceShip) AcceptSnapshot(body motion.Body, hardReset bool, timestamp uint64) bool {
	return s.Motion.Accept(body, hardReset, timestamp)
}

// Forward is the ship's nose direction.
func (s *SpaceShip) Forward() mgl32.Vec3 {
	return s.Orientation.Rotate(mgl32.Vec3{0, 0, 1})
}

// CheckCollisions casts the collider rays against static geometry.
func (s *SpaceShip) CheckCollisions(world Raycaster) bool {
	if world == nil {
		return false
	}
	hit := false
	for _, p := range colliderEndPoints {
		dir := s.Orientation.Rotate(p.Normalize())
		if world.Raycast(s.Position, dir, p.Len()) {
			hit = true
		}
	}
	return hit
}

// CanFire reports whether the laser cooldown has elapsed.
func (s *SpaceShip) CanFire(cooldown float32) bool {
	return s.SinceLastLaser >= cooldown
}

func axis(pos, neg bool) float32 {
	switch {
	case pos:
		return 1
	case neg:
		return -1
	}
	return 0
}

func mix(a, b, t float32) float32 {
	return a*(1-t) + b*t
}

// DistanceSq is the squared distance between two ships.
func DistanceSq(a, b *SpaceShip) float32 {
	d := a.Position.Sub(b.Position)
	return d.Dot(d)
}
