package motion

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// DeadReckoning turns sparse server snapshots into a continuous trajectory.
//
// Each accepted snapshot starts a new blend interval of length serverDelta. The
// blend starts from wherever the previous interval was when the snapshot
// arrived (clientStart) and ends at the snapshot itself (serverStart), so the
// rendered body never pops unless the snapshot is a hard reset.
type DeadReckoning struct {
	serverDelta float32 // seconds
	elapsed     float32 // seconds since the last accepted snapshot, clamped to [0, serverDelta]
	timestamp   uint64

	clientStart Body
	serverStart Body
}

// New creates a motion state resting at the origin.
func New(serverDelta time.Duration) *DeadReckoning {
	return NewAt(serverDelta, Rest())
}

// NewAt creates a motion state resting at body.
func NewAt(serverDelta time.Duration, body Body) *DeadReckoning {
	if serverDelta <= 0 {
		serverDelta = 200 * time.Millisecond
	}
	return &DeadReckoning{
		serverDelta: float32(serverDelta.Seconds()),
		clientStart: body,
		serverStart: body,
	}
}

// Accept applies a snapshot. Snapshots older than the last accepted one are
// dropped and Accept reports false.
func (d *DeadReckoning) Accept(body Body, hardReset bool, timestamp uint64) bool {
	if timestamp < d.timestamp {
		return false
	}
	d.timestamp = timestamp

	if hardReset {
		d.clientStart = body
	} else {
		d.clientStart = d.sample()
	}
	d.elapsed = 0
	d.serverStart = body
	return true
}

// Advance moves the blend forward by dt seconds and returns the interpolated body.
func (d *DeadReckoning) Advance(dt float32) Body {
	d.elapsed = clamp(d.elapsed+dt, 0, d.serverDelta)
	return d.sample()
}

// Current returns the interpolated body without advancing time.
func (d *DeadReckoning) Current() Body {
	return d.sample()
}

// Timestamp is the last accepted snapshot timestamp.
func (d *DeadReckoning) Timestamp() uint64 {
	return d.timestamp
}

// Elapsed is the time in seconds since the last accepted snapshot.
func (d *DeadReckoning) Elapsed() float32 {
	return d.elapsed
}

// ServerDelta is the nominal interval between snapshots, in seconds.
func (d *DeadReckoning) ServerDelta() float32 {
	return d.serverDelta
}

// ClientStart is the body the current blend starts from.
func (d *DeadReckoning) ClientStart() Body { return d.clientStart }

// ServerStart is the last accepted server snapshot.
func (d *DeadReckoning) ServerStart() Body { return d.serverStart }

func (d *DeadReckoning) sample() Body {
	t := d.elapsed / d.serverDelta
	dt := d.elapsed

	// Acceleration is authoritative only: both extrapolations use the server's.
	accel := d.serverStart.Acceleration.Mul(0.5 * dt * dt)

	velocity := Lerp(d.clientStart.Velocity, d.serverStart.Velocity, t)
	fromClient := d.clientStart.Position.Add(velocity.Mul(dt)).Add(accel)
	fromServer := d.serverStart.Position.Add(d.serverStart.Velocity.Mul(dt)).Add(accel)

	return Body{
		Position:     Lerp(fromClient, fromServer, t),
		Velocity:     velocity,
		Acceleration: d.serverStart.Acceleration,
		Orientation:  Slerp(d.clientStart.Orientation, d.serverStart.Orientation, t),
	}
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Extrapolate projects a body forward by dt seconds under constant acceleration.
func Extrapolate(b Body, dt float32) mgl32.Vec3 {
	return b.Position.Add(b.Velocity.Mul(dt)).Add(b.Acceleration.Mul(0.5 * dt * dt))
}
