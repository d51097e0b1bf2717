package motion

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-4

func snapshot(x float32) Body {
	return Body{
		Position:     mgl32.Vec3{x, 2, -3},
		Velocity:     mgl32.Vec3{1, 0.5, -2},
		Acceleration: mgl32.Vec3{0, -1, 0.25},
		Orientation:  mgl32.QuatRotate(x/10, mgl32.Vec3{0, 1, 0}),
	}
}

func TestAcceptRejectsOlderTimestamps(t *testing.T) {
	d := New(200 * time.Millisecond)

	require.True(t, d.Accept(snapshot(5), false, 100))
	assert.False(t, d.Accept(snapshot(9), false, 50))

	assert.Equal(t, uint64(100), d.Timestamp())
	assert.Equal(t, snapshot(5), d.ServerStart())
}

func TestAcceptEqualTimestamp(t *testing.T) {
	d := New(200 * time.Millisecond)
	require.True(t, d.Accept(snapshot(1), false, 10))
	assert.True(t, d.Accept(snapshot(2), false, 10))
	assert.Equal(t, snapshot(2), d.ServerStart())
}

func TestMonotonicAcceptance(t *testing.T) {
	descending := New(200 * time.Millisecond)
	for _, ts := range []uint64{40, 30, 30, 20, 10} {
		descending.Accept(snapshot(float32(ts)), false, ts)
	}

	single := New(200 * time.Millisecond)
	single.Accept(snapshot(40), false, 40)

	assert.Equal(t, single.Timestamp(), descending.Timestamp())
	assert.Equal(t, single.ServerStart(), descending.ServerStart())
	assert.Equal(t, single.ClientStart(), descending.ClientStart())
	assert.True(t, single.Advance(0.07).ApproxEqual(descending.Advance(0.07), eps))
}

func TestAcceptIsContinuous(t *testing.T) {
	d := New(200 * time.Millisecond)
	d.Accept(snapshot(0), true, 1)
	d.Advance(0.05)
	d.Accept(snapshot(3), false, 2)
	d.Advance(0.12)

	before := d.Advance(0)
	require.True(t, d.Accept(snapshot(8), false, 3))
	after := d.Advance(0)

	assert.True(t, before.Position.ApproxEqualThreshold(after.Position, eps), "%v != %v", before.Position, after.Position)
	assert.True(t, before.Velocity.ApproxEqualThreshold(after.Velocity, eps))
	assert.True(t, before.Orientation.ApproxEqualThreshold(after.Orientation, eps))
	assert.Equal(t, snapshot(8).Acceleration, after.Acceleration)
}

func TestAdvanceConvergesToServer(t *testing.T) {
	d := New(200 * time.Millisecond)
	d.Accept(snapshot(0), true, 1)
	d.Advance(0.1)

	target := snapshot(6)
	d.Accept(target, false, 2)
	got := d.Advance(0.2)

	assert.Equal(t, target.Velocity, got.Velocity)
	assert.True(t, target.Orientation.ApproxEqualThreshold(got.Orientation, eps))
	assert.True(t, Extrapolate(target, 0.2).ApproxEqualThreshold(got.Position, eps))

	// Saturated: further advancing holds still.
	again := d.Advance(1)
	assert.True(t, got.ApproxEqual(again, eps))
}

func TestAdvanceConvergesExactlyWhenStationary(t *testing.T) {
	d := New(200 * time.Millisecond)
	d.Accept(snapshot(0), true, 1)
	d.Advance(0.1)

	target := At(mgl32.Vec3{10, 0, 4}, mgl32.QuatRotate(1, mgl32.Vec3{0, 0, 1}))
	d.Accept(target, false, 2)
	got := d.Advance(0.2)

	assert.True(t, target.ApproxEqual(got, eps))
}

func TestHardResetJumps(t *testing.T) {
	d := New(200 * time.Millisecond)
	d.Accept(snapshot(0), false, 1)
	d.Advance(0.08)

	body := snapshot(50)
	require.True(t, d.Accept(body, true, 2))
	assert.Equal(t, body, d.Advance(0))
}

func TestAdvanceClampsElapsed(t *testing.T) {
	d := New(200 * time.Millisecond)
	d.Advance(5)
	assert.Equal(t, float32(0.2), d.Elapsed())
	d.Accept(snapshot(1), false, 1)
	d.Advance(-1)
	assert.Equal(t, float32(0), d.Elapsed())
}

func TestAdvanceMidway(t *testing.T) {
	d := New(200 * time.Millisecond)
	from := At(mgl32.Vec3{0, 0, 0}, mgl32.QuatIdent())
	to := At(mgl32.Vec3{10, 0, 0}, mgl32.QuatIdent())
	d.Accept(from, true, 1)
	d.Accept(to, false, 2)

	got := d.Advance(0.1)
	assert.InDelta(t, 5, got.Position.X(), eps)
}
