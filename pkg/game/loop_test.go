package game

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameDelta(t *testing.T) {
	assert.InDelta(t, 0.016, FrameDelta(16*time.Millisecond, 40*time.Millisecond), 1e-6)
	assert.InDelta(t, 0.040, FrameDelta(time.Second, 40*time.Millisecond), 1e-6)
	assert.InDelta(t, 1.0, FrameDelta(time.Second, 0), 1e-6)
	assert.Zero(t, FrameDelta(-time.Second, 0))
}

func TestLoopRunsTicksAndCommands(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lines := make(chan string, 1)
	lines <- "msg hi"
	close(lines)

	var got []string
	ticks := 0
	l := &Loop{
		Interval: time.Millisecond,
		MaxFrame: 40 * time.Millisecond,
		Lines:    lines,
		Exec:     func(line string) { got = append(got, line) },
		Tick: func(dt float32) {
			assert.LessOrEqual(t, dt, float32(0.040))
			ticks++
			if ticks >= 3 && len(got) > 0 {
				cancel()
			}
		},
	}

	err := l.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"msg hi"}, got)
	assert.GreaterOrEqual(t, ticks, 3)
}

func TestManualClock(t *testing.T) {
	c := NewManualClock(500)
	c.Advance(250 * time.Millisecond)
	assert.Equal(t, uint64(750), c.NowMillis())
	assert.NotZero(t, SystemClock{}.NowMillis())
}

func TestParseKeys(t *testing.T) {
	mask, err := ParseKeys("w Space shift")
	require.NoError(t, err)
	assert.Equal(t, uint16(1|1<<7|1<<8), mask)

	mask, err = ParseKeys("none")
	require.NoError(t, err)
	assert.Zero(t, mask)

	_, err = ParseKeys("w jump")
	assert.ErrorIs(t, err, ErrUnknownKey)
}
