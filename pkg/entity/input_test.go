package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInputBitmaskRoundTrip(t *testing.T) {
	for mask := uint16(0); mask < 1<<9; mask++ {
		in := InputFromBitmask(mask, 7)
		require.Equal(t, mask, in.Bitmask(), "mask %09b", mask)
		require.Equal(t, in, InputFromBitmask(in.Bitmask(), 7))
	}
}

func TestInputBitOrder(t *testing.T) {
	assert.Equal(t, uint16(1), Input{W: true}.Bitmask())
	assert.Equal(t, uint16(1<<3), Input{Up: true}.Bitmask())
	assert.Equal(t, uint16(1<<7), Input{Space: true}.Bitmask())
	assert.Equal(t, uint16(1<<8), Input{Shift: true}.Bitmask())
}

func TestInputIgnoresHighBits(t *testing.T) {
	in := InputFromBitmask(0xFE00|KeyA, 1)
	assert.Equal(t, Input{A: true, Timestamp: 1}, in)
}

func TestKeyNamesCoverAllBits(t *testing.T) {
	var all uint16
	for _, bit := range KeyNames {
		all |= bit
	}
	assert.Equal(t, uint16(1<<9-1), all)
}

func TestApplyInputDropsStale(t *testing.T) {
	s := NewSpaceShip(1, 0)
	require.True(t, s.ApplyInput(Input{W: true, Timestamp: 10}))
	assert.False(t, s.ApplyInput(Input{Space: true, Timestamp: 9}))
	assert.False(t, s.ApplyInput(Input{Space: true, Timestamp: 10}))
	assert.True(t, s.Input.W)
	assert.False(t, s.Input.Space)
}
