package protocol

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spaceship-netcode/pkg/entity"
	"spaceship-netcode/pkg/motion"
	"spaceship-netcode/pkg/transport"
)

func TestEncodePrefixesDiscriminator(t *testing.T) {
	data, err := Encode(&DespawnLaserS2C{ID: 9})
	require.NoError(t, err)
	assert.Equal(t, byte(TypeDespawnLaserS2C), data[0])
	assert.Greater(t, len(data), 1)
}

func TestDiscriminatorValues(t *testing.T) {
	assert.Equal(t, Type(1), TypeInputC2S)
	assert.Equal(t, Type(2), TypeTextC2S)
	assert.Equal(t, Type(3), TypeTextS2C)
	assert.Equal(t, Type(11), TypeDespawnLaserS2C)
	for typ := range decoders {
		assert.NotEqual(t, "", typ.String())
	}
}

func TestGameStateCarriesBodies(t *testing.T) {
	body := motion.Body{
		Position:     mgl32.Vec3{1, 2, 3},
		Velocity:     mgl32.Vec3{0, 0, 1},
		Acceleration: mgl32.Vec3{0, -1, 0},
		Orientation:  mgl32.QuatRotate(0.5, mgl32.Vec3{0, 1, 0}),
	}
	laser := &entity.Laser{ID: 4, SpawnTime: 1000, ExpiryTime: 4000, Origin: mgl32.Vec3{5, 0, 0}, Orientation: mgl32.QuatIdent()}

	data, err := Encode(&GameStateS2C{
		Players: []Player{PlayerOf(7, body)},
		Lasers:  []Laser{LaserOf(laser)},
	})
	require.NoError(t, err)

	m, err := Decode(data)
	require.NoError(t, err)
	gs, ok := m.(*GameStateS2C)
	require.True(t, ok)
	require.Len(t, gs.Players, 1)
	assert.Equal(t, uint32(7), gs.Players[0].ID)
	assert.True(t, gs.Players[0].Body().ApproxEqual(body, 1e-6))

	require.Len(t, gs.Lasers, 1)
	got := gs.Lasers[0].Entity()
	assert.Equal(t, uint32(4), got.ID)
	assert.Equal(t, uint64(4000), got.ExpiryTime)
	assert.Equal(t, laser.Origin, got.Origin)
}

func TestInputKeepsKeys(t *testing.T) {
	in := entity.Input{W: true, Space: true, Shift: true, Timestamp: 77}
	m, err := Decode(MustEncode(InputOf(in)))
	require.NoError(t, err)
	assert.Equal(t, in, m.(*InputC2S).Input())
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode(nil)
	assert.ErrorIs(t, err, ErrEmptyPayload)

	_, err = Decode([]byte{200, 1, 2})
	assert.ErrorIs(t, err, ErrUnknownType)

	_, err = Decode([]byte{byte(TypeNone)})
	assert.ErrorIs(t, err, ErrUnknownType)

	_, err = Decode([]byte{byte(TypeClientConnectS2C), 0xc1})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnknownType)
}

func TestChannelAssignment(t *testing.T) {
	unreliable := []Type{TypeInputC2S, TypeUpdatePlayerS2C, TypeSpawnLaserS2C, TypeDespawnLaserS2C}
	for _, typ := range unreliable {
		assert.Equal(t, transport.UnreliableFragmented, Channel(typ), typ.String())
	}
	reliable := []Type{TypeTextC2S, TypeTextS2C, TypeClientConnectS2C, TypeGameStateS2C,
		TypeSpawnPlayerS2C, TypeDespawnPlayerS2C, TypeTeleportPlayerS2C}
	for _, typ := range reliable {
		assert.Equal(t, transport.Reliable, Channel(typ), typ.String())
	}
}
