// Package protocol defines the wire messages exchanged between the space
// server and its clients. Every payload is one byte of Type followed by the
// msgpack encoded message body.
package protocol

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"spaceship-netcode/pkg/entity"
	"spaceship-netcode/pkg/motion"
	"spaceship-netcode/pkg/transport"
)

// Type is the payload discriminator.
type Type uint8

// Client -> Server
const (
	TypeNone Type = iota
	TypeInputC2S
	TypeTextC2S
)

// Server -> Client
const (
	TypeTextS2C Type = iota + 3
	TypeClientConnectS2C
	TypeGameStateS2C
	TypeSpawnPlayerS2C
	TypeDespawnPlayerS2C
	TypeUpdatePlayerS2C
	TypeTeleportPlayerS2C
	TypeSpawnLaserS2C
	TypeDespawnLaserS2C
)

var typeNames = map[Type]string{
	TypeNone:              "none",
	TypeInputC2S:          "input",
	TypeTextC2S:           "text_c2s",
	TypeTextS2C:           "text_s2c",
	TypeClientConnectS2C:  "client_connect",
	TypeGameStateS2C:      "game_state",
	TypeSpawnPlayerS2C:    "spawn_player",
	TypeDespawnPlayerS2C:  "despawn_player",
	TypeUpdatePlayerS2C:   "update_player",
	TypeTeleportPlayerS2C: "teleport_player",
	TypeSpawnLaserS2C:     "spawn_laser",
	TypeDespawnLaserS2C:   "despawn_laser",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// Channel returns the delivery class a message type travels on. Per-tick
// state is superseded by the next tick, so it may be lost.
func Channel(t Type) transport.Reliability {
	switch t {
	case TypeInputC2S, TypeUpdatePlayerS2C, TypeSpawnLaserS2C, TypeDespawnLaserS2C:
		return transport.UnreliableFragmented
	}
	return transport.Reliable
}

// Message is any payload the codec can carry.
type Message interface {
	Type() Type
}

// Vec3 is x, y, z.
type Vec3 [3]float32

// Quat is x, y, z, w.
type Quat [4]float32

func FromVec3(v mgl32.Vec3) Vec3 { return Vec3(v) }

func (v Vec3) Vec() mgl32.Vec3 { return mgl32.Vec3(v) }

func FromQuat(q mgl32.Quat) Quat {
	return Quat{q.V[0], q.V[1], q.V[2], q.W}
}

func (q Quat) Quat() mgl32.Quat {
	return mgl32.Quat{W: q[3], V: mgl32.Vec3{q[0], q[1], q[2]}}
}

// Player is one ship record.
type Player struct {
	ID           uint32 `msgpack:"id"`
	Position     Vec3   `msgpack:"p"`
	Velocity     Vec3   `msgpack:"v"`
	Acceleration Vec3   `msgpack:"a"`
	Orientation  Quat   `msgpack:"o"`
}

func PlayerOf(id uint32, b motion.Body) Player {
	return Player{
		ID:           id,
		Position:     FromVec3(b.Position),
		Velocity:     FromVec3(b.Velocity),
		Acceleration: FromVec3(b.Acceleration),
		Orientation:  FromQuat(b.Orientation),
	}
}

func (p Player) Body() motion.Body {
	return motion.Body{
		Position:     p.Position.Vec(),
		Velocity:     p.Velocity.Vec(),
		Acceleration: p.Acceleration.Vec(),
		Orientation:  p.Orientation.Quat(),
	}
}

// Laser is one laser record. The owner is not sent; clients never need it.
type Laser struct {
	ID          uint32 `msgpack:"id"`
	SpawnTime   uint64 `msgpack:"st"`
	EndTime     uint64 `msgpack:"et"`
	Origin      Vec3   `msgpack:"p"`
	Orientation Quat   `msgpack:"o"`
}

func LaserOf(l *entity.Laser) Laser {
	return Laser{
		ID:          l.ID,
		SpawnTime:   l.SpawnTime,
		EndTime:     l.ExpiryTime,
		Origin:      FromVec3(l.Origin),
		Orientation: FromQuat(l.Orientation),
	}
}

func (l Laser) Entity() entity.Laser {
	return entity.Laser{
		ID:          l.ID,
		SpawnTime:   l.SpawnTime,
		ExpiryTime:  l.EndTime,
		Origin:      l.Origin.Vec(),
		Orientation: l.Orientation.Quat(),
	}
}

// InputC2S carries the held keys as a bitmask (see entity.Key*).
type InputC2S struct {
	Timestamp uint64 `msgpack:"t"`
	Keys      uint16 `msgpack:"k"`
}

func InputOf(in entity.Input) *InputC2S {
	return &InputC2S{Timestamp: in.Timestamp, Keys: in.Bitmask()}
}

func (m *InputC2S) Input() entity.Input {
	return entity.InputFromBitmask(m.Keys, m.Timestamp)
}

type TextC2S struct {
	Text string `msgpack:"s"`
}

type TextS2C struct {
	Text string `msgpack:"s"`
}

// ClientConnectS2C tells a new client which ship it controls.
type ClientConnectS2C struct {
	ID         uint32 `msgpack:"id"`
	ServerTime uint64 `msgpack:"t"`
}

// GameStateS2C is the full world sent once on join.
type GameStateS2C struct {
	Players []Player `msgpack:"ps"`
	Lasers  []Laser  `msgpack:"ls"`
}

type SpawnPlayerS2C struct {
	Player Player `msgpack:"p"`
}

type DespawnPlayerS2C struct {
	ID uint32 `msgpack:"id"`
}

type UpdatePlayerS2C struct {
	Player    Player `msgpack:"p"`
	Timestamp uint64 `msgpack:"t"`
}

// TeleportPlayerS2C is a hard reset: the client jumps instead of blending.
type TeleportPlayerS2C struct {
	Player    Player `msgpack:"p"`
	Timestamp uint64 `msgpack:"t"`
}

type SpawnLaserS2C struct {
	Laser Laser `msgpack:"l"`
}

type DespawnLaserS2C struct {
	ID uint32 `msgpack:"id"`
}

func (*InputC2S) Type() Type          { return TypeInputC2S }
func (*TextC2S) Type() Type           { return TypeTextC2S }
func (*TextS2C) Type() Type           { return TypeTextS2C }
func (*ClientConnectS2C) Type() Type  { return TypeClientConnectS2C }
func (*GameStateS2C) Type() Type      { return TypeGameStateS2C }
func (*SpawnPlayerS2C) Type() Type    { return TypeSpawnPlayerS2C }
func (*DespawnPlayerS2C) Type() Type  { return TypeDespawnPlayerS2C }
func (*UpdatePlayerS2C) Type() Type   { return TypeUpdatePlayerS2C }
func (*TeleportPlayerS2C) Type() Type { return TypeTeleportPlayerS2C }
func (*SpawnLaserS2C) Type() Type     { return TypeSpawnLaserS2C }
func (*DespawnLaserS2C) Type() Type   { return TypeDespawnLaserS2C }
