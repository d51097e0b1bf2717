package entity

import (
	"time"

	"spaceship-netcode/pkg/motion"
)

// Mirror is a client's view of the server world. Every change arrives as a
// server notice; the mirror only reconciles them against what it already has.
type Mirror struct {
	Ships  *Registry[*SpaceShip]
	Lasers *Registry[*Laser]

	// ClockOffset is client time minus server time, in ms.
	ClockOffset int64

	serverDelta  time.Duration
	controlledID uint32
	controlled   bool
}

func NewMirror(serverDelta time.Duration) *Mirror {
	return &Mirror{
		Ships:       NewRegistry[*SpaceShip](),
		Lasers:      NewRegistry[*Laser](),
		serverDelta: serverDelta,
	}
}

// Control marks id as the locally controlled ship.
func (m *Mirror) Control(id uint32) {
	m.controlledID = id
	m.controlled = true
}

// Controlled returns the locally controlled ship once it has been spawned.
func (m *Mirror) Controlled() (*SpaceShip, bool) {
	if !m.controlled {
		return nil, false
	}
	return m.Ships.Get(m.controlledID)
}

func (m *Mirror) ControlledID() (uint32, bool) {
	return m.controlledID, m.controlled
}

// SyncClock records the offset between the local clock and serverTime.
func (m *Mirror) SyncClock(serverTime, clientNow uint64) {
	m.ClockOffset = int64(clientNow) - int64(serverTime)
}

// SpawnShip adds a ship. A ship with the same id already present wins.
func (m *Mirror) SpawnShip(id uint32, body motion.Body) bool {
	if m.Ships.Has(id) {
		return false
	}
	s := &SpaceShip{
		ID:          id,
		Position:    body.Position,
		Orientation: body.Orientation,
		Velocity:    body.Velocity,
		Motion:      motion.NewAt(m.serverDelta, body),
	}
	return m.Ships.Insert(s)
}

// DespawnShip removes a ship. Unknown ids are ignored.
func (m *Mirror) DespawnShip(id uint32) bool {
	_, ok := m.Ships.Remove(id)
	return ok
}

// UpdateShip feeds a snapshot to a ship's motion state. Unknown ids are
// ignored; the ship will arrive with the next game state.
func (m *Mirror) UpdateShip(id uint32, body motion.Body, hardReset bool, timestamp uint64) bool {
	s, ok := m.Ships.Get(id)
	if !ok {
		return false
	}
	return s.AcceptSnapshot(body, hardReset, timestamp)
}

// SyncShip applies one entry of a full game state: known ships are reset in
// place, unknown ships are spawned.
func (m *Mirror) SyncShip(id uint32, body motion.Body) {
	if m.Ships.Has(id) {
		m.UpdateShip(id, body, true, 0)
		return
	}
	m.SpawnShip(id, body)
}

// SpawnLaser adds a laser with its times shifted onto the local clock.
func (m *Mirror) SpawnLaser(l Laser) bool {
	if m.Lasers.Has(l.ID) {
		return false
	}
	l.SpawnTime = shift(l.SpawnTime, m.ClockOffset)
	l.ExpiryTime = shift(l.ExpiryTime, m.ClockOffset)
	return m.Lasers.Insert(&l)
}

// DespawnLaser removes a laser. Unknown ids are ignored.
func (m *Mirror) DespawnLaser(id uint32) bool {
	_, ok := m.Lasers.Remove(id)
	return ok
}

// Advance expires lasers at local time now and moves every ship by dt.
func (m *Mirror) Advance(now uint64, dt float32) (expired []*Laser) {
	expired = m.Lasers.Retain(func(l *Laser) bool { return !l.Expired(now) })
	for _, s := range m.Ships.All() {
		s.ClientUpdate(dt)
	}
	return expired
}

// DropRemote forgets everything the server told us except our own ship.
func (m *Mirror) DropRemote() {
	m.Ships.Retain(func(s *SpaceShip) bool {
		return m.controlled && s.ID == m.controlledID
	})
	m.Lasers.Clear()
}

func shift(t uint64, offset int64) uint64 {
	if offset < 0 && uint64(-offset) > t {
		return 0
	}
	return uint64(int64(t) + offset)
}
