package entity

import "time"

// Rules are the tunables of the server-side lifecycle.
type Rules struct {
	LaserSpeed      float32       // units/s
	LaserLifetime   time.Duration // from spawn to expiry
	LaserCooldown   time.Duration // minimum time between shots
	CollisionRadius float32       // ship-ship and laser-ship
	ServerDelta     time.Duration // snapshot interval assumed by clients
}

func DefaultRules() Rules {
	return Rules{
		LaserSpeed:      20,
		LaserLifetime:   3000 * time.Millisecond,
		LaserCooldown:   100 * time.Millisecond,
		CollisionRadius: 2,
		ServerDelta:     200 * time.Millisecond,
	}
}

type EventKind int

const (
	// ShipMoved is emitted for every ship that was integrated this tick.
	ShipMoved EventKind = iota
	// ShipRespawned carries the teleported ship and, when a laser caused
	// the hit, the id of the ship that fired it.
	ShipRespawned
	LaserFired
	LaserRemoved
)

func (k EventKind) String() string {
	switch k {
	case ShipMoved:
		return "ship_moved"
	case ShipRespawned:
		return "ship_respawned"
	case LaserFired:
		return "laser_fired"
	case LaserRemoved:
		return "laser_removed"
	}
	return "unknown"
}

// Event is an outcome of one World step that observers need to hear about.
type Event struct {
	Kind   EventKind
	Ship   *SpaceShip
	Laser  *Laser
	Killer uint32
}

// World is the server-authoritative game state.
type World struct {
	Ships     *Registry[*SpaceShip]
	Lasers    *Registry[*Laser]
	Spawns    *SpawnRing
	Obstacles Raycaster

	rules       Rules
	nextShipID  uint32
	nextLaserID uint32
	hitBy       map[uint32]uint32 // victim -> laser owner, cleared on respawn
}

func NewWorld(rules Rules, obstacles Raycaster) *World {
	return &World{
		Ships:       NewRegistry[*SpaceShip](),
		Lasers:      NewRegistry[*Laser](),
		Spawns:      NewSpawnRing(),
		Obstacles:   obstacles,
		rules:       rules,
		nextShipID:  1,
		nextLaserID: 1,
		hitBy:       make(map[uint32]uint32),
	}
}

func (w *World) Rules() Rules { return w.rules }

// SpawnShip creates a ship at the next spawn point.
func (w *World) SpawnShip() *SpaceShip {
	s := NewSpaceShip(w.nextShipID, w.rules.ServerDelta)
	w.nextShipID++
	s.Place(w.Spawns.Next())
	w.Ships.Insert(s)
	return s
}

// DespawnShip removes a ship. Unknown ids are ignored.
func (w *World) DespawnShip(id uint32) (*SpaceShip, bool) {
	delete(w.hitBy, id)
	return w.Ships.Remove(id)
}

// ApplyInput forwards an input sample to a ship, dropping stale samples.
func (w *World) ApplyInput(id uint32, in Input) bool {
	s, ok := w.Ships.Get(id)
	if !ok {
		return false
	}
	return s.ApplyInput(in)
}

// Respawn teleports a ship to a pseudo-random spawn point and clears its hit flag.
func (w *World) Respawn(s *SpaceShip) {
	s.Hit = false
	s.Place(w.Spawns.Random())
}

// Step runs one tick of lasers then ships at time now (ms) with frame time dt (s).
func (w *World) Step(now uint64, dt float32) []Event {
	var events []Event
	events = w.stepLasers(now, events)
	events = w.stepShips(now, dt, events)
	return events
}

func (w *World) stepLasers(now uint64, events []Event) []Event {
	radiusSq := w.rules.CollisionRadius * w.rules.CollisionRadius

	for _, l := range w.Lasers.All() {
		if l.Expired(now) {
			w.Lasers.Remove(l.ID)
			events = append(events, Event{Kind: LaserRemoved, Laser: l})
			continue
		}

		pos := l.Position(now, w.rules.LaserSpeed)
		hitShip := false
		for _, s := range w.Ships.All() {
			if s.ID == l.OwnerID {
				continue
			}
			d := pos.Sub(s.Position)
			if d.Dot(d) < radiusSq {
				s.Hit = true
				w.hitBy[s.ID] = l.OwnerID
				hitShip = true
				break
			}
		}
		if hitShip {
			continue
		}

		if w.Obstacles != nil && w.Obstacles.Raycast(pos, l.Direction(), 1) {
			w.Lasers.Remove(l.ID)
			events = append(events, Event{Kind: LaserRemoved, Laser: l})
		}
	}
	return events
}

func (w *World) stepShips(now uint64, dt float32, events []Event) []Event {
	radiusSq := w.rules.CollisionRadius * w.rules.CollisionRadius
	cooldown := float32(w.rules.LaserCooldown.Seconds())
	ships := w.Ships.All()

	for _, s := range ships {
		s.SinceLastLaser += dt
		if s.Input.Space && s.CanFire(cooldown) {
			s.SinceLastLaser = 0
			l := w.fire(s, now)
			events = append(events, Event{Kind: LaserFired, Laser: l, Ship: s})
		}

		if s.CheckCollisions(w.Obstacles) {
			events = append(events, w.respawn(s))
			continue
		}

		for _, o := range ships {
			if o == s {
				continue
			}
			if DistanceSq(s, o) < radiusSq {
				s.Hit = true
				o.Hit = true
			}
		}
		if s.Hit {
			events = append(events, w.respawn(s))
			continue
		}

		s.ServerUpdate(dt)
		events = append(events, Event{Kind: ShipMoved, Ship: s})
	}
	return events
}

func (w *World) fire(s *SpaceShip, now uint64) *Laser {
	l := &Laser{
		ID:          w.nextLaserID,
		OwnerID:     s.ID,
		SpawnTime:   now,
		ExpiryTime:  now + uint64(w.rules.LaserLifetime.Milliseconds()),
		Origin:      s.Position,
		Orientation: s.Orientation,
	}
	w.nextLaserID++
	w.Lasers.Insert(l)
	return l
}

func (w *World) respawn(s *SpaceShip) Event {
	killer := w.hitBy[s.ID]
	delete(w.hitBy, s.ID)
	w.Respawn(s)
	return Event{Kind: ShipRespawned, Ship: s, Killer: killer}
}
