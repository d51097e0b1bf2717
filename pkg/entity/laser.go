package entity

import "github.com/go-gl/mathgl/mgl32"

// Laser flies in a straight line from Origin at a constant speed. Its
// position is a pure function of time, so it is never corrected after spawn.
type Laser struct {
	ID          uint32
	OwnerID     uint32
	SpawnTime   uint64 // ms
	ExpiryTime  uint64 // ms
	Origin      mgl32.Vec3
	Orientation mgl32.Quat
}

func (l *Laser) EntityID() uint32 { return l.ID }

// SecondsAlive is the flight time at now. Times before spawn count as zero.
func (l *Laser) SecondsAlive(now uint64) float32 {
	if now < l.SpawnTime {
		return 0
	}
	return 0.001 * float32(now-l.SpawnTime)
}

// Position is where the laser is at now when flying at speed.
func (l *Laser) Position(now uint64, speed float32) mgl32.Vec3 {
	return l.Origin.Add(l.Orientation.Rotate(mgl32.Vec3{0, 0, l.SecondsAlive(now) * speed}))
}

func (l *Laser) Direction() mgl32.Vec3 {
	return l.Orientation.Rotate(mgl32.Vec3{0, 0, 1})
}

// Expired reports whether now is past the laser's lifetime.
func (l *Laser) Expired(now uint64) bool {
	return now > l.ExpiryTime
}
