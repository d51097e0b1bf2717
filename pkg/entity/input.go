package entity

// Input bits as carried in InputC2S.
const (
	KeyW uint16 = 1 << iota
	KeyA
	KeyD
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeySpace
	KeyShift
)

// KeyNames maps console key names to input bits.
var KeyNames = map[string]uint16{
	"w":     KeyW,
	"a":     KeyA,
	"d":     KeyD,
	"up":    KeyUp,
	"down":  KeyDown,
	"left":  KeyLeft,
	"right": KeyRight,
	"space": KeySpace,
	"shift": KeyShift,
}

// Input is one sample of the flight controls.
type Input struct {
	W, A, D               bool
	Up, Down, Left, Right bool
	Space, Shift          bool

	Timestamp uint64
}

// Bitmask packs the nine flags into the wire representation.
func (in Input) Bitmask() uint16 {
	var m uint16
	set := func(on bool, bit uint16) {
		if on {
			m |= bit
		}
	}
	set(in.W, KeyW)
	set(in.A, KeyA)
	set(in.D, KeyD)
	set(in.Up, KeyUp)
	set(in.Down, KeyDown)
	set(in.Left, KeyLeft)
	set(in.Right, KeyRight)
	set(in.Space, KeySpace)
	set(in.Shift, KeyShift)
	return m
}

// InputFromBitmask unpacks a wire bitmask. Bits above KeyShift are ignored.
func InputFromBitmask(mask uint16, timestamp uint64) Input {
	return Input{
		W:         mask&KeyW != 0,
		A:         mask&KeyA != 0,
		D:         mask&KeyD != 0,
		Up:        mask&KeyUp != 0,
		Down:      mask&KeyDown != 0,
		Left:      mask&KeyLeft != 0,
		Right:     mask&KeyRight != 0,
		Space:     mask&KeySpace != 0,
		Shift:     mask&KeyShift != 0,
		Timestamp: timestamp,
	}
}
