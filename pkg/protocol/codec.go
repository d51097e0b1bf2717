package protocol

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

var (
	ErrEmptyPayload = errors.New("empty payload")
	ErrUnknownType  = errors.New("unknown message type")
)

// Encode prefixes the msgpack body of m with its discriminator.
func Encode(m Message) ([]byte, error) {
	body, err := msgpack.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.Type(), err)
	}
	out := make([]byte, 0, len(body)+1)
	out = append(out, byte(m.Type()))
	return append(out, body...), nil
}

// MustEncode is Encode for messages built from in-memory values, which
// always marshal.
func MustEncode(m Message) []byte {
	data, err := Encode(m)
	if err != nil {
		panic(err)
	}
	return data
}

var decoders = map[Type]func([]byte) (Message, error){
	TypeInputC2S:          decodeAs[InputC2S],
	TypeTextC2S:           decodeAs[TextC2S],
	TypeTextS2C:           decodeAs[TextS2C],
	TypeClientConnectS2C:  decodeAs[ClientConnectS2C],
	TypeGameStateS2C:      decodeAs[GameStateS2C],
	TypeSpawnPlayerS2C:    decodeAs[SpawnPlayerS2C],
	TypeDespawnPlayerS2C:  decodeAs[DespawnPlayerS2C],
	TypeUpdatePlayerS2C:   decodeAs[UpdatePlayerS2C],
	TypeTeleportPlayerS2C: decodeAs[TeleportPlayerS2C],
	TypeSpawnLaserS2C:     decodeAs[SpawnLaserS2C],
	TypeDespawnLaserS2C:   decodeAs[DespawnLaserS2C],
}

// msgPtr constrains T so that *T is a Message.
type msgPtr[T any] interface {
	*T
	Message
}

func decodeAs[T any, P msgPtr[T]](body []byte) (Message, error) {
	var m T
	if err := msgpack.Unmarshal(body, &m); err != nil {
		return nil, err
	}
	return P(&m), nil
}

// Decode parses one complete payload. Unknown discriminators return an
// error wrapping ErrUnknownType.
func Decode(payload []byte) (Message, error) {
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}
	t := Type(payload[0])
	decode, ok := decoders[t]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, uint8(t))
	}
	m, err := decode(payload[1:])
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", t, err)
	}
	return m, nil
}
