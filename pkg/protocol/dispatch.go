package protocol

import (
	"errors"

	"github.com/rs/zerolog/log"

	"spaceship-netcode/pkg/transport"
)

// Dispatcher routes decoded messages to per-type handlers.
type Dispatcher struct {
	handlers map[Type]func(transport.PeerID, Message)
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[Type]func(transport.PeerID, Message))}
}

// Handle registers fn for messages of type *T, replacing any previous
// handler for that type.
func Handle[T any, P msgPtr[T]](d *Dispatcher, fn func(sender transport.PeerID, msg P)) {
	var zero T
	d.handlers[P(&zero).Type()] = func(sender transport.PeerID, m Message) {
		fn(sender, m.(P))
	}
}

// Dispatch decodes payload and calls its handler. Unknown types and types
// without a handler are ignored. Malformed payloads return an error.
func (d *Dispatcher) Dispatch(sender transport.PeerID, payload []byte) error {
	m, err := Decode(payload)
	if errors.Is(err, ErrUnknownType) {
		log.Debug().Stringer("peer", sender).Uint8("type", payload[0]).Msg("ignoring unknown message type")
		return nil
	}
	if err != nil {
		return err
	}
	h, ok := d.handlers[m.Type()]
	if !ok {
		log.Debug().Stringer("peer", sender).Stringer("type", m.Type()).Msg("no handler")
		return nil
	}
	h(sender, m)
	return nil
}

// DispatchAll drains host's inbound queue, logging malformed payloads.
func (d *Dispatcher) DispatchAll(host *transport.Host) int {
	msgs := host.Drain()
	for _, pm := range msgs {
		if err := d.Dispatch(pm.Sender, pm.Data); err != nil {
			log.Warn().Err(err).Stringer("peer", pm.Sender).Msg("dropping malformed payload")
		}
	}
	return len(msgs)
}
