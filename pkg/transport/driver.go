package transport

import "context"

type DriverEventKind uint8

const (
	DriverConnect DriverEventKind = iota
	DriverReceive
	DriverDisconnect
)

// DriverEvent is one raw socket event.
type DriverEvent struct {
	Kind DriverEventKind
	Peer PeerID
	Data []byte
}

// Driver is a socket endpoint. Service, Send and Disconnect must not block.
type Driver interface {
	// Service returns the next pending event, or false when none is queued.
	Service() (DriverEvent, bool)
	Send(peer PeerID, data []byte, reliability Reliability) error
	// Dial performs a connect handshake. It blocks until the handshake
	// completes or ctx is done.
	Dial(ctx context.Context, host string, port uint16) (PeerID, error)
	Disconnect(peer PeerID)
	Close() error
}
