// Package transport moves opaque payloads between a server and its clients
// over reliable and unreliable channels.
//
// A Host owns one Driver (the socket endpoint) and is polled once per game
// tick from a single goroutine. Drivers may use goroutines internally but hand
// everything to the Host through non-blocking Service calls.
package transport

import (
	"errors"
	"fmt"
)

// PeerID is an opaque handle for one remote endpoint. Handles are never reused
// within a driver's lifetime.
type PeerID uint32

func (p PeerID) String() string {
	return fmt.Sprintf("peer#%d", uint32(p))
}

type Reliability uint8

const (
	// Reliable messages arrive exactly once and in order, or the peer is
	// declared disconnected.
	Reliable Reliability = iota
	// UnreliableFragmented messages may be dropped or reordered.
	UnreliableFragmented
)

func (r Reliability) String() string {
	switch r {
	case Reliable:
		return "reliable"
	case UnreliableFragmented:
		return "unreliable"
	}
	return fmt.Sprintf("reliability(%d)", uint8(r))
}

var (
	ErrUnknownPeer      = errors.New("unknown peer")
	ErrAlreadyConnected = errors.New("already connected or connecting")
	ErrNotClient        = errors.New("only a client host can connect")
	ErrConnectTimeout   = errors.New("connect timed out")
	ErrPeerTooSlow      = errors.New("peer send buffer full")
	ErrNoRoute          = errors.New("no listener at address")
	ErrClosed           = errors.New("transport closed")
)

// EventKind distinguishes connection events returned by Host.Poll.
type EventKind uint8

const (
	Connect EventKind = iota
	Disconnect
)

func (k EventKind) String() string {
	if k == Connect {
		return "connect"
	}
	return "disconnect"
}

// Event is a connection change observed during Poll.
type Event struct {
	Kind EventKind
	Peer PeerID
}

// PeerMessage is one received payload and its sender.
type PeerMessage struct {
	Sender PeerID
	Data   []byte
}

type Role uint8

const (
	RoleServer Role = iota
	RoleClient
)

func (r Role) String() string {
	if r == RoleServer {
		return "server"
	}
	return "client"
}

// Policy configures a Host for one role. A server tracks up to MaxPeers
// peers; a client tracks at most one, the server.
type Policy struct {
	Role     Role
	MaxPeers int
}

func ServerPolicy(maxPeers int) Policy {
	return Policy{Role: RoleServer, MaxPeers: maxPeers}
}

func ClientPolicy() Policy {
	return Policy{Role: RoleClient, MaxPeers: 1}
}
