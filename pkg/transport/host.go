package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	opt "github.com/repeale/fp-go/option"
	"github.com/rs/zerolog/log"
)

const DefaultConnectTimeout = 5 * time.Second

// Host is a polled transport endpoint shared by the server and client roles.
// It is not safe for concurrent use.
type Host struct {
	driver Driver
	policy Policy

	peers      map[PeerID]struct{}
	inbox      []PeerMessage
	pending    []Event
	connecting bool

	ConnectTimeout time.Duration
}

func NewHost(driver Driver, policy Policy) *Host {
	if policy.MaxPeers <= 0 {
		policy.MaxPeers = 1
	}
	if policy.Role == RoleClient {
		policy.MaxPeers = 1
	}
	return &Host{
		driver:         driver,
		policy:         policy,
		peers:          make(map[PeerID]struct{}),
		ConnectTimeout: DefaultConnectTimeout,
	}
}

func (h *Host) Role() Role { return h.policy.Role }

// Poll drains every event the driver has queued and returns the connection
// changes in arrival order. Received payloads are queued for PopMessage.
// Poll never waits for new events.
func (h *Host) Poll() []Event {
	events := h.pending
	h.pending = nil

	for {
		ev, ok := h.driver.Service()
		if !ok {
			return events
		}
		switch ev.Kind {
		case DriverConnect:
			if h.addPeer(ev.Peer) {
				events = append(events, Event{Kind: Connect, Peer: ev.Peer})
			}
		case DriverReceive:
			if _, known := h.peers[ev.Peer]; !known {
				log.Debug().Stringer("peer", ev.Peer).Msg("dropping payload from unknown peer")
				continue
			}
			h.inbox = append(h.inbox, PeerMessage{Sender: ev.Peer, Data: ev.Data})
		case DriverDisconnect:
			if _, known := h.peers[ev.Peer]; !known {
				continue
			}
			delete(h.peers, ev.Peer)
			events = append(events, Event{Kind: Disconnect, Peer: ev.Peer})
			log.Info().Stringer("peer", ev.Peer).Str("role", h.policy.Role.String()).Msg("peer disconnected")
		}
	}
}

func (h *Host) addPeer(peer PeerID) bool {
	if _, known := h.peers[peer]; known {
		return false
	}
	if len(h.peers) >= h.policy.MaxPeers {
		log.Warn().Stringer("peer", peer).Int("max", h.policy.MaxPeers).Msg("peer limit reached, refusing connection")
		h.driver.Disconnect(peer)
		return false
	}
	h.peers[peer] = struct{}{}
	log.Info().Stringer("peer", peer).Str("role", h.policy.Role.String()).Msg("peer connected")
	return true
}

// PopMessage removes the most recently received payload. Payloads from one
// peer on the reliable channel keep their relative order only if the caller
// drains the whole queue every tick.
func (h *Host) PopMessage() opt.Option[PeerMessage] {
	n := len(h.inbox)
	if n == 0 {
		return opt.None[PeerMessage]()
	}
	msg := h.inbox[n-1]
	h.inbox[n-1] = PeerMessage{}
	h.inbox = h.inbox[:n-1]
	return opt.Some(msg)
}

// Drain removes every queued payload, oldest first.
func (h *Host) Drain() []PeerMessage {
	msgs := h.inbox
	h.inbox = nil
	return msgs
}

// Send delivers data to one peer. Sending to an unknown peer only logs.
func (h *Host) Send(peer PeerID, data []byte, reliability Reliability) {
	if _, known := h.peers[peer]; !known {
		log.Warn().Stringer("peer", peer).Msg("send to unknown peer")
		return
	}
	if err := h.driver.Send(peer, data, reliability); err != nil {
		log.Warn().Err(err).Stringer("peer", peer).Stringer("reliability", reliability).Msg("send failed")
	}
}

// Broadcast sends data to every connected peer except exclude and returns
// the number of peers addressed.
func (h *Host) Broadcast(data []byte, reliability Reliability, exclude opt.Option[PeerID]) int {
	sent := 0
	for peer := range h.peers {
		if opt.IsSome(exclude) && exclude.Value == peer {
			continue
		}
		h.Send(peer, data, reliability)
		sent++
	}
	return sent
}

// Connect opens the client's connection to a server. It blocks for at most
// ConnectTimeout. Connecting while connected or mid-handshake is rejected.
func (h *Host) Connect(ctx context.Context, host string, port uint16) error {
	if h.policy.Role != RoleClient {
		return ErrNotClient
	}
	if h.connecting || len(h.peers) > 0 {
		return ErrAlreadyConnected
	}

	h.connecting = true
	defer func() { h.connecting = false }()

	ctx, cancel := context.WithTimeout(ctx, h.ConnectTimeout)
	defer cancel()

	peer, err := h.driver.Dial(ctx, host, port)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = ErrConnectTimeout
		}
		return fmt.Errorf("connect %s:%d: %w", host, port, err)
	}
	if h.addPeer(peer) {
		h.pending = append(h.pending, Event{Kind: Connect, Peer: peer})
	}
	return nil
}

// Disconnect drops a peer. The matching Disconnect event is reported by the
// next Poll.
func (h *Host) Disconnect(peer PeerID) {
	if _, known := h.peers[peer]; !known {
		return
	}
	delete(h.peers, peer)
	h.driver.Disconnect(peer)
	h.pending = append(h.pending, Event{Kind: Disconnect, Peer: peer})
}

// Peers returns the connected peers in no particular order.
func (h *Host) Peers() []PeerID {
	out := make([]PeerID, 0, len(h.peers))
	for p := range h.peers {
		out = append(out, p)
	}
	return out
}

func (h *Host) HasPeer(peer PeerID) bool {
	_, ok := h.peers[peer]
	return ok
}

// Server returns the client's server peer.
func (h *Host) Server() opt.Option[PeerID] {
	if h.policy.Role != RoleClient {
		return opt.None[PeerID]()
	}
	for p := range h.peers {
		return opt.Some(p)
	}
	return opt.None[PeerID]()
}

func (h *Host) Connected() bool {
	return len(h.peers) > 0
}

func (h *Host) Close() error {
	h.peers = make(map[PeerID]struct{})
	h.inbox = nil
	h.pending = nil
	return h.driver.Close()
}
