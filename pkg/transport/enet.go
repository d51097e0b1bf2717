package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/codecat/go-enet"
	"github.com/rs/zerolog/log"
)

const (
	DefaultChannels = 2
	DefaultMaxPeers = 32

	dialServiceMs = 50
)

var enetInit sync.Once

// ENetDriver is a Driver over an ENet host. Reliable payloads use ENet's
// reliable flag; unreliable ones may be fragmented and dropped.
type ENetDriver struct {
	host     enet.Host
	channels int

	ids    map[enet.Peer]PeerID
	peers  map[PeerID]enet.Peer
	nextID PeerID
}

// ListenENet binds a server host on port.
func ListenENet(port uint16, maxPeers, channels int) (*ENetDriver, error) {
	enetInit.Do(func() { enet.Initialize() })
	host, err := enet.NewHost(enet.NewListenAddress(port), uint64(maxPeers), uint64(channels), 0, 0)
	if err != nil {
		return nil, fmt.Errorf("create enet server host on port %d: %w", port, err)
	}
	return newENetDriver(host, channels), nil
}

// NewENetClient creates an unbound host able to connect to one server.
func NewENetClient(channels int) (*ENetDriver, error) {
	enetInit.Do(func() { enet.Initialize() })
	host, err := enet.NewHost(nil, 1, uint64(channels), 0, 0)
	if err != nil {
		return nil, fmt.Errorf("create enet client host: %w", err)
	}
	return newENetDriver(host, channels), nil
}

func newENetDriver(host enet.Host, channels int) *ENetDriver {
	if channels <= 0 {
		channels = DefaultChannels
	}
	return &ENetDriver{
		host:     host,
		channels: channels,
		ids:      make(map[enet.Peer]PeerID),
		peers:    make(map[PeerID]enet.Peer),
		nextID:   1,
	}
}

func (d *ENetDriver) track(peer enet.Peer) PeerID {
	if id, ok := d.ids[peer]; ok {
		return id
	}
	id := d.nextID
	d.nextID++
	d.ids[peer] = id
	d.peers[id] = peer
	return id
}

func (d *ENetDriver) forget(peer enet.Peer) (PeerID, bool) {
	id, ok := d.ids[peer]
	if ok {
		delete(d.ids, peer)
		delete(d.peers, id)
	}
	return id, ok
}

func (d *ENetDriver) Service() (DriverEvent, bool) {
	for {
		ev := d.host.Service(0)
		switch ev.GetType() {
		case enet.EventNone:
			return DriverEvent{}, false

		case enet.EventConnect:
			return DriverEvent{Kind: DriverConnect, Peer: d.track(ev.GetPeer())}, true

		case enet.EventReceive:
			packet := ev.GetPacket()
			data := append([]byte(nil), packet.GetData()...)
			packet.Destroy()
			return DriverEvent{Kind: DriverReceive, Peer: d.track(ev.GetPeer()), Data: data}, true

		case enet.EventDisconnect:
			id, ok := d.forget(ev.GetPeer())
			if !ok {
				continue
			}
			return DriverEvent{Kind: DriverDisconnect, Peer: id}, true
		}
	}
}

func (d *ENetDriver) Send(peer PeerID, data []byte, reliability Reliability) error {
	p, ok := d.peers[peer]
	if !ok {
		return ErrUnknownPeer
	}
	flags := enet.PacketFlagReliable
	if reliability == UnreliableFragmented {
		flags = enet.PacketFlagUnreliableFragment
	}
	return p.SendBytes(data, 0, flags)
}

func (d *ENetDriver) Dial(ctx context.Context, host string, port uint16) (PeerID, error) {
	peer, err := d.host.Connect(enet.NewAddress(host, port), d.channels, 0)
	if err != nil {
		return 0, fmt.Errorf("enet connect: %w", err)
	}

	for {
		if err := ctx.Err(); err != nil {
			peer.DisconnectNow(0)
			return 0, err
		}
		ev := d.host.Service(dialServiceMs)
		switch ev.GetType() {
		case enet.EventConnect:
			if ev.GetPeer() == peer {
				return d.track(peer), nil
			}
		case enet.EventReceive:
			ev.GetPacket().Destroy()
		case enet.EventDisconnect:
			if ev.GetPeer() == peer {
				return 0, fmt.Errorf("enet handshake with %s:%d refused", host, port)
			}
		}
	}
}

func (d *ENetDriver) Disconnect(peer PeerID) {
	p, ok := d.peers[peer]
	if !ok {
		return
	}
	p.Disconnect(0)
}

func (d *ENetDriver) Close() error {
	for id, p := range d.peers {
		p.DisconnectNow(0)
		delete(d.peers, id)
	}
	d.ids = make(map[enet.Peer]PeerID)
	d.host.Destroy()
	log.Debug().Msg("enet host destroyed")
	return nil
}
