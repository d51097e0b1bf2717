package transport

import (
	"context"
	"fmt"
	"sync"
)

// MemoryNetwork connects MemoryDrivers inside one process. It runs a server
// and its clients without sockets, e.g. for local play and tests.
type MemoryNetwork struct {
	mu        sync.Mutex
	listeners map[string]*MemoryDriver

	// Drop, when set, decides whether an unreliable payload is lost.
	Drop func(data []byte) bool
}

func NewMemoryNetwork() *MemoryNetwork {
	return &MemoryNetwork{listeners: make(map[string]*MemoryDriver)}
}

func memAddr(host string, port uint16) string {
	return fmt.Sprintf("%s:%d", host, port)
}

// Listen registers a driver reachable at host:port.
func (n *MemoryNetwork) Listen(host string, port uint16) (*MemoryDriver, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	addr := memAddr(host, port)
	if _, taken := n.listeners[addr]; taken {
		return nil, fmt.Errorf("memory listen %s: address in use", addr)
	}
	d := n.Endpoint()
	d.addr = addr
	n.listeners[addr] = d
	return d, nil
}

// Endpoint creates an unbound driver able to dial listeners.
func (n *MemoryNetwork) Endpoint() *MemoryDriver {
	return &MemoryDriver{
		network: n,
		links:   make(map[PeerID]memLink),
		nextID:  1,
	}
}

func (n *MemoryNetwork) lookup(addr string) (*MemoryDriver, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	d, ok := n.listeners[addr]
	return d, ok
}

func (n *MemoryNetwork) unlisten(d *MemoryDriver) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.listeners[d.addr] == d {
		delete(n.listeners, d.addr)
	}
}

type memLink struct {
	remote   *MemoryDriver
	remoteID PeerID // our id as known by remote
}

// MemoryDriver is one endpoint of a MemoryNetwork.
type MemoryDriver struct {
	network *MemoryNetwork
	addr    string

	mu     sync.Mutex
	queue  []DriverEvent
	links  map[PeerID]memLink
	nextID PeerID
	closed bool

	// Sent counts payloads handed to Send, per peer.
	Sent map[PeerID]int
}

func (d *MemoryDriver) enqueue(ev DriverEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		d.queue = append(d.queue, ev)
	}
}

func (d *MemoryDriver) link(remote *MemoryDriver, remoteID PeerID) PeerID {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextID
	d.nextID++
	d.links[id] = memLink{remote: remote, remoteID: remoteID}
	return id
}

func (d *MemoryDriver) unlink(id PeerID) (memLink, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.links[id]
	delete(d.links, id)
	return l, ok
}

func (d *MemoryDriver) Service() (DriverEvent, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.queue) == 0 {
		return DriverEvent{}, false
	}
	ev := d.queue[0]
	d.queue[0] = DriverEvent{}
	d.queue = d.queue[1:]
	return ev, true
}

func (d *MemoryDriver) Send(peer PeerID, data []byte, reliability Reliability) error {
	d.mu.Lock()
	l, ok := d.links[peer]
	if ok {
		if d.Sent == nil {
			d.Sent = make(map[PeerID]int)
		}
		d.Sent[peer]++
	}
	d.mu.Unlock()
	if !ok {
		return ErrUnknownPeer
	}
	if reliability == UnreliableFragmented && d.network.Drop != nil && d.network.Drop(data) {
		return nil
	}
	l.remote.enqueue(DriverEvent{
		Kind: DriverReceive,
		Peer: l.remoteID,
		Data: append([]byte(nil), data...),
	})
	return nil
}

func (d *MemoryDriver) Dial(ctx context.Context, host string, port uint16) (PeerID, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	remote, ok := d.network.lookup(memAddr(host, port))
	if !ok {
		return 0, fmt.Errorf("%w %s", ErrNoRoute, memAddr(host, port))
	}

	// Reserve our id first so the listener can address us back.
	d.mu.Lock()
	local := d.nextID
	d.nextID++
	d.mu.Unlock()

	remoteID := remote.link(d, local)
	d.mu.Lock()
	d.links[local] = memLink{remote: remote, remoteID: remoteID}
	d.mu.Unlock()

	remote.enqueue(DriverEvent{Kind: DriverConnect, Peer: remoteID})
	return local, nil
}

func (d *MemoryDriver) Disconnect(peer PeerID) {
	l, ok := d.unlink(peer)
	if !ok {
		return
	}
	l.remote.unlink(l.remoteID)
	l.remote.enqueue(DriverEvent{Kind: DriverDisconnect, Peer: l.remoteID})
}

func (d *MemoryDriver) Close() error {
	d.mu.Lock()
	ids := make([]PeerID, 0, len(d.links))
	for id := range d.links {
		ids = append(ids, id)
	}
	d.mu.Unlock()

	for _, id := range ids {
		d.Disconnect(id)
	}
	d.network.unlisten(d)

	d.mu.Lock()
	d.closed = true
	d.queue = nil
	d.mu.Unlock()
	return nil
}
