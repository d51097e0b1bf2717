package game

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spaceship-netcode/pkg/entity"
	"spaceship-netcode/pkg/stats"
	"spaceship-netcode/pkg/transport"
)

const frame = 16 * time.Millisecond

type chatLine struct {
	ship uint32
	text string
}

// rig is one server and its clients on an in-memory network.
type rig struct {
	t       *testing.T
	net     *transport.MemoryNetwork
	clock   *ManualClock
	server  *Server
	clients []*Client
	said    []chatLine
	heard   map[*Client][]string
}

func newRig(t *testing.T, recorder *stats.Recorder) *rig {
	t.Helper()
	r := &rig{
		t:     t,
		net:   transport.NewMemoryNetwork(),
		clock: NewManualClock(10_000),
		heard: make(map[*Client][]string),
	}
	d, err := r.net.Listen("localhost", 1234)
	require.NoError(t, err)
	r.server = NewServer(transport.NewHost(d, transport.ServerPolicy(transport.DefaultMaxPeers)), ServerOptions{
		Rules:    entity.DefaultRules(),
		Clock:    r.clock,
		Recorder: recorder,
		OnText: func(ship uint32, text string) {
			r.said = append(r.said, chatLine{ship, text})
		},
	})
	return r
}

func (r *rig) join() *Client {
	r.t.Helper()
	var c *Client
	c = NewClient(transport.NewHost(r.net.Endpoint(), transport.ClientPolicy()), ClientOptions{
		ServerDelta: entity.DefaultRules().ServerDelta,
		Clock:       r.clock,
		OnText:      func(text string) { r.heard[c] = append(r.heard[c], text) },
	})
	require.NoError(r.t, c.Connect(context.Background(), "localhost", 1234))
	r.clients = append(r.clients, c)
	r.step(1)
	return c
}

func (r *rig) step(n int) {
	dt := float32(frame.Seconds())
	for i := 0; i < n; i++ {
		r.clock.Advance(frame)
		r.server.Tick(dt)
		for _, c := range r.clients {
			c.Tick(dt)
		}
	}
}

func TestJoinReceivesControlAndState(t *testing.T) {
	r := newRig(t, nil)
	a := r.join()

	id, ok := a.Mirror().ControlledID()
	require.True(t, ok)
	assert.Equal(t, uint32(1), id)
	assert.Equal(t, int64(0), a.Mirror().ClockOffset)

	ship, ok := a.Mirror().Controlled()
	require.True(t, ok)
	spawn := r.server.World().Spawns.Points[0]
	assert.True(t, ship.Position.ApproxEqualThreshold(spawn, 1e-3), "got %v want %v", ship.Position, spawn)

	b := r.join()
	idB, _ := b.Mirror().ControlledID()
	assert.Equal(t, uint32(2), idB)
	assert.Equal(t, 2, b.Mirror().Ships.Len(), "game state lists both ships")
	assert.Equal(t, 2, a.Mirror().Ships.Len(), "spawn notice reaches the first client")
	assert.Equal(t, 2, r.server.Players())
}

func TestInputMovesShipOnAllClients(t *testing.T) {
	r := newRig(t, nil)
	a := r.join()
	b := r.join()
	spawn := r.server.World().Spawns.Points[0]

	a.SetKeys(entity.KeyW)
	r.step(40)

	srvShip, ok := r.server.World().Ships.Get(1)
	require.True(t, ok)
	assert.Greater(t, srvShip.Position.Sub(spawn).Len(), float32(0.1))

	for _, c := range []*Client{a, b} {
		ship, ok := c.Mirror().Ships.Get(1)
		require.True(t, ok)
		assert.Greater(t, ship.Position.Sub(spawn).Len(), float32(0.1))
	}

	still, _ := r.server.World().Ships.Get(2)
	assert.True(t, still.Position.ApproxEqualThreshold(r.server.World().Spawns.Points[1], 1e-4))
}

func TestChatIsRelayedToOthers(t *testing.T) {
	r := newRig(t, nil)
	a := r.join()
	b := r.join()

	require.NoError(t, a.Say("hello"))
	r.step(2)

	assert.Equal(t, []chatLine{{1, "hello"}}, r.said)
	assert.Equal(t, []string{"hello"}, r.heard[b])
	assert.Empty(t, r.heard[a])

	assert.Equal(t, 2, r.server.Say("server here"))
	r.step(1)
	assert.Equal(t, []string{"server here"}, r.heard[a])
}

func TestSayRequiresConnection(t *testing.T) {
	net := transport.NewMemoryNetwork()
	c := NewClient(transport.NewHost(net.Endpoint(), transport.ClientPolicy()), ClientOptions{})
	assert.ErrorIs(t, c.Say("anyone?"), ErrNotConnected)
}

func TestFiringSpawnsLasersAndRecordsShots(t *testing.T) {
	store, err := stats.Open(filepath.Join(t.TempDir(), "stats.db"))
	require.NoError(t, err)
	defer store.Close()
	rec, err := stats.NewRecorder(store)
	require.NoError(t, err)

	r := newRig(t, rec)
	a := r.join()
	b := r.join()

	a.SetKeys(entity.KeySpace)
	r.step(10)
	a.SetKeys(0)
	r.step(1)

	fired := r.server.World().Lasers.Len()
	require.GreaterOrEqual(t, fired, 1)
	assert.Equal(t, fired, b.Mirror().Lasers.Len())
	for _, l := range b.Mirror().Lasers.All() {
		assert.Equal(t, uint64(3000), l.ExpiryTime-l.SpawnTime)
	}

	rec.Close()
	board, err := store.Leaderboard(rec.Run(), 10)
	require.NoError(t, err)
	shots := map[uint32]int{}
	for _, p := range board {
		shots[p.Ship] = p.Shots
	}
	assert.Equal(t, fired, shots[1])
	assert.Equal(t, 0, shots[2])
}

func TestLasersExpireOnClients(t *testing.T) {
	r := newRig(t, nil)
	a := r.join()
	b := r.join()

	a.SetKeys(entity.KeySpace)
	r.step(8)
	a.SetKeys(0)
	r.step(1)
	require.Equal(t, 1, b.Mirror().Lasers.Len())

	r.clock.Advance(3 * time.Second)
	r.step(1)
	assert.Zero(t, b.Mirror().Lasers.Len())
	assert.Zero(t, r.server.World().Lasers.Len())
}

func TestDisconnectDespawns(t *testing.T) {
	r := newRig(t, nil)
	a := r.join()
	b := r.join()

	b.Disconnect()
	r.step(1)

	assert.Equal(t, 1, r.server.Players())
	assert.Equal(t, 1, a.Mirror().Ships.Len())
	_, ok := a.Mirror().Ships.Get(2)
	assert.False(t, ok)

	// The disconnected client keeps only its own ship.
	assert.Equal(t, 1, b.Mirror().Ships.Len())
	_, ok = b.Mirror().Controlled()
	assert.True(t, ok)
}

func TestServerShutdownReachesClients(t *testing.T) {
	r := newRig(t, nil)
	a := r.join()
	r.join()
	dropped := false
	a.opts.OnDisconnect = func() { dropped = true }

	require.NoError(t, r.server.Close())
	a.Tick(float32(frame.Seconds()))

	assert.True(t, dropped)
	assert.False(t, a.Connected())
	assert.Equal(t, 1, a.Mirror().Ships.Len())
	assert.Zero(t, a.Mirror().Lasers.Len())
}

func TestCollisionTeleportsOnClients(t *testing.T) {
	r := newRig(t, nil)
	a := r.join()
	r.join()

	// Park ship 2 on top of ship 1.
	s1, _ := r.server.World().Ships.Get(1)
	s2, _ := r.server.World().Ships.Get(2)
	s2.Place(s1.Position.Add(mgl32.Vec3{0.5, 0, 0}), s1.Orientation)
	r.step(1)

	s1, _ = r.server.World().Ships.Get(1)
	s2, _ = r.server.World().Ships.Get(2)
	assert.Greater(t, s1.Position.Sub(s2.Position).Len(), float32(2))

	mirrored, _ := a.Mirror().Ships.Get(1)
	assert.True(t, mirrored.Position.ApproxEqualThreshold(s1.Position, 1e-3), "hard reset lands exactly")
}
