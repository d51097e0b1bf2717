package game

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	opt "github.com/repeale/fp-go/option"
	"github.com/rs/zerolog/log"

	"spaceship-netcode/pkg/entity"
	"spaceship-netcode/pkg/protocol"
	"spaceship-netcode/pkg/transport"
)

var (
	ErrNotConnected = errors.New("not connected to a server")
	ErrUnknownKey   = errors.New("unknown key")
)

type ClientOptions struct {
	ServerDelta time.Duration
	Clock       Clock
	// OnText is called for every chat line relayed by the server.
	OnText func(text string)
	// OnDisconnect is called when the server connection drops.
	OnDisconnect func()
}

// Client mirrors the server world and streams the held keys to the server.
type Client struct {
	host     *transport.Host
	mirror   *entity.Mirror
	dispatch *protocol.Dispatcher
	clock    Clock
	keys     uint16
	opts     ClientOptions
}

func NewClient(host *transport.Host, opts ClientOptions) *Client {
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	c := &Client{
		host:     host,
		mirror:   entity.NewMirror(opts.ServerDelta),
		dispatch: protocol.NewDispatcher(),
		clock:    opts.Clock,
		opts:     opts,
	}

	protocol.Handle(c.dispatch, func(_ transport.PeerID, m *protocol.ClientConnectS2C) {
		c.mirror.Control(m.ID)
		c.mirror.SyncClock(m.ServerTime, c.clock.NowMillis())
		log.Info().Uint32("ship", m.ID).Int64("offset_ms", c.mirror.ClockOffset).Msg("joined server")
	})
	protocol.Handle(c.dispatch, func(_ transport.PeerID, m *protocol.GameStateS2C) {
		for _, p := range m.Players {
			c.mirror.SyncShip(p.ID, p.Body())
		}
		for _, l := range m.Lasers {
			c.mirror.SpawnLaser(l.Entity())
		}
	})
	protocol.Handle(c.dispatch, func(_ transport.PeerID, m *protocol.SpawnPlayerS2C) {
		c.mirror.SpawnShip(m.Player.ID, m.Player.Body())
	})
	protocol.Handle(c.dispatch, func(_ transport.PeerID, m *protocol.DespawnPlayerS2C) {
		c.mirror.DespawnShip(m.ID)
	})
	protocol.Handle(c.dispatch, func(_ transport.PeerID, m *protocol.UpdatePlayerS2C) {
		c.mirror.UpdateShip(m.Player.ID, m.Player.Body(), false, m.Timestamp)
	})
	protocol.Handle(c.dispatch, func(_ transport.PeerID, m *protocol.TeleportPlayerS2C) {
		c.mirror.UpdateShip(m.Player.ID, m.Player.Body(), true, m.Timestamp)
	})
	protocol.Handle(c.dispatch, func(_ transport.PeerID, m *protocol.SpawnLaserS2C) {
		c.mirror.SpawnLaser(m.Laser.Entity())
	})
	protocol.Handle(c.dispatch, func(_ transport.PeerID, m *protocol.DespawnLaserS2C) {
		c.mirror.DespawnLaser(m.ID)
	})
	protocol.Handle(c.dispatch, func(_ transport.PeerID, m *protocol.TextS2C) {
		log.Info().Str("text", m.Text).Msg("chat")
		if c.opts.OnText != nil {
			c.opts.OnText(m.Text)
		}
	})
	return c
}

func (c *Client) Mirror() *entity.Mirror { return c.mirror }

func (c *Client) Connected() bool { return c.host.Connected() }

// Connect blocks until the handshake with host:port completes or times out.
func (c *Client) Connect(ctx context.Context, host string, port uint16) error {
	return c.host.Connect(ctx, host, port)
}

// Disconnect drops the server connection, if any.
func (c *Client) Disconnect() {
	if server := c.host.Server(); opt.IsSome(server) {
		c.host.Disconnect(server.Value)
	}
}

// SetKeys replaces the held keys (entity.Key* bits).
func (c *Client) SetKeys(mask uint16) { c.keys = mask }

func (c *Client) Keys() uint16 { return c.keys }

// Tick sends the current input, applies everything the server sent and
// advances the mirrored world by dt seconds.
func (c *Client) Tick(dt float32) {
	now := c.clock.NowMillis()
	c.send(protocol.InputOf(entity.InputFromBitmask(c.keys, now)))

	for _, ev := range c.host.Poll() {
		switch ev.Kind {
		case transport.Connect:
			log.Info().Stringer("peer", ev.Peer).Msg("server connected")
		case transport.Disconnect:
			log.Info().Stringer("peer", ev.Peer).Msg("server disconnected")
			c.mirror.DropRemote()
			if c.opts.OnDisconnect != nil {
				c.opts.OnDisconnect()
			}
		}
	}

	c.dispatch.DispatchAll(c.host)
	c.mirror.Advance(c.clock.NowMillis(), dt)
}

// Say sends a chat line to the server.
func (c *Client) Say(text string) error {
	if !c.host.Connected() {
		return ErrNotConnected
	}
	c.send(&protocol.TextC2S{Text: text})
	return nil
}

func (c *Client) send(m protocol.Message) {
	server := c.host.Server()
	if !opt.IsSome(server) {
		return
	}
	data, err := protocol.Encode(m)
	if err != nil {
		log.Error().Err(err).Stringer("type", m.Type()).Msg("encode failed")
		return
	}
	c.host.Send(server.Value, data, protocol.Channel(m.Type()))
}

// ParseKeys turns space separated key names ("w space shift") into a mask.
// "none" or an empty string releases every key.
func ParseKeys(arg string) (uint16, error) {
	var mask uint16
	for _, name := range strings.Fields(strings.ToLower(arg)) {
		if name == "none" {
			continue
		}
		bit, ok := entity.KeyNames[name]
		if !ok {
			return 0, fmt.Errorf("%w %q", ErrUnknownKey, name)
		}
		mask |= bit
	}
	return mask, nil
}

func (c *Client) Close() error {
	c.Disconnect()
	return c.host.Close()
}
