// Package game drives the server and client simulations one tick at a time:
// poll the transport, dispatch messages, advance entities, emit updates.
package game

import (
	opt "github.com/repeale/fp-go/option"
	"github.com/rs/zerolog/log"

	"spaceship-netcode/pkg/entity"
	"spaceship-netcode/pkg/protocol"
	"spaceship-netcode/pkg/stats"
	"spaceship-netcode/pkg/transport"
)

type ServerOptions struct {
	Rules     entity.Rules
	Obstacles entity.Raycaster
	Clock     Clock
	// Recorder is optional.
	Recorder *stats.Recorder
	// OnText is called for every chat line a client sends.
	OnText func(ship uint32, text string)
}

// Server owns the authoritative world. Each connected peer controls exactly
// one ship.
type Server struct {
	host     *transport.Host
	world    *entity.World
	ships    map[transport.PeerID]uint32
	dispatch *protocol.Dispatcher
	clock    Clock
	recorder *stats.Recorder
	onText   func(uint32, string)
}

func NewServer(host *transport.Host, opts ServerOptions) *Server {
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	s := &Server{
		host:     host,
		world:    entity.NewWorld(opts.Rules, opts.Obstacles),
		ships:    make(map[transport.PeerID]uint32),
		dispatch: protocol.NewDispatcher(),
		clock:    opts.Clock,
		recorder: opts.Recorder,
		onText:   opts.OnText,
	}
	protocol.Handle(s.dispatch, s.handleInput)
	protocol.Handle(s.dispatch, s.handleText)
	return s
}

func (s *Server) World() *entity.World { return s.world }
func (s *Server) Host() *transport.Host { return s.host }
func (s *Server) Players() int { return len(s.ships) }

// ShipOf returns the ship controlled by peer.
func (s *Server) ShipOf(peer transport.PeerID) (uint32, bool) {
	id, ok := s.ships[peer]
	return id, ok
}

// Tick runs one server frame of dt seconds.
func (s *Server) Tick(dt float32) {
	for _, ev := range s.host.Poll() {
		switch ev.Kind {
		case transport.Connect:
			s.onConnect(ev.Peer)
		case transport.Disconnect:
			s.onDisconnect(ev.Peer)
		}
	}

	s.dispatch.DispatchAll(s.host)

	now := s.clock.NowMillis()
	for _, ev := range s.world.Step(now, dt) {
		s.emit(ev, now)
	}
}

// Say broadcasts a chat line from the server operator to every client.
func (s *Server) Say(text string) int {
	return s.broadcast(&protocol.TextS2C{Text: text}, opt.None[transport.PeerID]())
}

func (s *Server) onConnect(peer transport.PeerID) {
	if _, known := s.ships[peer]; known {
		return
	}
	ship := s.world.SpawnShip()
	s.ships[peer] = ship.ID
	log.Info().Stringer("peer", peer).Uint32("ship", ship.ID).Msg("client connected")

	s.broadcast(&protocol.SpawnPlayerS2C{Player: protocol.PlayerOf(ship.ID, ship.Body())}, opt.Some(peer))
	// The clock sync goes first so the lasers in the game state are shifted
	// onto the client's clock.
	s.send(peer, &protocol.ClientConnectS2C{ID: ship.ID, ServerTime: s.clock.NowMillis()})
	s.send(peer, s.gameState())
	s.recorder.Track(stats.KindJoin, ship.ID, 0)
}

func (s *Server) onDisconnect(peer transport.PeerID) {
	id, ok := s.ships[peer]
	if !ok {
		return
	}
	delete(s.ships, peer)
	s.world.DespawnShip(id)
	log.Info().Stringer("peer", peer).Uint32("ship", id).Msg("client disconnected")

	s.broadcast(&protocol.DespawnPlayerS2C{ID: id}, opt.None[transport.PeerID]())
	s.recorder.Track(stats.KindLeave, id, 0)
}

func (s *Server) gameState() *protocol.GameStateS2C {
	ships := s.world.Ships.All()
	lasers := s.world.Lasers.All()
	gs := &protocol.GameStateS2C{
		Players: make([]protocol.Player, 0, len(ships)),
		Lasers:  make([]protocol.Laser, 0, len(lasers)),
	}
	for _, ship := range ships {
		gs.Players = append(gs.Players, protocol.PlayerOf(ship.ID, ship.Body()))
	}
	for _, l := range lasers {
		gs.Lasers = append(gs.Lasers, protocol.LaserOf(l))
	}
	return gs
}

func (s *Server) handleInput(sender transport.PeerID, m *protocol.InputC2S) {
	id, ok := s.ships[sender]
	if !ok {
		return
	}
	s.world.ApplyInput(id, m.Input())
}

func (s *Server) handleText(sender transport.PeerID, m *protocol.TextC2S) {
	id := s.ships[sender]
	log.Info().Uint32("ship", id).Str("text", m.Text).Msg("chat")
	s.broadcast(&protocol.TextS2C{Text: m.Text}, opt.Some(sender))
	if s.onText != nil {
		s.onText(id, m.Text)
	}
}

func (s *Server) emit(ev entity.Event, now uint64) {
	switch ev.Kind {
	case entity.ShipMoved:
		s.broadcast(&protocol.UpdatePlayerS2C{
			Player:    protocol.PlayerOf(ev.Ship.ID, ev.Ship.Body()),
			Timestamp: now,
		}, opt.None[transport.PeerID]())
	case entity.ShipRespawned:
		s.broadcast(&protocol.TeleportPlayerS2C{
			Player:    protocol.PlayerOf(ev.Ship.ID, ev.Ship.Body()),
			Timestamp: now,
		}, opt.None[transport.PeerID]())
		s.recorder.Track(stats.KindDeath, ev.Ship.ID, ev.Killer)
	case entity.LaserFired:
		s.broadcast(&protocol.SpawnLaserS2C{Laser: protocol.LaserOf(ev.Laser)}, opt.None[transport.PeerID]())
		s.recorder.Track(stats.KindShot, ev.Laser.OwnerID, 0)
	case entity.LaserRemoved:
		s.broadcast(&protocol.DespawnLaserS2C{ID: ev.Laser.ID}, opt.None[transport.PeerID]())
	}
}

func (s *Server) send(peer transport.PeerID, m protocol.Message) {
	data, err := protocol.Encode(m)
	if err != nil {
		log.Error().Err(err).Stringer("type", m.Type()).Msg("encode failed")
		return
	}
	s.host.Send(peer, data, protocol.Channel(m.Type()))
}

func (s *Server) broadcast(m protocol.Message, exclude opt.Option[transport.PeerID]) int {
	data, err := protocol.Encode(m)
	if err != nil {
		log.Error().Err(err).Stringer("type", m.Type()).Msg("encode failed")
		return 0
	}
	return s.host.Broadcast(data, protocol.Channel(m.Type()), exclude)
}

// Close disconnects every client and releases the transport.
func (s *Server) Close() error {
	for peer := range s.ships {
		s.host.Disconnect(peer)
	}
	return s.host.Close()
}
