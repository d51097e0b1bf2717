package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufSize    = 256
	eventBufSize   = 1024

	tokenTTL = time.Minute
)

// WebSocketOptions configures a WebSocketDriver.
type WebSocketOptions struct {
	// Path of the upgrade endpoint, "/ws" when empty.
	Path string
	// Secret enables HS256 join tokens. Servers reject upgrades without a
	// valid bearer token; clients mint one per dial.
	Secret []byte
	// MaxPeers bounds concurrent connections on the server side.
	MaxPeers int
}

// WebSocketDriver is a Driver over websocket connections. TCP makes every
// message reliable; unreliable sends are dropped instead of queued when a
// peer falls behind.
type WebSocketDriver struct {
	opts     WebSocketOptions
	upgrader websocket.Upgrader
	events   chan DriverEvent
	done     chan struct{}

	mu     sync.Mutex
	conns  map[PeerID]*wsConn
	nextID PeerID
	// upgrades in flight, counted against MaxPeers
	pending int
	closed bool

	server *http.Server
}

type wsConn struct {
	id        PeerID
	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
}

func NewWebSocketDriver(opts WebSocketOptions) *WebSocketDriver {
	if opts.Path == "" {
		opts.Path = "/ws"
	}
	if opts.MaxPeers <= 0 {
		opts.MaxPeers = DefaultMaxPeers
	}
	return &WebSocketDriver{
		opts: opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				return u.Host == r.Host
			},
		},
		events: make(chan DriverEvent, eventBufSize),
		done:   make(chan struct{}),
		conns:  make(map[PeerID]*wsConn),
		nextID: 1,
	}
}

// Listen serves the upgrade endpoint on addr in the background.
func (d *WebSocketDriver) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen websocket on %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle(d.opts.Path, d)
	d.server = &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := d.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("websocket server stopped")
		}
	}()
	log.Info().Str("addr", ln.Addr().String()).Str("path", d.opts.Path).Msg("websocket transport listening")
	return nil
}

// ServeHTTP upgrades one incoming connection.
func (d *WebSocketDriver) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if len(d.opts.Secret) > 0 {
		if err := d.verifyToken(r.Header.Get("Authorization")); err != nil {
			log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("rejected websocket join")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	d.mu.Lock()
	full := len(d.conns)+d.pending >= d.opts.MaxPeers
	if !full {
		d.pending++
	}
	d.mu.Unlock()
	if full {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}
	defer func() {
		d.mu.Lock()
		d.pending--
		d.mu.Unlock()
	}()

	conn, err := d.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}
	d.attach(conn)
}

// Dial connects to ws://host:port/path.
func (d *WebSocketDriver) Dial(ctx context.Context, host string, port uint16) (PeerID, error) {
	u := url.URL{Scheme: "ws", Host: net.JoinHostPort(host, strconv.Itoa(int(port))), Path: d.opts.Path}

	header := http.Header{}
	if len(d.opts.Secret) > 0 {
		token, err := d.mintToken()
		if err != nil {
			return 0, err
		}
		header.Set("Authorization", "Bearer "+token)
	}

	dialer := *websocket.DefaultDialer
	if deadline, ok := ctx.Deadline(); ok {
		dialer.HandshakeTimeout = time.Until(deadline)
	}
	conn, resp, err := dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return 0, fmt.Errorf("websocket dial %s: %s: %w", u.String(), resp.Status, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		return 0, fmt.Errorf("websocket dial %s: %w", u.String(), err)
	}
	return d.register(conn), nil
}

func (d *WebSocketDriver) attach(conn *websocket.Conn) {
	id := d.register(conn)
	d.push(DriverEvent{Kind: DriverConnect, Peer: id})
}

func (d *WebSocketDriver) register(conn *websocket.Conn) PeerID {
	d.mu.Lock()
	id := d.nextID
	d.nextID++
	c := &wsConn{id: id, conn: conn, send: make(chan []byte, sendBufSize)}
	d.conns[id] = c
	d.mu.Unlock()

	go d.readPump(c)
	go d.writePump(c)
	return id
}

func (d *WebSocketDriver) push(ev DriverEvent) {
	select {
	case d.events <- ev:
	case <-d.done:
	}
}

func (d *WebSocketDriver) readPump(c *wsConn) {
	defer func() {
		d.drop(c)
		d.push(DriverEvent{Kind: DriverDisconnect, Peer: c.id})
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Stringer("peer", c.id).Msg("websocket read error")
			}
			return
		}
		if msgType != websocket.BinaryMessage {
			continue
		}
		d.push(DriverEvent{Kind: DriverReceive, Peer: c.id, Data: data})
	}
}

func (d *WebSocketDriver) writePump(c *wsConn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// trySend queues data without blocking. The send channel may already be
// closed by a concurrent drop.
func (c *wsConn) trySend(data []byte) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// drop forgets a connection and stops its write pump.
func (d *WebSocketDriver) drop(c *wsConn) {
	d.mu.Lock()
	if d.conns[c.id] == c {
		delete(d.conns, c.id)
	}
	d.mu.Unlock()
	c.closeOnce.Do(func() { close(c.send) })
}

func (d *WebSocketDriver) Service() (DriverEvent, bool) {
	select {
	case ev := <-d.events:
		return ev, true
	default:
		return DriverEvent{}, false
	}
}

func (d *WebSocketDriver) Send(peer PeerID, data []byte, reliability Reliability) error {
	d.mu.Lock()
	c, ok := d.conns[peer]
	d.mu.Unlock()
	if !ok {
		return ErrUnknownPeer
	}

	if c.trySend(data) {
		return nil
	}
	if reliability == UnreliableFragmented {
		return nil
	}
	// A reliable message cannot be dropped, so the peer goes instead.
	d.drop(c)
	return ErrPeerTooSlow
}

func (d *WebSocketDriver) Disconnect(peer PeerID) {
	d.mu.Lock()
	c, ok := d.conns[peer]
	d.mu.Unlock()
	if ok {
		d.drop(c)
	}
}

func (d *WebSocketDriver) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	conns := make([]*wsConn, 0, len(d.conns))
	for _, c := range d.conns {
		conns = append(conns, c)
	}
	d.mu.Unlock()

	for _, c := range conns {
		d.drop(c)
	}
	close(d.done)
	if d.server != nil {
		return d.server.Close()
	}
	return nil
}

func (d *WebSocketDriver) mintToken() (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "spaceclient",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	})
	signed, err := token.SignedString(d.opts.Secret)
	if err != nil {
		return "", fmt.Errorf("sign join token: %w", err)
	}
	return signed, nil
}

func (d *WebSocketDriver) verifyToken(header string) error {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return errors.New("missing bearer token")
	}
	_, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		return d.opts.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return fmt.Errorf("invalid join token: %w", err)
	}
	return nil
}
