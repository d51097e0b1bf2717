package transport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRoundTrip(t *testing.T) {
	net := NewMemoryNetwork()
	srvDriver, err := net.Listen("localhost", 1234)
	require.NoError(t, err)
	server := NewHost(srvDriver, ServerPolicy(DefaultMaxPeers))
	client := NewHost(net.Endpoint(), ClientPolicy())

	require.NoError(t, client.Connect(context.Background(), "localhost", 1234))
	events := server.Poll()
	require.Len(t, events, 1)
	assert.Equal(t, Connect, events[0].Kind)
	peer := events[0].Peer

	client.Send(client.Server().Value, []byte("ping"), Reliable)
	server.Poll()
	msg := server.PopMessage()
	require.Equal(t, "ping", string(msg.Value.Data))
	assert.Equal(t, peer, msg.Value.Sender)

	server.Send(peer, []byte("pong"), UnreliableFragmented)
	client.Poll()
	assert.Equal(t, "pong", string(client.PopMessage().Value.Data))
}

func TestMemoryDialWithoutListener(t *testing.T) {
	net := NewMemoryNetwork()
	client := NewHost(net.Endpoint(), ClientPolicy())
	err := client.Connect(context.Background(), "localhost", 4321)
	assert.ErrorIs(t, err, ErrNoRoute)
}

func TestMemoryListenTwice(t *testing.T) {
	net := NewMemoryNetwork()
	_, err := net.Listen("localhost", 1234)
	require.NoError(t, err)
	_, err = net.Listen("localhost", 1234)
	assert.Error(t, err)
}

func TestMemoryDropsOnlyUnreliable(t *testing.T) {
	net := NewMemoryNetwork()
	net.Drop = func([]byte) bool { return true }
	srvDriver, _ := net.Listen("localhost", 1234)
	server := NewHost(srvDriver, ServerPolicy(4))
	client := NewHost(net.Endpoint(), ClientPolicy())
	require.NoError(t, client.Connect(context.Background(), "localhost", 1234))
	server.Poll()
	srv := client.Server().Value

	client.Send(srv, []byte("lost"), UnreliableFragmented)
	client.Send(srv, []byte("kept"), Reliable)
	server.Poll()

	msgs := server.Drain()
	require.Len(t, msgs, 1)
	assert.Equal(t, "kept", string(msgs[0].Data))
}

func TestMemoryDisconnectPropagates(t *testing.T) {
	net := NewMemoryNetwork()
	srvDriver, _ := net.Listen("localhost", 1234)
	server := NewHost(srvDriver, ServerPolicy(4))
	client := NewHost(net.Endpoint(), ClientPolicy())
	require.NoError(t, client.Connect(context.Background(), "localhost", 1234))
	server.Poll()

	client.Disconnect(client.Server().Value)
	events := server.Poll()
	require.Len(t, events, 1)
	assert.Equal(t, Disconnect, events[0].Kind)
	assert.Empty(t, server.Peers())

	// The server can be reached again after the client left.
	require.NoError(t, client.Connect(context.Background(), "localhost", 1234))
	assert.Len(t, server.Poll(), 1)
}

func TestMemoryCloseDisconnectsClients(t *testing.T) {
	net := NewMemoryNetwork()
	srvDriver, _ := net.Listen("localhost", 1234)
	server := NewHost(srvDriver, ServerPolicy(4))
	client := NewHost(net.Endpoint(), ClientPolicy())
	require.NoError(t, client.Connect(context.Background(), "localhost", 1234))
	client.Poll()
	server.Poll()

	require.NoError(t, server.Close())
	events := client.Poll()
	require.Len(t, events, 1)
	assert.Equal(t, Disconnect, events[0].Kind)
	assert.False(t, client.Connected())
}
