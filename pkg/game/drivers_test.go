package game

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spaceship-netcode/pkg/config"
	"spaceship-netcode/pkg/transport"
)

func TestMemoryDriversConnect(t *testing.T) {
	cfg := config.NetConfig{Driver: config.DriverMemory, MaxPeers: 4}

	srv, err := ListenDriver(cfg, 40001)
	require.NoError(t, err)
	defer srv.Close()

	cli, err := DialDriver(cfg)
	require.NoError(t, err)
	host := transport.NewHost(cli, transport.ClientPolicy())
	require.NoError(t, host.Connect(context.Background(), "localhost", 40001))
	assert.True(t, host.Connected())
}

func TestUnknownDriver(t *testing.T) {
	_, err := ListenDriver(config.NetConfig{Driver: "pigeon"}, 1)
	assert.Error(t, err)
	_, err = DialDriver(config.NetConfig{Driver: "pigeon"})
	assert.Error(t, err)
}
