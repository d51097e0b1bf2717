package game

import (
	"fmt"
	"net"
	"strconv"

	"spaceship-netcode/pkg/config"
	"spaceship-netcode/pkg/transport"
)

// LocalNetwork connects servers and clients of the memory driver living in
// the same process.
var LocalNetwork = transport.NewMemoryNetwork()

// ListenDriver creates the server side of the configured driver on port.
func ListenDriver(cfg config.NetConfig, port uint16) (transport.Driver, error) {
	switch cfg.Driver {
	case config.DriverENet:
		d, err := transport.ListenENet(port, cfg.MaxPeers, cfg.Channels)
		if err != nil {
			return nil, err
		}
		return d, nil
	case config.DriverWebSocket:
		d := transport.NewWebSocketDriver(webSocketOptions(cfg))
		if err := d.Listen(net.JoinHostPort("", strconv.Itoa(int(port)))); err != nil {
			return nil, err
		}
		return d, nil
	case config.DriverMemory:
		d, err := LocalNetwork.Listen("localhost", port)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
	return nil, fmt.Errorf("unknown driver %q", cfg.Driver)
}

// DialDriver creates an unbound client side of the configured driver.
func DialDriver(cfg config.NetConfig) (transport.Driver, error) {
	switch cfg.Driver {
	case config.DriverENet:
		d, err := transport.NewENetClient(cfg.Channels)
		if err != nil {
			return nil, err
		}
		return d, nil
	case config.DriverWebSocket:
		return transport.NewWebSocketDriver(webSocketOptions(cfg)), nil
	case config.DriverMemory:
		return LocalNetwork.Endpoint(), nil
	}
	return nil, fmt.Errorf("unknown driver %q", cfg.Driver)
}

func webSocketOptions(cfg config.NetConfig) transport.WebSocketOptions {
	return transport.WebSocketOptions{
		Path:     cfg.WSPath,
		Secret:   []byte(cfg.WSSecret),
		MaxPeers: cfg.MaxPeers,
	}
}
