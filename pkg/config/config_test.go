package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spaceship-netcode/pkg/entity"
	"spaceship-netcode/pkg/physics"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, DriverENet, cfg.Net.Driver)
	assert.Equal(t, 1234, cfg.Net.Port)
	assert.Equal(t, 32, cfg.Net.MaxPeers)
	assert.Equal(t, 2, cfg.Net.Channels)
	assert.Equal(t, 5*time.Second, cfg.Net.ConnectTimeout)
	assert.Equal(t, "/ws", cfg.Net.WSPath)
	assert.Equal(t, 60, cfg.Game.TickRate)
	assert.Equal(t, 40*time.Millisecond, cfg.Game.MaxFrameTime)
	assert.Equal(t, "", cfg.Stats.Path)

	assert.Equal(t, entity.DefaultRules(), cfg.Rules())
	assert.Equal(t, physics.DefaultLayout(), cfg.Layout())
	assert.Equal(t, time.Second/60, cfg.TickInterval())
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "space.yaml")
	body := `
net:
  driver: websocket
  port: 4321
  wsSecret: hunter2
laser:
  cooldown: 250ms
game:
  serverDelta: 100ms
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DriverWebSocket, cfg.Net.Driver)
	assert.Equal(t, 4321, cfg.Net.Port)
	assert.Equal(t, "hunter2", cfg.Net.WSSecret)
	assert.Equal(t, 250*time.Millisecond, cfg.Rules().LaserCooldown)
	assert.Equal(t, 100*time.Millisecond, cfg.Rules().ServerDelta)
	// untouched keys keep defaults
	assert.Equal(t, float32(20), cfg.Laser.Speed)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SPACE_NET_PORT", "5555")
	t.Setenv("SPACE_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 5555, cfg.Net.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/space.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "space.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"net": {"driver": "carrier-pigeon", "port": 70000}}`), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "net.driver")
	assert.Contains(t, err.Error(), "net.port")
}
