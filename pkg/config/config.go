// Package config loads server and client settings through viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"spaceship-netcode/pkg/entity"
	"spaceship-netcode/pkg/physics"
)

// EnvPrefix is prepended to environment overrides, e.g. SPACE_NET_PORT.
const EnvPrefix = "SPACE"

type Config struct {
	Log   LogConfig   `mapstructure:"log"`
	Net   NetConfig   `mapstructure:"net"`
	Game  GameConfig  `mapstructure:"game"`
	Laser LaserConfig `mapstructure:"laser"`
	Ship  ShipConfig  `mapstructure:"ship"`
	World WorldConfig `mapstructure:"world"`
	Stats StatsConfig `mapstructure:"stats"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type NetConfig struct {
	Driver         string        `mapstructure:"driver"` // enet, websocket or memory
	Port           int           `mapstructure:"port"`
	MaxPeers       int           `mapstructure:"maxPeers"`
	Channels       int           `mapstructure:"channels"`
	ConnectTimeout time.Duration `mapstructure:"connectTimeout"`
	WSPath         string        `mapstructure:"wsPath"`
	WSSecret       string        `mapstructure:"wsSecret"`
}

type GameConfig struct {
	TickRate     int           `mapstructure:"tickRate"`
	MaxFrameTime time.Duration `mapstructure:"maxFrameTime"`
	ServerDelta  time.Duration `mapstructure:"serverDelta"`
}

type LaserConfig struct {
	Speed    float32       `mapstructure:"speed"`
	Lifetime time.Duration `mapstructure:"lifetime"`
	Cooldown time.Duration `mapstructure:"cooldown"`
}

type ShipConfig struct {
	CollisionRadius float32 `mapstructure:"collisionRadius"`
}

type WorldConfig struct {
	Seed          uint64  `mapstructure:"seed"`
	NearAsteroids int     `mapstructure:"nearAsteroids"`
	NearSpan      float32 `mapstructure:"nearSpan"`
	FarAsteroids  int     `mapstructure:"farAsteroids"`
	FarSpan       float32 `mapstructure:"farSpan"`
}

type StatsConfig struct {
	// Path of the SQLite file; empty disables stats.
	Path string `mapstructure:"path"`
}

const (
	DriverENet      = "enet"
	DriverWebSocket = "websocket"
	DriverMemory    = "memory"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")

	v.SetDefault("net.driver", DriverENet)
	v.SetDefault("net.port", 1234)
	v.SetDefault("net.maxPeers", 32)
	v.SetDefault("net.channels", 2)
	v.SetDefault("net.connectTimeout", "5s")
	v.SetDefault("net.wsPath", "/ws")
	v.SetDefault("net.wsSecret", "")

	v.SetDefault("game.tickRate", 60)
	v.SetDefault("game.maxFrameTime", "40ms")
	v.SetDefault("game.serverDelta", "200ms")

	v.SetDefault("laser.speed", 20)
	v.SetDefault("laser.lifetime", "3000ms")
	v.SetDefault("laser.cooldown", "100ms")

	v.SetDefault("ship.collisionRadius", 2)

	v.SetDefault("world.seed", 1)
	v.SetDefault("world.nearAsteroids", 100)
	v.SetDefault("world.nearSpan", 20)
	v.SetDefault("world.farAsteroids", 50)
	v.SetDefault("world.farSpan", 80)

	v.SetDefault("stats.path", "")
}

// Load reads configuration from path (any format viper understands, or
// none when path is empty), applies SPACE_* environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Net.Driver {
	case DriverENet, DriverWebSocket, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("net.driver: unknown driver %q", c.Net.Driver))
	}
	if c.Net.Port < 1 || c.Net.Port > 65535 {
		errs = append(errs, fmt.Errorf("net.port: %d out of range", c.Net.Port))
	}
	if c.Net.MaxPeers < 1 {
		errs = append(errs, errors.New("net.maxPeers must be positive"))
	}
	if c.Game.TickRate < 1 {
		errs = append(errs, errors.New("game.tickRate must be positive"))
	}
	if c.Game.ServerDelta <= 0 {
		errs = append(errs, errors.New("game.serverDelta must be positive"))
	}
	return errors.Join(errs...)
}

// Rules converts the gameplay keys into world rules.
func (c *Config) Rules() entity.Rules {
	return entity.Rules{
		LaserSpeed:      c.Laser.Speed,
		LaserLifetime:   c.Laser.Lifetime,
		LaserCooldown:   c.Laser.Cooldown,
		CollisionRadius: c.Ship.CollisionRadius,
		ServerDelta:     c.Game.ServerDelta,
	}
}

// Layout converts the world keys into an asteroid field recipe.
func (c *Config) Layout() physics.Layout {
	return physics.Layout{
		Seed: c.World.Seed,
		Clouds: []physics.Cloud{
			{Count: c.World.NearAsteroids, Span: c.World.NearSpan},
			{Count: c.World.FarAsteroids, Span: c.World.FarSpan},
		},
	}
}

// TickInterval is the duration of one loop iteration.
func (c *Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.Game.TickRate)
}
