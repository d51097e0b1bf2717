package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"spaceship-netcode/pkg/config"
	"spaceship-netcode/pkg/console"
	"spaceship-netcode/pkg/game"
	"spaceship-netcode/pkg/physics"
	"spaceship-netcode/pkg/transport"
)

var CLI struct {
	Config   string `help:"Configuration file (yaml, toml or json)." type:"path"`
	LogLevel string `help:"Log level, overrides log.level." name:"log-level"`
	Driver   string `help:"Transport driver (enet, websocket or memory), overrides net.driver."`
	Connect  string `help:"Server to join at startup, as host:port." placeholder:"HOST:PORT"`
	Keys     string `help:"Keys held from the start, e.g. \"w space\"."`
	Headless bool   `help:"Do not read console commands from stdin."`
}

type app struct {
	cfg     *config.Config
	client  *game.Client
	local   *game.Server
	console *console.Console
	quit    context.CancelFunc
}

func main() {
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	log.Logger = log.Output(consoleWriter)
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	kong.Parse(&CLI,
		kong.Name("spaceclient"),
		kong.Description("headless client for the space shooter"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true, Summary: true}))

	if err := run(); err != nil {
		log.Error().Err(err).Msg("client failed")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return err
	}
	if CLI.LogLevel != "" {
		cfg.Log.Level = CLI.LogLevel
	}
	if CLI.Driver != "" {
		cfg.Net.Driver = CLI.Driver
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	zerolog.SetGlobalLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, quit := context.WithCancel(ctx)
	defer quit()

	a := &app{cfg: cfg, console: console.New("client"), quit: quit}
	a.console.Out = os.Stdout
	defer a.close()

	// The memory driver has no sockets, so the client brings its own server.
	if cfg.Net.Driver == config.DriverMemory {
		if err := a.startLocal(); err != nil {
			return err
		}
	}

	driver, err := game.DialDriver(cfg.Net)
	if err != nil {
		return err
	}
	host := transport.NewHost(driver, transport.ClientPolicy())
	host.ConnectTimeout = cfg.Net.ConnectTimeout
	a.client = game.NewClient(host, game.ClientOptions{
		ServerDelta: cfg.Game.ServerDelta,
		OnText: func(text string) {
			a.console.Printf("[MESSAGE] %s", text)
		},
		OnDisconnect: func() {
			a.console.Printf("[INFO] server disconnected")
		},
	})

	if CLI.Keys != "" {
		keys, err := game.ParseKeys(CLI.Keys)
		if err != nil {
			return err
		}
		a.client.SetKeys(keys)
	}

	a.registerCommands()
	if CLI.Connect != "" {
		if err := a.console.Execute("client " + CLI.Connect); err != nil {
			return err
		}
	}

	loop := &game.Loop{
		Interval: cfg.TickInterval(),
		MaxFrame: cfg.Game.MaxFrameTime,
		Tick:     a.tick,
		Exec:     func(line string) { a.console.Execute(line) },
	}
	if !CLI.Headless {
		loop.Lines = console.Lines(ctx, os.Stdin)
	}

	err = loop.Run(ctx)
	log.Info().Msg("shutting down")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *app) startLocal() error {
	driver, err := game.ListenDriver(a.cfg.Net, uint16(a.cfg.Net.Port))
	if err != nil {
		return err
	}
	host := transport.NewHost(driver, transport.ServerPolicy(a.cfg.Net.MaxPeers))
	a.local = game.NewServer(host, game.ServerOptions{
		Rules:     a.cfg.Rules(),
		Obstacles: physics.Generate(a.cfg.Layout()),
	})
	log.Info().Int("port", a.cfg.Net.Port).Msg("local server started")
	return nil
}

func (a *app) tick(dt float32) {
	if a.local != nil {
		a.local.Tick(dt)
	}
	a.client.Tick(dt)
}

func (a *app) registerCommands() {
	c := a.console
	c.Register("client", func(arg string) error {
		host, port, err := console.ParseEndpoint(arg)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Net.ConnectTimeout)
		defer cancel()
		if err := a.client.Connect(ctx, host, port); err != nil {
			return err
		}
		c.Printf("[INFO] client created, waiting for server...")
		return nil
	})
	c.Register("msg", func(arg string) error {
		if err := a.client.Say(arg); err != nil {
			return err
		}
		c.Printf("[MESSAGE] you: %s", arg)
		return nil
	})
	c.Register("keys", func(arg string) error {
		keys, err := game.ParseKeys(arg)
		if err != nil {
			return err
		}
		a.client.SetKeys(keys)
		return nil
	})
	c.Register("status", func(string) error {
		m := a.client.Mirror()
		ship, ok := m.Controlled()
		if !ok {
			c.Printf("[INFO] connected=%t, %d ships, %d lasers", a.client.Connected(), m.Ships.Len(), m.Lasers.Len())
			return nil
		}
		c.Printf("[INFO] ship %d at %.1f %.1f %.1f, %d ships, %d lasers",
			ship.ID, ship.Position[0], ship.Position[1], ship.Position[2], m.Ships.Len(), m.Lasers.Len())
		return nil
	})
	c.Register("disconnect", func(string) error {
		if !a.client.Connected() {
			return game.ErrNotConnected
		}
		a.client.Disconnect()
		return nil
	})
	c.Register("help", func(string) error {
		c.Printf("commands: %s", strings.Join(c.Commands(), ", "))
		return nil
	})
	c.Register("quit", func(string) error {
		a.quit()
		return nil
	})
}

func (a *app) close() {
	if a.client != nil {
		if err := a.client.Close(); err != nil {
			log.Warn().Err(err).Msg("close transport")
		}
	}
	if a.local != nil {
		if err := a.local.Close(); err != nil {
			log.Warn().Err(err).Msg("close local server")
		}
	}
}
