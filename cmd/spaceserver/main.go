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
	"spaceship-netcode/pkg/stats"
	"spaceship-netcode/pkg/transport"
)

var CLI struct {
	Config   string `help:"Configuration file (yaml, toml or json)." type:"path"`
	LogLevel string `help:"Log level, overrides log.level." name:"log-level"`
	Port     uint16 `help:"Port to listen on, overrides net.port."`
	Driver   string `help:"Transport driver (enet or websocket), overrides net.driver."`
	Wait     bool   `help:"Wait for the 'server <port>' console command instead of listening at startup."`
	Headless bool   `help:"Do not read console commands from stdin."`
}

type app struct {
	cfg      *config.Config
	field    *physics.Field
	store    *stats.Store
	recorder *stats.Recorder
	server   *game.Server
	port     uint16
	console  *console.Console
	quit     context.CancelFunc
}

func main() {
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	log.Logger = log.Output(consoleWriter)
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	kong.Parse(&CLI,
		kong.Name("spaceserver"),
		kong.Description("authoritative server for the space shooter"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true, Summary: true}))

	if err := run(); err != nil {
		log.Error().Err(err).Msg("server failed")
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
	if CLI.Port != 0 {
		cfg.Net.Port = int(CLI.Port)
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

	a := &app{
		cfg:     cfg,
		field:   physics.Generate(cfg.Layout()),
		console: console.New("server"),
		quit:    quit,
	}
	a.console.Out = os.Stdout
	defer a.close()

	if cfg.Stats.Path != "" {
		if a.store, err = stats.Open(cfg.Stats.Path); err != nil {
			return err
		}
		if a.recorder, err = stats.NewRecorder(a.store); err != nil {
			return err
		}
		log.Info().Str("path", cfg.Stats.Path).Int64("run", a.recorder.Run()).Msg("recording stats")
	}

	a.registerCommands()
	if !CLI.Wait {
		if err := a.start(uint16(cfg.Net.Port)); err != nil {
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

func (a *app) start(port uint16) error {
	if a.server != nil {
		return fmt.Errorf("server already running on port %d", a.port)
	}
	driver, err := game.ListenDriver(a.cfg.Net, port)
	if err != nil {
		return err
	}
	host := transport.NewHost(driver, transport.ServerPolicy(a.cfg.Net.MaxPeers))
	a.server = game.NewServer(host, game.ServerOptions{
		Rules:     a.cfg.Rules(),
		Obstacles: a.field,
		Recorder:  a.recorder,
		OnText: func(ship uint32, text string) {
			a.console.Printf("[MESSAGE] ship %d: %s", ship, text)
		},
	})
	a.port = port
	log.Info().Str("driver", a.cfg.Net.Driver).Uint16("port", port).Int("asteroids", len(a.field.Asteroids)).Msg("server listening")
	a.console.Printf("[INFO] server created")
	return nil
}

func (a *app) tick(dt float32) {
	if a.server != nil {
		a.server.Tick(dt)
	}
}

func (a *app) registerCommands() {
	c := a.console
	c.Register("server", func(arg string) error {
		port, err := console.ParsePort(arg)
		if err != nil {
			return err
		}
		return a.start(port)
	})
	c.Register("msg", func(arg string) error {
		if a.server == nil {
			return errors.New("no server running")
		}
		a.server.Say(arg)
		c.Printf("[MESSAGE] you: %s", arg)
		return nil
	})
	c.Register("stats", func(string) error {
		if a.recorder == nil {
			return errors.New("stats are disabled, set stats.path")
		}
		board, err := a.store.Leaderboard(a.recorder.Run(), 10)
		if err != nil {
			return err
		}
		c.Printf("ship  kills  deaths  shots")
		for _, p := range board {
			c.Printf("%4d  %5d  %6d  %5d", p.Ship, p.Kills, p.Deaths, p.Shots)
		}
		return nil
	})
	c.Register("invite", func(arg string) error {
		if a.server == nil {
			return errors.New("no server running")
		}
		host := strings.TrimSpace(arg)
		if host == "" {
			var err error
			if host, err = os.Hostname(); err != nil {
				return err
			}
		}
		invite := fmt.Sprintf("client %s %d", host, a.port)
		lines, err := console.QRLines(invite)
		if err != nil {
			return err
		}
		for _, l := range lines {
			fmt.Fprintln(os.Stdout, l)
		}
		c.Printf("[INFO] %s", invite)
		return nil
	})
	c.Register("status", func(string) error {
		if a.server == nil {
			c.Printf("[INFO] idle")
			return nil
		}
		w := a.server.World()
		c.Printf("[INFO] port %d, %d players, %d ships, %d lasers", a.port, a.server.Players(), w.Ships.Len(), w.Lasers.Len())
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
	if a.server != nil {
		if err := a.server.Close(); err != nil {
			log.Warn().Err(err).Msg("close transport")
		}
	}
	if a.recorder != nil {
		a.recorder.Close()
		if n := a.recorder.Dropped(); n > 0 {
			log.Warn().Int("events", n).Msg("stats queue overflowed")
		}
	}
	if a.store != nil {
		a.store.Close()
	}
}
