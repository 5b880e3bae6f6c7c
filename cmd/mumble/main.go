// Copyright (C) 2026 The gomumble Authors. All Rights Reserved.

// Program mumble is a command-line client for Mumble voice chat servers.
package main

import (
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/creachadair/command"
	"github.com/creachadair/flax"
	"github.com/gomumble/mumble"
	"github.com/gomumble/mumble/internal/config"
	"github.com/gomumble/mumble/internal/logging"
	"github.com/gomumble/mumble/internal/promexp"
	"github.com/gomumble/mumble/message"
	"github.com/gomumble/mumble/state"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var flags struct {
	Server      string `flag:"server,Server address (host or host:port)"`
	User        string `flag:"user,User name"`
	Password    string `flag:"password,Server or account password"`
	Insecure    bool   `flag:"insecure,Do not verify the server certificate"`
	Config      string `flag:"config,Configuration file (YAML)"`
	LogLevel    string `flag:"log-level,Log level (debug, info, warn, error)"`
	MetricsAddr string `flag:"metrics-addr,Serve Prometheus metrics at this address"`
}

func main() {
	root := &command.C{
		Name: filepath.Base(os.Args[0]),
		Help: `A command-line client for Mumble voice chat servers.

Settings are read from the file named by --config, then from MUMBLE_*
environment variables (for example MUMBLE_SERVER), then from flags.`,
		SetFlags: func(_ *command.Env, fs *flag.FlagSet) { flax.MustBind(fs, &flags) },
		Commands: []*command.C{
			{
				Name: "tree",
				Help: "Print the channel tree of the server with its users.",
				Run: func(env *command.Env) error {
					return withClient(env, func(ctx context.Context, c *mumble.Client, _ zerolog.Logger) error {
						printTree(os.Stdout, c.Channels(), c.Users())
						return nil
					})
				},
			},
			{
				Name:  "say",
				Usage: "<channel> <text>...",
				Help:  "Send a text message to the members of a channel.",
				Run: func(env *command.Env) error {
					if len(env.Args) < 2 {
						return env.Usagef("Missing channel or message text")
					}
					return withClient(env, func(ctx context.Context, c *mumble.Client, _ zerolog.Logger) error {
						ch, err := c.Channels().ByName(env.Args[0])
						if err != nil {
							return err
						}
						return c.SendTextMessage(ctx, strings.Join(env.Args[1:], " "), mumble.ToChannel(ch.ID))
					})
				},
			},
			{
				Name:  "move",
				Usage: "<user> <channel>",
				Help:  "Move a user into a channel, and wait for the server to confirm.",
				Run: func(env *command.Env) error {
					if len(env.Args) != 2 {
						return env.Usagef("Wrong number of arguments")
					}
					return withClient(env, func(ctx context.Context, c *mumble.Client, log zerolog.Logger) error {
						u, err := c.Users().ByName(env.Args[0])
						if err != nil {
							return err
						}
						ch, err := c.Channels().ByName(env.Args[1])
						if err != nil {
							return err
						}
						if _, err := c.MoveUser(ctx, u.Session, ch.ID); err != nil {
							return err
						}
						log.Info().Str("user", u.Name).Str("channel", ch.Name).Msg("moved")
						return nil
					})
				},
			},
			{
				Name: "watch",
				Help: "Log every message received from the server until interrupted.",
				Run: func(env *command.Env) error {
					return withClient(env, func(ctx context.Context, c *mumble.Client, log zerolog.Logger) error {
						c.OnMessage(func(m message.Message) {
							log.Info().Stringer("message", mumble.MessageInfo{Message: m}).Msg("received")
						})
						select {
						case <-ctx.Done():
							return nil
						case <-c.Done():
							return c.Err()
						}
					})
				},
			},
			command.VersionCommand(),
			command.HelpCommand(nil),
		},
	}
	command.RunOrFail(root.NewEnv(nil).MergeFlags(true), os.Args[1:])
}

// withClient loads the configuration, connects to the server, and calls run
// with the connected client. The client is disconnected when run returns or
// the process is interrupted.
func withClient(env *command.Env, run func(context.Context, *mumble.Client, zerolog.Logger) error) error {
	boot := logging.New(flags.LogLevel, nil)
	cfg, err := config.Load(boot, flags.Config)
	if err != nil {
		return err
	}
	cfg.UpdateFrom(config.Config{
		Server:      flags.Server,
		Username:    flags.User,
		Password:    flags.Password,
		Insecure:    flags.Insecure,
		LogLevel:    flags.LogLevel,
		MetricsAddr: flags.MetricsAddr,
	})
	log := logging.New(cfg.LogLevel, nil)

	host, port, err := cfg.HostPort()
	if err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	c := mumble.NewClient(host, port).
		SetLogger(log).
		SetTLSConfig(&tls.Config{InsecureSkipVerify: cfg.Insecure}).
		SetRequestTimeout(cfg.RequestTimeout).
		LogMessages(func(mi mumble.MessageInfo) { log.Trace().Stringer("message", mi).Msg("exchange") })
	if cfg.MessageRate > 0 {
		c.SetMessageRate(rate.Limit(cfg.MessageRate), 1)
	}

	if cfg.MetricsAddr != "" {
		stop, err := serveMetrics(cfg.MetricsAddr, c, log)
		if err != nil {
			return err
		}
		defer stop()
	}

	if err := c.Connect(ctx, cfg.Username, cfg.Password); err != nil {
		return fmt.Errorf("connect to %s:%d: %w", host, port, err)
	}
	defer c.Disconnect()
	return run(ctx, c, log)
}

// serveMetrics starts an HTTP server exporting the client metrics at addr.
// The returned function stops the server.
func serveMetrics(addr string, c *mumble.Client, log zerolog.Logger) (func(), error) {
	h, err := promexp.Handler(promexp.New("mumble", c.Metrics(), "requests_pending"))
	if err != nil {
		return nil, err
	}
	lst, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{Handler: mux}
	go func() {
		if err := srv.Serve(lst); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
	log.Info().Str("addr", lst.Addr().String()).Msg("serving metrics")
	return func() { srv.Close() }, nil
}

// printTree writes the channel tree rooted at the root channel to w, with the
// users in each channel listed beneath it.
func printTree(w io.Writer, chans *state.Channels, users *state.Users) {
	root, ok := chans.Get(state.RootID)
	if !ok {
		fmt.Fprintln(w, "(no channels)")
		return
	}
	var walk func(ch state.Channel, depth int)
	walk = func(ch state.Channel, depth int) {
		indent := strings.Repeat("  ", depth)
		fmt.Fprintf(w, "%s%s\n", indent, ch.Name)
		for _, u := range users.InChannel(ch.ID) {
			fmt.Fprintf(w, "%s  - %s%s\n", indent, u.Name, userFlags(u))
		}
		for _, sub := range chans.Children(ch.ID) {
			walk(sub, depth+1)
		}
	}
	walk(root, 0)
}

func userFlags(u state.User) string {
	var fs []string
	if u.Mute || u.SelfMute {
		fs = append(fs, "muted")
	}
	if u.Deaf || u.SelfDeaf {
		fs = append(fs, "deafened")
	}
	if u.Recording {
		fs = append(fs, "recording")
	}
	if len(fs) == 0 {
		return ""
	}
	return " [" + strings.Join(fs, ", ") + "]"
}
