package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/remote-agent-terminal/ttyclient/internal/bridge"
	"github.com/remote-agent-terminal/ttyclient/internal/config"
	"github.com/remote-agent-terminal/ttyclient/internal/db"
	"github.com/remote-agent-terminal/ttyclient/internal/journal"
	"github.com/remote-agent-terminal/ttyclient/internal/logging"
	"github.com/remote-agent-terminal/ttyclient/internal/protocol"
	"github.com/remote-agent-terminal/ttyclient/internal/recorder"
	"github.com/remote-agent-terminal/ttyclient/internal/repository"
	"github.com/remote-agent-terminal/ttyclient/internal/session"
	"github.com/remote-agent-terminal/ttyclient/internal/terminal"
	"github.com/remote-agent-terminal/ttyclient/internal/ws"
)

func connectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connect [url]",
		Short: "Connect to a terminal page",
		Long: `Connect to the terminal served at url, for example
http://localhost:8080/terminal/abc?cmd=bash. The websocket endpoint is the
page path plus /ws and the query string is passed to the server as the
session arguments.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if err := cmd.Flags().Set("url", args[0]); err != nil {
					return err
				}
			}

			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			return runConnect(cmd.Context(), cfg)
		},
	}

	config.RegisterFlags(cmd.Flags())

	return cmd
}

func runConnect(ctx context.Context, cfg *config.Config) error {
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Close()

	page, err := cfg.PageURL()
	if err != nil {
		return err
	}
	endpoint, arguments, err := protocol.Endpoint(page)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	term := terminal.NewLocal(os.Stdin, os.Stdout)
	defer term.Close()
	term.Start(ctx)

	var sink bridge.Sink = term
	var adapterOpts []bridge.Option
	if cfg.Record != "" {
		rec, err := recorder.Open(cfg.Record, page.String())
		if err != nil {
			return err
		}
		defer func() {
			if err := rec.Err(); err != nil {
				log.Warn("recording stopped early", logging.Err(err))
			}
			if err := rec.Close(); err != nil {
				log.Warn("failed to finish recording", logging.Err(err))
			}
		}()
		sink = recorder.Sink(term, rec)
		adapterOpts = append(adapterOpts, bridge.WithEventTap(rec.Observe))
	}

	opts := []session.Option{session.WithLogger(log)}
	if cfg.Journal != "" {
		database, err := db.Open(cfg.Journal)
		if err != nil {
			return err
		}
		defer database.Close()

		j := journal.New(repository.NewAttemptRepository(database),
			journal.WithPreview(term.PreviewLine),
			journal.WithLogger(log),
		)
		defer j.Close()
		opts = append(opts, session.WithObserver(j))
	}

	dialer := ws.NewDialer(cfg.HandshakeTimeout)
	dialer.SetHeader("Origin", page.Scheme+"://"+page.Host)

	ctrl := session.NewController(session.Config{
		URL:               endpoint.String(),
		Arguments:         arguments,
		AuthToken:         cfg.AuthToken,
		HeartbeatInterval: cfg.HeartbeatInterval,
	}, session.NewWebSocketDialer(dialer), sink, bridge.NewAdapter(term, adapterOpts...), opts...)

	log.Info("connecting", logging.Field{Key: "url", Value: endpoint.String()})
	err = ctrl.Run(ctx)

	// Leave the shell prompt on a fresh line once raw mode is gone.
	term.Close()
	fmt.Fprintln(os.Stdout)
	return err
}

func newLogger(cfg *config.Config) (logging.Logger, error) {
	if cfg.LogFile != "" {
		return logging.NewFile(cfg.LogFile, cfg.Level())
	}
	return logging.New(os.Stderr, cfg.Level()), nil
}
