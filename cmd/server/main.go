// cmd/server/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/dominoes/internal/cache"
	"github.com/jason-s-yu/dominoes/internal/config"
	"github.com/jason-s-yu/dominoes/internal/handlers"
	"github.com/jason-s-yu/dominoes/internal/lobby"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config.FromEnv()

	cmd := &cobra.Command{
		Use:   "dominoes-server",
		Short: "Multiplayer dominoes lobby and match server",
		Long: `dominoes-server hosts dominoes lobbies over framed TCP and WebSocket.

Settings come from the environment (a .env file is loaded if present) and can
be overridden with flags.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.ServerName, "name", cfg.ServerName, "Server name shown to clients (env: SERVER_NAME)")
	f.StringVar(&cfg.TCPAddr, "tcp", cfg.TCPAddr, "Framed TCP listen address, empty to disable (env: TCP_ADDR)")
	f.StringVar(&cfg.HTTPAddr, "http", cfg.HTTPAddr, "HTTP/WebSocket listen address, empty to disable (env: HTTP_ADDR)")
	f.IntVar(&cfg.MaxPlayersPerLobby, "max-players", cfg.MaxPlayersPerLobby, "Maximum seats per lobby (env: MAX_PLAYERS_PER_LOBBY)")
	f.IntVar(&cfg.MaxLobbies, "max-lobbies", cfg.MaxLobbies, "Maximum concurrent lobbies (env: MAX_LOBBIES)")
	f.StringVar(&cfg.DefaultDifficulty, "difficulty", cfg.DefaultDifficulty, "Default difficulty: easy, normal, hard (env: DEFAULT_DIFFICULTY)")
	f.DurationVar(&cfg.TurnTimeout, "turn-timeout", cfg.TurnTimeout, "Auto-pass after this long, 0 disables (env: TURN_TIMEOUT_SEC)")
	f.StringVar(&cfg.RedisAddr, "redis", cfg.RedisAddr, "Redis address for the match journal, empty to disable (env: REDIS_ADDR)")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (env: LOG_LEVEL)")
	return cmd
}

func run(ctx context.Context, cfg config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := cfg.NewLogger()
	g, gctx := errgroup.WithContext(ctx)

	var journal lobby.Journal = lobby.NopJournal{}
	if cfg.RedisAddr != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisAddr, 0)
		if err != nil {
			return err
		}
		defer rdb.Close()
		j := cache.NewJournal(cache.NewPublisher(rdb, cfg.RedisQueue), 1024, logger)
		g.Go(func() error { return j.Run(gctx) })
		journal = j
		logger.WithField("redis", cfg.RedisAddr).Info("match journal enabled")
	}

	dir := lobby.NewDirectory(lobby.Options{
		ServerName:         cfg.ServerName,
		MaxLobbies:         cfg.MaxLobbies,
		MaxPlayersPerLobby: cfg.MaxPlayersPerLobby,
		DefaultDifficulty:  cfg.Difficulty(),
		TurnTimeout:        cfg.TurnTimeout,
	}, journal, logger)

	srv := handlers.NewServer(dir, handlers.Options{
		MaxFrameSize:      cfg.MaxFrameSize,
		SendBuffer:        cfg.SendBuffer,
		WriteTimeout:      cfg.WriteTimeout,
		MessagesPerSecond: cfg.MessagesPerSecond,
		MessageBurst:      cfg.MessageBurst,
	}, logger)

	logger.WithFields(logrus.Fields{
		"name":        cfg.ServerName,
		"tcp":         cfg.TCPAddr,
		"http":        cfg.HTTPAddr,
		"max_lobbies": cfg.MaxLobbies,
		"max_players": cfg.MaxPlayersPerLobby,
		"difficulty":  cfg.DefaultDifficulty,
	}).Info("starting dominoes server")

	g.Go(func() error { return srv.Run(gctx, cfg.TCPAddr, cfg.HTTPAddr) })
	err := g.Wait()
	logger.Info("server stopped")
	return err
}
