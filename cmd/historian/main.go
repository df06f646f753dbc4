// cmd/historian/main.go pops match actions from the Redis queue and archives
// them to PostgreSQL.
package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jason-s-yu/dominoes/internal/cache"
	"github.com/jason-s-yu/dominoes/internal/database"
	"github.com/jason-s-yu/dominoes/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := historian.Config{
		Queue:      getEnv("HISTORIAN_QUEUE_NAME", cache.DefaultQueueName),
		BatchSize:  getEnvInt("HISTORIAN_BATCH_SIZE", 20),
		FlushDelay: time.Duration(getEnvInt("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,
		Inactivity: time.Duration(getEnvInt("GAME_INACTIVITY_TIMEOUT_SEC", 600)) * time.Second,
	}
	redisAddr := getEnv("REDIS_ADDR", "localhost:6379")
	dbURL := database.URLFromEnv()
	migrate := true

	cmd := &cobra.Command{
		Use:          "dominoes-historian",
		Short:        "Archive match actions from Redis into PostgreSQL",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger := logrus.New()
			logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
			if lvl, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
				logger.SetLevel(lvl)
			}

			pool, err := database.Connect(ctx, dbURL)
			if err != nil {
				return err
			}
			defer pool.Close()
			if migrate {
				if err := database.Migrate(ctx, pool); err != nil {
					return err
				}
			}

			rdb, err := cache.Connect(ctx, redisAddr, 0)
			if err != nil {
				return err
			}
			defer rdb.Close()

			logger.WithFields(logrus.Fields{
				"queue":      cfg.Queue,
				"batch_size": cfg.BatchSize,
				"flush":      cfg.FlushDelay,
				"inactivity": cfg.Inactivity,
			}).Info("dominoes-historian started")
			err = historian.NewService(rdb, database.NewActionStore(pool), cfg, logger).Run(ctx)
			logger.Info("dominoes-historian shut down")
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&redisAddr, "redis", redisAddr, "Redis address (env: REDIS_ADDR)")
	f.StringVar(&dbURL, "database-url", dbURL, "PostgreSQL connection string (env: DATABASE_URL)")
	f.StringVar(&cfg.Queue, "queue", cfg.Queue, "Redis list to drain (env: HISTORIAN_QUEUE_NAME)")
	f.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "Actions per database transaction (env: HISTORIAN_BATCH_SIZE)")
	f.DurationVar(&cfg.FlushDelay, "flush", cfg.FlushDelay, "Maximum delay before a partial batch is written (env: HISTORIAN_FLUSH_MS)")
	f.DurationVar(&cfg.Inactivity, "inactivity", cfg.Inactivity, "Idle time before a match is marked abandoned (env: GAME_INACTIVITY_TIMEOUT_SEC)")
	f.BoolVar(&migrate, "migrate", migrate, "Create tables on startup")
	return cmd
}

func getEnv(key, defVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defVal
}

func getEnvInt(key string, defVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defVal
	}
	return i
}
