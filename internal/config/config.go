// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jason-s-yu/dominoes/internal/domino"
	"github.com/jason-s-yu/dominoes/internal/protocol"
	"github.com/sirupsen/logrus"
)

// Config holds everything the server binary needs. Values come from
// DefaultConfig, then the environment (FromEnv), then command-line flags.
type Config struct {
	ServerName string
	TCPAddr    string // empty disables the framed TCP listener
	HTTPAddr   string // empty disables /ws, /healthz and /lobbies

	MaxPlayersPerLobby int
	MaxLobbies         int
	DefaultDifficulty  string
	TurnTimeout        time.Duration

	MaxFrameSize      int
	SendBuffer        int
	WriteTimeout      time.Duration
	MessagesPerSecond float64
	MessageBurst      int

	// RedisAddr enables the match journal when set.
	RedisAddr  string
	RedisQueue string

	LogLevel string
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		ServerName:         "dominoes",
		TCPAddr:            ":5555",
		HTTPAddr:           ":8080",
		MaxPlayersPerLobby: 4,
		MaxLobbies:         4,
		DefaultDifficulty:  string(domino.Normal),
		MaxFrameSize:       protocol.DefaultMaxFrameSize,
		SendBuffer:         64,
		WriteTimeout:       10 * time.Second,
		MessagesPerSecond:  20,
		MessageBurst:       40,
		RedisQueue:         "dominoes_actions",
		LogLevel:           "info",
	}
}

// FromEnv overlays environment variables onto DefaultConfig.
//   - SERVER_NAME, TCP_ADDR, HTTP_ADDR
//   - MAX_PLAYERS_PER_LOBBY, MAX_LOBBIES, DEFAULT_DIFFICULTY, TURN_TIMEOUT_SEC
//   - MAX_FRAME_SIZE, SEND_BUFFER, WRITE_TIMEOUT_SEC, MESSAGES_PER_SECOND, MESSAGE_BURST
//   - REDIS_ADDR, HISTORIAN_QUEUE_NAME, LOG_LEVEL
func FromEnv() Config {
	def := DefaultConfig()
	return Config{
		ServerName:         getEnv("SERVER_NAME", def.ServerName),
		TCPAddr:            getEnv("TCP_ADDR", def.TCPAddr),
		HTTPAddr:           getEnv("HTTP_ADDR", def.HTTPAddr),
		MaxPlayersPerLobby: getEnvInt("MAX_PLAYERS_PER_LOBBY", def.MaxPlayersPerLobby),
		MaxLobbies:         getEnvInt("MAX_LOBBIES", def.MaxLobbies),
		DefaultDifficulty:  getEnv("DEFAULT_DIFFICULTY", def.DefaultDifficulty),
		TurnTimeout:        time.Duration(getEnvInt("TURN_TIMEOUT_SEC", 0)) * time.Second,
		MaxFrameSize:       getEnvInt("MAX_FRAME_SIZE", def.MaxFrameSize),
		SendBuffer:         getEnvInt("SEND_BUFFER", def.SendBuffer),
		WriteTimeout:       time.Duration(getEnvInt("WRITE_TIMEOUT_SEC", int(def.WriteTimeout/time.Second))) * time.Second,
		MessagesPerSecond:  getEnvFloat("MESSAGES_PER_SECOND", def.MessagesPerSecond),
		MessageBurst:       getEnvInt("MESSAGE_BURST", def.MessageBurst),
		RedisAddr:          getEnv("REDIS_ADDR", def.RedisAddr),
		RedisQueue:         getEnv("HISTORIAN_QUEUE_NAME", def.RedisQueue),
		LogLevel:           getEnv("LOG_LEVEL", def.LogLevel),
	}
}

// Validate reports the first setting the server cannot run with.
func (c Config) Validate() error {
	if c.TCPAddr == "" && c.HTTPAddr == "" {
		return fmt.Errorf("at least one of tcp and http listeners must be enabled")
	}
	if c.MaxPlayersPerLobby < 2 || c.MaxPlayersPerLobby > domino.MaxSeats {
		return fmt.Errorf("max players per lobby must be between 2 and %d, got %d", domino.MaxSeats, c.MaxPlayersPerLobby)
	}
	if c.MaxLobbies < 1 {
		return fmt.Errorf("max lobbies must be at least 1, got %d", c.MaxLobbies)
	}
	if _, err := domino.ParseDifficulty(c.DefaultDifficulty); err != nil {
		return fmt.Errorf("default difficulty: %w", err)
	}
	if c.TurnTimeout < 0 {
		return fmt.Errorf("turn timeout must not be negative")
	}
	if c.MaxFrameSize <= 0 {
		return fmt.Errorf("max frame size must be positive, got %d", c.MaxFrameSize)
	}
	if c.SendBuffer <= 0 {
		return fmt.Errorf("send buffer must be positive, got %d", c.SendBuffer)
	}
	if c.MessagesPerSecond <= 0 || c.MessageBurst <= 0 {
		return fmt.Errorf("message rate and burst must be positive")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	return nil
}

// Difficulty is DefaultDifficulty parsed; call Validate first.
func (c Config) Difficulty() domino.Difficulty {
	d, err := domino.ParseDifficulty(c.DefaultDifficulty)
	if err != nil {
		return domino.Normal
	}
	return d
}

// NewLogger builds the process logger at the configured level.
func (c Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if lvl, err := logrus.ParseLevel(c.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}
	return logger
}

// getEnv retrieves an environment variable's value or returns a default.
func getEnv(key, defVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defVal
}

// getEnvInt retrieves an integer value from an environment variable or returns a default value.
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

func getEnvFloat(key string, defVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defVal
	}
	return f
}
