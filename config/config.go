package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/cameroncuttingedge/tic_tac_toe_online/websocket"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Rooms     RoomsConfig     `mapstructure:"rooms"`
	Log       LogConfig       `mapstructure:"log"`
	Limits    LimitsConfig    `mapstructure:"limits"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
}

type ServerConfig struct {
	Port      int    `mapstructure:"port" validate:"min=1,max=65535"`
	ClientURL string `mapstructure:"client_url" validate:"required"`
}

type RoomsConfig struct {
	TTL           time.Duration `mapstructure:"ttl" validate:"gt=0"`
	SweepInterval time.Duration `mapstructure:"sweep_interval" validate:"gt=0"`
}

type LogConfig struct {
	Level   string `mapstructure:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Enabled bool   `mapstructure:"enabled"`
	File    string `mapstructure:"file"`
}

type LimitsConfig struct {
	CommandsPerSecond float64 `mapstructure:"commands_per_second" validate:"gt=0"`
	Burst             int     `mapstructure:"burst" validate:"min=1"`
}

type WebSocketConfig struct {
	MaxMessageBytes int64         `mapstructure:"max_message_bytes" validate:"min=64"`
	PongWait        time.Duration `mapstructure:"pong_wait" validate:"gt=0"`
	WriteWait       time.Duration `mapstructure:"write_wait" validate:"gt=0"`
}

// env maps config keys to the plain environment variables the server has
// always honoured.
var env = map[string]string{
	"server.port":                "PORT",
	"server.client_url":          "CLIENT_URL",
	"rooms.ttl":                  "ROOM_TTL",
	"rooms.sweep_interval":       "SWEEP_INTERVAL",
	"log.level":                  "LOG_LEVEL",
	"log.enabled":                "LOGGING",
	"log.file":                   "LOG_FILE",
	"limits.commands_per_second": "COMMANDS_PER_SECOND",
	"limits.burst":               "COMMANDS_BURST",
}

// Load reads defaults, then the optional YAML file at path, then the
// environment. A missing file is not an error.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 3001)
	v.SetDefault("server.client_url", "*")
	v.SetDefault("rooms.ttl", 30*time.Minute)
	v.SetDefault("rooms.sweep_interval", 60*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.enabled", false)
	v.SetDefault("log.file", "tictactoe.log")
	v.SetDefault("limits.commands_per_second", 20)
	v.SetDefault("limits.burst", 40)
	v.SetDefault("websocket.max_message_bytes", 4096)
	v.SetDefault("websocket.pong_wait", 60*time.Second)
	v.SetDefault("websocket.write_wait", 10*time.Second)

	for key, name := range env {
		if err := v.BindEnv(key, name); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", name, err)
		}
	}
	v.SetEnvPrefix("TICTACTOE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

func (c Config) WebSocketOptions() websocket.Options {
	opts := websocket.DefaultOptions()
	opts.AllowedOrigin = c.Server.ClientURL
	opts.MaxMessageBytes = c.WebSocket.MaxMessageBytes
	opts.PongWait = c.WebSocket.PongWait
	opts.WriteWait = c.WebSocket.WriteWait
	opts.CommandsPerSecond = c.Limits.CommandsPerSecond
	opts.Burst = c.Limits.Burst
	return opts
}
