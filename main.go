package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cameroncuttingedge/tic_tac_toe_online/api"
	"github.com/cameroncuttingedge/tic_tac_toe_online/config"
	"github.com/cameroncuttingedge/tic_tac_toe_online/gateway"
	"github.com/cameroncuttingedge/tic_tac_toe_online/room"
	"github.com/cameroncuttingedge/tic_tac_toe_online/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var configFile string

var rootCmd = &cobra.Command{
	Use:   "tictactoe",
	Short: "Realtime two-player tic-tac-toe server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		InitializeLogger(cfg.Log)
		return run(cmd.Context(), cfg)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.Flags().StringVar(&configFile, "config", "", "optional YAML config file")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("Server exited")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	log.Info().Msg("Starting App")

	registry := room.NewRegistry(room.WithLogger(log.Logger.With().Str("component", "rooms").Logger()))
	hub := websocket.NewHub(cfg.WebSocketOptions(), log.Logger.With().Str("component", "websocket").Logger())
	gw := gateway.New(registry, hub, log.Logger.With().Str("component", "gateway").Logger())

	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: api.NewRouter(api.Deps{
			Registry:      registry,
			Hub:           hub,
			Dispatcher:    gw,
			AllowedOrigin: cfg.Server.ClientURL,
			Logger:        log.Logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sweepCtx, cancelSweep := context.WithCancel(ctx)
	defer cancelSweep()
	go registry.Run(sweepCtx, cfg.Rooms.SweepInterval, cfg.Rooms.TTL)

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server started")
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Shutdown does not touch hijacked websocket connections.
	hub.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Int("rooms", registry.Len()).Msg("Server stopped")
	return nil
}

func InitializeLogger(cfg config.LogConfig) {
	if !cfg.Enabled {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		runLogFile, err := os.OpenFile(
			cfg.File,
			os.O_APPEND|os.O_CREATE|os.O_WRONLY,
			0664,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open log file")
		}
		multi := zerolog.MultiLevelWriter(runLogFile, os.Stdout)
		log.Logger = zerolog.New(multi).With().Timestamp().Logger()
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
