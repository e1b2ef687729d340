package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joonho/earnquant/internal/api"
	"github.com/joonho/earnquant/internal/api/handlers"
	"github.com/joonho/earnquant/internal/marketdata"
	"github.com/joonho/earnquant/pkg/config"
	"github.com/joonho/earnquant/pkg/database"
	"github.com/joonho/earnquant/pkg/logger"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Starts the REST API server.

Endpoints:
  GET  /health                        - Health check
  POST /api/backtest/run              - Run a backtest
  GET  /api/backtest/runs/{id}        - Run header
  GET  /api/backtest/runs/{id}/trades - Trade ledger
  GET  /api/backtest/runs/{id}/nav    - NAV series
  GET  /ws/backtest/progress          - Progress stream (websocket)

Example:
  go run ./cmd/earnquant api
  go run ./cmd/earnquant api --port 8080`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (default from PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== earnquant API Server ===")

	strategy, err := loadStrategy()
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if apiPort != "" {
		cfg.Port = apiPort
	}

	log := logger.New(cfg)

	log.WithFields(map[string]interface{}{
		"port": cfg.Port,
		"env":  cfg.Env,
	}).Info("Initializing API server")

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	log.Info("Connected to database")

	backtestHandler := handlers.NewBacktestHandler(
		strategy,
		marketdata.NewBarRepository(db.Pool),
		marketdata.NewMarketRepository(db.Pool),
		marketdata.NewSignalRepository(db.Pool),
		marketdata.NewRunRepository(db.Pool),
		log,
	)

	router := api.NewRouter(backtestHandler, log)
	server := api.New(cfg, log, router)

	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
