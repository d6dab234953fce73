// Command fintrack-devserver serves an in-memory finance service for local
// development.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"fintrack/internal/cli"
	"fintrack/internal/core"
	"fintrack/internal/fakeapi"
	"fintrack/internal/log"
)

// seedFile is one entry of the -seed document. Records use the service's JSON shapes.
type seedFile struct {
	UserID       string             `json:"user_id"`
	Transactions []core.Transaction `json:"transactions"`
	Assets       []core.Asset       `json:"assets"`
	Liabilities  []core.Liability   `json:"liabilities"`
}

func loadSeed(api *fakeapi.Server, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read seed file: %w", err)
	}
	var seeds []seedFile
	if err := json.Unmarshal(data, &seeds); err != nil {
		return 0, fmt.Errorf("decode seed file: %w", err)
	}
	for _, s := range seeds {
		if s.UserID == "" {
			return 0, errors.New("seed entry without user_id")
		}
		api.Seed(s.UserID, s.Transactions, s.Assets, s.Liabilities)
	}
	return api.Len(), nil
}

func main() {
	requireAuth := flag.Bool("require-auth", false, "Reject /api requests without a token issued by GET /users/{id}.")
	seed := flag.String("seed", "", "JSON file with an array of {user_id, transactions, assets, liabilities}.")
	rateLimit := flag.Int("rate-limit", 0, "Requests per minute allowed per caller on /api; 0 disables.")
	flag.Parse()

	cli.LoadEnvFile()
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.SetupLogger(os.Stdout, "info", "").Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat).WithComponent(log.ComponentDevServer)

	opts := []fakeapi.Option{fakeapi.WithLogger(logger)}
	if *requireAuth {
		opts = append(opts, fakeapi.RequireAuth())
	}
	if *rateLimit > 0 {
		opts = append(opts, fakeapi.WithRateLimit(*rateLimit, time.Minute))
	}
	api := fakeapi.New(opts...)
	defer api.Close()

	if *seed != "" {
		n, err := loadSeed(api, *seed)
		if err != nil {
			logger.Error("Failed to seed dev server", log.FieldError, err)
			os.Exit(1)
		}
		logger.Info("Seeded dev server", log.FieldCount, n)
	}

	srv := &http.Server{
		Addr:           ":" + cfg.DevServerPort,
		Handler:        api,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16, // 64KB
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	go func() {
		logger.Info("Starting dev server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", log.FieldError, err)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
}
