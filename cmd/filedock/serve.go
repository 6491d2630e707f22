package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/filedock/filedock"
	"github.com/filedock/filedock/config"
	"github.com/filedock/filedock/database"
	filedockhttp "github.com/filedock/filedock/http"
	"github.com/filedock/filedock/keybackend"
	"github.com/filedock/filedock/reservation"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Start the filedock HTTP server.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 5810, "HTTP server port")
	serveCmd.Flags().String("base-url", "", "externally reachable base URL for presigned blob URLs")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	repo, closeDB, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer closeDB()
	slog.Info("connected to database", "type", cfg.Database.Type)

	store, blobs, closeStore, err := buildObjectStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build object store: %w", err)
	}
	defer closeStore()
	slog.Info("object store ready", "backend", cfg.Storage.Backend)

	reservations := reservation.NewMemoryStore()

	coordinator := filedock.NewCoordinator(repo, store, reservations, filedock.CoordinatorConfig{
		ReserveTTL: time.Duration(cfg.Engine.ReserveTTL) * time.Second,
		HandleTTL:  time.Duration(cfg.Engine.HandleTTL) * time.Second,
	})

	service := filedock.NewService(repo, store, filedock.ServiceConfig{
		HandleTTL: time.Duration(cfg.Engine.HandleTTL) * time.Second,
	})

	handlerConfig := filedockhttp.HandlerConfig{
		CORS: cfg.CORS,
	}

	if blobs != nil {
		secretStore, err := keybackend.Load(cfg.Auth.Keys)
		if err != nil {
			return fmt.Errorf("load access keys: %w", err)
		}
		handlerConfig.Blobs = blobs
		handlerConfig.BlobVerifier = filedock.NewSignatureVerifier(cfg.Auth.Region, cfg.Auth.Service, secretStore)
	}

	handler := filedockhttp.NewHandler(&handlerConfig, coordinator, service)

	if cfg.Engine.SweepInterval > 0 {
		go runSweepLoop(ctx, coordinator, time.Duration(cfg.Engine.SweepInterval)*time.Second)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)

	server := &http.Server{
		Addr:         addr,
		Handler:      handler.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "err", err)
		}
		cancel()
	}()

	slog.Info("starting server", "addr", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// runSweepLoop periodically reclaims expired upload reservations and their
// orphaned objects.
func runSweepLoop(ctx context.Context, coordinator *filedock.Coordinator, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			swept, err := coordinator.SweepExpired(ctx)
			if err != nil {
				slog.Error("reservation sweep failed", "err", err)
				continue
			}
			if swept > 0 {
				slog.Info("swept expired reservations", "count", swept)
			}
		}
	}
}
