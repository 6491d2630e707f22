package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/filedock/filedock"
	"github.com/filedock/filedock/config"
	"github.com/filedock/filedock/database"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove orphaned objects from storage",
	Long: `Scan the object store for orphaned objects and remove them.

An object is orphaned when no live metadata record references its key:
either its upload reservation expired unconfirmed, or its record was
deleted. Objects younger than the grace period are left alone so that
in-flight uploads are never swept.`,
	RunE: runSweep,
}

var sweepGraceSeconds int

func init() {
	sweepCmd.Flags().IntVar(&sweepGraceSeconds, "grace", 3600, "minimum object age in seconds before it can be swept")
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	repo, closeDB, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer closeDB()

	store, _, closeStore, err := buildObjectStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build object store: %w", err)
	}
	defer closeStore()

	lister, ok := store.(filedock.BlobLister)
	if !ok {
		return fmt.Errorf("storage backend %s cannot enumerate objects", cfg.Storage.Backend)
	}

	grace := time.Duration(sweepGraceSeconds) * time.Second
	cutoff := time.Now().Add(-grace)

	slog.Info("starting sweep", "grace", grace)

	blobs, err := lister.ListBlobs(ctx)
	if err != nil {
		return fmt.Errorf("list blobs: %w", err)
	}

	var swept, kept, skipped int
	for _, blob := range blobs {
		if blob.ModTime.After(cutoff) {
			skipped++
			continue
		}

		fileID, err := filedock.FileIDFromStorageKey(blob.Key)
		if err != nil {
			slog.Warn("unrecognized storage key", "key", blob.Key)
			skipped++
			continue
		}

		record, err := repo.GetByID(ctx, fileID)
		switch {
		case err == nil && record.StorageKey == blob.Key:
			kept++
			continue
		case err != nil && !errors.Is(err, filedock.ErrNotFound):
			return fmt.Errorf("check record %s: %w", fileID, err)
		}

		if err := store.Remove(ctx, blob.Key); err != nil && !errors.Is(err, filedock.ErrNotFound) {
			return fmt.Errorf("remove %s: %w", blob.Key, err)
		}
		slog.Debug("removed orphaned object", "key", blob.Key)
		swept++
	}

	slog.Info("sweep complete", "swept", swept, "kept", kept, "skipped", skipped)
	return nil
}
