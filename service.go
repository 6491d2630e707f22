package filedock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Service serves authorized listings, downloads, renames, and soft deletes by
// composing the role policy with the metadata index and the object store. All
// durable state lives in the repo; Service itself holds no mutable state and
// is safe for concurrent use.
type Service struct {
	repo      FileRepo
	store     ObjectStore
	handleTTL time.Duration
}

// ServiceConfig holds configuration options for Service.
type ServiceConfig struct {
	HandleTTL time.Duration // validity of issued read handles (default 5m)
}

func NewService(repo FileRepo, store ObjectStore, cfg ServiceConfig) *Service {
	if cfg.HandleTTL <= 0 {
		cfg.HandleTTL = DefaultHandleTTL
	}
	return &Service{repo: repo, store: store, handleTTL: cfg.HandleTTL}
}

// List returns a page of visible files. Admin and editor callers list by
// folder across all owners; viewers list their own files, optionally filtered
// by folder. Authorization is structural: the index choice itself enforces
// the visibility boundary, so no separate policy gate is needed here.
func (s *Service) List(ctx context.Context, caller Caller, q ListQuery) (ListResult, error) {
	if err := ctx.Err(); err != nil {
		return ListResult{}, fmt.Errorf("list files: %w", err)
	}

	if q.Folder != nil && !IsValidFolder(*q.Folder) {
		return ListResult{}, fmt.Errorf("list files: invalid folder %q: %w", *q.Folder, ErrInvalidInput)
	}

	if q.Limit < 1 {
		return ListResult{}, fmt.Errorf("list files: limit must be positive: %w", ErrInvalidInput)
	}

	if caller.Role == RoleAdmin || caller.Role == RoleEditor {
		folder := ""
		if q.Folder != nil {
			folder = *q.Folder
		}
		result, err := s.repo.ListByFolder(ctx, folder, q)
		if err != nil {
			return ListResult{}, fmt.Errorf("list files: %w", err)
		}
		return result, nil
	}

	result, err := s.repo.ListByOwner(ctx, caller.ID, q)
	if err != nil {
		return ListResult{}, fmt.Errorf("list files: %w", err)
	}
	return result, nil
}

// Download resolves a file and returns a time-boxed read handle for its
// bytes. Existence is checked before ownership: an unknown or soft-deleted
// file is ErrNotFound regardless of caller, and ErrForbidden is only returned
// for files that exist.
func (s *Service) Download(ctx context.Context, caller Caller, fileID uuid.UUID) (DownloadResult, error) {
	if err := ctx.Err(); err != nil {
		return DownloadResult{}, fmt.Errorf("download %s: %w", fileID, err)
	}

	record, err := s.repo.GetByID(ctx, fileID)
	if err != nil {
		return DownloadResult{}, fmt.Errorf("download %s: %w", fileID, err)
	}

	if err := Authorize(caller.Role, record.OwnerID, caller.ID, OpDownload); err != nil {
		return DownloadResult{}, fmt.Errorf("download %s: %w", fileID, err)
	}

	downloadURL, err := s.store.ReadHandle(ctx, record.StorageKey, s.handleTTL)
	if err != nil {
		return DownloadResult{}, fmt.Errorf("download %s: read handle: %w", fileID, err)
	}

	return DownloadResult{
		DownloadURL: downloadURL,
		FileName:    record.FileName,
		FileType:    record.FileType,
		FileSize:    record.FileSize,
	}, nil
}

// Rename updates a file's display name and optionally moves it to another
// folder. Viewers are denied even on their own files.
func (s *Service) Rename(ctx context.Context, caller Caller, fileID uuid.UUID, newName string, newFolder *string) (FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return FileRecord{}, fmt.Errorf("rename %s: %w", fileID, err)
	}

	if !IsValidFileName(newName) {
		return FileRecord{}, fmt.Errorf("rename %s: invalid file name %q: %w", fileID, newName, ErrInvalidInput)
	}
	if newFolder != nil && !IsValidFolder(*newFolder) {
		return FileRecord{}, fmt.Errorf("rename %s: invalid folder %q: %w", fileID, *newFolder, ErrInvalidInput)
	}

	record, err := s.repo.GetByID(ctx, fileID)
	if err != nil {
		return FileRecord{}, fmt.Errorf("rename %s: %w", fileID, err)
	}

	if err := Authorize(caller.Role, record.OwnerID, caller.ID, OpRename); err != nil {
		return FileRecord{}, fmt.Errorf("rename %s: %w", fileID, err)
	}

	updated, err := s.repo.Rename(ctx, fileID, newName, newFolder)
	if err != nil {
		return FileRecord{}, fmt.Errorf("rename %s: %w", fileID, err)
	}

	return updated, nil
}

// Delete soft-deletes a file: the record is marked invisible but never
// removed by this engine. Viewers are denied even on their own files.
func (s *Service) Delete(ctx context.Context, caller Caller, fileID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete %s: %w", fileID, err)
	}

	record, err := s.repo.GetByID(ctx, fileID)
	if err != nil {
		return fmt.Errorf("delete %s: %w", fileID, err)
	}

	if err := Authorize(caller.Role, record.OwnerID, caller.ID, OpDelete); err != nil {
		return fmt.Errorf("delete %s: %w", fileID, err)
	}

	if err := s.repo.SoftDelete(ctx, fileID); err != nil {
		// A concurrent delete already won; deletion is idempotent.
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return fmt.Errorf("delete %s: %w", fileID, err)
	}

	return nil
}
