package filedock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultReserveTTL is the lease granted to an upload reservation.
	DefaultReserveTTL = 5 * time.Minute
	// DefaultHandleTTL is the validity window of object-store handles.
	DefaultHandleTTL = 5 * time.Minute
)

// Coordinator orchestrates the two-phase upload protocol: reserve issues a
// lease and a write handle without touching the metadata index; confirm
// consumes the lease and creates the FileRecord. A reservation that expires
// unconfirmed is terminal and never produces a record.
type Coordinator struct {
	repo         FileRepo
	store        ObjectStore
	reservations ReservationStore
	reserveTTL   time.Duration
	handleTTL    time.Duration
	now          func() time.Time
}

// CoordinatorConfig holds tunables for the Coordinator. Zero values fall back
// to the defaults.
type CoordinatorConfig struct {
	ReserveTTL time.Duration
	HandleTTL  time.Duration
	Now        func() time.Time // test hook
}

func NewCoordinator(repo FileRepo, store ObjectStore, reservations ReservationStore, cfg CoordinatorConfig) *Coordinator {
	if cfg.ReserveTTL <= 0 {
		cfg.ReserveTTL = DefaultReserveTTL
	}
	if cfg.HandleTTL <= 0 {
		cfg.HandleTTL = DefaultHandleTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Coordinator{
		repo:         repo,
		store:        store,
		reservations: reservations,
		reserveTTL:   cfg.ReserveTTL,
		handleTTL:    cfg.HandleTTL,
		now:          cfg.Now,
	}
}

// Reserve starts an upload: it generates a fresh file ID, derives a storage
// key namespaced under the caller, records a time-boxed reservation, and
// obtains a write handle from the object store. No FileRecord is created;
// an abandoned reservation costs nothing in the metadata index.
func (c *Coordinator) Reserve(ctx context.Context, caller Caller, req ReserveRequest) (Reservation, error) {
	if err := ctx.Err(); err != nil {
		return Reservation{}, fmt.Errorf("reserve: %w", err)
	}

	if err := Authorize(caller.Role, caller.ID, caller.ID, OpUpload); err != nil {
		return Reservation{}, fmt.Errorf("reserve: %w", err)
	}

	if !IsValidFileName(req.FileName) {
		return Reservation{}, fmt.Errorf("reserve: invalid file name %q: %w", req.FileName, ErrInvalidInput)
	}
	if req.FileSize <= 0 {
		return Reservation{}, fmt.Errorf("reserve: file size must be positive: %w", ErrInvalidInput)
	}
	if req.FileType == "" {
		return Reservation{}, fmt.Errorf("reserve: file type cannot be empty: %w", ErrInvalidInput)
	}
	if !IsValidFolder(req.Folder) {
		return Reservation{}, fmt.Errorf("reserve: invalid folder %q: %w", req.Folder, ErrInvalidInput)
	}

	fileID := uuid.New()
	storageKey := StorageKey(caller.ID, req.Folder, fileID, req.FileName)
	expiresAt := c.now().Add(c.reserveTTL)

	uploadURL, err := c.store.WriteHandle(ctx, storageKey, req.FileType, c.handleTTL)
	if err != nil {
		return Reservation{}, fmt.Errorf("reserve %s: write handle: %w", storageKey, err)
	}

	reservation := UploadReservation{
		FileID:     fileID,
		OwnerID:    caller.ID,
		StorageKey: storageKey,
		FileName:   req.FileName,
		FileType:   req.FileType,
		FileSize:   req.FileSize,
		Folder:     req.Folder,
		ExpiresAt:  expiresAt,
	}

	if err := c.reservations.Create(ctx, reservation); err != nil {
		return Reservation{}, fmt.Errorf("reserve %s: %w", storageKey, err)
	}

	return Reservation{
		FileID:     fileID,
		StorageKey: storageKey,
		UploadURL:  uploadURL,
		ExpiresAt:  expiresAt,
	}, nil
}

// Confirm completes an upload: it consumes the reservation for req.FileID and
// creates the FileRecord. Replays fail with ErrAlreadyConfirmed; leases that
// elapsed fail with ErrReservationExpired and create no record.
//
// Confirm does not verify that bytes exist at the storage key or that they
// match the declared size and type; that trust boundary is delegated to the
// object store's own integrity guarantees.
func (c *Coordinator) Confirm(ctx context.Context, caller Caller, req ConfirmRequest) (FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return FileRecord{}, fmt.Errorf("confirm: %w", err)
	}

	if req.FileID == uuid.Nil {
		return FileRecord{}, fmt.Errorf("confirm: file id cannot be empty: %w", ErrInvalidInput)
	}
	if req.StorageKey == "" {
		return FileRecord{}, fmt.Errorf("confirm: storage key cannot be empty: %w", ErrInvalidInput)
	}

	reservation, err := c.reservations.Consume(ctx, req.FileID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Distinguish a replay from a lapsed lease: a record with this
			// file ID means the first confirm won.
			if _, getErr := c.repo.GetByID(ctx, req.FileID); getErr == nil {
				return FileRecord{}, fmt.Errorf("confirm %s: %w", req.FileID, ErrAlreadyConfirmed)
			}
			return FileRecord{}, fmt.Errorf("confirm %s: %w", req.FileID, ErrReservationExpired)
		}
		return FileRecord{}, fmt.Errorf("confirm %s: %w", req.FileID, err)
	}

	if c.now().After(reservation.ExpiresAt) {
		return FileRecord{}, fmt.Errorf("confirm %s: %w", req.FileID, ErrReservationExpired)
	}

	// Consume is destructive, so a rejected confirm must hand the lease back:
	// the owner can still retry with corrected input inside the window.
	if reservation.OwnerID != caller.ID {
		c.restore(ctx, reservation)
		return FileRecord{}, fmt.Errorf("confirm %s: reservation belongs to another user: %w", req.FileID, ErrForbidden)
	}

	if reservation.StorageKey != req.StorageKey {
		c.restore(ctx, reservation)
		return FileRecord{}, fmt.Errorf("confirm %s: storage key mismatch: %w", req.FileID, ErrInvalidInput)
	}

	now := c.now().UTC()
	record := FileRecord{
		FileID:     reservation.FileID,
		OwnerID:    reservation.OwnerID,
		FileName:   reservation.FileName,
		FileType:   reservation.FileType,
		FileSize:   reservation.FileSize,
		Folder:     reservation.Folder,
		StorageKey: reservation.StorageKey,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := c.repo.Put(ctx, record, false); err != nil {
		if errors.Is(err, ErrConflict) {
			return FileRecord{}, fmt.Errorf("confirm %s: %w", req.FileID, ErrAlreadyConfirmed)
		}
		// The reservation was consumed but the record was not written.
		c.restore(ctx, reservation)
		return FileRecord{}, fmt.Errorf("confirm %s: %w", req.FileID, err)
	}

	return record, nil
}

// restore puts a consumed reservation back after a confirm that did not
// produce a record.
func (c *Coordinator) restore(ctx context.Context, reservation UploadReservation) {
	if err := c.reservations.Create(ctx, reservation); err != nil {
		slog.Warn("failed to restore reservation after rejected confirm", "file_id", reservation.FileID, "err", err)
	}
}

// SweepExpired drops every lapsed reservation and removes the object its
// write handle pointed at, if the client transferred bytes without ever
// confirming. Objects that were never written are skipped silently. Returns
// the number of reservations swept.
func (c *Coordinator) SweepExpired(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("sweep expired: %w", err)
	}

	expired, err := c.reservations.PruneExpired(ctx, c.now())
	if err != nil {
		return 0, fmt.Errorf("sweep expired: %w", err)
	}

	for i, reservation := range expired {
		removeErr := c.store.Remove(ctx, reservation.StorageKey)
		if removeErr != nil && !errors.Is(removeErr, ErrNotFound) {
			return i, fmt.Errorf("sweep expired '%s': %w", reservation.StorageKey, removeErr)
		}
	}

	return len(expired), nil
}
