// Package reservation provides ReservationStore implementations for tracking
// upload leases between reserve and confirm.
package reservation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/filedock/filedock"
)

// MemoryStore keeps reservations in process memory behind a mutex.
// Reservations do not survive a restart; an unconfirmed upload must be
// re-reserved.
type MemoryStore struct {
	mu           sync.Mutex
	reservations map[uuid.UUID]filedock.UploadReservation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{reservations: make(map[uuid.UUID]filedock.UploadReservation)}
}

// Create records a reservation. File IDs are generated fresh per reserve, so
// an existing entry for the same ID is a conflict.
func (s *MemoryStore) Create(ctx context.Context, r filedock.UploadReservation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reservations[r.FileID]; exists {
		return fmt.Errorf("create reservation %s: %w", r.FileID, filedock.ErrConflict)
	}

	s.reservations[r.FileID] = r
	return nil
}

// Consume atomically removes and returns the reservation for fileID. A second
// Consume for the same ID returns ErrNotFound, which enforces single use.
func (s *MemoryStore) Consume(ctx context.Context, fileID uuid.UUID) (filedock.UploadReservation, error) {
	if err := ctx.Err(); err != nil {
		return filedock.UploadReservation{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.reservations[fileID]
	if !exists {
		return filedock.UploadReservation{}, fmt.Errorf("consume reservation %s: %w", fileID, filedock.ErrNotFound)
	}

	delete(s.reservations, fileID)
	return r, nil
}

// PruneExpired removes and returns every reservation that expired before now.
func (s *MemoryStore) PruneExpired(ctx context.Context, now time.Time) ([]filedock.UploadReservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	expired := make([]filedock.UploadReservation, 0)
	for id, r := range s.reservations {
		if now.After(r.ExpiresAt) {
			expired = append(expired, r)
			delete(s.reservations, id)
		}
	}

	return expired, nil
}

// Len reports the number of live reservations. Intended for tests and metrics.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reservations)
}
