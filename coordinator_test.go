package filedock_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/filedock/filedock"
	reservationmem "github.com/filedock/filedock/reservation"
)

func NewTestCoordinator(t *testing.T, now time.Time) (*filedock.Coordinator, *SpyFileRepo, *SpyObjectStore, *SpyReservationStore) {
	t.Helper()
	spyRepo := new(SpyFileRepo)
	spyStore := new(SpyObjectStore)
	spyReservations := new(SpyReservationStore)
	c := filedock.NewCoordinator(spyRepo, spyStore, spyReservations, filedock.CoordinatorConfig{
		ReserveTTL: 5 * time.Minute,
		HandleTTL:  5 * time.Minute,
		Now:        func() time.Time { return now },
	})
	return c, spyRepo, spyStore, spyReservations
}

func testReservation(ownerID string, expiresAt time.Time) filedock.UploadReservation {
	fileID := uuid.New()
	return filedock.UploadReservation{
		FileID:     fileID,
		OwnerID:    ownerID,
		StorageKey: filedock.StorageKey(ownerID, "docs", fileID, "report.pdf"),
		FileName:   "report.pdf",
		FileType:   "application/pdf",
		FileSize:   1024,
		Folder:     "docs",
		ExpiresAt:  expiresAt,
	}
}

func TestCoordinatorReserve(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)

	t.Run("success", func(t *testing.T) {
		coordinator, _, store, reservations := NewTestCoordinator(t, now)
		caller := filedock.Caller{ID: "user-1", Role: filedock.RoleViewer}

		req := filedock.ReserveRequest{
			FileName: "report.pdf",
			FileSize: 1024,
			FileType: "application/pdf",
			Folder:   "docs",
		}

		keyMatch := mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, "user-1/docs/") && strings.HasSuffix(key, "-report.pdf")
		})
		store.On("WriteHandle", ctx, keyMatch, "application/pdf", 5*time.Minute).Return("https://store/signed-put", nil)
		reservations.On("Create", ctx, mock.MatchedBy(func(r filedock.UploadReservation) bool {
			return r.OwnerID == "user-1" && r.FileName == "report.pdf" && r.ExpiresAt.Equal(now.Add(5*time.Minute))
		})).Return(nil)

		got, err := coordinator.Reserve(ctx, caller, req)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, got.FileID)
		assert.Equal(t, "https://store/signed-put", got.UploadURL)
		assert.True(t, got.ExpiresAt.Equal(now.Add(5*time.Minute)))
		assert.Contains(t, got.StorageKey, got.FileID.String())

		store.AssertExpectations(t)
		reservations.AssertExpectations(t)
	})

	t.Run("fresh file id per reserve", func(t *testing.T) {
		coordinator, _, store, reservations := NewTestCoordinator(t, now)
		caller := filedock.Caller{ID: "user-1", Role: filedock.RoleEditor}

		req := filedock.ReserveRequest{FileName: "a.txt", FileSize: 1, FileType: "text/plain"}

		store.On("WriteHandle", ctx, mock.Anything, "text/plain", 5*time.Minute).Return("https://store/signed", nil)
		reservations.On("Create", ctx, mock.Anything).Return(nil)

		first, err := coordinator.Reserve(ctx, caller, req)
		require.NoError(t, err)
		second, err := coordinator.Reserve(ctx, caller, req)
		require.NoError(t, err)

		assert.NotEqual(t, first.FileID, second.FileID)
		assert.NotEqual(t, first.StorageKey, second.StorageKey)
	})

	t.Run("validation failures", func(t *testing.T) {
		tests := []struct {
			name string
			req  filedock.ReserveRequest
		}{
			{"empty file name", filedock.ReserveRequest{FileSize: 1, FileType: "text/plain"}},
			{"file name with slash", filedock.ReserveRequest{FileName: "a/b", FileSize: 1, FileType: "text/plain"}},
			{"zero size", filedock.ReserveRequest{FileName: "a.txt", FileSize: 0, FileType: "text/plain"}},
			{"negative size", filedock.ReserveRequest{FileName: "a.txt", FileSize: -5, FileType: "text/plain"}},
			{"empty type", filedock.ReserveRequest{FileName: "a.txt", FileSize: 1}},
			{"traversal folder", filedock.ReserveRequest{FileName: "a.txt", FileSize: 1, FileType: "text/plain", Folder: "../x"}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				coordinator, _, store, reservations := NewTestCoordinator(t, now)
				caller := filedock.Caller{ID: "user-1", Role: filedock.RoleViewer}

				_, err := coordinator.Reserve(ctx, caller, tt.req)
				assert.ErrorIs(t, err, filedock.ErrInvalidInput)

				store.AssertNotCalled(t, "WriteHandle")
				reservations.AssertNotCalled(t, "Create")
			})
		}
	})

	t.Run("write handle failure propagates", func(t *testing.T) {
		coordinator, _, store, reservations := NewTestCoordinator(t, now)
		caller := filedock.Caller{ID: "user-1", Role: filedock.RoleViewer}

		req := filedock.ReserveRequest{FileName: "a.txt", FileSize: 1, FileType: "text/plain"}
		store.On("WriteHandle", ctx, mock.Anything, "text/plain", 5*time.Minute).
			Return("", filedock.ErrUnavailable)

		_, err := coordinator.Reserve(ctx, caller, req)
		assert.ErrorIs(t, err, filedock.ErrUnavailable)

		reservations.AssertNotCalled(t, "Create")
	})
}

func TestCoordinatorConfirm(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)

	t.Run("success creates record", func(t *testing.T) {
		coordinator, repo, _, reservations := NewTestCoordinator(t, now)
		caller := filedock.Caller{ID: "user-1", Role: filedock.RoleViewer}
		reservation := testReservation("user-1", now.Add(time.Minute))

		reservations.On("Consume", ctx, reservation.FileID).Return(reservation, nil)
		repo.On("Put", ctx, mock.MatchedBy(func(r filedock.FileRecord) bool {
			return r.FileID == reservation.FileID &&
				r.OwnerID == "user-1" &&
				r.StorageKey == reservation.StorageKey &&
				!r.IsDeleted &&
				r.CreatedAt.Equal(r.UpdatedAt)
		}), false).Return(nil)

		record, err := coordinator.Confirm(ctx, caller, filedock.ConfirmRequest{
			FileID:     reservation.FileID,
			StorageKey: reservation.StorageKey,
		})
		require.NoError(t, err)
		assert.Equal(t, reservation.FileID, record.FileID)
		assert.Equal(t, reservation.FileName, record.FileName)

		repo.AssertExpectations(t)
		reservations.AssertExpectations(t)
	})

	t.Run("expired lease", func(t *testing.T) {
		coordinator, repo, _, reservations := NewTestCoordinator(t, now)
		caller := filedock.Caller{ID: "user-1", Role: filedock.RoleViewer}
		reservation := testReservation("user-1", now.Add(-time.Second))

		reservations.On("Consume", ctx, reservation.FileID).Return(reservation, nil)

		_, err := coordinator.Confirm(ctx, caller, filedock.ConfirmRequest{
			FileID:     reservation.FileID,
			StorageKey: reservation.StorageKey,
		})
		assert.ErrorIs(t, err, filedock.ErrReservationExpired)

		repo.AssertNotCalled(t, "Put")
	})

	t.Run("missing reservation with existing record is a replay", func(t *testing.T) {
		coordinator, repo, _, reservations := NewTestCoordinator(t, now)
		caller := filedock.Caller{ID: "user-1", Role: filedock.RoleViewer}
		fileID := uuid.New()

		reservations.On("Consume", ctx, fileID).Return(filedock.UploadReservation{}, filedock.ErrNotFound)
		repo.On("GetByID", ctx, fileID).Return(testRecord("user-1"), nil)

		_, err := coordinator.Confirm(ctx, caller, filedock.ConfirmRequest{
			FileID:     fileID,
			StorageKey: "user-1/whatever",
		})
		assert.ErrorIs(t, err, filedock.ErrAlreadyConfirmed)
	})

	t.Run("missing reservation without record is expired", func(t *testing.T) {
		coordinator, repo, _, reservations := NewTestCoordinator(t, now)
		caller := filedock.Caller{ID: "user-1", Role: filedock.RoleViewer}
		fileID := uuid.New()

		reservations.On("Consume", ctx, fileID).Return(filedock.UploadReservation{}, filedock.ErrNotFound)
		repo.On("GetByID", ctx, fileID).Return(filedock.FileRecord{}, filedock.ErrNotFound)

		_, err := coordinator.Confirm(ctx, caller, filedock.ConfirmRequest{
			FileID:     fileID,
			StorageKey: "user-1/whatever",
		})
		assert.ErrorIs(t, err, filedock.ErrReservationExpired)
	})

	t.Run("foreign reservation denied and lease restored", func(t *testing.T) {
		coordinator, repo, _, reservations := NewTestCoordinator(t, now)
		caller := filedock.Caller{ID: "user-2", Role: filedock.RoleViewer}
		reservation := testReservation("user-1", now.Add(time.Minute))

		reservations.On("Consume", ctx, reservation.FileID).Return(reservation, nil)
		reservations.On("Create", ctx, reservation).Return(nil)

		_, err := coordinator.Confirm(ctx, caller, filedock.ConfirmRequest{
			FileID:     reservation.FileID,
			StorageKey: reservation.StorageKey,
		})
		assert.ErrorIs(t, err, filedock.ErrForbidden)

		repo.AssertNotCalled(t, "Put")
		reservations.AssertExpectations(t)
	})

	t.Run("storage key mismatch rejected and lease restored", func(t *testing.T) {
		coordinator, repo, _, reservations := NewTestCoordinator(t, now)
		caller := filedock.Caller{ID: "user-1", Role: filedock.RoleViewer}
		reservation := testReservation("user-1", now.Add(time.Minute))

		reservations.On("Consume", ctx, reservation.FileID).Return(reservation, nil)
		reservations.On("Create", ctx, reservation).Return(nil)

		_, err := coordinator.Confirm(ctx, caller, filedock.ConfirmRequest{
			FileID:     reservation.FileID,
			StorageKey: "user-1/forged-key",
		})
		assert.ErrorIs(t, err, filedock.ErrInvalidInput)

		repo.AssertNotCalled(t, "Put")
		reservations.AssertExpectations(t)
	})

	t.Run("corrected retry after a mistyped key succeeds", func(t *testing.T) {
		// A real store shows the full cycle: the mismatch hands the lease
		// back, so the retry with the right key still finds it live.
		repo := new(SpyFileRepo)
		store := reservationmem.NewMemoryStore()
		coordinator := filedock.NewCoordinator(repo, new(SpyObjectStore), store, filedock.CoordinatorConfig{
			ReserveTTL: 5 * time.Minute,
			HandleTTL:  5 * time.Minute,
			Now:        func() time.Time { return now },
		})

		caller := filedock.Caller{ID: "user-1", Role: filedock.RoleViewer}
		reservation := testReservation("user-1", now.Add(time.Minute))
		require.NoError(t, store.Create(ctx, reservation))

		_, err := coordinator.Confirm(ctx, caller, filedock.ConfirmRequest{
			FileID:     reservation.FileID,
			StorageKey: "user-1/wrong-key",
		})
		assert.ErrorIs(t, err, filedock.ErrInvalidInput)

		repo.On("Put", ctx, mock.Anything, false).Return(nil)

		record, err := coordinator.Confirm(ctx, caller, filedock.ConfirmRequest{
			FileID:     reservation.FileID,
			StorageKey: reservation.StorageKey,
		})
		require.NoError(t, err)
		assert.Equal(t, reservation.FileID, record.FileID)

		repo.AssertExpectations(t)
	})

	t.Run("put conflict is a replay", func(t *testing.T) {
		coordinator, repo, _, reservations := NewTestCoordinator(t, now)
		caller := filedock.Caller{ID: "user-1", Role: filedock.RoleViewer}
		reservation := testReservation("user-1", now.Add(time.Minute))

		reservations.On("Consume", ctx, reservation.FileID).Return(reservation, nil)
		repo.On("Put", ctx, mock.Anything, false).Return(filedock.ErrConflict)

		_, err := coordinator.Confirm(ctx, caller, filedock.ConfirmRequest{
			FileID:     reservation.FileID,
			StorageKey: reservation.StorageKey,
		})
		assert.ErrorIs(t, err, filedock.ErrAlreadyConfirmed)
	})

	t.Run("put failure restores reservation", func(t *testing.T) {
		coordinator, repo, _, reservations := NewTestCoordinator(t, now)
		caller := filedock.Caller{ID: "user-1", Role: filedock.RoleViewer}
		reservation := testReservation("user-1", now.Add(time.Minute))

		putErr := errors.New("connection reset")
		reservations.On("Consume", ctx, reservation.FileID).Return(reservation, nil)
		repo.On("Put", ctx, mock.Anything, false).Return(putErr)
		reservations.On("Create", ctx, reservation).Return(nil)

		_, err := coordinator.Confirm(ctx, caller, filedock.ConfirmRequest{
			FileID:     reservation.FileID,
			StorageKey: reservation.StorageKey,
		})
		assert.ErrorIs(t, err, putErr)

		reservations.AssertExpectations(t)
	})

	t.Run("missing fields rejected", func(t *testing.T) {
		coordinator, _, _, reservations := NewTestCoordinator(t, now)
		caller := filedock.Caller{ID: "user-1", Role: filedock.RoleViewer}

		_, err := coordinator.Confirm(ctx, caller, filedock.ConfirmRequest{StorageKey: "user-1/a"})
		assert.ErrorIs(t, err, filedock.ErrInvalidInput)

		_, err = coordinator.Confirm(ctx, caller, filedock.ConfirmRequest{FileID: uuid.New()})
		assert.ErrorIs(t, err, filedock.ErrInvalidInput)

		reservations.AssertNotCalled(t, "Consume")
	})
}

func TestCoordinatorSweepExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)

	t.Run("removes objects for expired reservations", func(t *testing.T) {
		coordinator, _, store, reservations := NewTestCoordinator(t, now)

		first := testReservation("user-1", now.Add(-time.Hour))
		second := testReservation("user-2", now.Add(-time.Minute))

		reservations.On("PruneExpired", ctx, now).Return([]filedock.UploadReservation{first, second}, nil)
		store.On("Remove", ctx, first.StorageKey).Return(nil)
		store.On("Remove", ctx, second.StorageKey).Return(filedock.ErrNotFound)

		swept, err := coordinator.SweepExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, swept)

		store.AssertExpectations(t)
	})

	t.Run("nothing expired", func(t *testing.T) {
		coordinator, _, store, reservations := NewTestCoordinator(t, now)

		reservations.On("PruneExpired", ctx, now).Return([]filedock.UploadReservation{}, nil)

		swept, err := coordinator.SweepExpired(ctx)
		require.NoError(t, err)
		assert.Zero(t, swept)

		store.AssertNotCalled(t, "Remove")
	})

	t.Run("remove failure aborts", func(t *testing.T) {
		coordinator, _, store, reservations := NewTestCoordinator(t, now)

		expired := testReservation("user-1", now.Add(-time.Hour))
		reservations.On("PruneExpired", ctx, now).Return([]filedock.UploadReservation{expired}, nil)
		store.On("Remove", ctx, expired.StorageKey).Return(filedock.ErrUnavailable)

		_, err := coordinator.SweepExpired(ctx)
		assert.ErrorIs(t, err, filedock.ErrUnavailable)
	})
}
