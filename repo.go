package filedock

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// FileRepo defines the interface for the metadata index. Implementations must
// handle concurrent access safely: rename and soft delete on the same record
// must be serialized per record (single conditional update or equivalent) so
// that racing writers never produce a state mixing both.
//
// All methods accept a context for cancellation and timeout control.
type FileRepo interface {
	// Put inserts a FileRecord keyed by FileID. When overwrite is false and a
	// record with the same FileID already exists, it returns ErrConflict.
	Put(ctx context.Context, record FileRecord, overwrite bool) error

	// GetByID retrieves a record by file ID. Soft-deleted records are
	// reported as ErrNotFound.
	GetByID(ctx context.Context, fileID uuid.UUID) (FileRecord, error)

	// ListByOwner returns non-deleted records owned by ownerID, newest first,
	// optionally filtered to an exact folder. The cursor in the result
	// round-trips: resuming with it yields the next page with no duplicates
	// or gaps absent concurrent writes.
	ListByOwner(ctx context.Context, ownerID string, q ListQuery) (ListResult, error)

	// ListByFolder returns non-deleted records in exactly folder, any owner,
	// newest first. Used only for admin/editor-scope listing.
	ListByFolder(ctx context.Context, folder string, q ListQuery) (ListResult, error)

	// SoftDelete marks a record deleted and bumps updated_at. Deleting an
	// already-deleted record is a no-op returning nil; an unknown file ID
	// returns ErrNotFound.
	SoftDelete(ctx context.Context, fileID uuid.UUID) error

	// Rename updates the file name and, when newFolder is non-nil, the
	// folder, bumping updated_at, in one atomic update: there is no window
	// where the record is listed under both old and new folder, or neither.
	// Returns the updated record, or ErrNotFound for unknown or deleted IDs.
	Rename(ctx context.Context, fileID uuid.UUID, newName string, newFolder *string) (FileRecord, error)
}

// ObjectStore issues time-boxed handles for direct byte transfer. The engine
// never moves bytes itself; clients use the returned URLs against the store.
// No guarantee is made that a write handle was ever used.
type ObjectStore interface {
	// WriteHandle returns a URL permitting one client to upload bytes to
	// exactly key, with the given content type, until ttl elapses.
	WriteHandle(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)

	// ReadHandle returns a URL permitting download of the bytes at key until
	// ttl elapses.
	ReadHandle(ctx context.Context, key string, ttl time.Duration) (string, error)

	// Remove deletes the bytes at key. Returns ErrNotFound if nothing is
	// stored there. Used by the expired-reservation sweep.
	Remove(ctx context.Context, key string) error
}

// BlobInfo describes a stored object.
type BlobInfo struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// BlobLister is implemented by object stores that can enumerate their keys.
// The orphan sweep uses it to find objects with no confirmed metadata record.
type BlobLister interface {
	ListBlobs(ctx context.Context) ([]BlobInfo, error)
}

// ReservationStore tracks upload reservations between reserve and confirm.
// Reservations are ephemeral leases, not durable metadata.
type ReservationStore interface {
	// Create records a new reservation. File IDs are freshly generated per
	// reserve call, so collisions indicate a bug and return ErrConflict.
	Create(ctx context.Context, r UploadReservation) error

	// Consume atomically retrieves and removes the reservation for fileID,
	// enforcing single use. Returns ErrNotFound when no reservation exists.
	Consume(ctx context.Context, fileID uuid.UUID) (UploadReservation, error)

	// PruneExpired removes and returns every reservation whose lease elapsed
	// before now.
	PruneExpired(ctx context.Context, now time.Time) ([]UploadReservation, error)
}

// SecretStore resolves signing credentials by access key.
type SecretStore interface {
	// Lookup returns the secret key for accessKey, or an error wrapping
	// ErrUnauthorized when the key is unknown.
	Lookup(accessKey string) (string, error)
}
