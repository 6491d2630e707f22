package filedock

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role governs which operations a caller may perform.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleEditor, RoleViewer:
		return true
	default:
		return false
	}
}

func ParseRole(s string) (Role, error) {
	role := Role(s)
	if !role.IsValid() {
		return "", fmt.Errorf("invalid role: %s (valid roles: admin, editor, viewer)", s)
	}
	return role, nil
}

// Operation identifies an action checked by the role policy.
type Operation string

const (
	OpListOwn  Operation = "list-own"
	OpListAll  Operation = "list-all"
	OpDownload Operation = "download"
	OpRename   Operation = "rename"
	OpDelete   Operation = "delete"
	OpUpload   Operation = "upload"
)

// Caller is the verified identity of a request. Identity issuance and token
// verification happen upstream; the engine trusts this pair.
type Caller struct {
	ID   string
	Role Role
}

// FileRecord is the metadata entry for one confirmed upload. FileID, OwnerID
// and StorageKey are immutable; FileName and Folder may change via rename.
type FileRecord struct {
	FileID     uuid.UUID `json:"file_id"`
	OwnerID    string    `json:"owner_id"`
	FileName   string    `json:"file_name"`
	FileType   string    `json:"file_type"`
	FileSize   int64     `json:"file_size_bytes"`
	Folder     string    `json:"folder"`
	StorageKey string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	IsDeleted  bool      `json:"-"`
}

// UploadReservation is the ephemeral lease created by Reserve. It is
// single-use: confirming consumes it, and it is never reused across files.
type UploadReservation struct {
	FileID     uuid.UUID
	OwnerID    string
	StorageKey string
	FileName   string
	FileType   string
	FileSize   int64
	Folder     string
	ExpiresAt  time.Time
}

// ListQuery selects a page of non-deleted records.
type ListQuery struct {
	// Folder filters to an exact folder match when non-nil. The empty string
	// is the root folder.
	Folder *string
	Limit  int
	Cursor string
}

type ListResult struct {
	Items      []FileRecord `json:"items"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// ReserveRequest starts a two-phase upload.
type ReserveRequest struct {
	FileName string `json:"file_name"`
	FileSize int64  `json:"file_size_bytes"`
	FileType string `json:"file_type"`
	Folder   string `json:"folder"`
}

// Reservation is returned by Reserve. UploadURL is a time-boxed write handle
// valid only for StorageKey.
type Reservation struct {
	FileID     uuid.UUID `json:"file_id"`
	StorageKey string    `json:"storage_key"`
	UploadURL  string    `json:"upload_url"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// ConfirmRequest completes a two-phase upload after the client has
// transferred bytes to the object store.
type ConfirmRequest struct {
	FileID     uuid.UUID `json:"file_id"`
	StorageKey string    `json:"storage_key"`
	FileName   string    `json:"file_name"`
	FileSize   int64     `json:"file_size_bytes"`
	FileType   string    `json:"file_type"`
	Folder     string    `json:"folder"`
}

// DownloadResult carries a time-boxed read handle for a file's bytes.
type DownloadResult struct {
	DownloadURL string `json:"download_url"`
	FileName    string `json:"file_name"`
	FileType    string `json:"file_type"`
	FileSize    int64  `json:"file_size_bytes"`
}
