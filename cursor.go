package filedock

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Cursor is the decoded position of a pagination token. Listings are ordered
// by creation recency (created_at descending, file_id descending as a
// tiebreak); the cursor names the last record of the previous page.
type Cursor struct {
	CreatedAt time.Time
	FileID    uuid.UUID
}

// EncodeCursor encodes a listing position to an opaque base64 token.
func EncodeCursor(createdAt time.Time, fileID uuid.UUID) string {
	data := createdAt.UTC().Format(time.RFC3339Nano) + "|" + fileID.String()
	return base64.URLEncoding.EncodeToString([]byte(data))
}

// DecodeCursor decodes a pagination token back to a listing position.
// An empty token decodes to the zero Cursor, meaning the first page.
func DecodeCursor(cursor string) (Cursor, error) {
	if cursor == "" {
		return Cursor{}, nil
	}

	decoded, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return Cursor{}, fmt.Errorf("decode cursor: invalid encoding: %w", ErrInvalidInput)
	}

	parts := strings.SplitN(string(decoded), "|", 2)
	if len(parts) != 2 {
		return Cursor{}, fmt.Errorf("decode cursor: invalid format: %w", ErrInvalidInput)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return Cursor{}, fmt.Errorf("decode cursor: invalid timestamp: %w", ErrInvalidInput)
	}

	fileID, err := uuid.Parse(parts[1])
	if err != nil {
		return Cursor{}, fmt.Errorf("decode cursor: invalid file id: %w", ErrInvalidInput)
	}

	return Cursor{CreatedAt: createdAt, FileID: fileID}, nil
}
