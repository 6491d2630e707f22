package filedock

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// IsValidFolder validates a logical folder path. The empty string is the root
// folder and is always valid. A non-empty folder:
//   - is relative (does not start or end with "/")
//   - does not contain ".." (path traversal) or "//" (empty segments)
//   - does not contain "." segments
//   - does not contain invalid characters: \ ? # ~
//   - is valid UTF-8 with no control characters or whitespace
func IsValidFolder(folder string) bool {
	if folder == "" {
		return true
	}

	if folder == "." || folder[0] == '/' || strings.HasSuffix(folder, "/") {
		return false
	}

	if strings.Contains(folder, "..") || strings.Contains(folder, "//") {
		return false
	}

	if strings.HasPrefix(folder, "./") || strings.Contains(folder, "/./") || strings.HasSuffix(folder, "/.") {
		return false
	}

	if strings.ContainsAny(folder, `\?#~`) {
		return false
	}

	if !utf8.ValidString(folder) {
		return false
	}

	for _, r := range folder {
		if r < 0x20 || r == 0x7f || unicode.IsSpace(r) {
			return false
		}
	}

	return true
}

// IsValidFileName validates a display file name: non-empty, no path
// separators, no control characters, valid UTF-8.
func IsValidFileName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}

	if strings.ContainsAny(name, `/\?#~`) {
		return false
	}

	if !utf8.ValidString(name) {
		return false
	}

	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			return false
		}
	}

	return true
}

// StorageKey derives the object-store key for an upload. Keys are namespaced
// under the owner (and folder when present) so uploads from different users
// can never collide, and so orphaned objects are attributable by prefix.
func StorageKey(ownerID string, folder string, fileID uuid.UUID, fileName string) string {
	if folder != "" {
		return fmt.Sprintf("%s/%s/%s-%s", ownerID, folder, fileID, fileName)
	}
	return fmt.Sprintf("%s/%s-%s", ownerID, fileID, fileName)
}

// FileIDFromStorageKey extracts the file ID embedded in a storage key. The
// last path segment is "<fileID>-<fileName>" with a fixed-width UUID prefix.
func FileIDFromStorageKey(key string) (uuid.UUID, error) {
	segment := key
	if i := strings.LastIndex(key, "/"); i >= 0 {
		segment = key[i+1:]
	}

	const uuidLen = 36
	if len(segment) < uuidLen+1 || segment[uuidLen] != '-' {
		return uuid.Nil, fmt.Errorf("storage key %q has no file id: %w", key, ErrInvalidInput)
	}

	id, err := uuid.Parse(segment[:uuidLen])
	if err != nil {
		return uuid.Nil, fmt.Errorf("storage key %q has no file id: %w", key, ErrInvalidInput)
	}
	return id, nil
}
