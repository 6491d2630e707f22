package filedock_test

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filedock/filedock"
)

func TestIsValidFolder(t *testing.T) {
	tests := []struct {
		name   string
		folder string
		want   bool
	}{
		{"root folder", "", true},
		{"simple", "photos", true},
		{"nested", "photos/2025/summer", true},
		{"unicode", "фотографии", true},
		{"leading slash", "/photos", false},
		{"trailing slash", "photos/", false},
		{"traversal", "../etc", false},
		{"inner traversal", "photos/../etc", false},
		{"double slash", "photos//2025", false},
		{"dot", ".", false},
		{"dot segment", "photos/./2025", false},
		{"backslash", `photos\2025`, false},
		{"question mark", "photos?", false},
		{"hash", "photos#1", false},
		{"tilde", "~photos", false},
		{"space", "my photos", false},
		{"control char", "photos\x01", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, filedock.IsValidFolder(tt.folder))
		})
	}
}

func TestIsValidFileName(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		want     bool
	}{
		{"simple", "report.pdf", true},
		{"spaces allowed", "annual report.pdf", true},
		{"unicode", "отчёт.pdf", true},
		{"empty", "", false},
		{"dot", ".", false},
		{"dot dot", "..", false},
		{"slash", "a/b.txt", false},
		{"backslash", `a\b.txt`, false},
		{"control char", "a\x00b", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, filedock.IsValidFileName(tt.fileName))
		})
	}
}

func TestStorageKey(t *testing.T) {
	fileID := uuid.New()

	t.Run("with folder", func(t *testing.T) {
		key := filedock.StorageKey("user-1", "photos/2025", fileID, "cat.jpg")
		assert.Equal(t, fmt.Sprintf("user-1/photos/2025/%s-cat.jpg", fileID), key)
	})

	t.Run("root folder", func(t *testing.T) {
		key := filedock.StorageKey("user-1", "", fileID, "cat.jpg")
		assert.Equal(t, fmt.Sprintf("user-1/%s-cat.jpg", fileID), key)
	})
}

func TestFileIDFromStorageKey(t *testing.T) {
	fileID := uuid.New()

	t.Run("round trip with folder", func(t *testing.T) {
		key := filedock.StorageKey("user-1", "docs", fileID, "a.txt")
		got, err := filedock.FileIDFromStorageKey(key)
		require.NoError(t, err)
		assert.Equal(t, fileID, got)
	})

	t.Run("round trip without folder", func(t *testing.T) {
		key := filedock.StorageKey("user-1", "", fileID, "a.txt")
		got, err := filedock.FileIDFromStorageKey(key)
		require.NoError(t, err)
		assert.Equal(t, fileID, got)
	})

	t.Run("no uuid segment", func(t *testing.T) {
		_, err := filedock.FileIDFromStorageKey("user-1/just-a-file.txt")
		assert.ErrorIs(t, err, filedock.ErrInvalidInput)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := filedock.FileIDFromStorageKey("")
		assert.ErrorIs(t, err, filedock.ErrInvalidInput)
	})
}

func TestIsValidTableName(t *testing.T) {
	assert.True(t, filedock.IsValidTableName("filedock_files"))
	assert.True(t, filedock.IsValidTableName("_files"))
	assert.False(t, filedock.IsValidTableName(""))
	assert.False(t, filedock.IsValidTableName("Files"))
	assert.False(t, filedock.IsValidTableName("1files"))
	assert.False(t, filedock.IsValidTableName("files; drop table users"))
}
