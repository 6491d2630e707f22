package keybackend_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filedock/filedock"
	"github.com/filedock/filedock/keybackend"
)

func TestStatic(t *testing.T) {
	t.Run("lookup", func(t *testing.T) {
		store := keybackend.NewStatic(keybackend.KeyPair{AccessKey: "AKID", SecretKey: "secret"})

		secret, err := store.Lookup("AKID")
		require.NoError(t, err)
		assert.Equal(t, "secret", secret)

		_, err = store.Lookup("UNKNOWN")
		assert.ErrorIs(t, err, filedock.ErrUnauthorized)
	})

	t.Run("incomplete pairs dropped", func(t *testing.T) {
		store := keybackend.NewStatic(
			keybackend.KeyPair{AccessKey: "AKID", SecretKey: "secret"},
			keybackend.KeyPair{AccessKey: "NOSECRET"},
			keybackend.KeyPair{SecretKey: "orphan"},
		)

		_, err := store.Lookup("NOSECRET")
		assert.ErrorIs(t, err, filedock.ErrUnauthorized)

		secret, err := store.Lookup("AKID")
		require.NoError(t, err)
		assert.Equal(t, "secret", secret)
	})
}

func TestReadKeyFile(t *testing.T) {
	t.Run("preserves file order", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "keys.json")
		content := `[
			{"access_key": "AKID2", "secret_key": "secret2"},
			{"access_key": "AKID1", "secret_key": "secret1"}
		]`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		pairs, err := keybackend.ReadKeyFile(path)
		require.NoError(t, err)
		assert.Equal(t, []keybackend.KeyPair{
			{AccessKey: "AKID2", SecretKey: "secret2"},
			{AccessKey: "AKID1", SecretKey: "secret1"},
		}, pairs)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := keybackend.ReadKeyFile(filepath.Join(t.TempDir(), "nope.json"))
		assert.Error(t, err)
	})

	t.Run("malformed json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "keys.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

		_, err := keybackend.ReadKeyFile(path)
		assert.Error(t, err)
	})
}

func TestLoad(t *testing.T) {
	t.Run("inline keys", func(t *testing.T) {
		store, err := keybackend.Load(keybackend.KeysConfig{
			Inline: []keybackend.KeyPair{{AccessKey: "AKID", SecretKey: "secret"}},
		})
		require.NoError(t, err)

		secret, err := store.Lookup("AKID")
		require.NoError(t, err)
		assert.Equal(t, "secret", secret)
	})

	t.Run("file keys override inline on duplicates", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "keys.json")
		content := `[{"access_key": "AKID", "secret_key": "from-file"}]`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		store, err := keybackend.Load(keybackend.KeysConfig{
			Inline: []keybackend.KeyPair{{AccessKey: "AKID", SecretKey: "from-inline"}},
			File:   path,
		})
		require.NoError(t, err)

		secret, err := store.Lookup("AKID")
		require.NoError(t, err)
		assert.Equal(t, "from-file", secret)
	})

	t.Run("unreadable file fails", func(t *testing.T) {
		_, err := keybackend.Load(keybackend.KeysConfig{
			File: filepath.Join(t.TempDir(), "missing.json"),
		})
		assert.Error(t, err)
	})
}
