package sqlite_test

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/filedock/filedock"
	"github.com/filedock/filedock/database/sqlite"
)

func getRandomString(t *testing.T) string {
	t.Helper()
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	require.NoError(t, err, "random string")
	return fmt.Sprintf("test%x", n.Int64())
}

// setupTestRepo creates a repo backed by an in-memory database with a unique
// table name for test isolation.
func setupTestRepo(t *testing.T) *sqlite.Repo {
	t.Helper()

	ctx := context.Background()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err, "failed to open database")
	// Each pooled connection would get its own in-memory database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	tables := filedock.Tables{Files: fmt.Sprintf("files_%s", getRandomString(t))}

	require.NoError(t, sqlite.Migrate(ctx, db, tables), "failed to migrate")
	require.NoError(t, sqlite.ValidateSchema(ctx, db, tables), "schema validation")

	repo, err := sqlite.NewRepo(db, tables)
	require.NoError(t, err, "failed to create repo")

	return repo
}
