package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/filedock/filedock"
)

func Migrate(ctx context.Context, pool *pgxpool.Pool, tables filedock.Tables) error {
	if err := createFilesTable(ctx, pool, tables.Files); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func DropTables(ctx context.Context, pool *pgxpool.Pool, tables filedock.Tables) error {
	quotedTable := pgx.Identifier{tables.Files}.Sanitize()
	if _, err := pool.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, quotedTable)); err != nil {
		return fmt.Errorf("drop tables: %w", err)
	}
	return nil
}

func createFilesTable(ctx context.Context, pool *pgxpool.Pool, tableName string) error {
	quotedTable := pgx.Identifier{tableName}.Sanitize()
	indexOwnerList := pgx.Identifier{fmt.Sprintf("idx_%s_owner_list", tableName)}.Sanitize()
	indexFolderList := pgx.Identifier{fmt.Sprintf("idx_%s_folder_list", tableName)}.Sanitize()

	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			file_id UUID PRIMARY KEY,
			owner_id TEXT NOT NULL,
			file_name TEXT NOT NULL,
			file_type TEXT NOT NULL,
			file_size_bytes BIGINT NOT NULL,
			folder TEXT NOT NULL DEFAULT '',
			storage_key TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			is_deleted BOOLEAN NOT NULL DEFAULT FALSE
		);

		CREATE INDEX IF NOT EXISTS %s
		ON %s (owner_id, created_at DESC, file_id DESC)
		WHERE (is_deleted = FALSE);

		CREATE INDEX IF NOT EXISTS %s
		ON %s (folder, created_at DESC, file_id DESC)
		WHERE (is_deleted = FALSE);
	`,
		quotedTable,
		indexOwnerList, quotedTable,
		indexFolderList, quotedTable,
	)

	_, err := pool.Exec(ctx, sql)
	if err != nil {
		return fmt.Errorf("create files table: %w", err)
	}
	return nil
}
