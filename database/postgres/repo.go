// Package postgres implements the file metadata repo using PostgreSQL
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/filedock/filedock"
)

type Repo struct {
	pool      *pgxpool.Pool
	tableName string
}

func NewRepo(pool *pgxpool.Pool, tables filedock.Tables) (*Repo, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("new repo: %w", err)
	}

	return &Repo{pool: pool, tableName: tables.Files}, nil
}

// Ping verifies database connectivity
func (r *Repo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

const recordColumns = `file_id, owner_id, file_name, file_type, file_size_bytes, folder, storage_key, created_at, updated_at, is_deleted`

func scanRecord(row pgx.Row) (filedock.FileRecord, error) {
	var rec filedock.FileRecord
	err := row.Scan(
		&rec.FileID, &rec.OwnerID, &rec.FileName, &rec.FileType, &rec.FileSize,
		&rec.Folder, &rec.StorageKey, &rec.CreatedAt, &rec.UpdatedAt, &rec.IsDeleted,
	)
	if err != nil {
		return filedock.FileRecord{}, err
	}
	return rec, nil
}

func (r *Repo) Put(ctx context.Context, record filedock.FileRecord, overwrite bool) error {
	var query string
	if overwrite {
		query = fmt.Sprintf(`
			INSERT INTO %s (%s)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (file_id) DO UPDATE
			SET owner_id = EXCLUDED.owner_id,
				file_name = EXCLUDED.file_name,
				file_type = EXCLUDED.file_type,
				file_size_bytes = EXCLUDED.file_size_bytes,
				folder = EXCLUDED.folder,
				storage_key = EXCLUDED.storage_key,
				created_at = EXCLUDED.created_at,
				updated_at = EXCLUDED.updated_at,
				is_deleted = EXCLUDED.is_deleted
		`, r.tableName, recordColumns)
	} else {
		query = fmt.Sprintf(`
			INSERT INTO %s (%s)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (file_id) DO NOTHING
		`, r.tableName, recordColumns)
	}

	result, err := r.pool.Exec(ctx, query,
		record.FileID, record.OwnerID, record.FileName, record.FileType,
		record.FileSize, record.Folder, record.StorageKey,
		record.CreatedAt.UTC(), record.UpdatedAt.UTC(), record.IsDeleted,
	)
	if err != nil {
		return fmt.Errorf("put: %w: %w", filedock.ErrUnavailable, err)
	}

	if !overwrite && result.RowsAffected() == 0 {
		return fmt.Errorf("put %s: %w", record.FileID, filedock.ErrConflict)
	}

	return nil
}

func (r *Repo) GetByID(ctx context.Context, fileID uuid.UUID) (filedock.FileRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE file_id = $1 AND is_deleted = FALSE
	`, recordColumns, r.tableName)

	rec, err := scanRecord(r.pool.QueryRow(ctx, query, fileID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return filedock.FileRecord{}, filedock.ErrNotFound
		}
		return filedock.FileRecord{}, fmt.Errorf("get by id: %w", err)
	}

	return rec, nil
}

func (r *Repo) ListByOwner(ctx context.Context, ownerID string, q filedock.ListQuery) (filedock.ListResult, error) {
	conditions := "is_deleted = FALSE AND owner_id = $1"
	args := []any{ownerID}

	if q.Folder != nil {
		conditions += " AND folder = $2"
		args = append(args, *q.Folder)
	}

	return r.list(ctx, q, conditions, args, "list by owner")
}

func (r *Repo) ListByFolder(ctx context.Context, folder string, q filedock.ListQuery) (filedock.ListResult, error) {
	return r.list(ctx, q, "is_deleted = FALSE AND folder = $1", []any{folder}, "list by folder")
}

func (r *Repo) list(ctx context.Context, q filedock.ListQuery, conditions string, args []any, opName string) (filedock.ListResult, error) {
	if q.Limit < 1 {
		return filedock.ListResult{}, fmt.Errorf("%s: limit must be positive: %w", opName, filedock.ErrInvalidInput)
	}

	cursor, err := filedock.DecodeCursor(q.Cursor)
	if err != nil {
		return filedock.ListResult{}, fmt.Errorf("%s: %w", opName, err)
	}

	if q.Cursor != "" {
		conditions += fmt.Sprintf(" AND (created_at, file_id) < ($%d, $%d)", len(args)+1, len(args)+2)
		args = append(args, cursor.CreatedAt.UTC(), cursor.FileID)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s
		ORDER BY created_at DESC, file_id DESC
		LIMIT $%d
	`, recordColumns, r.tableName, conditions, len(args)+1)
	args = append(args, q.Limit+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return filedock.ListResult{}, fmt.Errorf("%s: %w: %w", opName, filedock.ErrUnavailable, err)
	}
	defer rows.Close()

	items := make([]filedock.FileRecord, 0, q.Limit)
	for rows.Next() {
		rec, scanErr := scanRecord(rows)
		if scanErr != nil {
			return filedock.ListResult{}, fmt.Errorf("%s: scan: %w", opName, scanErr)
		}
		items = append(items, rec)
	}

	if err := rows.Err(); err != nil {
		return filedock.ListResult{}, fmt.Errorf("%s: rows: %w", opName, err)
	}

	var nextCursor string
	if len(items) > q.Limit {
		// Cursor points to the last item of the current page
		lastItem := items[q.Limit-1]
		nextCursor = filedock.EncodeCursor(lastItem.CreatedAt, lastItem.FileID)
		items = items[:q.Limit]
	}

	return filedock.ListResult{Items: items, NextCursor: nextCursor}, nil
}

func (r *Repo) SoftDelete(ctx context.Context, fileID uuid.UUID) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET is_deleted = TRUE, updated_at = $1
		WHERE file_id = $2 AND is_deleted = FALSE
	`, r.tableName)

	result, err := r.pool.Exec(ctx, query, time.Now().UTC(), fileID)
	if err != nil {
		return fmt.Errorf("soft delete: %w: %w", filedock.ErrUnavailable, err)
	}

	if result.RowsAffected() == 0 {
		// Already deleted is a no-op; only an unknown id is an error.
		var one int
		checkQuery := fmt.Sprintf(`SELECT 1 FROM %s WHERE file_id = $1`, r.tableName)
		err := r.pool.QueryRow(ctx, checkQuery, fileID).Scan(&one)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("soft delete: %w", filedock.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("soft delete: check existing: %w", err)
		}
	}

	return nil
}

func (r *Repo) Rename(ctx context.Context, fileID uuid.UUID, newName string, newFolder *string) (filedock.FileRecord, error) {
	// Name and folder change in one statement so the record is never indexed
	// under both folders, or neither.
	var query string
	var args []any
	if newFolder != nil {
		query = fmt.Sprintf(`
			UPDATE %s
			SET file_name = $1, folder = $2, updated_at = $3
			WHERE file_id = $4 AND is_deleted = FALSE
			RETURNING %s
		`, r.tableName, recordColumns)
		args = []any{newName, *newFolder, time.Now().UTC(), fileID}
	} else {
		query = fmt.Sprintf(`
			UPDATE %s
			SET file_name = $1, updated_at = $2
			WHERE file_id = $3 AND is_deleted = FALSE
			RETURNING %s
		`, r.tableName, recordColumns)
		args = []any{newName, time.Now().UTC(), fileID}
	}

	rec, err := scanRecord(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return filedock.FileRecord{}, fmt.Errorf("rename: %w", filedock.ErrNotFound)
		}
		return filedock.FileRecord{}, fmt.Errorf("rename: %w: %w", filedock.ErrUnavailable, err)
	}

	return rec, nil
}
