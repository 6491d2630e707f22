// Package sqlite implements the file metadata repo using SQLite
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/filedock/filedock"
)

type Repo struct {
	db        *sql.DB
	tableName string
}

func NewRepo(db *sql.DB, tables filedock.Tables) (*Repo, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("new repo: %w", err)
	}

	return &Repo{db: db, tableName: tables.Files}, nil
}

// Ping verifies database connectivity
func (r *Repo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const recordColumns = `file_id, owner_id, file_name, file_type, file_size_bytes, folder, storage_key, created_at, updated_at, is_deleted`

// timeFormat is RFC3339 with a fixed-width fraction so stored timestamps
// order lexicographically, which the keyset pagination comparison relies on.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

func scanRecord(row interface{ Scan(...any) error }) (filedock.FileRecord, error) {
	var rec filedock.FileRecord
	var idStr, createdAt, updatedAt string
	var deleted int

	if err := row.Scan(
		&idStr, &rec.OwnerID, &rec.FileName, &rec.FileType, &rec.FileSize,
		&rec.Folder, &rec.StorageKey, &createdAt, &updatedAt, &deleted,
	); err != nil {
		return filedock.FileRecord{}, err
	}

	var err error
	rec.FileID, err = uuid.Parse(idStr)
	if err != nil {
		return filedock.FileRecord{}, fmt.Errorf("parse file_id: %w", err)
	}

	rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return filedock.FileRecord{}, fmt.Errorf("parse created_at: %w", err)
	}

	rec.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return filedock.FileRecord{}, fmt.Errorf("parse updated_at: %w", err)
	}

	rec.IsDeleted = deleted != 0
	return rec, nil
}

func (r *Repo) Put(ctx context.Context, record filedock.FileRecord, overwrite bool) error {
	createdAt := record.CreatedAt.UTC().Format(timeFormat)
	updatedAt := record.UpdatedAt.UTC().Format(timeFormat)
	deleted := 0
	if record.IsDeleted {
		deleted = 1
	}

	var query string
	if overwrite {
		query = fmt.Sprintf( //nolint:gosec // G201: table name is validated
			`INSERT OR REPLACE INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.tableName, recordColumns)
	} else {
		query = fmt.Sprintf( //nolint:gosec // G201: table name is validated
			`INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (file_id) DO NOTHING`,
			r.tableName, recordColumns)
	}

	result, err := r.db.ExecContext(ctx, query,
		record.FileID.String(), record.OwnerID, record.FileName, record.FileType,
		record.FileSize, record.Folder, record.StorageKey, createdAt, updatedAt, deleted,
	)
	if err != nil {
		return fmt.Errorf("put: %w: %w", filedock.ErrUnavailable, err)
	}

	if !overwrite {
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("put: rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return fmt.Errorf("put %s: %w", record.FileID, filedock.ErrConflict)
		}
	}

	return nil
}

func (r *Repo) GetByID(ctx context.Context, fileID uuid.UUID) (filedock.FileRecord, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT %s FROM %s WHERE file_id = ? AND is_deleted = 0`, recordColumns, r.tableName)

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, fileID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return filedock.FileRecord{}, filedock.ErrNotFound
		}
		return filedock.FileRecord{}, fmt.Errorf("get by id: %w", err)
	}

	return rec, nil
}

func (r *Repo) ListByOwner(ctx context.Context, ownerID string, q filedock.ListQuery) (filedock.ListResult, error) {
	conditions := "is_deleted = 0 AND owner_id = ?"
	args := []any{ownerID}

	if q.Folder != nil {
		conditions += " AND folder = ?"
		args = append(args, *q.Folder)
	}

	return r.list(ctx, q, conditions, args, "list by owner")
}

func (r *Repo) ListByFolder(ctx context.Context, folder string, q filedock.ListQuery) (filedock.ListResult, error) {
	return r.list(ctx, q, "is_deleted = 0 AND folder = ?", []any{folder}, "list by folder")
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
		conditions += " AND (created_at, file_id) < (?, ?)"
		args = append(args, cursor.CreatedAt.UTC().Format(timeFormat), cursor.FileID.String())
	}

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT %s FROM %s
		WHERE %s
		ORDER BY created_at DESC, file_id DESC
		LIMIT ?`, recordColumns, r.tableName, conditions)
	args = append(args, q.Limit+1)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return filedock.ListResult{}, fmt.Errorf("%s: %w: %w", opName, filedock.ErrUnavailable, err)
	}
	defer func() { _ = rows.Close() }()

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
	now := time.Now().UTC().Format(timeFormat)
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`UPDATE %s
		SET is_deleted = 1, updated_at = ?
		WHERE file_id = ? AND is_deleted = 0`, r.tableName)

	result, err := r.db.ExecContext(ctx, query, now, fileID.String())
	if err != nil {
		return fmt.Errorf("soft delete: %w: %w", filedock.ErrUnavailable, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("soft delete: rows affected: %w", err)
	}

	if rowsAffected == 0 {
		// Already deleted is a no-op; only an unknown id is an error.
		var one int
		checkQuery := fmt.Sprintf(`SELECT 1 FROM %s WHERE file_id = ?`, r.tableName) //nolint:gosec // table name is validated
		err := r.db.QueryRowContext(ctx, checkQuery, fileID.String()).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("soft delete: %w", filedock.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("soft delete: check existing: %w", err)
		}
	}

	return nil
}

func (r *Repo) Rename(ctx context.Context, fileID uuid.UUID, newName string, newFolder *string) (filedock.FileRecord, error) {
	now := time.Now().UTC().Format(timeFormat)

	// Name and folder change in one statement so the record is never indexed
	// under both folders, or neither.
	var query string
	var args []any
	if newFolder != nil {
		query = fmt.Sprintf( //nolint:gosec // G201: table name is validated
			`UPDATE %s
			SET file_name = ?, folder = ?, updated_at = ?
			WHERE file_id = ? AND is_deleted = 0`, r.tableName)
		args = []any{newName, *newFolder, now, fileID.String()}
	} else {
		query = fmt.Sprintf( //nolint:gosec // G201: table name is validated
			`UPDATE %s
			SET file_name = ?, updated_at = ?
			WHERE file_id = ? AND is_deleted = 0`, r.tableName)
		args = []any{newName, now, fileID.String()}
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return filedock.FileRecord{}, fmt.Errorf("rename: %w: %w", filedock.ErrUnavailable, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return filedock.FileRecord{}, fmt.Errorf("rename: rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return filedock.FileRecord{}, fmt.Errorf("rename: %w", filedock.ErrNotFound)
	}

	return r.GetByID(ctx, fileID)
}
