package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/manthysbr/toolchat/internal/core/domain"
)

// PutFile creates or replaces the file stored under path.
func (r *Repository) PutFile(ctx context.Context, path string, data []byte) error {
	if data == nil {
		data = []byte{}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO files (path, data, size_bytes, modified_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (path) DO UPDATE SET
			data        = excluded.data,
			size_bytes  = excluded.size_bytes,
			modified_at = excluded.modified_at`,
		path, data, int64(len(data)), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("put file %s: %w", path, err)
	}
	return nil
}

func (r *Repository) GetFile(ctx context.Context, path string) (domain.StoredFile, error) {
	var f domain.StoredFile
	err := r.db.QueryRowContext(ctx, `
		SELECT path, data, size_bytes, modified_at
		FROM files WHERE path = ?`, path,
	).Scan(&f.Path, &f.Data, &f.SizeBytes, &f.ModifiedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.StoredFile{}, fmt.Errorf("%w: %s", domain.ErrFileNotFound, path)
	}
	if err != nil {
		return domain.StoredFile{}, fmt.Errorf("get file %s: %w", path, err)
	}
	return f, nil
}

func (r *Repository) DeleteFile(ctx context.Context, path string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE path = ?`, path)
	if err != nil {
		return fmt.Errorf("delete file %s: %w", path, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrFileNotFound, path)
	}
	return nil
}

// ListFiles returns metadata (no content) of files whose path starts with
// prefix, ordered by path.
func (r *Repository) ListFiles(ctx context.Context, prefix string) ([]domain.StoredFile, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT path, size_bytes, modified_at
		FROM files
		WHERE starts_with(path, ?)
		ORDER BY path ASC`, prefix)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	out := []domain.StoredFile{}
	for rows.Next() {
		var f domain.StoredFile
		if err := rows.Scan(&f.Path, &f.SizeBytes, &f.ModifiedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *Repository) FileExists(ctx context.Context, path string) (bool, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM files WHERE path = ?`, path).Scan(&n); err != nil {
		return false, fmt.Errorf("file exists %s: %w", path, err)
	}
	return n > 0, nil
}
