package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ds124wfegd/uabc-events/internal/entity"
)

const fileColumns = `id, event_id, certificate_request_id, kind, file_name, path, content_type,
	size, thumbnail_path, uploaded_by, created_at`

type fileRepository struct {
	db *sql.DB
}

func NewFileRepository(db *sql.DB) FileRepository {
	return &fileRepository{db: db}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func scanFile(row rowScanner) (*entity.EventFile, error) {
	var f entity.EventFile
	var requestID sql.NullString
	err := row.Scan(&f.ID, &f.EventID, &requestID, &f.Kind, &f.FileName, &f.Path, &f.ContentType,
		&f.Size, &f.ThumbnailPath, &f.UploadedBy, &f.CreatedAt)
	if err != nil {
		return nil, err
	}
	f.CertificateRequestID = requestID.String
	return &f, nil
}

func insertFile(ctx context.Context, db execer, f *entity.EventFile) error {
	var requestID interface{}
	if f.CertificateRequestID != "" {
		requestID = f.CertificateRequestID
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO event_files (`+fileColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, f.ID, f.EventID, requestID, f.Kind, f.FileName, f.Path, f.ContentType,
		f.Size, f.ThumbnailPath, f.UploadedBy, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert file: %w", err)
	}
	return nil
}

func queryFiles(ctx context.Context, db querier, query string, args ...interface{}) ([]*entity.EventFile, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer rows.Close()

	files := make([]*entity.EventFile, 0)
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate files: %w", err)
	}
	return files, nil
}

func (r *fileRepository) Create(ctx context.Context, file *entity.EventFile) error {
	return insertFile(ctx, r.db, file)
}

func (r *fileRepository) GetByID(ctx context.Context, id string) (*entity.EventFile, error) {
	f, err := scanFile(r.db.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM event_files WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return f, nil
}

func (r *fileRepository) ListByEvent(ctx context.Context, eventID string) ([]*entity.EventFile, error) {
	return queryFiles(ctx, r.db, `
		SELECT `+fileColumns+` FROM event_files
		WHERE event_id = $1 AND certificate_request_id IS NULL
		ORDER BY created_at
	`, eventID)
}

func (r *fileRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM event_files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return entity.ErrFileNotFound
	}
	return nil
}
