package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ds124wfegd/uabc-events/internal/entity"
	"github.com/lib/pq"
)

const certificateColumns = `id, event_id, requested_at, status, participants, event_summary,
	speakers, committee, processed_at, rejection_reason`

type certificateRepository struct {
	db *sql.DB
}

func NewCertificateRepository(db *sql.DB) CertificateRepository {
	return &certificateRepository{db: db}
}

func scanCertificate(row rowScanner, extra ...interface{}) (*entity.CertificateRequest, error) {
	var req entity.CertificateRequest
	var participants, speakers, committee []byte
	var processedAt sql.NullTime

	dest := []interface{}{
		&req.ID, &req.EventID, &req.RequestedAt, &req.Status, &participants, &req.EventSummary,
		&speakers, &committee, &processedAt, &req.RejectionReason,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	if processedAt.Valid {
		t := processedAt.Time.UTC()
		req.ProcessedAt = &t
	}
	for _, col := range []struct {
		raw  []byte
		into interface{}
	}{
		{participants, &req.Participants},
		{speakers, &req.Speakers},
		{committee, &req.Committee},
	} {
		if len(col.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(col.raw, col.into); err != nil {
			return nil, fmt.Errorf("decode certificate request %s: %w", req.ID, err)
		}
	}
	return &req, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (r *certificateRepository) Create(ctx context.Context, req *entity.CertificateRequest, from entity.CertificateStatus) error {
	participants, err := json.Marshal(nonNil(req.Participants))
	if err != nil {
		return fmt.Errorf("failed to encode participants: %w", err)
	}
	speakers, err := json.Marshal(nonNil(req.Speakers))
	if err != nil {
		return fmt.Errorf("failed to encode speakers: %w", err)
	}
	committee, err := json.Marshal(nonNil(req.Committee))
	if err != nil {
		return fmt.Errorf("failed to encode committee: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE events SET certificate_status = $1, updated_at = $2
		WHERE id = $3 AND status = $4 AND certificate_status = $5
	`, entity.CertificateStatusRequested, req.RequestedAt, req.EventID, entity.EventStatusApproved, from)
	if err != nil {
		return fmt.Errorf("failed to update event certificate status: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	} else if n == 0 {
		return entity.ErrStateConflict
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO certificate_requests (id, event_id, requested_at, status, participants, event_summary, speakers, committee)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, req.ID, req.EventID, req.RequestedAt, req.Status, participants, req.EventSummary, speakers, committee)
	if isUniqueViolation(err) {
		return entity.ErrStateConflict
	}
	if err != nil {
		return fmt.Errorf("failed to insert certificate request: %w", err)
	}

	for _, f := range req.Files {
		if err := insertFile(ctx, tx, f); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit certificate request: %w", err)
	}
	return nil
}

func (r *certificateRepository) GetByID(ctx context.Context, id string) (*entity.CertificateRequest, error) {
	req, err := scanCertificate(r.db.QueryRowContext(ctx,
		`SELECT `+certificateColumns+` FROM certificate_requests WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrCertificateRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get certificate request: %w", err)
	}

	files, err := queryFiles(ctx, r.db, `SELECT `+fileColumns+` FROM event_files WHERE certificate_request_id = $1 ORDER BY created_at`, id)
	if err != nil {
		return nil, err
	}
	req.Files = files
	return req, nil
}

func (r *certificateRepository) ListPending(ctx context.Context) ([]*entity.CertificateRequestWithEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT cr.id, cr.event_id, cr.requested_at, cr.status, cr.participants, cr.event_summary,
			cr.speakers, cr.committee, cr.processed_at, cr.rejection_reason,
			e.name, e.responsible, e.program, e.start_date, e.end_date, e.user_id
		FROM certificate_requests cr
		JOIN events e ON e.id = cr.event_id
		WHERE cr.status = $1
		ORDER BY cr.requested_at ASC
	`, entity.CertificateRequestPending)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending certificate requests: %w", err)
	}
	defer rows.Close()

	result := make([]*entity.CertificateRequestWithEvent, 0)
	for rows.Next() {
		var item entity.CertificateRequestWithEvent
		var start, end sql.NullTime
		req, err := scanCertificate(rows, &item.EventName, &item.EventResponsible, &item.EventProgram, &start, &end, &item.EventUserID)
		if err != nil {
			return nil, fmt.Errorf("failed to scan certificate request: %w", err)
		}
		item.CertificateRequest = *req
		if start.Valid {
			item.EventStartDate = start.Time.UTC()
		}
		if end.Valid {
			item.EventEndDate = end.Time.UTC()
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate certificate requests: %w", err)
	}
	return result, nil
}

func (r *certificateRepository) ListByEvent(ctx context.Context, eventID string) ([]*entity.CertificateRequest, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+certificateColumns+` FROM certificate_requests WHERE event_id = $1 ORDER BY requested_at DESC`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query certificate requests: %w", err)
	}
	defer rows.Close()

	result := make([]*entity.CertificateRequest, 0)
	for rows.Next() {
		req, err := scanCertificate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan certificate request: %w", err)
		}
		result = append(result, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate certificate requests: %w", err)
	}
	return result, nil
}

// Approve resolves the request and issues the event certificates together.
// Either statement touching no row rolls both back.
func (r *certificateRepository) Approve(ctx context.Context, id string, at time.Time) (*entity.CertificateRequest, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	req, err := scanCertificate(tx.QueryRowContext(ctx, `
		UPDATE certificate_requests
		SET status = $1, processed_at = $2
		WHERE id = $3 AND status = $4
		RETURNING `+certificateColumns,
		entity.CertificateRequestApproved, at, id, entity.CertificateRequestPending))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, r.missOrConflict(ctx, tx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to approve certificate request: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE events SET certificate_status = $1, updated_at = $2
		WHERE id = $3 AND certificate_status = $4
	`, entity.CertificateStatusIssued, at, req.EventID, entity.CertificateStatusRequested)
	if err != nil {
		return nil, fmt.Errorf("failed to issue event certificates: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	} else if n == 0 {
		return nil, entity.ErrStateConflict
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit approval: %w", err)
	}
	return req, nil
}

func (r *certificateRepository) Reject(ctx context.Context, id, reason string, at time.Time) (*entity.CertificateRequest, error) {
	req, err := scanCertificate(r.db.QueryRowContext(ctx, `
		UPDATE certificate_requests
		SET status = $1, processed_at = $2, rejection_reason = $3
		WHERE id = $4 AND status = $5
		RETURNING `+certificateColumns,
		entity.CertificateRequestRejected, at, reason, id, entity.CertificateRequestPending))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, r.missOrConflict(ctx, r.db, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to reject certificate request: %w", err)
	}
	return req, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (r *certificateRepository) missOrConflict(ctx context.Context, q queryRower, id string) error {
	var exists bool
	if err := q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM certificate_requests WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check certificate request: %w", err)
	}
	if !exists {
		return entity.ErrCertificateRequestNotFound
	}
	return entity.ErrStateConflict
}

func (r *certificateRepository) Statistics(ctx context.Context, since time.Time) (*entity.CertificateStatistics, error) {
	stats := &entity.CertificateStatistics{Requests: make(map[entity.CertificateRequestStatus]int)}

	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*), COUNT(*) FILTER (WHERE requested_at >= $1)
		FROM certificate_requests
		GROUP BY status
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query certificate statistics: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status entity.CertificateRequestStatus
		var count, recent int
		if err := rows.Scan(&status, &count, &recent); err != nil {
			return nil, fmt.Errorf("failed to scan certificate statistics: %w", err)
		}
		stats.Requests[status] = count
		stats.Recent += recent
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate certificate statistics: %w", err)
	}
	return stats, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
