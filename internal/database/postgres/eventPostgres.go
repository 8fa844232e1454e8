package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ds124wfegd/uabc-events/internal/entity"
)

// likeEscaper makes a search term match literally under the default
// backslash escape of LIKE.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

const eventColumns = `id, name, responsible, email, phone, program, type, classification,
	classification_other, modality, venue, start_date, end_date, has_cost, cost_details,
	online_info, organizers, observations, program_details, speaker_cvs, codigos_requeridos,
	status, certificate_status, admin_comments, rejection_reason, user_id, owner_email,
	created_at, updated_at`

type eventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) EventRepository {
	return &eventRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (*entity.Event, error) {
	var e entity.Event
	var start, end sql.NullTime
	err := row.Scan(
		&e.ID, &e.Name, &e.Responsible, &e.Email, &e.Phone, &e.Program, &e.Type, &e.Classification,
		&e.ClassificationOther, &e.Modality, &e.Venue, &start, &end, &e.HasCost, &e.CostDetails,
		&e.OnlineInfo, &e.Organizers, &e.Observations, &e.ProgramDetails, &e.SpeakerCvs, &e.CodigosRequeridos,
		&e.Status, &e.CertificateStatus, &e.AdminComments, &e.RejectionReason, &e.UserID, &e.OwnerEmail,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if start.Valid {
		e.StartDate = start.Time.UTC()
	}
	if end.Valid {
		e.EndDate = end.Time.UTC()
	}
	return &e, nil
}

// nullTime stores the zero time as NULL; drafts may not have dates yet.
func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

func (r *eventRepository) Create(ctx context.Context, event *entity.Event) error {
	query := `
		INSERT INTO events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
			$19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29)
	`

	_, err := r.db.ExecContext(ctx, query,
		event.ID, event.Name, event.Responsible, event.Email, event.Phone, event.Program, event.Type, event.Classification,
		event.ClassificationOther, event.Modality, event.Venue, nullTime(event.StartDate), nullTime(event.EndDate), event.HasCost, event.CostDetails,
		event.OnlineInfo, event.Organizers, event.Observations, event.ProgramDetails, event.SpeakerCvs, event.CodigosRequeridos,
		event.Status, event.CertificateStatus, event.AdminComments, event.RejectionReason, event.UserID, event.OwnerEmail,
		event.CreatedAt, event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*entity.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	event, err := scanEvent(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return event, nil
}

func (r *eventRepository) Update(ctx context.Context, event *entity.Event, expected entity.EventStatus) error {
	query := `
		UPDATE events
		SET name = $1, responsible = $2, email = $3, phone = $4, program = $5, type = $6,
			classification = $7, classification_other = $8, modality = $9, venue = $10,
			start_date = $11, end_date = $12, has_cost = $13, cost_details = $14, online_info = $15,
			organizers = $16, observations = $17, program_details = $18, speaker_cvs = $19,
			codigos_requeridos = $20, status = $21, rejection_reason = $22, updated_at = $23
		WHERE id = $24 AND status = $25
	`

	result, err := r.db.ExecContext(ctx, query,
		event.Name, event.Responsible, event.Email, event.Phone, event.Program, event.Type,
		event.Classification, event.ClassificationOther, event.Modality, event.Venue,
		nullTime(event.StartDate), nullTime(event.EndDate), event.HasCost, event.CostDetails, event.OnlineInfo,
		event.Organizers, event.Observations, event.ProgramDetails, event.SpeakerCvs,
		event.CodigosRequeridos, event.Status, event.RejectionReason, event.UpdatedAt,
		event.ID, expected,
	)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return r.missOrConflict(ctx, event.ID)
	}
	return nil
}

func (r *eventRepository) UpdateStatus(ctx context.Context, id string, from, to entity.EventStatus, adminComments, rejectionReason string) (*entity.Event, error) {
	query := `
		UPDATE events
		SET status = $1, admin_comments = $2, rejection_reason = $3, updated_at = $4
		WHERE id = $5 AND status = $6
		RETURNING ` + eventColumns

	event, err := scanEvent(r.db.QueryRowContext(ctx, query, to, adminComments, rejectionReason, time.Now().UTC(), id, from))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, r.missOrConflict(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update event status: %w", err)
	}
	return event, nil
}

// missOrConflict tells a missing row from one whose state moved on.
func (r *eventRepository) missOrConflict(ctx context.Context, id string) error {
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM events WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check event: %w", err)
	}
	if !exists {
		return entity.ErrEventNotFound
	}
	return entity.ErrStateConflict
}

func (r *eventRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return entity.ErrEventNotFound
	}
	return nil
}

func (r *eventRepository) Search(ctx context.Context, filter entity.EventFilter) (*entity.EventPage, error) {
	where, args := buildEventFilter(filter)

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count events: %w", err)
	}

	order := "DESC"
	if filter.SortAsc {
		order = "ASC"
	}
	query := fmt.Sprintf(`SELECT %s FROM events%s ORDER BY created_at %s LIMIT $%d OFFSET $%d`,
		eventColumns, where, order, len(args)+1, len(args)+2)
	args = append(args, limit, (page-1)*limit)

	events, err := r.queryEvents(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &entity.EventPage{
		Events:  events,
		Total:   total,
		HasMore: total > page*limit,
	}, nil
}

func buildEventFilter(filter entity.EventFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.UserID != "" {
		add("user_id = $%d", filter.UserID)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.Program != "" {
		add("program = $%d", filter.Program)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		add("(name ILIKE $%[1]d OR responsible ILIKE $%[1]d OR email ILIKE $%[1]d)", "%"+likeEscaper.Replace(s)+"%")
	}
	if !filter.StartFrom.IsZero() {
		add("start_date >= $%d", filter.StartFrom.UTC())
	}
	if !filter.StartTo.IsZero() {
		add("start_date <= $%d", filter.StartTo.UTC())
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *eventRepository) ListByStatus(ctx context.Context, status entity.EventStatus) ([]*entity.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE status = $1 ORDER BY created_at ASC`
	return r.queryEvents(ctx, query, status)
}

func (r *eventRepository) queryEvents(ctx context.Context, query string, args ...interface{}) ([]*entity.Event, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events := make([]*entity.Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return events, nil
}

func (r *eventRepository) Statistics(ctx context.Context, since time.Time) (*entity.EventStatistics, error) {
	stats := &entity.EventStatistics{
		ByStatus:            make(map[entity.EventStatus]int),
		ByCertificateStatus: make(map[entity.CertificateStatus]int),
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT status, certificate_status, COUNT(*), COUNT(*) FILTER (WHERE created_at >= $1)
		FROM events
		GROUP BY status, certificate_status
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query event statistics: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status entity.EventStatus
		var certStatus entity.CertificateStatus
		var count, recent int
		if err := rows.Scan(&status, &certStatus, &count, &recent); err != nil {
			return nil, fmt.Errorf("failed to scan event statistics: %w", err)
		}
		stats.Total += count
		stats.Recent += recent
		stats.ByStatus[status] += count
		stats.ByCertificateStatus[certStatus] += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate event statistics: %w", err)
	}
	return stats, nil
}
