package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ds124wfegd/uabc-events/config"
	"github.com/sirupsen/logrus"

	_ "github.com/lib/pq"
)

func NewPostgresDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.WithFields(logrus.Fields{"host": cfg.Host, "db": cfg.DBName}).Info("connected to postgres")
	return db, nil
}

// migrations are idempotent and run in order on every start.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id UUID PRIMARY KEY,
		name VARCHAR(255) NOT NULL DEFAULT '',
		responsible VARCHAR(255) NOT NULL DEFAULT '',
		email VARCHAR(255) NOT NULL DEFAULT '',
		phone VARCHAR(50) NOT NULL DEFAULT '',
		program VARCHAR(50) NOT NULL,
		type VARCHAR(50) NOT NULL,
		classification VARCHAR(50) NOT NULL,
		classification_other VARCHAR(255) NOT NULL DEFAULT '',
		modality VARCHAR(50) NOT NULL,
		venue VARCHAR(255) NOT NULL DEFAULT '',
		start_date TIMESTAMPTZ,
		end_date TIMESTAMPTZ,
		has_cost BOOLEAN NOT NULL DEFAULT FALSE,
		cost_details TEXT NOT NULL DEFAULT '',
		online_info TEXT NOT NULL DEFAULT '',
		organizers TEXT NOT NULL DEFAULT '',
		observations TEXT NOT NULL DEFAULT '',
		program_details TEXT NOT NULL DEFAULT '',
		speaker_cvs TEXT NOT NULL DEFAULT '',
		codigos_requeridos INTEGER NOT NULL DEFAULT 0 CHECK (codigos_requeridos >= 0),
		status VARCHAR(20) NOT NULL,
		certificate_status VARCHAR(20) NOT NULL DEFAULT 'sin_solicitar',
		admin_comments TEXT NOT NULL DEFAULT '',
		rejection_reason TEXT NOT NULL DEFAULT '',
		user_id VARCHAR(255) NOT NULL,
		owner_email VARCHAR(255) NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS certificate_requests (
		id UUID PRIMARY KEY,
		event_id UUID NOT NULL REFERENCES events(id) ON DELETE CASCADE,
		requested_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		participants JSONB NOT NULL DEFAULT '[]',
		event_summary TEXT NOT NULL DEFAULT '',
		speakers JSONB NOT NULL DEFAULT '[]',
		committee JSONB NOT NULL DEFAULT '[]',
		processed_at TIMESTAMPTZ,
		rejection_reason TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE TABLE IF NOT EXISTS event_files (
		id UUID PRIMARY KEY,
		event_id UUID NOT NULL REFERENCES events(id) ON DELETE CASCADE,
		certificate_request_id UUID REFERENCES certificate_requests(id) ON DELETE CASCADE,
		kind VARCHAR(20) NOT NULL,
		file_name VARCHAR(255) NOT NULL,
		path TEXT NOT NULL,
		content_type VARCHAR(255) NOT NULL,
		size BIGINT NOT NULL,
		thumbnail_path TEXT NOT NULL DEFAULT '',
		uploaded_by VARCHAR(255) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	// Indexes
	`CREATE INDEX IF NOT EXISTS idx_events_status_created ON events(status, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_events_user_id ON events(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_events_program ON events(program)`,
	`CREATE INDEX IF NOT EXISTS idx_cert_requests_event ON certificate_requests(event_id, requested_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_cert_requests_status ON certificate_requests(status, requested_at)`,
	// at most one pending request per event
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_cert_requests_pending ON certificate_requests(event_id) WHERE status = 'pending'`,
	`CREATE INDEX IF NOT EXISTS idx_event_files_event ON event_files(event_id)`,
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	for i, migration := range migrations {
		if _, err := db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("failed to execute migration %d: %w", i, err)
		}
	}

	logrus.WithField("count", len(migrations)).Info("database migrations completed")
	return nil
}
