package repository

import (
	"context"
	"time"

	"github.com/ds124wfegd/uabc-events/internal/entity"
)

type EventRepository interface {
	Create(ctx context.Context, event *entity.Event) error
	GetByID(ctx context.Context, id string) (*entity.Event, error)

	// Update writes the editable fields and status of event, provided the
	// stored status still equals expected. Otherwise entity.ErrStateConflict.
	Update(ctx context.Context, event *entity.Event, expected entity.EventStatus) error
	// UpdateStatus is a compare-and-set on the review state.
	UpdateStatus(ctx context.Context, id string, from, to entity.EventStatus, adminComments, rejectionReason string) (*entity.Event, error)
	Delete(ctx context.Context, id string) error

	Search(ctx context.Context, filter entity.EventFilter) (*entity.EventPage, error)
	// ListByStatus returns events oldest first.
	ListByStatus(ctx context.Context, status entity.EventStatus) ([]*entity.Event, error)
	Statistics(ctx context.Context, since time.Time) (*entity.EventStatistics, error)
}

type CertificateRepository interface {
	// Create stores a pending request with its files and moves the event
	// certificate status from `from` to solicitadas, all or nothing.
	Create(ctx context.Context, req *entity.CertificateRequest, from entity.CertificateStatus) error
	GetByID(ctx context.Context, id string) (*entity.CertificateRequest, error)
	// ListPending returns pending requests oldest first.
	ListPending(ctx context.Context) ([]*entity.CertificateRequestWithEvent, error)
	// ListByEvent returns the requests of one event newest first.
	ListByEvent(ctx context.Context, eventID string) ([]*entity.CertificateRequest, error)

	// Approve marks a pending request approved and its event emitidas in one
	// transaction.
	Approve(ctx context.Context, id string, at time.Time) (*entity.CertificateRequest, error)
	Reject(ctx context.Context, id, reason string, at time.Time) (*entity.CertificateRequest, error)

	Statistics(ctx context.Context, since time.Time) (*entity.CertificateStatistics, error)
}

type FileRepository interface {
	Create(ctx context.Context, file *entity.EventFile) error
	GetByID(ctx context.Context, id string) (*entity.EventFile, error)
	// ListByEvent returns event-level files (not certificate attachments).
	ListByEvent(ctx context.Context, eventID string) ([]*entity.EventFile, error)
	Delete(ctx context.Context, id string) error
}
