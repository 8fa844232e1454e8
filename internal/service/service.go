package service

import (
	"context"
	"io"
	"time"

	"github.com/ds124wfegd/uabc-events/internal/entity"
	"github.com/ds124wfegd/uabc-events/internal/wizard"
	"github.com/ds124wfegd/uabc-events/pkg/queue"
)

// EventService owns the event lifecycle outside of admin review.
type EventService interface {
	CreateEvent(ctx context.Context, actor entity.Identity, data *entity.EventData, asDraft bool) (*entity.Event, error)
	// UpdateEvent saves organizer edits without leaving the current state.
	UpdateEvent(ctx context.Context, actor entity.Identity, id string, data *entity.EventData) (*entity.Event, error)
	SubmitForReview(ctx context.Context, actor entity.Identity, id string) (*entity.Event, error)
	GetEvent(ctx context.Context, actor entity.Identity, id string) (*entity.Event, error)
	ListEvents(ctx context.Context, actor entity.Identity, filter entity.EventFilter) (*entity.EventPage, error)
	DeleteEvent(ctx context.Context, actor entity.Identity, id string) error
	GetStatistics(ctx context.Context, actor entity.Identity) (*entity.Statistics, error)
}

type FileService interface {
	AttachFile(ctx context.Context, actor entity.Identity, eventID string, upload FileUpload) (*entity.EventFile, error)
	ListFiles(ctx context.Context, actor entity.Identity, eventID string) ([]*entity.EventFile, error)
	FileURL(ctx context.Context, actor entity.Identity, eventID, fileID string) (*SignedLink, error)
	DeleteFile(ctx context.Context, actor entity.Identity, eventID, fileID string) error
}

type ReviewService interface {
	// ListForReview returns events awaiting a decision, oldest first.
	ListForReview(ctx context.Context, actor entity.Identity) ([]*entity.Event, error)
	Decide(ctx context.Context, actor entity.Identity, req DecisionRequest) (*entity.Event, error)
}

type CertificateService interface {
	RequestCertificates(ctx context.Context, actor entity.Identity, eventID string, in CertificateInput) (*entity.CertificateRequest, error)
	ListPending(ctx context.Context, actor entity.Identity) ([]*entity.CertificateRequestWithEvent, error)
	ListForEvent(ctx context.Context, actor entity.Identity, eventID string) ([]*entity.CertificateRequest, error)
	Approve(ctx context.Context, actor entity.Identity, id string) (*entity.CertificateRequest, error)
	Reject(ctx context.Context, actor entity.Identity, id, reason string) (*entity.CertificateRequest, error)
}

type WizardService interface {
	// Start opens a session. A non-empty eventID reopens that event for editing.
	Start(ctx context.Context, actor entity.Identity, eventID string) (*wizard.Session, error)
	Get(ctx context.Context, actor entity.Identity, id string) (*wizard.Session, error)
	UpdateDraft(ctx context.Context, actor entity.Identity, id string, draft entity.EventDraft) (*wizard.Session, error)
	Advance(ctx context.Context, actor entity.Identity, id string) (*wizard.Session, wizard.AdvanceResult, error)
	Retreat(ctx context.Context, actor entity.Identity, id string) (*wizard.Session, error)
	Finalize(ctx context.Context, actor entity.Identity, id string, asDraft bool) (*entity.Event, error)
}

// FailedNotificationService exposes the dead-letter queue to administrators.
type FailedNotificationService interface {
	List(ctx context.Context, actor entity.Identity, limit int) ([]*queue.FailedTask, error)
	Stats(ctx context.Context, actor entity.Identity) (*queue.DLQStats, error)
	Requeue(ctx context.Context, actor entity.Identity, taskID string) error
	Delete(ctx context.Context, actor entity.Identity, taskID string) error
}

// Notifications are best effort: failures are logged and never returned.
type Notifications interface {
	EventSubmitted(ctx context.Context, event *entity.Event, submitter entity.Identity)
	EventApproved(ctx context.Context, event *entity.Event)
	EventRejected(ctx context.Context, event *entity.Event)
	CertificatesRequested(ctx context.Context, event *entity.Event, req *entity.CertificateRequest)
	CertificatesApproved(ctx context.Context, event *entity.Event, req *entity.CertificateRequest)
	CertificatesRejected(ctx context.Context, event *entity.Event, req *entity.CertificateRequest)
	// Lifecycle records a state change on the event stream.
	Lifecycle(ctx context.Context, event *entity.Event, action string)
}

// Notifier delivers one message.
type Notifier interface {
	Send(ctx context.Context, msg entity.Message) error
}

type BlobStore interface {
	Upload(ctx context.Context, path string, r io.Reader) (int64, error)
	SignedURL(path string) (string, time.Time, error)
	Delete(path string) error
}

type WizardSessionStore interface {
	Save(ctx context.Context, s *wizard.Session) error
	Get(ctx context.Context, id string) (*wizard.Session, error)
	Delete(ctx context.Context, id string) error
}

// FileUpload is one file received from a client.
type FileUpload struct {
	Kind        entity.FileKind
	FileName    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

type SignedLink struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type DecisionRequest struct {
	EventID  string                `json:"-"`
	Action   entity.DecisionAction `json:"action" binding:"required"`
	Comments string                `json:"comments"`
	Reason   string                `json:"reason"`
}

// CertificateInput is what an organizer sends to request certificates.
type CertificateInput struct {
	Participants []entity.Participant `json:"participants"`
	EventSummary string               `json:"event_summary"`
	Speakers     []entity.Person      `json:"speakers"`
	Committee    []entity.Person      `json:"committee"`
	Attendance   *FileUpload          `json:"-"`
	Photos       []FileUpload         `json:"-"`
}
