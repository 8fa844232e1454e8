package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	repository "github.com/ds124wfegd/uabc-events/internal/database/postgres"
	"github.com/ds124wfegd/uabc-events/internal/entity"
	"github.com/ds124wfegd/uabc-events/internal/workflow"
	"github.com/ds124wfegd/uabc-events/pkg/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	MaxSummaryWords  = 250
	DefaultMaxPhotos = 10
	DefaultThumbPx   = 320
)

const (
	RuleSummaryRequired    = "event_summary_required"
	RuleSummaryLength      = "event_summary_max_words"
	RuleSpeakersRequired   = "speakers_required"
	RuleCommitteeRequired  = "committee_required"
	RuleAttendanceRequired = "attendance_required"
	RulePhotoLimit         = "photo_limit"
	RulePhotoInvalid       = "photo_invalid"
)

type CertificateSettings struct {
	MaxFileSize int64
	MaxPhotos   int
	ThumbnailPx int
}

type certificateService struct {
	eventRepo repository.EventRepository
	certRepo  repository.CertificateRepository
	blobs     BlobStore
	notify    Notifications
	settings  CertificateSettings
	now       func() time.Time
}

func NewCertificateService(
	eventRepo repository.EventRepository,
	certRepo repository.CertificateRepository,
	blobs BlobStore,
	notify Notifications,
	settings CertificateSettings,
) CertificateService {
	if settings.MaxFileSize <= 0 {
		settings.MaxFileSize = storage.MaxFileSize
	}
	if settings.MaxPhotos <= 0 {
		settings.MaxPhotos = DefaultMaxPhotos
	}
	if settings.ThumbnailPx <= 0 {
		settings.ThumbnailPx = DefaultThumbPx
	}
	return &certificateService{
		eventRepo: eventRepo,
		certRepo:  certRepo,
		blobs:     blobs,
		notify:    notify,
		settings:  settings,
		now:       time.Now,
	}
}

// RequestCertificates files a certificate request for an approved event. The
// request, its files and the event's move to solicitadas are stored together;
// uploaded blobs are removed again if that fails.
func (s *certificateService) RequestCertificates(ctx context.Context, actor entity.Identity, eventID string, in CertificateInput) (*entity.CertificateRequest, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, storeError(err)
	}
	if err := requireOwner(actor, event, string(workflow.CertificateRequest)); err != nil {
		return nil, err
	}

	previous, err := s.certRepo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, storeError(err)
	}
	action, err := workflow.RequestAction(event, previous)
	if err != nil {
		return nil, err
	}
	if _, err := workflow.NextCertificateStatus(event, action); err != nil {
		return nil, err
	}

	if err := s.checkInput(in); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	req := &entity.CertificateRequest{
		ID:           uuid.NewString(),
		EventID:      event.ID,
		RequestedAt:  now,
		Status:       entity.CertificateRequestPending,
		Participants: in.Participants,
		EventSummary: strings.TrimSpace(in.EventSummary),
		Speakers:     in.Speakers,
		Committee:    in.Committee,
	}

	if err := s.uploadFiles(ctx, actor, event, req, in, now); err != nil {
		s.discard(req.Files)
		return nil, err
	}

	if err := s.certRepo.Create(ctx, req, event.CertificateStatus); err != nil {
		s.discard(req.Files)
		if errors.Is(err, entity.ErrStateConflict) {
			return nil, &entity.StatePreconditionError{Entity: "event", ID: event.ID, Current: string(event.CertificateStatus), Action: string(action)}
		}
		return nil, storeError(err)
	}

	event.CertificateStatus = entity.CertificateStatusRequested
	logrus.WithFields(logrus.Fields{
		"event_id":   event.ID,
		"request_id": req.ID,
		"action":     action,
		"files":      len(req.Files),
	}).Info("certificate request created")

	s.notify.Lifecycle(ctx, event, string(action))
	s.notify.CertificatesRequested(ctx, event, req)
	return req, nil
}

func (s *certificateService) checkInput(in CertificateInput) error {
	ve := &entity.ValidationError{}
	add := func(rule, msg string) {
		ve.Failures = append(ve.Failures, entity.FieldError{Rule: rule, Message: msg})
	}

	summary := strings.TrimSpace(in.EventSummary)
	if summary == "" {
		add(RuleSummaryRequired, "El resumen del evento es requerido")
	} else if n := len(strings.Fields(summary)); n > MaxSummaryWords {
		add(RuleSummaryLength, fmt.Sprintf("El resumen no debe exceder %d palabras (%d)", MaxSummaryWords, n))
	}
	if !completePeople(in.Speakers) {
		add(RuleSpeakersRequired, "Debe registrar al menos un ponente con nombre y rol")
	}
	if !completePeople(in.Committee) {
		add(RuleCommitteeRequired, "Debe registrar al menos un miembro del comité con nombre y rol")
	}

	if in.Attendance == nil {
		add(RuleAttendanceRequired, "La lista de asistencia es requerida")
	} else if err := checkUpload(*in.Attendance, storage.AttendanceTypes, s.settings.MaxFileSize); err != nil {
		var fe *entity.ValidationError
		if errors.As(err, &fe) {
			ve.Failures = append(ve.Failures, fe.Failures...)
		}
	}

	if len(in.Photos) > s.settings.MaxPhotos {
		add(RulePhotoLimit, fmt.Sprintf("Se permiten máximo %d fotografías", s.settings.MaxPhotos))
	}
	for _, p := range in.Photos {
		if !storage.IsImage(p.ContentType) {
			add(RuleFileType, fmt.Sprintf("%s no es una imagen", p.FileName))
		} else if p.Size > s.settings.MaxFileSize {
			add(RuleFileSize, fmt.Sprintf("La fotografía %s excede el tamaño máximo", p.FileName))
		}
	}

	if len(ve.Failures) > 0 {
		return ve
	}
	return nil
}

func completePeople(people []entity.Person) bool {
	if len(people) == 0 {
		return false
	}
	for _, p := range people {
		if strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.Role) == "" {
			return false
		}
	}
	return true
}

func (s *certificateService) uploadFiles(ctx context.Context, actor entity.Identity, event *entity.Event, req *entity.CertificateRequest, in CertificateInput, now time.Time) error {
	newFile := func(kind entity.FileKind, name, contentType string) *entity.EventFile {
		return &entity.EventFile{
			ID:                   uuid.NewString(),
			EventID:              event.ID,
			CertificateRequestID: req.ID,
			Kind:                 kind,
			FileName:             name,
			Path:                 storage.ObjectPath(event.UserID, event.ID, string(kind), now, name),
			ContentType:          contentType,
			UploadedBy:           actor.UserID,
			CreatedAt:            now,
		}
	}

	att := newFile(entity.FileKindAttendance, in.Attendance.FileName, in.Attendance.ContentType)
	size, err := uploadLimited(ctx, s.blobs, att.Path, in.Attendance.Reader, s.settings.MaxFileSize)
	if err != nil {
		return err
	}
	att.Size = size
	req.Files = append(req.Files, att)

	for i, p := range in.Photos {
		photo := newFile(entity.FileKindPhoto, p.FileName, p.ContentType)
		// photos uploaded in the same millisecond need distinct paths
		photo.Path = storage.ObjectPath(event.UserID, event.ID, string(entity.FileKindPhoto), now.Add(time.Duration(i)*time.Millisecond), p.FileName)

		data, err := io.ReadAll(io.LimitReader(p.Reader, s.settings.MaxFileSize+1))
		if err != nil {
			return fmt.Errorf("read photo %s: %w", p.FileName, err)
		}
		if int64(len(data)) > s.settings.MaxFileSize {
			return entity.NewValidationError(RuleFileSize, fmt.Sprintf("La fotografía %s excede el tamaño máximo", p.FileName))
		}

		thumb, err := storage.Thumbnail(bytes.NewReader(data), s.settings.ThumbnailPx)
		if err != nil {
			return entity.NewValidationError(RulePhotoInvalid, fmt.Sprintf("La fotografía %s no es una imagen válida", p.FileName))
		}

		if _, err := s.blobs.Upload(ctx, photo.Path, bytes.NewReader(data)); err != nil {
			return blobError(err)
		}
		photo.Size = int64(len(data))
		req.Files = append(req.Files, photo)

		thumbPath := photo.Path + ".thumb.jpg"
		if _, err := s.blobs.Upload(ctx, thumbPath, bytes.NewReader(thumb)); err != nil {
			return blobError(err)
		}
		photo.ThumbnailPath = thumbPath
	}
	return nil
}

func (s *certificateService) discard(files []*entity.EventFile) {
	for _, f := range files {
		removeBlob(s.blobs, f)
	}
}

func (s *certificateService) ListPending(ctx context.Context, actor entity.Identity) ([]*entity.CertificateRequestWithEvent, error) {
	if err := requireAdmin(actor, "list_certificate_requests"); err != nil {
		return nil, err
	}
	items, err := s.certRepo.ListPending(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	return items, nil
}

func (s *certificateService) ListForEvent(ctx context.Context, actor entity.Identity, eventID string) ([]*entity.CertificateRequest, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, storeError(err)
	}
	if err := requireOwnerOrAdmin(actor, event, "list_certificate_requests"); err != nil {
		return nil, err
	}
	items, err := s.certRepo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, storeError(err)
	}
	return items, nil
}

// Approve resolves a pending request and issues the event's certificates in
// one transaction.
func (s *certificateService) Approve(ctx context.Context, actor entity.Identity, id string) (*entity.CertificateRequest, error) {
	if err := requireAdmin(actor, string(entity.CertificateRequestApproved)); err != nil {
		return nil, err
	}

	req, event, err := s.pending(ctx, id, entity.CertificateRequestApproved)
	if err != nil {
		return nil, err
	}
	if _, err := workflow.NextCertificateStatus(event, workflow.CertificateIssue); err != nil {
		return nil, err
	}

	approved, err := s.certRepo.Approve(ctx, id, s.now().UTC())
	if err != nil {
		return nil, s.resolveError(ctx, err, id, entity.CertificateRequestApproved)
	}
	approved.Files = req.Files
	event.CertificateStatus = entity.CertificateStatusIssued

	logrus.WithFields(logrus.Fields{
		"event_id":   event.ID,
		"request_id": id,
		"admin_id":   actor.UserID,
	}).Info("certificate request approved")

	s.notify.Lifecycle(ctx, event, string(workflow.CertificateIssue))
	s.notify.CertificatesApproved(ctx, event, approved)
	return approved, nil
}

// Reject resolves a pending request. The reason is optional; a blank one is
// stored empty. The event stays solicitadas so the organizer can file a
// corrected request.
func (s *certificateService) Reject(ctx context.Context, actor entity.Identity, id, reason string) (*entity.CertificateRequest, error) {
	if err := requireAdmin(actor, string(entity.CertificateRequestRejected)); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)

	req, event, err := s.pending(ctx, id, entity.CertificateRequestRejected)
	if err != nil {
		return nil, err
	}

	rejected, err := s.certRepo.Reject(ctx, id, reason, s.now().UTC())
	if err != nil {
		return nil, s.resolveError(ctx, err, id, entity.CertificateRequestRejected)
	}
	rejected.Files = req.Files

	logrus.WithFields(logrus.Fields{
		"event_id":   event.ID,
		"request_id": id,
		"admin_id":   actor.UserID,
	}).Info("certificate request rejected")

	s.notify.CertificatesRejected(ctx, event, rejected)
	return rejected, nil
}

func (s *certificateService) pending(ctx context.Context, id string, to entity.CertificateRequestStatus) (*entity.CertificateRequest, *entity.Event, error) {
	req, err := s.certRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, storeError(err)
	}
	if err := workflow.ResolveRequest(req, to); err != nil {
		return nil, nil, err
	}
	event, err := s.eventRepo.GetByID(ctx, req.EventID)
	if err != nil {
		return nil, nil, storeError(err)
	}
	return req, event, nil
}

func (s *certificateService) resolveError(ctx context.Context, err error, id string, to entity.CertificateRequestStatus) error {
	if !errors.Is(err, entity.ErrStateConflict) {
		return storeError(err)
	}
	current := "changed"
	if req, gerr := s.certRepo.GetByID(ctx, id); gerr == nil {
		current = string(req.Status)
	}
	return &entity.StatePreconditionError{Entity: "certificate_request", ID: id, Current: current, Action: string(to)}
}
