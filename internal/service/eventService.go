package service

import (
	"context"
	"errors"
	"time"

	repository "github.com/ds124wfegd/uabc-events/internal/database/postgres"
	"github.com/ds124wfegd/uabc-events/internal/entity"
	"github.com/ds124wfegd/uabc-events/internal/validation"
	"github.com/ds124wfegd/uabc-events/internal/workflow"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const statisticsWindow = 30 * 24 * time.Hour

type eventService struct {
	eventRepo repository.EventRepository
	certRepo  repository.CertificateRepository
	fileRepo  repository.FileRepository
	blobs     BlobStore
	machine   *workflow.Machine
	engine    *validation.Engine
	notify    Notifications
	now       func() time.Time
}

func NewEventService(
	eventRepo repository.EventRepository,
	certRepo repository.CertificateRepository,
	fileRepo repository.FileRepository,
	blobs BlobStore,
	machine *workflow.Machine,
	engine *validation.Engine,
	notify Notifications,
) EventService {
	return &eventService{
		eventRepo: eventRepo,
		certRepo:  certRepo,
		fileRepo:  fileRepo,
		blobs:     blobs,
		machine:   machine,
		engine:    engine,
		notify:    notify,
		now:       time.Now,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, actor entity.Identity, data *entity.EventData, asDraft bool) (*entity.Event, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}

	status, err := s.machine.Create(asDraft)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	stage := validation.StageDraft
	if status == entity.EventStatusInReview {
		stage = validation.StageSubmit
	}
	if err := s.engine.Check(stage, data, validation.Gates{}, now).Err(); err != nil {
		return nil, err
	}

	event := &entity.Event{
		ID:                uuid.NewString(),
		EventData:         *data,
		Status:            status,
		CertificateStatus: entity.CertificateStatusNotRequested,
		UserID:            actor.UserID,
		OwnerEmail:        actor.Email,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, storeError(err)
	}

	logrus.WithFields(logrus.Fields{
		"event_id": event.ID,
		"user_id":  actor.UserID,
		"status":   event.Status,
	}).Info("event created")

	s.notify.Lifecycle(ctx, event, string(workflow.ActionCreate))
	if event.Status == entity.EventStatusInReview {
		s.notify.EventSubmitted(ctx, event, actor)
	}
	return event, nil
}

func (s *eventService) UpdateEvent(ctx context.Context, actor entity.Identity, id string, data *entity.EventData) (*entity.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	if err := requireOwner(actor, event, string(workflow.ActionSave)); err != nil {
		return nil, err
	}

	from := event.Status
	to, err := s.machine.Next(from, workflow.ActionSave)
	if err != nil {
		return nil, withID(err, event.ID)
	}

	now := s.now().UTC()
	if err := s.engine.Check(validation.StageDraft, data, validation.Gates{}, now).Err(); err != nil {
		return nil, err
	}

	event.EventData = *data
	event.Status = to
	event.UpdatedAt = now

	if err := s.eventRepo.Update(ctx, event, from); err != nil {
		return nil, s.stateError(ctx, err, id, workflow.ActionSave)
	}
	return event, nil
}

// SubmitForReview moves a draft or rejected event into review after the
// authoritative submit rules pass. Only the first submission of a draft
// sends the new-event notice.
func (s *eventService) SubmitForReview(ctx context.Context, actor entity.Identity, id string) (*entity.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}

	from := event.Status
	action := s.machine.SubmitAction(from)
	if err := requireOwner(actor, event, string(action)); err != nil {
		return nil, err
	}

	to, err := s.machine.Next(from, action)
	if err != nil {
		return nil, withID(err, event.ID)
	}

	now := s.now().UTC()
	if err := s.engine.Check(validation.StageSubmit, &event.EventData, validation.Gates{}, now).Err(); err != nil {
		return nil, err
	}

	event.Status = to
	event.RejectionReason = ""
	event.UpdatedAt = now

	if err := s.eventRepo.Update(ctx, event, from); err != nil {
		return nil, s.stateError(ctx, err, id, action)
	}

	logrus.WithFields(logrus.Fields{
		"event_id": event.ID,
		"from":     from,
		"to":       to,
	}).Info("event submitted for review")

	s.notify.Lifecycle(ctx, event, string(action))
	if from == entity.EventStatusDraft {
		s.notify.EventSubmitted(ctx, event, actor)
	}
	return event, nil
}

func (s *eventService) GetEvent(ctx context.Context, actor entity.Identity, id string) (*entity.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	if err := requireOwnerOrAdmin(actor, event, "view"); err != nil {
		return nil, err
	}
	return event, nil
}

// ListEvents searches events. Organizers only ever see their own.
func (s *eventService) ListEvents(ctx context.Context, actor entity.Identity, filter entity.EventFilter) (*entity.EventPage, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		filter.UserID = actor.UserID
	}
	page, err := s.eventRepo.Search(ctx, filter)
	if err != nil {
		return nil, storeError(err)
	}
	return page, nil
}

// DeleteEvent removes an event. Owners may delete while the event is still
// editable; administrators may delete any event.
func (s *eventService) DeleteEvent(ctx context.Context, actor entity.Identity, id string) error {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return storeError(err)
	}
	if err := requireOwnerOrAdmin(actor, event, "delete"); err != nil {
		return err
	}
	if !actor.IsAdmin() && !s.machine.CanEdit(event.Status) {
		return &entity.StatePreconditionError{Entity: "event", ID: id, Current: string(event.Status), Action: "delete"}
	}

	files, err := s.attachedFiles(ctx, id)
	if err != nil {
		return err
	}

	if err := s.eventRepo.Delete(ctx, id); err != nil {
		return storeError(err)
	}

	for _, f := range files {
		removeBlob(s.blobs, f)
	}

	logrus.WithFields(logrus.Fields{
		"event_id": id,
		"user_id":  actor.UserID,
		"files":    len(files),
	}).Info("event deleted")
	return nil
}

// attachedFiles lists event files and certificate attachments.
func (s *eventService) attachedFiles(ctx context.Context, eventID string) ([]*entity.EventFile, error) {
	files, err := s.fileRepo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, storeError(err)
	}
	requests, err := s.certRepo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, storeError(err)
	}
	for _, r := range requests {
		full, err := s.certRepo.GetByID(ctx, r.ID)
		if err != nil {
			return nil, storeError(err)
		}
		files = append(files, full.Files...)
	}
	return files, nil
}

func (s *eventService) GetStatistics(ctx context.Context, actor entity.Identity) (*entity.Statistics, error) {
	if err := requireAdmin(actor, "statistics"); err != nil {
		return nil, err
	}

	since := s.now().UTC().Add(-statisticsWindow)
	events, err := s.eventRepo.Statistics(ctx, since)
	if err != nil {
		return nil, storeError(err)
	}
	certs, err := s.certRepo.Statistics(ctx, since)
	if err != nil {
		return nil, storeError(err)
	}
	return &entity.Statistics{Events: *events, Certificates: *certs, Since: since}, nil
}

// stateError turns a lost compare-and-set into a precondition failure that
// names the state the event is in now.
func (s *eventService) stateError(ctx context.Context, err error, id string, action workflow.Action) error {
	if !errors.Is(err, entity.ErrStateConflict) {
		return storeError(err)
	}
	return eventConflict(ctx, s.eventRepo, id, string(action))
}

func eventConflict(ctx context.Context, repo repository.EventRepository, id, action string) error {
	current := "changed"
	if event, err := repo.GetByID(ctx, id); err == nil {
		current = string(event.Status)
	}
	return &entity.StatePreconditionError{Entity: "event", ID: id, Current: current, Action: action}
}

// withID fills in the record id on errors raised by the state tables.
func withID(err error, id string) error {
	var pre *entity.StatePreconditionError
	if errors.As(err, &pre) && pre.ID == "" {
		pre.ID = id
	}
	return err
}

func removeBlob(blobs BlobStore, f *entity.EventFile) {
	for _, path := range []string{f.Path, f.ThumbnailPath} {
		if path == "" {
			continue
		}
		if err := blobs.Delete(path); err != nil {
			logrus.WithFields(logrus.Fields{
				"file_id": f.ID,
				"path":    path,
			}).WithError(err).Warn("failed to delete stored file")
		}
	}
}
