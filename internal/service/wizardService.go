package service

import (
	"context"
	"time"

	repository "github.com/ds124wfegd/uabc-events/internal/database/postgres"
	"github.com/ds124wfegd/uabc-events/internal/entity"
	"github.com/ds124wfegd/uabc-events/internal/wizard"
	"github.com/ds124wfegd/uabc-events/internal/workflow"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type wizardService struct {
	sessions   WizardSessionStore
	controller *wizard.Controller
	events     EventService
	eventRepo  repository.EventRepository
	machine    *workflow.Machine
	now        func() time.Time
}

func NewWizardService(
	sessions WizardSessionStore,
	controller *wizard.Controller,
	events EventService,
	eventRepo repository.EventRepository,
	machine *workflow.Machine,
) WizardService {
	return &wizardService{
		sessions:   sessions,
		controller: controller,
		events:     events,
		eventRepo:  eventRepo,
		machine:    machine,
		now:        time.Now,
	}
}

func (s *wizardService) Start(ctx context.Context, actor entity.Identity, eventID string) (*wizard.Session, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}

	session := wizard.NewSession(uuid.NewString(), actor.UserID, s.now().UTC())

	if eventID != "" {
		event, err := s.eventRepo.GetByID(ctx, eventID)
		if err != nil {
			return nil, storeError(err)
		}
		if err := requireOwner(actor, event, string(workflow.ActionSave)); err != nil {
			return nil, err
		}
		if !s.machine.CanEdit(event.Status) {
			return nil, &entity.StatePreconditionError{Entity: "event", ID: eventID, Current: string(event.Status), Action: string(workflow.ActionSave)}
		}
		draft, err := wizard.DraftFromEvent(event, s.controller.Zone())
		if err != nil {
			return nil, err
		}
		session.EventID = event.ID
		session.Draft = draft
	}

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, storeError(err)
	}
	return session, nil
}

func (s *wizardService) Get(ctx context.Context, actor entity.Identity, id string) (*wizard.Session, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	session, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	if session.UserID != actor.UserID {
		return nil, &entity.AuthorizationError{Action: "wizard", Reason: "session belongs to another user"}
	}
	return session, nil
}

// UpdateDraft replaces the form contents without moving between steps.
func (s *wizardService) UpdateDraft(ctx context.Context, actor entity.Identity, id string, draft entity.EventDraft) (*wizard.Session, error) {
	session, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	session.Draft = draft
	session.UpdatedAt = s.now().UTC()
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, storeError(err)
	}
	return session, nil
}

func (s *wizardService) Advance(ctx context.Context, actor entity.Identity, id string) (*wizard.Session, wizard.AdvanceResult, error) {
	session, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, wizard.AdvanceResult{}, err
	}

	result, err := s.controller.Advance(session)
	if err != nil {
		return nil, result, err
	}
	if result.Advanced {
		if err := s.sessions.Save(ctx, session); err != nil {
			return nil, result, storeError(err)
		}
	}
	return session, result, nil
}

func (s *wizardService) Retreat(ctx context.Context, actor entity.Identity, id string) (*wizard.Session, error) {
	session, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.controller.Retreat(session); err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, storeError(err)
	}
	return session, nil
}

// Finalize turns the review step into a stored event: a new one, or the
// event the session was opened for. The session is closed on success.
func (s *wizardService) Finalize(ctx context.Context, actor entity.Identity, id string, asDraft bool) (*entity.Event, error) {
	session, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	data, err := s.controller.Finalize(session, asDraft)
	if err != nil {
		return nil, err
	}

	var event *entity.Event
	if session.EventID == "" {
		event, err = s.events.CreateEvent(ctx, actor, data, asDraft)
	} else {
		event, err = s.events.UpdateEvent(ctx, actor, session.EventID, data)
		if err == nil && !asDraft {
			event, err = s.events.SubmitForReview(ctx, actor, session.EventID)
		}
	}
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Delete(ctx, session.ID); err != nil {
		logrus.WithField("session_id", session.ID).WithError(err).Warn("failed to close wizard session")
	}
	return event, nil
}
