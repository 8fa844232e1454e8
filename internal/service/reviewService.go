package service

import (
	"context"
	"errors"
	"strings"

	repository "github.com/ds124wfegd/uabc-events/internal/database/postgres"
	"github.com/ds124wfegd/uabc-events/internal/entity"
	"github.com/ds124wfegd/uabc-events/internal/validation"
	"github.com/ds124wfegd/uabc-events/internal/workflow"
	"github.com/sirupsen/logrus"
)

const RuleDecisionAction = "decision_action"

type reviewService struct {
	eventRepo repository.EventRepository
	machine   *workflow.Machine
	engine    *validation.Engine
	notify    Notifications
}

func NewReviewService(
	eventRepo repository.EventRepository,
	machine *workflow.Machine,
	engine *validation.Engine,
	notify Notifications,
) ReviewService {
	return &reviewService{
		eventRepo: eventRepo,
		machine:   machine,
		engine:    engine,
		notify:    notify,
	}
}

func (s *reviewService) ListForReview(ctx context.Context, actor entity.Identity) ([]*entity.Event, error) {
	if err := requireAdmin(actor, "review"); err != nil {
		return nil, err
	}
	events, err := s.eventRepo.ListByStatus(ctx, entity.EventStatusInReview)
	if err != nil {
		return nil, storeError(err)
	}
	return events, nil
}

// Decide approves or rejects an event in review. The status change is a
// compare-and-set, so of two concurrent decisions only one wins. Notices are
// sent after the change is stored and never undo it.
func (s *reviewService) Decide(ctx context.Context, actor entity.Identity, req DecisionRequest) (*entity.Event, error) {
	if err := requireAdmin(actor, string(req.Action)); err != nil {
		return nil, err
	}
	if !req.Action.Valid() {
		return nil, entity.NewValidationError(RuleDecisionAction, "La acción debe ser approve o reject")
	}

	reason := strings.TrimSpace(req.Reason)
	if err := s.engine.CheckDecision(req.Action, reason); err != nil {
		return nil, err
	}

	event, err := s.eventRepo.GetByID(ctx, req.EventID)
	if err != nil {
		return nil, storeError(err)
	}

	action := workflow.ActionApprove
	if req.Action == entity.DecisionReject {
		action = workflow.ActionReject
	}
	to, err := s.machine.Next(event.Status, action)
	if err != nil {
		return nil, withID(err, event.ID)
	}

	if req.Action == entity.DecisionApprove {
		reason = ""
	}
	updated, err := s.eventRepo.UpdateStatus(ctx, event.ID, event.Status, to, strings.TrimSpace(req.Comments), reason)
	if errors.Is(err, entity.ErrStateConflict) {
		return nil, eventConflict(ctx, s.eventRepo, event.ID, string(action))
	}
	if err != nil {
		return nil, storeError(err)
	}

	logrus.WithFields(logrus.Fields{
		"event_id": updated.ID,
		"admin_id": actor.UserID,
		"decision": req.Action,
		"status":   updated.Status,
	}).Info("review decision stored")

	s.notify.Lifecycle(ctx, updated, string(action))
	switch updated.Status {
	case entity.EventStatusApproved:
		s.notify.EventApproved(ctx, updated)
	case entity.EventStatusRejected:
		s.notify.EventRejected(ctx, updated)
	}
	return updated, nil
}
