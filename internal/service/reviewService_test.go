package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ds124wfegd/uabc-events/internal/entity"
	"github.com/ds124wfegd/uabc-events/internal/validation"
	"github.com/ds124wfegd/uabc-events/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) reviewService(notify Notifications) ReviewService {
	if notify == nil {
		notify = f.notes
	}
	return NewReviewService(f.events, f.machine, f.engine, notify)
}

func TestDecide(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		status      entity.EventStatus
		actor       entity.Identity
		req         DecisionRequest
		wantStatus  entity.EventStatus
		wantNotices []string
		wantErr     interface{}
		wantRule    string
	}{
		{
			name:        "approve",
			status:      entity.EventStatusInReview,
			actor:       admin,
			req:         DecisionRequest{Action: entity.DecisionApprove, Comments: "  Listo "},
			wantStatus:  entity.EventStatusApproved,
			wantNotices: []string{"lifecycle:approve", "approved"},
		},
		{
			name:        "reject with reason",
			status:      entity.EventStatusInReview,
			actor:       admin,
			req:         DecisionRequest{Action: entity.DecisionReject, Reason: "Falta el programa"},
			wantStatus:  entity.EventStatusRejected,
			wantNotices: []string{"lifecycle:reject", "rejected"},
		},
		{
			name:     "reject without reason",
			status:   entity.EventStatusInReview,
			actor:    admin,
			req:      DecisionRequest{Action: entity.DecisionReject, Reason: "   "},
			wantErr:  &entity.ValidationError{},
			wantRule: validation.RuleRejectionReasonRequired,
		},
		{
			name:     "unknown action",
			status:   entity.EventStatusInReview,
			actor:    admin,
			req:      DecisionRequest{Action: "maybe"},
			wantErr:  &entity.ValidationError{},
			wantRule: RuleDecisionAction,
		},
		{
			name:    "organizer cannot decide",
			status:  entity.EventStatusInReview,
			actor:   organizer,
			req:     DecisionRequest{Action: entity.DecisionApprove},
			wantErr: &entity.AuthorizationError{},
		},
		{
			name:    "draft is not reviewable",
			status:  entity.EventStatusDraft,
			actor:   admin,
			req:     DecisionRequest{Action: entity.DecisionApprove},
			wantErr: &entity.StatePreconditionError{},
		},
		{
			name:    "already approved",
			status:  entity.EventStatusApproved,
			actor:   admin,
			req:     DecisionRequest{Action: entity.DecisionReject, Reason: "Cambio de opinión"},
			wantErr: &entity.StatePreconditionError{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(workflow.InitialDraft, storedEvent("evt-1", tt.status))
			tt.req.EventID = "evt-1"

			event, err := f.reviewService(nil).Decide(ctx, tt.actor, tt.req)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.IsType(t, tt.wantErr, err)
				if tt.wantRule != "" {
					assert.True(t, err.(*entity.ValidationError).Has(tt.wantRule))
				}
				assert.Equal(t, tt.status, f.events.get("evt-1").Status)
				assert.Empty(t, f.notes.kinds())
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, event.Status)
			assert.Equal(t, tt.wantStatus, f.events.get("evt-1").Status)
			assert.Equal(t, tt.wantNotices, f.notes.kinds())
		})
	}
}

func TestDecideStoresCommentsAndReason(t *testing.T) {
	ctx := context.Background()
	f := newFixture(workflow.InitialDraft, storedEvent("evt-1", entity.EventStatusInReview))
	svc := f.reviewService(nil)

	_, err := svc.Decide(ctx, admin, DecisionRequest{EventID: "evt-1", Action: entity.DecisionReject, Reason: " Falta el programa ", Comments: "Revisar"})
	require.NoError(t, err)
	stored := f.events.get("evt-1")
	assert.Equal(t, "Falta el programa", stored.RejectionReason)
	assert.Equal(t, "Revisar", stored.AdminComments)
}

// A notifier that always fails must not undo the approval, and each
// approval notice is attempted exactly once.
func TestDecideApprovalSurvivesNotifierFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(workflow.InitialDraft, storedEvent("evt-1", entity.EventStatusInReview))

	notifier := &recordingNotifier{err: errors.New("smtp unavailable")}
	dispatcher := NewDispatcher(notifier, nil, NotificationSettings{
		AdminEmail: "admin@uabc.edu.mx",
		CodesEmail: "codigos@uabc.edu.mx",
	})

	event, err := f.reviewService(dispatcher).Decide(ctx, admin, DecisionRequest{EventID: "evt-1", Action: entity.DecisionApprove})
	require.NoError(t, err)
	assert.Equal(t, entity.EventStatusApproved, event.Status)
	assert.Equal(t, entity.EventStatusApproved, f.events.get("evt-1").Status)

	require.Len(t, notifier.messages, 2)
	assert.Equal(t, "contacto@uabc.edu.mx", notifier.messages[0].To)
	assert.Equal(t, "codigos@uabc.edu.mx", notifier.messages[1].To)
}

func TestDecideConcurrentApprovals(t *testing.T) {
	ctx := context.Background()
	f := newFixture(workflow.InitialDraft, storedEvent("evt-1", entity.EventStatusInReview))
	svc := f.reviewService(nil)

	const admins = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < admins; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Decide(ctx, admin, DecisionRequest{EventID: "evt-1", Action: entity.DecisionApprove})
			mu.Lock()
			defer mu.Unlock()
			var pre *entity.StatePreconditionError
			switch {
			case err == nil:
				succeeded++
			case errors.As(err, &pre):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, admins-1, conflicts)
	assert.Equal(t, 1, f.notes.count("approved"))
}

func TestListForReview(t *testing.T) {
	ctx := context.Background()
	f := newFixture(workflow.InitialDraft,
		storedEvent("evt-1", entity.EventStatusInReview),
		storedEvent("evt-2", entity.EventStatusDraft),
	)
	svc := f.reviewService(nil)

	_, err := svc.ListForReview(ctx, organizer)
	assert.IsType(t, &entity.AuthorizationError{}, err)

	events, err := svc.ListForReview(ctx, admin)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "evt-1", events[0].ID)
}
