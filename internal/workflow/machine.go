// Package workflow defines the event lifecycle and the certificate sub-state
// as transition tables.
package workflow

import (
	"fmt"

	"github.com/ds124wfegd/uabc-events/internal/entity"
)

type Action string

const (
	ActionCreate   Action = "create"
	ActionSave     Action = "save"
	ActionSubmit   Action = "submit"
	ActionApprove  Action = "approve"
	ActionReject   Action = "reject"
	ActionResubmit Action = "resubmit"
)

// InitialState chooses where a newly created event starts.
type InitialState string

const (
	// InitialDraft creates events in borrador; the owner submits them later.
	InitialDraft InitialState = "borrador"
	// InitialInReview creates events directly in en_revision and only
	// rejected events may be edited.
	InitialInReview InitialState = "en_revision"
)

func ParseInitialState(s string) (InitialState, error) {
	switch InitialState(s) {
	case "", InitialDraft:
		return InitialDraft, nil
	case InitialInReview:
		return InitialInReview, nil
	}
	return "", fmt.Errorf("unknown initial state %q", s)
}

type Machine struct {
	initial     InitialState
	transitions map[entity.EventStatus]map[Action]entity.EventStatus
	editable    map[entity.EventStatus]bool
}

func NewMachine(initial InitialState) *Machine {
	m := &Machine{
		initial: initial,
		transitions: map[entity.EventStatus]map[Action]entity.EventStatus{
			entity.EventStatusInReview: {
				ActionApprove: entity.EventStatusApproved,
				ActionReject:  entity.EventStatusRejected,
			},
			entity.EventStatusRejected: {
				ActionSave:     entity.EventStatusRejected,
				ActionResubmit: entity.EventStatusInReview,
			},
			entity.EventStatusApproved: {},
		},
		editable: map[entity.EventStatus]bool{
			entity.EventStatusRejected: true,
		},
	}

	if initial == InitialDraft {
		m.transitions[entity.EventStatusDraft] = map[Action]entity.EventStatus{
			ActionSave:   entity.EventStatusDraft,
			ActionSubmit: entity.EventStatusInReview,
		}
		m.editable[entity.EventStatusDraft] = true
	}

	return m
}

func (m *Machine) InitialState() InitialState {
	return m.initial
}

// Create returns the state of a new event. asDraft asks to keep it out of
// review, which the direct policy does not allow.
func (m *Machine) Create(asDraft bool) (entity.EventStatus, error) {
	switch {
	case m.initial == InitialInReview && asDraft:
		return "", &entity.StatePreconditionError{Entity: "event", Current: "new", Action: string(ActionSave)}
	case asDraft:
		return entity.EventStatusDraft, nil
	default:
		return entity.EventStatusInReview, nil
	}
}

// Next returns the state reached by applying action in from.
func (m *Machine) Next(from entity.EventStatus, action Action) (entity.EventStatus, error) {
	to, ok := m.transitions[from][action]
	if !ok {
		return "", &entity.StatePreconditionError{Entity: "event", Current: string(from), Action: string(action)}
	}
	return to, nil
}

// SubmitAction is the action that moves an editable event into review.
func (m *Machine) SubmitAction(from entity.EventStatus) Action {
	if from == entity.EventStatusRejected {
		return ActionResubmit
	}
	return ActionSubmit
}

func (m *Machine) CanEdit(status entity.EventStatus) bool {
	return m.editable[status]
}

func (m *Machine) AllowedActions(from entity.EventStatus) []Action {
	actions := make([]Action, 0, len(m.transitions[from]))
	for _, a := range []Action{ActionSave, ActionSubmit, ActionResubmit, ActionApprove, ActionReject} {
		if _, ok := m.transitions[from][a]; ok {
			actions = append(actions, a)
		}
	}
	return actions
}
