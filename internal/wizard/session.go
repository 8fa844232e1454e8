package wizard

import (
	"time"

	"github.com/ds124wfegd/uabc-events/internal/entity"
)

type Step int

const (
	StepEventData Step = 1
	StepProgram   Step = 2
	StepReview    Step = 3
)

func (s Step) String() string {
	switch s {
	case StepEventData:
		return "Datos del Evento"
	case StepProgram:
		return "Programa y Ponentes"
	case StepReview:
		return "Revisión"
	}
	return "desconocido"
}

// Session is the resumable state of one pass through the wizard. EventID is
// set when the wizard edits an existing event.
type Session struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	EventID   string            `json:"event_id,omitempty"`
	Step      Step              `json:"step"`
	Draft     entity.EventDraft `json:"draft"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func NewSession(id, userID string, now time.Time) *Session {
	return &Session{
		ID:        id,
		UserID:    userID,
		Step:      StepEventData,
		Draft:     entity.NewEventDraft(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// DraftFromEvent reopens a stored event in the wizard. The authorization
// attestation is not stored and has to be given again.
func DraftFromEvent(e *entity.Event, zoneID string) (entity.EventDraft, error) {
	start, err := InstantToLocalWallClock(e.StartDate, zoneID)
	if err != nil {
		return entity.EventDraft{}, err
	}
	end, err := InstantToLocalWallClock(e.EndDate, zoneID)
	if err != nil {
		return entity.EventDraft{}, err
	}
	return entity.EventDraft{
		Name:                e.Name,
		Responsible:         e.Responsible,
		Email:               e.Email,
		Phone:               e.Phone,
		Program:             e.Program,
		Type:                e.Type,
		Classification:      e.Classification,
		ClassificationOther: e.ClassificationOther,
		Modality:            e.Modality,
		Venue:               e.Venue,
		StartDate:           start,
		EndDate:             end,
		HasCost:             e.HasCost,
		CostDetails:         e.CostDetails,
		OnlineInfo:          e.OnlineInfo,
		Organizers:          e.Organizers,
		Observations:        e.Observations,
		ProgramDetails:      e.ProgramDetails,
		SpeakerCvs:          e.SpeakerCvs,
		CodigosRequeridos:   e.CodigosRequeridos,
	}, nil
}
