// Package wizard drives the three-step event registration form without a UI:
// event data, program and speakers, then a read-only review.
package wizard

import (
	"fmt"
	"strings"
	"time"

	"github.com/ds124wfegd/uabc-events/internal/entity"
	"github.com/ds124wfegd/uabc-events/internal/validation"
)

// AdvanceResult reports the outcome of a request to move forward. When
// Advanced is false, Failures and Advisories say why.
type AdvanceResult struct {
	Step       Step                `json:"step"`
	Advanced   bool                `json:"advanced"`
	Failures   []validation.Result `json:"failures,omitempty"`
	Advisories []validation.Result `json:"advisories,omitempty"`
}

type Controller struct {
	engine *validation.Engine
	zone   string
	now    func() time.Time
}

func NewController(engine *validation.Engine, zone string, now func() time.Time) (*Controller, error) {
	if zone == "" {
		zone = DefaultZone
	}
	if _, err := time.LoadLocation(zone); err != nil {
		return nil, fmt.Errorf("wizard zone: %w", err)
	}
	if now == nil {
		now = time.Now
	}
	return &Controller{engine: engine, zone: zone, now: now}, nil
}

func (c *Controller) Zone() string {
	return c.zone
}

// Advance validates the current step and moves to the next one when every
// rule for that step passes. Steps are strictly sequential.
func (c *Controller) Advance(s *Session) (AdvanceResult, error) {
	var stage validation.Stage
	switch s.Step {
	case StepEventData:
		stage = validation.StageEventData
	case StepProgram:
		stage = validation.StageProgram
	default:
		return AdvanceResult{Step: s.Step}, c.stepError(s, "advance")
	}

	data, err := c.Normalize(&s.Draft)
	if err != nil {
		return AdvanceResult{Step: s.Step}, err
	}

	report := c.engine.Check(stage, data, validation.Gates{IsAuthorized: s.Draft.IsAuthorized}, c.now())
	if !report.OK() {
		return AdvanceResult{
			Step:       s.Step,
			Failures:   report.Failures(),
			Advisories: report.Advisories(),
		}, nil
	}

	s.Step++
	s.UpdatedAt = c.now()
	return AdvanceResult{Step: s.Step, Advanced: true}, nil
}

// Retreat moves one step back without validation.
func (c *Controller) Retreat(s *Session) error {
	if s.Step <= StepEventData || s.Step > StepReview {
		return c.stepError(s, "retreat")
	}
	s.Step--
	s.UpdatedAt = c.now()
	return nil
}

// Finalize produces the normalized payload for the review step. A real
// submission re-runs the submit rules, which are authoritative: the lead time
// may have gone stale since step one. Draft saves skip validation.
func (c *Controller) Finalize(s *Session, asDraft bool) (*entity.EventData, error) {
	if s.Step != StepReview {
		return nil, c.stepError(s, "finalize")
	}

	data, err := c.Normalize(&s.Draft)
	if err != nil {
		return nil, err
	}
	if asDraft {
		return data, nil
	}

	now := c.now()
	if err := c.engine.Check(validation.StageSubmit, data, validation.Gates{}, now).Err(); err != nil {
		return nil, err
	}

	// gates from step one still hold at submission
	gates := c.engine.Check(validation.StageEventData, data, validation.Gates{IsAuthorized: s.Draft.IsAuthorized}, now)
	if adv := gates.Advisories(); len(adv) > 0 {
		ve := &entity.ValidationError{}
		for _, a := range adv {
			ve.Failures = append(ve.Failures, entity.FieldError{Rule: a.Rule, Message: a.Message})
		}
		return nil, ve
	}

	return data, nil
}

// Normalize trims text fields and converts wall-clock dates into instants.
func (c *Controller) Normalize(d *entity.EventDraft) (*entity.EventData, error) {
	start, err := LocalWallClockToInstant(d.StartDate, c.zone)
	if err != nil {
		return nil, err
	}
	end, err := LocalWallClockToInstant(d.EndDate, c.zone)
	if err != nil {
		return nil, err
	}

	return &entity.EventData{
		Name:                strings.TrimSpace(d.Name),
		Responsible:         strings.TrimSpace(d.Responsible),
		Email:               strings.TrimSpace(d.Email),
		Phone:               strings.TrimSpace(d.Phone),
		Program:             d.Program,
		Type:                d.Type,
		Classification:      d.Classification,
		ClassificationOther: strings.TrimSpace(d.ClassificationOther),
		Modality:            d.Modality,
		Venue:               strings.TrimSpace(d.Venue),
		StartDate:           start,
		EndDate:             end,
		HasCost:             d.HasCost,
		CostDetails:         strings.TrimSpace(d.CostDetails),
		OnlineInfo:          strings.TrimSpace(d.OnlineInfo),
		Organizers:          strings.TrimSpace(d.Organizers),
		Observations:        strings.TrimSpace(d.Observations),
		ProgramDetails:      strings.TrimSpace(d.ProgramDetails),
		SpeakerCvs:          strings.TrimSpace(d.SpeakerCvs),
		CodigosRequeridos:   d.CodigosRequeridos,
	}, nil
}

func (c *Controller) stepError(s *Session, action string) error {
	return &entity.StatePreconditionError{
		Entity:  "wizard_session",
		ID:      s.ID,
		Current: fmt.Sprintf("step %d", s.Step),
		Action:  action,
	}
}
