package validation

import (
	"time"

	"github.com/ds124wfegd/uabc-events/internal/entity"
)

// Stage selects which rules run.
type Stage int

const (
	// StageEventData covers identity, schedule, venue, cost and authorization.
	StageEventData Stage = iota + 1
	// StageProgram covers the narrative program fields.
	StageProgram
	// StageSubmit is the authoritative check before an event enters review.
	StageSubmit
	// StageDraft is the schema check every save runs, complete or not.
	StageDraft
)

// Gates carries workflow-only inputs that are not part of the event record.
type Gates struct {
	IsAuthorized bool
}

type Engine struct {
	MinLeadDays int
}

func NewEngine(minLeadDays int) *Engine {
	if minLeadDays <= 0 {
		minLeadDays = DefaultMinLeadDays
	}
	return &Engine{MinLeadDays: minLeadDays}
}

// Report aggregates the results of one stage.
type Report struct {
	Stage   Stage    `json:"stage"`
	Results []Result `json:"results"`
}

func (r Report) Failures() []Result {
	var out []Result
	for _, res := range r.Results {
		if !res.Passed && !res.Advisory {
			out = append(out, res)
		}
	}
	return out
}

func (r Report) Advisories() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Advisory {
			out = append(out, res)
		}
	}
	return out
}

// OK reports whether the stage may be left: nothing failed and nothing is
// held for manual follow-up.
func (r Report) OK() bool {
	for _, res := range r.Results {
		if !res.Passed {
			return false
		}
	}
	return true
}

// Err converts failures into a ValidationError. Advisories are not errors.
func (r Report) Err() error {
	failures := r.Failures()
	if len(failures) == 0 {
		return nil
	}
	ve := &entity.ValidationError{}
	for _, f := range failures {
		ve.Failures = append(ve.Failures, entity.FieldError{Rule: f.Rule, Message: f.Message})
	}
	return ve
}

func (e *Engine) Check(stage Stage, data *entity.EventData, gates Gates, now time.Time) Report {
	report := Report{Stage: stage}
	switch stage {
	case StageEventData:
		report.Results = append(report.Results, e.eventDataRules(data, now)...)
		report.Results = append(report.Results,
			CostFlaggedBlocksProgression(data.HasCost),
			AuthorizationRequired(gates.IsAuthorized),
		)
	case StageProgram:
		report.Results = append(report.Results, ProgramDetailsRequired(data.ProgramDetails))
	case StageSubmit:
		report.Results = append(report.Results, e.eventDataRules(data, now)...)
		report.Results = append(report.Results, ProgramDetailsRequired(data.ProgramDetails))
	case StageDraft:
		report.Results = append(report.Results, schemaRules(data, true)...)
	}
	return report
}

func (e *Engine) eventDataRules(data *entity.EventData, now time.Time) []Result {
	return append(schemaRules(data, false),
		NameRequired(data.Name),
		PhoneRequired(data.Phone),
		OrganizersRequired(data.Organizers),
		VenueRequiredUnlessOnline(data.Modality, data.Venue),
		MinimumLeadTime(data.StartDate, now, e.MinLeadDays),
		EndNotBeforeStart(data.StartDate, data.EndDate),
	)
}

// schemaRules hold for any stored event: closed-set fields carry a known value
// and the code count is not negative.
func schemaRules(data *entity.EventData, optional bool) []Result {
	return []Result{
		ProgramAllowed(data.Program, optional),
		EventTypeAllowed(data.Type, optional),
		ClassificationAllowed(data.Classification, optional),
		ModalityAllowed(data.Modality, optional),
		CodigosNonNegative(data.CodigosRequeridos),
	}
}

// CheckDecision validates the inputs of a review decision.
func (e *Engine) CheckDecision(action entity.DecisionAction, reason string) error {
	report := Report{Results: []Result{RejectionReasonRequired(action, reason)}}
	return report.Err()
}
