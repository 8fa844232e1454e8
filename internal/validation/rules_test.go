package validation

import (
	"testing"
	"time"

	"github.com/ds124wfegd/uabc-events/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

func TestMinimumLeadTime(t *testing.T) {
	tests := []struct {
		name   string
		start  time.Time
		passed bool
		rule   string
	}{
		{name: "exactly 21 days passes", start: now.Add(21 * 24 * time.Hour), passed: true, rule: RuleMinimumLeadTime},
		{name: "one second short fails", start: now.Add(21*24*time.Hour - time.Second), passed: false, rule: RuleMinimumLeadTime},
		{name: "25 days passes", start: now.Add(25 * 24 * time.Hour), passed: true, rule: RuleMinimumLeadTime},
		{name: "10 days fails", start: now.Add(10 * 24 * time.Hour), passed: false, rule: RuleMinimumLeadTime},
		{name: "past date fails", start: now.Add(-time.Hour), passed: false, rule: RuleMinimumLeadTime},
		{name: "missing date fails", start: time.Time{}, passed: false, rule: RuleStartDateRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := MinimumLeadTime(tt.start, now, DefaultMinLeadDays)
			assert.Equal(t, tt.passed, res.Passed)
			assert.Equal(t, tt.rule, res.Rule)
			assert.False(t, res.Advisory)
			if !tt.passed {
				assert.NotEmpty(t, res.Message)
			}
		})
	}
}

func TestVenueRequiredUnlessOnline(t *testing.T) {
	tests := []struct {
		name     string
		modality entity.Modality
		venue    string
		passed   bool
	}{
		{name: "online without venue", modality: entity.ModalityOnline, venue: "", passed: true},
		{name: "presencial without venue", modality: entity.ModalityPresencial, venue: "", passed: false},
		{name: "mixta without venue", modality: entity.ModalityMixta, venue: "", passed: false},
		{name: "presencial whitespace venue", modality: entity.ModalityPresencial, venue: "   ", passed: false},
		{name: "presencial with venue", modality: entity.ModalityPresencial, venue: "Room 4", passed: true},
		{name: "mixta with venue", modality: entity.ModalityMixta, venue: "Auditorio", passed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.passed, VenueRequiredUnlessOnline(tt.modality, tt.venue).Passed)
		})
	}
}

func TestRequiredTextRules(t *testing.T) {
	assert.False(t, NameRequired("").Passed)
	assert.False(t, NameRequired(" \t").Passed)
	assert.True(t, NameRequired("Congreso").Passed)
	assert.False(t, PhoneRequired("").Passed)
	assert.False(t, OrganizersRequired("").Passed)
	assert.False(t, ProgramDetailsRequired("\n").Passed)
	assert.True(t, ProgramDetailsRequired("09:00 Inauguración").Passed)
}

func TestAdvisoryRules(t *testing.T) {
	cost := CostFlaggedBlocksProgression(true)
	assert.False(t, cost.Passed)
	assert.True(t, cost.Advisory)
	assert.NotEmpty(t, cost.Message)
	assert.True(t, CostFlaggedBlocksProgression(false).Passed)

	auth := AuthorizationRequired(false)
	assert.False(t, auth.Passed)
	assert.True(t, auth.Advisory)
	assert.True(t, AuthorizationRequired(true).Passed)
}

func TestRejectionReasonRequired(t *testing.T) {
	assert.False(t, RejectionReasonRequired(entity.DecisionReject, "").Passed)
	assert.False(t, RejectionReasonRequired(entity.DecisionReject, "   ").Passed)
	assert.True(t, RejectionReasonRequired(entity.DecisionReject, "budget exceeded").Passed)
	assert.True(t, RejectionReasonRequired(entity.DecisionApprove, "").Passed)
}

func TestEndNotBeforeStart(t *testing.T) {
	start := now.Add(30 * 24 * time.Hour)
	assert.True(t, EndNotBeforeStart(start, start).Passed)
	assert.True(t, EndNotBeforeStart(start, start.Add(2*time.Hour)).Passed)

	res := EndNotBeforeStart(start, start.Add(-time.Minute))
	assert.False(t, res.Passed)
	assert.Equal(t, RuleEndNotBeforeStart, res.Rule)

	assert.Equal(t, RuleEndDateRequired, EndNotBeforeStart(start, time.Time{}).Rule)
}

func TestClosedSetRules(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(d *entity.EventData)
		rule     string
		draftErr bool
	}{
		{name: "unknown program", mutate: func(d *entity.EventData) { d.Program = "Ingeniería" }, rule: RuleProgramValue, draftErr: true},
		{name: "program in lower case", mutate: func(d *entity.EventData) { d.Program = "médico" }, rule: RuleProgramValue, draftErr: true},
		{name: "blank program", mutate: func(d *entity.EventData) { d.Program = "" }, rule: RuleProgramValue},
		{name: "unknown type", mutate: func(d *entity.EventData) { d.Type = "Político" }, rule: RuleEventTypeValue, draftErr: true},
		{name: "blank type", mutate: func(d *entity.EventData) { d.Type = " " }, rule: RuleEventTypeValue},
		{name: "unknown classification", mutate: func(d *entity.EventData) { d.Classification = "Foro" }, rule: RuleClassificationValue, draftErr: true},
		{name: "blank classification", mutate: func(d *entity.EventData) { d.Classification = "" }, rule: RuleClassificationValue},
		{name: "unknown modality", mutate: func(d *entity.EventData) { d.Modality = "Online" }, rule: RuleModalityValue, draftErr: true},
		{name: "blank modality", mutate: func(d *entity.EventData) { d.Modality = "" }, rule: RuleModalityValue},
		{name: "negative codigos", mutate: func(d *entity.EventData) { d.CodigosRequeridos = -1 }, rule: RuleCodigosNonNegative, draftErr: true},
	}

	engine := NewEngine(DefaultMinLeadDays)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := validData()
			tt.mutate(data)

			for _, stage := range []Stage{StageEventData, StageSubmit} {
				var ve *entity.ValidationError
				require.ErrorAs(t, engine.Check(stage, data, Gates{IsAuthorized: true}, now).Err(), &ve)
				assert.True(t, ve.Has(tt.rule))
			}

			err := engine.Check(StageDraft, data, Gates{}, now).Err()
			if !tt.draftErr {
				assert.NoError(t, err)
				return
			}
			var ve *entity.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.True(t, ve.Has(tt.rule))
		})
	}
}

func TestEngineDraftStage(t *testing.T) {
	engine := NewEngine(DefaultMinLeadDays)
	assert.True(t, engine.Check(StageDraft, validData(), Gates{}, now).OK())

	// drafts may be incomplete and out of the lead window
	incomplete := &entity.EventData{Name: "Borrador", StartDate: now.Add(time.Hour)}
	report := engine.Check(StageDraft, incomplete, Gates{}, now)
	assert.True(t, report.OK())
	assert.NoError(t, report.Err())
}

func validData() *entity.EventData {
	start := now.Add(30 * 24 * time.Hour)
	return &entity.EventData{
		Name:           "Jornada de Nutrición",
		Phone:          "6641234567",
		Program:        entity.ProgramNutricion,
		Type:           entity.EventTypeAcademico,
		Classification: entity.ClassificationTaller,
		Modality:       entity.ModalityPresencial,
		Venue:          "Auditorio",
		StartDate:      start,
		EndDate:        start.Add(4 * time.Hour),
		Organizers:     "Facultad",
		ProgramDetails: "Programa",
	}
}

func TestEngineEventDataStage(t *testing.T) {
	engine := NewEngine(0)
	require.Equal(t, DefaultMinLeadDays, engine.MinLeadDays)

	report := engine.Check(StageEventData, validData(), Gates{IsAuthorized: true}, now)
	assert.True(t, report.OK())
	assert.NoError(t, report.Err())

	t.Run("cost blocks without error", func(t *testing.T) {
		data := validData()
		data.HasCost = true
		report := engine.Check(StageEventData, data, Gates{IsAuthorized: true}, now)
		assert.False(t, report.OK())
		assert.NoError(t, report.Err())
		require.Len(t, report.Advisories(), 1)
		assert.Equal(t, RuleCostBlocksProgression, report.Advisories()[0].Rule)
	})

	t.Run("missing authorization blocks without error", func(t *testing.T) {
		report := engine.Check(StageEventData, validData(), Gates{}, now)
		assert.False(t, report.OK())
		assert.NoError(t, report.Err())
		require.Len(t, report.Advisories(), 1)
		assert.Equal(t, RuleAuthorizationRequired, report.Advisories()[0].Rule)
	})

	t.Run("program details are not checked", func(t *testing.T) {
		data := validData()
		data.ProgramDetails = ""
		assert.True(t, engine.Check(StageEventData, data, Gates{IsAuthorized: true}, now).OK())
	})
}

func TestEngineSubmitStage(t *testing.T) {
	engine := NewEngine(DefaultMinLeadDays)

	data := validData()
	data.StartDate = now.Add(10 * 24 * time.Hour)
	data.EndDate = data.StartDate.Add(time.Hour)
	data.Venue = ""

	report := engine.Check(StageSubmit, data, Gates{}, now)
	require.False(t, report.OK())

	var ve *entity.ValidationError
	require.ErrorAs(t, report.Err(), &ve)
	assert.Len(t, ve.Failures, 2)
	assert.True(t, ve.Has(RuleMinimumLeadTime))
	assert.True(t, ve.Has(RuleVenueRequiredUnlessOnline))

	data.StartDate = now.Add(25 * 24 * time.Hour)
	data.EndDate = data.StartDate.Add(time.Hour)
	data.Venue = "Room 4"
	assert.True(t, engine.Check(StageSubmit, data, Gates{}, now).OK())
}

func TestEngineSubmitIgnoresWizardGates(t *testing.T) {
	data := validData()
	data.HasCost = true
	report := NewEngine(DefaultMinLeadDays).Check(StageSubmit, data, Gates{IsAuthorized: false}, now)
	assert.True(t, report.OK())
}

func TestEngineCheckDecision(t *testing.T) {
	engine := NewEngine(DefaultMinLeadDays)
	err := engine.CheckDecision(entity.DecisionReject, "")
	var ve *entity.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.True(t, ve.Has(RuleRejectionReasonRequired))
	assert.NoError(t, engine.CheckDecision(entity.DecisionApprove, ""))
}
