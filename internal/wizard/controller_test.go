package wizard

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/ds124wfegd/uabc-events/internal/entity"
	"github.com/ds124wfegd/uabc-events/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, time.March, 1, 20, 0, 0, 0, time.UTC)

func civil(t *testing.T, s string) entity.CivilTime {
	t.Helper()
	ct, err := entity.ParseCivilTime(s)
	require.NoError(t, err)
	return ct
}

func newController(t *testing.T) *Controller {
	t.Helper()
	c, err := NewController(validation.NewEngine(validation.DefaultMinLeadDays), DefaultZone, func() time.Time { return fixedNow })
	require.NoError(t, err)
	return c
}

func completeSession(t *testing.T) *Session {
	s := NewSession("sess-1", "user-1", fixedNow)
	s.Draft.Name = "Simposio de Salud Mental"
	s.Draft.Phone = "6641234567"
	s.Draft.Organizers = "Facultad de Medicina y Psicología"
	s.Draft.Venue = "Auditorio"
	s.Draft.StartDate = civil(t, "2025-04-15T10:00")
	s.Draft.EndDate = civil(t, "2025-04-15T14:00")
	s.Draft.IsAuthorized = true
	s.Draft.ProgramDetails = "10:00 Conferencia magistral"
	return s
}

func TestLocalWallClockToInstant(t *testing.T) {
	tests := []struct {
		name  string
		civil string
		zone  string
		want  time.Time
	}{
		{name: "winter offset", civil: "2025-01-15T10:00", zone: "America/Tijuana", want: time.Date(2025, 1, 15, 18, 0, 0, 0, time.UTC)},
		{name: "summer offset", civil: "2025-07-15T10:00", zone: "America/Tijuana", want: time.Date(2025, 7, 15, 17, 0, 0, 0, time.UTC)},
		{name: "utc zone", civil: "2025-07-15T10:00", zone: "UTC", want: time.Date(2025, 7, 15, 10, 0, 0, 0, time.UTC)},
		{name: "mexico city without dst", civil: "2025-07-15T10:00", zone: "America/Mexico_City", want: time.Date(2025, 7, 15, 16, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LocalWallClockToInstant(civil(t, tt.civil), tt.zone)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s got %s", tt.want, got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}

	t.Run("zero value", func(t *testing.T) {
		got, err := LocalWallClockToInstant(entity.CivilTime{}, DefaultZone)
		require.NoError(t, err)
		assert.True(t, got.IsZero())
	})

	t.Run("unknown zone", func(t *testing.T) {
		_, err := LocalWallClockToInstant(civil(t, "2025-01-15T10:00"), "Mars/Olympus")
		assert.Error(t, err)
	})

	t.Run("round trip", func(t *testing.T) {
		in := civil(t, "2025-11-20T09:30")
		instant, err := LocalWallClockToInstant(in, DefaultZone)
		require.NoError(t, err)
		out, err := InstantToLocalWallClock(instant, DefaultZone)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})
}

func TestAdvanceSequential(t *testing.T) {
	c := newController(t)
	s := completeSession(t)

	res, err := c.Advance(s)
	require.NoError(t, err)
	assert.True(t, res.Advanced)
	assert.Equal(t, StepProgram, s.Step)

	res, err = c.Advance(s)
	require.NoError(t, err)
	assert.True(t, res.Advanced)
	assert.Equal(t, StepReview, s.Step)

	_, err = c.Advance(s)
	var se *entity.StatePreconditionError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StepReview, s.Step)
}

func TestAdvanceStepOneFailures(t *testing.T) {
	c := newController(t)
	s := completeSession(t)
	s.Draft.StartDate = civil(t, "2025-03-11T10:00")
	s.Draft.EndDate = civil(t, "2025-03-11T12:00")
	s.Draft.Venue = ""

	res, err := c.Advance(s)
	require.NoError(t, err)
	assert.False(t, res.Advanced)
	assert.Equal(t, StepEventData, s.Step)

	rules := map[string]bool{}
	for _, f := range res.Failures {
		rules[f.Rule] = true
	}
	assert.Len(t, res.Failures, 2)
	assert.True(t, rules[validation.RuleMinimumLeadTime])
	assert.True(t, rules[validation.RuleVenueRequiredUnlessOnline])
}

func TestAdvanceOnlineNeedsNoVenue(t *testing.T) {
	c := newController(t)
	s := completeSession(t)
	s.Draft.Modality = entity.ModalityOnline
	s.Draft.Venue = ""

	res, err := c.Advance(s)
	require.NoError(t, err)
	assert.True(t, res.Advanced)
}

func TestAdvanceBlockedByAdvisories(t *testing.T) {
	c := newController(t)

	t.Run("has cost", func(t *testing.T) {
		s := completeSession(t)
		s.Draft.HasCost = true
		res, err := c.Advance(s)
		require.NoError(t, err)
		assert.False(t, res.Advanced)
		assert.Empty(t, res.Failures)
		require.Len(t, res.Advisories, 1)
		assert.Equal(t, validation.RuleCostBlocksProgression, res.Advisories[0].Rule)
		assert.Equal(t, StepEventData, s.Step)
	})

	t.Run("not authorized", func(t *testing.T) {
		s := completeSession(t)
		s.Draft.IsAuthorized = false
		res, err := c.Advance(s)
		require.NoError(t, err)
		assert.False(t, res.Advanced)
		require.Len(t, res.Advisories, 1)
		assert.Equal(t, validation.RuleAuthorizationRequired, res.Advisories[0].Rule)
	})
}

func TestAdvanceStepTwoNeedsProgram(t *testing.T) {
	c := newController(t)
	s := completeSession(t)
	s.Draft.ProgramDetails = ""

	_, err := c.Advance(s)
	require.NoError(t, err)

	res, err := c.Advance(s)
	require.NoError(t, err)
	assert.False(t, res.Advanced)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, validation.RuleProgramDetailsRequired, res.Failures[0].Rule)
}

func TestRetreat(t *testing.T) {
	c := newController(t)
	s := completeSession(t)

	assert.Error(t, c.Retreat(s))

	s.Step = StepReview
	require.NoError(t, c.Retreat(s))
	assert.Equal(t, StepProgram, s.Step)
	require.NoError(t, c.Retreat(s))
	assert.Equal(t, StepEventData, s.Step)
}

func TestFinalize(t *testing.T) {
	c := newController(t)

	t.Run("before review step", func(t *testing.T) {
		s := completeSession(t)
		_, err := c.Finalize(s, false)
		var se *entity.StatePreconditionError
		assert.ErrorAs(t, err, &se)
	})

	t.Run("normalizes dates to utc", func(t *testing.T) {
		s := completeSession(t)
		s.Step = StepReview
		s.Draft.Name = "  Simposio  "
		data, err := c.Finalize(s, false)
		require.NoError(t, err)
		assert.Equal(t, "Simposio", data.Name)
		assert.True(t, time.Date(2025, 4, 15, 17, 0, 0, 0, time.UTC).Equal(data.StartDate))
		assert.True(t, time.Date(2025, 4, 15, 21, 0, 0, 0, time.UTC).Equal(data.EndDate))
	})

	t.Run("stale lead time is rechecked", func(t *testing.T) {
		s := completeSession(t)
		s.Step = StepReview
		s.Draft.StartDate = civil(t, "2025-03-10T10:00")
		s.Draft.EndDate = civil(t, "2025-03-10T12:00")
		_, err := c.Finalize(s, false)
		var ve *entity.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.True(t, ve.Has(validation.RuleMinimumLeadTime))
	})

	t.Run("end before start", func(t *testing.T) {
		s := completeSession(t)
		s.Step = StepReview
		s.Draft.EndDate = civil(t, "2025-04-14T10:00")
		_, err := c.Finalize(s, false)
		var ve *entity.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.True(t, ve.Has(validation.RuleEndNotBeforeStart))
	})

	t.Run("gates still apply at submit", func(t *testing.T) {
		s := completeSession(t)
		s.Step = StepReview
		s.Draft.HasCost = true
		_, err := c.Finalize(s, false)
		var ve *entity.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.True(t, ve.Has(validation.RuleCostBlocksProgression))
	})

	t.Run("draft save skips validation", func(t *testing.T) {
		s := completeSession(t)
		s.Step = StepReview
		s.Draft.Venue = ""
		s.Draft.StartDate = entity.CivilTime{}
		data, err := c.Finalize(s, true)
		require.NoError(t, err)
		assert.True(t, data.StartDate.IsZero())
	})
}

func TestDraftFromEvent(t *testing.T) {
	e := &entity.Event{EventData: entity.EventData{
		Name:      "Taller",
		StartDate: time.Date(2025, 7, 15, 17, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 7, 15, 19, 0, 0, 0, time.UTC),
		Modality:  entity.ModalityMixta,
	}}
	d, err := DraftFromEvent(e, DefaultZone)
	require.NoError(t, err)
	assert.Equal(t, "2025-07-15T10:00", d.StartDate.String())
	assert.Equal(t, "2025-07-15T12:00", d.EndDate.String())
	assert.False(t, d.IsAuthorized)
	assert.Equal(t, entity.ModalityMixta, d.Modality)
}
