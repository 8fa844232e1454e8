package wizard

import (
	"fmt"
	"time"

	"github.com/ds124wfegd/uabc-events/internal/entity"
)

// DefaultZone is the zone organizers enter schedules in.
const DefaultZone = "America/Tijuana"

// LocalWallClockToInstant interprets civil as a wall-clock reading in zoneID
// and returns the matching instant in UTC. The offset comes from the tz
// database, so daylight saving is applied for the given date. A zero civil
// value yields the zero time.
func LocalWallClockToInstant(civil entity.CivilTime, zoneID string) (time.Time, error) {
	if civil.IsZero() {
		return time.Time{}, nil
	}
	loc, err := time.LoadLocation(zoneID)
	if err != nil {
		return time.Time{}, fmt.Errorf("load zone %q: %w", zoneID, err)
	}
	return civil.In(loc).UTC(), nil
}

// InstantToLocalWallClock is the inverse, used to reopen a stored event in
// the wizard.
func InstantToLocalWallClock(t time.Time, zoneID string) (entity.CivilTime, error) {
	if t.IsZero() {
		return entity.CivilTime{}, nil
	}
	loc, err := time.LoadLocation(zoneID)
	if err != nil {
		return entity.CivilTime{}, fmt.Errorf("load zone %q: %w", zoneID, err)
	}
	local := t.In(loc)
	return entity.CivilTime{
		Year:   local.Year(),
		Month:  local.Month(),
		Day:    local.Day(),
		Hour:   local.Hour(),
		Minute: local.Minute(),
	}, nil
}
