package entity

import (
	"bytes"
	"fmt"
	"time"
)

// CivilTime is a wall-clock date and time with no zone attached, as entered
// in a datetime-local form field. It is converted to an instant only once the
// zone is known.
type CivilTime struct {
	Year   int
	Month  time.Month
	Day    int
	Hour   int
	Minute int
}

const CivilTimeLayout = "2006-01-02T15:04"

func ParseCivilTime(s string) (CivilTime, error) {
	t, err := time.Parse(CivilTimeLayout, s)
	if err != nil {
		return CivilTime{}, fmt.Errorf("invalid date %q, expected %s: %w", s, CivilTimeLayout, err)
	}
	return CivilTime{Year: t.Year(), Month: t.Month(), Day: t.Day(), Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (ct CivilTime) IsZero() bool {
	return ct == CivilTime{}
}

func (ct CivilTime) String() string {
	if ct.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d", ct.Year, int(ct.Month), ct.Day, ct.Hour, ct.Minute)
}

// In places the wall-clock value in loc.
func (ct CivilTime) In(loc *time.Location) time.Time {
	return time.Date(ct.Year, ct.Month, ct.Day, ct.Hour, ct.Minute, 0, 0, loc)
}

func (ct *CivilTime) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) || bytes.Equal(b, []byte(`""`)) {
		*ct = CivilTime{}
		return nil
	}
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("invalid date value %s", string(b))
	}
	parsed, err := ParseCivilTime(string(b[1 : len(b)-1]))
	if err != nil {
		return err
	}
	*ct = parsed
	return nil
}

func (ct CivilTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + ct.String() + `"`), nil
}
