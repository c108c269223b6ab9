package calendar

import (
	"fmt"
	"strings"
	"time"
)

// StartKind discriminates the StartTime variants.
type StartKind int

const (
	// Unspecified holds a DTSTART value that is neither a date nor a date-time.
	Unspecified StartKind = iota
	// DateOnly is an all-day start (VALUE=DATE).
	DateOnly
	// DateTime is a start instant: floating, UTC, or zoned by TZID.
	DateTime
)

const (
	dateLayout        = "20060102"
	dateTimeLayout    = "20060102T150405"
	dateTimeUTCLayout = "20060102T150405Z"

	isoDate     = "2006-01-02"
	isoFloating = "2006-01-02T15:04:05"
	isoOffset   = "2006-01-02T15:04:05-07:00"
)

// StartTime is the decoded DTSTART of an event.
type StartTime struct {
	Kind StartKind
	// Time is set for DateOnly and DateTime.
	Time time.Time
	// Floating marks a DateTime with no zone; Time is then expressed in UTC
	// but printed without an offset.
	Floating bool
	// Raw is the property value as written in the source.
	Raw string
}

// Format renders the start time the way it is written to calendar_events.json.
func (s StartTime) Format() string {
	switch s.Kind {
	case DateOnly:
		return s.Time.Format(isoDate)
	case DateTime:
		if s.Floating {
			return s.Time.Format(isoFloating)
		}
		if _, offset := s.Time.Zone(); offset == 0 {
			return s.Time.Format(isoFloating) + "+00:00"
		}
		return s.Time.Format(isoOffset)
	default:
		return s.Raw
	}
}

// ParseStart decodes a DTSTART value with its parameters. A TZID that cannot
// be loaded leaves the value floating.
func ParseStart(value string, params map[string][]string) (StartTime, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return StartTime{}, fmt.Errorf("empty DTSTART value")
	}

	if strings.EqualFold(param(params, "VALUE"), "DATE") || len(raw) == len(dateLayout) {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return StartTime{Kind: Unspecified, Raw: raw}, nil
		}
		return StartTime{Kind: DateOnly, Time: t, Raw: raw}, nil
	}

	if strings.HasSuffix(raw, "Z") {
		t, err := time.Parse(dateTimeUTCLayout, raw)
		if err != nil {
			return StartTime{Kind: Unspecified, Raw: raw}, nil
		}
		return StartTime{Kind: DateTime, Time: t, Raw: raw}, nil
	}

	t, err := time.Parse(dateTimeLayout, raw)
	if err != nil {
		return StartTime{Kind: Unspecified, Raw: raw}, nil
	}
	if tzid := strings.Trim(param(params, "TZID"), `"`); tzid != "" {
		if loc, err := time.LoadLocation(tzid); err == nil {
			zoned := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
			return StartTime{Kind: DateTime, Time: zoned, Raw: raw}, nil
		}
	}
	return StartTime{Kind: DateTime, Time: t, Floating: true, Raw: raw}, nil
}

func param(params map[string][]string, name string) string {
	for key, values := range params {
		if strings.EqualFold(key, name) && len(values) > 0 {
			return values[0]
		}
	}
	return ""
}
