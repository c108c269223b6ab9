// Package calendar turns iCalendar files into calendar event records.
package calendar

import (
	"bytes"
	"fmt"
	"strings"

	ics "github.com/arran4/golang-ical"

	"lifeingest/internal/ingesterr"
	"lifeingest/internal/record"
)

const stageName = "calendar"

// Normalize parses one iCalendar file and returns one record per VEVENT in
// document order. Other component types are skipped. Any parse failure, or an
// event without DTSTART, rejects the whole file with ErrUnparseableCalendarFile.
func Normalize(data []byte, sourceFile string) ([]record.CalendarEvent, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ingesterr.Wrap(ingesterr.ErrUnparseableCalendarFile, stageName, "parse", "file is empty", nil)
	}

	cal, err := ics.ParseCalendar(bytes.NewReader(data))
	if err != nil {
		return nil, ingesterr.Wrap(ingesterr.ErrUnparseableCalendarFile, stageName, "parse", "", err)
	}

	events := make([]record.CalendarEvent, 0)
	for _, component := range cal.Components {
		event, ok := component.(*ics.VEvent)
		if !ok {
			continue
		}
		start, err := eventStart(event)
		if err != nil {
			return nil, ingesterr.Wrap(ingesterr.ErrUnparseableCalendarFile, stageName, "read event", eventID(event), err)
		}
		events = append(events, record.NewCalendarEvent(start.Format(), eventTitle(event), sourceFile))
	}
	return events, nil
}

func eventStart(event *ics.VEvent) (StartTime, error) {
	prop := event.GetProperty(ics.ComponentPropertyDtStart)
	if prop == nil {
		return StartTime{}, fmt.Errorf("missing DTSTART")
	}
	return ParseStart(prop.Value, prop.ICalParameters)
}

func eventTitle(event *ics.VEvent) *string {
	prop := event.GetProperty(ics.ComponentPropertySummary)
	if prop == nil {
		return nil
	}
	return record.StringPtr(unescapeText(prop.Value))
}

func eventID(event *ics.VEvent) string {
	if prop := event.GetProperty(ics.ComponentPropertyUniqueId); prop != nil {
		return "uid " + prop.Value
	}
	return "event without uid"
}

// unescapeText reverses RFC 5545 TEXT escaping.
func unescapeText(value string) string {
	if !strings.Contains(value, `\`) {
		return value
	}
	var b strings.Builder
	b.Grow(len(value))
	for i := 0; i < len(value); i++ {
		c := value[i]
		if c != '\\' || i == len(value)-1 {
			b.WriteByte(c)
			continue
		}
		i++
		switch value[i] {
		case 'n', 'N':
			b.WriteByte('\n')
		case ',', ';', '\\':
			b.WriteByte(value[i])
		default:
			b.WriteByte('\\')
			b.WriteByte(value[i])
		}
	}
	return b.String()
}
