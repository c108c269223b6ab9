package record_test

import (
	"encoding/json"
	"reflect"
	"testing"

	"lifeingest/internal/record"
)

func TestCalendarEventJSONFieldSet(t *testing.T) {
	evt := record.NewCalendarEvent("2024-03-01T09:00:00", record.StringPtr("Team sync"), "takeout-20240301.zip")
	data, err := json.Marshal(evt)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"type":"calendar_event","timestamp":"2024-03-01T09:00:00","title":"Team sync","source":"google_calendar","source_file":"takeout-20240301.zip"}`
	if string(data) != want {
		t.Fatalf("unexpected json:\n got %s\nwant %s", data, want)
	}
}

func TestEmailHeaderAbsentFieldsAreNull(t *testing.T) {
	hdr := record.NewEmailHeader(record.StringPtr("Tue, 2 Jan 2024 10:05:00 +0000"), record.StringPtr("x@y.com"), nil, record.StringPtr("Re: Standup"), "A.zip")
	data, err := json.Marshal(hdr)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"type":"email_header","timestamp":"Tue, 2 Jan 2024 10:05:00 +0000","from":"x@y.com","to":null,"subject":"Re: Standup","source":"gmail","source_file":"A.zip"}`
	if string(data) != want {
		t.Fatalf("unexpected json:\n got %s\nwant %s", data, want)
	}
}

func TestRecordsRoundTrip(t *testing.T) {
	events := []record.CalendarEvent{
		record.NewCalendarEvent("2024-01-02", nil, "a.zip"),
		record.NewCalendarEvent("2024-01-02T10:00:00+00:00", record.StringPtr("Standup"), "b.zip"),
	}
	data, err := json.Marshal(events)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded []record.CalendarEvent
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(events, decoded) {
		t.Fatalf("round trip mismatch:\n got %#v\nwant %#v", decoded, events)
	}
}

func TestRecordKinds(t *testing.T) {
	var recs []record.Record = []record.Record{
		record.NewCalendarEvent("t", nil, "x.zip"),
		record.NewEmailHeader(nil, nil, nil, nil, "y.zip"),
	}
	if recs[0].Kind() != record.KindCalendarEvent || recs[0].SourceArchive() != "x.zip" {
		t.Fatalf("unexpected calendar record: %v %q", recs[0].Kind(), recs[0].SourceArchive())
	}
	if recs[1].Kind() != record.KindEmailHeader || recs[1].SourceArchive() != "y.zip" {
		t.Fatalf("unexpected email record: %v %q", recs[1].Kind(), recs[1].SourceArchive())
	}
	if record.StringValue(nil) != "" {
		t.Fatal("expected empty string for nil pointer")
	}
}
