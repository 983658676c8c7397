package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"holidaycal/internal/model"
)

const sample = `{
  "calendar": "Holidays in Canada",
  "calendars": ["Holidays in Canada"],
  "generatedAt": "2026-10-01T12:00:00Z",
  "range": {"start": "2026-10-01", "end": "2027-04-01"},
  "events": [
    {"uid": "a1", "title": "Canada Day", "allDay": true, "date": "2020-07-01",
     "recurrence": "FREQ=YEARLY;BYMONTH=7;BYMONTHDAY=1"},
    {"uid": "b2", "calendar": "Work", "title": "Remembrance Day (Observed)",
     "start": "2026-11-11T08:00:00Z", "end": "2026-11-11T09:00:00Z"},
    {"uid": "c3", "title": "Bad Date", "allDay": true, "date": "2026-13-40"},
    {"uid": "d4", "title": null, "start": "not a time"}
  ]
}`

func TestDecodeEvents(t *testing.T) {
	p, err := Decode(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if p.Range == nil || p.Range.Start != "2026-10-01" {
		t.Errorf("range = %+v", p.Range)
	}

	events := p.Events()
	if len(events) != 4 {
		t.Fatalf("got %d events, want 4", len(events))
	}

	canada := events[0]
	if canada.Kind() != model.KindRecurring {
		t.Errorf("kind = %v, want recurring", canada.Kind())
	}
	if !canada.Date.Equal(model.Day(2020, 7, 1)) {
		t.Errorf("date = %v", canada.Date)
	}
	if canada.Calendar != "Holidays in Canada" {
		t.Errorf("calendar = %q, want payload default", canada.Calendar)
	}

	timed := events[1]
	if timed.Kind() != model.KindFixedTimed {
		t.Errorf("kind = %v, want fixed_timed", timed.Kind())
	}
	if !timed.Start.Equal(time.Date(2026, 11, 11, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %v", timed.Start)
	}
	if timed.Calendar != "Work" {
		t.Errorf("calendar = %q, want Work", timed.Calendar)
	}

	if events[2].Kind() != model.KindInvalid || !events[2].Date.IsZero() {
		t.Errorf("bad date should degrade to invalid event, got %+v", events[2])
	}
	if events[3].Title != "" || !events[3].Start.IsZero() {
		t.Errorf("null title / bad start should be empty, got %+v", events[3])
	}
}

func TestDecodeOffsetStartKeepsWrittenDay(t *testing.T) {
	tests := []struct {
		start string
		want  time.Time
	}{
		{"2026-12-31T20:00:00-08:00", model.Day(2026, 12, 31)},
		{"2026-07-01T20:00:00-07:00", model.Day(2026, 7, 1)},
		{"2026-07-02T01:00:00+09:00", model.Day(2026, 7, 2)},
	}
	for _, tt := range tests {
		p, err := Decode(strings.NewReader(`{"events":[{"title":"X","start":"` + tt.start + `"}]}`))
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		ev := p.Events()[0]
		if ev.Kind() != model.KindFixedTimed {
			t.Errorf("%s: kind = %v, want fixed_timed", tt.start, ev.Kind())
		}
		if !ev.BaseDay().Equal(tt.want) {
			t.Errorf("%s: base day = %v, want %v", tt.start, ev.BaseDay(), tt.want)
		}
	}
}

func TestDecodeStartWithoutOffset(t *testing.T) {
	p, err := Decode(strings.NewReader(`{"events":[{"title":"Canada Day","start":"2026-07-01T09:00:00","recurrence":"FREQ=YEARLY"}]}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	ev := p.Events()[0]
	if !ev.Start.Equal(time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %v", ev.Start)
	}
	if ev.Kind() != model.KindRecurring || !ev.BaseDay().Equal(model.Day(2026, 7, 1)) {
		t.Errorf("kind = %v base = %v, want recurring on 2026-07-01", ev.Kind(), ev.BaseDay())
	}
}

func TestDecodeMissingEvents(t *testing.T) {
	for _, body := range []string{`{}`, `{"events": null}`, `{"calendar": "x"}`} {
		p, err := Decode(strings.NewReader(body))
		if err != nil {
			t.Fatalf("Decode(%s): %v", body, err)
		}
		if n := len(p.Events()); n != 0 {
			t.Errorf("Decode(%s) events = %d, want 0", body, n)
		}
	}
}

func TestDecodeInvalidJSON(t *testing.T) {
	if _, err := Decode(strings.NewReader(`{"events": [`)); err == nil {
		t.Fatal("expected error for truncated JSON")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "holidays.json")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatal(err)
	}
	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for _, ev := range p.Events() {
		if ev.Source != path {
			t.Errorf("source = %q, want %q", ev.Source, path)
		}
	}

	if _, err := Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
