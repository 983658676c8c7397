// Package export reads the JSON calendar export produced by the macOS
// exporter script and turns its rows into model events.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	appLog "holidaycal/internal/log"
	"holidaycal/internal/model"
)

// Range is the export window recorded by the exporter.
type Range struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Row is a single exported event.
type Row struct {
	UID        string `json:"uid,omitempty"`
	Calendar   string `json:"calendar,omitempty"`
	Title      string `json:"title"`
	Start      string `json:"start,omitempty"`
	End        string `json:"end,omitempty"`
	AllDay     bool   `json:"allDay,omitempty"`
	Date       string `json:"date,omitempty"`
	Recurrence string `json:"recurrence,omitempty"`
}

// Payload is the top-level export document.
type Payload struct {
	Calendar    string   `json:"calendar,omitempty"`
	Calendars   []string `json:"calendars,omitempty"`
	GeneratedAt string   `json:"generatedAt,omitempty"`
	Range       *Range   `json:"range,omitempty"`
	Rows        []Row    `json:"events"`

	source string
}

// Decode parses an export payload. A payload without an "events" list is
// valid and simply has no rows.
func Decode(r io.Reader) (*Payload, error) {
	var p Payload
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("export: decode: %w", err)
	}
	return &p, nil
}

// Load reads and decodes the export file at path.
func Load(path string) (*Payload, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("export: open %s: %w", path, err)
	}
	defer f.Close()

	p, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	p.source = path
	return p, nil
}

// Events converts rows into model events. Unparseable dates are logged and
// left empty so the event degrades instead of failing the whole payload.
func (p *Payload) Events() []model.Event {
	out := make([]model.Event, 0, len(p.Rows))
	for _, row := range p.Rows {
		ev := model.Event{
			Source:     p.source,
			UID:        row.UID,
			Calendar:   row.Calendar,
			Title:      row.Title,
			AllDay:     row.AllDay,
			Recurrence: row.Recurrence,
		}
		if row.Calendar == "" {
			ev.Calendar = p.Calendar
		}

		if row.Date != "" {
			if d, err := model.ParseDate(row.Date); err == nil {
				ev.Date = d
			} else {
				appLog.Debug("export: bad date", "uid", row.UID, "date", row.Date, "err", err)
			}
		}
		if row.Start != "" {
			if t, err := model.ParseDateTime(row.Start); err == nil {
				ev.Start = t
			} else {
				appLog.Debug("export: bad start", "uid", row.UID, "start", row.Start, "err", err)
			}
		}
		out = append(out, ev)
	}
	return out
}
