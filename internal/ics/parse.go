package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "holidaycal/internal/log"
	"holidaycal/internal/model"
)

var textUnescaper = strings.NewReplacer(`\,`, ",", `\;`, ";", `\n`, "\n", `\N`, "\n", `\\`, `\`)

// ParseICS parses a single ICS payload into model events.
//
//   - All-day events are detected from DTSTART (VALUE=DATE or a value
//     without a time part) and carry their civil date.
//   - Timed events carry their start instant in UTC.
//   - RRULE is kept verbatim; expansion happens in internal/recur.
//   - Instances with RECURRENCE-ID are skipped: their master rule already
//     yields that day.
func ParseICS(src Source, body []byte) ([]model.Event, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("ics: empty body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ics: parse %s: %w", src.ID, err)
	}

	events := make([]model.Event, 0)
	for _, ve := range cal.Events() {
		if p := ve.GetProperty("RECURRENCE-ID"); p != nil {
			appLog.Debug("ics: skipping overridden instance", "id", src.ID, "recurrence_id", p.Value)
			continue
		}
		ev, perr := parseVEvent(src, ve)
		if perr != nil {
			appLog.Warn("ics: vevent skipped", "id", src.ID, "err", perr)
			continue
		}
		events = append(events, ev)
	}

	appLog.Debug("ics: parsed", "id", src.ID, "event_count", len(events))
	return events, nil
}

func parseVEvent(src Source, ve *ical.VEvent) (model.Event, error) {
	out := model.Event{Source: src.ID, Calendar: src.Name}

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uid.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Title = textUnescaper.Replace(p.Value)
	}
	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.Recurrence = strings.TrimSpace(p.Value)
	}

	dtstart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtstart == nil {
		// No base day; selection drops it.
		return out, nil
	}

	if isDateValue(dtstart) {
		d, err := parseDateValue(dtstart.Value)
		if err != nil {
			return out, fmt.Errorf("uid %s: DTSTART %q: %w", out.UID, dtstart.Value, err)
		}
		out.AllDay = true
		out.Date = d
		return out, nil
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return out, fmt.Errorf("uid %s: DTSTART %q: %w", out.UID, dtstart.Value, err)
	}
	out.Start = start.UTC()
	return out, nil
}

func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

// parseDateValue reads a basic-format ICS date ("20260701").
func parseDateValue(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if len(v) < 8 {
		return time.Time{}, errors.New("short date value")
	}
	return time.ParseInLocation("20060102", v[:8], time.UTC)
}
