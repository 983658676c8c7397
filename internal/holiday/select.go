// Package holiday turns raw calendar events into the bounded, sorted list of
// upcoming holiday occurrences shown on the page.
package holiday

import (
	"cmp"
	"slices"
	"strings"
	"time"

	appLog "holidaycal/internal/log"
	"holidaycal/internal/model"
	"holidaycal/internal/recur"
	"holidaycal/internal/region"
)

// Options are the plain parameters of a selection run.
type Options struct {
	// Today is the reference date; the window starts here.
	Today time.Time
	// HorizonDays is the window length; the window end is Today+HorizonDays.
	HorizonDays int
	// Limit caps the number of occurrences returned.
	Limit int
	// Region is the target region code, e.g. "BC".
	Region string
}

// Window is a closed date interval [Start, End].
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether day lies inside the window, bounds included.
func (w Window) Contains(day time.Time) bool {
	return !day.Before(w.Start) && !day.After(w.End)
}

// Window returns [Today, Today+HorizonDays].
func (o Options) Window() Window {
	start := model.DayOf(o.Today)
	return Window{Start: start, End: start.AddDate(0, 0, o.HorizonDays)}
}

type occKey struct {
	date  time.Time
	title string
}

// Select resolves every event into its occurrences inside the window, drops
// untitled events and events for other regions, removes duplicate
// (date, title) pairs, sorts by date then case-insensitive title, and keeps
// the first Limit entries.
func Select(events []model.Event, opts Options) []model.Occurrence {
	win := opts.Window()
	seen := make(map[occKey]struct{})
	items := make([]model.Occurrence, 0)

	add := func(day time.Time, title string) {
		k := occKey{date: day, title: title}
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		items = append(items, model.Occurrence{Date: day, Title: title})
	}

	for _, ev := range events {
		title := strings.TrimSpace(ev.Title)
		if title == "" {
			continue
		}
		if !region.Applies(title, opts.Region) {
			continue
		}

		switch kind := ev.Kind(); kind {
		case model.KindRecurring:
			rule := recur.ParseRule(ev.Recurrence)
			if !rule.IsYearly() {
				appLog.Debug("holiday: unsupported recurrence, skipping", "title", title, "rrule", ev.Recurrence)
				continue
			}
			for _, day := range recur.Expand(rule, ev.BaseDay(), win.Start, win.End) {
				add(day, title)
			}
		case model.KindFixedAllDay, model.KindFixedTimed:
			day := ev.BaseDay()
			if !win.Contains(day) {
				continue
			}
			add(day, title)
		default:
			appLog.Debug("holiday: event has no date, skipping", "title", title, "uid", ev.UID, "source", ev.Source)
		}
	}

	slices.SortStableFunc(items, func(a, b model.Occurrence) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	})

	if opts.Limit <= 0 {
		return items[:0]
	}
	if len(items) > opts.Limit {
		items = items[:opts.Limit]
	}
	return items
}
