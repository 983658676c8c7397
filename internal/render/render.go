// Package render builds the HTML fragment spliced into the host page: a
// Sunday-first mini month grid and a list of upcoming holidays.
package render

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"holidaycal/internal/model"
	"holidaycal/internal/region"
)

var dows = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// Fragment renders the month grid followed by the list. With no occurrences
// it renders a single "no holidays" message instead.
func Fragment(items []model.Occurrence, today time.Time, horizonDays int) string {
	if len(items) == 0 {
		return Empty(horizonDays)
	}
	return MonthGrid(items, today) + "\n" + List(items, today)
}

// Empty is the message shown when nothing falls inside the window.
func Empty(horizonDays int) string {
	return fmt.Sprintf(`<p class="muted">No holidays in the next %d days.</p>`, horizonDays)
}

// FormatDay renders "Tue, Apr 6", adding ", 2027" when includeYear is set.
func FormatDay(d time.Time, includeYear bool) string {
	if includeYear {
		return d.Format("Mon, Jan 2, 2006")
	}
	return d.Format("Mon, Jan 2")
}

// List renders the ordered holiday rows. The year is shown only for
// occurrences outside today's year.
func List(items []model.Occurrence, today time.Time) string {
	lines := []string{`<ul class="holidays">`}
	for _, it := range items {
		label := html.EscapeString(FormatDay(it.Date, it.Date.Year() != today.Year()))
		title := html.EscapeString(region.DisplayTitle(it.Title))
		lines = append(lines,
			`  <li class="holiday-row">`,
			`    <span class="holiday-date">`+label+`</span>`,
			`    <span class="holiday-title">`+title+`</span>`,
			`  </li>`,
		)
	}
	lines = append(lines, `</ul>`)
	return strings.Join(lines, "\n")
}

// MonthGrid renders the calendar month of the earliest occurrence. Holiday
// days carry a tooltip with every title on that day; today's cell is marked
// when it falls in the rendered month.
func MonthGrid(items []model.Occurrence, today time.Time) string {
	if len(items) == 0 {
		return ""
	}
	year, month := items[0].Date.Year(), items[0].Date.Month()

	titlesByDay := make(map[int][]string)
	for _, it := range items {
		if it.Date.Year() == year && it.Date.Month() == month {
			titlesByDay[it.Date.Day()] = append(titlesByDay[it.Date.Day()], it.Title)
		}
	}

	head := html.EscapeString(fmt.Sprintf("%s %d", month, year))

	lines := []string{
		`<div class="holiday-mini" aria-label="Holiday calendar">`,
		`  <div class="holiday-mini-head">` + head + `</div>`,
		`  <div class="holiday-mini-grid" role="grid" aria-label="` + head + `">`,
	}
	for _, dow := range dows {
		lines = append(lines, `    <div class="holiday-dow" role="columnheader">`+html.EscapeString(dow)+`</div>`)
	}

	for _, week := range weeks(year, month) {
		for _, day := range week {
			if day == 0 {
				lines = append(lines, `    <div class="holiday-cell is-empty" role="gridcell"></div>`)
				continue
			}

			classes := []string{"holiday-cell"}
			attrs := ""
			if titles := titlesByDay[day]; len(titles) > 0 {
				classes = append(classes, "is-holiday")
				attrs = ` title="` + html.EscapeString(strings.Join(titles, "; ")) + `"`
			}
			if year == today.Year() && month == today.Month() && day == today.Day() {
				classes = append(classes, "is-today")
			}
			lines = append(lines, `    <div class="`+strings.Join(classes, " ")+`" role="gridcell"`+attrs+
				`><span class="day">`+strconv.Itoa(day)+`</span></div>`)
		}
	}

	lines = append(lines, `  </div>`, `</div>`)
	return strings.Join(lines, "\n")
}

// weeks lays the month out as Sunday-first rows of seven; days outside the
// month are 0.
func weeks(year int, month time.Month) [][7]int {
	lead := int(model.Day(year, month, 1).Weekday()) // Sunday = 0
	n := model.DaysIn(year, month)

	var out [][7]int
	var row [7]int
	col := lead
	for d := 1; d <= n; d++ {
		row[col] = d
		col++
		if col == 7 {
			out = append(out, row)
			row = [7]int{}
			col = 0
		}
	}
	if col > 0 {
		out = append(out, row)
	}
	return out
}
