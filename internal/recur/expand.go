package recur

import (
	"errors"
	"time"

	"holidaycal/internal/model"
)

var (
	ErrOrdinalOutOfRange = errors.New("nth weekday out of range")
	ErrInvalidDay        = errors.New("day does not exist in month")
)

// Expand returns every day the rule yields inside the closed window
// [start, end], in ascending order. anchor is the event's base day: its year
// is the rule's epoch and its month/day are the fallback when the rule does
// not name them.
//
// Only YEARLY rules produce occurrences. A year whose day cannot be built
// (Feb 30, a fifth Monday that does not exist, BYMONTH=13) is skipped; later
// years are still attempted.
func Expand(rule Rule, anchor, start, end time.Time) []time.Time {
	if !rule.IsYearly() {
		return nil
	}
	anchor = model.DayOf(anchor)
	start = model.DayOf(start)
	end = model.DayOf(end)
	if end.Before(start) {
		return nil
	}

	interval := rule.EffectiveInterval()

	month := anchor.Month()
	if rule.HasByMonth {
		month = time.Month(rule.ByMonth)
	}

	anchorYear := anchor.Year()
	var out []time.Time
	for year := firstYear(anchorYear, start.Year(), interval); year <= end.Year(); year += interval {
		idx := (year-anchorYear)/interval + 1
		if rule.Count > 0 && idx > rule.Count {
			break
		}

		day, err := resolveDay(rule, year, month, anchor.Day())
		if err != nil {
			continue
		}
		if day.Before(start) || day.After(end) {
			continue
		}
		out = append(out, day)
	}
	return out
}

// firstYear is the first year >= both the anchor year and the window start
// year that is reachable from the anchor in whole interval steps.
func firstYear(anchorYear, startYear, interval int) int {
	if startYear <= anchorYear {
		return anchorYear
	}
	steps := (startYear - anchorYear + interval - 1) / interval
	return anchorYear + steps*interval
}

// resolveDay applies BYMONTHDAY, then BYDAY, then the anchor's day-of-month.
func resolveDay(rule Rule, year int, month time.Month, anchorDay int) (time.Time, error) {
	switch {
	case rule.HasByMonthDay:
		return dateIn(year, month, rule.ByMonthDay)
	case rule.ByDay != nil:
		wd := rule.ByDay.Weekday
		return NthWeekdayOfMonth(year, month, wd.Day(), rule.ByDay.Ordinal)
	default:
		return dateIn(year, month, anchorDay)
	}
}

// dateIn builds a date without letting time.Date normalise overflow
// (Feb 30 must fail, not become Mar 2).
func dateIn(year int, month time.Month, day int) (time.Time, error) {
	if month < time.January || month > time.December {
		return time.Time{}, ErrInvalidDay
	}
	if day < 1 || day > model.DaysIn(year, month) {
		return time.Time{}, ErrInvalidDay
	}
	return model.Day(year, month, day), nil
}

// NthWeekdayOfMonth returns the nth weekday of a month. weekday uses
// Monday=0..Sunday=6; nth is 1..5 counting forward from the 1st or -1..-5
// counting backward from the last day.
func NthWeekdayOfMonth(year int, month time.Month, weekday, nth int) (time.Time, error) {
	if nth == 0 || weekday < 0 || weekday > 6 {
		return time.Time{}, ErrOrdinalOutOfRange
	}
	if month < time.January || month > time.December {
		return time.Time{}, ErrInvalidDay
	}
	lastDay := model.DaysIn(year, month)
	if nth > 0 {
		first := model.Day(year, month, 1)
		offset := mod7(weekday - mondayIndex(first.Weekday()))
		day := 1 + offset + 7*(nth-1)
		if day > lastDay {
			return time.Time{}, ErrOrdinalOutOfRange
		}
		return model.Day(year, month, day), nil
	}

	last := model.Day(year, month, lastDay)
	offset := mod7(mondayIndex(last.Weekday()) - weekday)
	day := lastDay - offset - 7*(-nth-1)
	if day < 1 {
		return time.Time{}, ErrOrdinalOutOfRange
	}
	return model.Day(year, month, day), nil
}

// mondayIndex converts time.Weekday (Sunday=0) to Monday=0..Sunday=6.
func mondayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}

func mod7(n int) int {
	return ((n % 7) + 7) % 7
}
