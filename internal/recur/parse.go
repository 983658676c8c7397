// Package recur implements the restricted recurrence grammar used by yearly
// holiday calendars: a parser for semicolon-delimited rule strings and an
// expander that turns a rule plus an anchor date into concrete days.
package recur

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/teambition/rrule-go"
)

// NthWeekday is a BYDAY token such as "3MO" (third Monday) or "-1MO" (last
// Monday). Ordinal counts forward from the 1st when positive and backward
// from the last day of the month when negative.
type NthWeekday struct {
	Ordinal int
	Weekday rrule.Weekday
}

func (n NthWeekday) String() string {
	wd := n.Weekday
	return strconv.Itoa(n.Ordinal) + wd.String()
}

// Rule is the parsed form of a rule string. Zero values mean "absent".
type Rule struct {
	Freq    rrule.Frequency
	HasFreq bool

	Interval int // >= 1 when set; 0 means default (1)
	Count    int // > 0 caps total occurrences since the anchor; 0 means unbounded

	// ByMonth and ByMonthDay keep any integer as written. A value that names
	// no real month or day (13, 0, -1) makes every year fail to resolve.
	ByMonth       int
	HasByMonth    bool
	ByMonthDay    int
	HasByMonthDay bool

	ByDay *NthWeekday

	// Extra holds keys this package does not interpret (UNTIL, WKST, ...).
	Extra map[string]string
}

// IsYearly reports whether the rule is the only frequency the expander supports.
func (r Rule) IsYearly() bool {
	return r.HasFreq && r.Freq == rrule.YEARLY
}

// EffectiveInterval returns the step in years, defaulting to 1.
func (r Rule) EffectiveInterval() int {
	if r.Interval <= 0 {
		return 1
	}
	return r.Interval
}

var (
	byDayRe = regexp.MustCompile(`^([+-]?\d+)?(MO|TU|WE|TH|FR|SA|SU)$`)

	// weekdayTokens maps BYDAY tokens onto rrule-go weekdays (Monday=0..Sunday=6).
	weekdayTokens = map[string]rrule.Weekday{
		"MO": rrule.MO,
		"TU": rrule.TU,
		"WE": rrule.WE,
		"TH": rrule.TH,
		"FR": rrule.FR,
		"SA": rrule.SA,
		"SU": rrule.SU,
	}
)

// ParseRule parses "KEY=VALUE;KEY=VALUE" into a Rule. Keys are
// case-insensitive. Empty segments, segments without "=", and values that do
// not parse are skipped; parsing never fails.
func ParseRule(s string) Rule {
	var r Rule
	for _, part := range strings.Split(s, ";") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		key := strings.ToUpper(strings.TrimSpace(k))
		val := strings.TrimSpace(v)

		switch key {
		case "FREQ":
			if f, err := rrule.StrToFreq(strings.ToUpper(val)); err == nil {
				r.Freq = f
				r.HasFreq = true
			}
		case "INTERVAL":
			if n, ok := positiveInt(val); ok {
				r.Interval = n
			}
		case "COUNT":
			if n, ok := positiveInt(val); ok {
				r.Count = n
			}
		case "BYMONTH":
			if n, err := strconv.Atoi(firstListItem(val)); err == nil {
				r.ByMonth = n
				r.HasByMonth = true
			}
		case "BYMONTHDAY":
			if n, err := strconv.Atoi(firstListItem(val)); err == nil {
				r.ByMonthDay = n
				r.HasByMonthDay = true
			}
		case "BYDAY":
			if nd, ok := parseByDay(firstListItem(val)); ok {
				r.ByDay = &nd
			}
		default:
			if r.Extra == nil {
				r.Extra = make(map[string]string)
			}
			r.Extra[key] = val
		}
	}
	return r
}

func parseByDay(tok string) (NthWeekday, bool) {
	m := byDayRe.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(tok)))
	if m == nil {
		return NthWeekday{}, false
	}
	nth := 1
	if m[1] != "" {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return NthWeekday{}, false
		}
		nth = n
	}
	return NthWeekday{Ordinal: nth, Weekday: weekdayTokens[m[2]]}, true
}

// positiveInt accepts plain digit strings only ("2", not "+2" or "2.0").
func positiveInt(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func firstListItem(v string) string {
	first, _, _ := strings.Cut(v, ",")
	return strings.TrimSpace(first)
}
