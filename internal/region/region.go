// Package region decides whether a holiday applies to a target jurisdiction
// based on the parenthesized region tags embedded in its title, e.g.
// "Family Day (AB, BC)".
package region

import (
	"regexp"
	"slices"
	"strings"
)

// codes is the table of recognised Canadian province/territory tags,
// including common alternates that appear in calendar titles.
var codes = map[string]struct{}{
	"AB": {}, "BC": {}, "MB": {}, "NB": {}, "NL": {}, "NS": {}, "NT": {},
	"NU": {}, "ON": {}, "PE": {}, "QC": {}, "SK": {}, "YT": {},
	"NWT": {}, "PEI": {},
}

var (
	groupRe = regexp.MustCompile(`\(([^)]*)\)`)
	tokenRe = regexp.MustCompile(`\b[A-Z]{2,3}\b`)
	// trailingTagsRe matches one trailing "(XX, YY)" annotation.
	trailingTagsRe = regexp.MustCompile(`\s*\(([A-Z]{2,3}(?:,\s*[A-Z]{2,3})*)\)\s*$`)
)

// Known reports whether code is a recognised region tag.
func Known(code string) bool {
	_, ok := codes[strings.ToUpper(strings.TrimSpace(code))]
	return ok
}

// Codes returns the recognised region tags in sorted order.
func Codes() []string {
	out := make([]string, 0, len(codes))
	for c := range codes {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}

// Tags returns the known region codes found in title's parenthesized groups,
// sorted and deduplicated. Dotted forms such as "B.C." normalise to "BC".
func Tags(title string) []string {
	var found []string
	for _, m := range groupRe.FindAllStringSubmatch(title, -1) {
		g := strings.ReplaceAll(strings.ToUpper(m[1]), ".", "")
		for _, tok := range tokenRe.FindAllString(g, -1) {
			if _, ok := codes[tok]; ok && !slices.Contains(found, tok) {
				found = append(found, tok)
			}
		}
	}
	slices.Sort(found)
	return found
}

// Applies reports whether a holiday titled title should be shown for target.
//
// Titles without parentheses, or whose parentheses hold no known region code
// (e.g. "(Observed)"), are universal. Otherwise the holiday applies only if
// target is among the codes found.
func Applies(title, target string) bool {
	tags := Tags(title)
	if len(tags) == 0 {
		return true
	}
	return slices.Contains(tags, strings.ToUpper(strings.TrimSpace(target)))
}

// DisplayTitle strips a single trailing region annotation made only of known
// codes: "Family Day (AB, BC)" -> "Family Day". Other parentheticals such as
// "(Observed)" are kept.
func DisplayTitle(title string) string {
	loc := trailingTagsRe.FindStringSubmatchIndex(title)
	if loc == nil {
		return strings.TrimSpace(title)
	}
	for _, c := range strings.Split(title[loc[2]:loc[3]], ",") {
		if !Known(c) {
			return strings.TrimSpace(title)
		}
	}
	return strings.TrimSpace(title[:loc[0]])
}
