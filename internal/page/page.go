// Package page splices the rendered holiday fragment into the host HTML
// document between two marker comments.
package page

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	StartMarker = "<!-- UPCOMING_HOLIDAYS_START -->"
	EndMarker   = "<!-- UPCOMING_HOLIDAYS_END -->"
)

var (
	// ErrMarkersMissing is returned when either marker is absent or the end
	// marker precedes the start marker.
	ErrMarkersMissing = errors.New("page: markers missing (expected " + StartMarker + " ... " + EndMarker + ")")
	// ErrMalformed is returned when the start marker is not on a line of its
	// own before the end marker.
	ErrMalformed = errors.New("page: start marker not followed by newline")
)

// ReplaceBetweenMarkers replaces the whole lines between the marker lines
// with fragment. Each non-blank fragment line is prefixed with the start
// marker's indentation; blank lines stay empty. The end marker is
// re-indented with the same indentation.
func ReplaceBetweenMarkers(text, fragment string) (string, error) {
	start := strings.Index(text, StartMarker)
	end := strings.Index(text, EndMarker)
	if start == -1 || end == -1 || end < start {
		return "", ErrMarkersMissing
	}

	lineStart := strings.LastIndexByte(text[:start], '\n') + 1
	indent := leadingSpace(text[lineStart:start])

	nl := strings.IndexByte(text[start:], '\n')
	if nl == -1 {
		return "", ErrMalformed
	}
	lineEnd := start + nl + 1
	if end < lineEnd {
		return "", ErrMalformed
	}

	lines := splitLines(fragment)
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			lines[i] = strings.TrimRight(indent, " \t")
		} else {
			lines[i] = indent + line
		}
	}

	var b strings.Builder
	b.Grow(len(text) + len(fragment))
	b.WriteString(text[:lineEnd])
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n")
	b.WriteString(indent)
	b.WriteString(text[end:])
	return b.String(), nil
}

// SpliceFile rewrites the document at path with fragment spliced in. The
// write goes through a temp file in the same directory and a rename, so
// readers never see a half-written page. The original file mode is kept.
func SpliceFile(path, fragment string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("page: stat %s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("page: read %s: %w", path, err)
	}

	out, err := ReplaceBetweenMarkers(string(data), fragment)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if out == string(data) {
		return nil
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".holidaycal-page-*.tmp")
	if err != nil {
		return fmt.Errorf("page: temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(out); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, info.Mode().Perm()); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func leadingSpace(s string) string {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return s[:i]
}

// splitLines splits on line breaks without producing a trailing empty
// element, so "a\nb\n" and "a\nb" both yield two lines.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}
