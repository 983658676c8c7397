package page

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const doc = "<html>\n" +
	"  <body>\n" +
	"    <section>\n" +
	"      <!-- UPCOMING_HOLIDAYS_START -->\n" +
	"      <p>stale</p>\n" +
	"      <!-- UPCOMING_HOLIDAYS_END -->\n" +
	"    </section>\n" +
	"  </body>\n" +
	"</html>\n"

func TestReplaceBetweenMarkers(t *testing.T) {
	got, err := ReplaceBetweenMarkers(doc, "<ul>\n  <li>A</li>\n\n</ul>")
	if err != nil {
		t.Fatalf("ReplaceBetweenMarkers: %v", err)
	}
	want := "<html>\n" +
		"  <body>\n" +
		"    <section>\n" +
		"      <!-- UPCOMING_HOLIDAYS_START -->\n" +
		"      <ul>\n" +
		"        <li>A</li>\n" +
		"\n" +
		"      </ul>\n" +
		"      <!-- UPCOMING_HOLIDAYS_END -->\n" +
		"    </section>\n" +
		"  </body>\n" +
		"</html>\n"
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}

	again, err := ReplaceBetweenMarkers(got, "<ul>\n  <li>A</li>\n\n</ul>")
	if err != nil {
		t.Fatal(err)
	}
	if again != got {
		t.Error("splicing the same fragment twice should be stable")
	}
}

func TestReplaceBetweenMarkers_EmptyFragment(t *testing.T) {
	got, err := ReplaceBetweenMarkers(doc, "")
	if err != nil {
		t.Fatal(err)
	}
	want := "<html>\n  <body>\n    <section>\n" +
		"      <!-- UPCOMING_HOLIDAYS_START -->\n" +
		"\n" +
		"      <!-- UPCOMING_HOLIDAYS_END -->\n" +
		"    </section>\n  </body>\n</html>\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestReplaceBetweenMarkers_Errors(t *testing.T) {
	tests := []struct {
		name string
		text string
		want error
	}{
		{"no markers", "<html></html>", ErrMarkersMissing},
		{"no end", StartMarker + "\n", ErrMarkersMissing},
		{"reversed", EndMarker + "\n" + StartMarker + "\n", ErrMarkersMissing},
		{"start at eof", EndMarker + StartMarker, ErrMarkersMissing},
		{"same line", StartMarker + EndMarker + "\n", ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReplaceBetweenMarkers(tt.text, "<p>x</p>")
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSpliceFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.html")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := SpliceFile(path, `<p class="muted">No holidays in the next 180 days.</p>`); err != nil {
		t.Fatalf("SpliceFile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := ReplaceBetweenMarkers(doc, `<p class="muted">No holidays in the next 180 days.</p>`)
	if string(data) != want {
		t.Errorf("file content:\n%s", data)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o644 {
		t.Errorf("mode = %v, want 0644", info.Mode().Perm())
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temp file left behind: %v", entries)
	}
}

func TestSpliceFile_MissingMarkersLeavesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.html")
	if err := os.WriteFile(path, []byte("<html></html>"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := SpliceFile(path, "<p>x</p>"); !errors.Is(err, ErrMarkersMissing) {
		t.Fatalf("err = %v, want ErrMarkersMissing", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "<html></html>" {
		t.Errorf("file modified: %q", data)
	}
}
