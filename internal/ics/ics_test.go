package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"holidaycal/internal/model"
)

const feed = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//test//holidays//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:canada-day\r\n" +
	"DTSTAMP:20260101T000000Z\r\n" +
	"DTSTART;VALUE=DATE:20200701\r\n" +
	"RRULE:FREQ=YEARLY;BYMONTH=7;BYMONTHDAY=1\r\n" +
	"SUMMARY:Canada Day\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:family-day\r\n" +
	"DTSTAMP:20260101T000000Z\r\n" +
	"DTSTART:20260216\r\n" +
	"SUMMARY:Family Day (AB\\, BC)\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:remembrance\r\n" +
	"DTSTAMP:20260101T000000Z\r\n" +
	"DTSTART:20261111T080000Z\r\n" +
	"SUMMARY:Remembrance Day\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:canada-day\r\n" +
	"DTSTAMP:20260101T000000Z\r\n" +
	"RECURRENCE-ID;VALUE=DATE:20260701\r\n" +
	"DTSTART;VALUE=DATE:20260702\r\n" +
	"SUMMARY:Canada Day (moved)\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"DTSTAMP:20260101T000000Z\r\n" +
	"DTSTART;VALUE=DATE:20260101\r\n" +
	"SUMMARY:No UID\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestParseICS(t *testing.T) {
	src := Source{ID: "ca", Name: "Canadian Holidays"}
	events, err := ParseICS(src, []byte(feed))
	if err != nil {
		t.Fatalf("ParseICS: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3: %+v", len(events), events)
	}

	byUID := make(map[string]model.Event)
	for _, ev := range events {
		if ev.Source != "ca" || ev.Calendar != "Canadian Holidays" {
			t.Errorf("source/calendar = %q/%q", ev.Source, ev.Calendar)
		}
		byUID[ev.UID] = ev
	}

	canada := byUID["canada-day"]
	if canada.Title != "Canada Day" {
		t.Errorf("override replaced master: %+v", canada)
	}
	if !canada.AllDay || !canada.Date.Equal(model.Day(2020, 7, 1)) {
		t.Errorf("canada = %+v", canada)
	}
	if canada.Recurrence != "FREQ=YEARLY;BYMONTH=7;BYMONTHDAY=1" {
		t.Errorf("recurrence = %q", canada.Recurrence)
	}

	family := byUID["family-day"]
	if family.Title != "Family Day (AB, BC)" {
		t.Errorf("title = %q, want unescaped comma", family.Title)
	}
	if !family.AllDay || family.Kind() != model.KindFixedAllDay {
		t.Errorf("family = %+v", family)
	}

	rem := byUID["remembrance"]
	if rem.AllDay || !rem.Start.Equal(time.Date(2026, 11, 11, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("remembrance = %+v", rem)
	}
}

func TestParseICSEmpty(t *testing.T) {
	if _, err := ParseICS(Source{ID: "x"}, []byte("  \n")); err == nil {
		t.Fatal("expected error for empty body")
	}
}

func TestRedactURL(t *testing.T) {
	got := redactURL("https://calendar.example.com/private/abc123/basic.ics?token=secret")
	if got != "https://calendar.example.com/...(redacted)" {
		t.Errorf("redactURL = %q", got)
	}
	if strings.Contains(got, "secret") {
		t.Error("token leaked")
	}
	if got := redactURL("not a url"); got != "ics://...(redacted)" {
		t.Errorf("redactURL(bad) = %q", got)
	}
}

func TestFetchOneCachesAndRevalidates(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(feed))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	src := Source{ID: "ca", URL: srv.URL + "/basic.ics"}

	first, err := f.FetchOne(context.Background(), src)
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if first.FromCache || string(first.Body) != feed {
		t.Errorf("first fetch: from_cache=%v body=%d bytes", first.FromCache, len(first.Body))
	}

	second, err := f.FetchOne(context.Background(), src)
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if !second.FromCache || string(second.Body) != feed {
		t.Errorf("second fetch should come from cache after 304")
	}
	if hits.Load() != 2 {
		t.Errorf("server hits = %d, want 2", hits.Load())
	}
}

func TestFetchOneFallsBackToCache(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(feed))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	src := Source{ID: "ca", URL: srv.URL}
	if _, err := f.FetchOne(context.Background(), src); err != nil {
		t.Fatalf("prime: %v", err)
	}

	fail.Store(true)
	res, err := f.FetchOne(context.Background(), src)
	if err != nil {
		t.Fatalf("fallback: %v", err)
	}
	if !res.FromCache || string(res.Body) != feed {
		t.Error("expected cached body on 500")
	}

	_, err = NewFetcher(t.TempDir()).FetchOne(context.Background(), src)
	if err == nil {
		t.Error("expected error on 500 without cache")
	}
}

func TestReadLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "holidays.ics")
	if err := os.WriteFile(path, []byte(feed), 0o600); err != nil {
		t.Fatal(err)
	}
	res, err := NewFetcher(t.TempDir()).Read(context.Background(), Source{ID: "file", Path: path})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(res.Body) != feed {
		t.Error("body mismatch")
	}

	if _, err := NewFetcher(t.TempDir()).Read(context.Background(), Source{Path: path + ".missing"}); err == nil {
		t.Error("expected error for missing file")
	}
}
