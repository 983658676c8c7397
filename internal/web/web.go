package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"holidaycal/internal/config"
	"holidaycal/internal/holiday"
	appLog "holidaycal/internal/log"
	"holidaycal/internal/pipeline"
	"holidaycal/internal/region"
)

// Builder produces holiday selections. *pipeline.Runner implements it.
type Builder interface {
	Today() time.Time
	Options(today time.Time) holiday.Options
	BuildWith(ctx context.Context, opts holiday.Options) (pipeline.Result, error)
}

// Server exposes the current holiday selection over HTTP.
type Server struct {
	cfg    *config.Config
	b      Builder
	router chi.Router

	// Short-lived cache so repeated page loads don't re-read every source.
	cacheMu sync.RWMutex
	cache   map[holiday.Options]cachedResult
	ttl     time.Duration
}

type cachedResult struct {
	res       pipeline.Result
	updatedAt time.Time
}

// NewServer constructs a Server for cfg backed by b.
func NewServer(cfg *config.Config, b Builder) *Server {
	s := &Server{
		cfg:   cfg,
		b:     b,
		cache: make(map[holiday.Options]cachedResult),
		ttl:   30 * time.Second,
	}
	s.router = s.routes()
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on cfg.Listen until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen, "basic_auth", s.basicAuthEnabled())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.basicAuthEnabled() {
			r.Use(s.basicAuthMiddleware)
		}
		r.Get("/api/holidays", s.handleHolidays)
		r.Get("/fragment", s.handleFragment)
		r.Handle("/metrics", promhttp.Handler())
	})
	return r
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured. Empty
// credentials count as disabled.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="holidaycal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// holidaysResponse is the JSON shape of /api/holidays.
type holidaysResponse struct {
	Today       string       `json:"today"`
	WindowStart string       `json:"window_start"`
	WindowEnd   string       `json:"window_end"`
	HorizonDays int          `json:"horizon_days"`
	Limit       int          `json:"limit"`
	Region      string       `json:"region"`
	Holidays    []holidayDTO `json:"holidays"`
}

type holidayDTO struct {
	Date         string   `json:"date"`
	Title        string   `json:"title"`
	DisplayTitle string   `json:"display_title"`
	Regions      []string `json:"regions"`
}

// handleHolidays returns the selected holidays.
//
// GET /api/holidays?today=2026-10-15&days=180&limit=8&region=BC
//
// Every parameter is optional and overrides the configured value; today
// also accepts phrases such as "next monday".
func (s *Server) handleHolidays(w http.ResponseWriter, r *http.Request) {
	opts, err := s.optionsFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.build(r.Context(), opts)
	if err != nil {
		appLog.Error("api holidays: build failed", err)
		writeError(w, http.StatusInternalServerError, "failed to load holidays")
		return
	}

	win := opts.Window()
	resp := holidaysResponse{
		Today:       opts.Today.Format(time.DateOnly),
		WindowStart: win.Start.Format(time.DateOnly),
		WindowEnd:   win.End.Format(time.DateOnly),
		HorizonDays: opts.HorizonDays,
		Limit:       opts.Limit,
		Region:      opts.Region,
		Holidays:    make([]holidayDTO, 0, len(res.Occurrences)),
	}
	for _, o := range res.Occurrences {
		tags := region.Tags(o.Title)
		if tags == nil {
			tags = []string{}
		}
		resp.Holidays = append(resp.Holidays, holidayDTO{
			Date:         o.Date.Format(time.DateOnly),
			Title:        o.Title,
			DisplayTitle: region.DisplayTitle(o.Title),
			Regions:      tags,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleFragment returns the rendered HTML fragment.
func (s *Server) handleFragment(w http.ResponseWriter, r *http.Request) {
	opts, err := s.optionsFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := s.build(r.Context(), opts)
	if err != nil {
		appLog.Error("fragment: build failed", err)
		http.Error(w, "failed to load holidays", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(res.Fragment))
}

func (s *Server) optionsFromQuery(r *http.Request) (holiday.Options, error) {
	q := r.URL.Query()

	today := s.b.Today()
	if v := q.Get("today"); v != "" {
		d, err := config.ParseReferenceDate(v, time.Now().In(s.cfg.Location()))
		if err != nil {
			return holiday.Options{}, err
		}
		today = d
	}

	opts := s.b.Options(today)
	opts.HorizonDays = parseIntDefault(q.Get("days"), opts.HorizonDays)
	if opts.HorizonDays > config.MaxHorizonDays {
		return holiday.Options{}, fmt.Errorf("days must be at most %d", config.MaxHorizonDays)
	}
	opts.Limit = parseIntDefault(q.Get("limit"), opts.Limit)
	if v := strings.TrimSpace(q.Get("region")); v != "" {
		if !region.Known(v) {
			return holiday.Options{}, fmt.Errorf("unknown region %q", v)
		}
		opts.Region = strings.ToUpper(v)
	}
	return opts, nil
}

func (s *Server) build(ctx context.Context, opts holiday.Options) (pipeline.Result, error) {
	now := time.Now()

	s.cacheMu.RLock()
	c, ok := s.cache[opts]
	s.cacheMu.RUnlock()
	if ok && now.Sub(c.updatedAt) < s.ttl {
		return c.res, nil
	}

	res, err := s.b.BuildWith(ctx, opts)
	if err != nil {
		return pipeline.Result{}, err
	}

	s.cacheMu.Lock()
	for k, v := range s.cache {
		if now.Sub(v.updatedAt) >= s.ttl {
			delete(s.cache, k)
		}
	}
	s.cache[opts] = cachedResult{res: res, updatedAt: now}
	s.cacheMu.Unlock()
	return res, nil
}

// parseIntDefault returns def for missing, malformed or non-positive values.
func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
