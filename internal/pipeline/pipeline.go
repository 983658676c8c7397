// Package pipeline ties the inputs, holiday selection, rendering and page
// splicing together into a single run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"holidaycal/internal/config"
	"holidaycal/internal/export"
	"holidaycal/internal/holiday"
	"holidaycal/internal/ics"
	appLog "holidaycal/internal/log"
	"holidaycal/internal/metrics"
	"holidaycal/internal/model"
	"holidaycal/internal/page"
	"holidaycal/internal/render"
)

// ErrNoSources is returned when no input produced any events, either
// because none is configured or because every one failed.
var ErrNoSources = errors.New("pipeline: no usable input sources")

// Result is the outcome of a build.
type Result struct {
	Options     holiday.Options
	Occurrences []model.Occurrence
	Fragment    string
}

// Runner executes the pipeline for one configuration. Runs are serialised.
type Runner struct {
	cfg     *config.Config
	fetcher *ics.Fetcher
	now     func() time.Time

	mu sync.Mutex
}

// New creates a Runner for cfg.
func New(cfg *config.Config) *Runner {
	return &Runner{
		cfg:     cfg,
		fetcher: ics.NewFetcher(cfg.CacheDir),
		now:     time.Now,
	}
}

// Config returns the runner's configuration.
func (r *Runner) Config() *config.Config {
	return r.cfg
}

// Today returns the current day in the configured zone.
func (r *Runner) Today() time.Time {
	return r.cfg.Today(r.now())
}

// Options returns the configured selection options for today.
func (r *Runner) Options(today time.Time) holiday.Options {
	return holiday.Options{
		Today:       today,
		HorizonDays: r.cfg.HorizonDays,
		Limit:       r.cfg.Limit,
		Region:      r.cfg.Region,
	}
}

// Load gathers events from the JSON export and every ICS source. A failing
// source is logged and skipped; if nothing could be read, the individual
// errors are returned joined with ErrNoSources.
func (r *Runner) Load(ctx context.Context) ([]model.Event, error) {
	var (
		events []model.Event
		errs   []error
		ok     int
	)

	if r.cfg.Input != "" {
		p, err := export.Load(r.cfg.Input)
		if err != nil {
			appLog.Error("export load failed", err, "path", r.cfg.Input)
			metrics.Failures.WithLabelValues("load").Inc()
			errs = append(errs, err)
		} else {
			evs := p.Events()
			metrics.SourceEvents.WithLabelValues(r.cfg.Input).Set(float64(len(evs)))
			events = append(events, evs...)
			ok++
		}
	}

	parsed := make([][]model.Event, len(r.cfg.ICS))
	icsErrs := make([]error, len(r.cfg.ICS))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, sc := range r.cfg.ICS {
		i := i
		src := ics.Source{ID: sc.ID, Name: sc.Name, URL: sc.URL, Path: sc.Path}
		g.Go(func() error {
			res, err := r.fetcher.Read(gctx, src)
			if err == nil {
				parsed[i], err = ics.ParseICS(src, res.Body)
			}
			icsErrs[i] = err
			return nil
		})
	}
	_ = g.Wait()

	for i, sc := range r.cfg.ICS {
		if err := icsErrs[i]; err != nil {
			appLog.Error("ics source failed", err, "id", sc.ID)
			metrics.Failures.WithLabelValues("load").Inc()
			errs = append(errs, fmt.Errorf("ics %s: %w", sc.ID, err))
			continue
		}
		metrics.SourceEvents.WithLabelValues(sc.ID).Set(float64(len(parsed[i])))
		events = append(events, parsed[i]...)
		ok++
	}

	if ok == 0 {
		return nil, errors.Join(append([]error{ErrNoSources}, errs...)...)
	}
	appLog.Debug("events loaded", "count", len(events), "sources", ok, "failed", len(errs))
	return events, nil
}

// Build loads events and renders the fragment for today using the
// configured options.
func (r *Runner) Build(ctx context.Context, today time.Time) (Result, error) {
	return r.BuildWith(ctx, r.Options(today))
}

// BuildWith is Build with explicit selection options.
func (r *Runner) BuildWith(ctx context.Context, opts holiday.Options) (Result, error) {
	events, err := r.Load(ctx)
	if err != nil {
		return Result{}, err
	}
	items := holiday.Select(events, opts)
	return Result{
		Options:     opts,
		Occurrences: items,
		Fragment:    render.Fragment(items, opts.Today, opts.HorizonDays),
	}, nil
}

// Run builds the fragment and splices it into the host document.
func (r *Runner) Run(ctx context.Context, today time.Time) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	defer func() { metrics.Duration.Observe(time.Since(start).Seconds()) }()

	res, err := r.Build(ctx, today)
	if err != nil {
		return Result{}, err
	}
	if err := page.SpliceFile(r.cfg.Index, res.Fragment); err != nil {
		metrics.Failures.WithLabelValues("splice").Inc()
		return Result{}, err
	}

	metrics.Renders.Inc()
	metrics.Occurrences.Set(float64(len(res.Occurrences)))
	metrics.LastSuccess.SetToCurrentTime()
	appLog.Info("holidays updated",
		"index", r.cfg.Index,
		"today", today.Format(time.DateOnly),
		"count", len(res.Occurrences),
		"region", res.Options.Region,
	)
	return res, nil
}
