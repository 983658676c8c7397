// Package scheduler re-runs the holiday pipeline on a cron schedule and
// whenever one of the local input files changes.
package scheduler

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	appLog "holidaycal/internal/log"
)

// DefaultDebounce coalesces bursts of file events (editors and atomic
// writers emit several per save).
const DefaultDebounce = 500 * time.Millisecond

// Job is one pipeline run. trigger is "cron" or "watch".
type Job func(ctx context.Context, trigger string)

// Scheduler owns the cron instance and the file watcher.
type Scheduler struct {
	cron     *cron.Cron
	spec     string
	files    map[string]struct{}
	job      Job
	debounce time.Duration

	wg sync.WaitGroup
}

// New creates a Scheduler running job on spec (standard 5-field cron, in
// loc) and after changes to any of files. Empty paths are ignored.
func New(spec string, loc *time.Location, files []string, job Job) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	set := make(map[string]struct{}, len(files))
	for _, f := range files {
		if f == "" {
			continue
		}
		if abs, err := filepath.Abs(f); err == nil {
			f = abs
		}
		set[filepath.Clean(f)] = struct{}{}
	}
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		spec:     spec,
		files:    set,
		job:      job,
		debounce: DefaultDebounce,
	}
}

// Start registers the cron job, starts watching and blocks until ctx is
// done.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.run(ctx, "cron") }); err != nil {
		return fmt.Errorf("scheduler: add refresh %q: %w", s.spec, err)
	}
	s.cron.Start()
	appLog.Info("scheduler started", "refresh", s.spec, "watched_files", len(s.files))

	if len(s.files) == 0 {
		<-ctx.Done()
		return nil
	}
	return s.watch(ctx)
}

// Stop stops the cron and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
	appLog.Info("scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context, trigger string) {
	s.wg.Add(1)
	defer s.wg.Done()
	if ctx.Err() != nil {
		return
	}
	appLog.Debug("scheduler: run", "trigger", trigger)
	s.job(ctx, trigger)
}

// watch follows the parent directories of the input files, since atomic
// writers replace the file rather than write to it.
func (s *Scheduler) watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("scheduler: watcher: %w", err)
	}
	defer w.Close()

	dirs := make(map[string]struct{})
	for f := range s.files {
		dirs[filepath.Dir(f)] = struct{}{}
	}
	watching := 0
	for d := range dirs {
		if err := w.Add(d); err != nil {
			appLog.Warn("scheduler: cannot watch directory", "dir", d, "err", err)
			continue
		}
		watching++
	}
	if watching == 0 {
		<-ctx.Done()
		return nil
	}

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-timerCh:
			timerCh = nil
			s.run(ctx, "watch")

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if _, tracked := s.files[filepath.Clean(ev.Name)]; !tracked {
				continue
			}
			appLog.Debug("scheduler: input changed", "path", ev.Name, "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(s.debounce)
			} else {
				timer.Reset(s.debounce)
			}
			timerCh = timer.C

		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			appLog.Error("scheduler: watcher error", werr)
		}
	}
}
