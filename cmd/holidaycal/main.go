package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"holidaycal/internal/capture"
	"holidaycal/internal/config"
	appLog "holidaycal/internal/log"
	"holidaycal/internal/pipeline"
	"holidaycal/internal/scheduler"
	"holidaycal/internal/web"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := &cli.Command{
		Name:   "holidaycal",
		Usage:  "Render upcoming holidays into a static HTML page",
		Flags:  append(globalFlags(), selectionFlags()...),
		Action: runRender,
		Commands: []*cli.Command{
			{
				Name:   "render",
				Usage:  "Render once and splice the fragment into the index page",
				Flags:  append(selectionFlags(), &cli.BoolFlag{Name: "dry-run", Usage: "Print the fragment instead of writing the index"}),
				Action: runRender,
			},
			{
				Name:   "serve",
				Usage:  "Re-render on schedule and on input changes, and serve the HTTP API",
				Flags:  append(selectionFlags(), &cli.StringFlag{Name: "listen", Usage: "HTTP listen address"}),
				Action: runServe,
			},
			{
				Name:  "preview",
				Usage: "Render once and capture a PNG of the index page with headless Chromium",
				Flags: append(selectionFlags(),
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "PNG output path"},
				),
				Action: runPreview,
			},
		},
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		appLog.Error("holidaycal failed", err)
		os.Exit(1)
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to YAML config file (created with defaults if missing)",
			Sources: cli.EnvVars("HOLIDAYCAL_CONFIG"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "debug, info, warn or error",
			Sources: cli.EnvVars("HOLIDAYCAL_LOG_LEVEL"),
		},
	}
}

func selectionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "index", Usage: "Host HTML page with the holiday markers"},
		&cli.StringFlag{Name: "input", Usage: "JSON calendar export"},
		&cli.StringFlag{Name: "region", Usage: "Target region code", Sources: cli.EnvVars("HOLIDAYCAL_REGION")},
		&cli.IntFlag{Name: "horizon-days", Usage: "Days after today to include"},
		&cli.IntFlag{Name: "limit", Usage: "Maximum number of holidays shown"},
		&cli.StringFlag{Name: "today", Usage: `Override today: YYYY-MM-DD or a phrase like "next monday"`},
	}
}

// loadConfig reads the config file (if any) and applies flag overrides.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if path := cmd.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
		cfg = loaded
	}

	if cmd.IsSet("index") {
		cfg.Index = cmd.String("index")
	}
	if cmd.IsSet("input") {
		cfg.Input = cmd.String("input")
	}
	if cmd.IsSet("region") {
		cfg.Region = cmd.String("region")
	}
	if cmd.IsSet("horizon-days") {
		cfg.HorizonDays = int(cmd.Int("horizon-days"))
	}
	if cmd.IsSet("limit") {
		cfg.Limit = int(cmd.Int("limit"))
	}
	if cmd.IsSet("listen") {
		cfg.Listen = cmd.String("listen")
	}
	if cmd.IsSet("output") {
		cfg.Preview.Output = cmd.String("output")
	}
	if cmd.IsSet("log-level") {
		cfg.LogLevel = cmd.String("log-level")
	}
	cfg.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	appLog.SetLevel(appLog.ParseLevel(cfg.LogLevel))
	return cfg, nil
}

func referenceDay(cmd *cli.Command, runner *pipeline.Runner) (time.Time, error) {
	if v := cmd.String("today"); v != "" {
		return config.ParseReferenceDate(v, time.Now().In(runner.Config().Location()))
	}
	return runner.Today(), nil
}

func runRender(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	runner := pipeline.New(cfg)
	today, err := referenceDay(cmd, runner)
	if err != nil {
		return err
	}

	if cmd.Bool("dry-run") {
		res, err := runner.Build(ctx, today)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(os.Stdout, res.Fragment)
		return err
	}

	_, err = runner.Run(ctx, today)
	return err
}

func runPreview(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	runner := pipeline.New(cfg)
	today, err := referenceDay(cmd, runner)
	if err != nil {
		return err
	}
	if _, err := runner.Run(ctx, today); err != nil {
		return err
	}

	if err := capture.CapturePagePNG(ctx, capture.Options{
		URL:        cfg.Index,
		OutputPath: cfg.Preview.Output,
		Width:      cfg.Preview.Width,
		Height:     cfg.Preview.Height,
	}); err != nil {
		return err
	}
	appLog.Info("preview written", "output", cfg.Preview.Output)
	return nil
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	runner := pipeline.New(cfg)

	appLog.Info("effective config",
		"index", cfg.Index,
		"input", cfg.Input,
		"ics_count", len(cfg.ICS),
		"region", cfg.Region,
		"horizon_days", cfg.HorizonDays,
		"limit", cfg.Limit,
		"timezone", cfg.Location().String(),
		"refresh", cfg.RefreshCron,
		"listen", cfg.Listen,
	)

	job := func(ctx context.Context, trigger string) {
		if _, err := runner.Run(ctx, runner.Today()); err != nil {
			appLog.Error("scheduled render failed", err, "trigger", trigger)
		}
	}
	// A failed first render is not fatal; the next trigger retries.
	job(ctx, "startup")

	watched := []string{cfg.Input}
	for _, src := range cfg.ICS {
		watched = append(watched, src.Path)
	}
	sched := scheduler.New(cfg.RefreshCron, cfg.Location(), watched, job)
	srv := web.NewServer(cfg, runner)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer sched.Stop()
		return sched.Start(gctx)
	})
	g.Go(func() error {
		return srv.ListenAndServe(gctx)
	})

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	appLog.Info("holidaycal exiting")
	return nil
}
