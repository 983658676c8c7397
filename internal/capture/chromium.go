package capture

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

const (
	DefaultWidth      = 800
	DefaultHeight     = 480
	DefaultTimeoutSec = 30

	// ReadySelector matches the rendered holiday block: the mini calendar
	// or the empty-window message.
	ReadySelector = ".holiday-mini, .muted"
)

// Options defines parameters for a Chromium-based screenshot capture.
type Options struct {
	// URL to capture. Local paths are accepted and turned into file:// URLs.
	URL string

	// OutputPath is where the PNG is written.
	OutputPath string

	// Width and Height are the viewport size in pixels; zero means the
	// defaults.
	Width  int
	Height int

	// Timeout bounds the whole capture; zero means DefaultTimeoutSec.
	Timeout time.Duration
}

// PageURL turns a local file path into a file:// URL. Values that already
// carry a scheme are returned unchanged.
func PageURL(target string) (string, error) {
	if strings.Contains(target, "://") {
		return target, nil
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return "", err
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}

func (o *Options) normalize() error {
	if o.URL == "" {
		return fmt.Errorf("capture: URL is required")
	}
	if o.OutputPath == "" {
		return fmt.Errorf("capture: OutputPath is required")
	}
	u, err := PageURL(o.URL)
	if err != nil {
		return fmt.Errorf("capture: resolve %s: %w", o.URL, err)
	}
	o.URL = u
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = time.Duration(DefaultTimeoutSec) * time.Second
	}
	return nil
}

// CapturePagePNG opens the host page in headless Chromium, waits until the
// holiday block is visible and writes a full-page PNG to opts.OutputPath.
func CapturePagePNG(parentCtx context.Context, opts Options) error {
	if err := opts.normalize(); err != nil {
		return err
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(ReadySelector, chromedp.ByQuery),
		// Let web fonts settle.
		chromedp.Sleep(300 * time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	}
	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := os.WriteFile(opts.OutputPath, png, 0o644); err != nil {
		return fmt.Errorf("capture: write PNG: %w", err)
	}
	return nil
}
