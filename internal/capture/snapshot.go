// Package capture renders the /calendar week view to PNG with a headless
// Chromium driven by chromedp.
package capture

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	appLog "notedesk/internal/log"
)

const (
	DefaultWidth   = 1280
	DefaultHeight  = 800
	DefaultTimeout = 30 * time.Second

	// ReadySelector matches the week grid once it has been rendered.
	ReadySelector = `#week[data-ready="true"]`
)

var (
	ErrNoURL    = errors.New("capture: URL is required")
	ErrNoOutput = errors.New("capture: output path is required")
)

// Options configures a single snapshot.
type Options struct {
	// URL of the calendar page, e.g. "http://127.0.0.1:8080/calendar".
	URL string
	// Date selects the week by one of its days (YYYY-MM-DD). Empty keeps
	// whatever URL already asks for.
	Date string

	OutputPath string

	Width   int
	Height  int
	Timeout time.Duration

	// Username and Password are sent as HTTP Basic Auth when set.
	Username string
	Password string
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

// target returns URL with the date query applied.
func (o Options) target() (string, error) {
	if o.URL == "" {
		return "", ErrNoURL
	}
	u, err := url.Parse(o.URL)
	if err != nil {
		return "", fmt.Errorf("capture: invalid URL: %w", err)
	}
	if o.Date != "" {
		q := u.Query()
		q.Set("date", o.Date)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (o Options) authHeader() network.Headers {
	if o.Username == "" && o.Password == "" {
		return nil
	}
	token := base64.StdEncoding.EncodeToString([]byte(o.Username + ":" + o.Password))
	return network.Headers{"Authorization": "Basic " + token}
}

// Snapshot navigates to the calendar page, waits for ReadySelector and
// returns a full-page PNG.
func Snapshot(parent context.Context, opts Options) ([]byte, error) {
	opts = opts.withDefaults()
	target, err := opts.target()
	if err != nil {
		return nil, err
	}

	ctx, cancel := chromedp.NewContext(parent)
	defer cancel()
	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
	}
	if h := opts.authHeader(); h != nil {
		tasks = append(tasks, network.Enable(), network.SetExtraHTTPHeaders(h))
	}

	var png []byte
	tasks = append(tasks,
		chromedp.Navigate(target),
		chromedp.WaitVisible(ReadySelector, chromedp.ByQuery),
		// let web fonts settle
		chromedp.Sleep(300*time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	)

	start := time.Now()
	if err := chromedp.Run(ctx, tasks); err != nil {
		return nil, fmt.Errorf("capture: chromedp run failed: %w", err)
	}
	appLog.Debug("week snapshot captured", "bytes", len(png), "elapsed", time.Since(start))
	return png, nil
}

// WriteSnapshot captures the page and writes it to opts.OutputPath,
// creating parent directories as needed.
func WriteSnapshot(ctx context.Context, opts Options) error {
	if opts.OutputPath == "" {
		return ErrNoOutput
	}
	png, err := Snapshot(ctx, opts)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(opts.OutputPath), 0o755); err != nil {
		return fmt.Errorf("capture: failed to create output dir: %w", err)
	}
	if err := os.WriteFile(opts.OutputPath, png, 0o644); err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}
	return nil
}
