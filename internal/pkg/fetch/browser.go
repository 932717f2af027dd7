package fetch

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// SessionFetcher drives a headless browser for sources behind
// fingerprinting-based bot protection. It warms up a session on the site's
// home page before requesting the target document, and accepts either an
// inline response body or a triggered download, whichever the server does.
type SessionFetcher struct {
	chromeBin string
	timeout   time.Duration
	logger    *zap.Logger
}

func NewSessionFetcher(chromeBin string, timeout time.Duration, logger *zap.Logger) *SessionFetcher {
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	return &SessionFetcher{chromeBin: chromeBin, timeout: timeout, logger: logger}
}

// FetchViaSession loads homeURL first to acquire legitimate session cookies,
// then navigates to targetURL. The second navigation races two completion
// signals: the target resolving inline (body read via the network domain) and
// the navigation triggering a download (file read from the download dir).
// Neither appearing within the timeout is a transport error; callers do not
// retry this path.
func (s *SessionFetcher) FetchViaSession(ctx context.Context, targetURL, homeURL string) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(browserUserAgent),
		chromedp.WindowSize(1366, 768),
		chromedp.Flag("lang", "es-CO"),
	)
	if s.chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(s.chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, s.timeout)
	defer cancelTimeout()

	downloadDir, err := os.MkdirTemp("", "session-fetch-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create download dir: %w", err)
	}
	defer os.RemoveAll(downloadDir)

	downloadDone := make(chan string, 1)
	inlineDone := make(chan network.RequestID, 1)

	chromedp.ListenTarget(browserCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *browser.EventDownloadProgress:
			if e.State == browser.DownloadProgressStateCompleted {
				select {
				case downloadDone <- e.GUID:
				default:
				}
			}
		case *network.EventResponseReceived:
			if e.Response.URL == targetURL && e.Response.Status < 300 {
				select {
				case inlineDone <- e.RequestID:
				default:
				}
			}
		}
	})

	s.logger.Debug("warming up browser session", zap.String("home", homeURL))
	err = chromedp.Run(browserCtx,
		network.Enable(),
		browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllowAndName).
			WithDownloadPath(downloadDir).
			WithEventsEnabled(true),
		chromedp.Navigate(homeURL),
		// mask the obvious automation fingerprint before touching the target
		chromedp.Evaluate(`Object.defineProperty(navigator, 'webdriver', {get: () => undefined})`, nil),
		chromedp.Sleep(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("session warmup on %s failed: %w", homeURL, err)
	}

	s.logger.Debug("navigating to target", zap.String("target", targetURL))
	// A download-triggering navigation aborts with net::ERR_ABORTED, which is
	// expected here, so the navigation error alone is not conclusive.
	navErr := chromedp.Run(browserCtx, chromedp.Navigate(targetURL))

	select {
	case guid := <-downloadDone:
		data, err := os.ReadFile(filepath.Join(downloadDir, guid))
		if err != nil {
			return nil, fmt.Errorf("failed to read downloaded file: %w", err)
		}
		return data, nil
	case requestID := <-inlineDone:
		var data []byte
		err := chromedp.Run(browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			data, err = network.GetResponseBody(requestID).Do(ctx)
			return err
		}))
		if err != nil {
			return nil, fmt.Errorf("failed to read inline response body: %w", err)
		}
		return data, nil
	case <-browserCtx.Done():
		if navErr != nil {
			return nil, fmt.Errorf("navigation to %s failed: %w", targetURL, navErr)
		}
		return nil, fmt.Errorf("no response or download for %s within %s", targetURL, s.timeout)
	}
}

// findChromeBinary locates a Chrome/Chromium binary on the host.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	return ""
}
