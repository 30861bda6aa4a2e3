package dashboard

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
)

//go:embed template.json
var embeddedTemplate []byte

// Config holds dashboard template fetch configuration.
type Config struct {
	// TemplateURL points at the published dashboard template. Empty disables
	// remote fetching; the embedded template is served.
	TemplateURL   string
	CheckInterval time.Duration
}

// Template is a fetched dashboard definition plus its provenance.
type Template struct {
	Version   string    `json:"version"`
	Source    string    `json:"source"` // "remote" or "embedded"
	FetchedAt time.Time `json:"fetched_at"`
	Body      []byte    `json:"-"`
}

// Fetcher keeps the kid dashboard template fresh, falling back to the
// embedded copy whenever the remote is unreachable.
type Fetcher struct {
	mu         sync.RWMutex
	cfg        Config
	current    Template
	httpClient *http.Client
	stopCh     chan struct{}
	stopped    chan struct{}
}

// NewFetcher creates a fetcher seeded with the embedded template.
func NewFetcher(cfg Config) *Fetcher {
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = 6 * time.Hour
	}
	return &Fetcher{
		cfg: cfg,
		current: Template{
			Version: embeddedVersion(),
			Source:  "embedded",
			Body:    embeddedTemplate,
		},
		httpClient: &http.Client{Timeout: 10 * time.Second},
		stopCh:     make(chan struct{}),
		stopped:    make(chan struct{}),
	}
}

// Current returns the active template.
func (f *Fetcher) Current() Template {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.current
}

// Refresh fetches the remote template, retrying transient failures with
// exponential backoff. On persistent failure the current template stays.
func (f *Fetcher) Refresh(ctx context.Context) error {
	f.mu.RLock()
	url := f.cfg.TemplateURL
	f.mu.RUnlock()
	if url == "" {
		return nil
	}

	var body []byte
	backoff := retry.WithMaxRetries(3, retry.NewExponential(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := f.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("dashboard source returned %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("dashboard source returned %d", resp.StatusCode)
		}
		body, err = io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("fetch dashboard template: %w", err)
	}

	version := templateVersion(body)
	if version == "" {
		return fmt.Errorf("fetched template missing version")
	}

	f.mu.Lock()
	f.current = Template{
		Version:   version,
		Source:    "remote",
		FetchedAt: time.Now().UTC(),
		Body:      body,
	}
	f.mu.Unlock()
	return nil
}

// Start begins the background refresh goroutine.
func (f *Fetcher) Start(ctx context.Context) {
	f.Refresh(ctx)

	go func() {
		defer close(f.stopped)
		ticker := time.NewTicker(f.cfg.CheckInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				f.Refresh(ctx)
			case <-f.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the background refresh goroutine.
func (f *Fetcher) Stop() {
	close(f.stopCh)
	<-f.stopped
}

func templateVersion(body []byte) string {
	var probe struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return ""
	}
	return probe.Version
}

func embeddedVersion() string {
	if v := templateVersion(embeddedTemplate); v != "" {
		return v
	}
	return "embedded"
}
