// Package updatecheck polls the plugin's upstream repository for a newer
// version.mpl and logs the outcome. Failures never leave this package.
package updatecheck

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	goversion "github.com/hashicorp/go-version"

	"github.com/mohammed-shakir/geofence-helper/internal/core/observability"
	"github.com/mohammed-shakir/geofence-helper/internal/plugin"
)

var ErrCheck = errors.New("update check failed")

const maxMetadataBytes = 64 << 10

type Result struct {
	Current         string
	Available       string
	UpdateAvailable bool
	CheckedAt       time.Time
}

type Checker struct {
	client   *http.Client
	logger   *slog.Logger
	meta     plugin.Metadata
	url      string
	interval time.Duration
	timeout  time.Duration

	mu   sync.RWMutex
	last *Result
}

type Option func(*Checker)

// WithURL overrides the derived raw metadata URL.
func WithURL(u string) Option { return func(c *Checker) { c.url = u } }

func WithInterval(d time.Duration) Option {
	return func(c *Checker) {
		if d > 0 {
			c.interval = d
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Checker) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func New(client *http.Client, logger *slog.Logger, meta plugin.Metadata, opts ...Option) *Checker {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Checker{
		client:   client,
		logger:   logger,
		meta:     meta,
		url:      RawMetadataURL(meta.URL),
		interval: time.Hour,
		timeout:  15 * time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// RawMetadataURL maps a GitHub repository URL to its raw version.mpl on main.
func RawMetadataURL(repoURL string) string {
	u := strings.TrimRight(strings.TrimSpace(repoURL), "/")
	u = strings.Replace(u, "github.com", "raw.githubusercontent.com", 1)
	return u + "/main/" + plugin.MetadataFile
}

// IsNewer reports whether available is a later version than current.
func IsNewer(current, available string) (bool, error) {
	cur, err := goversion.NewVersion(current)
	if err != nil {
		return false, fmt.Errorf("current version %q: %w", current, err)
	}
	av, err := goversion.NewVersion(available)
	if err != nil {
		return false, fmt.Errorf("available version %q: %w", available, err)
	}
	return cur.LessThan(av), nil
}

// Check performs one poll.
func (c *Checker) Check(ctx context.Context) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Result{}, fmt.Errorf("%w: build request: %v", ErrCheck, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrCheck, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("%w: %s returned %d", ErrCheck, c.url, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMetadataBytes))
	if err != nil {
		return Result{}, fmt.Errorf("%w: read body: %v", ErrCheck, err)
	}

	upstream, err := plugin.ParseMetadata(body)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrCheck, err)
	}
	available := upstream.Version
	if available == plugin.DefaultMetadata().Version {
		return Result{}, fmt.Errorf("%w: upstream %s has no version", ErrCheck, plugin.MetadataFile)
	}
	newer, err := IsNewer(c.meta.Version, available)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrCheck, err)
	}

	res := Result{
		Current:         c.meta.Version,
		Available:       available,
		UpdateAvailable: newer,
		CheckedAt:       time.Now().UTC(),
	}
	c.mu.Lock()
	c.last = &res
	c.mu.Unlock()
	return res, nil
}

// Last returns the most recent successful result.
func (c *Checker) Last() (Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.last == nil {
		return Result{}, false
	}
	return *c.last, true
}

// Run checks immediately, then on every interval until ctx is done.
func (c *Checker) Run(ctx context.Context) {
	t := time.NewTicker(c.interval)
	defer t.Stop()
	for {
		c.checkAndLog(ctx)
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func (c *Checker) checkAndLog(ctx context.Context) {
	c.logger.DebugContext(ctx, "checking for updates", "plugin", c.meta.Name, "url", c.url)
	res, err := c.Check(ctx)
	switch {
	case err != nil:
		if ctx.Err() != nil {
			return
		}
		observability.IncUpdateCheck("error")
		c.logger.WarnContext(ctx, "failed checking for updates", "plugin", c.meta.Name, "err", err)
	case res.UpdateAvailable:
		observability.IncUpdateCheck("update")
		observability.SetUpdateAvailable(res.Current, res.Available, true)
		c.logger.WarnContext(ctx, "plugin update available",
			"plugin", c.meta.Name, "current", res.Current, "available", res.Available)
	default:
		observability.IncUpdateCheck("current")
		observability.SetUpdateAvailable(res.Current, res.Available, false)
		c.logger.InfoContext(ctx, "plugin is up-to-date",
			"plugin", c.meta.Name, "current", res.Current, "available", res.Available)
	}
}
