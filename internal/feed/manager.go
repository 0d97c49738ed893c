package feed

import (
	"bytes"
	"context"
	"crypto/sha256"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pders01/shelf/internal/catalog"
	"github.com/pders01/shelf/internal/config"
	"github.com/pders01/shelf/internal/debuglog"
	"github.com/pders01/shelf/internal/plugins"
	"github.com/pders01/shelf/internal/storage"
	"github.com/pders01/shelf/internal/validation"
)

// maxFeedSize bounds the body read from one merchant feed.
const maxFeedSize = 32 << 20

// SampleURL identifies the built-in demo catalog.
const SampleURL = "builtin:sample"

//go:embed sample_feed.xml
var sampleFeed []byte

// ErrNotModified is returned when a new source answers 304.
var ErrNotModified = errors.New("feed not modified")

// Result reports the outcome of importing one URL.
type Result struct {
	URL      string
	Source   *storage.Source
	Products int
	Err      error
}

type Manager struct {
	store        *storage.Store
	fetcher      *Fetcher
	parser       *Parser
	config       *config.Config
	urlValidator *validation.SourceURLValidator
	plugins      *plugins.Registry
	force        bool

	// mu serializes store writes and listener notification.
	mu              sync.Mutex
	updateListeners []catalog.UpdateListener
	deleteListeners []catalog.DeleteListener
}

func NewManager(store *storage.Store, cfg *config.Config) *Manager {
	m := &Manager{
		store:   store,
		fetcher: NewFetcher(cfg),
		parser:  NewParser(),
		config:  cfg,
	}
	m.SetPermissiveValidation(cfg.Import.AllowPrivate)
	return m
}

// SetForceRefresh ignores ETag/Last-Modified and the refresh interval.
func (m *Manager) SetForceRefresh(force bool) {
	m.force = force
	m.fetcher.SetIgnoreCache(force)
}

// SetPermissiveValidation allows localhost and private network sources.
func (m *Manager) SetPermissiveValidation(permissive bool) {
	if permissive {
		m.urlValidator = validation.NewPermissiveSourceURLValidator()
	} else {
		m.urlValidator = validation.NewSourceURLValidator()
	}
}

// SetPlugins installs the storefront resolvers consulted before fetching.
func (m *Manager) SetPlugins(r *plugins.Registry) {
	m.plugins = r
}

// AddUpdateListener registers l for product updates.
func (m *Manager) AddUpdateListener(l catalog.UpdateListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateListeners = append(m.updateListeners, l)
}

// AddDeleteListener registers l for source deletions.
func (m *Manager) AddDeleteListener(l catalog.DeleteListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteListeners = append(m.deleteListeners, l)
}

// AddSource validates, fetches and stores one merchant feed. Storefront
// URLs a plugin recognizes are replaced by their feed URL first.
func (m *Manager) AddSource(ctx context.Context, rawURL string) (*storage.Source, int, error) {
	normalizedURL, err := m.urlValidator.ValidateAndNormalize(rawURL)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid source URL: %w", err)
	}

	var titleHint string
	if m.plugins != nil {
		info, resolveErr := m.plugins.ResolveSource(ctx, normalizedURL)
		if resolveErr != nil {
			return nil, 0, fmt.Errorf("resolving source: %w", resolveErr)
		}
		if info.FeedURL != normalizedURL {
			normalizedURL, err = m.urlValidator.ValidateAndNormalize(info.FeedURL)
			if err != nil {
				return nil, 0, fmt.Errorf("invalid feed URL from plugin: %w", err)
			}
			debuglog.WithFields(map[string]any{"from": rawURL, "to": normalizedURL}).Debugf("resolved storefront")
		}
		titleHint = info.Title
	}

	isNew := false
	src, err := m.store.GetSource(generateSourceID(normalizedURL))
	if errors.Is(err, storage.ErrNotFound) {
		isNew = true
		src = &storage.Source{
			ID:    generateSourceID(normalizedURL),
			URL:   normalizedURL,
			Title: titleHint,
		}
	} else if err != nil {
		return nil, 0, fmt.Errorf("getting source: %w", err)
	}

	resp, updated, err := m.fetcher.Fetch(ctx, src)
	if err != nil {
		return nil, 0, err
	}
	if !updated {
		if isNew {
			return nil, 0, ErrNotModified
		}
		return src, 0, nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize))
	if err != nil {
		return nil, 0, fmt.Errorf("reading response: %w", err)
	}
	m.fetcher.UpdateSourceMetadata(src, resp)

	n, err := m.ingest(src, body)
	if err != nil {
		return nil, 0, err
	}
	return src, n, nil
}

// Import adds every URL concurrently, bounded by import.concurrency. One
// failing URL does not cancel the others; the joined error lists them all.
func (m *Manager) Import(ctx context.Context, urls ...string) ([]Result, error) {
	results := make([]Result, len(urls))

	var g errgroup.Group
	g.SetLimit(max(1, m.config.Import.Concurrency))
	for i, u := range urls {
		g.Go(func() error {
			src, n, err := m.AddSource(ctx, u)
			results[i] = Result{URL: u, Source: src, Products: n, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			debuglog.WithFields(map[string]any{"url": r.URL}).Warnf("import failed: %v", r.Err)
			errs = append(errs, fmt.Errorf("%s: %w", r.URL, r.Err))
		}
	}
	return results, errors.Join(errs...)
}

// RefreshSource re-fetches one source unless it was fetched within the
// refresh interval. It reports whether new products were stored.
func (m *Manager) RefreshSource(ctx context.Context, sourceID string) (bool, error) {
	src, err := m.store.GetSource(sourceID)
	if err != nil {
		return false, fmt.Errorf("getting source: %w", err)
	}
	if src.URL == SampleURL {
		return false, nil
	}
	if !m.force && time.Since(src.LastFetched) < m.config.Import.RefreshInterval {
		return false, nil
	}

	resp, updated, err := m.fetcher.Fetch(ctx, src)
	if err != nil {
		return false, err
	}
	if !updated {
		src.LastFetched = time.Now()
		if saveErr := m.store.SaveSource(src); saveErr != nil {
			return false, fmt.Errorf("saving source metadata: %w", saveErr)
		}
		return false, nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize))
	if err != nil {
		return false, fmt.Errorf("reading response: %w", err)
	}
	m.fetcher.UpdateSourceMetadata(src, resp)

	if _, err := m.ingest(src, body); err != nil {
		return false, err
	}
	return true, nil
}

// Refresh refreshes every stored source concurrently.
func (m *Manager) Refresh(ctx context.Context) error {
	sources, err := m.store.GetAllSources()
	if err != nil {
		return fmt.Errorf("getting sources: %w", err)
	}

	var (
		errMu sync.Mutex
		errs  []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, m.config.Import.Concurrency))
	for _, src := range sources {
		g.Go(func() error {
			if _, refreshErr := m.RefreshSource(gctx, src.ID); refreshErr != nil {
				errMu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", src.URL, refreshErr))
				errMu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if len(errs) > 0 {
		return fmt.Errorf("refresh errors: %w", errors.Join(errs...))
	}
	return nil
}

// Seed imports the built-in demo catalog.
func (m *Manager) Seed() (*storage.Source, int, error) {
	src := &storage.Source{
		ID:          generateSourceID(SampleURL),
		URL:         SampleURL,
		LastFetched: time.Now(),
	}
	n, err := m.ingest(src, sampleFeed)
	if err != nil {
		return nil, 0, err
	}
	return src, n, nil
}

// DeleteSource removes a source and its products.
func (m *Manager) DeleteSource(sourceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.DeleteSource(sourceID); err != nil {
		return fmt.Errorf("deleting source: %w", err)
	}
	for _, l := range m.deleteListeners {
		l.OnSourceDeleted(sourceID)
	}
	return nil
}

// ingest parses body as src's feed, replaces src's products and notifies
// listeners.
func (m *Manager) ingest(src *storage.Source, body []byte) (int, error) {
	parsed, err := m.parser.Parse(bytes.NewReader(body), src.ID)
	if err != nil {
		return 0, err
	}

	if parsed.Title != "" {
		src.Title = parsed.Title
	} else if src.Title == "" {
		src.Title = hostOf(src.URL)
	}
	for _, p := range parsed.Products {
		if p.Store == "" {
			p.Store = src.Title
		}
	}
	src.UpdatedAt = time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.store.DeleteProductsBySource(src.ID); err != nil {
		return 0, fmt.Errorf("replacing products: %w", err)
	}
	if err := m.store.SaveSource(src); err != nil {
		return 0, fmt.Errorf("saving source: %w", err)
	}
	if err := m.store.SaveProducts(parsed.Products); err != nil {
		return 0, fmt.Errorf("saving products: %w", err)
	}

	debuglog.WithFields(map[string]any{
		"source":   src.ID,
		"products": len(parsed.Products),
	}).Infof("imported %s", src.URL)

	for _, l := range m.updateListeners {
		l.OnProductsUpdated(src, parsed.Products)
	}
	return len(parsed.Products), nil
}

func generateSourceID(u string) string {
	sum := sha256.Sum256([]byte(u))
	return fmt.Sprintf("%x", sum[:8])
}

func hostOf(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		return u.Host
	}
	return "Unknown Store"
}
