// Package registry holds the descriptors of all known bulletin sources.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"notice_relay/internal/domain"
	"notice_relay/internal/source"
	"notice_relay/internal/source/board"
	"notice_relay/internal/source/feed"
)

type Kind string

const (
	KindBoard Kind = "board"
	KindFeed  Kind = "feed"
)

// Source describes one bulletin source and carries its adapter.
type Source struct {
	ID          string
	DisplayName string
	OriginURL   string
	Kind        Kind
	Policy      domain.Policy
	Interval    time.Duration
	Adapter     source.Adapter
}

type Config struct {
	DefaultPolicy domain.Policy
	Location      *time.Location
}

type table map[string]Source

type Registry struct {
	catalog Catalog
	client  *source.Client
	cfg     Config
	logger  *slog.Logger

	current atomic.Pointer[table]
	mu      sync.Mutex
}

func New(catalog Catalog, client *source.Client, cfg Config, logger *slog.Logger) *Registry {
	if !cfg.DefaultPolicy.Valid() {
		cfg.DefaultPolicy = domain.PolicyCursor
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	r := &Registry{
		catalog: catalog,
		client:  client,
		cfg:     cfg,
		logger:  logger.With("component", "registry"),
	}
	empty := table{}
	r.current.Store(&empty)
	return r
}

func (r *Registry) Get(id string) (Source, error) {
	src, ok := (*r.current.Load())[id]
	if !ok {
		return Source{}, fmt.Errorf("get source %q: %w", id, domain.ErrSourceNotFound)
	}
	return src, nil
}

// List returns all sources sorted by id.
func (r *Registry) List() []Source {
	t := *r.current.Load()
	out := make([]Source, 0, len(t))
	for _, src := range t {
		out = append(out, src)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Refresh reloads the catalog and swaps in a new table. Entries that fail
// validation are skipped, and ids missing from the catalog keep their
// previous descriptor.
func (r *Registry) Refresh(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.catalog.Load(ctx)
	if err != nil {
		return fmt.Errorf("refresh registry: %w", err)
	}

	old := *r.current.Load()
	next := make(table, len(old)+len(entries))
	for id, src := range old {
		next[id] = src
	}

	loaded, skipped := 0, 0
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if seen[e.ID] {
			r.logger.Warn("duplicate catalog entry skipped", "source", e.ID)
			skipped++
			continue
		}
		src, err := r.build(e)
		if err != nil {
			r.logger.Warn("invalid catalog entry skipped", "source", e.ID, "error", err)
			skipped++
			continue
		}
		seen[e.ID] = true
		next[src.ID] = src
		loaded++
	}

	r.current.Store(&next)
	r.logger.Info("registry refreshed", "loaded", loaded, "skipped", skipped, "total", len(next))
	return nil
}

func (r *Registry) build(e Entry) (Source, error) {
	if e.ID == "" {
		return Source{}, fmt.Errorf("missing id")
	}
	u, err := url.Parse(e.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Source{}, fmt.Errorf("invalid url %q", e.URL)
	}
	if e.Policy == "" {
		e.Policy = r.cfg.DefaultPolicy
	}
	if !e.Policy.Valid() {
		return Source{}, fmt.Errorf("unknown policy %q", e.Policy)
	}
	if e.Interval < 0 {
		return Source{}, fmt.Errorf("negative interval")
	}
	name := e.Name
	if name == "" {
		name = e.ID
	}

	src := Source{
		ID:          e.ID,
		DisplayName: name,
		OriginURL:   e.URL,
		Kind:        e.Kind,
		Policy:      e.Policy,
		Interval:    e.Interval,
	}

	switch e.Kind {
	case KindBoard:
		a, err := board.New(board.Config{
			SourceID:  e.ID,
			URL:       e.URL,
			Base:      e.Base,
			Selectors: e.Selectors,
			Location:  r.cfg.Location,
		}, r.client, r.logger)
		if err != nil {
			return Source{}, err
		}
		src.Adapter = a
	case KindFeed:
		src.Adapter = feed.New(feed.Config{
			SourceID: e.ID,
			URL:      e.URL,
			Location: r.cfg.Location,
		}, r.client, r.logger)
	default:
		return Source{}, fmt.Errorf("unknown kind %q", e.Kind)
	}

	return src, nil
}
