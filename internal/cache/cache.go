// Package cache keeps time-boxed snapshots of a repository's full article
// list.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/SergeyParamoshkin/issueblog/internal/model"
	"github.com/SergeyParamoshkin/issueblog/internal/source"
	"github.com/SergeyParamoshkin/issueblog/internal/telemetry"
)

const (
	DefaultTTL            = 60 * time.Minute
	DefaultRefreshTimeout = 2 * time.Minute
)

// Loader produces the full ordered article list of repo.
type Loader func(ctx context.Context, repo string, q source.Query) ([]model.Article, error)

// Snapshot is a complete result set captured at FetchedAt. It is never
// modified after it has been published; a refresh replaces it wholesale.
type Snapshot struct {
	Repo      string          `json:"repo"`
	Query     source.Query    `json:"query"`
	Articles  []model.Article `json:"articles"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Store persists snapshots across restarts. Load returns (nil, nil) when
// there is nothing stored under key.
type Store interface {
	Load(ctx context.Context, key string) (*Snapshot, error)
	Save(ctx context.Context, key string, s *Snapshot) error
	Delete(ctx context.Context, repo string) error
	Clear(ctx context.Context) error
}

// Key identifies the snapshot of repo filtered by q.
func Key(repo string, q source.Query) string {
	return repo + "?" + q.Key()
}

type Option func(*Cache)

func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func WithStore(s Store) Option {
	return func(c *Cache) { c.store = s }
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *Cache) { c.logger = l }
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// WithRefreshTimeout bounds a single refresh. Refreshes do not inherit the
// cancellation of the caller that started them, so this is their only limit.
func WithRefreshTimeout(d time.Duration) Option {
	return func(c *Cache) { c.refreshTimeout = d }
}

// Cache serves snapshots younger than its TTL and refreshes stale or missing
// ones. Concurrent callers asking for the same key share one refresh.
type Cache struct {
	load           Loader
	ttl            time.Duration
	refreshTimeout time.Duration
	now            func() time.Time
	store          Store
	logger         *zap.SugaredLogger
	metrics        *telemetry.Metrics

	mu      sync.RWMutex
	entries map[string]*Snapshot
	flights map[string]string

	// epoch moves on Reset, gens[repo] on Invalidate. A refresh publishes
	// only if neither moved while it was loading.
	epoch uint64
	gens  map[string]uint64
	group singleflight.Group
}

type generation struct {
	epoch, repo uint64
}

func New(load Loader, opts ...Option) *Cache {
	c := &Cache{
		load:           load,
		ttl:            DefaultTTL,
		refreshTimeout: DefaultRefreshTimeout,
		now:            time.Now,
		entries:        make(map[string]*Snapshot),
		flights:        make(map[string]string),
		gens:           make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop().Sugar()
	}

	return c
}

// Get returns the snapshot for repo and q, refreshing it when it is older
// than the TTL.
func (c *Cache) Get(ctx context.Context, repo string, q source.Query) (*Snapshot, error) {
	key := Key(repo, q)
	if s := c.fresh(key); s != nil {
		c.metrics.CacheLookup(ctx, telemetry.CacheHit)

		return s, nil
	}

	ch := c.group.DoChan(key, func() (interface{}, error) {
		return c.refresh(context.WithoutCancel(ctx), key, repo, q)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.metrics.CacheLookup(ctx, telemetry.CacheShared)
		}

		return res.Val.(*Snapshot), nil
	}
}

func (c *Cache) refresh(ctx context.Context, key, repo string, q source.Query) (*Snapshot, error) {
	// another flight may have finished between the lookup and joining
	if s := c.fresh(key); s != nil {
		return s, nil
	}

	gen := c.begin(key, repo)
	defer c.end(key)

	ctx, cancel := context.WithTimeout(ctx, c.refreshTimeout)
	defer cancel()

	if s := c.loadStored(ctx, key); s != nil {
		c.metrics.CacheLookup(ctx, telemetry.CacheStored)
		c.publish(key, s, gen)

		return s, nil
	}

	c.metrics.CacheLookup(ctx, telemetry.CacheMiss)

	fetchedAt := c.now()
	start := time.Now()
	articles, err := c.load(ctx, repo, q)
	c.metrics.Refresh(ctx, repo, time.Since(start), err)
	if err != nil {
		c.logger.Errorw("snapshot refresh failed", "repo", repo, "key", key, "error", err)

		return nil, err
	}

	s := &Snapshot{
		Repo:      repo,
		Query:     q,
		Articles:  articles,
		FetchedAt: fetchedAt,
	}
	if !c.publish(key, s, gen) {
		c.logger.Infow("snapshot discarded, invalidated during refresh", "repo", repo, "key", key)

		return s, nil
	}

	c.logger.Infow("snapshot refreshed",
		"repo", repo,
		"key", key,
		"articles", len(articles),
		"elapsed", time.Since(start),
	)

	if c.store != nil {
		if err := c.store.Save(ctx, key, s); err != nil {
			c.logger.Warnw("persisting snapshot failed", "key", key, "error", err)
		}
	}

	return s, nil
}

func (c *Cache) fresh(key string) *Snapshot {
	c.mu.RLock()
	s := c.entries[key]
	c.mu.RUnlock()

	if s != nil && c.isFresh(s) {
		return s
	}

	return nil
}

func (c *Cache) isFresh(s *Snapshot) bool {
	return c.now().Sub(s.FetchedAt) < c.ttl
}

func (c *Cache) begin(key, repo string) generation {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.flights[key] = repo

	return generation{epoch: c.epoch, repo: c.gens[repo]}
}

func (c *Cache) end(key string) {
	c.mu.Lock()
	delete(c.flights, key)
	c.mu.Unlock()
}

// publish stores s under key unless repo was invalidated or the cache reset
// after gen was taken.
func (c *Cache) publish(key string, s *Snapshot, gen generation) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.epoch != gen.epoch || c.gens[s.Repo] != gen.repo {
		return false
	}
	c.entries[key] = s

	return true
}

func (c *Cache) loadStored(ctx context.Context, key string) *Snapshot {
	if c.store == nil {
		return nil
	}

	s, err := c.store.Load(ctx, key)
	if err != nil {
		c.logger.Warnw("loading stored snapshot failed", "key", key, "error", err)

		return nil
	}
	if s == nil || !c.isFresh(s) {
		return nil
	}

	return s
}

// Invalidate drops every snapshot of repo, whatever its query.
func (c *Cache) Invalidate(ctx context.Context, repo string) error {
	prefix := repo + "?"

	c.mu.Lock()
	c.gens[repo]++
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	for key, r := range c.flights {
		if r == repo {
			c.group.Forget(key)
		}
	}
	c.mu.Unlock()

	if c.store != nil {
		return c.store.Delete(ctx, repo)
	}

	return nil
}

// Reset drops every snapshot.
func (c *Cache) Reset(ctx context.Context) error {
	c.mu.Lock()
	c.epoch++
	c.entries = make(map[string]*Snapshot)
	for key := range c.flights {
		c.group.Forget(key)
	}
	c.mu.Unlock()

	if c.store != nil {
		return c.store.Clear(ctx)
	}

	return nil
}

// Len is the number of snapshots held in memory, fresh or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}
