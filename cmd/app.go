package cmd

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/SergeyParamoshkin/issueblog/internal/aggregate"
	"github.com/SergeyParamoshkin/issueblog/internal/blog"
	"github.com/SergeyParamoshkin/issueblog/internal/cache"
	"github.com/SergeyParamoshkin/issueblog/internal/config"
	"github.com/SergeyParamoshkin/issueblog/internal/snapshotdb"
	"github.com/SergeyParamoshkin/issueblog/internal/source"
	"github.com/SergeyParamoshkin/issueblog/internal/telemetry"
)

// app is the object graph shared by the commands.
type app struct {
	cfg       *config.Config
	source    *source.Client
	snapshots *cache.Cache
	blog      *blog.Service
	db        *snapshotdb.DB
}

func newApp(cfg *config.Config, logger *zap.SugaredLogger, metrics *telemetry.Metrics) (*app, error) {
	if err := cfg.RequireRepository(); err != nil {
		return nil, err
	}

	src, err := source.New(source.Config{
		BaseURL:        cfg.GitHub.API,
		Owner:          cfg.GitHub.Owner,
		Token:          cfg.GitHub.Token,
		APIVersion:     cfg.GitHub.APIVersion,
		MaxRetries:     cfg.Fetch.MaxRetries,
		InitialBackoff: cfg.InitialBackoff(),
		MaxBackoff:     cfg.MaxBackoff(),
	}, logger.Named("source"), metrics)
	if err != nil {
		return nil, fmt.Errorf("building source: %w", err)
	}

	agg := aggregate.New(src, aggregate.Options{
		PageSize:   cfg.Fetch.PageSize,
		Delay:      cfg.Delay(),
		MaxPages:   cfg.Fetch.MaxPages,
		MaxRecords: cfg.Fetch.MaxRecords,
	}, logger.Named("aggregate"))

	a := &app{cfg: cfg, source: src}

	opts := []cache.Option{
		cache.WithTTL(cfg.CacheTTL()),
		cache.WithRefreshTimeout(cfg.FetchTimeout()),
		cache.WithLogger(logger.Named("cache")),
		cache.WithMetrics(metrics),
	}
	if cfg.Cache.Path != "" {
		db, err := snapshotdb.Open(cfg.Cache.Path)
		if err != nil {
			return nil, fmt.Errorf("opening snapshot store: %w", err)
		}
		a.db = db
		opts = append(opts, cache.WithStore(db))
	}
	a.snapshots = cache.New(agg.FetchAll, opts...)

	a.blog = blog.New(src, a.snapshots, blog.Options{
		PerPage:      cfg.Search.PerPage,
		Exclude:      cfg.GitHub.Exclude,
		Origin:       cfg.GitHub.Origin,
		LabelOrder:   cfg.Labels.Order,
		HiddenLabels: cfg.Labels.Hidden,
		DetailSize:   cfg.Cache.Articles,
		DetailTTL:    cfg.CacheTTL(),
	}, logger.Named("blog"))

	return a, nil
}

func (a *app) Close() error {
	if a.db != nil {
		return a.db.Close()
	}

	return nil
}
