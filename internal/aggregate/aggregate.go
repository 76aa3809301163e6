// Package aggregate walks every page of a repository's issues.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/SergeyParamoshkin/issueblog/internal/model"
	"github.com/SergeyParamoshkin/issueblog/internal/source"
)

// DefaultDirection is applied when the query leaves the order unset.
const DefaultDirection = "asc"

// ErrLimitExceeded is returned when a walk would go past MaxPages non-empty
// pages or MaxRecords records. No partial result accompanies it.
var ErrLimitExceeded = errors.New("aggregate: limit exceeded")

// Lister serves one page of articles.
type Lister interface {
	ListPage(ctx context.Context, repo string, page, perPage int, q source.Query) ([]model.Article, error)
}

type Options struct {
	PageSize   int
	Delay      time.Duration
	MaxPages   int
	MaxRecords int
}

func DefaultOptions() Options {
	return Options{
		PageSize:   source.MaxPerPage,
		Delay:      100 * time.Millisecond,
		MaxPages:   100,
		MaxRecords: 10000,
	}
}

type Aggregator struct {
	src    Lister
	opts   Options
	logger *zap.SugaredLogger
}

func New(src Lister, opts Options, logger *zap.SugaredLogger) *Aggregator {
	def := DefaultOptions()
	if opts.PageSize <= 0 {
		opts.PageSize = def.PageSize
	}
	if opts.Delay < 0 {
		opts.Delay = 0
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = def.MaxPages
	}
	if opts.MaxRecords <= 0 {
		opts.MaxRecords = def.MaxRecords
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &Aggregator{src: src, opts: opts, logger: logger}
}

// FetchAll returns every article of repo in source order. Pages are fetched
// one at a time starting from 1, at most one request per Delay, until an
// empty page comes back.
func (a *Aggregator) FetchAll(ctx context.Context, repo string, q source.Query) ([]model.Article, error) {
	if q.Direction == "" {
		q.Direction = DefaultDirection
	}

	var (
		start   = time.Now()
		limiter = rate.NewLimiter(rate.Every(a.opts.Delay), 1)
		all     []model.Article
	)

	for page := 1; ; page++ {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}

		batch, err := a.src.ListPage(ctx, repo, page, a.opts.PageSize, q)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			a.logger.Infow("fetched all articles",
				"repo", repo,
				"articles", len(all),
				"pages", page-1,
				"elapsed", time.Since(start),
			)

			if all == nil {
				all = []model.Article{}
			}

			return all, nil
		}

		if page > a.opts.MaxPages {
			return nil, fmt.Errorf("%w: %s has more than %d pages", ErrLimitExceeded, repo, a.opts.MaxPages)
		}

		all = append(all, batch...)
		if len(all) > a.opts.MaxRecords {
			return nil, fmt.Errorf("%w: %s has more than %d articles", ErrLimitExceeded, repo, a.opts.MaxRecords)
		}

		a.logger.Debugw("fetched page", "repo", repo, "page", page, "articles", len(batch))
	}
}
