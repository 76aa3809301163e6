// Package blog answers the read paths of the issue-backed blog: paged
// listing, the full cached set, keyword search, single articles and
// categories.
package blog

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/SergeyParamoshkin/issueblog/internal/cache"
	"github.com/SergeyParamoshkin/issueblog/internal/model"
	"github.com/SergeyParamoshkin/issueblog/internal/source"
	"github.com/SergeyParamoshkin/issueblog/internal/toc"
)

const (
	DefaultPerPage    = 10
	DefaultDetailSize = 256
	DefaultDetailTTL  = 10 * time.Minute
)

// Source is the upstream issue tracker.
type Source interface {
	ListPage(ctx context.Context, repo string, page, perPage int, q source.Query) ([]model.Article, error)
	Get(ctx context.Context, repo string, number int) (*model.Article, error)
	ListLabels(ctx context.Context, repo string) ([]model.Label, error)
}

// Snapshots hands out the complete, time-boxed article list of a repository.
type Snapshots interface {
	Get(ctx context.Context, repo string, q source.Query) (*cache.Snapshot, error)
	Invalidate(ctx context.Context, repo string) error
	Reset(ctx context.Context) error
}

type Options struct {
	PerPage int
	// Exclude lists issue numbers that are never published as articles.
	Exclude []int
	// Origin is the hosting site used for author profile links.
	Origin string

	LabelOrder   []string
	HiddenLabels []string

	DetailSize int
	DetailTTL  time.Duration
}

// Detail is a single article together with its table of contents.
type Detail struct {
	Article *model.Article
	TOC     []toc.Entry
}

type Service struct {
	src       Source
	snapshots Snapshots
	opts      Options
	exclude   map[int]struct{}
	labels    *labelPolicy
	details   *expirable.LRU[string, *Detail]
	logger    *zap.SugaredLogger
}

func New(src Source, snapshots Snapshots, opts Options, logger *zap.SugaredLogger) *Service {
	if opts.PerPage <= 0 {
		opts.PerPage = DefaultPerPage
	}
	if opts.DetailSize <= 0 {
		opts.DetailSize = DefaultDetailSize
	}
	if opts.DetailTTL <= 0 {
		opts.DetailTTL = DefaultDetailTTL
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	exclude := make(map[int]struct{}, len(opts.Exclude))
	for _, n := range opts.Exclude {
		exclude[n] = struct{}{}
	}

	return &Service{
		src:       src,
		snapshots: snapshots,
		opts:      opts,
		exclude:   exclude,
		labels:    newLabelPolicy(opts.LabelOrder, opts.HiddenLabels),
		details:   expirable.NewLRU[string, *Detail](opts.DetailSize, nil, opts.DetailTTL),
		logger:    logger,
	}
}

// PerPage is the page size used by Page and Search.
func (s *Service) PerPage() int {
	return s.opts.PerPage
}

// Origin is the hosting site articles and authors link to.
func (s *Service) Origin() string {
	return s.opts.Origin
}

// Page returns one upstream page of articles. It always goes to the source.
func (s *Service) Page(ctx context.Context, repo string, page int, q source.Query) ([]model.Article, error) {
	if page < 1 {
		page = 1
	}

	articles, err := s.src.ListPage(ctx, repo, page, s.opts.PerPage, q)
	if err != nil {
		return nil, err
	}

	return s.visible(articles), nil
}

// All returns every article of repo matching q, served from the snapshot
// cache.
func (s *Service) All(ctx context.Context, repo string, q source.Query) ([]model.Article, error) {
	snap, err := s.snapshots.Get(ctx, repo, q)
	if err != nil {
		return nil, err
	}

	return s.visible(snap.Articles), nil
}

// Search returns page of the articles matching keyword along with the total
// number of matches. An empty keyword falls back to Page, whose total is
// unknown and reported as -1.
func (s *Service) Search(ctx context.Context, repo string, page int, keyword string, q source.Query) ([]model.Article, int, error) {
	if keyword == "" {
		articles, err := s.Page(ctx, repo, page, q)

		return articles, -1, err
	}

	all, err := s.All(ctx, repo, q)
	if err != nil {
		return nil, 0, err
	}

	matches := Filter(all, keyword)
	s.logger.Debugw("search",
		"repo", repo,
		"keyword", keyword,
		"matches", len(matches),
		"page", page,
	)

	return Paginate(matches, page, s.opts.PerPage), len(matches), nil
}

// Article returns a single article and its table of contents.
func (s *Service) Article(ctx context.Context, repo string, number int) (*Detail, error) {
	if _, ok := s.exclude[number]; ok {
		return nil, fmt.Errorf("article %d: %w", number, source.ErrNotFound)
	}

	key := repo + "#" + strconv.Itoa(number)
	if d, ok := s.details.Get(key); ok {
		return d, nil
	}

	a, err := s.src.Get(ctx, repo, number)
	if err != nil {
		return nil, err
	}
	if a.IsPullRequest {
		return nil, fmt.Errorf("article %d is a pull request: %w", number, source.ErrNotFound)
	}

	d := &Detail{Article: a, TOC: toc.Build(a.Body)}
	s.details.Add(key, d)

	return d, nil
}

// Labels returns the categories of repo, titled, filtered and ordered for
// display.
func (s *Service) Labels(ctx context.Context, repo string) ([]model.Label, error) {
	labels, err := s.src.ListLabels(ctx, repo)
	if err != nil {
		return nil, err
	}

	return s.labels.apply(labels), nil
}

// Invalidate drops everything cached for repo so the next read refetches it.
func (s *Service) Invalidate(ctx context.Context, repo string) error {
	prefix := repo + "#"
	for _, key := range s.details.Keys() {
		if strings.HasPrefix(key, prefix) {
			s.details.Remove(key)
		}
	}
	s.logger.Infow("cache invalidated", "repo", repo)

	return s.snapshots.Invalidate(ctx, repo)
}

// Reset drops everything cached for every repository.
func (s *Service) Reset(ctx context.Context) error {
	s.details.Purge()
	s.logger.Infow("cache reset")

	return s.snapshots.Reset(ctx)
}

// visible drops excluded numbers and pull requests. The input is shared with
// the cache and is never modified.
func (s *Service) visible(articles []model.Article) []model.Article {
	out := make([]model.Article, 0, len(articles))
	for _, a := range articles {
		if a.IsPullRequest {
			continue
		}
		if _, ok := s.exclude[a.Number]; ok {
			continue
		}
		out = append(out, a)
	}

	return out
}
