// Package source fetches issues and labels from the GitHub REST API.
package source

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v82/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/SergeyParamoshkin/issueblog/internal/model"
	"github.com/SergeyParamoshkin/issueblog/internal/telemetry"
)

const (
	headerAPIVersion = "X-GitHub-Api-Version"

	// MaxPerPage is the largest page the API serves.
	MaxPerPage = 100

	endpointList   = "issues.list"
	endpointGet    = "issues.get"
	endpointLabels = "labels.list"

	// maxLabelPages bounds the label walk; repositories rarely carry more
	// than a few dozen labels.
	maxLabelPages = 10
)

// Config configures a Client.
type Config struct {
	BaseURL    string
	Owner      string
	Token      string
	APIVersion string

	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64

	// HTTPClient is the base client; nil means http.DefaultClient's transport.
	HTTPClient *http.Client
}

// Client reads articles of one owner's repositories.
type Client struct {
	gh      *github.Client
	owner   string
	cfg     Config
	logger  *zap.SugaredLogger
	metrics *telemetry.Metrics
}

func New(cfg Config, logger *zap.SugaredLogger, metrics *telemetry.Metrics) (*Client, error) {
	if cfg.Owner == "" {
		return nil, errors.New("source: owner is required")
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if cfg.BackoffMultiplier <= 1 {
		cfg.BackoffMultiplier = 2
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = time.Second
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = cfg.InitialBackoff
	}

	base := http.DefaultTransport
	if cfg.HTTPClient != nil && cfg.HTTPClient.Transport != nil {
		base = cfg.HTTPClient.Transport
	}
	httpClient := &http.Client{Transport: &versionTransport{version: cfg.APIVersion, base: base}}
	if cfg.HTTPClient != nil {
		httpClient.Timeout = cfg.HTTPClient.Timeout
	}

	if cfg.Token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token}))
	}

	gh := github.NewClient(httpClient)
	if cfg.BaseURL != "" {
		u, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("source: invalid base url: %w", err)
		}
		gh.BaseURL = u
	}

	return &Client{
		gh:      gh,
		owner:   cfg.Owner,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// Owner is the account whose repositories and issues are read.
func (c *Client) Owner() string {
	return c.owner
}

// ListPage returns one page of the owner's issues in repo. The creator filter
// is always the owner. An empty result means the page is past the end.
func (c *Client) ListPage(ctx context.Context, repo string, page, perPage int, q Query) ([]model.Article, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	opt := &github.IssueListByRepoOptions{
		Creator:     c.owner,
		Labels:      q.Labels,
		Direction:   q.Direction,
		State:       q.State,
		Sort:        q.Sort,
		Milestone:   q.Milestone,
		ListOptions: github.ListOptions{Page: page, PerPage: perPage},
	}

	var issues []*github.Issue
	err := c.do(ctx, endpointList, func() (*github.Response, error) {
		var (
			resp *github.Response
			err  error
		)
		issues, resp, err = c.gh.Issues.ListByRepo(ctx, c.owner, repo, opt)

		return resp, err
	})
	if err != nil {
		return nil, fmt.Errorf("listing issues of %s/%s page %d: %w", c.owner, repo, page, err)
	}

	articles := make([]model.Article, 0, len(issues))
	for _, gi := range issues {
		articles = append(articles, toArticle(gi))
	}

	return articles, nil
}

// Get returns a single issue by number.
func (c *Client) Get(ctx context.Context, repo string, number int) (*model.Article, error) {
	var issue *github.Issue
	err := c.do(ctx, endpointGet, func() (*github.Response, error) {
		var (
			resp *github.Response
			err  error
		)
		issue, resp, err = c.gh.Issues.Get(ctx, c.owner, repo, number)

		return resp, err
	})
	if err != nil {
		return nil, fmt.Errorf("getting issue %s/%s#%d: %w", c.owner, repo, number, err)
	}

	a := toArticle(issue)

	return &a, nil
}

// ListLabels returns every label defined in repo.
func (c *Client) ListLabels(ctx context.Context, repo string) ([]model.Label, error) {
	opt := &github.ListOptions{PerPage: MaxPerPage}

	var labels []model.Label
	for i := 0; i < maxLabelPages; i++ {
		var (
			page []*github.Label
			next int
		)
		err := c.do(ctx, endpointLabels, func() (*github.Response, error) {
			var (
				resp *github.Response
				err  error
			)
			page, resp, err = c.gh.Issues.ListLabels(ctx, c.owner, repo, opt)
			if resp != nil {
				next = resp.NextPage
			}

			return resp, err
		})
		if err != nil {
			return nil, fmt.Errorf("listing labels of %s/%s: %w", c.owner, repo, err)
		}

		for _, l := range page {
			labels = append(labels, toLabel(l))
		}

		if next == 0 {
			break
		}
		opt.Page = next
	}

	return labels, nil
}

// do runs call, retrying rate limits and transient failures up to
// MaxRetries times.
func (c *Client) do(ctx context.Context, endpoint string, call func() (*github.Response, error)) error {
	var lastErr error

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		resp, err := call()
		if err == nil {
			c.metrics.Upstream(ctx, endpoint, telemetry.OutcomeOK)

			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		wait, retryable, classified := c.classify(resp, err, attempt)
		lastErr = classified
		if !retryable || attempt == c.cfg.MaxRetries {
			break
		}

		c.metrics.Upstream(ctx, endpoint, telemetry.OutcomeRetry)
		c.logger.Warnw("retrying issue tracker call",
			"endpoint", endpoint,
			"attempt", attempt+1,
			"wait", wait,
			"error", err,
		)

		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}

	c.metrics.Upstream(ctx, endpoint, telemetry.OutcomeError)

	return lastErr
}

// classify maps a go-github error onto this package's error taxonomy and
// decides whether and how long to wait before retrying.
func (c *Client) classify(resp *github.Response, err error, attempt int) (time.Duration, bool, error) {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		wait := time.Until(rateErr.Rate.Reset.Time) + c.cfg.InitialBackoff
		if wait < c.cfg.InitialBackoff {
			wait = c.cfg.InitialBackoff
		}
		if wait > c.cfg.MaxBackoff {
			return 0, false, fmt.Errorf("%w until %s: %v", ErrRateLimited, rateErr.Rate.Reset.Time.Format(time.RFC3339), err)
		}

		return wait, true, fmt.Errorf("%w: %v", ErrRateLimited, err)
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		wait := abuseErr.GetRetryAfter()
		if wait <= 0 {
			wait = c.backoff(attempt)
		}
		if wait > c.cfg.MaxBackoff {
			return 0, false, fmt.Errorf("%w: retry after %s: %v", ErrRateLimited, wait, err)
		}

		return wait, true, fmt.Errorf("%w: %v", ErrRateLimited, err)
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		statusErr := &StatusError{
			StatusCode: respErr.Response.StatusCode,
			Message:    respErr.Message,
		}
		if req := respErr.Response.Request; req != nil {
			statusErr.Method = req.Method
			statusErr.URL = req.URL.Path
		}

		return c.backoff(attempt), statusErr.Temporary() || statusErr.StatusCode == http.StatusTooManyRequests, statusErr
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return c.backoff(attempt), true, err
	}

	if resp != nil && resp.StatusCode >= http.StatusInternalServerError {
		return c.backoff(attempt), true, err
	}

	return 0, false, err
}

// backoff computes exponential backoff with 10% jitter, capped at MaxBackoff.
func (c *Client) backoff(attempt int) time.Duration {
	backoff := float64(c.cfg.InitialBackoff) * math.Pow(c.cfg.BackoffMultiplier, float64(attempt))
	if backoff > float64(c.cfg.MaxBackoff) {
		backoff = float64(c.cfg.MaxBackoff)
	}
	backoff += backoff * 0.1 * (rand.Float64()*2 - 1)

	return time.Duration(backoff)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// versionTransport pins the API version header on every request.
type versionTransport struct {
	version string
	base    http.RoundTripper
}

func (t *versionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.version == "" {
		return t.base.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	req.Header.Set(headerAPIVersion, t.version)

	return t.base.RoundTrip(req)
}
