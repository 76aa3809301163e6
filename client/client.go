// Package client is a Go client for the issueblog JSON API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/SergeyParamoshkin/issueblog/internal/model"
	"github.com/SergeyParamoshkin/issueblog/internal/toc"
)

type Client struct {
	http.Client
	Addr string
}

type Author struct {
	ID         int64  `json:"id"`
	Login      string `json:"login"`
	AvatarURL  string `json:"avatar_url,omitempty"`
	ProfileURL string `json:"profile_url,omitempty"`
}

type Article struct {
	Number     int           `json:"number"`
	Title      string        `json:"title"`
	Body       string        `json:"body,omitempty"`
	Excerpt    string        `json:"excerpt,omitempty"`
	State      string        `json:"state"`
	User       *Author       `json:"user,omitempty"`
	Labels     []model.Label `json:"labels"`
	Difficulty int           `json:"difficulty"`
	Comments   int           `json:"comments"`
	HTMLURL    string        `json:"html_url,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
	TOC        []toc.Entry   `json:"toc,omitempty"`
}

// Page is one page of a listing. Total is -1 when the server did not
// report it.
type Page struct {
	Articles []Article
	Total    int
	PerPage  int
}

type ListOptions struct {
	Page    int
	Keyword string
	Labels  []string
}

// APIError is a non-2xx answer of the server.
type APIError struct {
	StatusCode int
	Status     string `json:"status"`
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("issueblog: %d %s: %s", e.StatusCode, e.Status, e.Message)
	}

	return fmt.Sprintf("issueblog: %d %s", e.StatusCode, e.Status)
}

func (c *Client) Ping() (string, error) {
	req, err := http.NewRequest(http.MethodGet, c.Addr+"/ping", nil)
	if err != nil {
		return "", err
	}

	resp, err := c.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	return string(body), err
}

// Articles lists one page of articles, or of keyword matches when
// opts.Keyword is set.
func (c *Client) Articles(ctx context.Context, opts ListOptions) (*Page, error) {
	v := url.Values{}
	if opts.Page > 0 {
		v.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.Keyword != "" {
		v.Set("q", opts.Keyword)
	}
	if len(opts.Labels) > 0 {
		v.Set("label", strings.Join(opts.Labels, ","))
	}

	var articles []Article
	header, err := c.get(ctx, "/articles", v, &articles)
	if err != nil {
		return nil, err
	}

	return &Page{
		Articles: articles,
		Total:    headerInt(header, "X-Total-Count", -1),
		PerPage:  headerInt(header, "X-Per-Page", 0),
	}, nil
}

// AllArticles returns every article, optionally filtered by labels.
func (c *Client) AllArticles(ctx context.Context, labels ...string) ([]Article, error) {
	v := url.Values{}
	if len(labels) > 0 {
		v.Set("label", strings.Join(labels, ","))
	}

	var articles []Article
	if _, err := c.get(ctx, "/articles/all", v, &articles); err != nil {
		return nil, err
	}

	return articles, nil
}

// Article returns one article with its body and table of contents.
func (c *Client) Article(ctx context.Context, number int) (*Article, error) {
	var a Article
	if _, err := c.get(ctx, "/articles/"+strconv.Itoa(number), nil, &a); err != nil {
		return nil, err
	}

	return &a, nil
}

func (c *Client) TOC(ctx context.Context, number int) ([]toc.Entry, error) {
	var out struct {
		Entries []toc.Entry `json:"entries"`
	}
	if _, err := c.get(ctx, "/articles/"+strconv.Itoa(number)+"/toc", nil, &out); err != nil {
		return nil, err
	}

	return out.Entries, nil
}

// Labels returns the categories in display order.
func (c *Client) Labels(ctx context.Context) ([]model.Label, error) {
	var labels []model.Label
	if _, err := c.get(ctx, "/labels", nil, &labels); err != nil {
		return nil, err
	}

	return labels, nil
}

func (c *Client) get(ctx context.Context, path string, v url.Values, out interface{}) (http.Header, error) {
	u := c.Addr + path
	if len(v) > 0 {
		u += "?" + v.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		if apiErr.Status == "" {
			apiErr.Status = http.StatusText(resp.StatusCode)
		}

		return nil, apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	return resp.Header, nil
}

func headerInt(h http.Header, key string, def int) int {
	n, err := strconv.Atoi(h.Get(key))
	if err != nil {
		return def
	}

	return n
}
