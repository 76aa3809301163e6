package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/SergeyParamoshkin/issueblog/internal/aggregate"
	"github.com/SergeyParamoshkin/issueblog/internal/blog"
	"github.com/SergeyParamoshkin/issueblog/internal/cache"
	"github.com/SergeyParamoshkin/issueblog/internal/source"
)

const adminToken = "s3cret"

// fakeGitHub serves total issues of hankliu/blog, 100 per page at most.
type fakeGitHub struct {
	total     int
	listCalls int32
}

func (f *fakeGitHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch r.URL.Path {
	case "/repos/hankliu/blog/labels":
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"id": 1, "name": "css", "description": "分类 - CSS 相关"},
			{"id": 2, "name": "account", "description": "账号备忘录"},
			{"id": 3, "name": "javascript", "description": "分类 - JavaScript 相关"},
		})
	case "/repos/hankliu/blog/issues":
		atomic.AddInt32(&f.listCalls, 1)
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
		items := []map[string]any{}
		for n := (page-1)*perPage + 1; n <= page*perPage && n <= f.total; n++ {
			items = append(items, issue(n))
		}
		_ = json.NewEncoder(w).Encode(items)
	default:
		var n int
		if _, err := fmt.Sscanf(r.URL.Path, "/repos/hankliu/blog/issues/%d", &n); err != nil || n > f.total {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]any{"message": "Not Found"})

			return
		}
		_ = json.NewEncoder(w).Encode(issue(n))
	}
}

func issue(n int) map[string]any {
	title := fmt.Sprintf("Closures %d", n)
	if n%2 == 0 {
		title = fmt.Sprintf("Intro to CSS %d", n)
	}

	return map[string]any{
		"id":        n,
		"number":    n,
		"title":     title,
		"body":      "# Intro\n## 作用域，链",
		"user":      map[string]any{"id": 1, "login": "hankliu"},
		"milestone": map[string]any{"number": 2},
	}
}

func newTestServer(t *testing.T, total int) (*httptest.Server, *fakeGitHub) {
	t.Helper()
	gh := &fakeGitHub{total: total}
	upstream := httptest.NewServer(gh)
	t.Cleanup(upstream.Close)

	logger := zaptest.NewLogger(t).Sugar()
	src, err := source.New(source.Config{BaseURL: upstream.URL, Owner: "hankliu"}, logger, nil)
	require.NoError(t, err)

	agg := aggregate.New(src, aggregate.Options{PageSize: 100}, logger)
	snapshots := cache.New(agg.FetchAll, cache.WithLogger(logger))
	svc := blog.New(src, snapshots, blog.Options{
		Exclude:      []int{20},
		Origin:       "https://github.com",
		LabelOrder:   []string{"javascript", "css", "other"},
		HiddenLabels: []string{"账号备忘录"},
	}, logger)

	srv := httptest.NewServer(NewRouter(Deps{
		Store:      svc,
		Cache:      svc,
		Repo:       "blog",
		AdminToken: adminToken,
		Logger:     logger,
	}))
	t.Cleanup(srv.Close)

	return srv, gh
}

func get(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}

	return resp
}

func post(t *testing.T, url, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	return resp
}

func TestRootAndPing(t *testing.T) {
	srv, _ := newTestServer(t, 0)

	for path, want := range map[string]string{"/": "root.", "/ping": "pong"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		assert.Equal(t, want, string(body))
	}
}

func TestSearchAcrossPagesUsesSnapshot(t *testing.T) {
	srv, gh := newTestServer(t, 150)

	var page2 []map[string]any
	resp := get(t, srv.URL+"/articles?q=css&page=2", &page2)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// 75 even numbers, 20 is excluded
	assert.Equal(t, "74", resp.Header.Get("X-Total-Count"))
	require.Len(t, page2, 10)
	assert.EqualValues(t, 24, page2[0]["number"])
	// two full pages and the empty one that ends the walk
	assert.Equal(t, int32(3), atomic.LoadInt32(&gh.listCalls))

	var page3 []map[string]any
	get(t, srv.URL+"/articles?q=css&page=3", &page3)
	assert.Len(t, page3, 10)
	assert.Equal(t, int32(3), atomic.LoadInt32(&gh.listCalls), "second search is served from the snapshot")
}

func TestListWithoutKeywordHitsUpstream(t *testing.T) {
	srv, gh := newTestServer(t, 15)

	var list []map[string]any
	resp := get(t, srv.URL+"/articles?page=2", &list)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, list, 5)
	assert.Equal(t, int32(1), atomic.LoadInt32(&gh.listCalls))
}

func TestArticleDetail(t *testing.T) {
	srv, _ := newTestServer(t, 30)

	var body map[string]any
	resp := get(t, srv.URL+"/articles/7", &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.EqualValues(t, 2, body["difficulty"])
	assert.Equal(t, "https://github.com/hankliu", body["user"].(map[string]any)["profile_url"])
	entries := body["toc"].([]any)
	require.Len(t, entries, 2)
	assert.Equal(t, "作用域链", entries[1].(map[string]any)["id"])

	assert.Equal(t, http.StatusNotFound, get(t, srv.URL+"/articles/20", nil).StatusCode)
	assert.Equal(t, http.StatusNotFound, get(t, srv.URL+"/articles/99", nil).StatusCode)
}

func TestLabels(t *testing.T) {
	srv, _ := newTestServer(t, 0)

	var labels []map[string]any
	get(t, srv.URL+"/labels", &labels)
	require.Len(t, labels, 2)
	assert.Equal(t, "JavaScript", labels[0]["title"])
	assert.Equal(t, "CSS", labels[1]["title"])
}

func TestAdminRoutes(t *testing.T) {
	srv, gh := newTestServer(t, 10)

	get(t, srv.URL+"/articles/all", nil)
	require.Equal(t, int32(2), atomic.LoadInt32(&gh.listCalls))

	assert.Equal(t, http.StatusForbidden, post(t, srv.URL+"/admin/cache/reset", "").StatusCode)
	assert.Equal(t, http.StatusForbidden, post(t, srv.URL+"/admin/cache/reset", "wrong").StatusCode)

	assert.Equal(t, http.StatusOK, post(t, srv.URL+"/admin/cache/invalidate?repo=blog", adminToken).StatusCode)
	get(t, srv.URL+"/articles/all", nil)
	assert.Equal(t, int32(4), atomic.LoadInt32(&gh.listCalls))

	assert.Equal(t, http.StatusOK, post(t, srv.URL+"/admin/cache/reset", adminToken).StatusCode)
	get(t, srv.URL+"/articles/all", nil)
	assert.Equal(t, int32(6), atomic.LoadInt32(&gh.listCalls))
}

func TestAdminDisabledWithoutToken(t *testing.T) {
	h := AdminOnly("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("must not be reached")
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/cache/reset", nil)
	req.Header.Set("Authorization", "Bearer ")
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDiagRouter(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("# HELP up\n"))
	})
	srv := httptest.NewServer(NewDiagRouter(metrics))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "# HELP up")

	assert.Equal(t, http.StatusOK, get(t, srv.URL+"/healthz", nil).StatusCode)
}
