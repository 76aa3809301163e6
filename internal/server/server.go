// Package server wires the API and diagnostics routers.
package server

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/SergeyParamoshkin/issueblog/internal/article"
	"github.com/SergeyParamoshkin/issueblog/internal/errresponse"
	"github.com/SergeyParamoshkin/issueblog/internal/logctx"
	"github.com/SergeyParamoshkin/issueblog/internal/telemetry"
)

// CacheAdmin drops cached data on request of an administrator.
type CacheAdmin interface {
	Invalidate(ctx context.Context, repo string) error
	Reset(ctx context.Context) error
}

type Deps struct {
	Store      article.Store
	Cache      CacheAdmin
	Repo       string
	AdminToken string
	Logger     *zap.SugaredLogger
	Metrics    *telemetry.Metrics
}

func NewRouter(d Deps) chi.Router {
	if d.Logger == nil {
		d.Logger = zap.NewNop().Sugar()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(logctx.Middleware(d.Logger))
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(d.Metrics.Middleware)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		_, err := w.Write([]byte("root."))
		if err != nil {
			logctx.From(r.Context()).Errorw(err.Error())
		}
	})

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		logctx.From(r.Context()).Debugw("ping")
		_, err := w.Write([]byte("pong"))
		if err != nil {
			logctx.From(r.Context()).Errorw(err.Error())
		}
	})

	api := article.NewAPI(d.Store, d.Repo)

	// RESTy routes for "articles" resource
	r.Mount("/articles", api.Routes())
	r.Get("/labels", api.ListLabels)

	r.Mount("/admin", adminRouter(d))

	return r
}

// NewDiagRouter serves operational endpoints on their own listener.
func NewDiagRouter(metrics http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/metrics", metrics.ServeHTTP)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return r
}

// A completely separate router for administrator routes
func adminRouter(d Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(AdminOnly(d.AdminToken))

	r.Post("/cache/reset", func(w http.ResponseWriter, r *http.Request) {
		if err := d.Cache.Reset(r.Context()); err != nil {
			if rerr := render.Render(w, r, errresponse.ErrRender(err)); rerr != nil {
				logctx.From(r.Context()).Errorw("rendering error response", "error", rerr)
			}

			return
		}
		render.JSON(w, r, render.M{"status": "ok"})
	})

	r.Post("/cache/invalidate", func(w http.ResponseWriter, r *http.Request) {
		repo := r.URL.Query().Get("repo")
		if repo == "" {
			repo = d.Repo
		}
		if err := d.Cache.Invalidate(r.Context(), repo); err != nil {
			if rerr := render.Render(w, r, errresponse.ErrRender(err)); rerr != nil {
				logctx.From(r.Context()).Errorw("rendering error response", "error", rerr)
			}

			return
		}
		render.JSON(w, r, render.M{"status": "ok", "repo": repo})
	})

	return r
}

// AdminOnly middleware restricts access to callers presenting the admin
// bearer token. An empty token disables the admin routes.
func AdminOnly(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)

				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
