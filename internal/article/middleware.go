package article

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/SergeyParamoshkin/issueblog/internal/blog"
	"github.com/SergeyParamoshkin/issueblog/internal/errresponse"
)

type ctxKey int8

const (
	ctxKeyArticle ctxKey = iota
	ctxKeyPage
)

// ArticleCtx middleware is used to load an Article object from
// the URL parameters passed through as the request. In case
// the Article could not be found, we stop here and return a 404.
func (a *API) ArticleCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		number, err := strconv.Atoi(chi.URLParam(r, "number"))
		if err != nil || number < 1 {
			renderError(w, r, errresponse.ErrNotFound)

			return
		}

		detail, err := a.store.Article(r.Context(), a.repo, number)
		if err != nil {
			renderError(w, r, errresponse.FromError(err))

			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyArticle, detail)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func detailFrom(ctx context.Context) *blog.Detail {
	// handlers below ArticleCtx always find the detail; if not, the
	// recoverer middleware will save us.
	return ctx.Value(ctxKeyArticle).(*blog.Detail)
}

// Paginate reads the 1-based page query parameter and sends it down the
// chain. It defaults to the first page.
func Paginate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := 1
		if raw := r.URL.Query().Get("page"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				renderError(w, r, errresponse.ErrInvalidRequest(fmt.Errorf("page must be a positive integer, got %q", raw)))

				return
			}
			page = n
		}

		ctx := context.WithValue(r.Context(), ctxKeyPage, page)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func pageFrom(ctx context.Context) int {
	if page, ok := ctx.Value(ctxKeyPage).(int); ok {
		return page
	}

	return 1
}
