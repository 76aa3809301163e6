package article

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/SergeyParamoshkin/issueblog/internal/articleresponse"
	"github.com/SergeyParamoshkin/issueblog/internal/errresponse"
	"github.com/SergeyParamoshkin/issueblog/internal/logctx"
)

const (
	// HeaderTotalCount carries the number of search matches across all pages.
	HeaderTotalCount = "X-Total-Count"
	HeaderPerPage    = "X-Per-Page"
)

// API serves the articles of one repository.
type API struct {
	store Store
	repo  string
}

func NewAPI(store Store, repo string) *API {
	return &API{store: store, repo: repo}
}

// Routes mounts the article resource:
//
//	GET /               one page, or keyword matches with ?q=
//	GET /all            every article
//	GET /{number}       one article with its table of contents
//	GET /{number}/toc   the table of contents only
func (a *API) Routes() chi.Router {
	r := chi.NewRouter()

	r.With(Paginate).Get("/", a.ListArticles)
	r.Get("/all", a.AllArticles)

	r.Route("/{number:[0-9]+}", func(r chi.Router) {
		r.Use(a.ArticleCtx) // Load the article on the request context
		r.Get("/", a.GetArticle)
		r.Get("/toc", a.GetTOC)
	})

	return r
}

// ListArticles returns one page of articles. With a keyword it searches the
// full set and reports the number of matches in HeaderTotalCount.
func (a *API) ListArticles(w http.ResponseWriter, r *http.Request) {
	q := queryFromValues(r.URL.Query().Get("label"))
	keyword := r.URL.Query().Get("q")

	articles, total, err := a.store.Search(r.Context(), a.repo, pageFrom(r.Context()), keyword, q)
	if err != nil {
		renderError(w, r, errresponse.FromError(err))

		return
	}
	if total >= 0 {
		w.Header().Set(HeaderTotalCount, strconv.Itoa(total))
	}
	w.Header().Set(HeaderPerPage, strconv.Itoa(a.store.PerPage()))

	a.renderList(w, r, articleresponse.NewArticleListResponse(articles, a.store.Origin()))
}

// AllArticles returns the whole cached article set.
func (a *API) AllArticles(w http.ResponseWriter, r *http.Request) {
	q := queryFromValues(r.URL.Query().Get("label"))

	articles, err := a.store.All(r.Context(), a.repo, q)
	if err != nil {
		renderError(w, r, errresponse.FromError(err))

		return
	}
	w.Header().Set(HeaderTotalCount, strconv.Itoa(len(articles)))

	a.renderList(w, r, articleresponse.NewArticleListResponse(articles, a.store.Origin()))
}

// GetArticle returns the article loaded by ArticleCtx.
func (a *API) GetArticle(w http.ResponseWriter, r *http.Request) {
	d := detailFrom(r.Context())

	if err := render.Render(w, r, articleresponse.NewArticleDetailResponse(d.Article, d.TOC, a.store.Origin())); err != nil {
		renderError(w, r, errresponse.ErrRender(err))
	}
}

func (a *API) GetTOC(w http.ResponseWriter, r *http.Request) {
	d := detailFrom(r.Context())

	if err := render.Render(w, r, &articleresponse.TOCResponse{Number: d.Article.Number, Entries: d.TOC}); err != nil {
		renderError(w, r, errresponse.ErrRender(err))
	}
}

// ListLabels returns the categories of the repository in display order.
func (a *API) ListLabels(w http.ResponseWriter, r *http.Request) {
	labels, err := a.store.Labels(r.Context(), a.repo)
	if err != nil {
		renderError(w, r, errresponse.FromError(err))

		return
	}

	a.renderList(w, r, articleresponse.NewLabelListResponse(labels))
}

func (a *API) renderList(w http.ResponseWriter, r *http.Request, list []render.Renderer) {
	if err := render.RenderList(w, r, list); err != nil {
		renderError(w, r, errresponse.ErrRender(err))
	}
}

// renderError writes e and logs when even that fails.
func renderError(w http.ResponseWriter, r *http.Request, e render.Renderer) {
	if err := render.Render(w, r, e); err != nil {
		logctx.From(r.Context()).Errorw("rendering error response", "error", err)
	}
}
