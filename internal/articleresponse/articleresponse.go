package articleresponse

import (
	"html"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/render"
	"github.com/microcosm-cc/bluemonday"

	"github.com/SergeyParamoshkin/issueblog/internal/model"
	"github.com/SergeyParamoshkin/issueblog/internal/toc"
	"github.com/SergeyParamoshkin/issueblog/internal/userpayload"
)

// ExcerptLength is the number of runes kept in list excerpts.
const ExcerptLength = 140

var strict = bluemonday.StrictPolicy()

// ArticleResponse is the response payload for the Article data model.
// Render is called on it first and then on User, top-down like a middleware
// chain.
//
// List items carry an excerpt and no body; the detail view carries the body
// and the table of contents.
type ArticleResponse struct {
	*model.Article

	Body string                   `json:"body,omitempty"`
	User *userpayload.UserPayload `json:"user,omitempty"`

	Difficulty int         `json:"difficulty"`
	Excerpt    string      `json:"excerpt,omitempty"`
	TOC        []toc.Entry `json:"toc,omitempty"`

	detail bool
}

func NewArticleListResponse(articles []model.Article, origin string) []render.Renderer {
	list := []render.Renderer{}
	for i := range articles {
		list = append(list, NewArticleResponse(&articles[i], origin))
	}

	return list
}

func NewArticleResponse(article *model.Article, origin string) *ArticleResponse {
	return &ArticleResponse{
		Article: article,
		User:    userpayload.NewUserPayloadResponse(article.User, origin),
	}
}

func NewArticleDetailResponse(article *model.Article, entries []toc.Entry, origin string) *ArticleResponse {
	resp := NewArticleResponse(article, origin)
	resp.TOC = entries
	resp.detail = true

	return resp
}

func (rd *ArticleResponse) Render(w http.ResponseWriter, r *http.Request) error {
	// Pre-processing before a response is marshalled and sent across the wire
	rd.Difficulty = rd.Article.Difficulty()
	if rd.detail {
		rd.Body = rd.Article.Body
	} else {
		rd.Excerpt = Excerpt(rd.Article.Body, ExcerptLength)
	}

	return nil
}

// Excerpt flattens a markdown body into at most n runes of plain text. HTML
// is stripped and heading or fence markers are dropped.
func Excerpt(body string, n int) string {
	text := html.UnescapeString(strict.Sanitize(body))

	words := make([]string, 0)
	for _, w := range strings.Fields(text) {
		if strings.Trim(w, "#`") == "" {
			continue
		}
		words = append(words, w)
	}
	text = strings.Join(words, " ")

	if utf8.RuneCountInString(text) <= n {
		return text
	}

	return strings.TrimSpace(string([]rune(text)[:n])) + "…"
}
