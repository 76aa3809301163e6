package articleresponse

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/SergeyParamoshkin/issueblog/internal/model"
	"github.com/SergeyParamoshkin/issueblog/internal/toc"
)

// LabelResponse is a category as listed on the index page.
type LabelResponse struct {
	*model.Label
}

func NewLabelListResponse(labels []model.Label) []render.Renderer {
	list := []render.Renderer{}
	for i := range labels {
		list = append(list, &LabelResponse{Label: &labels[i]})
	}

	return list
}

func (l *LabelResponse) Render(w http.ResponseWriter, r *http.Request) error {
	if l.Title == "" {
		l.Title = l.Name
	}

	return nil
}

// TOCResponse is the table of contents of one article.
type TOCResponse struct {
	Number  int         `json:"number"`
	Entries []toc.Entry `json:"entries"`
}

func (t *TOCResponse) Render(w http.ResponseWriter, r *http.Request) error {
	if t.Entries == nil {
		t.Entries = []toc.Entry{}
	}

	return nil
}
