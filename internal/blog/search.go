package blog

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/SergeyParamoshkin/issueblog/internal/model"
)

// Filter keeps the articles whose title, body or any label name contains
// keyword, ignoring case. Order is preserved.
func Filter(articles []model.Article, keyword string) []model.Article {
	fold := cases.Fold()
	needle := fold.String(keyword)

	out := make([]model.Article, 0)
	for _, a := range articles {
		if matches(fold, a, needle) {
			out = append(out, a)
		}
	}

	return out
}

func matches(fold cases.Caser, a model.Article, needle string) bool {
	if strings.Contains(fold.String(a.Title), needle) || strings.Contains(fold.String(a.Body), needle) {
		return true
	}
	for _, l := range a.Labels {
		if strings.Contains(fold.String(l.Name), needle) {
			return true
		}
	}

	return false
}

// Paginate returns the 1-based page of articles. Pages past the end are
// empty.
func Paginate(articles []model.Article, page, perPage int) []model.Article {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}

	start := (page - 1) * perPage
	if start >= len(articles) {
		return []model.Article{}
	}
	end := start + perPage
	if end > len(articles) {
		end = len(articles)
	}

	return articles[start:end]
}
