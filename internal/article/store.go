package article

import (
	"context"

	"github.com/SergeyParamoshkin/issueblog/internal/blog"
	"github.com/SergeyParamoshkin/issueblog/internal/model"
	"github.com/SergeyParamoshkin/issueblog/internal/source"
)

// Store is the read side the handlers serve articles from.
type Store interface {
	Search(ctx context.Context, repo string, page int, keyword string, q source.Query) ([]model.Article, int, error)
	All(ctx context.Context, repo string, q source.Query) ([]model.Article, error)
	Article(ctx context.Context, repo string, number int) (*blog.Detail, error)
	Labels(ctx context.Context, repo string) ([]model.Label, error)
	PerPage() int
	Origin() string
}

var _ Store = (*blog.Service)(nil)

// queryFromValues builds the label filter shared by the list routes.
func queryFromValues(label string) source.Query {
	return source.Query{Labels: source.ParseLabels(label)}
}
