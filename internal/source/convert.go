package source

import (
	"github.com/google/go-github/v82/github"

	"github.com/SergeyParamoshkin/issueblog/internal/model"
	"github.com/SergeyParamoshkin/issueblog/internal/user"
)

func toArticle(gi *github.Issue) model.Article {
	a := model.Article{
		ID:            gi.GetID(),
		Number:        gi.GetNumber(),
		Title:         gi.GetTitle(),
		Body:          gi.GetBody(),
		State:         gi.GetState(),
		Comments:      gi.GetComments(),
		HTMLURL:       gi.GetHTMLURL(),
		CreatedAt:     gi.GetCreatedAt().Time,
		UpdatedAt:     gi.GetUpdatedAt().Time,
		IsPullRequest: gi.IsPullRequest(),
		Labels:        make([]model.Label, 0, len(gi.Labels)),
	}

	if u := gi.GetUser(); u != nil {
		a.User = &user.User{
			ID:        u.GetID(),
			Login:     u.GetLogin(),
			AvatarURL: u.GetAvatarURL(),
		}
	}

	for _, l := range gi.Labels {
		a.Labels = append(a.Labels, toLabel(l))
	}

	if m := gi.GetMilestone(); m != nil {
		a.Milestone = &model.Milestone{
			Number: m.GetNumber(),
			Title:  m.GetTitle(),
		}
	}

	return a
}

func toLabel(l *github.Label) model.Label {
	return model.Label{
		ID:          l.GetID(),
		Name:        l.GetName(),
		Description: l.GetDescription(),
		Color:       l.GetColor(),
	}
}
