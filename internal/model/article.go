package model

import (
	"time"

	"github.com/SergeyParamoshkin/issueblog/internal/user"
)

// Article is an issue of the blog repository. Articles are immutable once
// fetched and are identified by their number within a repository.
type Article struct {
	ID            int64      `json:"id"`
	Number        int        `json:"number"`
	Title         string     `json:"title"`
	Body          string     `json:"body"`
	State         string     `json:"state"`
	User          *user.User `json:"user,omitempty"`
	Labels        []Label    `json:"labels"`
	Milestone     *Milestone `json:"milestone,omitempty"`
	Comments      int        `json:"comments"`
	HTMLURL       string     `json:"html_url,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	IsPullRequest bool       `json:"-"`
}

// Label is a category attached to an article.
type Label struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color"`
	// Title is the human readable name derived from Description.
	Title string `json:"title,omitempty"`
}

// Milestone is repurposed as a difficulty rating.
type Milestone struct {
	Number int    `json:"number"`
	Title  string `json:"title,omitempty"`
}

// MaxDifficulty is the highest rating a milestone number can express.
const MaxDifficulty = 5

// Difficulty returns the rating in [0, MaxDifficulty]; 0 means unset.
func (a *Article) Difficulty() int {
	if a.Milestone == nil || a.Milestone.Number <= 0 {
		return 0
	}
	if a.Milestone.Number > MaxDifficulty {
		return MaxDifficulty
	}

	return a.Milestone.Number
}

// LabelNames returns the machine names of the article labels.
func (a *Article) LabelNames() []string {
	names := make([]string, 0, len(a.Labels))
	for _, l := range a.Labels {
		names = append(names, l.Name)
	}

	return names
}
