package blog

import (
	"regexp"
	"sort"
	"strings"

	"github.com/SergeyParamoshkin/issueblog/internal/model"
)

// fallbackLabel is the position taken by names missing from the order list.
const fallbackLabel = "other"

var (
	titlePrefix = regexp.MustCompile(`^分类\s*-\s*`)
	titleSuffix = regexp.MustCompile(`\s*相关$`)
)

// LabelTitle derives the display title of a label from its description,
// e.g. "分类 - CSS 相关" becomes "CSS". Labels without a description are
// titled by name.
func LabelTitle(l model.Label) string {
	desc := strings.TrimSpace(l.Description)
	if desc == "" {
		return l.Name
	}
	title := titleSuffix.ReplaceAllString(titlePrefix.ReplaceAllString(desc, ""), "")
	if title == "" {
		return l.Name
	}

	return title
}

type labelPolicy struct {
	rank     map[string]int
	fallback int
	hidden   map[string]struct{}
}

func newLabelPolicy(order, hidden []string) *labelPolicy {
	p := &labelPolicy{
		rank:     make(map[string]int, len(order)),
		fallback: len(order),
		hidden:   make(map[string]struct{}, len(hidden)),
	}
	for i, name := range order {
		if _, ok := p.rank[name]; !ok {
			p.rank[name] = i
		}
	}
	if r, ok := p.rank[fallbackLabel]; ok {
		p.fallback = r
	}
	for _, h := range hidden {
		p.hidden[h] = struct{}{}
	}

	return p
}

func (p *labelPolicy) rankOf(name string) int {
	if r, ok := p.rank[name]; ok {
		return r
	}

	return p.fallback
}

func (p *labelPolicy) apply(labels []model.Label) []model.Label {
	out := make([]model.Label, 0, len(labels))
	for _, l := range labels {
		l.Title = LabelTitle(l)
		if _, ok := p.hidden[l.Title]; ok {
			continue
		}
		out = append(out, l)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return p.rankOf(out[i].Name) < p.rankOf(out[j].Name)
	})

	return out
}
