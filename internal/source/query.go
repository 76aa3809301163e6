package source

import (
	"sort"
	"strings"
)

// Query carries the passthrough filters of a list call.
type Query struct {
	Labels    []string `json:"labels,omitempty"`
	Direction string   `json:"direction,omitempty"`
	State     string   `json:"state,omitempty"`
	Sort      string   `json:"sort,omitempty"`
	Milestone string   `json:"milestone,omitempty"`
}

// Key is a canonical form of q: equal filters give equal keys regardless of
// label order or duplicates.
func (q Query) Key() string {
	labels := make([]string, 0, len(q.Labels))
	seen := make(map[string]bool, len(q.Labels))
	for _, l := range q.Labels {
		l = strings.TrimSpace(l)
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		labels = append(labels, l)
	}
	sort.Strings(labels)

	return strings.Join([]string{
		"labels=" + strings.Join(labels, ","),
		"direction=" + q.Direction,
		"state=" + q.State,
		"sort=" + q.Sort,
		"milestone=" + q.Milestone,
	}, "&")
}

// ParseLabels splits a comma separated label filter.
func ParseLabels(s string) []string {
	var labels []string
	for _, l := range strings.Split(s, ",") {
		if l = strings.TrimSpace(l); l != "" {
			labels = append(labels, l)
		}
	}

	return labels
}
