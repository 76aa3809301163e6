// Package toc derives a table of contents from the headings of a markdown
// article body.
package toc

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

const (
	// IndentStep is the indentation added per nesting level.
	IndentStep = 16
	// maxDepth follows ATX headings, which stop at six markers.
	maxDepth = 6
)

// Entry is one heading of a document.
type Entry struct {
	Text   string `json:"text"`
	Title  string `json:"title"`
	Depth  int    `json:"depth"`
	Slug   string `json:"id"`
	Href   string `json:"href"`
	Indent int    `json:"padding_left"`
}

// Build extracts headings from body in document order. A heading is a line
// made of 1 to 6 '#' markers followed by whitespace and a title. Lines inside
// fenced code blocks are skipped. Indent is relative to the shallowest heading:
// (depth - minDepth) * IndentStep + IndentStep.
func Build(body string) []Entry {
	var (
		entries  []Entry
		inFence  bool
		fence    string
		minDepth = maxDepth + 1
		seen     = map[string]int{}
	)

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimRight(line, "\r")

		if marker := fenceMarker(line); marker != "" {
			switch {
			case !inFence:
				inFence, fence = true, marker
			case strings.HasPrefix(marker, fence):
				inFence = false
			}

			continue
		}
		if inFence {
			continue
		}

		depth, title, ok := parseHeading(line)
		if !ok {
			continue
		}
		if depth < minDepth {
			minDepth = depth
		}

		slug := Slug(title)
		if seen[slug] > 0 {
			// suffixed slugs may collide with a literal heading
			base := slug
			for n := seen[base]; ; n++ {
				slug = fmt.Sprintf("%s-%d", base, n)
				if seen[slug] == 0 {
					seen[base] = n + 1

					break
				}
			}
		}
		seen[slug]++

		entries = append(entries, Entry{
			Text:  line,
			Title: title,
			Depth: depth,
			Slug:  slug,
			Href:  "#" + slug,
		})
	}

	for i := range entries {
		entries[i].Indent = (entries[i].Depth-minDepth)*IndentStep + IndentStep
	}

	return entries
}

func parseHeading(line string) (int, string, bool) {
	depth := 0
	for depth < len(line) && line[depth] == '#' {
		depth++
	}
	if depth == 0 || depth > maxDepth || depth == len(line) {
		return 0, "", false
	}
	if line[depth] != ' ' && line[depth] != '\t' {
		return 0, "", false
	}

	title := strings.TrimSpace(line[depth:])
	if title == "" {
		return 0, "", false
	}

	return depth, title, true
}

func fenceMarker(line string) string {
	trimmed := strings.TrimLeft(line, " ")
	if len(line)-len(trimmed) > 3 {
		return ""
	}
	for _, m := range []string{"```", "~~~"} {
		if strings.HasPrefix(trimmed, m) {
			n := len(trimmed) - len(strings.TrimLeft(trimmed, m[:1]))
			return trimmed[:n]
		}
	}

	return ""
}

// Slug turns a heading title into an anchor id.
//
// Character policy: letters, marks and digits of any script are kept and
// lowercased; '-' and '_' are kept; every other rune in the Unicode
// punctuation (P*) or symbol (S*) categories is removed; runs of whitespace
// become a single '-'.
func Slug(title string) string {
	t := transform.Chain(
		cases.Lower(language.Und),
		runes.Remove(runes.Predicate(dropped)),
	)

	s, _, err := transform.String(t, title)
	if err != nil {
		s = strings.ToLower(title)
	}

	return strings.Join(strings.Fields(s), "-")
}

func dropped(r rune) bool {
	if r == '-' || r == '_' {
		return false
	}

	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}
