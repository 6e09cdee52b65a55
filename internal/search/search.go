// Package search provides the web-search capability used to ground party
// lookups. Results are ranked text snippets; callers treat an error as
// "no evidence" and carry on.
package search

import "context"

// Snippet is one ranked search result.
type Snippet struct {
	Title string `json:"title,omitempty"`
	URL   string `json:"url,omitempty"`
	Text  string `json:"text,omitempty"`
}

// String renders the snippet as one evidence line for a prompt.
func (s Snippet) String() string {
	out := s.Text
	if s.Title != "" {
		if out != "" {
			out = s.Title + ": " + out
		} else {
			out = s.Title
		}
	}
	if s.URL != "" {
		out += " (" + s.URL + ")"
	}
	return out
}

// Searcher returns up to limit snippets for query, best first.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]Snippet, error)
}

// SearchFunc adapts a function to Searcher.
type SearchFunc func(ctx context.Context, query string, limit int) ([]Snippet, error)

func (f SearchFunc) Search(ctx context.Context, query string, limit int) ([]Snippet, error) {
	return f(ctx, query, limit)
}

// Nop never finds anything. It is used when search is disabled.
type Nop struct{}

func (Nop) Search(context.Context, string, int) ([]Snippet, error) { return nil, nil }
