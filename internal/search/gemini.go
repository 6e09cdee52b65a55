package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	genai "google.golang.org/genai"
)

var errNoResult = errors.New("search: empty grounded response")

// GeminiSearcher asks Gemini with Google Search grounding enabled and turns
// the grounded answer plus its web sources into snippets.
type GeminiSearcher struct {
	cli   *genai.Client
	model string
}

func NewGeminiSearcher(cli *genai.Client, model string) *GeminiSearcher {
	return &GeminiSearcher{cli: cli, model: model}
}

func (g *GeminiSearcher) Search(ctx context.Context, query string, limit int) ([]Snippet, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	prompt := "Search the web and answer in at most three short factual sentences: " + query
	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: prompt}}}},
		&genai.GenerateContentConfig{
			Tools:       []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
			Temperature: genai.Ptr[float32](0),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("search: gemini: %w", err)
	}
	out := snippetsFrom(resp, limit)
	if len(out) == 0 {
		return nil, errNoResult
	}
	return out, nil
}

// snippetsFrom puts the grounded answer first, followed by its sources.
func snippetsFrom(resp *genai.GenerateContentResponse, limit int) []Snippet {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return nil
	}
	c := resp.Candidates[0]
	var out []Snippet
	if c.Content != nil {
		var b strings.Builder
		for _, p := range c.Content.Parts {
			if p != nil {
				b.WriteString(p.Text)
			}
		}
		if txt := strings.TrimSpace(b.String()); txt != "" {
			out = append(out, Snippet{Title: "answer", Text: txt})
		}
	}
	if c.GroundingMetadata != nil {
		for _, ch := range c.GroundingMetadata.GroundingChunks {
			if ch == nil || ch.Web == nil {
				continue
			}
			out = append(out, Snippet{Title: ch.Web.Title, URL: ch.Web.URI})
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
