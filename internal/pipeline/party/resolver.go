package party

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"pollscope/internal/cache/memory"
	"pollscope/internal/llm"
	"pollscope/internal/llmtool"
	"pollscope/internal/pipeline/choice"
	"pollscope/internal/search"
)

// ErrLookupFailed wraps any reason a lookup could not produce a party.
var ErrLookupFailed = errors.New("party: lookup failed")

var partyPromptSpec = llmtool.ApplyPresets(llmtool.StructuredPromptSpec{
	Purpose:    "Determine the political party affiliation of one person who appears as a choice in an opinion poll.",
	Background: "The name comes from a poll answer label. EVIDENCE, when present, holds web search results about the person.",
	OutputFields: []llmtool.PromptField{
		{Name: "party", Type: "string", Required: true, Description: "Party category of the person.", Enum: partyNames()},
	},
	Constraints: []string{
		"party must be exactly one of the listed values.",
	},
	Rules: []string{
		"Prefer EVIDENCE over prior knowledge when they disagree.",
		"Use Other for any party not listed and Unknown when the person cannot be identified.",
		"Labels that are not people (Undecided, Someone else, Approve) are Unknown.",
	},
	OutputFormat: "JSON only.",
	Language:     "English",
	Examples: []llmtool.PromptExample{
		{InputJSON: `{"name":"Bernie Sanders"}`, OutputJSON: `{"party":"Independent"}`},
		{InputJSON: `{"name":"Undecided"}`, OutputJSON: `{"party":"Unknown"}`},
	},
}, llmtool.PresetStrictJSON(), llmtool.PresetCautious())

// Options configures a Resolver.
type Options struct {
	LLM           llm.LLMClient
	Search        search.Searcher
	Cache         *memory.WriteOnce[string, Party]
	Logger        *zap.Logger
	Timeout       time.Duration
	SearchResults int
	Workers       int
}

// Resolver maps candidate names to parties. Entries are cached for the life
// of the process, including Unknown outcomes of failed lookups.
type Resolver struct {
	llm           llm.LLMClient
	search        search.Searcher
	cache         *memory.WriteOnce[string, Party]
	log           *zap.Logger
	timeout       time.Duration
	searchResults int
	workers       int
	group         singleflight.Group
}

func NewResolver(opts Options) *Resolver {
	if opts.Search == nil {
		opts.Search = search.Nop{}
	}
	if opts.Cache == nil {
		opts.Cache = memory.NewWriteOnce[string, Party]()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.SearchResults <= 0 {
		opts.SearchResults = 5
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	return &Resolver{
		llm:           opts.LLM,
		search:        opts.Search,
		cache:         opts.Cache,
		log:           opts.Logger,
		timeout:       opts.Timeout,
		searchResults: opts.SearchResults,
		workers:       opts.Workers,
	}
}

// Key is the cache key for a name.
func Key(name string) string {
	return strings.ToLower(choice.Normalize(name))
}

// Resolve returns the party for name. Concurrent callers for an uncached
// name share one lookup. The lookup is detached from the caller's
// cancellation and bounded by the resolver timeout; a caller whose context
// ends first gets Unknown while the lookup still completes and is cached.
func (r *Resolver) Resolve(ctx context.Context, name string) Party {
	key := Key(name)
	if key == "" {
		return Unknown
	}
	if p, ok := r.cache.Get(key); ok {
		return p
	}

	lookupCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(key, func() (any, error) {
		if p, ok := r.cache.Get(key); ok {
			return p, nil
		}
		p := r.lookupSafe(lookupCtx, name)
		stored, _ := r.cache.SetIfAbsent(key, p)
		return stored, nil
	})

	select {
	case res := <-ch:
		return res.Val.(Party)
	case <-ctx.Done():
		r.log.Debug("party resolve abandoned", zap.String("name", name), zap.Error(ctx.Err()))
		return Unknown
	}
}

// lookupSafe never fails; every failure becomes Unknown.
func (r *Resolver) lookupSafe(ctx context.Context, name string) (p Party) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("party lookup panicked", zap.String("name", name), zap.Any("panic", rec))
			p = Unknown
		}
	}()
	start := time.Now()
	p, err := r.lookup(ctx, name)
	if err != nil {
		r.log.Warn("party lookup failed", zap.String("name", name), zap.Error(err))
		return Unknown
	}
	r.log.Info("party resolved",
		zap.String("name", name),
		zap.String("party", string(p)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return p
}

func (r *Resolver) lookup(ctx context.Context, name string) (Party, error) {
	if r.llm == nil {
		return Unknown, fmt.Errorf("%w: no model configured", ErrLookupFailed)
	}
	var evidence []string
	snippets, err := r.search.Search(ctx, name+" political party affiliation", r.searchResults)
	if err != nil {
		r.log.Debug("party search failed; asking without evidence", zap.String("name", name), zap.Error(err))
	}
	for _, s := range snippets {
		evidence = append(evidence, s.String())
	}

	prompt, err := llmtool.Render(partyPromptSpec, map[string]any{"name": name}, evidence...)
	if err != nil {
		return Unknown, fmt.Errorf("%w: %w", ErrLookupFailed, err)
	}
	var out struct {
		Party string `json:"party"`
	}
	if err := llmtool.AskJSON(ctx, r.llm, llm.PhaseParty, prompt, &out); err != nil {
		return Unknown, fmt.Errorf("%w: %s: %w", ErrLookupFailed, name, err)
	}
	p, ok := Parse(out.Party)
	if !ok {
		return Unknown, fmt.Errorf("%w: %s: unrecognized party %q", ErrLookupFailed, name, out.Party)
	}
	return p, nil
}

// ResolveAll resolves names concurrently and returns a map keyed by the
// names given.
func (r *Resolver) ResolveAll(ctx context.Context, names []string) map[string]Party {
	out := make(map[string]Party, len(names))
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(r.workers)
	for _, name := range names {
		g.Go(func() error {
			p := r.Resolve(ctx, name)
			mu.Lock()
			out[name] = p
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Snapshot copies the cache for diagnostics.
func (r *Resolver) Snapshot() map[string]Party { return r.cache.Snapshot() }

// Len is the number of cached names.
func (r *Resolver) Len() int { return r.cache.Len() }
