package party

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"pollscope/internal/llm"
	"pollscope/internal/search"
)

// gatedLLM answers party lookups after release is closed and counts calls.
type gatedLLM struct {
	release chan struct{}
	calls   int32
	answer  string
	err     error
	prompts []string
	mu      sync.Mutex
}

func newGated(answer string) *gatedLLM {
	return &gatedLLM{release: make(chan struct{}), answer: answer}
}

func (g *gatedLLM) Name() string { return "gated" }
func (g *gatedLLM) Close() error { return nil }
func (g *gatedLLM) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	atomic.AddInt32(&g.calls, 1)
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if g.err != nil {
		return nil, g.err
	}
	return json.RawMessage(`{"party":"` + g.answer + `"}`), nil
}

func (g *gatedLLM) Calls() int { return int(atomic.LoadInt32(&g.calls)) }

func TestParse(t *testing.T) {
	for in, want := range map[string]Party{
		"Dem": Democrat, "democratic party": Democrat, " R ": Republican, "GOP": Republican,
		"Ind": Independent, "Lib": Libertarian, "Green Party": Green, "other": Other, "Unknown": Unknown,
	} {
		got, ok := Parse(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	got, ok := Parse("Whig-ish")
	assert.False(t, ok)
	assert.Equal(t, Unknown, got)
}

func TestKey(t *testing.T) {
	assert.Equal(t, Key("R.F.K. Jr."), Key("rfk  jr"))
	assert.Equal(t, "", Key(" . "))
}

func TestResolve_SingleFlight(t *testing.T) {
	defer goleak.VerifyNone(t)

	g := newGated("Republican")
	r := NewResolver(Options{LLM: g, Workers: 8})

	const n = 20
	var wg sync.WaitGroup
	results := make([]Party, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.Resolve(context.Background(), "Nikki Haley")
		}(i)
	}
	require.Eventually(t, func() bool { return g.Calls() == 1 }, time.Second, time.Millisecond)
	// Give late arrivals a moment to join the flight before it completes.
	time.Sleep(20 * time.Millisecond)
	close(g.release)
	wg.Wait()

	assert.Equal(t, 1, g.Calls())
	for _, p := range results {
		assert.Equal(t, Republican, p)
	}
	assert.Equal(t, Republican, r.Resolve(context.Background(), "nikki haley."))
	assert.Equal(t, 1, g.Calls())
	assert.Equal(t, map[string]Party{"nikki haley": Republican}, r.Snapshot())
}

func TestResolve_FailureCachesUnknown(t *testing.T) {
	g := newGated("")
	g.err = errors.New("model down")
	close(g.release)
	r := NewResolver(Options{LLM: g})

	assert.Equal(t, Unknown, r.Resolve(context.Background(), "Jane Doe"))
	assert.Equal(t, Unknown, r.Resolve(context.Background(), "Jane Doe"))
	assert.Equal(t, 1, g.Calls())
	assert.Equal(t, 1, r.Len())
}

func TestResolve_UnrecognizedAnswerCachesUnknown(t *testing.T) {
	g := newGated("Whig")
	close(g.release)
	r := NewResolver(Options{LLM: g})

	assert.Equal(t, Unknown, r.Resolve(context.Background(), "Henry Clay"))
	p, ok := r.Snapshot()["henry clay"]
	require.True(t, ok)
	assert.Equal(t, Unknown, p)
}

func TestResolve_TimeoutCachesUnknown(t *testing.T) {
	defer goleak.VerifyNone(t)

	g := newGated("Democrat")
	r := NewResolver(Options{LLM: g, Timeout: 20 * time.Millisecond})

	assert.Equal(t, Unknown, r.Resolve(context.Background(), "Slow Name"))
	close(g.release)
	assert.Equal(t, Unknown, r.Resolve(context.Background(), "Slow Name"))
	assert.Equal(t, 1, g.Calls())
}

func TestResolve_CallerGivesUpLookupStillCaches(t *testing.T) {
	defer goleak.VerifyNone(t)

	g := newGated("Democrat")
	r := NewResolver(Options{LLM: g})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Party)
	go func() { done <- r.Resolve(ctx, "Gavin Newsom") }()
	require.Eventually(t, func() bool { return g.Calls() == 1 }, time.Second, time.Millisecond)
	cancel()
	assert.Equal(t, Unknown, <-done)
	assert.Equal(t, 0, r.Len())

	close(g.release)
	require.Eventually(t, func() bool { return r.Len() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, Democrat, r.Resolve(context.Background(), "Gavin Newsom"))
	assert.Equal(t, 1, g.Calls())
}

func TestResolve_UsesSearchEvidence(t *testing.T) {
	g := newGated("Independent")
	close(g.release)
	var queries []string
	s := search.SearchFunc(func(_ context.Context, q string, limit int) ([]search.Snippet, error) {
		queries = append(queries, q)
		return []search.Snippet{{Title: "Senate", Text: "Independent senator from Vermont"}}, nil
	})
	r := NewResolver(Options{LLM: g, Search: s})

	assert.Equal(t, Independent, r.Resolve(context.Background(), "Bernie Sanders"))
	require.Len(t, queries, 1)
	assert.Contains(t, queries[0], "Bernie Sanders")
	require.Len(t, g.prompts, 1)
	assert.Contains(t, g.prompts[0], "[EVIDENCE]")
	assert.Contains(t, g.prompts[0], "Independent senator from Vermont")
}

func TestResolve_SearchFailureDegradesToModelOnly(t *testing.T) {
	g := newGated("Green")
	close(g.release)
	s := search.SearchFunc(func(context.Context, string, int) ([]search.Snippet, error) {
		return nil, errors.New("search down")
	})
	r := NewResolver(Options{LLM: g, Search: s})

	assert.Equal(t, Green, r.Resolve(context.Background(), "Jill Stein"))
	assert.False(t, strings.Contains(g.prompts[0], "[EVIDENCE]"))
}

func TestResolve_EmptyNameSkipsLookup(t *testing.T) {
	g := newGated("Democrat")
	r := NewResolver(Options{LLM: g})
	assert.Equal(t, Unknown, r.Resolve(context.Background(), " , "))
	assert.Equal(t, 0, g.Calls())
}

func TestResolveAll(t *testing.T) {
	defer goleak.VerifyNone(t)

	fake := llm.NewFakeClient()
	fake.Set(llm.PhaseParty, json.RawMessage(`{"party":"Dem"}`))
	r := NewResolver(Options{LLM: fake, Workers: 2})

	got := r.ResolveAll(context.Background(), []string{"A", "B", "C", "a."})
	assert.Equal(t, map[string]Party{"A": Democrat, "B": Democrat, "C": Democrat, "a.": Democrat}, got)
	assert.Equal(t, 3, r.Len())
}
