package llm

import (
	"context"
	"encoding/json"
	"sync"
)

// FakeClient returns deterministic, minimal JSON payloads per phase for
// offline runs and tests. Payloads registered with Set take precedence.
type FakeClient struct {
	mu        sync.Mutex
	responses map[string]json.RawMessage
	calls     map[string]int
}

func NewFakeClient() *FakeClient {
	return &FakeClient{
		responses: map[string]json.RawMessage{},
		calls:     map[string]int{},
	}
}

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

// Set registers the payload returned for a phase.
func (f *FakeClient) Set(phase string, raw json.RawMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[phase] = raw
}

// Calls reports how many requests a phase has received.
func (f *FakeClient) Calls(phase string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[phase]
}

func (f *FakeClient) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	phase := PhaseFrom(ctx)
	f.mu.Lock()
	f.calls[phase]++
	raw, ok := f.responses[phase]
	f.mu.Unlock()
	if ok {
		return raw, nil
	}
	switch phase {
	case PhaseInterpret:
		// An empty object sends the interpreter down its keyword fallback.
		return json.RawMessage(`{}`), nil
	case PhaseReconcile:
		return json.RawMessage(`{"groups":[]}`), nil
	case PhaseParty:
		return json.RawMessage(`{"party":"Unknown"}`), nil
	default:
		return json.RawMessage(`{}`), nil
	}
}
