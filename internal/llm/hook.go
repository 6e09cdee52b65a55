package llm

import "context"

type ctxKeyPhase struct{}

// Phases used by the pipeline stages. They select canned payloads in
// FakeClient and label log lines.
const (
	PhaseInterpret = "interpret"
	PhaseReconcile = "reconcile"
	PhaseParty     = "party"
)

// WithPhase tags ctx with the pipeline phase issuing the call.
func WithPhase(ctx context.Context, phase string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKeyPhase{}, phase)
}

// PhaseFrom returns the phase string stored in the context.
func PhaseFrom(ctx context.Context) string {
	if v := ctx.Value(ctxKeyPhase{}); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return "unknown"
}
