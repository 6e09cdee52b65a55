// Package reconcile merges choice clusters that name the same option in
// different ways, using one batched model call per division.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"pollscope/internal/llm"
	"pollscope/internal/llmtool"
	"pollscope/internal/pipeline/choice"
	"pollscope/internal/types/poll"
)

// ErrDegraded marks a division whose names could not be reconciled; the
// unmerged clusters are used instead.
var ErrDegraded = errors.New("reconcile: degraded")

var reconcilePromptSpec = llmtool.ApplyPresets(llmtool.StructuredPromptSpec{
	Purpose:    "Group poll answer labels that refer to the same person or option.",
	Background: "Labels come from several pollsters reporting on one subject and poll type. Punctuation and spacing differences are already merged; what remains are alternate forms such as full names, surnames, nicknames or misspellings.",
	OutputFields: []llmtool.PromptField{
		{Name: "groups", Type: "[][]string", Required: true, Description: "Each inner list holds labels that mean the same thing. Omit labels that have no duplicate."},
	},
	Constraints: []string{
		"Copy labels exactly as they appear in INPUT.choices.",
		"A label may appear in at most one group.",
	},
	Rules: []string{
		"Only group labels when they clearly denote the same person or option.",
		"Never group different people who share a surname unless the context makes them identical.",
		"Return an empty list when nothing should be merged.",
	},
	Assumptions:  []string{"Undecided, Other and similar labels are distinct options."},
	OutputFormat: "JSON only.",
	Language:     "English",
	Examples: []llmtool.PromptExample{
		{
			InputJSON:  `{"division":"2024_president","choices":["Kamala Harris","Harris","Trump","Donald J Trump","Undecided"]}`,
			OutputJSON: `{"groups":[["Kamala Harris","Harris"],["Trump","Donald J Trump"]]}`,
		},
	},
}, llmtool.PresetStrictJSON(), llmtool.PresetNoInvent(), llmtool.PresetCautious())

type Options struct {
	LLM     llm.LLMClient
	Logger  *zap.Logger
	Timeout time.Duration
}

type Reconciler struct {
	llm     llm.LLMClient
	log     *zap.Logger
	timeout time.Duration
}

func New(opts Options) *Reconciler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	return &Reconciler{llm: opts.LLM, log: opts.Logger, timeout: opts.Timeout}
}

// Reconcile returns set with semantic duplicates folded together. It never
// fails: on any error the input set is returned unchanged.
func (r *Reconciler) Reconcile(ctx context.Context, key poll.DivisionKey, set *choice.Set) *choice.Set {
	if set == nil || set.Len() < 2 || r.llm == nil {
		return set
	}
	if pair, ok := set.StandardPair(); ok {
		r.log.Debug("skipping reconciliation for standard options",
			zap.String("division", key.String()),
			zap.Strings("pair", pair[:]),
		)
		return set
	}

	groups, err := r.groups(ctx, key, set.DisplayNames())
	if err != nil {
		r.log.Warn("name reconciliation degraded",
			zap.String("division", key.String()),
			zap.Error(err),
		)
		return set
	}
	merged := set.Merge(groups)
	if merged != set {
		r.log.Info("names reconciled",
			zap.String("division", key.String()),
			zap.Int("before", set.Len()),
			zap.Int("after", merged.Len()),
		)
	}
	return merged
}

func (r *Reconciler) groups(ctx context.Context, key poll.DivisionKey, names []string) ([][]string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	prompt, err := llmtool.Render(reconcilePromptSpec, map[string]any{
		"division": key.String(),
		"choices":  names,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDegraded, err)
	}
	var out struct {
		Groups [][]string `json:"groups"`
	}
	if err := llmtool.AskJSON(ctx, r.llm, llm.PhaseReconcile, prompt, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDegraded, err)
	}
	return out.Groups, nil
}
