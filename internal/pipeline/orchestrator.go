// Package pipeline wires the query stages together: interpret, fetch,
// group, then per division cluster, reconcile, resolve parties and color.
package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pollscope/internal/pipeline/choice"
	"pollscope/internal/pipeline/color"
	"pollscope/internal/pipeline/division"
	"pollscope/internal/pipeline/party"
	"pollscope/internal/types/poll"
)

type Interpreter interface {
	Interpret(ctx context.Context, query string) poll.Filter
}

type Fetcher interface {
	FetchPolls(ctx context.Context, f poll.Filter) ([]poll.Record, error)
}

type Reconciler interface {
	Reconcile(ctx context.Context, key poll.DivisionKey, set *choice.Set) *choice.Set
}

type PartyResolver interface {
	ResolveAll(ctx context.Context, names []string) map[string]party.Party
}

// DivisionError reports a division that could not be processed. The
// division is left out of the response.
type DivisionError struct {
	Key poll.DivisionKey
	Err error
}

func (e *DivisionError) Error() string {
	return fmt.Sprintf("division %s: %v", e.Key, e.Err)
}

func (e *DivisionError) Unwrap() error { return e.Err }

type Options struct {
	Interpreter Interpreter
	Fetcher     Fetcher
	Reconciler  Reconciler
	Parties     PartyResolver
	Colors      *color.Assigner
	Logger      *zap.Logger
	// Workers bounds how many divisions are processed at once.
	Workers int
	// PartyLookupLimit is how many top choices by average get a party lookup.
	PartyLookupLimit int
}

type Orchestrator struct {
	interp      Interpreter
	fetcher     Fetcher
	reconciler  Reconciler
	parties     PartyResolver
	colors      *color.Assigner
	log         *zap.Logger
	workers     int
	lookupLimit int
}

func New(opts Options) *Orchestrator {
	if opts.Colors == nil {
		opts.Colors = color.NewAssigner()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.PartyLookupLimit <= 0 {
		opts.PartyLookupLimit = 10
	}
	return &Orchestrator{
		interp:      opts.Interpreter,
		fetcher:     opts.Fetcher,
		reconciler:  opts.Reconciler,
		parties:     opts.Parties,
		colors:      opts.Colors,
		log:         opts.Logger,
		workers:     opts.Workers,
		lookupLimit: opts.PartyLookupLimit,
	}
}

// Process answers query with one entry per division, keyed by
// "<subject>_<poll_type>". Only a failed fetch fails the call; a division
// that fails on its own is logged and omitted.
func (o *Orchestrator) Process(ctx context.Context, query string) (map[string]poll.ProcessedDivision, error) {
	start := time.Now()
	filter := o.interp.Interpret(ctx, query)

	recs, err := o.fetcher.FetchPolls(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("fetch polls: %w", err)
	}
	divs := division.Group(recs)

	results := make([]*poll.ProcessedDivision, len(divs))
	var g errgroup.Group
	g.SetLimit(o.workers)
	for i, d := range divs {
		g.Go(func() error {
			pd, err := o.processSafe(ctx, d)
			if err != nil {
				o.log.Error("division processing failed",
					zap.String("division", d.Key.String()),
					zap.Error(err),
				)
				return nil
			}
			results[i] = &pd
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make(map[string]poll.ProcessedDivision, len(divs))
	for _, pd := range results {
		if pd != nil {
			out[o.uniqueKey(out, pd.Key)] = *pd
		}
	}
	o.log.Info("query processed",
		zap.String("query", query),
		zap.Bool("fallback", filter.Fallback),
		zap.Int("polls", len(recs)),
		zap.Int("divisions", len(out)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

// uniqueKey returns the response key for k. Distinct divisions can join to
// the same string, e.g. ("a_b", "c") and ("a", "b_c"); a later one gets a
// "#n" suffix so no division is lost.
func (o *Orchestrator) uniqueKey(out map[string]poll.ProcessedDivision, k poll.DivisionKey) string {
	key := k.String()
	if _, taken := out[key]; !taken {
		return key
	}
	for n := 2; ; n++ {
		alt := fmt.Sprintf("%s#%d", key, n)
		if _, taken := out[alt]; !taken {
			o.log.Warn("division key collision",
				zap.String("subject", k.Subject),
				zap.String("poll_type", k.PollType),
				zap.String("key", alt),
			)
			return alt
		}
	}
}

func (o *Orchestrator) processSafe(ctx context.Context, d division.Division) (pd poll.ProcessedDivision, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			o.log.Debug("division panic", zap.ByteString("stack", debug.Stack()))
			err = &DivisionError{Key: d.Key, Err: fmt.Errorf("panic: %v", rec)}
		}
	}()
	return o.processDivision(ctx, d)
}

func (o *Orchestrator) processDivision(ctx context.Context, d division.Division) (poll.ProcessedDivision, error) {
	set := choice.Cluster(d.Polls)
	if o.reconciler != nil {
		set = o.reconciler.Reconcile(ctx, d.Key, set)
	}
	if set == nil {
		return poll.ProcessedDivision{}, &DivisionError{Key: d.Key, Err: fmt.Errorf("no choice set")}
	}

	names := set.DisplayNames()
	var parties map[string]party.Party
	if o.parties != nil && o.colors.NeedsParties(d.Key.PollType, names) {
		parties = o.parties.ResolveAll(ctx, o.topNames(set))
	}

	return poll.ProcessedDivision{
		Key:      d.Key,
		Polls:    relabel(d.Polls, set),
		ColorMap: o.colors.Assign(d.Key.PollType, names, parties),
		Choices:  set.Summary(),
	}, nil
}

func (o *Orchestrator) topNames(set *choice.Set) []string {
	top := set.ByAverage()
	if len(top) > o.lookupLimit {
		top = top[:o.lookupLimit]
	}
	names := make([]string, len(top))
	for i, c := range top {
		names[i] = c.DisplayName
	}
	return names
}

// relabel copies polls with answers renamed to display names. Answers that
// collapse onto one name inside a poll are averaged in place of the first.
func relabel(polls []poll.Record, set *choice.Set) []poll.Record {
	out := make([]poll.Record, len(polls))
	for i, p := range polls {
		cp := p.Clone()
		idx := map[string]int{}
		counts := map[string]int{}
		answers := make([]poll.Answer, 0, len(cp.Answers))
		for _, a := range cp.Answers {
			name := a.Choice
			if c, ok := set.Lookup(a.Choice); ok {
				name = c.DisplayName
			}
			if j, seen := idx[name]; seen {
				answers[j].Pct += a.Pct
				counts[name]++
				continue
			}
			idx[name] = len(answers)
			counts[name] = 1
			answers = append(answers, poll.Answer{Choice: name, Pct: a.Pct})
		}
		for j := range answers {
			if n := counts[answers[j].Choice]; n > 1 {
				answers[j].Pct /= float64(n)
			}
		}
		cp.Answers = answers
		out[i] = cp
	}
	return out
}
