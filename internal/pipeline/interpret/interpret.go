// Package interpret turns a free-text poll query into a structured filter.
// It never fails: when the model cannot help, the query words become
// keyword hints.
package interpret

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"pollscope/internal/llm"
	"pollscope/internal/llmtool"
	"pollscope/internal/types/poll"
	"pollscope/internal/votehub"
)

// QueryParseError records why a query fell back to keyword mode.
type QueryParseError struct {
	Query string
	Err   error
}

func (e *QueryParseError) Error() string {
	return fmt.Sprintf("interpret %q: %v", e.Query, e.Err)
}

func (e *QueryParseError) Unwrap() error { return e.Err }

var interpretPromptSpec = llmtool.ApplyPresets(llmtool.StructuredPromptSpec{
	Purpose: "Translate a natural-language question about opinion polls into request parameters for a polls API.",
	Background: "INPUT.catalog, when present, lists the subjects, poll types and pollsters the API knows. " +
		"INPUT.today is the current date. Relative periods are resolved by the caller, so report them instead of computing dates.",
	OutputFields: []llmtool.PromptField{
		{Name: "subject", Type: "string", Description: "Subject from the catalog (a person, race or year)."},
		{Name: "poll_type", Type: "string", Description: "Poll type from the catalog, e.g. approval, favorability, generic-ballot."},
		{Name: "pollster", Type: "string", Description: "Pollster name; partial matches against the catalog are fine."},
		{Name: "from_date", Type: "string", Description: "Explicit start date YYYY-MM-DD."},
		{Name: "to_date", Type: "string", Description: "Explicit end date YYYY-MM-DD."},
		{Name: "relative_period", Type: "object", Description: "{n, unit} for phrases like 'last 3 weeks'; unit is day, week, month or year."},
		{Name: "month", Type: "string", Description: "Month name for phrases like 'in March'."},
		{Name: "min_sample_size", Type: "int", Description: "Minimum sample size."},
		{Name: "population", Type: "string", Description: "rv (registered voters), lv (likely voters) or a (all adults)."},
		{Name: "candidates", Type: "[]string", Description: "Candidate names mentioned in the question."},
	},
	Constraints: []string{
		"Omit fields the question does not mention.",
		"subject and poll_type must come from the catalog when one is given.",
		"A question may name only a poll_type; then leave subject empty.",
	},
	Rules: []string{
		"'last month' is relative_period {\"n\":1,\"unit\":\"month\"}.",
		"Use from_date/to_date only for explicit calendar dates.",
	},
	OutputFormat: "JSON only.",
	Language:     "English",
	Examples: []llmtool.PromptExample{
		{
			InputJSON:  `{"query":"Biden approval ratings last month","today":"2024-06-15"}`,
			OutputJSON: `{"subject":"Biden","poll_type":"approval","relative_period":{"n":1,"unit":"month"}}`,
		},
	},
}, llmtool.PresetStrictJSON(), llmtool.PresetNoInvent())

// CatalogSource supplies the provider catalog used to ground the prompt.
type CatalogSource interface {
	Catalog(ctx context.Context) (votehub.Catalog, error)
}

type Options struct {
	LLM     llm.LLMClient
	Catalog CatalogSource
	Logger  *zap.Logger
	// Timeout bounds the model call.
	Timeout time.Duration
	// CatalogTimeout bounds the catalog lookup that precedes the model call.
	// Zero means a quarter of Timeout.
	CatalogTimeout time.Duration
	Now            func() time.Time
}

type Interpreter struct {
	llm            llm.LLMClient
	catalog        CatalogSource
	log            *zap.Logger
	timeout        time.Duration
	catalogTimeout time.Duration
	now            func() time.Time
}

func New(opts Options) *Interpreter {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.CatalogTimeout <= 0 {
		opts.CatalogTimeout = opts.Timeout / 4
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Interpreter{
		llm:            opts.LLM,
		catalog:        opts.Catalog,
		log:            opts.Logger,
		timeout:        opts.Timeout,
		catalogTimeout: opts.CatalogTimeout,
		now:            opts.Now,
	}
}

type period struct {
	N    int    `json:"n"`
	Unit string `json:"unit"`
}

// modelFilter is the model's reply before validation.
type modelFilter struct {
	Subject        string   `json:"subject"`
	PollType       string   `json:"poll_type"`
	Pollster       string   `json:"pollster"`
	FromDate       string   `json:"from_date"`
	ToDate         string   `json:"to_date"`
	RelativePeriod *period  `json:"relative_period"`
	Month          string   `json:"month"`
	MinSampleSize  *int     `json:"min_sample_size"`
	Population     string   `json:"population"`
	Candidates     []string `json:"candidates"`
}

// Interpret returns the structured filter for query. A blank query yields
// an empty filter without calling the model.
func (i *Interpreter) Interpret(ctx context.Context, query string) poll.Filter {
	query = strings.TrimSpace(query)
	if query == "" {
		return poll.Filter{}
	}
	f, err := i.interpret(ctx, query)
	if err != nil {
		perr := &QueryParseError{Query: query, Err: err}
		i.log.Warn("query interpretation fell back to keywords", zap.Error(perr))
		return Fallback(query)
	}
	i.log.Info("query interpreted", zap.String("query", query), zap.Any("filter", f))
	return f
}

// Fallback keeps the query words as keyword hints with no subject and no
// date bounds.
func Fallback(query string) poll.Filter {
	words := strings.FieldsFunc(query, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '\''
	})
	return poll.Filter{Keywords: words, Fallback: true}
}

func (i *Interpreter) interpret(ctx context.Context, query string) (poll.Filter, error) {
	if i.llm == nil {
		return poll.Filter{}, fmt.Errorf("no model configured")
	}
	now := i.now()
	input := map[string]any{
		"query": query,
		"today": dateOnly(now).Format(poll.DateLayout),
	}
	cat, ok := i.lookupCatalog(ctx)
	if ok {
		input["catalog"] = cat
	}

	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	prompt, err := llmtool.Render(interpretPromptSpec, input)
	if err != nil {
		return poll.Filter{}, err
	}
	var out modelFilter
	if err := llmtool.AskJSON(ctx, i.llm, llm.PhaseInterpret, prompt, &out); err != nil {
		return poll.Filter{}, err
	}
	f := i.validate(now, out, cat)
	if f.IsEmpty() {
		return poll.Filter{}, fmt.Errorf("model returned no usable parameters")
	}
	return f, nil
}

// lookupCatalog fetches the catalog under its own deadline so a slow
// provider cannot eat into the model's budget. Failure means no catalog.
func (i *Interpreter) lookupCatalog(ctx context.Context) (votehub.Catalog, bool) {
	if i.catalog == nil {
		return votehub.Catalog{}, false
	}
	ctx, cancel := context.WithTimeout(ctx, i.catalogTimeout)
	defer cancel()
	cat, err := i.catalog.Catalog(ctx)
	if err != nil {
		i.log.Debug("catalog unavailable", zap.Error(err))
		return votehub.Catalog{}, false
	}
	return cat, true
}

// validate turns the model reply into a filter, dropping fields that do not
// hold up.
func (i *Interpreter) validate(now time.Time, m modelFilter, cat votehub.Catalog) poll.Filter {
	f := poll.Filter{
		Subject:    strings.TrimSpace(m.Subject),
		PollType:   strings.TrimSpace(m.PollType),
		Pollster:   strings.TrimSpace(m.Pollster),
		Population: strings.ToLower(strings.TrimSpace(m.Population)),
	}
	if f.PollType != "" {
		if pt, ok := cat.PollType(f.PollType); ok {
			f.PollType = pt
		} else {
			i.log.Debug("dropping unknown poll type", zap.String("poll_type", f.PollType))
			f.PollType = ""
		}
	}
	if s, ok := cat.Subject(f.Subject); ok && f.Subject != "" {
		f.Subject = s
	}
	if m.MinSampleSize != nil && *m.MinSampleSize > 0 {
		f.MinSampleSize = *m.MinSampleSize
	}
	for _, c := range m.Candidates {
		if c = strings.TrimSpace(c); c != "" {
			f.Candidates = append(f.Candidates, c)
		}
	}

	if t, ok := parseDay(m.FromDate); ok {
		f.From = t
	}
	if t, ok := parseDay(m.ToDate); ok {
		f.To = t
	}
	if f.From.IsZero() && f.To.IsZero() {
		switch {
		case m.RelativePeriod != nil && m.RelativePeriod.N > 0:
			if from, err := UnitsAgo(now, m.RelativePeriod.N, m.RelativePeriod.Unit); err == nil {
				f.From, f.To = from, dateOnly(now)
			}
		case strings.TrimSpace(m.Month) != "":
			if start, end, err := MonthRange(now, m.Month); err == nil {
				f.From, f.To = start, end
			}
		}
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		i.log.Debug("dropping inverted date range",
			zap.Time("from", f.From),
			zap.Time("to", f.To),
		)
		f.From, f.To = time.Time{}, time.Time{}
	}
	return f
}

func parseDay(s string) (time.Time, bool) {
	t, err := time.Parse(poll.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
