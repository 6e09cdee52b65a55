package poll

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Answer is one (choice, percentage) pair inside a poll. Answers in a poll
// need not sum to 100.
type Answer struct {
	Choice string  `json:"choice"`
	Pct    float64 `json:"pct"`
}

// Record is a poll as returned by the polls provider.
type Record struct {
	ID         string   `json:"id"`
	Subject    string   `json:"subject"`
	PollType   string   `json:"poll_type"`
	Pollster   string   `json:"pollster"`
	StartDate  string   `json:"start_date"`
	EndDate    string   `json:"end_date"`
	SampleSize *int     `json:"sample_size"`
	Population string   `json:"population"`
	Answers    []Answer `json:"answers"`
	CreatedAt  string   `json:"created_at"`
	URL        string   `json:"url,omitempty"`
}

// UnmarshalJSON accepts a numeric id and a sample size written as a float
// or a string, so one odd record does not fail a whole response. A sample
// size that is not a whole non-negative number decodes as unknown.
func (r *Record) UnmarshalJSON(b []byte) error {
	type plain Record
	var aux struct {
		plain
		ID         json.RawMessage `json:"id"`
		SampleSize json.RawMessage `json:"sample_size"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*r = Record(aux.plain)
	id, err := flexString(aux.ID)
	if err != nil {
		return fmt.Errorf("poll id: %w", err)
	}
	r.ID = id
	r.SampleSize = flexCount(aux.SampleSize)
	return nil
}

func flexString(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

func flexCount(raw json.RawMessage) *int {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return nil
		}
		if f, err = strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
			return nil
		}
	}
	if f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return nil
	}
	n := int(f)
	return &n
}

// Clone returns a copy whose Answers slice can be modified independently.
func (r Record) Clone() Record {
	out := r
	out.Answers = append([]Answer(nil), r.Answers...)
	if r.SampleSize != nil {
		n := *r.SampleSize
		out.SampleSize = &n
	}
	return out
}

// DivisionKey partitions records by (subject, poll type), taken verbatim.
type DivisionKey struct {
	Subject  string
	PollType string
}

func (k DivisionKey) String() string { return k.Subject + "_" + k.PollType }

// KeyOf returns the division a record belongs to.
func KeyOf(r Record) DivisionKey {
	return DivisionKey{Subject: r.Subject, PollType: r.PollType}
}

// Filter is the structured form of a natural-language query. Zero From/To
// mean the range is unbounded on that side.
type Filter struct {
	Subject       string    `json:"subject,omitempty"`
	PollType      string    `json:"poll_type,omitempty"`
	Pollster      string    `json:"pollster,omitempty"`
	From          time.Time `json:"from_date,omitzero"`
	To            time.Time `json:"to_date,omitzero"`
	Candidates    []string  `json:"candidates,omitempty"`
	MinSampleSize int       `json:"min_sample_size,omitempty"`
	Population    string    `json:"population,omitempty"`
	Keywords      []string  `json:"keywords,omitempty"`
	// Fallback is set when the query could not be structured and the raw
	// words were kept as hints.
	Fallback bool `json:"fallback,omitempty"`
}

// IsEmpty reports whether the filter constrains nothing.
func (f Filter) IsEmpty() bool {
	return f.Subject == "" && f.PollType == "" && f.Pollster == "" &&
		f.From.IsZero() && f.To.IsZero() && len(f.Candidates) == 0 &&
		f.MinSampleSize == 0 && f.Population == "" && len(f.Keywords) == 0
}

// DateLayout is the provider's date format.
const DateLayout = "2006-01-02"

var endDateLayouts = []string{DateLayout, time.RFC3339, time.RFC3339Nano, "2006-01-02T15:04:05"}

// ParseDate parses a provider date. It accepts plain dates and timestamps.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range endDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ChoiceSummary is the per-division statistic for one display name.
type ChoiceSummary struct {
	Name    string  `json:"name"`
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// ProcessedDivision is one unit of the response.
type ProcessedDivision struct {
	Key      DivisionKey       `json:"-"`
	Polls    []Record          `json:"polls"`
	ColorMap map[string]string `json:"color_map"`
	Choices  []ChoiceSummary   `json:"choices,omitempty"`
}
