package llmtool

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// PromptField describes one key of the expected reply.
type PromptField struct {
	Name        string
	Type        string
	Required    bool
	Description string
	// Enum, when set, lists the only values the field may take.
	Enum []string
}

// PromptExample is an input/output pair shown to the model.
type PromptExample struct {
	InputJSON  string
	OutputJSON string
}

// StructuredPromptSpec defines the sections for a structured prompt.
type StructuredPromptSpec struct {
	Purpose      string
	Background   string
	OutputFields []PromptField
	Constraints  []string
	Rules        []string
	Assumptions  []string
	OutputFormat string
	Language     string
	Examples     []PromptExample
}

var (
	errNoPurpose = errors.New("llmtool: purpose is empty")
	errNoFields  = errors.New("llmtool: output fields are empty")
)

// Render builds the prompt text for spec with input embedded as JSON.
// evidence, when non-empty, is rendered in its own section.
func Render(spec StructuredPromptSpec, input any, evidence ...string) (string, error) {
	if strings.TrimSpace(spec.Purpose) == "" {
		return "", errNoPurpose
	}
	if len(spec.OutputFields) == 0 {
		return "", errNoFields
	}
	in, err := indentJSON(input)
	if err != nil {
		return "", fmt.Errorf("llmtool: encode input: %w", err)
	}

	var p prompt
	p.section("PURPOSE", spec.Purpose)
	p.section("BACKGROUND", spec.Background)
	p.section("INPUT", in)
	p.section("EVIDENCE", bullets(evidence))
	p.section("OUTPUT", fieldLines(spec.OutputFields))
	p.section("CONSTRAINTS", bullets(spec.Constraints))
	p.section("RULES", bullets(spec.Rules))
	p.section("ASSUMPTIONS", bullets(spec.Assumptions))
	p.section("OUTPUT_FORMAT", spec.OutputFormat)
	p.section("LANGUAGE", spec.Language)
	p.section("EXAMPLES", exampleBlocks(spec.Examples))
	return p.String(), nil
}

// prompt accumulates "[TITLE]\nbody\n\n" sections, skipping blank bodies.
type prompt struct {
	buf bytes.Buffer
}

func (p *prompt) section(title, body string) {
	body = strings.TrimRight(body, "\n")
	if strings.TrimSpace(body) == "" {
		return
	}
	fmt.Fprintf(&p.buf, "[%s]\n%s\n\n", title, body)
}

func (p *prompt) String() string {
	return strings.TrimSpace(p.buf.String()) + "\n"
}

func indentJSON(v any) (string, error) {
	if v == nil {
		return "null", nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func fieldLines(fields []PromptField) string {
	var lines []string
	for _, f := range fields {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			continue
		}
		req := "optional"
		if f.Required {
			req = "required"
		}
		line := fmt.Sprintf("- %s (%s, %s)", name, f.Type, req)
		if f.Description != "" {
			line += ": " + f.Description
		}
		if len(f.Enum) > 0 {
			line += " One of: " + strings.Join(f.Enum, ", ") + "."
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func bullets(items []string) string {
	var lines []string
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			lines = append(lines, "- "+item)
		}
	}
	return strings.Join(lines, "\n")
}

func exampleBlocks(examples []PromptExample) string {
	blocks := make([]string, 0, len(examples))
	for i, ex := range examples {
		var b strings.Builder
		fmt.Fprintf(&b, "Example %d:", i+1)
		if in := strings.TrimSpace(ex.InputJSON); in != "" {
			b.WriteString("\nINPUT:\n" + in)
		}
		if out := strings.TrimSpace(ex.OutputJSON); out != "" {
			b.WriteString("\nOUTPUT:\n" + out)
		}
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n")
}
