package llmtool

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pollscope/internal/llm"
)

func TestRender_Sections(t *testing.T) {
	spec := StructuredPromptSpec{
		Purpose:      "Group equivalent poll choices.",
		Background:   "Division Trump_approval.",
		OutputFormat: "JSON only.",
		Language:     "English",
		OutputFields: []PromptField{
			{Name: "groups", Type: "[][]string", Required: true, Description: "Equivalence groups."},
			{Name: "notes", Type: "string"},
		},
		Constraints: []string{"No markdown."},
		Rules:       []string{"Be concise."},
		Assumptions: []string{"If unsure, return no groups."},
		Examples: []PromptExample{
			{InputJSON: `{"choices":["a"]}`, OutputJSON: `{"groups":[]}`},
		},
	}

	out, err := Render(spec, map[string]any{"choices": []string{"Harris", "Kamala Harris"}}, "snippet one")
	require.NoError(t, err)

	for _, sec := range []string{
		"[PURPOSE]", "[BACKGROUND]", "[INPUT]", "[EVIDENCE]", "[OUTPUT]", "[CONSTRAINTS]",
		"[RULES]", "[ASSUMPTIONS]", "[OUTPUT_FORMAT]", "[LANGUAGE]", "[EXAMPLES]",
	} {
		assert.Contains(t, out, sec)
	}
	assert.Contains(t, out, `"Kamala Harris"`)
	assert.Contains(t, out, "- groups ([][]string, required): Equivalence groups.")
	assert.Contains(t, out, "- notes (string, optional)")
	assert.Contains(t, out, "Example 1:\nINPUT:\n{\"choices\":[\"a\"]}\nOUTPUT:\n{\"groups\":[]}")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestRender_OmitsEmptySections(t *testing.T) {
	out, err := Render(StructuredPromptSpec{
		Purpose:      "x",
		OutputFields: []PromptField{{Name: "party", Type: "string", Required: true}},
	}, nil)
	require.NoError(t, err)
	assert.NotContains(t, out, "[EVIDENCE]")
	assert.NotContains(t, out, "[RULES]")
	assert.Contains(t, out, "[INPUT]\nnull")
}

func TestRender_EnumField(t *testing.T) {
	out, err := Render(StructuredPromptSpec{
		Purpose:      "x",
		OutputFields: []PromptField{{Name: "party", Type: "string", Required: true, Description: "Party.", Enum: []string{"Democrat", "Unknown"}}},
	}, map[string]string{"name": "A & B"})
	require.NoError(t, err)
	assert.Contains(t, out, "- party (string, required): Party. One of: Democrat, Unknown.")
	assert.Contains(t, out, `"name": "A & B"`)
}

func TestRender_RequiresPurpose(t *testing.T) {
	_, err := Render(StructuredPromptSpec{
		OutputFields: []PromptField{{Name: "summary", Type: "string", Required: true}},
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "purpose")
}

func TestRender_RequiresOutputFields(t *testing.T) {
	_, err := Render(StructuredPromptSpec{Purpose: "x"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output fields")
}

func TestApplyPresets_PrependsPresetLines(t *testing.T) {
	spec := StructuredPromptSpec{
		Purpose:      "x",
		OutputFields: []PromptField{{Name: "summary", Type: "string", Required: true}},
		Constraints:  []string{"own-constraint"},
		Rules:        []string{"own-rule"},
	}
	applied := ApplyPresets(spec, PromptPreset{
		Constraints: []string{"preset-constraint"},
		Rules:       []string{"preset-rule"},
	})
	assert.Equal(t, []string{"preset-constraint", "own-constraint"}, applied.Constraints)
	assert.Equal(t, []string{"preset-rule", "own-rule"}, applied.Rules)
	assert.Nil(t, applied.Assumptions)
}

func TestApplyPresets_DropsRepeatedLines(t *testing.T) {
	spec := StructuredPromptSpec{Purpose: "x", Assumptions: []string{"shared"}}
	applied := ApplyPresets(spec,
		PromptPreset{Assumptions: []string{"shared", "first"}},
		PromptPreset{Assumptions: []string{"first"}, Rules: []string{"r"}},
	)
	assert.Equal(t, []string{"shared", "first"}, applied.Assumptions)
	assert.Equal(t, []string{"r"}, applied.Rules)
	assert.Nil(t, applied.Constraints)
}

func TestAskJSON_DecodesAndTagsPhase(t *testing.T) {
	fake := llm.NewFakeClient()
	fake.Set(llm.PhaseParty, json.RawMessage("```json\n{\"party\":\"Rep\"}\n```"))

	var out struct {
		Party string `json:"party"`
	}
	require.NoError(t, AskJSON(context.Background(), fake, llm.PhaseParty, "p", &out))
	assert.Equal(t, "Rep", out.Party)
	assert.Equal(t, 1, fake.Calls(llm.PhaseParty))
}

func TestAskJSON_InvalidReply(t *testing.T) {
	fake := llm.NewFakeClient()
	fake.Set(llm.PhaseReconcile, json.RawMessage(`not json`))

	var out map[string]any
	err := AskJSON(context.Background(), fake, llm.PhaseReconcile, "p", &out)
	assert.True(t, errors.Is(err, llm.ErrInvalidJSON))
}
