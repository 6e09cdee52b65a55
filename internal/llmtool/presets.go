package llmtool

import "slices"

// PromptPreset is a reusable block of constraints, rules and assumptions
// shared by several prompts.
type PromptPreset struct {
	Constraints []string
	Rules       []string
	Assumptions []string
}

// ApplyPresets puts preset lines ahead of the prompt's own. A line that
// appears in more than one place is kept once, at its first position.
func ApplyPresets(spec StructuredPromptSpec, presets ...PromptPreset) StructuredPromptSpec {
	if len(presets) == 0 {
		return spec
	}
	var c, r, a []string
	for _, p := range presets {
		c = append(c, p.Constraints...)
		r = append(r, p.Rules...)
		a = append(a, p.Assumptions...)
	}
	spec.Constraints = dedup(append(c, spec.Constraints...))
	spec.Rules = dedup(append(r, spec.Rules...))
	spec.Assumptions = dedup(append(a, spec.Assumptions...))
	return spec
}

func dedup(lines []string) []string {
	out := lines[:0:0]
	for _, l := range lines {
		if !slices.Contains(out, l) {
			out = append(out, l)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// PresetStrictJSON asks for a bare JSON object matching the OUTPUT schema.
func PresetStrictJSON() PromptPreset {
	return PromptPreset{
		Constraints: []string{
			"Reply with one JSON object and nothing else.",
			"Use only the keys listed under OUTPUT.",
			"No markdown fences, comments, or trailing commas.",
		},
	}
}

// PresetNoInvent limits names and values to what INPUT supplies.
func PresetNoInvent() PromptPreset {
	return PromptPreset{
		Constraints: []string{
			"Never introduce a choice, candidate, pollster or date that is not in INPUT.",
		},
		Assumptions: []string{"Names in INPUT are copied verbatim from poll data."},
	}
}

// PresetCautious prefers an empty or unknown answer over a guess.
func PresetCautious() PromptPreset {
	return PromptPreset{
		Rules: []string{
			"When the evidence does not settle a field, leave it empty or use its documented unknown value.",
		},
	}
}
