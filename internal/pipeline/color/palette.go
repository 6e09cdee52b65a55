package color

import (
	colorful "github.com/lucasb-eyer/go-colorful"

	"pollscope/internal/pipeline/party"
)

const (
	Positive = "#288544"
	Negative = "#e08728"
	Fallback = "#000000"
)

// palettes are the reserved shade ranges per party; the first entry is the
// party's base color.
var palettes = map[party.Party][]string{
	party.Democrat:    {"#2563eb", "#3b82f6", "#1d4ed8", "#60a5fa", "#1e40af"},
	party.Republican:  {"#e02f28", "#f87171", "#b91c1c", "#fb7185", "#991b1b"},
	party.Independent: {"#eab308", "#facc15", "#ca8a04", "#fde047", "#a16207"},
	party.Libertarian: {"#c4b937", "#d6cc5a", "#a39a2b", "#e3dc8a", "#837c22"},
	party.Green:       {"#288544", "#34a853", "#1e6b35", "#5cc27a", "#15502a"},
	party.Other:       {"#7c3aed", "#8b5cf6", "#6d28d9", "#a78bfa", "#5b21b6"},
}

// Palette returns the fixed shades reserved for p, nil for Unknown.
func Palette(p party.Party) []string {
	return append([]string(nil), palettes[p]...)
}

// Base is the primary color of p, or Fallback.
func Base(p party.Party) string {
	if pal := palettes[p]; len(pal) > 0 {
		return pal[0]
	}
	return Fallback
}

// Lightness and saturation bounds for generated shades.
const (
	minLightness  = 0.18
	maxLightness  = 0.82
	lightnessStep = 0.04
)

// shades hands out distinct colors from one party's range: the fixed palette
// first, then HSL variants of the base hue.
type shades struct {
	party party.Party
	next  int
	gen   int
}

func (s *shades) take(used map[string]bool) string {
	pal := palettes[s.party]
	for s.next < len(pal) {
		c := pal[s.next]
		s.next++
		if !used[c] {
			return c
		}
	}
	base, err := colorful.Hex(pal[0])
	if err != nil {
		return pal[0]
	}
	h, sat, l := base.Hsl()
	// Walk lightness outward from the base, alternating sides, then tighten
	// saturation and walk again.
	for ; s.gen < 400; s.gen++ {
		ring := s.gen / 2
		sign := 1.0
		if s.gen%2 == 1 {
			sign = -1
		}
		band := ring / 16
		step := float64(ring%16+1) * lightnessStep / float64(band+1)
		lt := l + sign*step
		if lt < minLightness || lt > maxLightness {
			continue
		}
		st := sat * (1 - 0.15*float64(band))
		if st < 0.2 {
			st = 0.2
		}
		c := colorful.Hsl(h, st, lt).Clamped().Hex()
		if !used[c] {
			s.gen++
			return c
		}
	}
	// Range exhausted; reuse the base color.
	return pal[0]
}
