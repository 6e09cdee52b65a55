package jsonutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripCodeFence(t *testing.T) {
	cases := map[string]string{
		"{\"a\":1}":                    "{\"a\":1}",
		"```json\n{\"a\":1}\n```":      "{\"a\":1}",
		"```JSON\n{\"a\":1}```":        "{\"a\":1}",
		"```\n[1,2]\n```":              "[1,2]",
		"  ```json {\"a\":1} ```  ":    "{\"a\":1}",
		"no fence at all":              "no fence at all",
	}
	for in, want := range cases {
		assert.Equal(t, want, StripCodeFence(in), "input %q", in)
	}
}

func TestUnmarshalFlex(t *testing.T) {
	type out struct {
		Party string `json:"party"`
	}

	var direct out
	require.NoError(t, UnmarshalFlex([]byte(`{"party":"Dem"}`), &direct))
	assert.Equal(t, "Dem", direct.Party)

	var fenced out
	require.NoError(t, UnmarshalFlex([]byte("```json\n{\"party\":\"Rep\"}\n```"), &fenced))
	assert.Equal(t, "Rep", fenced.Party)

	var quoted out
	require.NoError(t, UnmarshalFlex([]byte(`"{\"party\":\"Green\"}"`), &quoted))
	assert.Equal(t, "Green", quoted.Party)

	var bad out
	assert.Error(t, UnmarshalFlex([]byte("not json"), &bad))
}
