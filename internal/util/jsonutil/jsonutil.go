package jsonutil

import (
	"encoding/json"
	"strings"
)

// UnmarshalFlex tries to unmarshal model output into v with best effort:
// 1) direct unmarshal
// 2) strip markdown code fences and retry
// 3) unwrap a JSON document that was encoded as a JSON string
func UnmarshalFlex(raw []byte, v any) error {
	err := json.Unmarshal(raw, v)
	if err == nil {
		return nil
	}
	stripped := []byte(StripCodeFence(string(raw)))
	if e := json.Unmarshal(stripped, v); e == nil {
		return nil
	}
	var inner string
	if e := json.Unmarshal(stripped, &inner); e == nil {
		if e := json.Unmarshal([]byte(StripCodeFence(inner)), v); e == nil {
			return nil
		}
	}
	return err
}

// StripCodeFence removes a surrounding ```json ... ``` block if present.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.ContainsAny(s[:i], "{[") {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(strings.TrimPrefix(s, "json"), "JSON")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
