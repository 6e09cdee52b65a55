package llmtool

import (
	"context"
	"fmt"

	"pollscope/internal/llm"
	"pollscope/internal/util/jsonutil"
)

// AskJSON sends prompt under phase and decodes the reply into out.
// Replies that cannot be decoded are reported with llm.ErrInvalidJSON.
func AskJSON(ctx context.Context, cli llm.LLMClient, phase, prompt string, out any) error {
	raw, err := cli.GenerateJSON(llm.WithPhase(ctx, phase), prompt, nil)
	if err != nil {
		return err
	}
	if err := jsonutil.UnmarshalFlex(raw, out); err != nil {
		return fmt.Errorf("%w: %s: %v", llm.ErrInvalidJSON, phase, err)
	}
	return nil
}
