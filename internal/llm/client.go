package llm

import (
	"context"
)

// Client is the text-generation contract shared by the summarizer and the
// translation fallback.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
