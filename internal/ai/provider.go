package ai

import "context"

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider generates one assistant reply from an ordered conversation. The
// first message may carry coaching context (habit data) for the model.
type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}
