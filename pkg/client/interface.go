package client

import (
	"context"

	"github.com/menta2k/image-describer/pkg/chat"
)

// ChatCompleter performs a single chat completion round trip against a vision
// backend. Implementations carry their own credentials and endpoint wiring.
type ChatCompleter interface {
	Complete(ctx context.Context, req *chat.CompletionRequest) (*chat.CompletionResponse, error)
}