package completion

import (
	"context"
	"errors"
)

// Sentinel errors a provider maps transport failures onto. Callers recover
// from both by falling back to extractive synthesis; neither ever surfaces
// to the API caller as a hard failure.
var (
	ErrUnavailable = errors.New("completion provider unavailable")
	ErrTimeout     = errors.New("completion provider timeout")
)

// Options bound one completion call.
type Options struct {
	MaxTokens   int
	Temperature float64
}

// Fragment is one streamed piece of completion text. A fragment with a
// non-nil Err terminates the stream.
type Fragment struct {
	Text string
	Err  error
}

// Provider is the external text-completion collaborator. Complete blocks
// until the full response is available; CompleteStream emits fragments as
// they arrive and closes the channel when the response is finished,
// errored, or the context is cancelled. Cancelling the context releases the
// underlying connection promptly.
type Provider interface {
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
	CompleteStream(ctx context.Context, prompt string, opts Options) (<-chan Fragment, error)
}
