package synthesizer

import (
	"context"
	"strings"

	"github.com/Dhruv501/contract-intelligence-api/internal/models"
)

// streamAnswer turns an already-synthesized answer into the uniform
// streaming contract: word-sized token events followed by the terminal
// citations event. Used by the extractive strategy and by the
// completion-backed strategy when it fails over.
func streamAnswer(ctx context.Context, out chan<- models.StreamEvent, answer *models.Answer) {
	for _, word := range strings.Fields(answer.Text) {
		if !send(ctx, out, models.StreamEvent{Token: word + " "}) {
			return
		}
	}
	if ctx.Err() != nil {
		return
	}
	send(ctx, out, models.StreamEvent{Citations: answer.Citations, Done: true})
}

// send delivers one event unless the consumer has gone away. A false return
// means the stream is cancelled and no further events (including the
// terminal one) may be emitted.
func send(ctx context.Context, out chan<- models.StreamEvent, event models.StreamEvent) bool {
	select {
	case out <- event:
		return true
	case <-ctx.Done():
		return false
	}
}
