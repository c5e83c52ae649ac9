package dispatch

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/relieflink/relieflink/pkg/logger"
	"github.com/relieflink/relieflink/pkg/metrics"
)

// BatchSize is the transport's per-call message limit.
const BatchSize = 10

// Batcher splits outbound messages into fixed windows and drives them
// through the transport, attributing successes and failures per message.
type Batcher struct {
	transport Transport
	log       *zap.Logger
}

// NewBatcher constructs a Batcher.
func NewBatcher(transport Transport) (*Batcher, error) {
	if transport == nil {
		return nil, errors.New("dispatch: transport is required")
	}
	return &Batcher{
		transport: transport,
		log:       logger.WithModule("dispatch"),
	}, nil
}

// Send delivers the messages in windows of BatchSize. Partial per-message
// failures are logged and do not stop later windows. A hard transport
// error aborts the remaining windows and is returned together with the
// results accumulated so far; the caller may retry the whole operation.
func (b *Batcher) Send(ctx context.Context, messages []Message) (BatchResult, error) {
	var result BatchResult
	if len(messages) == 0 {
		return result, nil
	}

	b.log.Info("dispatching messages", zap.Int("count", len(messages)))

	for start := 0; start < len(messages); start += BatchSize {
		end := start + BatchSize
		if end > len(messages) {
			end = len(messages)
		}
		window := messages[start:end]

		windowResult, err := b.transport.SendBatch(ctx, window)
		if err != nil {
			metrics.MessagesDispatched.WithLabelValues("failed").Add(float64(len(window)))
			return result, fmt.Errorf("dispatch: send window starting at %d: %w", start, err)
		}

		for _, id := range windowResult.Succeeded {
			b.log.Debug("message sent", zap.String("message_id", id))
		}
		for _, failure := range windowResult.Failed {
			b.log.Warn("message failed",
				zap.String("message_id", failure.ID),
				zap.String("reason", failure.Reason),
			)
		}

		metrics.MessagesDispatched.WithLabelValues("sent").Add(float64(len(windowResult.Succeeded)))
		metrics.MessagesDispatched.WithLabelValues("failed").Add(float64(len(windowResult.Failed)))

		result.Merge(windowResult)
	}

	b.log.Info("dispatch complete",
		zap.Int("sent", len(result.Succeeded)),
		zap.Int("failed", len(result.Failed)),
	)

	return result, nil
}
