// Package consumer registers message-queue consumers against a
// queue-consuming server. The contract is registration-only: retry,
// acknowledgement and backpressure belong to the collaborator.
package consumer

import (
	"context"

	"go.uber.org/zap"
)

// MessageHandler processes one message delivered on a queue
type MessageHandler func(ctx context.Context, payload []byte) error

// QueueServer is the narrow queue-consuming collaborator contract
type QueueServer interface {
	// Consume registers handler for messages arriving on queue
	Consume(queue string, handler MessageHandler) error
}

// Descriptor declares one consumer
type Descriptor struct {
	Queue   string
	Handler MessageHandler
	Enabled bool
}

// Setup registers every enabled descriptor against the server.
// Disabled descriptors are skipped.
func Setup(server QueueServer, descriptors []Descriptor, logger *zap.Logger) error {
	for _, d := range descriptors {
		if !d.Enabled {
			logger.Debug("Consumer disabled, skipping", zap.String("queue", d.Queue))
			continue
		}
		if err := server.Consume(d.Queue, d.Handler); err != nil {
			return err
		}
		logger.Info("Consumer registered", zap.String("queue", d.Queue))
	}
	return nil
}
