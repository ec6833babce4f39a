package main

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/gjovs/serverkit/internal/cache"
	"github.com/gjovs/serverkit/internal/consumer"
	"github.com/gjovs/serverkit/pkg/caseconv"
)

// consumers is the static consumer mapping. Only enabled descriptors
// are registered; toggling one off here is the supported way to retire
// a queue without touching its handler.
func consumers(store cache.Store, logger *zap.Logger) []consumer.Descriptor {
	return []consumer.Descriptor{
		{
			Queue:   "serverkit/notifications",
			Enabled: true,
			Handler: cacheLastMessage(store, "notifications:last", logger),
		},
		{
			Queue:   "serverkit/audit",
			Enabled: false,
			Handler: cacheLastMessage(store, "audit:last", logger),
		},
	}
}

// cacheLastMessage stores the most recent payload of a queue in the
// cache, keys camelCased like every other internal representation.
func cacheLastMessage(store cache.Store, key string, logger *zap.Logger) consumer.MessageHandler {
	return func(ctx context.Context, payload []byte) error {
		var value any
		if err := json.Unmarshal(payload, &value); err != nil {
			// Non-JSON payloads are cached as raw strings
			value = string(payload)
		} else {
			value = caseconv.KeysToCamel(value)
		}

		if err := store.Save(ctx, key, value, time.Hour); err != nil {
			logger.Error("Failed to cache queue message",
				zap.String("key", key), zap.Error(err))
			return err
		}
		return nil
	}
}
