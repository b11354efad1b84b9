package onboarding

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"carbon-scribe/onboarding-tracker/pkg/storage"
)

// Open starts a tracker session for key. It restores the stored snapshot when
// one exists and matches defs, and otherwise falls back to a fresh tracker.
// Only invalid definitions make it fail.
func Open(ctx context.Context, store SnapshotStore, key string, defs []StepDefinition, logger *zap.Logger, opts ...Option) (*Tracker, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := ValidateDefinitions(defs); err != nil {
		return nil, err
	}
	if store == nil {
		return Create(defs, append([]Option{WithLogger(logger)}, opts...)...)
	}
	opts = append([]Option{WithStore(store, key), WithLogger(logger)}, opts...)

	data, err := store.Load(ctx, key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		logger.Info("No onboarding snapshot found, starting fresh", zap.String("session_key", key))
		return Create(defs, opts...)
	case err != nil:
		logger.Warn("Failed to load onboarding snapshot, starting fresh",
			zap.String("session_key", key),
			zap.Error(err))
		return Create(defs, opts...)
	}

	snapshot, err := DecodeSnapshot(data)
	if err == nil {
		var tracker *Tracker
		tracker, err = Restore(defs, snapshot, opts...)
		if err == nil {
			logger.Info("Restored onboarding snapshot",
				zap.String("session_key", key),
				zap.Int("current_index", tracker.CurrentIndex()),
				zap.Int("percent_complete", tracker.PercentComplete()))
			return tracker, nil
		}
	}

	logger.Warn("Discarding onboarding snapshot, starting fresh",
		zap.String("session_key", key),
		zap.Error(err))
	return Create(defs, opts...)
}
