package leaderboard

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

type retryingStore struct {
	Store
	attempts uint64
	base     time.Duration
	log      *zap.Logger
}

// WithRetry retries failed saves with exponential backoff. Reads are not retried.
func WithRetry(s Store, attempts uint64, base time.Duration, log *zap.Logger) Store {
	return &retryingStore{Store: s, attempts: attempts, base: base, log: log}
}

func (r *retryingStore) Save(ctx context.Context, e Entry) (int64, error) {
	var id int64
	backoff := retry.WithMaxRetries(r.attempts, retry.NewExponential(r.base))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		id, err = r.Store.Save(ctx, e)
		if err != nil {
			r.log.Warn("score save failed, retrying", zap.String("game", e.Game), zap.Error(err))
			return retry.RetryableError(err)
		}
		return nil
	})
	return id, err
}
