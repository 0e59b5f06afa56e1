package worker

// retry_cron.go
// Failed jobs wait in a Redis sorted set (score = unix time of the next
// attempt) until this goroutine moves them back to their queue. Ticks are
// skipped while the mailer's circuit breaker is open.

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"requisiciones/internal/infra"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	RetryPrefix       = "retry:"
	retryTickInterval = 10 * time.Second
	retryBatchSize    = 50
)

// ScheduleRetry parks job until now+delay.
func ScheduleRetry(ctx context.Context, rdb *redis.Client, queue string, job Job, delay time.Duration) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	at := time.Now().Add(delay).Unix()
	return rdb.ZAdd(ctx, RetryPrefix+queue, redis.Z{Score: float64(at), Member: data}).Err()
}

// RetryCronConfig holds all dependencies for the retry goroutine.
type RetryCronConfig struct {
	RDB    *redis.Client
	CB     *infra.CircuitBreaker
	Queues []string
}

// StartRetryCron launches a background goroutine that requeues due retries.
// It respects the context for graceful shutdown.
func StartRetryCron(ctx context.Context, cfg RetryCronConfig) {
	go func() {
		ticker := time.NewTicker(retryTickInterval)
		defer ticker.Stop()

		log.Info().Msg("retry_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("retry_cron: shutting down")
				return
			case now := <-ticker.C:
				if cfg.CB != nil && cfg.CB.State() == infra.CBOpen {
					log.Debug().Msg("retry_cron: circuit breaker is open, skipping tick")
					continue
				}
				for _, q := range cfg.Queues {
					if n, err := RequeueDue(ctx, cfg.RDB, q, now); err != nil {
						log.Error().Err(err).Str("queue", q).Msg("retry_cron: requeue failed")
					} else if n > 0 {
						log.Info().Str("queue", q).Int("jobs", n).Msg("retry_cron: jobs requeued")
					}
				}
			}
		}
	}()
}

// RequeueDue moves retries whose time has come back to queue. ZRem acts as
// the claim, so concurrent instances never requeue the same entry twice.
func RequeueDue(ctx context.Context, rdb *redis.Client, queue string, now time.Time) (int, error) {
	key := RetryPrefix + queue
	due, err := rdb.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.Unix(), 10),
		Count: retryBatchSize,
	}).Result()
	if err != nil {
		return 0, err
	}
	moved := 0
	for _, member := range due {
		removed, err := rdb.ZRem(ctx, key, member).Result()
		if err != nil {
			return moved, err
		}
		if removed == 0 {
			continue
		}
		if err := rdb.LPush(ctx, queue, member).Err(); err != nil {
			return moved, err
		}
		moved++
	}
	return moved, nil
}
