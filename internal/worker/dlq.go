package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// DeadLetterPrefix namespaces the dead-letter list of each job queue:
// dlq:jobs:stock_alert holds what jobs:stock_alert could not deliver.
const DeadLetterPrefix = "dlq:"

// DeadLetter is a job that exhausted its attempts, kept for an operator.
type DeadLetter struct {
	Queue    string    `json:"queue"`
	Job      Job       `json:"job"`
	Reason   string    `json:"reason"`
	Attempts int       `json:"attempts"`
	FailedAt time.Time `json:"failed_at"`
}

// DeadLetters stores failed jobs in one redis list per source queue, newest
// first.
type DeadLetters struct {
	rdb redis.Cmdable
	now func() time.Time
}

func NewDeadLetters(rdb redis.Cmdable) *DeadLetters {
	return &DeadLetters{rdb: rdb, now: time.Now}
}

func deadLetterKey(queue string) string { return DeadLetterPrefix + queue }

// Push records a failed job. The job is lost when redis refuses the write;
// that is logged, not returned, since the caller has nowhere else to put it.
func (d *DeadLetters) Push(ctx context.Context, queue string, job Job, reason string, attempts int) {
	logger := log.With().Str("queue", queue).Str("job_type", job.Type).Logger()
	if d == nil || d.rdb == nil {
		logger.Error().Str("reason", reason).Msg("dlq: no redis client, dropping job")
		return
	}
	data, err := json.Marshal(DeadLetter{
		Queue:    queue,
		Job:      job,
		Reason:   reason,
		Attempts: attempts,
		FailedAt: d.now().UTC(),
	})
	if err != nil {
		logger.Error().Err(err).Msg("dlq: encode failed")
		return
	}
	if err := d.rdb.LPush(ctx, deadLetterKey(queue), data).Err(); err != nil {
		logger.Error().Err(err).Msg("dlq: push failed, job lost")
		return
	}
	logger.Warn().Str("reason", reason).Int("attempts", attempts).Msg("dlq: job dead-lettered")
}

// Len returns how many jobs of queue are dead-lettered.
func (d *DeadLetters) Len(ctx context.Context, queue string) (int64, error) {
	return d.rdb.LLen(ctx, deadLetterKey(queue)).Result()
}

// List returns up to limit dead letters of queue, newest first. Entries
// that no longer decode are skipped.
func (d *DeadLetters) List(ctx context.Context, queue string, limit int64) ([]DeadLetter, error) {
	if limit < 1 {
		return nil, nil
	}
	raw, err := d.rdb.LRange(ctx, deadLetterKey(queue), 0, limit-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]DeadLetter, 0, len(raw))
	for _, r := range raw {
		var dl DeadLetter
		if err := json.Unmarshal([]byte(r), &dl); err != nil {
			continue
		}
		out = append(out, dl)
	}
	return out, nil
}

// Requeue moves up to limit of the oldest dead letters back onto their
// source queue with a fresh EnqueuedAt, returning how many were moved.
func (d *DeadLetters) Requeue(ctx context.Context, queue string, limit int) (int, error) {
	moved := 0
	for moved < limit {
		raw, err := d.rdb.RPop(ctx, deadLetterKey(queue)).Result()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return moved, err
		}
		var dl DeadLetter
		if err := json.Unmarshal([]byte(raw), &dl); err != nil {
			log.Error().Err(err).Str("queue", queue).Msg("dlq: dropping undecodable entry on requeue")
			continue
		}
		dl.Job.EnqueuedAt = d.now().UTC()
		encoded, err := json.Marshal(dl.Job)
		if err != nil {
			return moved, err
		}
		if err := d.rdb.LPush(ctx, queue, encoded).Err(); err != nil {
			// put it back where it came from
			_ = d.rdb.RPush(ctx, deadLetterKey(queue), raw).Err()
			return moved, err
		}
		moved++
	}
	return moved, nil
}
