package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cjmurphy27/barn-management-sub000/internal/dto"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueStockAlert = "jobs:stock_alert"

	JobStockAlert = "stock_alert"

	// MaxJobAttempts bounds in-worker retries before a job is dead-lettered.
	MaxJobAttempts = 3

	// Redis errors other than an empty pop pause the worker, doubling up to
	// maxPollBackoff until a pop succeeds again.
	minPollBackoff = 500 * time.Millisecond
	maxPollBackoff = 30 * time.Second
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb redis.Cmdable
}

func NewDispatcher(rdb redis.Cmdable) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// PublishStockAlert queues an alert e-mail for a record whose stock status
// got worse.
func (d *Dispatcher) PublishStockAlert(ctx context.Context, alert dto.StockAlert) error {
	return d.enqueue(ctx, QueueStockAlert, JobStockAlert, alert)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	if d == nil || d.rdb == nil {
		return fmt.Errorf("worker: dispatcher has no redis client")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(Job{Type: jobType, Payload: data, EnqueuedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// Handler processes one job payload. A returned error is retried, then
// dead-lettered.
type Handler interface {
	Process(ctx context.Context, payload json.RawMessage) error
}

// Pool consumes the job queues and routes jobs to their handler by type.
type Pool struct {
	rdb         *redis.Client
	handlers    map[string]Handler
	backoff     func(attempt int) time.Duration
	pollBackoff time.Duration
	pop         func(ctx context.Context) ([]string, error)
	deadLetter  func(ctx context.Context, queue string, job Job, reason string, attempts int)
}

func NewPool(rdb *redis.Client, handlers map[string]Handler) *Pool {
	p := &Pool{
		rdb:         rdb,
		handlers:    handlers,
		// 1s, 2s … (exponential backoff)
		backoff:     func(attempt int) time.Duration { return time.Duration(1<<uint(attempt-1)) * time.Second },
		pollBackoff: minPollBackoff,
	}
	// Blocking pop: waits up to 5s so the loop can check ctx
	p.pop = func(ctx context.Context) ([]string, error) {
		return p.rdb.BRPop(ctx, 5*time.Second, QueueStockAlert).Result()
	}
	dl := NewDeadLetters(nil)
	if rdb != nil {
		dl = NewDeadLetters(rdb)
	}
	p.deadLetter = dl.Push
	return p
}

// Start launches numWorkers goroutines consuming every queue.
// Each goroutine blocks on BRPOP.
func (p *Pool) Start(ctx context.Context, numWorkers int) {
	if numWorkers < 1 {
		numWorkers = 1
	}
	for i := 0; i < numWorkers; i++ {
		go p.run(ctx, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func (p *Pool) run(ctx context.Context, id int) {
	wait := p.pollBackoff
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			result, err := p.pop(ctx)
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			if err != nil {
				log.Warn().Err(err).Int("worker", id).Dur("retry_in", wait).Msg("job queue unavailable")
				select {
				case <-ctx.Done():
				case <-time.After(wait):
				}
				wait = min(wait*2, maxPollBackoff)
				continue
			}
			wait = p.pollBackoff
			if len(result) < 2 {
				continue
			}
			p.handle(ctx, result[0], result[1])
		}
	}
}

func (p *Pool) handle(ctx context.Context, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		p.deadLetter(ctx, queue, Job{Type: "unknown", Payload: json.RawMessage(fmt.Sprintf("%q", raw))}, "undecodable job: "+err.Error(), 0)
		return
	}
	h, ok := p.handlers[job.Type]
	if !ok {
		log.Error().Str("type", job.Type).Str("queue", queue).Msg("no handler for job type")
		p.deadLetter(ctx, queue, job, "no handler for job type", 0)
		return
	}

	attempts, err := p.withRetry(ctx, func() error { return h.Process(ctx, job.Payload) })
	if err != nil {
		log.Error().Err(err).Str("type", job.Type).Int("attempts", attempts).Msg("job failed")
		p.deadLetter(ctx, queue, job, err.Error(), attempts)
		return
	}
	log.Info().Str("type", job.Type).Str("queue", queue).Msg("job processed")
}

// withRetry calls fn up to MaxJobAttempts times. Attempt 1 is immediate.
func (p *Pool) withRetry(ctx context.Context, fn func() error) (int, error) {
	var lastErr error
	for i := 1; i <= MaxJobAttempts; i++ {
		if i > 1 {
			select {
			case <-ctx.Done():
				return i - 1, ctx.Err()
			case <-time.After(p.backoff(i - 1)):
			}
		}
		if lastErr = fn(); lastErr == nil {
			return i, nil
		}
	}
	return MaxJobAttempts, lastErr
}
