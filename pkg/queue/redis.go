package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"PriceTrack/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	popTimeout    = time.Second
	retryInterval = 5 * time.Second
	maxRetryDelay = 10 * time.Minute
)

// keys is the Redis layout of one queue: a ready list, a retry zset scored
// by due time and a dead letter list.
type keys struct {
	ready string
	retry string
	dead  string
}

func newKeys(prefix string) keys {
	return keys{
		ready: prefix + ":messages",
		retry: prefix + ":retry",
		dead:  prefix + ":dlq",
	}
}

// RedisQueue is a Redis list backed job queue with delayed retries and a
// dead letter list. Several processes may share one prefix.
type RedisQueue struct {
	logger *logger.Logger
	config QueueConfig
	client *redis.Client
	keys   keys

	mu      sync.RWMutex
	jobs    map[string]Job
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

var _ Publisher = (*RedisQueue)(nil)

// RedisQueueOption configures RedisQueue.
type RedisQueueOption func(*RedisQueue)

// WithKeyPrefix sets the Redis key prefix, used as is.
func WithKeyPrefix(prefix string) RedisQueueOption {
	return func(r *RedisQueue) {
		if prefix != "" {
			r.keys = newKeys(prefix)
		}
	}
}

// NewRedisQueue creates a queue; register jobs before Start.
func NewRedisQueue(lgr *logger.Logger, config *QueueConfig, client *redis.Client, opts ...RedisQueueOption) *RedisQueue {
	cfg := QueueConfig{}
	if config != nil {
		cfg = *config
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 10 * time.Second
	}

	rq := &RedisQueue{
		logger: lgr,
		config: cfg,
		client: client,
		keys:   newKeys("pricetrack:queue"),
		jobs:   make(map[string]Job),
	}
	for _, opt := range opts {
		opt(rq)
	}
	return rq
}

// RegisterJobs registers multiple jobs.
func (r *RedisQueue) RegisterJobs(jobs []Job) {
	for _, job := range jobs {
		r.RegisterJob(job)
	}
}

// RegisterJob routes a message type to job. The first registration wins.
func (r *RedisQueue) RegisterJob(job Job) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[job.Type()]; exists {
		r.logger.Warn("job already registered", logger.String("job", job.Name()))
		return
	}
	r.jobs[job.Type()] = job
	r.logger.Info("job registered",
		logger.String("job", job.Name()),
		logger.String("type", job.Type()))
}

// Start pings Redis and launches the workers and the retry mover.
func (r *RedisQueue) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return errors.New("queue already running")
	}

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := r.client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.running = true

	for i := 0; i < r.config.Workers; i++ {
		r.wg.Add(1)
		go r.work(ctx, i)
	}
	r.wg.Add(1)
	go r.promoteRetries(ctx)

	r.logger.Info("redis queue started",
		logger.Int("workers", r.config.Workers),
		logger.String("key", r.keys.ready))
	return nil
}

// Stop cancels the workers and waits for in-flight jobs until ctx expires.
// Running jobs see their context cancelled.
func (r *RedisQueue) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.cancel()
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("redis queue stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for queue workers: %w", ctx.Err())
	}
}

// Enqueue wraps payload in a Message and pushes it onto the ready list.
func (r *RedisQueue) Enqueue(ctx context.Context, msgType string, payload interface{}) error {
	r.mu.RLock()
	running := r.running
	_, known := r.jobs[msgType]
	r.mu.RUnlock()

	switch {
	case !running:
		return errors.New("queue not running")
	case !known:
		return fmt.Errorf("no job registered for type %q", msgType)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	data, err := json.Marshal(Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		Payload:   raw,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := r.client.LPush(ctx, r.keys.ready, data).Err(); err != nil {
		return fmt.Errorf("lpush: %w", err)
	}
	return nil
}

func (r *RedisQueue) work(ctx context.Context, id int) {
	defer r.wg.Done()

	for ctx.Err() == nil {
		msg, ok := r.pop(ctx)
		if ok {
			r.dispatch(ctx, msg)
		}
	}
	r.logger.Debug("queue worker stopped", logger.Int("worker_id", id))
}

// pop blocks for up to popTimeout. ok is false on timeout, shutdown or a
// malformed envelope.
func (r *RedisQueue) pop(ctx context.Context) (Message, bool) {
	res, err := r.client.BRPop(ctx, popTimeout, r.keys.ready).Result()
	switch {
	case err == nil:
	case errors.Is(err, redis.Nil), ctx.Err() != nil:
		return Message{}, false
	default:
		r.logger.Error("brpop", logger.Error(err))
		sleep(ctx, time.Second)
		return Message{}, false
	}
	if len(res) < 2 {
		return Message{}, false
	}

	var msg Message
	if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
		r.logger.Error("malformed queue message", logger.Error(err))
		r.bury([]byte(res[1]))
		return Message{}, false
	}
	return msg, true
}

func (r *RedisQueue) dispatch(ctx context.Context, msg Message) {
	r.mu.RLock()
	job, ok := r.jobs[msg.Type]
	r.mu.RUnlock()
	if !ok {
		r.logger.Error("no job for message",
			logger.String("type", msg.Type),
			logger.String("id", msg.ID))
		r.fail(msg, "", errors.New("unroutable"))
		return
	}

	start := time.Now()
	err := job.Handle(ctx, msg.Payload)
	switch {
	case err == nil:
		r.logger.Debug("message done",
			logger.String("id", msg.ID),
			logger.String("job", job.Name()),
			logger.Duration("duration_ms", time.Since(start)))
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		// Shutdown interrupted the job; hand it to another process.
		r.requeue(msg)
	default:
		r.fail(msg, job.Name(), err)
	}
}

// fail schedules a retry with exponential delay, or buries msg once the
// retry limit is spent.
func (r *RedisQueue) fail(msg Message, job string, err error) {
	r.logger.Error("message failed",
		logger.String("id", msg.ID),
		logger.String("job", job),
		logger.Int("attempt", msg.Attempts+1),
		logger.Error(err))

	data, mErr := json.Marshal(nextAttempt(msg))
	if mErr != nil {
		r.logger.Error("marshal failed message", logger.Error(mErr))
		return
	}
	if msg.Attempts >= r.config.RetryLimit {
		r.logger.Warn("retries exhausted", logger.String("id", msg.ID))
		r.bury(data)
		return
	}

	due := time.Now().Add(retryDelay(r.config.RetryDelay, msg.Attempts))
	if err := r.client.ZAdd(context.Background(), r.keys.retry, redis.Z{
		Score:  float64(due.Unix()),
		Member: data,
	}).Err(); err != nil {
		r.logger.Error("schedule retry", logger.Error(err))
	}
}

func (r *RedisQueue) requeue(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := r.client.RPush(context.Background(), r.keys.ready, data).Err(); err != nil {
		r.logger.Error("requeue interrupted message", logger.String("id", msg.ID), logger.Error(err))
	}
}

func (r *RedisQueue) bury(data []byte) {
	if err := r.client.LPush(context.Background(), r.keys.dead, data).Err(); err != nil {
		r.logger.Error("lpush dlq", logger.Error(err))
	}
}

func (r *RedisQueue) promoteRetries(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.promoteDue(ctx, now)
		}
	}
}

// promoteDue moves retries whose time has come back to the ready list. Only
// the process whose ZREM succeeds pushes, so shared prefixes never duplicate.
func (r *RedisQueue) promoteDue(ctx context.Context, now time.Time) {
	due, err := r.client.ZRangeByScore(ctx, r.keys.retry, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Error("fetch due retries", logger.Error(err))
		}
		return
	}

	for _, member := range due {
		if ctx.Err() != nil {
			return
		}
		removed, err := r.client.ZRem(ctx, r.keys.retry, member).Result()
		if err != nil || removed == 0 {
			continue
		}
		if err := r.client.LPush(ctx, r.keys.ready, member).Err(); err != nil {
			r.logger.Error("promote retry", logger.Error(err))
		}
	}
}

func nextAttempt(msg Message) Message {
	msg.Attempts++
	return msg
}

// retryDelay doubles base per previous attempt, capped at maxRetryDelay.
func retryDelay(base time.Duration, attempts int) time.Duration {
	d := base
	for i := 0; i < attempts && d < maxRetryDelay; i++ {
		d *= 2
	}
	return min(d, maxRetryDelay)
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
