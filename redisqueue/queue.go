package redisqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kristofferremback/threa-outbox/dispatch"
)

const (
	defaultKeyPrefix = "threa:jobs"
	defaultDedupeTTL = 24 * time.Hour
)

var (
	// ErrClientRequired is returned when a nil redis client is provided.
	ErrClientRequired = errors.New("redisqueue: client is required")
	// ErrJobIDRequired is returned when a job has an empty id.
	ErrJobIDRequired = errors.New("redisqueue: job id is required")
	// ErrJobKindRequired is returned when a job has an empty kind.
	ErrJobKindRequired = errors.New("redisqueue: job kind is required")
	// ErrNoJob is returned by Dequeue when the wait deadline passes without work.
	ErrNoJob = errors.New("redisqueue: no job available")
)

// enqueueScript pushes the job only when its dedupe marker did not exist yet.
// Marker set and list push happen in one script so a crash cannot mark a job
// enqueued without actually pushing it.
var enqueueScript = redis.NewScript(`
if redis.call("SET", KEYS[1], "1", "NX", "PX", ARGV[1]) then
	redis.call("LPUSH", KEYS[2], ARGV[2])
	return 1
end
return 0
`)

// Config defines queue behavior.
type Config struct {
	// KeyPrefix namespaces the queue's redis keys.
	KeyPrefix string
	// DedupeTTL bounds how long a job id suppresses re-enqueues. It must
	// comfortably exceed the outbox retention window.
	DedupeTTL time.Duration
}

func (c Config) withDefaults() Config {
	if c.KeyPrefix == "" {
		c.KeyPrefix = defaultKeyPrefix
	}
	if c.DedupeTTL <= 0 {
		c.DedupeTTL = defaultDedupeTTL
	}

	return c
}

// Option configures the queue.
type Option func(*Config)

// WithKeyPrefix sets the redis key namespace.
func WithKeyPrefix(prefix string) Option {
	return func(c *Config) {
		c.KeyPrefix = prefix
	}
}

// WithDedupeTTL sets how long a job id suppresses duplicate enqueues.
func WithDedupeTTL(ttl time.Duration) Option {
	return func(c *Config) {
		c.DedupeTTL = ttl
	}
}

// Queue is a Redis list with per-job-id deduplication.
type Queue struct {
	client redis.UniversalClient
	cfg    Config
}

var _ dispatch.JobQueue = (*Queue)(nil)

// NewQueue constructs a queue on the given client.
func NewQueue(client redis.UniversalClient, opts ...Option) (*Queue, error) {
	if client == nil {
		return nil, ErrClientRequired
	}

	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Queue{client: client, cfg: cfg.withDefaults()}, nil
}

// Enqueue pushes the job unless one with the same id was pushed within the
// dedupe window. Duplicate pushes are silent no-ops.
func (q *Queue) Enqueue(ctx context.Context, job dispatch.Job) error {
	if job.ID == "" {
		return ErrJobIDRequired
	}
	if job.Kind == "" {
		return ErrJobKindRequired
	}

	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("redisqueue: marshal job %s: %w", job.ID, err)
	}

	keys := []string{q.dedupeKey(job.ID), q.listKey()}
	args := []any{q.cfg.DedupeTTL.Milliseconds(), body}
	if err := enqueueScript.Run(ctx, q.client, keys, args...).Err(); err != nil {
		return fmt.Errorf("redisqueue: enqueue job %s: %w", job.ID, err)
	}

	return nil
}

// Dequeue blocks up to wait for the oldest job. Returns ErrNoJob when the
// wait deadline passes with the list empty.
func (q *Queue) Dequeue(ctx context.Context, wait time.Duration) (dispatch.Job, error) {
	res, err := q.client.BRPop(ctx, wait, q.listKey()).Result()
	if errors.Is(err, redis.Nil) {
		return dispatch.Job{}, ErrNoJob
	}
	if err != nil {
		return dispatch.Job{}, fmt.Errorf("redisqueue: dequeue: %w", err)
	}
	if len(res) != 2 {
		return dispatch.Job{}, fmt.Errorf("redisqueue: dequeue: unexpected reply length %d", len(res))
	}

	var job dispatch.Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return dispatch.Job{}, fmt.Errorf("redisqueue: decode job: %w", err)
	}

	return job, nil
}

// Len returns the number of queued jobs.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.listKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("redisqueue: len: %w", err)
	}

	return n, nil
}

func (q *Queue) listKey() string {
	return q.cfg.KeyPrefix + ":pending"
}

func (q *Queue) dedupeKey(jobID string) string {
	return q.cfg.KeyPrefix + ":seen:" + jobID
}
