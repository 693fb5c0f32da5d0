package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bft-labs/subvault/pkg/log"
)

// DefaultChunkSize is the number of tasks kept in flight when none is configured.
const DefaultChunkSize = 8

// Config controls how Run batches and retries work.
type Config struct {
	// ChunkSize is the maximum number of tasks in flight at once.
	ChunkSize int

	// Retries is the number of extra attempts after a failed first try.
	// Zero disables retrying.
	Retries int

	// AllowPartial keeps processing later chunks after a chunk had failures.
	// When false, Run stops after the first chunk with a failure.
	AllowPartial bool

	// RetryBackoff is the wait before the first retry of an item, doubled
	// (with jitter) up to RetryBackoffMax for later retries. Zero retries
	// immediately.
	RetryBackoff    time.Duration
	RetryBackoffMax time.Duration
}

// DefaultConfig returns a fail-fast Config without retries.
func DefaultConfig() Config {
	return Config{ChunkSize: DefaultChunkSize}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize)
	}
	if c.Retries < 0 {
		return fmt.Errorf("retries must not be negative, got %d", c.Retries)
	}
	if c.RetryBackoff < 0 || c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff must not be negative")
	}
	return nil
}

// Runner executes independent tasks in sequential chunks of concurrent work.
type Runner struct {
	cfg    Config
	logger log.Logger
}

// Option configures optional behavior of a Runner.
type Option func(*Runner)

// WithLogger sets the logger used for retry and chunk failure messages.
func WithLogger(logger log.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// New creates a Runner. It fails if cfg is invalid.
func New(cfg Config, opts ...Option) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Runner{cfg: cfg, logger: log.NoopLogger{}}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = log.OrNoop(r.logger)
	return r, nil
}

// Config returns the runner's configuration.
func (r *Runner) Config() Config { return r.cfg }

// Func is the unit of work run once per attempt for an input item.
type Func[T, R any] func(ctx context.Context, item T) (R, error)

// Run applies fn to every item. Items are split into consecutive chunks of
// ChunkSize; all tasks of a chunk start together and are awaited in input
// order before the next chunk starts. Failed items are retried one at a time.
//
// On success Run returns one result per item in input order. Otherwise it
// returns the results of the items that succeeded, still in input order, and
// a *MultiError holding a *TaskError for each item that failed. In-flight
// tasks are never abandoned; ctx is only handed to fn.
func Run[T, R any](ctx context.Context, r *Runner, items []T, fn Func[T, R]) ([]R, error) {
	logger := r.logger.With(log.String("run_id", uuid.NewString()))
	size := r.cfg.ChunkSize
	chunks := (len(items) + size - 1) / size

	logger.Debug("run started",
		log.Int("items", len(items)),
		log.Int("chunk_size", size),
		log.Int("chunks", chunks),
	)

	results := make([]R, 0, len(items))
	var errs []error

	for start, n := 0, 0; start < len(items); start, n = start+size, n+1 {
		end := min(start+size, len(items))

		chunkResults, chunkErrs := runChunk(ctx, r, logger, items[start:end], start, fn)
		results = append(results, chunkResults...)
		errs = append(errs, chunkErrs...)

		if len(chunkErrs) == 0 {
			continue
		}
		if !r.cfg.AllowPartial {
			logger.Error("chunk failed, skipping remaining chunks",
				log.Int("chunk", n),
				log.Int("failed", len(chunkErrs)),
				log.Int("skipped_items", len(items)-end),
			)
			return results, &MultiError{Errors: errs}
		}
		logger.Warn("chunk had failures, continuing",
			log.Int("chunk", n),
			log.Int("failed", len(chunkErrs)),
		)
	}

	if len(errs) > 0 {
		return results, &MultiError{Errors: errs}
	}
	return results, nil
}

type attempt[R any] struct {
	val R
	err error
}

func runChunk[T, R any](ctx context.Context, r *Runner, logger log.Logger, chunk []T, base int, fn Func[T, R]) ([]R, []error) {
	first := make([]attempt[R], len(chunk))

	var g errgroup.Group
	g.SetLimit(len(chunk))
	for i, item := range chunk {
		g.Go(func() error {
			first[i].val, first[i].err = call(ctx, fn, item)
			// Never fail the group: siblings must all run to completion.
			return nil
		})
	}
	_ = g.Wait()

	results := make([]R, 0, len(chunk))
	var errs []error
	for i, a := range first {
		if a.err == nil {
			results = append(results, a.val)
			continue
		}
		val, attempts, err := retry(ctx, r, logger, chunk[i], base+i, a.err, fn)
		if err != nil {
			errs = append(errs, &TaskError{Index: base + i, Attempts: attempts, Err: err})
			continue
		}
		results = append(results, val)
	}
	return results, errs
}

// retry re-runs a failed item up to Retries times, sequentially.
func retry[T, R any](ctx context.Context, r *Runner, logger log.Logger, item T, index int, err error, fn Func[T, R]) (R, int, error) {
	var zero R
	tries := r.cfg.Retries + 1
	if tries == 1 {
		return zero, 1, err
	}

	bo := newBackoff(r.cfg.RetryBackoff, r.cfg.RetryBackoffMax)
	for next := 2; next <= tries; next++ {
		logger.Warn("task attempt failed",
			log.Int("item", index),
			log.String("try", fmt.Sprintf("%d/%d", next-1, tries)),
			log.Err(err),
		)

		if wait := bo.Next(); wait > 0 {
			t := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				return zero, next - 1, errors.Join(err, ctx.Err())
			case <-t.C:
			}
		}

		logger.Warn("retrying task",
			log.Int("item", index),
			log.String("try", fmt.Sprintf("%d/%d", next, tries)),
		)
		val, retryErr := call(ctx, fn, item)
		if retryErr == nil {
			return val, next, nil
		}
		err = retryErr
	}
	return zero, tries, err
}

// call runs fn and turns a panic into an error.
func call[T, R any](ctx context.Context, fn Func[T, R], item T) (val R, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &panicError{value: p}
		}
	}()
	return fn(ctx, item)
}
