// Package worker contains the write-behind recorder that persists assessments
// and coach attachments off the request path. Persistence is a fire-and-forget
// side effect of the scoring and coaching endpoints: the HTTP response never
// waits on the database. The api package holds the Recorder interface and
// never imports the concrete Pool type.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/strainguard/injury-risk-backend/internal/store"
)

// ─── RECORDER INTERFACE ───────────────────────────────────────────────────────

// Recorder is the narrow interface the api package uses to hand off writes.
// The concrete implementation is *Pool. In tests, any struct with these two
// methods satisfies the interface.
type Recorder interface {
	// RecordAssessment enqueues the insert for a freshly scored assessment.
	RecordAssessment(ctx context.Context, p store.CreateAssessmentParams) error

	// RecordCoachPlan enqueues the coach attachment for an existing
	// assessment, addressed by its explicit ID.
	RecordCoachPlan(ctx context.Context, p store.AttachCoachPlanParams) error
}

// Writer is the store surface the pool writes through. *store.Store satisfies
// it; tests inject a stub.
type Writer interface {
	CreateAssessment(ctx context.Context, p store.CreateAssessmentParams) error
	AttachCoachPlan(ctx context.Context, p store.AttachCoachPlanParams) error
}

// ─── POOL ─────────────────────────────────────────────────────────────────────

// PoolConfig holds tuning parameters for the recorder pool. Zero values fall
// back to the defaults from DefaultPoolConfig.
type PoolConfig struct {
	// Workers is the number of concurrent writer goroutines. Default: 2.
	Workers int

	// MaxRetries is the number of attempts per job before it is dropped with
	// an error log. Retries also absorb the benign race where a coach
	// attachment is enqueued before its assessment insert has landed.
	// Default: 3.
	MaxRetries int

	// JobTimeout is the per-attempt context deadline. Default: 10s.
	JobTimeout time.Duration
}

// DefaultPoolConfig returns safe production defaults.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Workers:    2,
		MaxRetries: 3,
		JobTimeout: 10 * time.Second,
	}
}

// job is one pending write. Exactly one of the two param structs is set.
type job struct {
	assessment *store.CreateAssessmentParams
	coach      *store.AttachCoachPlanParams
}

// Pool manages the writer goroutines. Jobs arrive on an in-process channel;
// on shutdown the pool drains whatever is still queued before exiting.
type Pool struct {
	store  Writer
	cfg    PoolConfig
	logger *slog.Logger

	queue chan job
	wg    sync.WaitGroup
}

// NewPool constructs a Pool. Call Start to begin processing.
func NewPool(st Writer, cfg PoolConfig, logger *slog.Logger) *Pool {
	def := DefaultPoolConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = def.JobTimeout
	}

	return &Pool{
		store:  st,
		cfg:    cfg,
		logger: logger,
		// Generous buffer so Enqueue never blocks the HTTP response under
		// normal load.
		queue: make(chan job, cfg.Workers*32),
	}
}

// RecordAssessment satisfies Recorder. It returns an error only when the
// queue is full — the caller has already responded to the client, so a full
// queue means the write is lost and must be surfaced in logs.
func (p *Pool) RecordAssessment(_ context.Context, params store.CreateAssessmentParams) error {
	return p.enqueue(job{assessment: &params})
}

// RecordCoachPlan satisfies Recorder.
func (p *Pool) RecordCoachPlan(_ context.Context, params store.AttachCoachPlanParams) error {
	return p.enqueue(job{coach: &params})
}

func (p *Pool) enqueue(j job) error {
	select {
	case p.queue <- j:
		return nil
	default:
		return errors.New("worker: recorder queue is full, write dropped")
	}
}

// Start launches the writer goroutines and blocks until ctx is cancelled and
// the queue has drained. Call it in a goroutine from main:
//
//	go pool.Start(ctx)
func (p *Pool) Start(ctx context.Context) {
	p.logger.Info("worker: recorder starting", "workers", p.cfg.Workers)

	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.work(ctx, i)
	}

	p.wg.Wait()
	p.logger.Info("worker: recorder stopped")
}

// work is the inner loop for each writer goroutine. After ctx is cancelled it
// keeps consuming until the queue is empty so queued writes are not lost on
// shutdown.
func (p *Pool) work(ctx context.Context, id int) {
	defer p.wg.Done()
	log := p.logger.With("recorder_id", id)

	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case j := <-p.queue:
					// Fresh context so the write itself is not cancelled;
					// drain mode skips backoff waits so shutdown stays fast.
					p.runWithRetry(context.Background(), j, log, true)
				default:
					return
				}
			}
		case j := <-p.queue:
			p.runWithRetry(ctx, j, log, false)
		}
	}
}

// runWithRetry executes the job up to MaxRetries times with exponential
// back-off (2s, 4s, 8s …). In drain mode the backoff waits are skipped so a
// failing job cannot stall shutdown. After exhausting retries the job is
// dropped with an error log — the assessment response has already been
// served, so there is nothing left to fail.
func (p *Pool) runWithRetry(ctx context.Context, j job, log *slog.Logger, drain bool) {
	var lastErr error

	for attempt := 1; attempt <= p.cfg.MaxRetries; attempt++ {
		jobCtx, cancel := context.WithTimeout(ctx, p.cfg.JobTimeout)
		lastErr = p.run(jobCtx, j)
		cancel()

		if lastErr == nil {
			return
		}

		log.Warn("worker: record attempt failed",
			"attempt", attempt,
			"max", p.cfg.MaxRetries,
			"error", lastErr,
		)

		if attempt < p.cfg.MaxRetries && !drain {
			backoff := time.Duration(1<<attempt) * time.Second
			select {
			case <-ctx.Done():
			case <-time.After(backoff):
			}
		}
	}

	log.Error("worker: record permanently failed, write dropped", "error", lastErr)
}

func (p *Pool) run(ctx context.Context, j job) error {
	switch {
	case j.assessment != nil:
		return p.store.CreateAssessment(ctx, *j.assessment)
	case j.coach != nil:
		return p.store.AttachCoachPlan(ctx, *j.coach)
	default:
		return errors.New("worker: empty job")
	}
}
