// Package service provides the core business service that implements
// the dependencies required by the HTTP API and the batch runner.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	eventqueue "github.com/okian/epocher/internal/adapters/mq/queue"
	workerpool "github.com/okian/epocher/internal/adapters/mq/worker"
	repository "github.com/okian/epocher/internal/adapters/repository"
	"github.com/okian/epocher/internal/config"
	"github.com/okian/epocher/internal/domain/dedupe"
	"github.com/okian/epocher/internal/domain/model"
	pipeline "github.com/okian/epocher/internal/domain/pipeline"
	"github.com/okian/epocher/internal/domain/types"
	"github.com/okian/epocher/pkg/logger"
	"github.com/okian/epocher/pkg/metrics"
)

// Service runs matching jobs synchronously or through the worker pool.
type Service struct {
	mu sync.RWMutex

	// Core components
	results    repository.Store
	deduper    dedupe.Deduper
	jobQueue   eventqueue.Queue
	workerPool *workerpool.Pool
	processor  *Processor
	template   *config.Template

	// Configuration
	workerCount    int
	queueSize      int
	dedupeSize     int
	resultCapacity int

	// State
	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of pending jobs.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the job id deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithResultCapacity sets how many job reports are kept.
func WithResultCapacity(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.resultCapacity = n
		}
	}
}

// WithTemplate sets the condition template jobs are evaluated against.
func WithTemplate(t *config.Template) Option {
	return func(s *Service) {
		s.template = t
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:    runtime.NumCPU(),
		queueSize:      1_024,
		dedupeSize:     10_000,
		resultCapacity: 10_000,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.template == nil {
		return ErrNoTemplate
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}

	s.logger.Info(ctx, "starting matching service...")

	s.results = repository.NewMemoryStore(ctx, repository.WithCapacity(s.resultCapacity))
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.jobQueue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.processor = NewProcessor(s.template, pipeline.NewRunner(), s.logger.Named("processor"))

	s.workerPool = workerpool.NewPool(s.workerCount, s.jobQueue, s.processor, s.results)
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "matching service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("conditions", len(s.template.Names())),
	)

	return nil
}

// Stop closes the queue and waits for workers to drain pending jobs.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(ctx, "stopping matching service...")
	if err := s.workerPool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool did not drain", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "matching service stopped")
}

// Match evaluates conditions on rec in the caller's goroutine. The report is
// not stored.
func (s *Service) Match(ctx context.Context, rec *model.Recording, conditions []string) (types.JobReport, error) {
	p, err := s.ready()
	if err != nil {
		return types.JobReport{}, err
	}
	if rec == nil {
		return types.JobReport{}, fmt.Errorf("%w: %w", ErrInvalidJob, pipeline.ErrMissingRecording)
	}
	if err := p.Validate(conditions); err != nil {
		return types.JobReport{}, err
	}
	start := time.Now()
	report, err := p.Process(ctx, model.Job{ID: uuid.NewString(), Recording: rec, Conditions: conditions})
	metrics.RecordJobLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		return report, err
	}
	metrics.RecordJobCompleted(report.Status)
	return report, nil
}

// Submit enqueues job for asynchronous processing and returns its id. A job
// id seen before is reported as a duplicate and not enqueued again.
func (s *Service) Submit(ctx context.Context, job model.Job) (id string, duplicate bool, err error) {
	p, err := s.ready()
	if err != nil {
		return "", false, err
	}
	if job.Recording == nil {
		return "", false, fmt.Errorf("%w: %w", ErrInvalidJob, pipeline.ErrMissingRecording)
	}
	if err := p.Validate(job.Conditions); err != nil {
		return "", false, err
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}

	if s.deduper.SeenAndRecord(ctx, job.ID) {
		metrics.RecordJobDuplicate()
		s.logger.Debug(ctx, "duplicate job, skipping", logger.String("job_id", job.ID))
		return job.ID, true, nil
	}

	queued := types.JobReport{
		JobID:       job.ID,
		Recording:   job.Recording.Name,
		Status:      types.JobQueued,
		SubmittedAt: time.Now(),
	}
	if err := s.results.Put(ctx, queued); err != nil {
		s.deduper.Unrecord(ctx, job.ID)
		return "", false, err
	}
	if !s.jobQueue.Enqueue(ctx, job) {
		s.results.Delete(ctx, job.ID)
		s.deduper.Unrecord(ctx, job.ID)
		return "", false, fmt.Errorf("%w: job %s", ErrQueueFull, job.ID)
	}

	metrics.RecordJobSubmitted()
	s.logger.Debug(ctx, "job enqueued",
		logger.String("job_id", job.ID),
		logger.String("recording", job.Recording.Name),
		logger.Int("conditions", len(job.Conditions)),
	)
	return job.ID, false, nil
}

// Result returns the latest report of a submitted job.
func (s *Service) Result(ctx context.Context, id string) (types.JobReport, error) {
	if _, err := s.ready(); err != nil {
		return types.JobReport{}, err
	}
	r, err := s.results.Get(ctx, id)
	if err != nil {
		return types.JobReport{}, fmt.Errorf("%w: %w", ErrJobNotFound, err)
	}
	return r, nil
}

// Recent returns up to n reports, newest first.
func (s *Service) Recent(ctx context.Context, n int) ([]types.JobReport, error) {
	if _, err := s.ready(); err != nil {
		return nil, err
	}
	return s.results.List(ctx, n)
}

// Conditions lists the template's condition names.
func (s *Service) Conditions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.template == nil {
		return nil
	}
	return s.template.Names()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}

	if s.started {
		queueLen := s.jobQueue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["storedResults"] = s.results.Count(ctx)
		stats["dedupeEntries"] = s.deduper.Size()
		if totals, err := metrics.OutcomeTotals(); err == nil {
			stats["outcomes"] = totals
		}

		metrics.UpdateQueueSize(queueLen)
	}

	return stats
}

func (s *Service) ready() (*Processor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.processor, nil
}
