package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
)

// WorkerPoolProcessor fans claim processing out over an ants pool while
// keeping the consumer's at-least-once semantics: the caller blocks until
// its claim finishes, so the Kafka offset is only committed after the
// pipeline ran.
type WorkerPoolProcessor struct {
	base   Processor
	pool   *ants.Pool
	logger *slog.Logger
	// Protects the in-flight results map
	mu      sync.Mutex
	results map[string]chan error
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolProcessor(base Processor, config WorkerPoolConfig, logger *slog.Logger) (*WorkerPoolProcessor, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolProcessor{
		base:    base,
		pool:    pool,
		logger:  logger,
		results: make(map[string]chan error),
	}, nil
}

// Process submits the claim to the worker pool and waits for its result.
func (s *WorkerPoolProcessor) Process(ctx context.Context, claimID uuid.UUID, correlationID string) error {
	logger := s.logger
	if correlationID != "" {
		logger = s.logger.With("correlation_id", correlationID)
	}

	logger.Info("Submitting claim to worker pool", "claim_id", claimID.String())

	resultChan := make(chan error, 1)
	key := claimID.String()
	s.mu.Lock()
	s.results[key] = resultChan
	s.mu.Unlock()

	err := s.pool.Submit(func() {
		err := s.base.Process(ctx, claimID, correlationID)

		resultChan <- err

		s.mu.Lock()
		delete(s.results, key)
		close(resultChan)
		s.mu.Unlock()
	})

	if err != nil {
		s.mu.Lock()
		delete(s.results, key)
		close(resultChan)
		s.mu.Unlock()

		logger.Error("Failed to submit claim to worker pool",
			"claim_id", claimID.String(),
			"error", err,
		)
		return err
	}

	return <-resultChan
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolProcessor) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolProcessor) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolProcessor) Capacity() int {
	return s.pool.Cap()
}
