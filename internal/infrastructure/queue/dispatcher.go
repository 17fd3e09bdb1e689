package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tripcast-service/internal/domain/entity"
	"tripcast-service/internal/domain/repository"
	"tripcast-service/internal/usecase"
	"tripcast-service/pkg/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// AsynqDispatcher hands builds to the asynq queue and records them in the job ledger
type AsynqDispatcher struct {
	client  *asynq.Client
	jobs    repository.BuildJobRepository
	queue   string
	timeout time.Duration
	logger  logger.Logger
}

// NewAsynqDispatcher creates a new dispatcher. jobs may be nil.
func NewAsynqDispatcher(opt asynq.RedisClientOpt, jobs repository.BuildJobRepository, queue string, timeout time.Duration, logger logger.Logger) *AsynqDispatcher {
	return &AsynqDispatcher{
		client:  asynq.NewClient(opt),
		jobs:    jobs,
		queue:   queue,
		timeout: timeout,
		logger:  logger,
	}
}

// Dispatch enqueues the build of tripID
func (d *AsynqDispatcher) Dispatch(ctx context.Context, tripID string) error {
	task, opts, err := NewBuildTask(tripID, d.queue, d.timeout)
	if err != nil {
		return fmt.Errorf("create build task: %w", err)
	}

	info, err := d.client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
		d.logger.Warn("Build already queued", "tripID", tripID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue build: %w", err)
	}

	d.logger.Info("Build queued", "tripID", tripID, "taskID", info.ID, "queue", info.Queue)
	recordJob(ctx, d.jobs, d.logger, &entity.BuildJob{
		TaskID:    info.ID,
		Type:      TypeTripBuild,
		QueueName: info.Queue,
		Payload:   string(task.Payload()),
		TripID:    tripID,
		Status:    entity.BuildJobQueued,
	})
	return nil
}

// Close releases the Redis connection
func (d *AsynqDispatcher) Close() error {
	return d.client.Close()
}

// InProcessDispatcher runs builds on goroutines when no queue is configured
type InProcessDispatcher struct {
	runner  usecase.BuildRunner
	jobs    repository.BuildJobRepository
	timeout time.Duration
	logger  logger.Logger
	wg      sync.WaitGroup
}

// NewInProcessDispatcher creates a new in-process dispatcher. jobs may be nil.
func NewInProcessDispatcher(runner usecase.BuildRunner, jobs repository.BuildJobRepository, timeout time.Duration, logger logger.Logger) *InProcessDispatcher {
	return &InProcessDispatcher{
		runner:  runner,
		jobs:    jobs,
		timeout: timeout,
		logger:  logger,
	}
}

// Dispatch starts the build in the background. The build outlives the request context.
func (d *InProcessDispatcher) Dispatch(ctx context.Context, tripID string) error {
	taskID := "local-" + uuid.NewString()
	recordJob(ctx, d.jobs, d.logger, &entity.BuildJob{
		TaskID:    taskID,
		Type:      TypeTripBuild,
		QueueName: "in-process",
		TripID:    tripID,
		Status:    entity.BuildJobQueued,
	})

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		buildCtx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		runBuild(buildCtx, d.runner, d.jobs, d.logger, taskID, tripID)
	}()
	return nil
}

// Wait blocks until every dispatched build has finished
func (d *InProcessDispatcher) Wait() {
	d.wg.Wait()
}

func recordJob(ctx context.Context, jobs repository.BuildJobRepository, log logger.Logger, job *entity.BuildJob) {
	if jobs == nil {
		return
	}
	if err := jobs.Create(ctx, job); err != nil {
		log.Warn("Failed to record build job", "tripID", job.TripID, "taskID", job.TaskID, "error", err)
	}
}

func updateJob(ctx context.Context, jobs repository.BuildJobRepository, log logger.Logger, taskID, status, detail string) {
	if jobs == nil {
		return
	}
	if err := jobs.UpdateStatus(ctx, taskID, status, detail); err != nil {
		log.Warn("Failed to update build job", "taskID", taskID, "status", status, "error", err)
	}
}

// runBuild runs one build and mirrors its outcome into the job ledger
func runBuild(ctx context.Context, runner usecase.BuildRunner, jobs repository.BuildJobRepository, log logger.Logger, taskID, tripID string) error {
	updateJob(ctx, jobs, log, taskID, entity.BuildJobRunning, "")

	start := time.Now()
	err := runner.RunBuild(ctx, tripID)
	if err != nil {
		log.Error("Build failed", "tripID", tripID, "taskID", taskID, "elapsed", time.Since(start), "error", err)
		updateJob(context.Background(), jobs, log, taskID, entity.BuildJobFailed, err.Error())
		return err
	}

	log.Info("Build finished", "tripID", tripID, "taskID", taskID, "elapsed", time.Since(start))
	updateJob(ctx, jobs, log, taskID, entity.BuildJobSucceeded, "")
	return nil
}
