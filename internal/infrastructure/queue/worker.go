package queue

import (
	"context"
	"fmt"

	"tripcast-service/internal/domain/repository"
	"tripcast-service/internal/usecase"
	"tripcast-service/pkg/logger"

	"github.com/hibiken/asynq"
)

// BuildWorker consumes build tasks from the asynq queue
type BuildWorker struct {
	server *asynq.Server
	runner usecase.BuildRunner
	jobs   repository.BuildJobRepository
	logger logger.Logger
}

// NewBuildWorker creates a new worker. jobs may be nil.
func NewBuildWorker(opt asynq.RedisClientOpt, queue string, concurrency int, runner usecase.BuildRunner, jobs repository.BuildJobRepository, log logger.Logger) *BuildWorker {
	srv := asynq.NewServer(
		opt,
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				queue: 1,
			},
			Logger: asynqLogger{log: log},
		},
	)

	return &BuildWorker{
		server: srv,
		runner: runner,
		jobs:   jobs,
		logger: log,
	}
}

// Start begins processing in the background
func (w *BuildWorker) Start() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeTripBuild, w.HandleBuildTask)

	w.logger.Info("Starting build worker")
	return w.server.Start(mux)
}

// Shutdown waits for running builds and stops the worker
func (w *BuildWorker) Shutdown() {
	w.server.Shutdown()
}

// HandleBuildTask runs one build. Build failures are already rolled back by
// the runner, so the task completes and its id is freed for the next confirm.
func (w *BuildWorker) HandleBuildTask(ctx context.Context, task *asynq.Task) error {
	p, err := parseBuildPayload(task)
	if err != nil {
		w.logger.Error("Dropping build task", "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	taskID, ok := asynq.GetTaskID(ctx)
	if !ok {
		taskID = buildTaskID(p.TripID)
	}

	runBuild(ctx, w.runner, w.jobs, w.logger, taskID, p.TripID)
	return nil
}

// asynqLogger adapts the service logger to asynq's logger interface
type asynqLogger struct {
	log logger.Logger
}

func (l asynqLogger) Debug(args ...interface{}) { l.log.Debug(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...interface{})  { l.log.Info(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...interface{})  { l.log.Warn(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...interface{}) { l.log.Error(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...interface{}) { l.log.Fatal(fmt.Sprint(args...)) }
