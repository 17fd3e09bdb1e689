package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// TypeTripBuild is the asynq task type of a Phase 2 build
const TypeTripBuild = "trip:build"

// BuildPayload is the body of a build task
type BuildPayload struct {
	TripID string `json:"trip_id"`
}

// buildTaskID is stable per trip so a second enqueue while one is pending is rejected
func buildTaskID(tripID string) string {
	return "trip-build:" + tripID
}

// NewBuildTask creates the task for one trip. Builds are never retried by
// the queue; a failed build is rolled back and the traveller confirms again.
func NewBuildTask(tripID, queue string, timeout time.Duration) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(BuildPayload{TripID: tripID})
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeTripBuild, b)
	opts := []asynq.Option{
		asynq.Queue(queue),
		asynq.TaskID(buildTaskID(tripID)),
		asynq.MaxRetry(0),
		asynq.Timeout(timeout),
	}

	return task, opts, nil
}

func parseBuildPayload(task *asynq.Task) (BuildPayload, error) {
	var p BuildPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return p, fmt.Errorf("invalid build payload: %w", err)
	}
	if p.TripID == "" {
		return p, fmt.Errorf("build payload has no trip id")
	}
	return p, nil
}
