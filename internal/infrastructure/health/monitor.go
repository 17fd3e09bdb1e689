package health

import (
	"context"
	"sort"
	"sync"
	"time"

	"tripcast-service/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"golang.org/x/sync/errgroup"
)

// Health statuses
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
)

// CheckFunc probes one dependency
type CheckFunc func(ctx context.Context) error

// ComponentStatus is the result of one probe
type ComponentStatus struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
}

// Report is the aggregated health of the service
type Report struct {
	Status     string            `json:"status"`
	Version    string            `json:"version"`
	CheckedAt  time.Time         `json:"checked_at"`
	Components []ComponentStatus `json:"components"`
}

// Monitor runs dependency probes concurrently
type Monitor struct {
	version string
	timeout time.Duration
	checks  map[string]CheckFunc
	logger  logger.Logger
}

// NewMonitor creates a new health monitor
func NewMonitor(version string, timeout time.Duration, logger logger.Logger) *Monitor {
	return &Monitor{
		version: version,
		timeout: timeout,
		checks:  make(map[string]CheckFunc),
		logger:  logger,
	}
}

// Register adds a named probe
func (m *Monitor) Register(name string, check CheckFunc) {
	m.checks[name] = check
}

// RegisterMongo probes the primary
func (m *Monitor) RegisterMongo(client *mongo.Client) {
	m.Register("mongodb", func(ctx context.Context) error {
		return client.Ping(ctx, readpref.Primary())
	})
}

// RegisterRedis probes a Redis connection
func (m *Monitor) RegisterRedis(name string, client *redis.Client) {
	m.Register(name, func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
}

// Check runs every probe and reports degraded when any fails
func (m *Monitor) Check(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	var (
		mu         sync.Mutex
		g          errgroup.Group
		components = make([]ComponentStatus, 0, len(m.checks))
	)
	for name, check := range m.checks {
		name, check := name, check
		g.Go(func() error {
			start := time.Now()
			err := check(ctx)
			status := ComponentStatus{Name: name, Status: StatusOK, LatencyMs: time.Since(start).Milliseconds()}
			if err != nil {
				status.Status = StatusDegraded
				status.Error = err.Error()
				m.logger.Warn("Health check failed", "component", name, "error", err)
			}
			mu.Lock()
			components = append(components, status)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	sort.Slice(components, func(i, j int) bool { return components[i].Name < components[j].Name })

	report := Report{
		Status:     StatusOK,
		Version:    m.version,
		CheckedAt:  time.Now().UTC(),
		Components: components,
	}
	for _, c := range components {
		if c.Status != StatusOK {
			report.Status = StatusDegraded
			break
		}
	}
	return report
}
