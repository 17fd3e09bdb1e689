package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"tripcast-service/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitor_AllHealthy(t *testing.T) {
	m := NewMonitor("1.2.3", time.Second, logger.NewNopLogger())
	m.Register("mongodb", func(ctx context.Context) error { return nil })
	m.Register("redis", func(ctx context.Context) error { return nil })

	report := m.Check(context.Background())
	assert.Equal(t, StatusOK, report.Status)
	assert.Equal(t, "1.2.3", report.Version)
	require.Len(t, report.Components, 2)
	assert.Equal(t, "mongodb", report.Components[0].Name)
}

func TestMonitor_DegradedOnFailureOrTimeout(t *testing.T) {
	m := NewMonitor("dev", 50*time.Millisecond, logger.NewNopLogger())
	m.Register("mongodb", func(ctx context.Context) error { return errors.New("no primary") })
	m.Register("redis", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	report := m.Check(context.Background())
	assert.Equal(t, StatusDegraded, report.Status)
	for _, c := range report.Components {
		assert.Equal(t, StatusDegraded, c.Status)
		assert.NotEmpty(t, c.Error)
	}
}

func TestMonitor_NoChecks(t *testing.T) {
	report := NewMonitor("dev", time.Second, logger.NewNopLogger()).Check(context.Background())
	assert.Equal(t, StatusOK, report.Status)
	assert.Empty(t, report.Components)
}
