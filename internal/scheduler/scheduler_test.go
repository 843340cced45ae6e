package scheduler

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexhub/orchestrator-gateway/internal/config"
	"github.com/cortexhub/orchestrator-gateway/internal/metrics"
)

type countingProber struct{ calls int }

func (p *countingProber) CheckAll(context.Context) { p.calls++ }

type fixedCounter int

func (c fixedCounter) Len() int { return int(c) }

func TestNewScheduler_Jobs(t *testing.T) {
	s, err := NewScheduler(config.SchedulerConfig{HealthSpec: "@every 30s", SessionSpec: "@every 1m"}, &countingProber{}, fixedCounter(0))
	require.NoError(t, err)
	assert.Equal(t, 2, s.Jobs())

	s.Start()
	s.Stop()
}

func TestNewScheduler_SkipsMissingJobs(t *testing.T) {
	s, err := NewScheduler(config.SchedulerConfig{HealthSpec: "@every 30s"}, nil, fixedCounter(0))
	require.NoError(t, err)
	assert.Equal(t, 0, s.Jobs())
}

func TestNewScheduler_BadSpec(t *testing.T) {
	_, err := NewScheduler(config.SchedulerConfig{HealthSpec: "every now and then"}, &countingProber{}, nil)
	assert.Error(t, err)
}

func TestRecordSessions(t *testing.T) {
	RecordSessions(fixedCounter(3))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.ActiveSessions))
}
