package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/crestvault/crestvault/app/dto"
	"github.com/crestvault/crestvault/config"
	"github.com/crestvault/crestvault/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProfitFlow struct {
	runs atomic.Int32
}

func (f *stubProfitFlow) RunDailySweep(ctx context.Context) (*dto.ProfitSweepResult, error) {
	f.runs.Add(1)
	return &dto.ProfitSweepResult{RanAt: utils.UTCNow(), UsersProcessed: 1, TotalProfit: 5}, nil
}

func TestRunOnceSkipsSecondRunSameDay(t *testing.T) {
	flow := &stubProfitFlow{}
	s := NewProfitScheduler(flow, config.SchedulerConfig{
		ProfitInterval: time.Hour,
		SkipIfRanToday: true,
	}, nil)

	s.runOnce(context.Background())
	require.Equal(t, int32(1), flow.runs.Load())

	// Same UTC day, guard holds
	s.runOnce(context.Background())
	assert.Equal(t, int32(1), flow.runs.Load())
}

func TestRunOnceAllowsRerunWhenGuardDisabled(t *testing.T) {
	flow := &stubProfitFlow{}
	s := NewProfitScheduler(flow, config.SchedulerConfig{
		ProfitInterval: time.Hour,
		SkipIfRanToday: false,
	}, nil)

	s.runOnce(context.Background())
	s.runOnce(context.Background())
	assert.Equal(t, int32(2), flow.runs.Load())
}

func TestStartRunsImmediatelyAndStops(t *testing.T) {
	flow := &stubProfitFlow{}
	s := NewProfitScheduler(flow, config.SchedulerConfig{
		ProfitInterval: time.Hour,
	}, nil)

	stop := s.Start(context.Background())
	defer stop()

	deadline := time.Now().Add(2 * time.Second)
	for flow.runs.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, int32(1), flow.runs.Load())
}
