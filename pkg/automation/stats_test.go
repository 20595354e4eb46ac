package automation

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tasklane/automation/pkg/models"
)

func TestMemoryStatsRecorder_RollingFormula(t *testing.T) {
	recorder := NewMemoryStatsRecorder()
	rule := &models.AutomationRule{ID: "rule-1"}

	require.NoError(t, recorder.Record(context.Background(), rule, true))
	assert.Equal(t, int64(1), rule.ExecutionCount)
	assert.InDelta(t, 100.0, rule.SuccessRate, 0.001)

	require.NoError(t, recorder.Record(context.Background(), rule, false))
	assert.Equal(t, int64(2), rule.ExecutionCount)
	assert.InDelta(t, 50.0, rule.SuccessRate, 0.001)

	require.NoError(t, recorder.Record(context.Background(), rule, true))
	assert.Equal(t, int64(3), rule.ExecutionCount)
	assert.InDelta(t, 66.666, rule.SuccessRate, 0.01)
}

func TestMemoryStatsRecorder_PicksUpExistingAggregate(t *testing.T) {
	recorder := NewMemoryStatsRecorder()

	// A rule loaded from storage with history continues from it.
	rule := &models.AutomationRule{ID: "rule-1", ExecutionCount: 9, SuccessRate: 100}

	require.NoError(t, recorder.Record(context.Background(), rule, false))
	assert.Equal(t, int64(10), rule.ExecutionCount)
	assert.InDelta(t, 90.0, rule.SuccessRate, 0.001)
}

func TestMemoryStatsRecorder_ConcurrentUpdates(t *testing.T) {
	recorder := NewMemoryStatsRecorder()
	rule := &models.AutomationRule{ID: "rule-1"}

	var wg sync.WaitGroup

	for range 100 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_ = recorder.Record(context.Background(), rule, true)
		}()
	}

	wg.Wait()

	assert.Equal(t, int64(100), rule.ExecutionCount)
	assert.InDelta(t, 100.0, rule.SuccessRate, 0.001)
}
