package automation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tasklane/automation/pkg/models"
)

func TestScan_ExecutesActiveScheduledRules(t *testing.T) {
	f := newEngineFixture(t)

	active := baseRule()
	active.ID = "rule-scheduled"
	active.TriggerType = models.TriggerTypeScheduled
	active.TriggerConfig = nil
	f.saveRule(t, active)

	inactive := baseRule()
	inactive.ID = "rule-dormant"
	inactive.TriggerType = models.TriggerTypeScheduled
	inactive.Status = models.RuleStatusInactive
	f.saveRule(t, inactive)

	nonScheduled := baseRule()
	nonScheduled.ID = "rule-useraction"
	f.saveRule(t, nonScheduled)

	scanner := NewScanner(f.engine, f.persistence, testLogger())
	scanner.scan(context.Background())

	// Only the active scheduled rule fired.
	require.Len(t, f.notify.runs, 1)

	stored, err := f.persistence.Rules().GetByID(context.Background(), "rule-scheduled")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.ExecutionCount)

	dormant, err := f.persistence.Rules().GetByID(context.Background(), "rule-dormant")
	require.NoError(t, err)
	assert.Zero(t, dormant.ExecutionCount)
}

func TestScan_ContinuesPastFailingRules(t *testing.T) {
	f := newEngineFixture(t)
	f.notify.err = errors.New("smtp down")

	first := baseRule()
	first.ID = "rule-a"
	first.TriggerType = models.TriggerTypeScheduled
	f.saveRule(t, first)

	second := baseRule()
	second.ID = "rule-b"
	second.TriggerType = models.TriggerTypeScheduled
	second.Actions = []models.RuleAction{
		{ID: "a1", Type: "assign_user", Order: 1},
	}
	f.saveRule(t, second)

	scanner := NewScanner(f.engine, f.persistence, testLogger())
	scanner.scan(context.Background())

	// rule-a's action failed; rule-b still ran.
	require.Len(t, f.assign.runs, 1)

	stored, err := f.persistence.Rules().GetByID(context.Background(), "rule-a")
	require.NoError(t, err)
	assert.Contains(t, stored.LastError, "smtp down")
}

func TestScanner_StartStop(t *testing.T) {
	f := newEngineFixture(t)

	scanner := NewScanner(f.engine, f.persistence, testLogger())
	require.NoError(t, scanner.Start())
	scanner.Stop()
}
