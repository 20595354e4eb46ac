package automation

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/tasklane/automation/pkg/models"
)

// StatsRecorder applies one execution attempt to a rule's rolling aggregate.
// Implementations must serialize concurrent updates of the same rule;
// read-modify-write without atomicity would let concurrent triggers race.
type StatsRecorder interface {
	Record(ctx context.Context, rule *models.AutomationRule, success bool) error
}

// MemoryStatsRecorder serializes stat updates behind a process-wide mutex.
// Suitable for single-instance deployments and tests.
type MemoryStatsRecorder struct {
	mu sync.Mutex
}

func NewMemoryStatsRecorder() *MemoryStatsRecorder {
	return &MemoryStatsRecorder{}
}

// Record folds one attempt into the rolling success rate:
// newRate = ((oldCount * oldRate/100) + outcome) / newCount * 100.
// The aggregate approximates history without retaining it.
func (r *MemoryStatsRecorder) Record(_ context.Context, rule *models.AutomationRule, success bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	oldSuccesses := float64(rule.ExecutionCount) * rule.SuccessRate / 100

	if success {
		oldSuccesses++
	}

	rule.ExecutionCount++
	rule.SuccessRate = oldSuccesses / float64(rule.ExecutionCount) * 100

	return nil
}

// RedisStatsRecorder keeps attempt and success counters in Redis, so updates
// stay atomic across engine instances sharing the same rule store.
type RedisStatsRecorder struct {
	client *redis.Client
}

func NewRedisStatsRecorder(client *redis.Client) *RedisStatsRecorder {
	return &RedisStatsRecorder{client: client}
}

func (r *RedisStatsRecorder) Record(ctx context.Context, rule *models.AutomationRule, success bool) error {
	attemptsKey := fmt.Sprintf("tasklane:automation:rule:%s:attempts", rule.ID)
	successesKey := fmt.Sprintf("tasklane:automation:rule:%s:successes", rule.ID)

	pipe := r.client.TxPipeline()
	attemptsCmd := pipe.Incr(ctx, attemptsKey)

	var successesCmd *redis.IntCmd
	if success {
		successesCmd = pipe.Incr(ctx, successesKey)
	} else {
		successesCmd = pipe.IncrBy(ctx, successesKey, 0)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to update rule counters: %w", err)
	}

	attempts := attemptsCmd.Val()
	successes := successesCmd.Val()

	rule.ExecutionCount = attempts
	rule.SuccessRate = float64(successes) / float64(attempts) * 100

	return nil
}
