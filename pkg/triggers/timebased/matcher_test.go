package timebased

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tasklane/automation/pkg/models"
)

func fixedMatcher(now time.Time) *Matcher {
	m := NewMatcher()
	m.Now = func() time.Time { return now }

	return m
}

func TestMatcher_EqualsTolerates60Seconds(t *testing.T) {
	target := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	config := map[string]any{"time": target.Format(time.RFC3339), "comparison": "equals"}
	ctx := context.Background()

	within, _ := fixedMatcher(target.Add(45 * time.Second)).Matches(ctx, config, models.ExecutionContext{})
	assert.True(t, within)

	within, _ = fixedMatcher(target.Add(-45 * time.Second)).Matches(ctx, config, models.ExecutionContext{})
	assert.True(t, within)

	outside, reason := fixedMatcher(target.Add(2 * time.Minute)).Matches(ctx, config, models.ExecutionContext{})
	assert.False(t, outside)
	assert.Contains(t, reason, "within")
}

func TestMatcher_BeforeAfter(t *testing.T) {
	target := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	before := map[string]any{"time": target.Format(time.RFC3339), "comparison": "before"}
	after := map[string]any{"time": target.Format(time.RFC3339), "comparison": "after"}

	got, _ := fixedMatcher(target.Add(-time.Hour)).Matches(ctx, before, models.ExecutionContext{})
	assert.True(t, got)

	got, _ = fixedMatcher(target.Add(time.Hour)).Matches(ctx, before, models.ExecutionContext{})
	assert.False(t, got)

	got, _ = fixedMatcher(target.Add(time.Hour)).Matches(ctx, after, models.ExecutionContext{})
	assert.True(t, got)
}

func TestMatcher_BadConfig(t *testing.T) {
	matcher := NewMatcher()
	ctx := context.Background()

	got, reason := matcher.Matches(ctx, map[string]any{}, models.ExecutionContext{})
	assert.False(t, got)
	assert.Contains(t, reason, "no time")

	got, reason = matcher.Matches(ctx, map[string]any{"time": "yesterday"}, models.ExecutionContext{})
	assert.False(t, got)
	assert.Contains(t, reason, "unparseable")

	got, reason = matcher.Matches(ctx, map[string]any{
		"time": time.Now().UTC().Format(time.RFC3339), "comparison": "around",
	}, models.ExecutionContext{})
	assert.False(t, got)
	assert.Contains(t, reason, "unknown comparison")
}
