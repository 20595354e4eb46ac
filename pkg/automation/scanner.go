package automation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
	"github.com/tasklane/automation/pkg/models"
	"github.com/tasklane/automation/pkg/persistence"
)

// scanSchedule fires the scheduled-rule scan once per minute.
const scanSchedule = "* * * * *"

// Scanner periodically executes every active scheduled rule. Scans are
// single-flight: a scan still running when the next tick fires makes the
// tick a no-op instead of overlapping.
type Scanner struct {
	cron        *cron.Cron
	engine      *Engine
	persistence persistence.Persistence
	logger      *slog.Logger
}

func NewScanner(engine *Engine, p persistence.Persistence, logger *slog.Logger) *Scanner {
	logger = logger.With("module", "scheduled_scanner")

	cronLogger := cron.PrintfLogger(slogPrintf{logger})

	return &Scanner{
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cronLogger),
			cron.Recover(cronLogger),
		)),
		engine:      engine,
		persistence: p,
		logger:      logger,
	}
}

// Start registers the scan job and starts the scheduler.
func (s *Scanner) Start() error {
	if _, err := s.cron.AddFunc(scanSchedule, func() {
		s.scan(context.Background())
	}); err != nil {
		return fmt.Errorf("failed to schedule rule scan: %w", err)
	}

	s.cron.Start()
	s.logger.Info("scheduled rule scanner started", "schedule", scanSchedule)

	return nil
}

// Stop halts the scheduler and waits for a running scan to finish.
func (s *Scanner) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduled rule scanner stopped")
}

// scan executes every active scheduled rule with an empty context. Per-rule
// failures are logged and the scan moves on.
func (s *Scanner) scan(ctx context.Context) {
	rules, err := s.persistence.Rules().ListScheduled(ctx)
	if err != nil {
		s.logger.Error("failed to list scheduled rules", "error", err)

		return
	}

	s.logger.Debug("scanning scheduled rules", "count", len(rules))

	for _, rule := range rules {
		executionCtx := models.ExecutionContext{
			TriggerEvent: "scheduled_scan",
			ProjectID:    rule.ProjectID,
		}

		result, err := s.engine.ExecuteRule(ctx, rule.ID, executionCtx)
		if err != nil {
			s.logger.Error("scheduled rule execution failed", "rule_id", rule.ID, "error", err)

			continue
		}

		if !result.Success {
			s.logger.Debug("scheduled rule declined", "rule_id", rule.ID, "reason", result.Error)
		}
	}
}

// slogPrintf adapts slog to cron's printf-style logger.
type slogPrintf struct {
	logger *slog.Logger
}

func (l slogPrintf) Printf(format string, args ...any) {
	l.logger.Info(fmt.Sprintf(format, args...))
}
