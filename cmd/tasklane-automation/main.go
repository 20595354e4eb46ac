// Command tasklane-automation runs the workflow and automation engine as a
// single service: REST API, scheduled rule scanner, and event publishing.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/tasklane/automation/pkg/automation"
	"github.com/tasklane/automation/pkg/cmd"
	"github.com/tasklane/automation/pkg/issues"
	"github.com/tasklane/automation/pkg/log"
	"github.com/tasklane/automation/pkg/otelhelper"
	"github.com/tasklane/automation/pkg/transitions"
	"github.com/tasklane/automation/pkg/web"
	"github.com/tasklane/automation/pkg/workflow"
	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"
)

const defaultPort = 9090

func main() {
	command := &cli.Command{
		Name:                  "tasklane-automation",
		Usage:                 "Workflow automation engine for Tasklane projects",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database URL (postgres://... or a directory path for file storage)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma-separated Kafka broker list",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for cross-instance rule statistics",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "issue-service-url",
				Usage:   "Base URL of the issue service",
				Sources: cli.EnvVars("ISSUE_SERVICE_URL"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Enable OTLP trace export",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: run,
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		slog.Error("tasklane-automation failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	logger := log.WithModule("automation")
	logger.InfoContext(ctx, "Initializing Tasklane automation engine")

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var tracer trace.Tracer

	if command.Bool("tracing") {
		var err error

		tracer, err = otelhelper.NewTracer(ctx, "tasklane-automation")
		if err != nil {
			return fmt.Errorf("failed to initialize tracer: %w", err)
		}
	}

	persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return fmt.Errorf("failed to initialize persistence: %w", err)
	}

	defer func() {
		if err := persistence.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	eventBus, err := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize event bus: %w", err)
	}

	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	issueService, err := issues.NewClient(command.String("issue-service-url"), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize issue client: %w", err)
	}

	registry, err := cmd.NewRegistry(logger, issueService, eventBus)
	if err != nil {
		return fmt.Errorf("failed to initialize registry: %w", err)
	}

	var stats automation.StatsRecorder

	if redisURL := command.String("redis-url"); redisURL != "" {
		options, err := redis.ParseURL(redisURL)
		if err != nil {
			return fmt.Errorf("invalid redis URL: %w", err)
		}

		stats = automation.NewRedisStatsRecorder(redis.NewClient(options))
	}

	if err := transitions.Seed(ctx, persistence); err != nil {
		return fmt.Errorf("failed to seed status categories: %w", err)
	}

	runner := workflow.NewRunner(logger)
	orchestrator := workflow.NewOrchestrator(persistence, runner, eventBus, tracer, logger)
	engine := automation.NewEngine(persistence, registry, stats, eventBus, tracer, logger)
	machine := transitions.NewMachine(persistence, logger)

	scanner := automation.NewScanner(engine, persistence, logger)
	if err := scanner.Start(); err != nil {
		return fmt.Errorf("failed to start rule scanner: %w", err)
	}

	defer scanner.Stop()

	handlers := web.NewHandlers(persistence, orchestrator, engine, machine, logger)
	app := web.NewApp(handlers)

	go func() {
		<-ctx.Done()

		logger.Info("Shutting down API server")

		if err := app.Shutdown(); err != nil {
			logger.Error("Failed to shut down API server", "error", err)
		}
	}()

	logger.InfoContext(ctx, "Starting API server", "port", command.Int("port"))

	if err := app.Listen(":" + strconv.Itoa(command.Int("port"))); err != nil {
		return fmt.Errorf("API server failed: %w", err)
	}

	return nil
}
