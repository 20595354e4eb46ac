package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/tasklane/automation/pkg/persistence"
	"github.com/tasklane/automation/pkg/persistence/file"
	"github.com/tasklane/automation/pkg/persistence/postgresql"
)

// NewPersistence picks the store from the database URL scheme. postgres://
// and postgresql:// select the SQL store; anything else is treated as a
// directory path for the file store.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch parseProvider(databaseURL) {
	case "postgresql":
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	default:
		return file.NewPersistence(databaseURL), nil
	}
}

func parseProvider(databaseURL string) string {
	scheme, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	switch scheme {
	case "postgres", "postgresql":
		return "postgresql"
	default:
		return "file"
	}
}
