// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"github.com/vicarhk/vicarapi/internal/app/store/audit"
	"github.com/vicarhk/vicarapi/internal/app/store/ratelimit"
	"github.com/vicarhk/vicarapi/internal/app/system/tasks"
	"github.com/vicarhk/vicarapi/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Startup runs once after DB connections and schema/index setup are complete,
// but before the HTTP handler is built and requests are served.
//
// It applies the configured database timeouts and starts background
// maintenance. Returning a non-nil error aborts startup.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
	})
	logger.Info("database timeouts configured",
		zap.Duration("short", timeouts.Short()),
		zap.Duration("medium", timeouts.Medium()),
		zap.Duration("long", timeouts.Long()),
	)

	startTaskRunner(deps, appCfg, logger)
	return nil
}

// taskRunner is the global task runner instance, used for graceful shutdown.
var taskRunner *tasks.Runner

// startTaskRunner initializes and starts the background task runner.
func startTaskRunner(deps DBDeps, appCfg AppConfig, logger *zap.Logger) {
	taskRunner = tasks.New(logger)

	// Counters older than the longest window can no longer refuse anyone.
	retain := appCfg.LoginRateLimitWindow
	if appCfg.ContactRateLimitWindow > retain {
		retain = appCfg.ContactRateLimitWindow
	}
	taskRunner.Register(tasks.RateLimitCleanupJob(ratelimit.New(deps.MongoDatabase), retain, logger))

	if appCfg.AuditRetention > 0 {
		taskRunner.Register(tasks.AuditRetentionJob(audit.New(deps.MongoDatabase), appCfg.AuditRetention, logger))
	}

	taskRunner.Start()
}
