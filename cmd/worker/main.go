package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/programme-lv/judgeworker/conf"
	"github.com/programme-lv/judgeworker/logger"
	"github.com/programme-lv/judgeworker/opshttp"
	"github.com/programme-lv/judgeworker/scheduler"
	"github.com/programme-lv/judgeworker/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, awsCfg, err := conf.LoadFromEnvironment(ctx)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	log := logger.New("judgeworker", cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log.Logger)

	orchestrator := worker.Assemble(cfg, conf.NewClients(awsCfg))

	var ops *opshttp.OpsServer
	if cfg.OpsAddr != "" {
		ops = opshttp.NewOpsServer(orchestrator, log, cfg.OpsAllowedOrigins)
		go func() {
			if err := ops.Start(cfg.OpsAddr); err != nil {
				slog.Error("ops server stopped", "error", err)
			}
		}()
	}

	// a cycle in flight at shutdown runs to completion
	periodic := scheduler.NewPeriodic(nil, cfg.PollInterval, func(ctx context.Context) error {
		_, err := orchestrator.RunCycle(context.WithoutCancel(ctx))
		return err
	})

	slog.Info("worker started",
		"queue", cfg.SqsQueueURL,
		"judge", cfg.JudgeHostURL,
		"dispatch_mode", cfg.DispatchMode,
		"poll_interval", cfg.PollInterval)

	if err := periodic.Run(ctx); err != nil {
		slog.Error("scheduler failed", "error", err)
	}

	if ops != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := ops.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to shut down ops server", "error", err)
		}
	}
	slog.Info("worker stopped")
}
