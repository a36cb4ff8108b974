package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"ledgerly/internal/interfaces/scheduler"
	"ledgerly/internal/shared/config"
	"ledgerly/internal/shared/telemetry"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry: metrics always, trace export only when enabled
	telemetryCfg := telemetry.Config{
		ServiceName: cfg.Telemetry.ServiceName,
		Environment: cfg.Aggregator.Environment,
	}
	if cfg.Telemetry.Enabled {
		telemetryCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	}
	tel, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			log.Printf("Telemetry shutdown error: %v", err)
		}
	}()

	deps, err := NewDependencies(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	deps.SyncListener.Start(ctx)

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = scheduler.NewScheduler(scheduler.Config{
			ScheduleTimes: cfg.Scheduler.ScheduleTimes,
			WorkerCount:   cfg.Scheduler.WorkerCount,
			JobDelay:      cfg.Scheduler.JobDelay,
			JobTimeout:    cfg.Scheduler.JobTimeout,
			QueueSize:     cfg.Scheduler.QueueSize,
			RunOnStartup:  cfg.Scheduler.RunOnStartup,
			JobProvider:   scheduler.NewFamilyJobProvider(deps.BankAccountRepo, deps.BankSync),
		})
		if err != nil {
			return err
		}
		sched.Start()
	} else {
		log.Println("Scheduler is disabled")
	}

	handler := SetupRoutes(deps, tel, cfg)
	srv, redirectSrv := StartServers(NewServerConfigFromConfig(handler, cfg))

	<-ctx.Done()

	deps.SyncListener.Stop()
	GracefulShutdown(srv, redirectSrv, sched, 30*time.Second)
	return nil
}
