package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuemby/cassandra-scheduler/pkg/api"
	"github.com/cuemby/cassandra-scheduler/pkg/config"
	"github.com/cuemby/cassandra-scheduler/pkg/events"
	"github.com/cuemby/cassandra-scheduler/pkg/log"
	"github.com/cuemby/cassandra-scheduler/pkg/manager"
	"github.com/cuemby/cassandra-scheduler/pkg/metrics"
	"github.com/cuemby/cassandra-scheduler/pkg/reconciler"
	"github.com/cuemby/cassandra-scheduler/pkg/registry"
	"github.com/cuemby/cassandra-scheduler/pkg/scheduler"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler",
	Long: `Run the scheduler: load the task registry from the configured store,
plan daemons, apply status reports and serve the HTTP and gRPC endpoints
until interrupted.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("framework-id", "", "Framework ID assigned by the orchestrator")
	serveCmd.Flags().Int("nodes", 0, "Number of Cassandra nodes (overrides config)")
	serveCmd.Flags().String("http-addr", "", "HTTP listen address (overrides config)")
	serveCmd.Flags().String("grpc-addr", "", "gRPC health listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("nodes") {
		cfg.Nodes, _ = flags.GetInt("nodes")
	}
	if flags.Changed("http-addr") {
		cfg.API.HTTPAddr, _ = flags.GetString("http-addr")
	}
	if flags.Changed("grpc-addr") {
		cfg.API.GRPCAddr, _ = flags.GetString("grpc-addr")
	}

	logger := log.WithComponent("serve")
	metrics.SetVersion(Version)
	metrics.RegisterComponent("store", false, "opening")
	metrics.RegisterComponent("registry", false, "loading")

	backend, mgr, err := openBackend(cfg)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Storage.Backend, err)
	}
	metrics.UpdateComponent("store", true, cfg.Storage.Backend)

	identity, err := config.NewIdentityManager(cfg.Service, backend)
	if err != nil {
		backend.Close()
		return err
	}
	if id, _ := flags.GetString("framework-id"); id != "" && id != identity.Get().FrameworkID {
		if err := identity.Register(id); err != nil {
			backend.Close()
			return fmt.Errorf("failed to register framework ID: %w", err)
		}
	}

	broker := events.NewBroker()
	broker.Start()

	reg, err := registry.New(identity, config.NewManager(cfg.Daemon), registry.NewMapStore(backend),
		registry.WithRepairPolicy(cfg.RepairPolicy()),
		registry.WithPublisher(broker),
	)
	if err != nil {
		broker.Stop()
		backend.Close()
		logger.Error().Err(err).Msg("Task registry failed to load")
		return err
	}
	metrics.UpdateComponent("registry", true, fmt.Sprintf("%d tasks", reg.Len()))
	if err := reg.Start(); err != nil {
		return err
	}

	var raftSource metrics.RaftSource
	schedOpts := []scheduler.Option{}
	apiOpts := []api.Option{api.WithVersion(Version)}
	if mgr != nil {
		raftSource = mgr
		schedOpts = append(schedOpts, scheduler.WithActive(mgr.IsLeader))
		apiOpts = append(apiOpts, api.WithClusterInfo(mgr))
	}

	collector := metrics.NewCollector(reg, raftSource, cfg.MetricsInterval())
	rec := reconciler.NewReconciler(reg, broker, cfg.ReconcileInterval())
	sched := scheduler.NewScheduler(reg, cfg.Nodes, cfg.ScheduleInterval(), schedOpts...)
	httpServer := api.NewServer(reg, append(apiOpts, api.WithStatusSink(rec))...)
	grpcServer := api.NewGRPCServer()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	collector.Start()
	rec.Start()
	sched.Start()

	if cfg.API.HTTPAddr != "" {
		g.Go(func() error { return httpServer.Start(cfg.API.HTTPAddr) })
	}
	if cfg.API.GRPCAddr != "" {
		g.Go(func() error { return grpcServer.Start(cfg.API.GRPCAddr) })
	}
	grpcServer.SetServing(true)

	g.Go(func() error {
		logEvents(ctx, broker)
		return nil
	})
	if mgr != nil {
		g.Go(func() error {
			followLeadership(ctx, mgr, reg)
			return nil
		})
	}

	logger.Info().
		Str("store", cfg.Storage.Backend).
		Int("nodes", cfg.Nodes).
		Int("tasks", reg.Len()).
		Msg("Scheduler running")

	// Shutdown once a signal arrives or a server fails
	g.Go(func() error {
		<-ctx.Done()
		logger.Info().Msg("Shutting down")
		grpcServer.SetServing(false)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		var result *multierror.Error
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			result = multierror.Append(result, fmt.Errorf("http server: %w", err))
		}
		grpcServer.Stop()
		return result.ErrorOrNil()
	})

	err = g.Wait()

	sched.Stop()
	rec.Stop()
	collector.Stop()
	broker.Stop()

	var result *multierror.Error
	if err != nil && !errors.Is(err, context.Canceled) {
		result = multierror.Append(result, err)
	}
	if err := reg.Stop(); err != nil {
		result = multierror.Append(result, fmt.Errorf("registry: %w", err))
	}
	if err := backend.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("store: %w", err))
	}
	if result.ErrorOrNil() == nil {
		logger.Info().Msg("Shutdown complete")
	}
	return result.ErrorOrNil()
}

// logEvents writes registry events to the log until ctx is done
func logEvents(ctx context.Context, broker *events.Broker) {
	logger := log.WithComponent("events")
	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	for {
		select {
		case event, ok := <-sub:
			if !ok {
				return
			}
			logger.Debug().
				Str("type", string(event.Type)).
				Str("task_name", event.TaskName).
				Str("task_id", event.TaskID).
				Str("message", event.Message).
				Msg("Event")
		case <-ctx.Done():
			return
		}
	}
}

// followLeadership reloads the registry whenever this replica becomes the
// raft leader, since followers only see replicated writes in the store
func followLeadership(ctx context.Context, mgr *manager.Manager, reg *registry.Registry) {
	logger := log.WithComponent("raft")
	leaderCh := mgr.LeaderCh()

	for {
		select {
		case isLeader := <-leaderCh:
			if !isLeader {
				logger.Info().Str("leader", mgr.LeaderAddr()).Msg("Lost leadership")
				continue
			}
			if err := reg.Reload(); err != nil {
				logger.Error().Err(err).Msg("Failed to reload tasks after gaining leadership")
				continue
			}
			logger.Info().Int("tasks", reg.Len()).Msg("Gained leadership")
		case <-ctx.Done():
			return
		}
	}
}
