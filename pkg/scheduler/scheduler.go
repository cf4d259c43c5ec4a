package scheduler

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cuemby/cassandra-scheduler/pkg/log"
	"github.com/cuemby/cassandra-scheduler/pkg/metrics"
	"github.com/cuemby/cassandra-scheduler/pkg/task"
	"github.com/cuemby/cassandra-scheduler/pkg/types"
	"github.com/rs/zerolog"
)

// DaemonRegistry is the part of the registry the scheduler plans against
type DaemonRegistry interface {
	GetDaemons() map[string]*task.DaemonTask
	GetOrCreateDaemon(name string) (*task.DaemonTask, error)
	NeedsConfigUpdate(daemon *task.DaemonTask) bool
	ReconfigureDaemon(daemon *task.DaemonTask) (*task.DaemonTask, error)
}

// Scheduler keeps one daemon record per configured node and rolls
// configuration changes through them one daemon at a time
type Scheduler struct {
	registry DaemonRegistry
	nodes    int
	active   func() bool
	interval time.Duration
	mu       sync.Mutex
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	logger   zerolog.Logger
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithActive makes cycles run only while active returns true, e.g. while
// this replica holds raft leadership
func WithActive(active func() bool) Option {
	return func(s *Scheduler) { s.active = active }
}

// NewScheduler creates a new scheduler for a cluster of nodes daemons
func NewScheduler(registry DaemonRegistry, nodes int, interval time.Duration, opts ...Option) *Scheduler {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	s := &Scheduler{
		registry: registry,
		nodes:    nodes,
		active:   func() bool { return true },
		interval: interval,
		stopCh:   make(chan struct{}),
		logger:   log.WithComponent("scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins the scheduler loop
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.run()
}

// Stop stops the scheduler and waits for the current cycle to finish
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

// run is the main scheduler loop
func (s *Scheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if s.active() {
			if err := s.Schedule(); err != nil {
				s.logger.Error().Err(err).Msg("Scheduling cycle failed")
			}
		}

		select {
		case <-ticker.C:
		case <-s.stopCh:
			return
		}
	}
}

// Schedule performs one scheduling cycle: it records a daemon for every
// node that has none, then reconfigures at most one out-of-date daemon
func (s *Scheduler) Schedule() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.SchedulingLatency)

	existing := s.registry.GetDaemons()
	for i := 0; i < s.nodes; i++ {
		name := task.DaemonName(i)
		if _, ok := existing[name]; ok {
			continue
		}
		daemon, err := s.registry.GetOrCreateDaemon(name)
		if err != nil {
			return fmt.Errorf("failed to create daemon %s: %w", name, err)
		}
		metrics.DaemonsCreated.Inc()
		s.logger.Info().Str("task_name", name).Str("task_id", daemon.ID()).Msg("Created daemon")
	}

	daemons := s.registry.GetDaemons()
	if busy := restarting(daemons); busy != "" {
		s.logger.Debug().Str("task_name", busy).Msg("Daemon restarting, deferring reconfiguration")
		return nil
	}

	daemon := firstOutdated(daemons, s.registry.NeedsConfigUpdate)
	if daemon == nil {
		return nil
	}
	updated, err := s.registry.ReconfigureDaemon(daemon)
	if err != nil {
		return fmt.Errorf("failed to reconfigure daemon %s: %w", daemon.Name(), err)
	}
	metrics.DaemonsReconfigured.Inc()
	s.logger.Info().
		Str("task_name", updated.Name()).
		Str("task_id", updated.ID()).
		Msg("Rolled configuration to daemon")
	return nil
}

// sortedDaemons orders daemons by index, then by name for unindexed names
func sortedDaemons(daemons map[string]*task.DaemonTask) []*task.DaemonTask {
	out := make([]*task.DaemonTask, 0, len(daemons))
	for _, d := range daemons {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		a, aok := out[i].Index()
		b, bok := out[j].Index()
		if aok && bok && a != b {
			return a < b
		}
		if aok != bok {
			return aok
		}
		return out[i].Name() < out[j].Name()
	})
	return out
}

// restarting returns the name of a daemon that has been placed on an agent
// but is not yet running, or "" if there is none
func restarting(daemons map[string]*task.DaemonTask) string {
	for _, d := range sortedDaemons(daemons) {
		if !d.Launch().Bound() {
			continue
		}
		switch d.Status().State {
		case types.TaskStateStaging, types.TaskStateStarting:
			return d.Name()
		}
	}
	return ""
}

// firstOutdated returns the lowest-indexed daemon that needs a config update
func firstOutdated(daemons map[string]*task.DaemonTask, outdated func(*task.DaemonTask) bool) *task.DaemonTask {
	for _, d := range sortedDaemons(daemons) {
		if outdated(d) {
			return d
		}
	}
	return nil
}
