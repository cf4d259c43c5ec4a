package reconciler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cuemby/cassandra-scheduler/pkg/events"
	"github.com/cuemby/cassandra-scheduler/pkg/log"
	"github.com/cuemby/cassandra-scheduler/pkg/metrics"
	"github.com/cuemby/cassandra-scheduler/pkg/task"
	"github.com/cuemby/cassandra-scheduler/pkg/types"
	"github.com/rs/zerolog"
)

// ErrStopped is returned by Submit once the reconciler has stopped
var ErrStopped = errors.New("reconciler stopped")

// DefaultQueueSize is the capacity of the status queue
const DefaultQueueSize = 256

// TaskRegistry is the part of the registry the reconciler drives
type TaskRegistry interface {
	UpdateFromStatus(status types.TaskStatus) error
	GetTasksToRepair() []task.Task
	GetTerminatedTasks() []task.Task
}

// Publisher receives repair events
type Publisher interface {
	Publish(event *events.Event)
}

// Reconciler feeds status reports into the registry and periodically
// re-evaluates which tasks need repair
type Reconciler struct {
	registry  TaskRegistry
	publisher Publisher
	interval  time.Duration
	statusCh  chan types.TaskStatus
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	logger    zerolog.Logger

	mu      sync.Mutex
	flagged map[string]bool
}

// NewReconciler creates a new reconciler. publisher may be nil.
func NewReconciler(registry TaskRegistry, publisher Publisher, interval time.Duration) *Reconciler {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Reconciler{
		registry:  registry,
		publisher: publisher,
		interval:  interval,
		statusCh:  make(chan types.TaskStatus, DefaultQueueSize),
		stopCh:    make(chan struct{}),
		logger:    log.WithComponent("reconciler"),
		flagged:   make(map[string]bool),
	}
}

// Start begins the reconciliation loop
func (r *Reconciler) Start() {
	r.wg.Add(1)
	go r.run()
}

// Stop stops the reconciler and waits for the loop to exit. Reports still
// queued are dropped.
func (r *Reconciler) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	r.wg.Wait()
}

// Submit queues a status report. It blocks while the queue is full, until
// ctx is done or the reconciler stops.
func (r *Reconciler) Submit(ctx context.Context, status types.TaskStatus) error {
	select {
	case <-r.stopCh:
		return ErrStopped
	default:
	}

	select {
	case r.statusCh <- status:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-r.stopCh:
		return ErrStopped
	}
}

// run is the main reconciliation loop
func (r *Reconciler) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case status := <-r.statusCh:
			r.apply(status)
		case <-ticker.C:
			r.Reconcile()
		case <-r.stopCh:
			return
		}
	}
}

func (r *Reconciler) apply(status types.TaskStatus) {
	if err := r.registry.UpdateFromStatus(status); err != nil {
		r.logger.Error().Err(err).
			Str("task_id", status.TaskID).
			Str("state", string(status.State)).
			Msg("Failed to apply status update")
	}
}

// Reconcile performs one reconciliation cycle. A task is announced with a
// needs_repair event the first time it is flagged; it is announced again
// only after it has left the repair set.
func (r *Reconciler) Reconcile() {
	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDuration(metrics.ReconciliationDuration)
		metrics.ReconciliationCyclesTotal.Inc()
	}()

	repair := r.registry.GetTasksToRepair()
	terminated := r.registry.GetTerminatedTasks()
	metrics.TasksToRepair.Set(float64(len(repair)))
	metrics.TasksTerminated.Set(float64(len(terminated)))

	r.mu.Lock()
	defer r.mu.Unlock()

	current := make(map[string]bool, len(repair))
	for _, t := range repair {
		current[t.ID()] = true
		if r.flagged[t.ID()] {
			continue
		}

		status := t.Status()
		r.logger.Warn().
			Str("task_name", t.Name()).
			Str("task_id", t.ID()).
			Str("state", string(status.State)).
			Msg("Task needs repair")

		if r.publisher != nil {
			event := events.NewEvent(events.EventTaskNeedsRepair, t.Name(), t.ID(), status.Message)
			event.Metadata = map[string]string{
				"kind":  string(t.Kind()),
				"state": string(status.State),
			}
			r.publisher.Publish(event)
		}
	}
	r.flagged = current
}
