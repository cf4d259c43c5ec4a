package registry

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cuemby/cassandra-scheduler/pkg/events"
	"github.com/cuemby/cassandra-scheduler/pkg/log"
	"github.com/cuemby/cassandra-scheduler/pkg/metrics"
	"github.com/cuemby/cassandra-scheduler/pkg/storage"
	"github.com/cuemby/cassandra-scheduler/pkg/task"
	"github.com/cuemby/cassandra-scheduler/pkg/types"
	"github.com/rs/zerolog"
)

// Namespace is the store namespace task records are persisted under
const Namespace = "tasks"

var (
	// ErrKindMismatch is returned when a name is already held by a task of
	// another kind
	ErrKindMismatch = errors.New("task kind mismatch")

	// ErrNotReplaceable is returned by ReplaceTask for kinds that cannot be
	// replaced in place
	ErrNotReplaceable = errors.New("task kind cannot be replaced")
)

// TaskFactory builds new task records from the cluster's configuration
type TaskFactory interface {
	CreateDaemon(frameworkID, agentID, hostname, name, role, principal string) (*task.DaemonTask, error)
	CreateBackupSnapshotTask(daemon *task.DaemonTask, ctx types.BackupContext) (*task.BackupSnapshotTask, error)
	CreateBackupUploadTask(daemon *task.DaemonTask, ctx types.BackupContext) (*task.BackupUploadTask, error)
	CreateDownloadSnapshotTask(daemon *task.DaemonTask, ctx types.RestoreContext) (*task.DownloadSnapshotTask, error)
	CreateRestoreSnapshotTask(daemon *task.DaemonTask, ctx types.RestoreContext) (*task.RestoreSnapshotTask, error)
	ReplaceDaemon(daemon *task.DaemonTask) (*task.DaemonTask, error)
	UpdateConfig(daemon *task.DaemonTask) (*task.DaemonTask, error)
	HasCurrentConfig(daemon *task.DaemonTask) bool
}

// IdentitySource returns the framework identity new daemons are bound to
type IdentitySource interface {
	Get() types.Identity
}

// RepairPolicy decides which tasks have to be relaunched
type RepairPolicy interface {
	NeedsRescheduling(t task.Task) bool
}

// Publisher receives an event for every committed mutation
type Publisher interface {
	Publish(event *events.Event)
}

// Option configures a Registry
type Option func(*Registry)

// WithRepairPolicy sets the policy behind GetTasksToRepair
func WithRepairPolicy(policy RepairPolicy) Option {
	return func(r *Registry) { r.policy = policy }
}

// WithPublisher sets where mutation events are published
func WithPublisher(publisher Publisher) Option {
	return func(r *Registry) { r.publisher = publisher }
}

// WithClock sets the clock used to stamp status changes that carry no
// timestamp of their own
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// index is an immutable view of the registry. It is never modified after
// being published; every mutation builds a new one.
type index struct {
	byName map[string]task.Task
	byID   map[string]string
}

func emptyIndex() *index {
	return &index{
		byName: map[string]task.Task{},
		byID:   map[string]string{},
	}
}

// with returns a copy of ix holding t under its name. The id of any record
// it replaces is dropped in the same step.
func (ix *index) with(t task.Task) *index {
	next := &index{
		byName: make(map[string]task.Task, len(ix.byName)+1),
		byID:   make(map[string]string, len(ix.byID)+1),
	}
	for name, existing := range ix.byName {
		next.byName[name] = existing
	}
	for id, name := range ix.byID {
		next.byID[id] = name
	}

	if old, ok := next.byName[t.Name()]; ok {
		delete(next.byID, old.ID())
	}
	next.byName[t.Name()] = t
	next.byID[t.ID()] = t.Name()
	return next
}

// without returns a copy of ix with name and its id removed
func (ix *index) without(name string) *index {
	next := &index{
		byName: make(map[string]task.Task, len(ix.byName)),
		byID:   make(map[string]string, len(ix.byID)),
	}
	for n, existing := range ix.byName {
		if n != name {
			next.byName[n] = existing
		}
	}
	for id, n := range ix.byID {
		if n != name {
			next.byID[id] = n
		}
	}
	return next
}

// Registry is the single source of truth for the scheduler's tasks. Reads
// load the current index without locking. Mutations are serialized by mu
// and always write the store before publishing a new index.
type Registry struct {
	identity   IdentitySource
	factory    TaskFactory
	persistent storage.PersistentMap[task.Task]
	policy     RepairPolicy
	publisher  Publisher
	now        func() time.Time
	logger     zerolog.Logger

	mu      sync.Mutex
	current atomic.Pointer[index]
}

// New creates a registry and loads every task record from persistent. A
// load failure is returned and leaves no usable registry behind.
func New(identity IdentitySource, factory TaskFactory, persistent storage.PersistentMap[task.Task], opts ...Option) (*Registry, error) {
	r := &Registry{
		identity:   identity,
		factory:    factory,
		persistent: persistent,
		policy:     task.DefaultRepairPolicy(),
		now:        time.Now,
		logger:     log.WithComponent("registry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.current.Store(emptyIndex())

	if err := r.load(); err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	return r, nil
}

// NewMapStore returns the persistent map the registry keeps its records in
func NewMapStore(backend storage.Backend) *storage.Map[task.Task] {
	return storage.NewMap[task.Task](backend, Namespace, task.Serializer{})
}

func (r *Registry) load() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Info().Msg("Loading tasks from persistent store")

	keys, err := r.persistent.KeySet()
	if err != nil {
		metrics.PersistenceErrorsTotal.WithLabelValues("load").Inc()
		return err
	}

	ix := &index{
		byName: make(map[string]task.Task, len(keys)),
		byID:   make(map[string]string, len(keys)),
	}
	for _, key := range keys {
		t, ok, err := r.persistent.Get(key)
		if err != nil {
			metrics.PersistenceErrorsTotal.WithLabelValues("load").Inc()
			return err
		}
		if !ok {
			// Removed between KeySet and Get
			continue
		}
		if t.Name() != key {
			return fmt.Errorf("task stored under %q is named %q", key, t.Name())
		}
		r.logger.Debug().Str("task_name", key).Str("task_id", t.ID()).Msg("Loaded task")
		ix.byName[key] = t
		ix.byID[t.ID()] = key
	}

	r.current.Store(ix)
	r.logger.Info().Int("tasks", len(ix.byName)).Msg("Loaded tasks")
	return nil
}

// Reload replaces the in-memory view with the store's current contents,
// picking up records written by another replica. A failure leaves the
// previous view in place.
func (r *Registry) Reload() error {
	if err := r.load(); err != nil {
		return fmt.Errorf("failed to reload tasks: %w", err)
	}
	return nil
}

// Start implements the managed-resource contract. The registry has no
// background work.
func (r *Registry) Start() error { return nil }

// Stop implements the managed-resource contract
func (r *Registry) Stop() error { return nil }

// install persists t and then publishes an index holding it. Callers hold mu.
func (r *Registry) install(op string, t task.Task) error {
	timer := metrics.NewTimer()
	ix := r.current.Load()

	previous, replacing := ix.byName[t.Name()]
	if replacing && previous.Kind() != t.Kind() {
		return fmt.Errorf("%w: %s is a %s task, not %s", ErrKindMismatch, t.Name(), previous.Kind(), t.Kind())
	}

	if err := r.persistent.Put(t.Name(), t); err != nil {
		metrics.PersistenceErrorsTotal.WithLabelValues(op).Inc()
		r.logger.Error().Err(err).
			Str("op", op).
			Str("task_name", t.Name()).
			Msg("Failed to persist task")
		return err
	}
	r.current.Store(ix.with(t))

	timer.ObserveDurationVec(metrics.RegistryMutationDuration, op)
	metrics.RegistryMutationsTotal.WithLabelValues(op).Inc()

	eventType := events.EventTaskCreated
	if replacing {
		eventType = events.EventTaskUpdated
	}
	r.publish(eventType, t, op)

	r.logger.Debug().
		Str("op", op).
		Str("task_name", t.Name()).
		Str("task_id", t.ID()).
		Str("state", string(t.Status().State)).
		Msg("Task installed")
	return nil
}

// uninstall removes name from the store and then from the index. Callers
// hold mu and have checked that name is present.
func (r *Registry) uninstall(op, name string) error {
	timer := metrics.NewTimer()
	ix := r.current.Load()

	if err := r.persistent.Remove(name); err != nil {
		metrics.PersistenceErrorsTotal.WithLabelValues(op).Inc()
		r.logger.Error().Err(err).
			Str("op", op).
			Str("task_name", name).
			Msg("Failed to remove task")
		return err
	}
	removed := ix.byName[name]
	r.current.Store(ix.without(name))

	timer.ObserveDurationVec(metrics.RegistryMutationDuration, op)
	metrics.RegistryMutationsTotal.WithLabelValues(op).Inc()
	r.publish(events.EventTaskRemoved, removed, op)

	r.logger.Info().Str("task_name", name).Str("task_id", removed.ID()).Msg("Task removed")
	return nil
}

func (r *Registry) publish(eventType events.EventType, t task.Task, message string) {
	if r.publisher == nil {
		return
	}
	event := events.NewEvent(eventType, t.Name(), t.ID(), message)
	event.Metadata = map[string]string{
		"kind":  string(t.Kind()),
		"state": string(t.Status().State),
	}
	r.publisher.Publish(event)
}
