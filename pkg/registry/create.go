package registry

import (
	"errors"
	"fmt"

	"github.com/cuemby/cassandra-scheduler/pkg/events"
	"github.com/cuemby/cassandra-scheduler/pkg/task"
	"github.com/cuemby/cassandra-scheduler/pkg/types"
)

var errNilDaemon = errors.New("daemon is nil")

// create builds a record and installs it. Callers hold mu.
func create[T task.Task](r *Registry, op string, build func() (T, error)) (T, error) {
	var zero T
	t, err := build()
	if err != nil {
		return zero, fmt.Errorf("failed to build task: %w", err)
	}
	if err := r.install(op, t); err != nil {
		return zero, err
	}
	r.logger.Info().
		Str("task_name", t.Name()).
		Str("task_id", t.ID()).
		Str("kind", string(t.Kind())).
		Msg("Task created")
	return t, nil
}

// getOrCreate returns the record held under name, or builds and installs
// one. The lookup and the create happen under the same lock, so concurrent
// callers for one name get the same record and the store is written once.
func getOrCreate[T task.Task](r *Registry, name string, build func() (T, error)) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero T
	if existing, ok := r.current.Load().byName[name]; ok {
		typed, ok := existing.(T)
		if !ok {
			return zero, fmt.Errorf("%w: %s is a %s task", ErrKindMismatch, name, existing.Kind())
		}
		return typed, nil
	}
	return create(r, "create", build)
}

// CreateDaemon creates a daemon called name bound to the framework identity.
// It does not check whether name is taken; use GetOrCreateDaemon for that.
func (r *Registry) CreateDaemon(name string) (*task.DaemonTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return create(r, "create", r.daemonBuilder(name))
}

func (r *Registry) daemonBuilder(name string) func() (*task.DaemonTask, error) {
	return func() (*task.DaemonTask, error) {
		id := r.identity.Get()
		return r.factory.CreateDaemon(id.FrameworkID, "", "", name, id.Role, id.Principal)
	}
}

// CreateBackupSnapshot creates the snapshot task for daemon
func (r *Registry) CreateBackupSnapshot(daemon *task.DaemonTask, ctx types.BackupContext) (*task.BackupSnapshotTask, error) {
	if daemon == nil {
		return nil, errNilDaemon
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return create(r, "create", func() (*task.BackupSnapshotTask, error) {
		return r.factory.CreateBackupSnapshotTask(daemon, ctx)
	})
}

// CreateBackupUpload creates the upload task for daemon
func (r *Registry) CreateBackupUpload(daemon *task.DaemonTask, ctx types.BackupContext) (*task.BackupUploadTask, error) {
	if daemon == nil {
		return nil, errNilDaemon
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return create(r, "create", func() (*task.BackupUploadTask, error) {
		return r.factory.CreateBackupUploadTask(daemon, ctx)
	})
}

// CreateDownloadSnapshot creates the snapshot download task for daemon
func (r *Registry) CreateDownloadSnapshot(daemon *task.DaemonTask, ctx types.RestoreContext) (*task.DownloadSnapshotTask, error) {
	if daemon == nil {
		return nil, errNilDaemon
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return create(r, "create", func() (*task.DownloadSnapshotTask, error) {
		return r.factory.CreateDownloadSnapshotTask(daemon, ctx)
	})
}

// CreateRestoreSnapshot creates the snapshot restore task for daemon
func (r *Registry) CreateRestoreSnapshot(daemon *task.DaemonTask, ctx types.RestoreContext) (*task.RestoreSnapshotTask, error) {
	if daemon == nil {
		return nil, errNilDaemon
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return create(r, "create", func() (*task.RestoreSnapshotTask, error) {
		return r.factory.CreateRestoreSnapshotTask(daemon, ctx)
	})
}

// GetOrCreateDaemon returns the daemon called name, creating it if absent
func (r *Registry) GetOrCreateDaemon(name string) (*task.DaemonTask, error) {
	return getOrCreate(r, name, r.daemonBuilder(name))
}

// GetOrCreateBackupSnapshot returns daemon's snapshot task, creating it if absent
func (r *Registry) GetOrCreateBackupSnapshot(daemon *task.DaemonTask, ctx types.BackupContext) (*task.BackupSnapshotTask, error) {
	if daemon == nil {
		return nil, errNilDaemon
	}
	return getOrCreate(r, task.NameFor(task.KindBackupSnapshot, daemon.Name()), func() (*task.BackupSnapshotTask, error) {
		return r.factory.CreateBackupSnapshotTask(daemon, ctx)
	})
}

// GetOrCreateBackupUpload returns daemon's upload task, creating it if absent
func (r *Registry) GetOrCreateBackupUpload(daemon *task.DaemonTask, ctx types.BackupContext) (*task.BackupUploadTask, error) {
	if daemon == nil {
		return nil, errNilDaemon
	}
	return getOrCreate(r, task.NameFor(task.KindBackupUpload, daemon.Name()), func() (*task.BackupUploadTask, error) {
		return r.factory.CreateBackupUploadTask(daemon, ctx)
	})
}

// GetOrCreateSnapshotDownload returns daemon's download task, creating it if absent
func (r *Registry) GetOrCreateSnapshotDownload(daemon *task.DaemonTask, ctx types.RestoreContext) (*task.DownloadSnapshotTask, error) {
	if daemon == nil {
		return nil, errNilDaemon
	}
	return getOrCreate(r, task.NameFor(task.KindSnapshotDownload, daemon.Name()), func() (*task.DownloadSnapshotTask, error) {
		return r.factory.CreateDownloadSnapshotTask(daemon, ctx)
	})
}

// GetOrCreateRestoreSnapshot returns daemon's restore task, creating it if absent
func (r *Registry) GetOrCreateRestoreSnapshot(daemon *task.DaemonTask, ctx types.RestoreContext) (*task.RestoreSnapshotTask, error) {
	if daemon == nil {
		return nil, errNilDaemon
	}
	return getOrCreate(r, task.NameFor(task.KindSnapshotRestore, daemon.Name()), func() (*task.RestoreSnapshotTask, error) {
		return r.factory.CreateRestoreSnapshotTask(daemon, ctx)
	})
}

// ReplaceDaemon installs the factory's replacement for daemon under the same
// name, typically after a placement decision
func (r *Registry) ReplaceDaemon(daemon *task.DaemonTask) (*task.DaemonTask, error) {
	if daemon == nil {
		return nil, errNilDaemon
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	updated, err := r.factory.ReplaceDaemon(daemon)
	if err != nil {
		return nil, fmt.Errorf("failed to replace daemon %s: %w", daemon.Name(), err)
	}
	if err := r.install("replace", updated); err != nil {
		return nil, err
	}
	r.logger.Info().
		Str("task_name", updated.Name()).
		Str("old_task_id", daemon.ID()).
		Str("task_id", updated.ID()).
		Msg("Daemon replaced")
	return updated, nil
}

// ReplaceTask replaces t, which must be a daemon
func (r *Registry) ReplaceTask(t task.Task) (task.Task, error) {
	daemon, ok := t.(*task.DaemonTask)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotReplaceable, t.Kind())
	}
	return r.ReplaceDaemon(daemon)
}

// ReconfigureDaemon relaunches daemon with the cluster's target configuration
func (r *Registry) ReconfigureDaemon(daemon *task.DaemonTask) (*task.DaemonTask, error) {
	if daemon == nil {
		return nil, errNilDaemon
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	updated, err := r.factory.UpdateConfig(daemon)
	if err != nil {
		return nil, fmt.Errorf("failed to reconfigure daemon %s: %w", daemon.Name(), err)
	}
	if err := r.install("reconfigure", updated); err != nil {
		return nil, err
	}
	r.publish(events.EventTaskReconfigured, updated, "reconfigure")
	r.logger.Info().
		Str("task_name", updated.Name()).
		Str("task_id", updated.ID()).
		Str("version", updated.Config.Version).
		Msg("Daemon reconfigured")
	return updated, nil
}
