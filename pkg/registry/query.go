package registry

import (
	"maps"
	"sort"

	"github.com/cuemby/cassandra-scheduler/pkg/task"
	"github.com/samber/lo"
)

// Get returns the task called name
func (r *Registry) Get(name string) (task.Task, bool) {
	t, ok := r.current.Load().byName[name]
	return t, ok
}

// GetByID returns the task whose current ID is id
func (r *Registry) GetByID(id string) (task.Task, bool) {
	ix := r.current.Load()
	name, ok := ix.byID[id]
	if !ok {
		return nil, false
	}
	return ix.byName[name], true
}

// All returns every task keyed by name. The map is a copy the caller owns.
func (r *Registry) All() map[string]task.Task {
	return maps.Clone(r.current.Load().byName)
}

// Len returns the number of tasks
func (r *Registry) Len() int {
	return len(r.current.Load().byName)
}

func ofKind[T task.Task](r *Registry) map[string]T {
	out := make(map[string]T)
	for name, t := range r.current.Load().byName {
		if typed, ok := t.(T); ok {
			out[name] = typed
		}
	}
	return out
}

// GetDaemons returns every daemon keyed by name
func (r *Registry) GetDaemons() map[string]*task.DaemonTask {
	return ofKind[*task.DaemonTask](r)
}

// GetBackupSnapshotTasks returns every snapshot task keyed by name
func (r *Registry) GetBackupSnapshotTasks() map[string]*task.BackupSnapshotTask {
	return ofKind[*task.BackupSnapshotTask](r)
}

// GetBackupUploadTasks returns every upload task keyed by name
func (r *Registry) GetBackupUploadTasks() map[string]*task.BackupUploadTask {
	return ofKind[*task.BackupUploadTask](r)
}

// GetDownloadSnapshotTasks returns every snapshot download task keyed by name
func (r *Registry) GetDownloadSnapshotTasks() map[string]*task.DownloadSnapshotTask {
	return ofKind[*task.DownloadSnapshotTask](r)
}

// GetRestoreSnapshotTasks returns every snapshot restore task keyed by name
func (r *Registry) GetRestoreSnapshotTasks() map[string]*task.RestoreSnapshotTask {
	return ofKind[*task.RestoreSnapshotTask](r)
}

// filter returns the tasks matching keep, ordered by name
func (r *Registry) filter(keep func(task.Task) bool) []task.Task {
	out := lo.Filter(lo.Values(r.current.Load().byName), func(t task.Task, _ int) bool {
		return keep(t)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// GetTerminatedTasks returns the tasks in a terminal state
func (r *Registry) GetTerminatedTasks() []task.Task {
	return r.filter(task.IsTerminated)
}

// GetRunningTasks returns the tasks in TASK_RUNNING
func (r *Registry) GetRunningTasks() []task.Task {
	return r.filter(task.IsRunning)
}

// GetTasksToRepair returns the tasks the repair policy flags for rescheduling
func (r *Registry) GetTasksToRepair() []task.Task {
	return r.filter(r.policy.NeedsRescheduling)
}

// GetTasksOfKind returns the tasks of kind, ordered by name
func (r *Registry) GetTasksOfKind(kind task.Kind) []task.Task {
	return r.filter(func(t task.Task) bool { return t.Kind() == kind })
}

// NeedsConfigUpdate reports whether daemon was launched with a configuration
// other than the cluster's current target
func (r *Registry) NeedsConfigUpdate(daemon *task.DaemonTask) bool {
	return !r.factory.HasCurrentConfig(daemon)
}

// NextDaemonIndex returns one past the highest daemon index in use, or 0
// when there are no daemons
func (r *Registry) NextDaemonIndex() int {
	indices := lo.FilterMap(lo.Values(r.GetDaemons()), func(d *task.DaemonTask, _ int) (int, bool) {
		return d.Index()
	})
	if len(indices) == 0 {
		return 0
	}
	return lo.Max(indices) + 1
}
