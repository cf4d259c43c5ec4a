/*
Package registry holds every task the scheduler knows about: which tasks exist,
what kind they are, and what state they are in.

Each task has two handles. Its name ("node-0", "snapshot-node-0") is stable
for the task's logical lifetime and is the key it is persisted under. Its ID is
assigned when the task is (re)launched and changes on every relaunch. The
registry keeps both lookups in one immutable index:

	index{
		byName: name -> task.Task
		byID:   id   -> name      (derived, never persisted)
	}

# Reads and Writes

Readers load the current index through an atomic pointer and never block. A
reader racing a mutation sees the whole index from before it or the whole
index from after it.

Every mutation takes the registry mutex and, while holding it, writes the
store first and only then publishes a new index. A failed write leaves the
previous index in place and returns the *storage.Error to the caller. Because
lookup and create share the lock, GetOrCreate* calls racing on one name write
the store exactly once and all return the same record.

	r, err := registry.New(identity, factory, registry.NewMapStore(backend))
	if err != nil {
		return err // the view of existing tasks may be incomplete
	}

	daemon, err := r.GetOrCreateDaemon(task.DaemonName(r.NextDaemonIndex()))

# Orchestrator Events

UpdateFromOffer binds launch parameters and UpdateFromStatus applies a status
report. Both treat an ID the registry does not hold as the normal case of a
stale or foreign event: it is logged and ignored. A status payload that does
not decode returns task.ErrMalformedStatus; one that decodes but does not fit
the task's kind returns task.ErrInvalidStatus. Neither changes the registry.

# Queries

GetDaemons and the other Get*Tasks methods filter the index by kind and return
typed maps. GetTerminatedTasks, GetRunningTasks and GetTasksToRepair return
slices ordered by name; the last delegates to a RepairPolicy
(task.DefaultRepairPolicy unless WithRepairPolicy is given).
*/
package registry
