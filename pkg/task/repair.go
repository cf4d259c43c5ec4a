package task

import (
	"time"

	"github.com/cuemby/cassandra-scheduler/pkg/types"
)

// DefaultStagingTimeout is how long a task may stay STAGING or STARTING
// before it is considered stuck
const DefaultStagingTimeout = 10 * time.Minute

// IsTerminated reports whether the task is in a terminal state
func IsTerminated(t Task) bool {
	return t.Status().State.IsTerminal()
}

// IsRunning reports whether the task is TASK_RUNNING
func IsRunning(t Task) bool {
	return t.Status().State.IsRunning()
}

// RepairPolicy decides which tasks have to be relaunched
type RepairPolicy struct {
	StagingTimeout time.Duration
	Now            func() time.Time
}

// DefaultRepairPolicy returns the policy used when none is configured
func DefaultRepairPolicy() RepairPolicy {
	return RepairPolicy{
		StagingTimeout: DefaultStagingTimeout,
		Now:            time.Now,
	}
}

// NeedsRescheduling reports whether t has to be relaunched. Daemons are
// repaired from any terminal state. Backup and restore tasks are run to
// completion, so TASK_FINISHED is their success state and is left alone.
// A launched task stuck before TASK_RUNNING longer than StagingTimeout is
// repaired; tasks still waiting for an offer are not.
func (p RepairPolicy) NeedsRescheduling(t Task) bool {
	status := t.Status()

	if status.State.IsTerminal() {
		if t.Kind() == KindDaemon {
			return true
		}
		return status.State != types.TaskStateFinished
	}

	switch status.State {
	case types.TaskStateStaging, types.TaskStateStarting:
		if !t.Launch().Bound() || p.StagingTimeout <= 0 || status.Timestamp.IsZero() {
			return false
		}
		now := time.Now
		if p.Now != nil {
			now = p.Now
		}
		return now().Sub(status.Timestamp) > p.StagingTimeout
	}

	return false
}
