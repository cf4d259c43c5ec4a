package scheduler

import (
	"testing"
	"time"

	"github.com/cuemby/cassandra-scheduler/pkg/task"
	"github.com/cuemby/cassandra-scheduler/pkg/types"
	"github.com/stretchr/testify/assert"
)

func daemon(name string, bound bool, state types.TaskState) *task.DaemonTask {
	launch := task.Launch{}
	if bound {
		launch.AgentID = "agent-" + name
	}
	d := &task.DaemonTask{Meta: task.NewMeta(name, launch, time.Now())}
	d.TaskStatus.State = state
	return d
}

func byName(daemons ...*task.DaemonTask) map[string]*task.DaemonTask {
	out := make(map[string]*task.DaemonTask, len(daemons))
	for _, d := range daemons {
		out[d.Name()] = d
	}
	return out
}

// TestSortedDaemons tests that daemons are ordered numerically by index
func TestSortedDaemons(t *testing.T) {
	daemons := byName(
		daemon("node-10", false, types.TaskStateStaging),
		daemon("node-2", false, types.TaskStateStaging),
		daemon("seed", false, types.TaskStateStaging),
		daemon("node-0", false, types.TaskStateStaging),
	)

	var names []string
	for _, d := range sortedDaemons(daemons) {
		names = append(names, d.Name())
	}
	assert.Equal(t, []string{"node-0", "node-2", "node-10", "seed"}, names)
}

// TestRestarting tests detection of daemons mid-relaunch
func TestRestarting(t *testing.T) {
	tests := []struct {
		name     string
		daemons  []*task.DaemonTask
		expected string
	}{
		{
			name: "all running",
			daemons: []*task.DaemonTask{
				daemon("node-0", true, types.TaskStateRunning),
				daemon("node-1", true, types.TaskStateRunning),
			},
			expected: "",
		},
		{
			name: "unbound staging daemons are not restarting",
			daemons: []*task.DaemonTask{
				daemon("node-0", false, types.TaskStateStaging),
			},
			expected: "",
		},
		{
			name: "bound staging daemon",
			daemons: []*task.DaemonTask{
				daemon("node-0", true, types.TaskStateRunning),
				daemon("node-1", true, types.TaskStateStaging),
			},
			expected: "node-1",
		},
		{
			name: "bound starting daemon",
			daemons: []*task.DaemonTask{
				daemon("node-0", true, types.TaskStateStarting),
			},
			expected: "node-0",
		},
		{
			name: "failed daemons are not restarting",
			daemons: []*task.DaemonTask{
				daemon("node-0", true, types.TaskStateFailed),
			},
			expected: "",
		},
		{
			name:     "no daemons",
			daemons:  nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, restarting(byName(tt.daemons...)))
		})
	}
}

// TestFirstOutdated tests that the lowest-indexed outdated daemon is picked
func TestFirstOutdated(t *testing.T) {
	daemons := byName(
		daemon("node-0", true, types.TaskStateRunning),
		daemon("node-1", true, types.TaskStateRunning),
		daemon("node-2", true, types.TaskStateRunning),
	)

	none := firstOutdated(daemons, func(*task.DaemonTask) bool { return false })
	assert.Nil(t, none)

	got := firstOutdated(daemons, func(d *task.DaemonTask) bool { return d.Name() != "node-0" })
	if assert.NotNil(t, got) {
		assert.Equal(t, "node-1", got.Name())
	}
}
