package metrics

import (
	"testing"
	"time"

	"github.com/cuemby/cassandra-scheduler/pkg/task"
	"github.com/cuemby/cassandra-scheduler/pkg/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

type fakeSource struct {
	tasks map[string]task.Task
}

func (f *fakeSource) All() map[string]task.Task { return f.tasks }

func (f *fakeSource) GetTerminatedTasks() []task.Task {
	var out []task.Task
	for _, t := range f.tasks {
		if task.IsTerminated(t) {
			out = append(out, t)
		}
	}
	return out
}

func (f *fakeSource) GetTasksToRepair() []task.Task {
	return f.GetTerminatedTasks()
}

type fakeRaft struct{ leader bool }

func (f fakeRaft) IsLeader() bool { return f.leader }

func (f fakeRaft) RaftStats() map[string]uint64 {
	return map[string]uint64{"last_log_index": 12, "applied_index": 11, "num_peers": 2}
}

func daemon(name string, state types.TaskState) task.Task {
	at := time.Unix(1000, 0)
	d := &task.DaemonTask{Meta: task.NewMeta(name, task.Launch{}, at)}
	return d.WithState(state, at)
}

func TestCollectorTaskMetrics(t *testing.T) {
	source := &fakeSource{tasks: map[string]task.Task{
		"node-0": daemon("node-0", types.TaskStateRunning),
		"node-1": daemon("node-1", types.TaskStateRunning),
		"node-2": daemon("node-2", types.TaskStateLost),
	}}

	NewCollector(source, nil, 0).Collect()

	assert.Equal(t, 2.0, testutil.ToFloat64(TasksTotal.WithLabelValues(string(task.KindDaemon), string(types.TaskStateRunning))))
	assert.Equal(t, 1.0, testutil.ToFloat64(TasksTotal.WithLabelValues(string(task.KindDaemon), string(types.TaskStateLost))))
	assert.Equal(t, 1.0, testutil.ToFloat64(TasksTerminated))
	assert.Equal(t, 1.0, testutil.ToFloat64(TasksToRepair))

	delete(source.tasks, "node-2")
	NewCollector(source, nil, 0).Collect()

	assert.Equal(t, 0.0, testutil.ToFloat64(TasksTotal.WithLabelValues(string(task.KindDaemon), string(types.TaskStateLost))))
	assert.Equal(t, 0.0, testutil.ToFloat64(TasksToRepair))
}

func TestCollectorRaftMetrics(t *testing.T) {
	source := &fakeSource{tasks: map[string]task.Task{}}

	NewCollector(source, fakeRaft{leader: true}, time.Second).Collect()

	assert.Equal(t, 1.0, testutil.ToFloat64(RaftLeader))
	assert.Equal(t, 12.0, testutil.ToFloat64(RaftLogIndex))
	assert.Equal(t, 11.0, testutil.ToFloat64(RaftAppliedIndex))
	assert.Equal(t, 3.0, testutil.ToFloat64(RaftPeers))
}

func TestCollectorStartStop(t *testing.T) {
	source := &fakeSource{tasks: map[string]task.Task{
		"node-0": daemon("node-0", types.TaskStateFailed),
	}}

	c := NewCollector(source, fakeRaft{}, time.Hour)
	c.Start()
	defer c.Stop()

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(TasksTerminated) == 1
	}, time.Second, 10*time.Millisecond)
}
