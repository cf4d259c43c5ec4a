package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/cuemby/cassandra-scheduler/pkg/config"
	"github.com/cuemby/cassandra-scheduler/pkg/registry"
	"github.com/cuemby/cassandra-scheduler/pkg/storage"
	"github.com/cuemby/cassandra-scheduler/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T) (*registry.Registry, *config.Manager) {
	t.Helper()
	backend := storage.NewMemoryStore()
	identity, err := config.NewIdentityManager(config.Default().Service, backend)
	require.NoError(t, err)
	require.NoError(t, identity.Register("fw-1"))

	factory := config.NewManager(config.Default().Daemon)
	reg, err := registry.New(identity, factory, registry.NewMapStore(backend))
	require.NoError(t, err)
	return reg, factory
}

// launch binds every daemon to an agent and reports it running
func launch(t *testing.T, reg *registry.Registry) {
	t.Helper()
	for name, d := range reg.GetDaemons() {
		_, ok, err := reg.UpdateFromOffer(d.ID(), types.Offer{ID: "offer-" + name, AgentID: "agent-" + name, Hostname: name})
		require.NoError(t, err)
		require.True(t, ok)
		running(t, reg, name)
	}
}

func running(t *testing.T, reg *registry.Registry, name string) {
	t.Helper()
	current, ok := reg.Get(name)
	require.True(t, ok)
	require.NoError(t, reg.UpdateFromStatus(types.TaskStatus{
		TaskID: current.ID(),
		State:  types.TaskStateRunning,
	}))
}

func TestScheduleCreatesOneDaemonPerNode(t *testing.T) {
	reg, _ := newRegistry(t)
	sched := NewScheduler(reg, 3, time.Hour)

	require.NoError(t, sched.Schedule())
	daemons := reg.GetDaemons()
	assert.Len(t, daemons, 3)
	for _, name := range []string{"node-0", "node-1", "node-2"} {
		d, ok := daemons[name]
		require.True(t, ok, name)
		assert.Equal(t, "fw-1", d.FrameworkID)
	}
	assert.Equal(t, 3, reg.NextDaemonIndex())

	// A second cycle leaves existing records alone
	ids := map[string]string{}
	for name, d := range daemons {
		ids[name] = d.ID()
	}
	require.NoError(t, sched.Schedule())
	for name, d := range reg.GetDaemons() {
		assert.Equal(t, ids[name], d.ID())
	}
}

func TestScheduleRollsConfigOneDaemonAtATime(t *testing.T) {
	reg, factory := newRegistry(t)
	sched := NewScheduler(reg, 3, time.Hour)
	require.NoError(t, sched.Schedule())
	launch(t, reg)

	target := factory.Target()
	target.Version = "3.11.4"
	factory.SetTarget(target)

	require.NoError(t, sched.Schedule())
	assert.Equal(t, []string{"node-0"}, upToDate(reg))

	// node-0 is restarting, so nothing else moves
	require.NoError(t, sched.Schedule())
	assert.Equal(t, []string{"node-0"}, upToDate(reg))

	running(t, reg, "node-0")
	require.NoError(t, sched.Schedule())
	assert.Equal(t, []string{"node-0", "node-1"}, upToDate(reg))

	running(t, reg, "node-1")
	require.NoError(t, sched.Schedule())
	running(t, reg, "node-2")
	require.NoError(t, sched.Schedule())
	assert.Equal(t, []string{"node-0", "node-1", "node-2"}, upToDate(reg))
}

func TestStartStop(t *testing.T) {
	reg, _ := newRegistry(t)
	sched := NewScheduler(reg, 2, time.Hour)
	sched.Start()

	// The first cycle runs immediately
	assert.Eventually(t, func() bool {
		return reg.Len() == 2
	}, time.Second, 10*time.Millisecond)

	sched.Stop()
	sched.Stop()
}

func upToDate(reg *registry.Registry) []string {
	var names []string
	for _, d := range sortedDaemons(reg.GetDaemons()) {
		if !reg.NeedsConfigUpdate(d) {
			names = append(names, d.Name())
		}
	}
	return names
}

var _ DaemonRegistry = (*registry.Registry)(nil)

func TestInactiveSchedulerSkipsCycles(t *testing.T) {
	reg, _ := newRegistry(t)
	var active atomic.Bool
	sched := NewScheduler(reg, 2, 20*time.Millisecond, WithActive(active.Load))
	sched.Start()
	defer sched.Stop()

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, reg.Len())

	active.Store(true)
	assert.Eventually(t, func() bool {
		return reg.Len() == 2
	}, time.Second, 10*time.Millisecond)
}
