package config

import (
	"testing"
	"time"

	"github.com/cuemby/cassandra-scheduler/pkg/registry"
	"github.com/cuemby/cassandra-scheduler/pkg/storage"
	"github.com/cuemby/cassandra-scheduler/pkg/task"
	"github.com/cuemby/cassandra-scheduler/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ registry.TaskFactory = (*Manager)(nil)
var _ registry.IdentitySource = (*IdentityManager)(nil)

func newTestManager() *Manager {
	m := NewManager(Default().Daemon)
	m.now = func() time.Time { return time.Unix(1000, 0) }
	return m
}

func TestCreateDaemon(t *testing.T) {
	m := newTestManager()

	d, err := m.CreateDaemon("fw-1", "", "", "node-2", "role", "principal")
	require.NoError(t, err)
	assert.Equal(t, "node-2", d.Name())
	assert.Equal(t, types.TaskStateStaging, d.Status().State)
	assert.Equal(t, Default().Daemon, d.Config)
	assert.False(t, d.Launch().Bound())

	_, err = m.CreateDaemon("fw-1", "", "", "snapshot-node-2", "role", "principal")
	assert.ErrorIs(t, err, ErrInvalidTask)
}

func TestCreateWorkflowTasks(t *testing.T) {
	m := newTestManager()
	d, err := m.CreateDaemon("fw-1", "agent-1", "host-1", "node-0", "role", "principal")
	require.NoError(t, err)

	backup := types.BackupContext{Name: "nightly", ExternalLocation: "s3://bucket/nightly"}
	snapshot, err := m.CreateBackupSnapshotTask(d, backup)
	require.NoError(t, err)
	assert.Equal(t, "snapshot-node-0", snapshot.Name())
	assert.Equal(t, "agent-1", snapshot.Launch().AgentID)
	assert.Equal(t, backup, snapshot.Context)

	upload, err := m.CreateBackupUploadTask(d, backup)
	require.NoError(t, err)
	assert.Equal(t, "upload-node-0", upload.Name())

	restore := types.RestoreContext{Name: "nightly"}
	download, err := m.CreateDownloadSnapshotTask(d, restore)
	require.NoError(t, err)
	assert.Equal(t, "download-node-0", download.Name())
	restored, err := m.CreateRestoreSnapshotTask(d, restore)
	require.NoError(t, err)
	assert.Equal(t, "restore-node-0", restored.Name())

	_, err = m.CreateBackupSnapshotTask(d, types.BackupContext{})
	assert.ErrorIs(t, err, ErrInvalidTask)
}

func TestReplaceAndUpdateConfig(t *testing.T) {
	m := newTestManager()
	d, err := m.CreateDaemon("fw-1", "agent-1", "host-1", "node-0", "role", "principal")
	require.NoError(t, err)
	running := d.WithState(types.TaskStateRunning, time.Unix(2000, 0)).(*task.DaemonTask)

	replaced, err := m.ReplaceDaemon(running)
	require.NoError(t, err)
	assert.NotEqual(t, running.ID(), replaced.ID())
	assert.Equal(t, running.Launch(), replaced.Launch())
	assert.Equal(t, types.TaskStateStaging, replaced.Status().State)
	assert.True(t, m.HasCurrentConfig(replaced))

	target := m.Target()
	target.Version = "3.11.4"
	m.SetTarget(target)
	assert.False(t, m.HasCurrentConfig(replaced))

	updated, err := m.UpdateConfig(replaced)
	require.NoError(t, err)
	assert.Equal(t, "3.11.4", updated.Config.Version)
	assert.True(t, m.HasCurrentConfig(updated))
}

func TestManagerBacksRegistry(t *testing.T) {
	backend := storage.NewMemoryStore()
	identity, err := NewIdentityManager(Default().Service, backend)
	require.NoError(t, err)
	require.NoError(t, identity.Register("fw-1"))

	m := newTestManager()
	r, err := registry.New(identity, m, registry.NewMapStore(backend))
	require.NoError(t, err)

	d, err := r.GetOrCreateDaemon("node-0")
	require.NoError(t, err)
	assert.Equal(t, "fw-1", d.FrameworkID)
	assert.Equal(t, "cassandra-role", d.Role)
	assert.False(t, r.NeedsConfigUpdate(d))

	target := m.Target()
	target.HeapMB = 1024
	m.SetTarget(target)
	assert.True(t, r.NeedsConfigUpdate(d))

	// The identity namespace is not mistaken for tasks
	reloaded, err := registry.New(identity, m, registry.NewMapStore(backend))
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.Len())
}
