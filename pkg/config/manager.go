package config

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/cassandra-scheduler/pkg/task"
	"github.com/cuemby/cassandra-scheduler/pkg/types"
)

// ErrInvalidTask is returned when a task cannot be built from a request
var ErrInvalidTask = errors.New("invalid task request")

// Manager builds task records from the cluster's target daemon configuration
type Manager struct {
	mu     sync.RWMutex
	target task.DaemonConfig
	now    func() time.Time
}

// NewManager creates a task factory for the given target configuration
func NewManager(target task.DaemonConfig) *Manager {
	return &Manager{target: target, now: time.Now}
}

// Target returns the configuration daemons are expected to run
func (m *Manager) Target() task.DaemonConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.target
}

// SetTarget changes the target configuration. Daemons launched with the
// previous one then report NeedsConfigUpdate.
func (m *Manager) SetTarget(cfg task.DaemonConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.target = cfg
}

// CreateDaemon builds a daemon in TASK_STAGING. agentID and hostname are
// empty until the daemon is placed.
func (m *Manager) CreateDaemon(frameworkID, agentID, hostname, name, role, principal string) (*task.DaemonTask, error) {
	if _, ok := task.DaemonIndex(name); !ok {
		return nil, fmt.Errorf("%w: %q is not a daemon name", ErrInvalidTask, name)
	}
	return &task.DaemonTask{
		Meta:        task.NewMeta(name, task.Launch{AgentID: agentID, Hostname: hostname}, m.now()),
		FrameworkID: frameworkID,
		Role:        role,
		Principal:   principal,
		Config:      m.Target(),
	}, nil
}

// workflowMeta builds the shared part of a backup or restore task. It runs on
// the daemon's agent.
func (m *Manager) workflowMeta(kind task.Kind, daemon *task.DaemonTask, contextName string) (task.Meta, error) {
	if contextName == "" {
		return task.Meta{}, fmt.Errorf("%w: %s for %s has no context name", ErrInvalidTask, kind, daemon.Name())
	}
	return task.NewMeta(task.NameFor(kind, daemon.Name()), daemon.Launch(), m.now()), nil
}

// CreateBackupSnapshotTask builds the snapshot step of a backup
func (m *Manager) CreateBackupSnapshotTask(daemon *task.DaemonTask, ctx types.BackupContext) (*task.BackupSnapshotTask, error) {
	meta, err := m.workflowMeta(task.KindBackupSnapshot, daemon, ctx.Name)
	if err != nil {
		return nil, err
	}
	return &task.BackupSnapshotTask{Meta: meta, Daemon: daemon.Name(), Context: ctx}, nil
}

// CreateBackupUploadTask builds the upload step of a backup
func (m *Manager) CreateBackupUploadTask(daemon *task.DaemonTask, ctx types.BackupContext) (*task.BackupUploadTask, error) {
	meta, err := m.workflowMeta(task.KindBackupUpload, daemon, ctx.Name)
	if err != nil {
		return nil, err
	}
	return &task.BackupUploadTask{Meta: meta, Daemon: daemon.Name(), Context: ctx}, nil
}

// CreateDownloadSnapshotTask builds the download step of a restore
func (m *Manager) CreateDownloadSnapshotTask(daemon *task.DaemonTask, ctx types.RestoreContext) (*task.DownloadSnapshotTask, error) {
	meta, err := m.workflowMeta(task.KindSnapshotDownload, daemon, ctx.Name)
	if err != nil {
		return nil, err
	}
	return &task.DownloadSnapshotTask{Meta: meta, Daemon: daemon.Name(), Context: ctx}, nil
}

// CreateRestoreSnapshotTask builds the restore step of a restore
func (m *Manager) CreateRestoreSnapshotTask(daemon *task.DaemonTask, ctx types.RestoreContext) (*task.RestoreSnapshotTask, error) {
	meta, err := m.workflowMeta(task.KindSnapshotRestore, daemon, ctx.Name)
	if err != nil {
		return nil, err
	}
	return &task.RestoreSnapshotTask{Meta: meta, Daemon: daemon.Name(), Context: ctx}, nil
}

// ReplaceDaemon relaunches daemon on the agent it is bound to: new task ID,
// back in TASK_STAGING, configuration unchanged
func (m *Manager) ReplaceDaemon(daemon *task.DaemonTask) (*task.DaemonTask, error) {
	replaced := *daemon
	replaced.Meta = daemon.Meta.Relaunched(m.now())
	return &replaced, nil
}

// UpdateConfig relaunches daemon with the target configuration
func (m *Manager) UpdateConfig(daemon *task.DaemonTask) (*task.DaemonTask, error) {
	return daemon.WithConfig(m.Target(), m.now()), nil
}

// HasCurrentConfig reports whether daemon runs the target configuration
func (m *Manager) HasCurrentConfig(daemon *task.DaemonTask) bool {
	return daemon.Config == m.Target()
}
