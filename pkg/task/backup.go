package task

import (
	"time"

	"github.com/cuemby/cassandra-scheduler/pkg/types"
)

// BackupSnapshotTask takes a local snapshot of a daemon's data
type BackupSnapshotTask struct {
	Meta
	Daemon  string              `json:"daemon"`
	Context types.BackupContext `json:"context"`
}

func (t *BackupSnapshotTask) Kind() Kind { return KindBackupSnapshot }

func (t *BackupSnapshotTask) WithOffer(offer types.Offer) Task {
	c := *t
	c.Meta = t.Meta.withOffer(offer)
	return &c
}

func (t *BackupSnapshotTask) WithStatus(update StatusUpdate) Task {
	c := *t
	c.Meta = t.Meta.withStatus(update)
	return &c
}

func (t *BackupSnapshotTask) WithState(state types.TaskState, at time.Time) Task {
	c := *t
	c.Meta = t.Meta.withState(state, at)
	return &c
}

// BackupUploadTask uploads a daemon's snapshot to the external location
type BackupUploadTask struct {
	Meta
	Daemon  string              `json:"daemon"`
	Context types.BackupContext `json:"context"`
}

func (t *BackupUploadTask) Kind() Kind { return KindBackupUpload }

func (t *BackupUploadTask) WithOffer(offer types.Offer) Task {
	c := *t
	c.Meta = t.Meta.withOffer(offer)
	return &c
}

func (t *BackupUploadTask) WithStatus(update StatusUpdate) Task {
	c := *t
	c.Meta = t.Meta.withStatus(update)
	return &c
}

func (t *BackupUploadTask) WithState(state types.TaskState, at time.Time) Task {
	c := *t
	c.Meta = t.Meta.withState(state, at)
	return &c
}

// DownloadSnapshotTask fetches a backed-up snapshot onto a daemon's host
type DownloadSnapshotTask struct {
	Meta
	Daemon  string               `json:"daemon"`
	Context types.RestoreContext `json:"context"`
}

func (t *DownloadSnapshotTask) Kind() Kind { return KindSnapshotDownload }

func (t *DownloadSnapshotTask) WithOffer(offer types.Offer) Task {
	c := *t
	c.Meta = t.Meta.withOffer(offer)
	return &c
}

func (t *DownloadSnapshotTask) WithStatus(update StatusUpdate) Task {
	c := *t
	c.Meta = t.Meta.withStatus(update)
	return &c
}

func (t *DownloadSnapshotTask) WithState(state types.TaskState, at time.Time) Task {
	c := *t
	c.Meta = t.Meta.withState(state, at)
	return &c
}

// RestoreSnapshotTask loads a downloaded snapshot into a daemon
type RestoreSnapshotTask struct {
	Meta
	Daemon  string               `json:"daemon"`
	Context types.RestoreContext `json:"context"`
}

func (t *RestoreSnapshotTask) Kind() Kind { return KindSnapshotRestore }

func (t *RestoreSnapshotTask) WithOffer(offer types.Offer) Task {
	c := *t
	c.Meta = t.Meta.withOffer(offer)
	return &c
}

func (t *RestoreSnapshotTask) WithStatus(update StatusUpdate) Task {
	c := *t
	c.Meta = t.Meta.withStatus(update)
	return &c
}

func (t *RestoreSnapshotTask) WithState(state types.TaskState, at time.Time) Task {
	c := *t
	c.Meta = t.Meta.withState(state, at)
	return &c
}
