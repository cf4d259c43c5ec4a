package task

import (
	"time"

	"github.com/cuemby/cassandra-scheduler/pkg/types"
)

// Kind identifies which of the task record shapes a record has
type Kind string

const (
	KindDaemon           Kind = "CASSANDRA_DAEMON"
	KindBackupSnapshot   Kind = "BACKUP_SNAPSHOT"
	KindBackupUpload     Kind = "BACKUP_UPLOAD"
	KindSnapshotDownload Kind = "SNAPSHOT_DOWNLOAD"
	KindSnapshotRestore  Kind = "SNAPSHOT_RESTORE"
)

// Kinds lists every task kind
var Kinds = []Kind{
	KindDaemon,
	KindBackupSnapshot,
	KindBackupUpload,
	KindSnapshotDownload,
	KindSnapshotRestore,
}

// Valid reports whether k is a known kind
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Task is a single task record. Records are values: the With* transitions
// return a new record and leave the receiver untouched. Kind and Name never
// change across transitions.
type Task interface {
	ID() string
	Name() string
	Kind() Kind
	Status() Status
	Launch() Launch

	WithOffer(offer types.Offer) Task
	WithStatus(update StatusUpdate) Task
	WithState(state types.TaskState, at time.Time) Task
}

// Launch holds the parameters bound to a task when an offer is accepted
type Launch struct {
	OfferID  string `json:"offer_id,omitempty"`
	AgentID  string `json:"agent_id,omitempty"`
	Hostname string `json:"hostname,omitempty"`
}

// Bound reports whether the task has been bound to an agent
func (l Launch) Bound() bool {
	return l.AgentID != ""
}

// Progress is the status detail reported by backup and restore tasks
type Progress struct {
	Completed int64  `json:"completed"`
	Total     int64  `json:"total"`
	Error     string `json:"error,omitempty"`
}

// Status is the current lifecycle state of a task plus its kind-specific detail
type Status struct {
	State     types.TaskState `json:"state"`
	Message   string          `json:"message,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Mode      DaemonMode      `json:"mode,omitempty"`     // daemons only
	Progress  *Progress       `json:"progress,omitempty"` // backup and restore kinds only
}

func (s Status) apply(u StatusUpdate) Status {
	s.State = u.State
	s.Message = u.Message
	if !u.Timestamp.IsZero() {
		s.Timestamp = u.Timestamp
	}
	if u.Mode != "" {
		s.Mode = u.Mode
	}
	if u.Progress != nil {
		p := *u.Progress
		s.Progress = &p
	}
	return s
}

// Meta carries the fields shared by every task kind
type Meta struct {
	TaskID     string `json:"id"`
	TaskName   string `json:"name"`
	TaskLaunch Launch `json:"launch"`
	TaskStatus Status `json:"status"`
}

// NewMeta creates the shared part of a freshly created record in TASK_STAGING
func NewMeta(name string, launch Launch, at time.Time) Meta {
	return Meta{
		TaskID:     NewID(name),
		TaskName:   name,
		TaskLaunch: launch,
		TaskStatus: Status{
			State:     types.TaskStateStaging,
			Timestamp: at,
		},
	}
}

func (m Meta) ID() string { return m.TaskID }

func (m Meta) Name() string { return m.TaskName }

func (m Meta) Status() Status { return m.TaskStatus }

func (m Meta) Launch() Launch { return m.TaskLaunch }

func (m Meta) withOffer(offer types.Offer) Meta {
	m.TaskLaunch = Launch{
		OfferID:  offer.ID,
		AgentID:  offer.AgentID,
		Hostname: offer.Hostname,
	}
	return m
}

func (m Meta) withStatus(u StatusUpdate) Meta {
	m.TaskStatus = m.TaskStatus.apply(u)
	return m
}

func (m Meta) withState(state types.TaskState, at time.Time) Meta {
	m.TaskStatus.State = state
	if !at.IsZero() {
		m.TaskStatus.Timestamp = at
	}
	return m
}

// Relaunched returns a copy with a fresh task ID, back in TASK_STAGING
func (m Meta) Relaunched(at time.Time) Meta {
	m.TaskID = NewID(m.TaskName)
	m.TaskStatus = Status{
		State:     types.TaskStateStaging,
		Timestamp: at,
		Mode:      m.TaskStatus.Mode,
	}
	return m
}
