package types

import (
	"time"
)

// TaskState is the lifecycle state reported by the orchestrator for a task
type TaskState string

const (
	TaskStateStaging  TaskState = "TASK_STAGING"
	TaskStateStarting TaskState = "TASK_STARTING"
	TaskStateRunning  TaskState = "TASK_RUNNING"
	TaskStateKilling  TaskState = "TASK_KILLING"
	TaskStateFinished TaskState = "TASK_FINISHED"
	TaskStateFailed   TaskState = "TASK_FAILED"
	TaskStateKilled   TaskState = "TASK_KILLED"
	TaskStateError    TaskState = "TASK_ERROR"
	TaskStateLost     TaskState = "TASK_LOST"
)

// IsTerminal reports whether a task in this state will not resume without
// being relaunched
func (s TaskState) IsTerminal() bool {
	switch s {
	case TaskStateError, TaskStateFailed, TaskStateFinished, TaskStateKilled, TaskStateLost:
		return true
	}
	return false
}

// IsRunning reports whether the state is TASK_RUNNING
func (s TaskState) IsRunning() bool {
	return s == TaskStateRunning
}

// Valid reports whether s is one of the known states
func (s TaskState) Valid() bool {
	switch s {
	case TaskStateStaging, TaskStateStarting, TaskStateRunning, TaskStateKilling,
		TaskStateFinished, TaskStateFailed, TaskStateKilled, TaskStateError, TaskStateLost:
		return true
	}
	return false
}

// Resource is a named scalar resource carried by an offer
type Resource struct {
	Name   string  `json:"name"`
	Scalar float64 `json:"scalar"`
	Role   string  `json:"role,omitempty"`
}

// Offer describes resources on one agent that are available for launching
type Offer struct {
	ID          string     `json:"id"`
	FrameworkID string     `json:"framework_id"`
	AgentID     string     `json:"agent_id"`
	Hostname    string     `json:"hostname"`
	Resources   []Resource `json:"resources,omitempty"`
}

// TaskStatus is an asynchronous status report for a single task
type TaskStatus struct {
	TaskID    string    `json:"task_id"`
	State     TaskState `json:"state"`
	Message   string    `json:"message,omitempty"`
	AgentID   string    `json:"agent_id,omitempty"`
	Data      []byte    `json:"data,omitempty"` // Optional kind-specific payload
	Timestamp time.Time `json:"timestamp"`
}

// HasData reports whether the report carries a payload
func (s TaskStatus) HasData() bool {
	return len(s.Data) > 0
}

// TaskInfo is the launch description handed to the orchestrator. Data carries
// the serialized task record the launch was built from.
type TaskInfo struct {
	TaskID  string `json:"task_id"`
	Name    string `json:"name"`
	AgentID string `json:"agent_id,omitempty"`
	Data    []byte `json:"data,omitempty"`
}

// Identity is the framework's registration with the orchestrator
type Identity struct {
	FrameworkID string `json:"framework_id"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	Principal   string `json:"principal"`
	User        string `json:"user"`
}

// Registered reports whether the orchestrator has assigned a framework ID
func (i Identity) Registered() bool {
	return i.FrameworkID != ""
}

// BackupContext holds the parameters of one backup workflow
type BackupContext struct {
	Name             string `json:"name"`
	ExternalLocation string `json:"external_location"`
	LocalLocation    string `json:"local_location"`
	AccessKey        string `json:"access_key,omitempty"`
	SecretKey        string `json:"secret_key,omitempty"`
}

// RestoreContext holds the parameters of one restore workflow
type RestoreContext struct {
	Name             string `json:"name"`
	ExternalLocation string `json:"external_location"`
	LocalLocation    string `json:"local_location"`
	AccessKey        string `json:"access_key,omitempty"`
	SecretKey        string `json:"secret_key,omitempty"`
}
