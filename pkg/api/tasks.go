package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/cuemby/cassandra-scheduler/pkg/task"
	"github.com/cuemby/cassandra-scheduler/pkg/types"
)

// TaskView is the API representation of a task record
type TaskView struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Kind      task.Kind       `json:"kind"`
	State     types.TaskState `json:"state"`
	Message   string          `json:"message,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	AgentID   string          `json:"agent_id,omitempty"`
	Hostname  string          `json:"hostname,omitempty"`
	Record    json.RawMessage `json:"record,omitempty"`
}

// NewTaskView summarises t. With full set the stored record is attached.
func NewTaskView(t task.Task, full bool) (TaskView, error) {
	status := t.Status()
	launch := t.Launch()
	view := TaskView{
		ID:        t.ID(),
		Name:      t.Name(),
		Kind:      t.Kind(),
		State:     status.State,
		Message:   status.Message,
		Timestamp: status.Timestamp,
		AgentID:   launch.AgentID,
		Hostname:  launch.Hostname,
	}
	if full {
		record, err := task.Marshal(t)
		if err != nil {
			return TaskView{}, err
		}
		view.Record = record
	}
	return view, nil
}

type errorResponse struct {
	Error string `json:"error"`
}

// listTasks serves GET /v1/tasks. The kind query parameter filters by kind
// and state one of running, terminated or repair.
func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var tasks []task.Task
	switch state := query.Get("state"); state {
	case "":
		for _, t := range s.tasks.All() {
			tasks = append(tasks, t)
		}
		sort.Slice(tasks, func(i, j int) bool { return tasks[i].Name() < tasks[j].Name() })
	case "running":
		tasks = s.tasks.GetRunningTasks()
	case "terminated":
		tasks = s.tasks.GetTerminatedTasks()
	case "repair":
		tasks = s.tasks.GetTasksToRepair()
	default:
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown state filter: " + state})
		return
	}

	if raw := query.Get("kind"); raw != "" {
		kind := task.Kind(raw)
		if !kind.Valid() {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown kind: " + raw})
			return
		}
		filtered := tasks[:0:0]
		for _, t := range tasks {
			if t.Kind() == kind {
				filtered = append(filtered, t)
			}
		}
		tasks = filtered
	}

	views := make([]TaskView, 0, len(tasks))
	for _, t := range tasks {
		view, _ := NewTaskView(t, false)
		views = append(views, view)
	}
	writeJSON(w, http.StatusOK, views)
}

// getTask serves GET /v1/tasks/{name}
func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	t, ok := s.tasks.Get(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "task not found: " + name})
		return
	}

	view, err := NewTaskView(t, true)
	if err != nil {
		s.logger.Error().Err(err).Str("task_name", name).Msg("Failed to encode task")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// submitStatus serves POST /v1/status. Reports are queued, not applied
// synchronously, so a 202 does not mean the registry accepted the report.
func (s *Server) submitStatus(w http.ResponseWriter, r *http.Request) {
	if s.statuses == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "status intake disabled"})
		return
	}

	var status types.TaskStatus
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&status); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid status: " + err.Error()})
		return
	}
	if status.TaskID == "" || !status.State.Valid() {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "status needs a task_id and a known state"})
		return
	}

	if err := s.statuses.Submit(r.Context(), status); err != nil {
		code := http.StatusServiceUnavailable
		if errors.Is(err, r.Context().Err()) {
			code = http.StatusRequestTimeout
		}
		writeJSON(w, code, errorResponse{Error: err.Error()})
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
