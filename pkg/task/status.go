package task

import (
	"errors"
	"fmt"
	"time"

	"github.com/cuemby/cassandra-scheduler/pkg/types"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

var (
	// ErrMalformedStatus is returned when a status payload cannot be decoded
	ErrMalformedStatus = errors.New("malformed status payload")

	// ErrInvalidStatus is returned when a status payload decodes but does not
	// describe a valid status for the task it was reported for
	ErrInvalidStatus = errors.New("invalid status payload")
)

// Payload field names
const (
	fieldType      = "type"
	fieldMode      = "mode"
	fieldCompleted = "completed"
	fieldTotal     = "total"
	fieldError     = "error"
)

// StatusUpdate is a status report translated into a record transition
type StatusUpdate struct {
	State     types.TaskState
	Message   string
	Timestamp time.Time
	Mode      DaemonMode
	Progress  *Progress
}

// StateUpdate builds the update for a report that carries no payload
func StateUpdate(status types.TaskStatus) StatusUpdate {
	return StatusUpdate{
		State:     status.State,
		Message:   status.Message,
		Timestamp: status.Timestamp,
	}
}

// ParseStatus translates a status report for a task of the given kind. The
// payload is a protobuf-encoded google.protobuf.Struct whose "type" field
// names the task kind.
func ParseStatus(kind Kind, status types.TaskStatus) (StatusUpdate, error) {
	update := StateUpdate(status)
	if !status.State.Valid() {
		return StatusUpdate{}, fmt.Errorf("%w: unknown state %q", ErrInvalidStatus, status.State)
	}
	if !status.HasData() {
		return update, nil
	}

	var payload structpb.Struct
	if err := proto.Unmarshal(status.Data, &payload); err != nil {
		return StatusUpdate{}, fmt.Errorf("%w: %v", ErrMalformedStatus, err)
	}
	fields := payload.GetFields()

	if got := Kind(fields[fieldType].GetStringValue()); got != kind {
		return StatusUpdate{}, fmt.Errorf("%w: payload type %q reported for %s task", ErrInvalidStatus, got, kind)
	}

	if kind == KindDaemon {
		if v, ok := fields[fieldMode]; ok {
			mode := DaemonMode(v.GetStringValue())
			if !mode.Valid() {
				return StatusUpdate{}, fmt.Errorf("%w: unknown mode %q", ErrInvalidStatus, mode)
			}
			update.Mode = mode
		}
		return update, nil
	}

	progress, err := parseProgress(fields)
	if err != nil {
		return StatusUpdate{}, err
	}
	update.Progress = progress
	return update, nil
}

func parseProgress(fields map[string]*structpb.Value) (*Progress, error) {
	_, hasCompleted := fields[fieldCompleted]
	_, hasTotal := fields[fieldTotal]
	_, hasError := fields[fieldError]
	if !hasCompleted && !hasTotal && !hasError {
		return nil, nil
	}

	p := &Progress{
		Completed: int64(fields[fieldCompleted].GetNumberValue()),
		Total:     int64(fields[fieldTotal].GetNumberValue()),
		Error:     fields[fieldError].GetStringValue(),
	}
	if p.Completed < 0 || p.Total < 0 {
		return nil, fmt.Errorf("%w: negative progress %d/%d", ErrInvalidStatus, p.Completed, p.Total)
	}
	if p.Total > 0 && p.Completed > p.Total {
		return nil, fmt.Errorf("%w: progress %d exceeds total %d", ErrInvalidStatus, p.Completed, p.Total)
	}
	return p, nil
}

// EncodeStatus builds the payload an executor attaches to a status report
func EncodeStatus(kind Kind, update StatusUpdate) ([]byte, error) {
	fields := map[string]any{
		fieldType: string(kind),
	}
	if update.Mode != "" {
		fields[fieldMode] = string(update.Mode)
	}
	if p := update.Progress; p != nil {
		fields[fieldCompleted] = float64(p.Completed)
		fields[fieldTotal] = float64(p.Total)
		if p.Error != "" {
			fields[fieldError] = p.Error
		}
	}

	payload, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to build status payload: %w", err)
	}
	return proto.Marshal(payload)
}
