package task

import (
	"encoding/json"
	"fmt"

	"github.com/cuemby/cassandra-scheduler/pkg/types"
)

// envelope is the persisted form of a record: the kind tag selects the shape
// of the inner document
type envelope struct {
	Kind Kind            `json:"kind"`
	Task json.RawMessage `json:"task"`
}

// Marshal encodes a record together with its kind tag
func Marshal(t Task) ([]byte, error) {
	if t == nil {
		return nil, fmt.Errorf("cannot marshal nil task")
	}
	body, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task %s: %w", t.Name(), err)
	}
	return json.Marshal(envelope{Kind: t.Kind(), Task: body})
}

// Unmarshal decodes a record produced by Marshal
func Unmarshal(data []byte) (Task, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task envelope: %w", err)
	}

	var t Task
	switch env.Kind {
	case KindDaemon:
		t = &DaemonTask{}
	case KindBackupSnapshot:
		t = &BackupSnapshotTask{}
	case KindBackupUpload:
		t = &BackupUploadTask{}
	case KindSnapshotDownload:
		t = &DownloadSnapshotTask{}
	case KindSnapshotRestore:
		t = &RestoreSnapshotTask{}
	default:
		return nil, fmt.Errorf("unknown task kind: %q", env.Kind)
	}

	if err := json.Unmarshal(env.Task, t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s task: %w", env.Kind, err)
	}
	if t.Name() == "" {
		return nil, fmt.Errorf("%s task has no name", env.Kind)
	}
	return t, nil
}

// Serializer persists records through Marshal and Unmarshal
type Serializer struct{}

func (Serializer) Serialize(t Task) ([]byte, error) {
	return Marshal(t)
}

func (Serializer) Deserialize(data []byte) (Task, error) {
	return Unmarshal(data)
}

// FromTaskInfo decodes the record carried by a launch description
func FromTaskInfo(info types.TaskInfo) (Task, error) {
	t, err := Unmarshal(info.Data)
	if err != nil {
		return nil, err
	}
	if t.ID() != info.TaskID {
		return nil, fmt.Errorf("task info %s carries record with id %s", info.TaskID, t.ID())
	}
	if info.Name != "" && t.Name() != info.Name {
		return nil, fmt.Errorf("task info %s carries record named %s", info.Name, t.Name())
	}
	return t, nil
}

// ToTaskInfo builds the launch description for a record
func ToTaskInfo(t Task) (types.TaskInfo, error) {
	data, err := Marshal(t)
	if err != nil {
		return types.TaskInfo{}, err
	}
	return types.TaskInfo{
		TaskID:  t.ID(),
		Name:    t.Name(),
		AgentID: t.Launch().AgentID,
		Data:    data,
	}, nil
}
