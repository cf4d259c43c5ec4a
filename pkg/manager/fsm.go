package manager

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/cuemby/cassandra-scheduler/pkg/storage"
	"github.com/hashicorp/raft"
)

// Command ops
const (
	OpPut    = "put"
	OpDelete = "delete"
)

// StoreFSM implements the Raft Finite State Machine over a local BoltStore.
// Every committed log entry is one put or delete.
type StoreFSM struct {
	mu    sync.RWMutex
	store *storage.BoltStore
}

// NewStoreFSM creates a new FSM instance
func NewStoreFSM(store *storage.BoltStore) *StoreFSM {
	return &StoreFSM{
		store: store,
	}
}

// Command represents a state change operation in the Raft log
type Command struct {
	Op        string `json:"op"`
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Value     []byte `json:"value,omitempty"`
}

// Apply applies a Raft log entry to the FSM
// This is called by Raft when a log entry is committed
func (f *StoreFSM) Apply(log *raft.Log) interface{} {
	var cmd Command
	if err := json.Unmarshal(log.Data, &cmd); err != nil {
		return fmt.Errorf("failed to unmarshal command: %v", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch cmd.Op {
	case OpPut:
		return f.store.Put(cmd.Namespace, cmd.Key, cmd.Value)
	case OpDelete:
		return f.store.Delete(cmd.Namespace, cmd.Key)
	default:
		return fmt.Errorf("unknown command: %s", cmd.Op)
	}
}

// Snapshot creates a point-in-time snapshot of the FSM
// This is called periodically by Raft to compact the log
func (f *StoreFSM) Snapshot() (raft.FSMSnapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	dump, err := f.store.Dump()
	if err != nil {
		return nil, fmt.Errorf("failed to dump store: %v", err)
	}
	return &StoreSnapshot{Namespaces: dump}, nil
}

// Restore replaces the FSM state with a snapshot
// This is called when a node restarts or joins the cluster
func (f *StoreFSM) Restore(rc io.ReadCloser) error {
	defer rc.Close()

	var snapshot StoreSnapshot
	if err := json.NewDecoder(rc).Decode(&snapshot); err != nil {
		return fmt.Errorf("failed to decode snapshot: %v", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.store.Load(snapshot.Namespaces); err != nil {
		return fmt.Errorf("failed to restore snapshot: %v", err)
	}
	return nil
}

// StoreSnapshot is a point-in-time copy of every namespace
type StoreSnapshot struct {
	Namespaces map[string]map[string][]byte `json:"namespaces"`
}

// Persist writes the snapshot to the given SnapshotSink
func (s *StoreSnapshot) Persist(sink raft.SnapshotSink) error {
	err := func() error {
		// Encode snapshot as JSON
		if err := json.NewEncoder(sink).Encode(s); err != nil {
			return err
		}
		return sink.Close()
	}()

	if err != nil {
		sink.Cancel()
	}

	return err
}

// Release releases the snapshot resources
func (s *StoreSnapshot) Release() {}
