package manager

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/cuemby/cassandra-scheduler/pkg/log"
	"github.com/cuemby/cassandra-scheduler/pkg/storage"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"
	"github.com/rs/zerolog"
)

// ErrNotLeader is returned by writes on a node that is not the Raft leader
var ErrNotLeader = errors.New("not the raft leader")

// Manager is a storage.Backend replicated through Raft. Writes are committed
// to the Raft log and applied to every node's local BoltStore; reads are
// served from the local store.
type Manager struct {
	nodeID   string
	bindAddr string
	dataDir  string

	raft         *raft.Raft
	fsm          *StoreFSM
	store        *storage.BoltStore
	transport    raft.Transport
	logStore     *raftboltdb.BoltStore
	stableStore  *raftboltdb.BoltStore
	applyTimeout time.Duration
	logger       zerolog.Logger
}

// Config holds configuration for creating a Manager
type Config struct {
	NodeID   string
	BindAddr string
	DataDir  string

	// Transport overrides the TCP transport built from BindAddr
	Transport raft.Transport

	// ApplyTimeout bounds a single replicated write. Zero means 5s.
	ApplyTimeout time.Duration
}

// NewManager creates a new Manager instance. Raft is not started until
// Bootstrap or Start is called.
func NewManager(cfg *Config) (*Manager, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %v", err)
	}

	// Create BoltDB store
	store, err := storage.NewBoltStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %v", err)
	}

	applyTimeout := cfg.ApplyTimeout
	if applyTimeout == 0 {
		applyTimeout = 5 * time.Second
	}

	return &Manager{
		nodeID:       cfg.NodeID,
		bindAddr:     cfg.BindAddr,
		dataDir:      cfg.DataDir,
		fsm:          NewStoreFSM(store),
		store:        store,
		transport:    cfg.Transport,
		applyTimeout: applyTimeout,
		logger:       log.WithComponent("manager").With().Str("node_id", cfg.NodeID).Logger(),
	}, nil
}

func (m *Manager) raftConfig() *raft.Config {
	config := raft.DefaultConfig()
	config.LocalID = raft.ServerID(m.nodeID)
	config.LogOutput = log.WithComponent("raft")

	// Faster failover than the WAN-oriented defaults
	config.HeartbeatTimeout = 500 * time.Millisecond
	config.ElectionTimeout = 500 * time.Millisecond
	config.CommitTimeout = 50 * time.Millisecond
	config.LeaderLeaseTimeout = 250 * time.Millisecond
	return config
}

// setupRaft creates the Raft instance and its stores
func (m *Manager) setupRaft() error {
	if m.raft != nil {
		return fmt.Errorf("raft already started")
	}
	config := m.raftConfig()

	// Setup Raft communication
	if m.transport == nil {
		addr, err := net.ResolveTCPAddr("tcp", m.bindAddr)
		if err != nil {
			return fmt.Errorf("failed to resolve bind address: %v", err)
		}

		transport, err := raft.NewTCPTransport(m.bindAddr, addr, 3, 10*time.Second, log.WithComponent("raft-transport"))
		if err != nil {
			return fmt.Errorf("failed to create transport: %v", err)
		}
		m.transport = transport
	}

	// Create snapshot store
	snapshotStore, err := raft.NewFileSnapshotStore(m.dataDir, 2, log.WithComponent("raft-snapshot"))
	if err != nil {
		return fmt.Errorf("failed to create snapshot store: %v", err)
	}

	// Create log store and stable store using BoltDB
	m.logStore, err = raftboltdb.NewBoltStore(filepath.Join(m.dataDir, "raft-log.db"))
	if err != nil {
		return fmt.Errorf("failed to create log store: %v", err)
	}

	m.stableStore, err = raftboltdb.NewBoltStore(filepath.Join(m.dataDir, "raft-stable.db"))
	if err != nil {
		return fmt.Errorf("failed to create stable store: %v", err)
	}

	r, err := raft.NewRaft(config, m.fsm, m.logStore, m.stableStore, snapshotStore, m.transport)
	if err != nil {
		return fmt.Errorf("failed to create raft: %v", err)
	}
	m.raft = r
	return nil
}

// Bootstrap starts Raft and forms a new single-node cluster with this node
// as the only member
func (m *Manager) Bootstrap() error {
	if err := m.setupRaft(); err != nil {
		return err
	}

	configuration := raft.Configuration{
		Servers: []raft.Server{
			{
				ID:      raft.ServerID(m.nodeID),
				Address: m.transport.LocalAddr(),
			},
		},
	}

	future := m.raft.BootstrapCluster(configuration)
	if err := future.Error(); err != nil && !errors.Is(err, raft.ErrCantBootstrap) {
		return fmt.Errorf("failed to bootstrap cluster: %v", err)
	}

	m.logger.Info().Str("addr", string(m.transport.LocalAddr())).Msg("Raft cluster bootstrapped")
	return nil
}

// Start starts Raft without bootstrapping. The node waits to be added by the
// leader through AddVoter, or resumes the cluster it was already part of.
func (m *Manager) Start() error {
	if err := m.setupRaft(); err != nil {
		return err
	}
	m.logger.Info().Str("addr", string(m.transport.LocalAddr())).Msg("Raft started")
	return nil
}

// WaitForLeader blocks until the cluster has a leader or timeout passes
func (m *Manager) WaitForLeader(timeout time.Duration) error {
	if m.raft == nil {
		return fmt.Errorf("raft not initialized")
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if addr, _ := m.raft.LeaderWithID(); addr != "" {
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("no raft leader after %s", timeout)
}

// AddVoter adds a new manager node to the Raft cluster
func (m *Manager) AddVoter(nodeID, address string) error {
	if m.raft == nil {
		return fmt.Errorf("raft not initialized")
	}

	if !m.IsLeader() {
		return fmt.Errorf("%w, current leader: %s", ErrNotLeader, m.LeaderAddr())
	}

	future := m.raft.AddVoter(raft.ServerID(nodeID), raft.ServerAddress(address), 0, 10*time.Second)
	if err := future.Error(); err != nil {
		return fmt.Errorf("failed to add voter: %v", err)
	}

	m.logger.Info().Str("voter_id", nodeID).Str("voter_addr", address).Msg("Added voter")
	return nil
}

// RemoveServer removes a server from the Raft cluster
func (m *Manager) RemoveServer(nodeID string) error {
	if m.raft == nil {
		return fmt.Errorf("raft not initialized")
	}

	if !m.IsLeader() {
		return ErrNotLeader
	}

	future := m.raft.RemoveServer(raft.ServerID(nodeID), 0, 10*time.Second)
	if err := future.Error(); err != nil {
		return fmt.Errorf("failed to remove server: %v", err)
	}

	return nil
}

// GetClusterServers returns information about all servers in the Raft cluster
func (m *Manager) GetClusterServers() ([]raft.Server, error) {
	if m.raft == nil {
		return nil, fmt.Errorf("raft not initialized")
	}

	future := m.raft.GetConfiguration()
	if err := future.Error(); err != nil {
		return nil, fmt.Errorf("failed to get configuration: %v", err)
	}

	return future.Configuration().Servers, nil
}

// IsLeader returns true if this manager is the Raft leader
func (m *Manager) IsLeader() bool {
	if m.raft == nil {
		return false
	}
	return m.raft.State() == raft.Leader
}

// LeaderAddr returns the address of the current Raft leader
func (m *Manager) LeaderAddr() string {
	if m.raft == nil {
		return ""
	}
	addr, _ := m.raft.LeaderWithID()
	return string(addr)
}

// LeaderCh delivers true when this node gains leadership and false when it
// loses it
func (m *Manager) LeaderCh() <-chan bool {
	if m.raft == nil {
		return nil
	}
	return m.raft.LeaderCh()
}

// RaftStats returns the Raft indices and peer count sampled by
// metrics.Collector
func (m *Manager) RaftStats() map[string]uint64 {
	if m.raft == nil {
		return nil
	}

	stats := map[string]uint64{
		"last_log_index": m.raft.LastIndex(),
		"applied_index":  m.raft.AppliedIndex(),
	}
	if servers, err := m.GetClusterServers(); err == nil && len(servers) > 0 {
		stats["num_peers"] = uint64(len(servers) - 1)
	}
	return stats
}

// Apply submits a command to the Raft cluster
func (m *Manager) Apply(cmd Command) error {
	if m.raft == nil {
		return fmt.Errorf("raft not initialized")
	}
	if !m.IsLeader() {
		return ErrNotLeader
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("failed to marshal command: %v", err)
	}

	future := m.raft.Apply(data, m.applyTimeout)
	if err := future.Error(); err != nil {
		if errors.Is(err, raft.ErrNotLeader) || errors.Is(err, raft.ErrLeadershipLost) {
			return fmt.Errorf("%w: %v", ErrNotLeader, err)
		}
		return fmt.Errorf("failed to apply command: %v", err)
	}

	// Check if apply returned an error
	if resp := future.Response(); resp != nil {
		if err, ok := resp.(error); ok && err != nil {
			return err
		}
	}

	return nil
}

// Keys lists a namespace from the local store
func (m *Manager) Keys(namespace string) ([]string, error) {
	return m.store.Keys(namespace)
}

// Get reads a value from the local store
func (m *Manager) Get(namespace, key string) ([]byte, bool, error) {
	return m.store.Get(namespace, key)
}

// Put replicates a write through the Raft log
func (m *Manager) Put(namespace, key string, value []byte) error {
	return m.Apply(Command{Op: OpPut, Namespace: namespace, Key: key, Value: value})
}

// Delete replicates a delete through the Raft log
func (m *Manager) Delete(namespace, key string) error {
	return m.Apply(Command{Op: OpDelete, Namespace: namespace, Key: key})
}

// Close shuts the manager down
func (m *Manager) Close() error {
	return m.Shutdown()
}

// Shutdown stops Raft and closes every store, reporting all failures
func (m *Manager) Shutdown() error {
	var result *multierror.Error

	if m.raft != nil {
		if err := m.raft.Shutdown().Error(); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to shutdown raft: %w", err))
		}
		m.raft = nil
	}

	if closer, ok := m.transport.(raft.WithClose); ok {
		if err := closer.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to close transport: %w", err))
		}
	}

	for name, s := range map[string]*raftboltdb.BoltStore{"log": m.logStore, "stable": m.stableStore} {
		if s == nil {
			continue
		}
		if err := s.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to close %s store: %w", name, err))
		}
	}
	m.logStore, m.stableStore = nil, nil

	if m.store != nil {
		if err := m.store.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to close store: %w", err))
		}
		m.store = nil
	}

	return result.ErrorOrNil()
}
