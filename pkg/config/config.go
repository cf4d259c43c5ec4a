package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/cuemby/cassandra-scheduler/pkg/task"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure
var ErrInvalidConfig = errors.New("invalid config")

// Storage backends
const (
	BackendBolt   = "bolt"
	BackendSQLite = "sqlite"
	BackendRaft   = "raft"
	BackendMemory = "memory"
)

// Config is the scheduler's configuration file
type Config struct {
	Service   ServiceConfig     `yaml:"service" toml:"service"`
	Nodes     int               `yaml:"nodes" toml:"nodes"`
	Daemon    task.DaemonConfig `yaml:"daemon" toml:"daemon"`
	Storage   StorageConfig     `yaml:"storage" toml:"storage"`
	Log       LogConfig         `yaml:"log" toml:"log"`
	API       APIConfig         `yaml:"api" toml:"api"`
	Repair    RepairConfig      `yaml:"repair" toml:"repair"`
	Intervals IntervalsConfig   `yaml:"intervals" toml:"intervals"`
}

// ServiceConfig is the framework's identity with the orchestrator
type ServiceConfig struct {
	Name      string `yaml:"name" toml:"name"`
	Role      string `yaml:"role" toml:"role"`
	Principal string `yaml:"principal" toml:"principal"`
	User      string `yaml:"user" toml:"user"`
}

// StorageConfig selects where task records are persisted
type StorageConfig struct {
	Backend string     `yaml:"backend" toml:"backend"`
	DataDir string     `yaml:"data_dir" toml:"data_dir"`
	Raft    RaftConfig `yaml:"raft" toml:"raft"`

	// EncryptionKey, when set, encrypts every stored value. It is
	// overridden by the EncryptionKeyEnv environment variable.
	EncryptionKey string `yaml:"encryption_key" toml:"encryption_key"`
}

// EncryptionKeyEnv overrides storage.encryption_key
const EncryptionKeyEnv = "CASSANDRA_SCHEDULER_ENCRYPTION_KEY"

// RaftConfig configures the replicated backend
type RaftConfig struct {
	NodeID    string `yaml:"node_id" toml:"node_id"`
	BindAddr  string `yaml:"bind_addr" toml:"bind_addr"`
	Bootstrap bool   `yaml:"bootstrap" toml:"bootstrap"`

	// Peers are added as voters by the bootstrapping node once it leads
	Peers []RaftPeer `yaml:"peers" toml:"peers"`
}

// RaftPeer is another scheduler in the raft cluster
type RaftPeer struct {
	NodeID  string `yaml:"node_id" toml:"node_id"`
	Address string `yaml:"address" toml:"address"`
}

// LogConfig configures pkg/log
type LogConfig struct {
	Level string `yaml:"level" toml:"level"`
	JSON  bool   `yaml:"json" toml:"json"`
}

// APIConfig holds the listen addresses of the HTTP and gRPC servers. An
// empty address disables that server.
type APIConfig struct {
	HTTPAddr string `yaml:"http_addr" toml:"http_addr"`
	GRPCAddr string `yaml:"grpc_addr" toml:"grpc_addr"`
}

// RepairConfig configures the repair policy
type RepairConfig struct {
	StagingTimeout string `yaml:"staging_timeout" toml:"staging_timeout"`
}

// IntervalsConfig holds the periods of the background loops
type IntervalsConfig struct {
	Schedule  string `yaml:"schedule" toml:"schedule"`
	Reconcile string `yaml:"reconcile" toml:"reconcile"`
	Metrics   string `yaml:"metrics" toml:"metrics"`
}

// Default returns a single-node configuration that stores tasks in bolt
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:      "cassandra",
			Role:      "cassandra-role",
			Principal: "cassandra-principal",
			User:      "nobody",
		},
		Nodes: 3,
		Daemon: task.DaemonConfig{
			Version:  "3.0.10",
			CPUs:     0.5,
			MemoryMB: 4096,
			DiskMB:   10240,
			HeapMB:   2048,
			Ports: task.Ports{
				Native:  9042,
				RPC:     9160,
				Storage: 7000,
				SSL:     7001,
				JMX:     7199,
			},
		},
		Storage: StorageConfig{
			Backend: BackendBolt,
			DataDir: "./data",
			Raft: RaftConfig{
				NodeID:   "scheduler-0",
				BindAddr: "127.0.0.1:7946",
			},
		},
		Log: LogConfig{
			Level: "info",
		},
		API: APIConfig{
			HTTPAddr: ":9090",
			GRPCAddr: ":9091",
		},
		Repair: RepairConfig{
			StagingTimeout: task.DefaultStagingTimeout.String(),
		},
		Intervals: IntervalsConfig{
			Schedule:  "10s",
			Reconcile: "10s",
			Metrics:   "15s",
		},
	}
}

// Load reads a YAML (.yaml, .yml) or TOML (.toml) file over the defaults and
// validates the result
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported config format %q", ErrInvalidConfig, filepath.Ext(path))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

func positiveDuration(field, value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return invalid("%s: %v", field, err)
	}
	if d <= 0 {
		return invalid("%s must be positive, got %s", field, value)
	}
	return nil
}

// Validate reports every problem with the configuration at once
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.Service.Name == "" {
		result = multierror.Append(result, invalid("service.name is required"))
	}
	if c.Service.Role == "" {
		result = multierror.Append(result, invalid("service.role is required"))
	}
	if c.Nodes < 1 {
		result = multierror.Append(result, invalid("nodes must be at least 1, got %d", c.Nodes))
	}

	d := c.Daemon
	if d.Version == "" {
		result = multierror.Append(result, invalid("daemon.version is required"))
	}
	if d.CPUs <= 0 {
		result = multierror.Append(result, invalid("daemon.cpus must be positive"))
	}
	if d.MemoryMB <= 0 || d.DiskMB <= 0 {
		result = multierror.Append(result, invalid("daemon.memory_mb and daemon.disk_mb must be positive"))
	}
	if d.HeapMB <= 0 || d.HeapMB > d.MemoryMB {
		result = multierror.Append(result, invalid("daemon.heap_mb must be in (0, memory_mb], got %d", d.HeapMB))
	}

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendBolt, BackendSQLite:
		if c.Storage.DataDir == "" {
			result = multierror.Append(result, invalid("storage.data_dir is required for %s", c.Storage.Backend))
		}
	case BackendRaft:
		if c.Storage.DataDir == "" || c.Storage.Raft.NodeID == "" || c.Storage.Raft.BindAddr == "" {
			result = multierror.Append(result, invalid("storage.data_dir, storage.raft.node_id and storage.raft.bind_addr are required for raft"))
		}
		for i, peer := range c.Storage.Raft.Peers {
			if peer.NodeID == "" || peer.Address == "" {
				result = multierror.Append(result, invalid("storage.raft.peers[%d] needs node_id and address", i))
			}
		}
	default:
		result = multierror.Append(result, invalid("unknown storage.backend %q", c.Storage.Backend))
	}

	durations := []struct{ field, value string }{
		{"repair.staging_timeout", c.Repair.StagingTimeout},
		{"intervals.schedule", c.Intervals.Schedule},
		{"intervals.reconcile", c.Intervals.Reconcile},
		{"intervals.metrics", c.Intervals.Metrics},
	}
	for _, d := range durations {
		if err := positiveDuration(d.field, d.value); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result.ErrorOrNil()
}

// durationOf parses a duration Validate has already checked
func durationOf(value string) time.Duration {
	d, _ := time.ParseDuration(value)
	return d
}

// RepairPolicy returns the repair policy the configuration describes
func (c *Config) RepairPolicy() task.RepairPolicy {
	policy := task.DefaultRepairPolicy()
	if d := durationOf(c.Repair.StagingTimeout); d > 0 {
		policy.StagingTimeout = d
	}
	return policy
}

// ScheduleInterval returns the period of the scheduling loop
func (c *Config) ScheduleInterval() time.Duration { return durationOf(c.Intervals.Schedule) }

// ReconcileInterval returns the period of the reconciliation loop
func (c *Config) ReconcileInterval() time.Duration { return durationOf(c.Intervals.Reconcile) }

// MetricsInterval returns the period of the metrics collector
func (c *Config) MetricsInterval() time.Duration { return durationOf(c.Intervals.Metrics) }
