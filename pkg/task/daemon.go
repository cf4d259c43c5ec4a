package task

import (
	"time"

	"github.com/cuemby/cassandra-scheduler/pkg/types"
)

// DaemonMode is the operating mode a Cassandra node reports about itself
type DaemonMode string

const (
	ModeStarting       DaemonMode = "STARTING"
	ModeNormal         DaemonMode = "NORMAL"
	ModeJoining        DaemonMode = "JOINING"
	ModeLeaving        DaemonMode = "LEAVING"
	ModeDecommissioned DaemonMode = "DECOMMISSIONED"
	ModeMoving         DaemonMode = "MOVING"
	ModeDraining       DaemonMode = "DRAINING"
	ModeDrained        DaemonMode = "DRAINED"
)

// Valid reports whether m is a known mode
func (m DaemonMode) Valid() bool {
	switch m {
	case ModeStarting, ModeNormal, ModeJoining, ModeLeaving,
		ModeDecommissioned, ModeMoving, ModeDraining, ModeDrained:
		return true
	}
	return false
}

// Ports are the network ports a Cassandra node listens on
type Ports struct {
	Native  int `json:"native" yaml:"native" toml:"native"`
	RPC     int `json:"rpc" yaml:"rpc" toml:"rpc"`
	Storage int `json:"storage" yaml:"storage" toml:"storage"`
	SSL     int `json:"ssl" yaml:"ssl" toml:"ssl"`
	JMX     int `json:"jmx" yaml:"jmx" toml:"jmx"`
}

// DaemonConfig is the configuration a daemon is launched with. Two configs are
// the same target configuration when they compare equal.
type DaemonConfig struct {
	Version  string  `json:"version" yaml:"version" toml:"version"`
	CPUs     float64 `json:"cpus" yaml:"cpus" toml:"cpus"`
	MemoryMB int64   `json:"memory_mb" yaml:"memory_mb" toml:"memory_mb"`
	DiskMB   int64   `json:"disk_mb" yaml:"disk_mb" toml:"disk_mb"`
	HeapMB   int64   `json:"heap_mb" yaml:"heap_mb" toml:"heap_mb"`
	Ports    Ports   `json:"ports" yaml:"ports" toml:"ports"`
}

// DaemonTask is a long-running Cassandra node
type DaemonTask struct {
	Meta
	FrameworkID string       `json:"framework_id"`
	Role        string       `json:"role"`
	Principal   string       `json:"principal"`
	Config      DaemonConfig `json:"config"`
}

// Kind returns KindDaemon
func (t *DaemonTask) Kind() Kind { return KindDaemon }

// Mode returns the last operating mode the node reported
func (t *DaemonTask) Mode() DaemonMode { return t.TaskStatus.Mode }

// Index returns the numeric index encoded in the daemon's name
func (t *DaemonTask) Index() (int, bool) { return DaemonIndex(t.TaskName) }

func (t *DaemonTask) WithOffer(offer types.Offer) Task {
	c := *t
	c.Meta = t.Meta.withOffer(offer)
	return &c
}

func (t *DaemonTask) WithStatus(update StatusUpdate) Task {
	c := *t
	c.Meta = t.Meta.withStatus(update)
	return &c
}

func (t *DaemonTask) WithState(state types.TaskState, at time.Time) Task {
	c := *t
	c.Meta = t.Meta.withState(state, at)
	return &c
}

// WithConfig returns a relaunched copy running the given configuration
func (t *DaemonTask) WithConfig(cfg DaemonConfig, at time.Time) *DaemonTask {
	c := *t
	c.Meta = t.Meta.Relaunched(at)
	c.Config = cfg
	return &c
}
