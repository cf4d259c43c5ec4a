package metrics

import (
	"time"

	"github.com/cuemby/cassandra-scheduler/pkg/task"
)

// TaskSource is the read side of the task registry the collector samples
type TaskSource interface {
	All() map[string]task.Task
	GetTerminatedTasks() []task.Task
	GetTasksToRepair() []task.Task
}

// RaftSource exposes the consensus state of a replicated store
type RaftSource interface {
	IsLeader() bool
	RaftStats() map[string]uint64
}

// Collector periodically samples the registry into gauges
type Collector struct {
	tasks    TaskSource
	raft     RaftSource
	interval time.Duration
	stopCh   chan struct{}
}

// NewCollector creates a new metrics collector. raft may be nil.
func NewCollector(tasks TaskSource, raft RaftSource, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Collector{
		tasks:    tasks,
		raft:     raft,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins collecting metrics
func (c *Collector) Start() {
	ticker := time.NewTicker(c.interval)
	go func() {
		// Collect immediately on start
		c.Collect()

		for {
			select {
			case <-ticker.C:
				c.Collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector
func (c *Collector) Stop() {
	close(c.stopCh)
}

// Collect takes one sample
func (c *Collector) Collect() {
	c.collectTaskMetrics()
	c.collectRaftMetrics()
}

func (c *Collector) collectTaskMetrics() {
	counts := make(map[task.Kind]map[string]int)
	for _, kind := range task.Kinds {
		counts[kind] = make(map[string]int)
	}

	for _, t := range c.tasks.All() {
		if counts[t.Kind()] == nil {
			counts[t.Kind()] = make(map[string]int)
		}
		counts[t.Kind()][string(t.Status().State)]++
	}

	// Reset so states that emptied out drop to zero
	TasksTotal.Reset()
	for kind, states := range counts {
		for state, count := range states {
			TasksTotal.WithLabelValues(string(kind), state).Set(float64(count))
		}
	}

	TasksTerminated.Set(float64(len(c.tasks.GetTerminatedTasks())))
	TasksToRepair.Set(float64(len(c.tasks.GetTasksToRepair())))
}

func (c *Collector) collectRaftMetrics() {
	if c.raft == nil {
		return
	}

	if c.raft.IsLeader() {
		RaftLeader.Set(1)
	} else {
		RaftLeader.Set(0)
	}

	stats := c.raft.RaftStats()
	if stats == nil {
		return
	}
	if lastIndex, ok := stats["last_log_index"]; ok {
		RaftLogIndex.Set(float64(lastIndex))
	}
	if appliedIndex, ok := stats["applied_index"]; ok {
		RaftAppliedIndex.Set(float64(appliedIndex))
	}
	if peers, ok := stats["num_peers"]; ok {
		// num_peers excludes this node
		RaftPeers.Set(float64(peers + 1))
	}
}
