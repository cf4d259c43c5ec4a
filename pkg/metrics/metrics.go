package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry metrics
	TasksTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cassandra_scheduler_tasks_total",
			Help: "Total number of registered tasks by kind and state",
		},
		[]string{"kind", "state"},
	)

	TasksToRepair = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cassandra_scheduler_tasks_to_repair",
			Help: "Number of tasks the repair policy flags for rescheduling",
		},
	)

	TasksTerminated = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cassandra_scheduler_tasks_terminated",
			Help: "Number of tasks in a terminal state",
		},
	)

	RegistryMutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cassandra_scheduler_registry_mutations_total",
			Help: "Total number of committed registry mutations by operation",
		},
		[]string{"op"},
	)

	RegistryMutationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cassandra_scheduler_registry_mutation_duration_seconds",
			Help:    "Time taken to persist and publish a registry mutation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	PersistenceErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cassandra_scheduler_persistence_errors_total",
			Help: "Total number of failed store operations by operation",
		},
		[]string{"op"},
	)

	StatusUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cassandra_scheduler_status_updates_total",
			Help: "Total number of task status updates by outcome",
		},
		[]string{"outcome"},
	)

	OfferUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cassandra_scheduler_offer_updates_total",
			Help: "Total number of offer bindings by outcome",
		},
		[]string{"outcome"},
	)

	// Raft metrics
	RaftLeader = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cassandra_scheduler_raft_is_leader",
			Help: "Whether this node is the Raft leader (1 = leader, 0 = follower)",
		},
	)

	RaftPeers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cassandra_scheduler_raft_peers_total",
			Help: "Total number of Raft peers in the cluster",
		},
	)

	RaftLogIndex = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cassandra_scheduler_raft_log_index",
			Help: "Current Raft log index",
		},
	)

	RaftAppliedIndex = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cassandra_scheduler_raft_applied_index",
			Help: "Last applied Raft log index",
		},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cassandra_scheduler_api_requests_total",
			Help: "Total number of API requests by path and status",
		},
		[]string{"path", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cassandra_scheduler_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	// Scheduler metrics
	SchedulingLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cassandra_scheduler_scheduling_latency_seconds",
			Help:    "Time taken by one scheduling cycle in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	DaemonsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cassandra_scheduler_daemons_created_total",
			Help: "Total number of daemon tasks created by the scheduler",
		},
	)

	DaemonsReconfigured = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cassandra_scheduler_daemons_reconfigured_total",
			Help: "Total number of daemon tasks moved to the target configuration",
		},
	)

	// Reconciler metrics
	ReconciliationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cassandra_scheduler_reconciliation_duration_seconds",
			Help:    "Time taken by one reconciliation cycle in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ReconciliationCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cassandra_scheduler_reconciliation_cycles_total",
			Help: "Total number of reconciliation cycles",
		},
	)
)

func init() {
	prometheus.MustRegister(TasksTotal)
	prometheus.MustRegister(TasksToRepair)
	prometheus.MustRegister(TasksTerminated)
	prometheus.MustRegister(RegistryMutationsTotal)
	prometheus.MustRegister(RegistryMutationDuration)
	prometheus.MustRegister(PersistenceErrorsTotal)
	prometheus.MustRegister(StatusUpdatesTotal)
	prometheus.MustRegister(OfferUpdatesTotal)
	prometheus.MustRegister(RaftLeader)
	prometheus.MustRegister(RaftPeers)
	prometheus.MustRegister(RaftLogIndex)
	prometheus.MustRegister(RaftAppliedIndex)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
	prometheus.MustRegister(SchedulingLatency)
	prometheus.MustRegister(DaemonsCreated)
	prometheus.MustRegister(DaemonsReconfigured)
	prometheus.MustRegister(ReconciliationDuration)
	prometheus.MustRegister(ReconciliationCyclesTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
