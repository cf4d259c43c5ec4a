/*
Package metrics provides Prometheus metrics and health reporting for the
scheduler.

Every metric is defined as a package-level collector and registered with the
default Prometheus registry at init, so any package can update them without
plumbing a registry through:

	timer := metrics.NewTimer()
	// ... persist and swap ...
	timer.ObserveDurationVec(metrics.RegistryMutationDuration, "create")
	metrics.RegistryMutationsTotal.WithLabelValues("create").Inc()

# Metric Families

Registry:
  - cassandra_scheduler_tasks_total{kind,state}: gauge, sampled by Collector
  - cassandra_scheduler_tasks_to_repair: gauge, tasks the repair policy flags
  - cassandra_scheduler_tasks_terminated: gauge
  - cassandra_scheduler_registry_mutations_total{op}: counter
  - cassandra_scheduler_registry_mutation_duration_seconds{op}: histogram
  - cassandra_scheduler_persistence_errors_total{op}: counter
  - cassandra_scheduler_status_updates_total{outcome}: applied, unknown,
    malformed, invalid, failed
  - cassandra_scheduler_offer_updates_total{outcome}

Raft (replicated store only): is_leader, peers_total, log_index,
applied_index.

API, scheduler and reconciler: request counts and latencies, scheduling cycle
latency, daemons created and reconfigured, reconciliation cycles.

# Collector

Collector samples a TaskSource (the registry) and, when the store is
replicated, a RaftSource on a fixed interval. Gauges are reset before each
sample so states that no task is in any more read zero.

# Health

RegisterComponent and UpdateComponent record per-component health. GetHealth
is unhealthy when any component is; GetReadiness additionally requires every
critical component ("store" and "registry" by default, see
SetCriticalComponents) to have registered. pkg/api serves both as JSON;
LivenessHandler serves /live.

Handler serves the default registry in the Prometheus text format on /metrics.
*/
package metrics
