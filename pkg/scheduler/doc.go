/*
Package scheduler plans the Cassandra daemons of the cluster.

Every cycle the scheduler makes sure the registry holds one daemon record per
configured node (node-0 .. node-N-1) and rolls configuration changes through
the ring:

	┌────────────────────────────────────────────────────────────┐
	│                    Scheduler Loop                          │
	│                  (every 10 seconds)                        │
	└────────────────┬───────────────────────────────────────────┘
	                 │
	                 ▼
	  1. GetOrCreateDaemon for every node without a record
	  2. If a placed daemon is still staging or starting, stop
	  3. Otherwise reconfigure the lowest-indexed daemon whose
	     configuration differs from the target

Reconfiguring relaunches the daemon on the agent it is bound to, so the next
daemon is only touched once the previous one reports TASK_RUNNING. New
records are created unbound; matching them to offers is the caller's job.

# Usage

	sched := scheduler.NewScheduler(reg, cfg.Nodes, cfg.ScheduleInterval())
	sched.Start()
	defer sched.Stop()

# Metrics

  - cassandra_scheduler_scheduling_latency_seconds: duration of one cycle
  - cassandra_scheduler_daemons_created_total: records created
  - cassandra_scheduler_daemons_reconfigured_total: configuration rollouts
*/
package scheduler
