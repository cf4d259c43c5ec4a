/*
Package api serves the scheduler's HTTP and gRPC endpoints.

# HTTP

	GET  /health            process is up, with build version
	GET  /ready             critical components healthy (and a raft leader known)
	GET  /live              liveness with uptime
	GET  /metrics           Prometheus exposition
	GET  /v1/tasks          task summaries, ?kind=<KIND> and ?state=running|terminated|repair
	GET  /v1/tasks/{name}   one task with its stored record
	POST /v1/status         queue a types.TaskStatus for the reconciler

The task endpoints are read-only views of the registry. Status reports are
handed to a StatusSink (the reconciler) and answered with 202 Accepted;
whether the registry applies them is visible only through /v1/tasks and
the status_updates_total counter.

Every route is instrumented with cassandra_scheduler_api_requests_total and
cassandra_scheduler_api_request_duration_seconds, labelled by route pattern.

# gRPC

GRPCServer exposes grpc.health.v1.Health for load balancers and
orchestrators. It reports NOT_SERVING until the caller flips it with
SetServing once the registry has loaded.

# Usage

	srv := api.NewServer(reg,
		api.WithStatusSink(rec),
		api.WithVersion(version),
	)
	go srv.Start(":9090")
	defer srv.Shutdown(ctx)

	health := api.NewGRPCServer()
	go health.Start(":9091")
	health.SetServing(true)
*/
package api
