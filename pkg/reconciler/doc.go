/*
Package reconciler feeds orchestrator status reports into the task registry
and watches for tasks that need repair.

# Architecture

	orchestrator ──► Submit ──► status queue ──► Registry.UpdateFromStatus
	                                 │
	ticker (10s) ──► Reconcile ──────┤
	                                 ▼
	              GetTasksToRepair / GetTerminatedTasks
	                                 │
	                     gauges + task.needs_repair events

Status reports are applied one at a time from a single goroutine, so they
reach the registry in submission order. A report the registry rejects
(unknown task, malformed payload, persistence failure) is logged and the
loop moves on.

Each Reconcile cycle sets the tasks_to_repair and tasks_terminated gauges
and publishes a needs_repair event for every task that has newly entered
the repair set. The reconciler only reports; relaunching is left to the
caller that consumes the events.

# Usage

	rec := reconciler.NewReconciler(reg, broker, 10*time.Second)
	rec.Start()
	defer rec.Stop()

	if err := rec.Submit(ctx, status); err != nil {
		return err
	}
*/
package reconciler
