/*
Package types defines the orchestrator protocol values exchanged with the
cluster resource manager.

The scheduler never talks to the orchestrator through these types directly;
they are the plain-data boundary between the event dispatch layer and the
task registry:

  - Offer: resources available on one agent for a launch decision
  - TaskStatus: an asynchronous lifecycle report, optionally carrying an
    opaque kind-specific payload in Data
  - TaskInfo: a launch description whose Data carries a serialized record
  - TaskState: the lifecycle state enum, with IsTerminal and IsRunning
  - Identity: the framework registration (framework ID, role, principal)
  - BackupContext, RestoreContext: immutable parameters of a backup or
    restore workflow, passed through unchanged to the tasks they create

# Terminal States

A state is terminal when the task will not resume without being relaunched:

	TASK_ERROR, TASK_FAILED, TASK_FINISHED, TASK_KILLED, TASK_LOST

All other states (STAGING, STARTING, RUNNING, KILLING) are live.
*/
package types
