/*
Package events provides an in-memory event broker for task registry changes.

The registry publishes one Event per committed mutation and the reconciler
publishes task.needs_repair when the repair policy flags a task. Consumers
(the API, operators tailing logs, tests) subscribe and receive every event:

	Publisher → event channel (buffer 100) → broadcast loop
	          → subscriber channels (buffer 50 each)

# Event Types

  - task.created: a task was added under a new name
  - task.updated: a task was replaced (offer binding, status, relaunch)
  - task.removed: a task was removed from the registry
  - task.failed: a status update moved a task to a terminal state other
    than TASK_FINISHED
  - task.completed: a status update moved a task to TASK_FINISHED
  - task.needs_repair: the repair policy flagged the task
  - task.reconfigured: a daemon was relaunched with a new configuration

# Delivery

Publish never blocks. When the broker queue is full the event is dropped and a
warning logged, and a subscriber whose buffer is full misses the event. Events
are notifications, not a source of truth: the registry snapshot is.

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	for event := range sub {
		fmt.Println(event.Type, event.TaskName)
	}
*/
package events
