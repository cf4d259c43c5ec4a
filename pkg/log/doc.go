/*
Package log provides structured logging for the scheduler using zerolog.

A single package-level Logger is configured once through Init and shared by
every package. Components derive child loggers that stamp each line with
their name, and task-scoped lines carry the task name or ID:

	logger := log.WithComponent("registry")
	logger.Info().
		Str("task_name", t.Name()).
		Str("task_id", t.ID()).
		Msg("Task installed")

Output is either JSON (one object per line, for log shipping) or the zerolog
console writer (human-readable, RFC3339 timestamps):

	{"level":"info","component":"registry","task_name":"node-0","time":"...","message":"Task installed"}
	2024-10-13T10:30:00Z INF Task installed component=registry task_name=node-0

# Levels

  - debug: every loaded key, every snapshot swap
  - info: lifecycle, task creation and transitions, dropped events for
    unknown task IDs (expected, not faults)
  - warn: tasks that need repair, rejected status payloads
  - error: persistence failures

ParseLevel accepts the level names used in configuration files and falls
back to info for anything it does not recognise.
*/
package log
