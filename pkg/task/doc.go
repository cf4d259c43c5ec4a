/*
Package task defines the task records tracked by the scheduler.

Every record is one of five kinds, each with its own payload:

	CASSANDRA_DAEMON   *DaemonTask            node-<n>
	BACKUP_SNAPSHOT    *BackupSnapshotTask    snapshot-<daemon>
	BACKUP_UPLOAD      *BackupUploadTask      upload-<daemon>
	SNAPSHOT_DOWNLOAD  *DownloadSnapshotTask  download-<daemon>
	SNAPSHOT_RESTORE   *RestoreSnapshotTask   restore-<daemon>

A record's name is its stable handle and encodes its kind. Its ID is assigned
per launch as <name>__<uuid> and changes whenever the task is relaunched.

Records are immutable values. WithOffer, WithStatus and WithState return a
new record and never modify the receiver, so a record that has been handed
out by the registry can be read without locking.

# Status Payloads

Executors attach a protobuf-encoded google.protobuf.Struct to status reports.
The "type" field names the task kind; daemons add "mode", backup and restore
tasks add "completed", "total" and "error". ParseStatus distinguishes a
payload that cannot be decoded (ErrMalformedStatus) from one that decodes
but is not valid for the task (ErrInvalidStatus).
*/
package task
