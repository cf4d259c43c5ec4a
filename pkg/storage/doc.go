/*
Package storage provides the durable key-value layer the task registry is
persisted in.

Storage is split in two layers:

	┌──────────────── PersistentMap[T] ────────────────┐
	│  Map[T]: KeySet / Get / Put / Remove              │
	│  values encoded by an injected Serializer[T]      │
	│  every failure returned as *storage.Error         │
	└──────────────────────┬───────────────────────────┘
	                       │ namespace ("tasks", "identity")
	┌──────────────────────▼───────────────────────────┐
	│  Backend: Keys / Get / Put / Delete / Close       │
	│   - BoltStore   <dataDir>/scheduler.db (bbolt)    │
	│   - SQLiteStore <dataDir>/scheduler.sqlite        │
	│   - MemoryStore in process, for tests             │
	│   - manager.Manager, raft-replicated BoltStore    │
	└──────────────────────────────────────────────────┘

# Backends

BoltStore keeps one bucket per namespace and relies on BoltDB's
transactions: every Put and Delete is its own fsync'd db.Update. Buckets are
created on first write, so reading an unknown namespace yields no keys.
Dump and Load copy the whole database and back the raft snapshots in
package manager.

SQLiteStore keeps every namespace in one entries table keyed by
(namespace, key), opened in WAL mode with a single connection.

# Errors

Backends return plain wrapped errors. Map wraps each failure in an *Error
carrying the operation, namespace and key, which is the persistence failure
the registry surfaces to its callers:

	var perr *storage.Error
	if errors.As(err, &perr) {
		log.Logger.Error().Str("op", perr.Op).Str("key", perr.Key).Err(perr.Err).Msg("store failed")
	}
*/
package storage
