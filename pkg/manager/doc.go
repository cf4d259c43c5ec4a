/*
Package manager replicates the scheduler's persistent store with Raft.

A Manager implements storage.Backend, so the task registry and the identity
manager run unchanged on top of it. Each Put or Delete becomes a Command in
the Raft log; once committed, StoreFSM applies it to the node's local
storage.BoltStore. Reads never leave the node.

	registry ──► storage.Map ──► Manager.Put ──► raft.Apply
	                                               │
	                            every node ◄───────┘
	                            StoreFSM.Apply ──► BoltStore

Only the leader accepts writes. On a follower Put and Delete fail with
ErrNotLeader, which storage.Map reports inside a *storage.Error.

# Cluster Formation

The first node calls Bootstrap. Other nodes call Start and are added by the
leader with AddVoter. Raft's log and stable stores are raft-boltdb files in
the data directory next to the state database; snapshots are JSON dumps of
every namespace, written through a FileSnapshotStore.

# Usage

	mgr, err := manager.NewManager(&manager.Config{
		NodeID:   "scheduler-0",
		BindAddr: "127.0.0.1:7946",
		DataDir:  "/var/lib/cassandra-scheduler",
	})
	if err != nil {
		return err
	}
	if err := mgr.Bootstrap(); err != nil {
		return err
	}
	if err := mgr.WaitForLeader(10 * time.Second); err != nil {
		return err
	}

	tasks := registry.NewMapStore(mgr)

Tests pass a raft.InmemTransport through Config.Transport to run several
nodes in one process.
*/
package manager
