package main

import (
	"fmt"
	"time"

	"github.com/cuemby/cassandra-scheduler/pkg/config"
	"github.com/cuemby/cassandra-scheduler/pkg/log"
	"github.com/cuemby/cassandra-scheduler/pkg/manager"
	"github.com/cuemby/cassandra-scheduler/pkg/security"
	"github.com/cuemby/cassandra-scheduler/pkg/storage"
)

// openBackend opens the configured store, encrypted when a key is set. For
// the raft backend the returned manager is non-nil and already started.
func openBackend(cfg *config.Config) (storage.Backend, *manager.Manager, error) {
	backend, mgr, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	backend, err = encrypt(cfg, backend)
	if err != nil {
		backend.Close()
		return nil, nil, err
	}
	return backend, mgr, nil
}

func openStore(cfg *config.Config) (storage.Backend, *manager.Manager, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return storage.NewMemoryStore(), nil, nil
	case config.BackendBolt:
		store, err := storage.NewBoltStore(cfg.Storage.DataDir)
		return store, nil, err
	case config.BackendSQLite:
		store, err := storage.NewSQLiteStore(cfg.Storage.DataDir)
		return store, nil, err
	case config.BackendRaft:
		mgr, err := startRaft(cfg.Storage)
		if err != nil {
			return nil, nil, err
		}
		return mgr, mgr, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown storage backend %q", config.ErrInvalidConfig, cfg.Storage.Backend)
	}
}

// openOffline opens the store for offline maintenance. A raft node's local
// state database is opened directly, without joining the cluster.
func openOffline(cfg *config.Config) (storage.Backend, error) {
	if cfg.Storage.Backend != config.BackendRaft {
		backend, _, err := openBackend(cfg)
		return backend, err
	}

	store, err := storage.NewBoltStore(cfg.Storage.DataDir)
	if err != nil {
		return nil, err
	}
	backend, err := encrypt(cfg, store)
	if err != nil {
		store.Close()
		return nil, err
	}
	return backend, nil
}

// encrypt wraps backend in an EncryptedBackend when storage.encryption_key
// is set
func encrypt(cfg *config.Config, backend storage.Backend) (storage.Backend, error) {
	if cfg.Storage.EncryptionKey == "" {
		return backend, nil
	}
	secrets, err := security.NewSecretsManagerFromPassword(cfg.Storage.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to set up encryption: %w", err)
	}
	log.WithComponent("storage").Info().Msg("Encrypting stored task records")
	return security.NewEncryptedBackend(backend, secrets), nil
}

func startRaft(cfg config.StorageConfig) (*manager.Manager, error) {
	logger := log.WithComponent("raft")

	mgr, err := manager.NewManager(&manager.Config{
		NodeID:   cfg.Raft.NodeID,
		BindAddr: cfg.Raft.BindAddr,
		DataDir:  cfg.DataDir,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create manager: %w", err)
	}

	if !cfg.Raft.Bootstrap {
		if err := mgr.Start(); err != nil {
			mgr.Shutdown()
			return nil, err
		}
		if err := mgr.WaitForLeader(30 * time.Second); err != nil {
			logger.Warn().Err(err).Msg("No leader yet, waiting to be added by the cluster")
		}
		return mgr, nil
	}

	if err := mgr.Bootstrap(); err != nil {
		mgr.Shutdown()
		return nil, err
	}
	if err := mgr.WaitForLeader(30 * time.Second); err != nil {
		mgr.Shutdown()
		return nil, err
	}

	for _, peer := range cfg.Raft.Peers {
		if err := mgr.AddVoter(peer.NodeID, peer.Address); err != nil {
			logger.Error().Err(err).Str("peer", peer.NodeID).Msg("Failed to add peer")
			continue
		}
	}
	return mgr, nil
}
