package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cuemby/cassandra-scheduler/pkg/log"
	"github.com/cuemby/cassandra-scheduler/pkg/storage"
	"github.com/cuemby/cassandra-scheduler/pkg/types"
)

// IdentityNamespace is the store namespace the framework identity lives in
const IdentityNamespace = "identity"

const identityKey = "framework"

// ErrIdentityMismatch is returned when the stored identity belongs to a
// framework with another name
var ErrIdentityMismatch = errors.New("stored identity does not match configuration")

// IdentityManager holds the framework identity and persists it once the
// orchestrator has assigned a framework ID
type IdentityManager struct {
	mu       sync.RWMutex
	identity types.Identity
	store    storage.PersistentMap[types.Identity]
}

// NewIdentityManager loads the stored identity, if any, and reconciles it
// with the service configuration. Role, principal and user follow the
// configuration; the framework ID is kept.
func NewIdentityManager(service ServiceConfig, backend storage.Backend) (*IdentityManager, error) {
	store := storage.NewMap[types.Identity](backend, IdentityNamespace, storage.JSONSerializer[types.Identity]{})

	identity := types.Identity{
		Name:      service.Name,
		Role:      service.Role,
		Principal: service.Principal,
		User:      service.User,
	}

	stored, ok, err := store.Get(identityKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load identity: %w", err)
	}
	if ok {
		if stored.Name != service.Name {
			return nil, fmt.Errorf("%w: stored %q, configured %q", ErrIdentityMismatch, stored.Name, service.Name)
		}
		identity.FrameworkID = stored.FrameworkID
		log.Logger.Info().
			Str("framework_id", identity.FrameworkID).
			Str("name", identity.Name).
			Msg("Loaded framework identity")
	}

	return &IdentityManager{identity: identity, store: store}, nil
}

// Get returns the current identity
func (m *IdentityManager) Get() types.Identity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.identity
}

// Register records the framework ID assigned by the orchestrator
func (m *IdentityManager) Register(frameworkID string) error {
	if frameworkID == "" {
		return errors.New("framework ID is empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.identity
	next.FrameworkID = frameworkID
	if err := m.store.Put(identityKey, next); err != nil {
		return err
	}
	m.identity = next

	log.Logger.Info().Str("framework_id", frameworkID).Msg("Framework registered")
	return nil
}
