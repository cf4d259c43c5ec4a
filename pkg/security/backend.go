package security

import (
	"github.com/cuemby/cassandra-scheduler/pkg/storage"
)

// EncryptedBackend encrypts every value before it reaches the wrapped
// backend. Namespaces and keys stay readable.
type EncryptedBackend struct {
	storage.Backend
	secrets *SecretsManager
}

// NewEncryptedBackend wraps backend so values are stored encrypted
func NewEncryptedBackend(backend storage.Backend, secrets *SecretsManager) *EncryptedBackend {
	return &EncryptedBackend{Backend: backend, secrets: secrets}
}

func (b *EncryptedBackend) Get(namespace, key string) ([]byte, bool, error) {
	data, ok, err := b.Backend.Get(namespace, key)
	if err != nil || !ok {
		return nil, ok, err
	}
	plaintext, err := b.secrets.Decrypt(data)
	if err != nil {
		return nil, false, err
	}
	return plaintext, true, nil
}

func (b *EncryptedBackend) Put(namespace, key string, value []byte) error {
	sealed, err := b.secrets.Encrypt(value)
	if err != nil {
		return err
	}
	return b.Backend.Put(namespace, key, sealed)
}
