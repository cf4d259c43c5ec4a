package security

import (
	"bytes"
	"testing"

	"github.com/cuemby/cassandra-scheduler/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSecretsManager(t *testing.T) {
	tests := []struct {
		name    string
		key     []byte
		wantErr bool
	}{
		{name: "valid 32-byte key", key: make([]byte, 32)},
		{name: "invalid short key", key: make([]byte, 16), wantErr: true},
		{name: "invalid long key", key: make([]byte, 64), wantErr: true},
		{name: "empty key", key: []byte{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm, err := NewSecretsManager(tt.key)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, sm)
		})
	}
}

func TestNewSecretsManagerFromPassword(t *testing.T) {
	_, err := NewSecretsManagerFromPassword("")
	assert.Error(t, err)

	a, err := NewSecretsManagerFromPassword("my-secure-password")
	require.NoError(t, err)
	b, err := NewSecretsManagerFromPassword("my-secure-password")
	require.NoError(t, err)

	// Same password, same key
	sealed, err := a.Encrypt([]byte("backup-secret"))
	require.NoError(t, err)
	plain, err := b.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, []byte("backup-secret"), plain)
}

func TestEncryptDecryptRoundtrip(t *testing.T) {
	key := make([]byte, 32)
	copy(key, []byte("test-encryption-key-32-bytes-!!"))

	sm, err := NewSecretsManager(key)
	require.NoError(t, err)

	tests := []struct {
		name      string
		plaintext []byte
	}{
		{name: "empty", plaintext: []byte{}},
		{name: "json record", plaintext: []byte(`{"access_key":"AKIA","secret_key":"s3cr3t"}`)},
		{name: "binary data", plaintext: []byte{0x00, 0x01, 0x02, 0xFF, 0xFE, 0xFD}},
		{name: "large data", plaintext: bytes.Repeat([]byte("test"), 1000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ciphertext, err := sm.Encrypt(tt.plaintext)
			require.NoError(t, err)
			assert.NotEqual(t, tt.plaintext, ciphertext)

			decrypted, err := sm.Decrypt(ciphertext)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(tt.plaintext, decrypted))
		})
	}
}

func TestEncryptUsesFreshNonce(t *testing.T) {
	sm, err := NewSecretsManager(make([]byte, 32))
	require.NoError(t, err)

	first, err := sm.Encrypt([]byte("same"))
	require.NoError(t, err)
	second, err := sm.Encrypt([]byte("same"))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestDecryptErrors(t *testing.T) {
	sm, err := NewSecretsManager(make([]byte, 32))
	require.NoError(t, err)

	sealed, err := sm.Encrypt([]byte("payload"))
	require.NoError(t, err)
	tampered := append([]byte(nil), sealed...)
	tampered[len(tampered)-1] ^= 0xFF

	other, err := NewSecretsManagerFromPassword("another-password")
	require.NoError(t, err)
	_, err = other.Decrypt(sealed)
	assert.ErrorIs(t, err, ErrDecrypt, "wrong key")

	tests := []struct {
		name       string
		ciphertext []byte
	}{
		{name: "empty", ciphertext: nil},
		{name: "too short", ciphertext: []byte("short")},
		{name: "tampered", ciphertext: tampered},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sm.Decrypt(tt.ciphertext)
			assert.ErrorIs(t, err, ErrDecrypt)
		})
	}
}

func TestEncryptedBackend(t *testing.T) {
	sm, err := NewSecretsManagerFromPassword("cluster-password")
	require.NoError(t, err)

	inner := storage.NewMemoryStore()
	backend := NewEncryptedBackend(inner, sm)
	var _ storage.Backend = backend

	record := []byte(`{"name":"backup-node-0","secret_key":"s3cr3t"}`)
	require.NoError(t, backend.Put("tasks", "backup-node-0", record))

	raw, ok, err := inner.Get("tasks", "backup-node-0")
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotContains(t, string(raw), "s3cr3t")

	got, ok, err := backend.Get("tasks", "backup-node-0")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, record, got)

	keys, err := backend.Keys("tasks")
	require.NoError(t, err)
	assert.Equal(t, []string{"backup-node-0"}, keys)

	_, ok, err = backend.Get("tasks", "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, backend.Delete("tasks", "backup-node-0"))
	_, ok, err = backend.Get("tasks", "backup-node-0")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEncryptedBackendRejectsPlaintext(t *testing.T) {
	sm, err := NewSecretsManager(make([]byte, 32))
	require.NoError(t, err)

	inner := storage.NewMemoryStore()
	require.NoError(t, inner.Put("tasks", "node-0", []byte(`{"name":"node-0"}`)))

	_, _, err = NewEncryptedBackend(inner, sm).Get("tasks", "node-0")
	assert.ErrorIs(t, err, ErrDecrypt)

	// Through storage.Map the failure carries the key
	m := storage.NewMap[map[string]any](NewEncryptedBackend(inner, sm), "tasks", storage.JSONSerializer[map[string]any]{})
	_, _, err = m.Get("node-0")
	var serr *storage.Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "node-0", serr.Key)
	assert.ErrorIs(t, err, ErrDecrypt)
}
