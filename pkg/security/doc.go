/*
Package security encrypts task records at rest.

Backup and restore tasks carry object-store credentials in their records.
When storage.encryption_key is set, the scheduler wraps its storage backend
in an EncryptedBackend so every value is sealed with AES-256-GCM before it is
written, whichever backend sits underneath:

	registry ──▶ storage.Map ──▶ EncryptedBackend ──▶ bolt | sqlite | raft | memory
	                                  │
	                                  └─ SecretsManager (AES-256-GCM)

The key is derived from a password with SHA-256. Each value gets a fresh
random nonce, stored in front of the ciphertext:

	[ nonce (12 bytes) | ciphertext | tag (16 bytes) ]

Namespaces and keys are left in the clear so task names can still be listed.
On the raft backend values are encrypted before they enter the log, so the
log, snapshots and every follower's store hold ciphertext only.

# Usage

	secrets, err := security.NewSecretsManagerFromPassword(cfg.Storage.EncryptionKey)
	if err != nil {
		return err
	}
	backend = security.NewEncryptedBackend(backend, secrets)

A value written with another key, or tampered with, fails Get with an error
wrapping ErrDecrypt.
*/
package security
