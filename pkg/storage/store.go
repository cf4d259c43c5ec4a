package storage

import (
	"encoding/json"
	"fmt"
)

// Backend is a durable namespaced mapping from string keys to bytes.
// Implementations provide their own internal consistency: a successful Put
// or Delete has been made durable before it returns.
type Backend interface {
	// Keys lists every key in a namespace
	Keys(namespace string) ([]string, error)

	// Get returns the value stored under key, and false if there is none
	Get(namespace, key string) ([]byte, bool, error)

	// Put stores value under key, replacing any previous value
	Put(namespace, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(namespace, key string) error

	Close() error
}

// Serializer converts values of T to and from their stored form
type Serializer[T any] interface {
	Serialize(value T) ([]byte, error)
	Deserialize(data []byte) (T, error)
}

// PersistentMap is a typed view of one namespace of a Backend
type PersistentMap[T any] interface {
	KeySet() ([]string, error)
	Get(key string) (T, bool, error)
	Put(key string, value T) error
	Remove(key string) error
}

// Error is returned for every failed persistence operation
type Error struct {
	Op        string
	Namespace string
	Key       string
	Err       error
}

func (e *Error) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("persistence %s %s: %v", e.Op, e.Namespace, e.Err)
	}
	return fmt.Sprintf("persistence %s %s/%s: %v", e.Op, e.Namespace, e.Key, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Map implements PersistentMap over a Backend namespace
type Map[T any] struct {
	backend    Backend
	namespace  string
	serializer Serializer[T]
}

// NewMap creates a typed map stored in namespace
func NewMap[T any](backend Backend, namespace string, serializer Serializer[T]) *Map[T] {
	return &Map[T]{
		backend:    backend,
		namespace:  namespace,
		serializer: serializer,
	}
}

// KeySet returns every key stored in the map
func (m *Map[T]) KeySet() ([]string, error) {
	keys, err := m.backend.Keys(m.namespace)
	if err != nil {
		return nil, m.fail("keys", "", err)
	}
	return keys, nil
}

// Get returns the value stored under key
func (m *Map[T]) Get(key string) (T, bool, error) {
	var zero T
	data, ok, err := m.backend.Get(m.namespace, key)
	if err != nil {
		return zero, false, m.fail("get", key, err)
	}
	if !ok {
		return zero, false, nil
	}
	value, err := m.serializer.Deserialize(data)
	if err != nil {
		return zero, false, m.fail("get", key, err)
	}
	return value, true, nil
}

// Put stores value under key
func (m *Map[T]) Put(key string, value T) error {
	data, err := m.serializer.Serialize(value)
	if err != nil {
		return m.fail("put", key, err)
	}
	if err := m.backend.Put(m.namespace, key, data); err != nil {
		return m.fail("put", key, err)
	}
	return nil
}

// Remove deletes key
func (m *Map[T]) Remove(key string) error {
	if err := m.backend.Delete(m.namespace, key); err != nil {
		return m.fail("remove", key, err)
	}
	return nil
}

func (m *Map[T]) fail(op, key string, err error) error {
	return &Error{Op: op, Namespace: m.namespace, Key: key, Err: err}
}

// JSONSerializer stores values as JSON documents
type JSONSerializer[T any] struct{}

func (JSONSerializer[T]) Serialize(value T) ([]byte, error) {
	return json.Marshal(value)
}

func (JSONSerializer[T]) Deserialize(data []byte) (T, error) {
	var value T
	err := json.Unmarshal(data, &value)
	return value, err
}
