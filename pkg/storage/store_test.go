package storage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func backends(t *testing.T) map[string]Backend {
	t.Helper()

	bolt, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { bolt.Close() })

	sqlite, err := NewSQLiteStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Backend{
		"bolt":   bolt,
		"sqlite": sqlite,
		"memory": NewMemoryStore(),
	}
}

func TestBackendContract(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			keys, err := backend.Keys("tasks")
			require.NoError(t, err)
			assert.Empty(t, keys)

			_, ok, err := backend.Get("tasks", "node-0")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, backend.Put("tasks", "node-0", []byte("a")))
			require.NoError(t, backend.Put("tasks", "node-1", []byte("b")))
			require.NoError(t, backend.Put("identity", "framework", []byte("c")))

			value, ok, err := backend.Get("tasks", "node-0")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, []byte("a"), value)

			require.NoError(t, backend.Put("tasks", "node-0", []byte("a2")))
			value, _, err = backend.Get("tasks", "node-0")
			require.NoError(t, err)
			assert.Equal(t, []byte("a2"), value)

			keys, err = backend.Keys("tasks")
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"node-0", "node-1"}, keys)

			require.NoError(t, backend.Delete("tasks", "node-0"))
			require.NoError(t, backend.Delete("tasks", "missing"))
			require.NoError(t, backend.Delete("never-written", "missing"))

			keys, err = backend.Keys("tasks")
			require.NoError(t, err)
			assert.Equal(t, []string{"node-1"}, keys)

			keys, err = backend.Keys("identity")
			require.NoError(t, err)
			assert.Equal(t, []string{"framework"}, keys)
		})
	}
}

func TestBoltStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewBoltStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Put("tasks", "node-0", []byte("x")))
	require.NoError(t, store.Close())

	store, err = NewBoltStore(dir)
	require.NoError(t, err)
	defer store.Close()

	value, ok, err := store.Get("tasks", "node-0")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("x"), value)
}

func TestBoltStoreDumpLoad(t *testing.T) {
	src, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	defer src.Close()

	require.NoError(t, src.Put("tasks", "node-0", []byte("a")))
	require.NoError(t, src.Put("identity", "framework", []byte("b")))

	dump, err := src.Dump()
	require.NoError(t, err)

	dst, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	defer dst.Close()
	require.NoError(t, dst.Put("stale", "key", []byte("gone")))

	require.NoError(t, dst.Load(dump))

	keys, err := dst.Keys("stale")
	require.NoError(t, err)
	assert.Empty(t, keys)

	value, ok, err := dst.Get("identity", "framework")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("b"), value)
}

func TestMapWithJSONSerializer(t *testing.T) {
	m := NewMap[record](NewMemoryStore(), "records", JSONSerializer[record]{})

	require.NoError(t, m.Put("a", record{Name: "a", Count: 1}))

	got, ok, err := m.Get("a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, record{Name: "a", Count: 1}, got)

	_, ok, err = m.Get("b")
	require.NoError(t, err)
	assert.False(t, ok)

	keys, err := m.KeySet()
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, keys)

	require.NoError(t, m.Remove("a"))
	keys, err = m.KeySet()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestMapWrapsFailures(t *testing.T) {
	backend := NewMemoryStore()
	m := NewMap[record](backend, "records", JSONSerializer[record]{})

	require.NoError(t, backend.Put("records", "bad", []byte("{not json")))
	_, _, err := m.Get("bad")
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "get", perr.Op)
	assert.Equal(t, "records", perr.Namespace)
	assert.Equal(t, "bad", perr.Key)

	require.NoError(t, backend.Close())

	err = m.Put("a", record{})
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "put", perr.Op)
	assert.True(t, errors.Is(err, ErrClosed))
	assert.Contains(t, err.Error(), "records/a")

	_, err = m.KeySet()
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "keys", perr.Op)

	err = m.Remove("a")
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "remove", perr.Op)
}
