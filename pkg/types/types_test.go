package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskStateClassification(t *testing.T) {
	tests := []struct {
		state    TaskState
		terminal bool
		running  bool
	}{
		{TaskStateStaging, false, false},
		{TaskStateStarting, false, false},
		{TaskStateRunning, false, true},
		{TaskStateKilling, false, false},
		{TaskStateFinished, true, false},
		{TaskStateFailed, true, false},
		{TaskStateKilled, true, false},
		{TaskStateError, true, false},
		{TaskStateLost, true, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			assert.True(t, tt.state.Valid())
			assert.Equal(t, tt.terminal, tt.state.IsTerminal())
			assert.Equal(t, tt.running, tt.state.IsRunning())
		})
	}

	assert.False(t, TaskState("TASK_BOGUS").Valid())
}

func TestIdentityRegistered(t *testing.T) {
	assert.False(t, Identity{Name: "cassandra"}.Registered())
	assert.True(t, Identity{Name: "cassandra", FrameworkID: "fw-1"}.Registered())
}
