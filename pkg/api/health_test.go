package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cuemby/cassandra-scheduler/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCluster struct {
	leader     bool
	leaderAddr string
}

func (c fakeCluster) IsLeader() bool     { return c.leader }
func (c fakeCluster) LeaderAddr() string { return c.leaderAddr }

// withReadiness points readiness at a single component in the given state
func withReadiness(t *testing.T, healthy bool) {
	t.Helper()
	metrics.SetCriticalComponents("api-test")
	metrics.RegisterComponent("api-test", healthy, "loading")
	t.Cleanup(func() { metrics.SetCriticalComponents(metrics.DefaultCriticalComponents...) })
}

// TestHealthHandler tests the /health endpoint
func TestHealthHandler(t *testing.T) {
	s := NewServer(&fakeReader{}, WithVersion("1.2.3"))

	tests := []struct {
		name           string
		method         string
		expectedStatus int
	}{
		{
			name:           "GET request succeeds",
			method:         http.MethodGet,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "POST request fails",
			method:         http.MethodPost,
			expectedStatus: http.StatusMethodNotAllowed,
		},
		{
			name:           "DELETE request fails",
			method:         http.MethodDelete,
			expectedStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/health", nil)
			w := httptest.NewRecorder()

			s.healthHandler(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)

			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
				var response HealthResponse
				require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
				assert.Equal(t, "healthy", response.Status)
				assert.Equal(t, "1.2.3", response.Version)
				assert.False(t, response.Timestamp.IsZero())
			}
		})
	}
}

// TestReadyHandler tests readiness against component health and raft state
func TestReadyHandler(t *testing.T) {
	tests := []struct {
		name           string
		healthy        bool
		cluster        ClusterInfo
		expectedStatus int
		raftCheck      string
	}{
		{
			name:           "component loading",
			healthy:        false,
			expectedStatus: http.StatusServiceUnavailable,
		},
		{
			name:           "ready without raft",
			healthy:        true,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "leader",
			healthy:        true,
			cluster:        fakeCluster{leader: true},
			expectedStatus: http.StatusOK,
			raftCheck:      "leader",
		},
		{
			name:           "follower",
			healthy:        true,
			cluster:        fakeCluster{leaderAddr: "10.0.0.1:7946"},
			expectedStatus: http.StatusOK,
			raftCheck:      "follower (leader: 10.0.0.1:7946)",
		},
		{
			name:           "no leader",
			healthy:        true,
			cluster:        fakeCluster{},
			expectedStatus: http.StatusServiceUnavailable,
			raftCheck:      "no leader elected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withReadiness(t, tt.healthy)
			var opts []Option
			if tt.cluster != nil {
				opts = append(opts, WithClusterInfo(tt.cluster))
			}
			s := NewServer(&fakeReader{}, opts...)

			req := httptest.NewRequest(http.MethodGet, "/ready", nil)
			w := httptest.NewRecorder()
			s.readyHandler(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var response ReadyResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			assert.Contains(t, response.Checks, "api-test")
			if tt.raftCheck != "" {
				assert.Equal(t, tt.raftCheck, response.Checks["raft"])
			}
			if tt.expectedStatus != http.StatusOK {
				assert.Equal(t, "not ready", response.Status)
				assert.NotEmpty(t, response.Message)
			}
		})
	}
}

// TestReadyHandlerMethodValidation tests readiness endpoint HTTP method validation
func TestReadyHandlerMethodValidation(t *testing.T) {
	s := NewServer(&fakeReader{})

	req := httptest.NewRequest(http.MethodPost, "/ready", nil)
	w := httptest.NewRecorder()
	s.readyHandler(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

// TestRoutes tests that every endpoint is registered on the mux
func TestRoutes(t *testing.T) {
	withReadiness(t, true)
	s := NewServer(&fakeReader{})

	tests := []struct {
		method         string
		path           string
		expectedStatus int
	}{
		{method: http.MethodGet, path: "/health", expectedStatus: http.StatusOK},
		{method: http.MethodGet, path: "/ready", expectedStatus: http.StatusOK},
		{method: http.MethodGet, path: "/live", expectedStatus: http.StatusOK},
		{method: http.MethodGet, path: "/metrics", expectedStatus: http.StatusOK},
		{method: http.MethodGet, path: "/v1/tasks", expectedStatus: http.StatusOK},
		{method: http.MethodGet, path: "/v1/tasks/node-9", expectedStatus: http.StatusNotFound},
		{method: http.MethodDelete, path: "/v1/tasks/node-9", expectedStatus: http.StatusMethodNotAllowed},
		{method: http.MethodGet, path: "/nonexistent", expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()

			s.Handler().ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code, "Path: %s", tt.path)
		})
	}
}

// TestHealthServerConcurrency tests concurrent requests to health endpoints
func TestHealthServerConcurrency(t *testing.T) {
	s := NewServer(&fakeReader{})

	done := make(chan bool, 20)

	for i := 0; i < 10; i++ {
		go func() {
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			w := httptest.NewRecorder()
			s.Handler().ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		go func() {
			req := httptest.NewRequest(http.MethodGet, "/ready", nil)
			w := httptest.NewRecorder()
			s.Handler().ServeHTTP(w, req)
			assert.Contains(t, []int{http.StatusOK, http.StatusServiceUnavailable}, w.Code)
			done <- true
		}()
	}

	for i := 0; i < 20; i++ {
		<-done
	}
}

func BenchmarkHealthHandler(b *testing.B) {
	s := NewServer(&fakeReader{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w := httptest.NewRecorder()
		s.healthHandler(w, req)
	}
}
