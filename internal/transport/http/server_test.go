package http

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aurum/internal/audit"
	"aurum/internal/state"
	"aurum/internal/types"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	st := state.NewStore(filepath.Join(dir, "state.json"), 4*time.Hour)
	au, err := audit.NewStore(filepath.Join(dir, "audit.db"))
	require.NoError(t, err)
	return NewServer(":0", st, au)
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	s.router().ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	w := get(t, newTestServer(t), "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestStateEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := get(t, s, "/api/state")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"NONE"`)

	require.NoError(t, s.state.Open(types.DirectionBuy, 2000, 1995, 2010, "test", 1))
	w = get(t, s, "/api/state")
	assert.Contains(t, w.Body.String(), `"STILL_OPEN"`)
	assert.Contains(t, w.Body.String(), `"entry":2000`)
}

func TestLastSignalEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := get(t, s, "/api/last")
	assert.Contains(t, w.Body.String(), `"signal":null`)

	s.SetLastSignal(types.SignalContract{ID: "abc", Direction: types.DirectionWait, Reason: "warming up"})
	w = get(t, s, "/api/last")
	assert.Contains(t, w.Body.String(), `"abc"`)
	assert.Contains(t, w.Body.String(), "warming up")
}

func TestAuditRecentEndpoint(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.audit.Record(types.SignalContract{ID: "row1", Direction: types.DirectionSkip, Reason: "spread"}, 2000))

	w := get(t, s, "/api/audit/recent")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "row1")
}
