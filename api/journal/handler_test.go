package journal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corejournal "github.com/kilianp07/dronedispatch/core/journal"
)

func seeded(t *testing.T) corejournal.Store {
	t.Helper()
	store := corejournal.NewMemoryStore(0)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	entries := []corejournal.Entry{
		{Timestamp: base, Kind: corejournal.KindAssigned, RequestID: "r1", AgentID: "drone-1"},
		{Timestamp: base.Add(time.Minute), Kind: corejournal.KindQueued, RequestID: "r2"},
		{Timestamp: base.Add(2 * time.Minute), Kind: corejournal.KindDelivered, RequestID: "r1", AgentID: "drone-1"},
	}
	for _, e := range entries {
		require.NoError(t, store.Append(context.Background(), e))
	}
	return store
}

func get(t *testing.T, h http.Handler, url, token string) (*httptest.ResponseRecorder, []corejournal.Entry) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	var out []corejournal.Entry
	if rr.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	}
	return rr, out
}

func TestHandlerAuthAndFilters(t *testing.T) {
	h := NewHandler(seeded(t), "tok")

	rr, _ := get(t, h, "/api/journal", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr, out := get(t, h, "/api/journal?drone_id=drone-1", "tok")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, out, 2)

	_, out = get(t, h, "/api/journal?kind=queued", "tok")
	require.Len(t, out, 1)
	assert.Equal(t, "r2", out[0].RequestID)

	_, out = get(t, h, "/api/journal?start=2024-05-01T12:00:30Z&limit=1", "tok")
	require.Len(t, out, 1)
	assert.Equal(t, corejournal.KindDelivered, out[0].Kind)
}

func TestHandlerRejectsBadParams(t *testing.T) {
	h := NewHandler(seeded(t), "")
	rr, _ := get(t, h, "/api/journal?start=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr, _ = get(t, h, "/api/journal?limit=-2", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandlerEmptyResultIsArray(t *testing.T) {
	h := NewHandler(corejournal.NewMemoryStore(0), "")
	rr, _ := get(t, h, "/api/journal", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestHandlerCSV(t *testing.T) {
	h := NewHandler(seeded(t), "")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/journal?format=csv&request_id=r1", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv", rr.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "timestamp,kind"))
	assert.Contains(t, lines[1], "assigned,r1,drone-1")

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/journal?format=xml", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
