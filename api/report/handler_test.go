package report

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dronedispatch/core/model"
)

type fixed struct {
	agents []model.Agent
	reqs   []model.Request
}

func (f fixed) ListAgents() []model.Agent     { return f.agents }
func (f fixed) ListRequests() []model.Request { return f.reqs }

func TestHandlerRendersCharts(t *testing.T) {
	src := fixed{
		agents: []model.Agent{{ID: "drone-1", Battery: 87.5, Status: model.AgentIdle}, {ID: "drone-2", Battery: 42, Status: model.AgentEnroute}},
		reqs:   []model.Request{{ID: "r1", Status: model.RequestQueued}, {ID: "r2", Status: model.RequestDelivered}, {ID: "r3", Status: model.RequestDelivered}},
	}
	rr := httptest.NewRecorder()
	NewHandler(src).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/report", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	body := rr.Body.String()
	assert.Contains(t, body, "Drone dispatch report")
	assert.Contains(t, body, "drone-2")
	assert.Contains(t, body, "Requests by status")
	assert.Contains(t, body, "3 requests")
}
