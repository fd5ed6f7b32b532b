package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dronedispatch/config"
	"github.com/kilianp07/dronedispatch/core/factory"
	"github.com/kilianp07/dronedispatch/core/model"
)

func TestNewServesFleet(t *testing.T) {
	cfg := config.Default()
	svc, err := New(cfg)
	require.NoError(t, err)
	defer func() { assert.NoError(t, svc.Close()) }()

	rec := httptest.NewRecorder()
	svc.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/drones", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var agents []model.Agent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &agents))
	assert.Len(t, agents, cfg.Simulation.FleetSize)
}

func TestNewRejectsUnknownSink(t *testing.T) {
	cfg := config.Default()
	cfg.Metrics.Sinks = []factory.ModuleConfig{{Type: "statsd"}}
	_, err := New(cfg)
	assert.Error(t, err)
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Simulation.TickMS = 10
	cfg.Journal.Backend = "sqlite"
	cfg.Journal.Path = filepath.Join(t.TempDir(), "journal.db")
	svc, err := New(cfg)
	require.NoError(t, err)
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("service did not stop")
	}
}
