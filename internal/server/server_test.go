package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/capacity-planner/internal/config"
	"github.com/aristath/capacity-planner/internal/di"
	"github.com/aristath/capacity-planner/internal/events"
	testingpkg "github.com/aristath/capacity-planner/internal/testing"
)

func newTestServer(t *testing.T) (*Server, *di.Container, *httptest.Server) {
	t.Helper()
	cfg := &config.Config{
		DataDir:               t.TempDir(),
		Port:                  8080,
		NearCapacityThreshold: 85,
		RunRetention:          3,
	}
	container, _, err := di.Wire(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { container.Close() })

	s := New(Config{Log: zerolog.Nop(), Port: cfg.Port, DevMode: true, Container: container})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, container, ts
}

func doJSON(t *testing.T, method, url string) (int, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestHealth(t *testing.T) {
	_, _, ts := newTestServer(t)

	status, body := doJSON(t, http.MethodGet, ts.URL+"/health")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])
}

func TestCapacityRoutesEndToEnd(t *testing.T) {
	_, container, ts := newTestServer(t)
	f := testingpkg.SeedPlanningFixture(t, container.DB.Conn())
	api := ts.URL + "/api"

	status, body := doJSON(t, http.MethodPost, fmt.Sprintf("%s/periods/%d/optimize", api, f.PeriodID))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Len(t, body["infeasible_projects"], 2)

	status, body = doJSON(t, http.MethodGet, fmt.Sprintf("%s/periods/%d/capacity", api, f.PeriodID))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(2), body["total_people"])
	assert.Equal(t, float64(2), body["under_staffed_projects"])

	status, body = doJSON(t, http.MethodGet, fmt.Sprintf("%s/periods/%d/people/%d/capacity", api, f.PeriodID, f.AliceID))
	require.Equal(t, http.StatusOK, status)
	assert.InDelta(t, 75.0, body["utilization_percentage"], 1e-9)

	status, body = doJSON(t, http.MethodGet, fmt.Sprintf("%s/periods/%d/projects/%d/staffing", api, f.PeriodID, f.ApolloID))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["is_viable"])

	status, _ = doJSON(t, http.MethodGet, fmt.Sprintf("%s/periods/%d/projects/%d/staffing", api, f.PeriodID, f.ZeusID))
	assert.Equal(t, http.StatusNotFound, status)

	status, body = doJSON(t, http.MethodGet, fmt.Sprintf("%s/periods/%d/optimization/latest", api, f.PeriodID))
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, body["run_id"])

	status, body = doJSON(t, http.MethodPost, api+"/periods/999/optimize")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "period_not_found", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	_, container, ts := newTestServer(t)
	f := testingpkg.SeedPlanningFixture(t, container.DB.Conn())

	status, _ := doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/periods/%d/optimize", ts.URL, f.PeriodID))
	require.Equal(t, http.StatusOK, status)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	text, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(text), "capacity_optimization_runs_total")
}

func TestSystemStatus(t *testing.T) {
	_, container, ts := newTestServer(t)
	testingpkg.SeedPlanningFixture(t, container.DB.Conn())

	status, body := doJSON(t, http.MethodGet, ts.URL+"/api/system/status")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])

	planning, ok := body["planning"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), planning["periods"])
	assert.Equal(t, float64(2), planning["people"])
	assert.Equal(t, float64(3), planning["projects"])
	assert.Nil(t, planning["last_run_at"])

	status, body = doJSON(t, http.MethodGet, ts.URL+"/api/system/database/stats")
	require.Equal(t, http.StatusOK, status)
	assert.Greater(t, body["page_count"], float64(0))
}

type signalJob struct {
	ran chan struct{}
}

func (j *signalJob) Run() error {
	close(j.ran)
	return nil
}

func (j *signalJob) Name() string { return "signal" }

func TestJobTriggers(t *testing.T) {
	s, _, ts := newTestServer(t)
	job := &signalJob{ran: make(chan struct{})}
	s.SetJobs(job)

	status, body := doJSON(t, http.MethodGet, ts.URL+"/api/system/jobs")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["jobs"], 1)

	status, _ = doJSON(t, http.MethodPost, ts.URL+"/api/system/jobs/signal")
	assert.Equal(t, http.StatusAccepted, status)

	select {
	case <-job.ran:
	case <-time.After(2 * time.Second):
		t.Fatal("triggered job did not run")
	}

	status, _ = doJSON(t, http.MethodPost, ts.URL+"/api/system/jobs/missing")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestEventStream(t *testing.T) {
	_, container, ts := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events/stream?types=SNAPSHOT_ARCHIVED", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	reader := bufio.NewReader(resp.Body)

	readData := func() string {
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if strings.HasPrefix(line, "data: ") {
				return line
			}
		}
	}

	assert.Contains(t, readData(), `"connected"`)

	// Filtered out, then delivered
	container.EventManager.Emit("optimization", &events.OptimizationFailedData{PlanningPeriodID: 1, Kind: "period_not_found"})
	container.EventManager.Emit("optimization", &events.SnapshotArchivedData{RunID: "r1", Location: "s3://runs/r1"})

	line := readData()
	assert.Contains(t, line, `"SNAPSHOT_ARCHIVED"`)
	assert.Contains(t, line, `"s3://runs/r1"`)
}

func TestEventStream_PeriodFilter(t *testing.T) {
	_, container, ts := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events/stream?period_id=2", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	next := func() (string, string) {
		var name string
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if strings.HasPrefix(line, "event: ") {
				name = strings.TrimSpace(strings.TrimPrefix(line, "event: "))
			}
			if strings.HasPrefix(line, "data: ") {
				return name, line
			}
		}
	}

	name, _ := next()
	assert.Equal(t, "connected", name)

	container.EventManager.Emit("optimization", &events.OptimizationFailedData{PlanningPeriodID: 1, Kind: "period_not_found"})
	container.EventManager.Emit("optimization", &events.OptimizationFailedData{PlanningPeriodID: 2, Kind: "malformed_period"})

	name, line := next()
	assert.Equal(t, "optimization_failed", name)
	assert.Contains(t, line, `"malformed_period"`)
}

func TestEventStream_BadPeriodFilter(t *testing.T) {
	_, _, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/events/stream?period_id=abc")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStreamFilter_Matches(t *testing.T) {
	f := streamFilter{periodID: 3}
	assert.True(t, f.matches(events.Event{Type: events.SnapshotArchived, Data: &events.SnapshotArchivedData{RunID: "r"}}))
	assert.True(t, f.matches(events.Event{Type: events.OptimizationCompleted, Data: &events.OptimizationCompletedData{PlanningPeriodID: 3}}))
	assert.False(t, f.matches(events.Event{Type: events.OptimizationCompleted, Data: &events.OptimizationCompletedData{PlanningPeriodID: 4}}))

	f = streamFilter{types: map[events.EventType]bool{events.OptimizationFailed: true}}
	assert.False(t, f.matches(events.Event{Type: events.OptimizationCompleted, Data: &events.OptimizationCompletedData{}}))
}
