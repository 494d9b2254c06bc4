package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pearl/internal/job"
)

// fakeService stubs the orchestrator.
type fakeService struct {
	submitID   string
	submitErr  error
	lastGoal   string
	lastIters  int
	view       job.View
	statusErr  error
}

func (f *fakeService) Submit(goal string, maxIterations int) (string, error) {
	f.lastGoal = goal
	f.lastIters = maxIterations
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return f.submitID, nil
}

func (f *fakeService) Status(id string) (job.View, error) {
	if f.statusErr != nil {
		return job.View{}, f.statusErr
	}
	return f.view, nil
}

func newTestServer(service AgentService) *Server {
	return New(service, Config{Host: "localhost", Port: 8080, DefaultIterations: 3}, nil, nil)
}

func TestHandleRunAccepted(t *testing.T) {
	service := &fakeService{submitID: "job-123"}
	srv := newTestServer(service)

	req := httptest.NewRequest(http.MethodPost, "/agent/run", strings.NewReader(`{"goal": "test goal", "iterations": 2}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)

	var resp RunResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "job-123", resp.JobID)
	assert.Equal(t, "pending", resp.Status)
	assert.Equal(t, "test goal", service.lastGoal)
	assert.Equal(t, 2, service.lastIters)
}

func TestHandleRunDefaultsIterations(t *testing.T) {
	service := &fakeService{submitID: "job-123"}
	srv := newTestServer(service)

	req := httptest.NewRequest(http.MethodPost, "/agent/run", strings.NewReader(`{"goal": "test goal"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 3, service.lastIters)
}

func TestHandleRunValidationError(t *testing.T) {
	service := &fakeService{submitErr: fmt.Errorf("%w: goal must not be empty", job.ErrValidation)}
	srv := newTestServer(service)

	req := httptest.NewRequest(http.MethodPost, "/agent/run", strings.NewReader(`{"goal": ""}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleRunRejectsBadJSON(t *testing.T) {
	srv := newTestServer(&fakeService{submitID: "x"})

	req := httptest.NewRequest(http.MethodPost, "/agent/run", strings.NewReader(`{"goal": `))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleStatus(t *testing.T) {
	now := time.Now()
	service := &fakeService{view: job.View{
		ID:            "job-123",
		Goal:          "test goal",
		MaxIterations: 2,
		State:         job.StatusInProgress,
		Progress:      0.5,
		Cycles: []job.Cycle{{
			Index:      1,
			Actions:    []job.Action{{Tool: "reason", Input: "think"}},
			Results:    []job.Result{{Output: "thought"}},
			Reflection: "learned",
			Status:     job.CycleCompleted,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}}
	srv := newTestServer(service)

	req := httptest.NewRequest(http.MethodGet, "/agent/status/job-123", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "in_progress", resp.Status)
	assert.Equal(t, 0.5, resp.Progress)
	assert.Equal(t, "test goal", resp.Details.Goal)
	require.Len(t, resp.Details.Cycles, 1)
	assert.Equal(t, "learned", resp.Details.Cycles[0].Reflection)
}

func TestHandleStatusNotFound(t *testing.T) {
	service := &fakeService{statusErr: fmt.Errorf("%w: nope", job.ErrNotFound)}
	srv := newTestServer(service)

	req := httptest.NewRequest(http.MethodGet, "/agent/status/nope", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(&fakeService{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
