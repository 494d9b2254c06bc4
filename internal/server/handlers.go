package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pearl/internal/job"
)

// RunRequest is the submission payload.
type RunRequest struct {
	Goal       string `json:"goal"`
	Iterations int    `json:"iterations"`
}

// RunResponse acknowledges an accepted submission.
type RunResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// StatusResponse is a point-in-time view of a job.
type StatusResponse struct {
	Status   string     `json:"status"`
	Progress float64    `json:"progress"`
	Details  JobDetails `json:"details"`
}

// JobDetails mirrors the job's cycle history.
type JobDetails struct {
	Goal   string      `json:"goal"`
	Reason string      `json:"reason,omitempty"`
	Cycles []job.Cycle `json:"cycles"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleRun accepts a goal and starts a background agent run.
func (s *Server) handleRun(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	iterations := req.Iterations
	if iterations == 0 {
		iterations = s.config.DefaultIterations
	}

	id, err := s.service.Submit(req.Goal, iterations)
	if err != nil {
		if errors.Is(err, job.ErrValidation) {
			c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		s.logger.Error("Submit failed: %v", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to start agent run"})
		return
	}

	c.JSON(http.StatusAccepted, RunResponse{
		JobID:   id,
		Status:  string(job.StatusPending),
		Message: "Agent run started.",
	})
}

// handleStatus reports the job's current snapshot.
func (s *Server) handleStatus(c *gin.Context) {
	id := c.Param("id")

	view, err := s.service.Status(id)
	if err != nil {
		if errors.Is(err, job.ErrNotFound) {
			c.JSON(http.StatusNotFound, errorResponse{Error: "job not found"})
			return
		}
		s.logger.Error("Status failed for %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to read job status"})
		return
	}

	cycles := view.Cycles
	if cycles == nil {
		cycles = []job.Cycle{}
	}
	c.JSON(http.StatusOK, StatusResponse{
		Status:   string(view.State),
		Progress: view.Progress,
		Details: JobDetails{
			Goal:   view.Goal,
			Reason: view.Reason,
			Cycles: cycles,
		},
	})
}

// handleHealth is the liveness probe.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
