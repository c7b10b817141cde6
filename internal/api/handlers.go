package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"clipforge/internal/daemon"
	"clipforge/internal/logging"
	"clipforge/internal/queue"
	"clipforge/internal/services"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	s.writeJSON(w, http.StatusOK, FromDaemonStatus(status))
}

func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	var req SubmitJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	job, created, err := s.daemon.AddVOD(r.Context(), daemon.IngestRequest{
		SourceURL: req.SourceURL,
		VODID:     req.VODID,
		UserID:    req.UserID,
		Settings:  string(req.Settings),
	})
	if err != nil {
		if services.IsValidation(err) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	s.writeJSON(w, status, SubmitJobResponse{Job: FromJob(job), Created: created})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	statuses, err := parseStatusFilter(r.URL.Query()["status"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	jobs, err := s.daemon.ListQueue(r.Context(), statuses)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, JobListResponse{Jobs: FromJobs(jobs)})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := s.jobID(w, r)
	if !ok {
		return
	}
	job, err := s.daemon.GetQueueJob(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job == nil {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("job %d not found", id))
		return
	}
	s.writeJSON(w, http.StatusOK, JobResponse{Job: FromJob(job)})
}

func (s *Server) handleRemoveJob(w http.ResponseWriter, r *http.Request) {
	id, ok := s.jobID(w, r)
	if !ok {
		return
	}
	removed, err := s.daemon.RemoveJob(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !removed {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("job %d not found", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRetryJob(w http.ResponseWriter, r *http.Request) {
	id, ok := s.jobID(w, r)
	if !ok {
		return
	}
	job, err := s.daemon.GetQueueJob(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job == nil {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("job %d not found", id))
		return
	}
	count, err := s.daemon.RetryFailed(r.Context(), []int64{id})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if count == 0 {
		s.writeError(w, http.StatusConflict, fmt.Sprintf("job %d is not failed", id))
		return
	}
	job, err = s.daemon.GetQueueJob(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, JobResponse{Job: FromJob(job)})
}

// handleResumeJob validates the request synchronously, then runs the resume in
// the background: pipeline stages take minutes, far past any request timeout.
// Clients follow along on the progress websocket.
func (s *Server) handleResumeJob(w http.ResponseWriter, r *http.Request) {
	id, ok := s.jobID(w, r)
	if !ok {
		return
	}
	var req ResumeJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	job, err := s.daemon.GetQueueJob(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job == nil {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("job %d not found", id))
		return
	}
	if job.IsProcessing() {
		s.writeError(w, http.StatusConflict, fmt.Sprintf("job %d is already processing", id))
		return
	}
	from := strings.TrimSpace(req.From)
	if from != "" && !stageKnown(s.daemon.StageNames(), from) {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown pipeline stage %q", from))
		return
	}

	go func() {
		if _, err := s.daemon.Resume(context.Background(), id, from); err != nil {
			s.log().Warn("background resume failed",
				logging.Int64(logging.FieldJobID, id),
				logging.Error(err),
			)
		}
	}()
	s.writeJSON(w, http.StatusAccepted, JobResponse{Job: FromJob(job)})
}

func (s *Server) handleClearQueue(w http.ResponseWriter, r *http.Request) {
	s.countOp(w, r, s.daemon.ClearQueue)
}

func (s *Server) handleClearCompleted(w http.ResponseWriter, r *http.Request) {
	s.countOp(w, r, s.daemon.ClearCompleted)
}

func (s *Server) handleClearFailed(w http.ResponseWriter, r *http.Request) {
	s.countOp(w, r, s.daemon.ClearFailed)
}

func (s *Server) handleResetStuck(w http.ResponseWriter, r *http.Request) {
	s.countOp(w, r, s.daemon.ResetStuck)
}

func (s *Server) handleRetryAllFailed(w http.ResponseWriter, r *http.Request) {
	s.countOp(w, r, func(ctx context.Context) (int64, error) {
		return s.daemon.RetryFailed(ctx, nil)
	})
}

func (s *Server) handleQueueHealth(w http.ResponseWriter, r *http.Request) {
	health, err := s.daemon.QueueHealth(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, QueueHealthResponse{
		Total:      health.Total,
		Queued:     health.Queued,
		Processing: health.Processing,
		Failed:     health.Failed,
		Completed:  health.Completed,
	})
}

func (s *Server) handleDatabaseHealth(w http.ResponseWriter, r *http.Request) {
	health, err := s.daemon.DatabaseHealth(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, FromDatabaseHealth(health))
}

func (s *Server) handleTestNotification(w http.ResponseWriter, r *http.Request) {
	sent, message, err := s.daemon.TestNotification(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, NotificationTestResponse{Sent: sent, Message: message})
}

func (s *Server) countOp(w http.ResponseWriter, r *http.Request, op func(context.Context) (int64, error)) {
	count, err := op(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, CountResponse{Count: count})
}

func (s *Server) jobID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid job id")
		return 0, false
	}
	return id, true
}

func parseStatusFilter(values []string) ([]queue.Status, error) {
	var statuses []queue.Status
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			status, ok := queue.ParseStatus(part)
			if !ok {
				return nil, fmt.Errorf("unknown status %q", part)
			}
			statuses = append(statuses, status)
		}
	}
	return statuses, nil
}

func stageKnown(names []string, stage string) bool {
	for _, name := range names {
		if name == stage {
			return true
		}
	}
	return false
}
