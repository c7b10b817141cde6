package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"clipforge/internal/logging"
	"clipforge/internal/queue"
)

const progressPollInterval = 500 * time.Millisecond

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The daemon binds loopback by default; bearer auth covers the rest.
		return true
	},
}

// handleProgress streams job progress frames over a websocket until the job
// reaches a terminal status or the client disconnects. Frames are read from
// the queue store, so progress written by the workflow loop and by background
// resumes both show up here.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := s.jobID(w, r)
	if !ok {
		return
	}
	job, err := s.store.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job == nil {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("job %d not found", id))
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log().Debug("websocket upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		// Drain client frames so the poll loop notices the peer closing.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	if err := conn.WriteJSON(progressEvent(job)); err != nil {
		return
	}
	if job.IsTerminal() {
		s.closeStream(conn)
		return
	}

	ticker := time.NewTicker(progressPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, err := s.store.GetByID(ctx, id)
			if err != nil || job == nil {
				s.closeStream(conn)
				return
			}
			if err := conn.WriteJSON(progressEvent(job)); err != nil {
				return
			}
			if job.IsTerminal() {
				s.closeStream(conn)
				return
			}
		}
	}
}

func (s *Server) closeStream(conn *websocket.Conn) {
	deadline := time.Now().Add(time.Second)
	message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := conn.WriteControl(websocket.CloseMessage, message, deadline); err != nil {
		s.log().Debug("websocket close failed", logging.Error(err))
	}
}

func progressEvent(job *queue.Job) ProgressEvent {
	eventType := "progress"
	if job.IsTerminal() {
		eventType = "terminal"
	}
	return ProgressEvent{
		Type:   eventType,
		JobID:  job.ID,
		Status: string(job.Status),
		Progress: JobProgress{
			Stage:   job.ProgressStage,
			Percent: job.ProgressPercent,
			Message: job.ProgressMessage,
		},
		ErrorMessage: job.ErrorMessage,
	}
}
