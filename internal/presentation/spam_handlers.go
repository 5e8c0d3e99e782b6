package presentation

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sglre6355/webhook-relay/internal/domain"
	"github.com/sglre6355/webhook-relay/internal/usecase"
)

// maxSpamInterval bounds intervalMs so the conversion to time.Duration cannot overflow.
const maxSpamInterval = 24 * time.Hour

var msgIntervalTooLarge = fmt.Sprintf("Interval cannot exceed %d ms", maxSpamInterval.Milliseconds())

type spamStartRequest struct {
	Webhooks   []string `json:"webhooks"`
	Content    string   `json:"content"`
	IntervalMs int64    `json:"intervalMs"`
	MaxCycles  int      `json:"maxCycles"`
}

type spamStartResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"sessionId"`
}

type spamSessionResponse struct {
	ID         string     `json:"id"`
	Running    bool       `json:"running"`
	Webhooks   int        `json:"webhooks"`
	IntervalMs int64      `json:"intervalMs"`
	MaxCycles  int        `json:"maxCycles"`
	Cycles     int64      `json:"cycles"`
	Sent       int64      `json:"sent"`
	Failed     int64      `json:"failed"`
	StartedAt  time.Time  `json:"startedAt"`
	StoppedAt  *time.Time `json:"stoppedAt,omitempty"`
	StopReason string     `json:"stopReason,omitempty"`
}

type spamStatusResponse struct {
	Success bool                `json:"success"`
	Session spamSessionResponse `json:"session"`
}

func (s *Server) handleSpamStart(w http.ResponseWriter, r *http.Request) {
	var req spamStartRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	if req.IntervalMs > maxSpamInterval.Milliseconds() {
		writeFailure(w, http.StatusBadRequest, msgIntervalTooLarge)
		return
	}
	// Negative values fall under the floor and are clamped by the manager.
	interval := time.Duration(max(req.IntervalMs, 0)) * time.Millisecond

	id, err := s.spam.Start(domain.SpamSettings{
		Webhooks:  req.Webhooks,
		Message:   domain.Message{Content: req.Content},
		Interval:  interval,
		MaxCycles: req.MaxCycles,
	})
	if err != nil {
		s.logger.Warn("failed to start spam session", slog.Any("error", err))
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}

	webhooks := len(req.Webhooks)
	if stats, err := s.spam.Status(id); err == nil {
		webhooks = stats.Webhooks
	}

	s.logger.Info(
		"spam session started",
		slog.String("session", id),
		slog.Int("webhooks", webhooks),
		slog.Int("max_cycles", req.MaxCycles),
	)
	writeJSON(w, http.StatusOK, spamStartResponse{Success: true, SessionID: id})
}

func (s *Server) handleSpamStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.spam.Status(chi.URLParam(r, "sessionID"))
	s.writeSpamStats(w, stats, err)
}

func (s *Server) handleSpamStop(w http.ResponseWriter, r *http.Request) {
	stats, err := s.spam.Stop(chi.URLParam(r, "sessionID"))
	if err == nil {
		s.logger.Info(
			"spam session stopped",
			slog.String("session", stats.ID),
			slog.Int64("cycles", stats.Cycles),
			slog.Int64("sent", stats.Sent),
			slog.Int64("failed", stats.Failed),
		)
	}
	s.writeSpamStats(w, stats, err)
}

func (s *Server) writeSpamStats(w http.ResponseWriter, stats domain.SpamStats, err error) {
	if errors.Is(err, usecase.ErrSessionNotFound) {
		writeFailure(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("failed to read spam session", slog.Any("error", err))
		writeFailure(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, spamStatusResponse{
		Success: true,
		Session: spamSessionResponse{
			ID:         stats.ID,
			Running:    stats.Running,
			Webhooks:   stats.Webhooks,
			IntervalMs: stats.Interval.Milliseconds(),
			MaxCycles:  stats.MaxCycles,
			Cycles:     stats.Cycles,
			Sent:       stats.Sent,
			Failed:     stats.Failed,
			StartedAt:  stats.StartedAt,
			StoppedAt:  stats.StoppedAt,
			StopReason: string(stats.StopReason),
		},
	})
}
