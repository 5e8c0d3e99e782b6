package presentation

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sglre6355/webhook-relay/internal/domain"
	"github.com/sglre6355/webhook-relay/internal/usecase"
)

const (
	msgInvalidRequest     = "Invalid request"
	msgInvalidWebhookURL  = "Invalid Discord webhook URL"
	msgWebhookUnavailable = "Webhook not found or inaccessible"
	msgVerifyFailed       = "Failed to verify webhook"
	msgSendFailed         = "Failed to send webhook"
	msgUpdateFailed       = "Failed to update webhook"
	msgDeleteFailed       = "Failed to delete webhook"
	msgInfoFailed         = "Failed to load webhook info"
	msgBroadcastFailed    = "Failed to send messages"
)

type webhookRequest struct {
	WebhookURL string `json:"webhookUrl"`
}

type sendRequest struct {
	WebhookURL string           `json:"webhookUrl"`
	Messages   []domain.Message `json:"messages"`
}

type updateRequest struct {
	WebhookURL string `json:"webhookUrl"`
	Name       string `json:"name"`
	Avatar     string `json:"avatar"`
}

type embedRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Color       string `json:"color"`
}

type composeRequest struct {
	WebhookURL string        `json:"webhookUrl"`
	Content    string        `json:"content"`
	Repeat     int           `json:"repeat"`
	Embed      *embedRequest `json:"embed,omitempty"`
}

type broadcastRequest struct {
	Webhooks []string `json:"webhooks"`
	Content  string   `json:"content"`
}

type broadcastResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Sent    int    `json:"sent"`
	Failed  int    `json:"failed"`
}

type parseWebhooksRequest struct {
	Text     string   `json:"text"`
	Existing []string `json:"existing"`
}

type parseWebhooksResponse struct {
	Success  bool     `json:"success"`
	Added    int      `json:"added"`
	Webhooks []string `json:"webhooks"`
}

type webhookInfoResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Avatar    string `json:"avatar"`
	ChannelID string `json:"channel_id"`
	GuildID   string `json:"guild_id"`
}

type infoResponse struct {
	Success bool                `json:"success"`
	Info    webhookInfoResponse `json:"info"`
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req webhookRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	err := s.webhooks.Verify(r.Context(), req.WebhookURL)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result{Success: true})
	case errors.Is(err, domain.ErrInvalidWebhookURL):
		writeFailure(w, http.StatusBadRequest, msgInvalidWebhookURL)
	case errors.Is(err, usecase.ErrWebhookUnavailable):
		s.logger.Warn("webhook verification failed", slog.Any("error", err))
		writeFailure(w, http.StatusBadRequest, msgWebhookUnavailable)
	default:
		s.logger.Error("failed to verify webhook", slog.Any("error", err))
		writeFailure(w, http.StatusInternalServerError, msgVerifyFailed)
	}
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	err := s.webhooks.Send(r.Context(), req.WebhookURL, req.Messages)
	s.writeSendResult(w, err)
}

func (s *Server) handleCompose(w http.ResponseWriter, r *http.Request) {
	var req composeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	var embed *domain.Embed
	if req.Embed != nil {
		color, err := domain.ParseColor(req.Embed.Color)
		if err != nil {
			writeFailure(w, http.StatusBadRequest, err.Error())
			return
		}
		embed = &domain.Embed{
			Title:       req.Embed.Title,
			Description: req.Embed.Description,
			URL:         req.Embed.URL,
			Color:       color,
		}
	}

	err := s.webhooks.SendRepeated(r.Context(), req.WebhookURL, req.Content, req.Repeat, embed)
	s.writeSendResult(w, err)
}

func (s *Server) writeSendResult(w http.ResponseWriter, err error) {
	var sendErr *usecase.SendError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result{Success: true})
	case errors.Is(err, domain.ErrInvalidWebhookURL):
		writeFailure(w, http.StatusBadRequest, msgInvalidWebhookURL)
	case errors.Is(err, domain.ErrRepeatOutOfRange), errors.Is(err, domain.ErrEmptyMessage):
		writeFailure(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &sendErr):
		s.logger.Error(
			"failed to send webhook",
			slog.Int("sent", sendErr.Sent()),
			slog.Any("error", err),
		)
		writeFailure(w, http.StatusInternalServerError, msgSendFailed)
	default:
		s.logger.Error("failed to send webhook", slog.Any("error", err))
		writeFailure(w, http.StatusInternalServerError, msgSendFailed)
	}
}

func (s *Server) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	var req broadcastRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	res, err := s.webhooks.Broadcast(r.Context(), req.Webhooks, domain.Message{Content: req.Content})
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, broadcastResponse{Success: true, Sent: res.Sent, Failed: res.Failed})
	case errors.Is(err, domain.ErrEmptyMessage), errors.Is(err, domain.ErrNoWebhooks):
		writeFailure(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("failed to broadcast message", slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, broadcastResponse{
			Error:  msgBroadcastFailed,
			Sent:   res.Sent,
			Failed: res.Failed,
		})
	}
}

func (s *Server) handleParseWebhooks(w http.ResponseWriter, r *http.Request) {
	var req parseWebhooksRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	list := domain.NewWebhookList(req.Existing...)
	added := list.Import(req.Text)

	writeJSON(w, http.StatusOK, parseWebhooksResponse{
		Success:  true,
		Added:    added,
		Webhooks: list.URLs(),
	})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	err := s.webhooks.Update(r.Context(), req.WebhookURL, req.Name, req.Avatar)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result{Success: true})
	case errors.Is(err, domain.ErrInvalidWebhookURL):
		writeFailure(w, http.StatusBadRequest, msgInvalidWebhookURL)
	default:
		s.logger.Error("failed to update webhook", slog.Any("error", err))
		writeFailure(w, http.StatusInternalServerError, msgUpdateFailed)
	}
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req webhookRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	err := s.webhooks.Delete(r.Context(), req.WebhookURL)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result{Success: true})
	case errors.Is(err, domain.ErrInvalidWebhookURL):
		writeFailure(w, http.StatusBadRequest, msgInvalidWebhookURL)
	default:
		s.logger.Error("failed to delete webhook", slog.Any("error", err))
		writeFailure(w, http.StatusInternalServerError, msgDeleteFailed)
	}
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	var req webhookRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	info, err := s.webhooks.Info(r.Context(), req.WebhookURL)
	if err != nil {
		s.logger.Warn("failed to load webhook info", slog.Any("error", err))
		writeFailure(w, http.StatusBadRequest, msgInfoFailed)
		return
	}

	writeJSON(w, http.StatusOK, infoResponse{
		Success: true,
		Info: webhookInfoResponse{
			ID:        info.ID,
			Name:      info.Name,
			Avatar:    info.Avatar,
			ChannelID: info.ChannelID,
			GuildID:   info.GuildID,
		},
	})
}
