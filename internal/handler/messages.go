package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/samrititabalt/supportchat/internal/attach"
	"github.com/samrititabalt/supportchat/internal/middleware"
	"github.com/samrititabalt/supportchat/internal/model"
	"github.com/samrititabalt/supportchat/internal/service"
	"github.com/samrititabalt/supportchat/pkg/logger"
)

// MessageHandler handles message endpoints.
type MessageHandler struct {
	service     *service.MessageService
	attachments attach.Store
	logger      *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(svc *service.MessageService, attachments attach.Store, log *logger.Logger) *MessageHandler {
	return &MessageHandler{service: svc, attachments: attachments, logger: log}
}

// Send handles POST /api/v1/sessions/:id/messages
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "id")

	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Inline uploads go through the attachment store first. A store failure
	// rejects the send outright: there is no message without its content.
	for _, in := range req.Inline {
		obj, err := h.attachments.Store(ctx, in.Data, string(in.Kind), in.MIMEType)
		if err != nil {
			if errors.Is(err, attach.ErrStoreUnavailable) {
				writeError(w, http.StatusBadRequest, "inline attachment uploads are not supported")
				return
			}
			writeError(w, http.StatusBadGateway, "failed to store attachment")
			return
		}
		req.Attachments = append(req.Attachments, model.AttachmentInput{
			Kind:     in.Kind,
			URL:      obj.URL,
			StoreID:  obj.StoreID,
			FileName: in.FileName,
			Size:     obj.Size,
			Width:    obj.Width,
			Height:   obj.Height,
			Duration: obj.Duration,
		})
	}

	msg, err := h.service.Send(ctx, middleware.GetTenantID(ctx), middleware.GetActor(ctx), sessionID, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

// List handles GET /api/v1/sessions/:id/messages
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "id")

	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := 50
	offset := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	resp, err := h.service.List(ctx, middleware.GetTenantID(ctx), middleware.GetActor(ctx), sessionID, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// UnreadCount handles GET /api/v1/sessions/:id/messages/unread
func (h *MessageHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "id")

	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	count, err := h.service.UnreadCount(ctx, middleware.GetTenantID(ctx), middleware.GetActor(ctx), sessionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"unread": count})
}

// MarkRead handles POST /api/v1/messages/:id/read
func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	messageID := chi.URLParam(r, "id")

	if err := middleware.ValidateMessageID(messageID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := h.service.MarkRead(ctx, middleware.GetTenantID(ctx), middleware.GetActor(ctx), messageID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, msg)
}

// Edit handles PUT /api/v1/messages/:id
func (h *MessageHandler) Edit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	messageID := chi.URLParam(r, "id")

	if err := middleware.ValidateMessageID(messageID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.EditMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := h.service.Edit(ctx, middleware.GetTenantID(ctx), middleware.GetActor(ctx), messageID, req.Content)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, msg)
}

// Delete handles DELETE /api/v1/messages/:id
func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	messageID := chi.URLParam(r, "id")

	if err := middleware.ValidateMessageID(messageID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := h.service.SoftDelete(ctx, middleware.GetTenantID(ctx), middleware.GetActor(ctx), messageID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, msg)
}
