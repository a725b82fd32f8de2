package handler

import (
	"net/http"

	"gorm.io/gorm"

	"github.com/samrititabalt/supportchat/internal/notify"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	notifier *notify.NATSNotifier
	db       *gorm.DB
}

// NewHealthHandler creates a new health handler. The notifier may be nil
// when running without a broker.
func NewHealthHandler(notifier *notify.NATSNotifier, db *gorm.DB) *HealthHandler {
	return &HealthHandler{notifier: notifier, db: db}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.notifier != nil && !h.notifier.IsConnected() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "NATS not connected",
		})
		return
	}

	if h.db != nil {
		sqlDB, err := h.db.DB()
		if err == nil {
			err = sqlDB.PingContext(r.Context())
		}
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"reason": "database unreachable",
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
