package api

import (
	"net/http"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Handler defaults.
const (
	DefaultMaxUploadBytes = 50 << 20
	DefaultHeartbeat      = 15 * time.Second
	maxJSONBodyBytes      = 1 << 20
	multipartOverhead     = 1 << 20
)

// Config configures the HTTP handlers.
type Config struct {
	// Version is reported by the health endpoint.
	Version string

	// MaxUploadBytes bounds a multipart upload body.
	MaxUploadBytes int64

	// Heartbeat is the interval between keep-alive comments on the
	// document status stream.
	Heartbeat time.Duration
}

// Handler serves the HTTP API.
type Handler struct {
	chat          driving.ChatService
	conversations driving.ConversationService
	documents     driving.DocumentService
	settings      driving.SettingsService
	cfg           Config
}

// NewHandler creates the API handlers. The settings service is optional and
// only used for health reporting.
func NewHandler(
	chat driving.ChatService,
	conversations driving.ConversationService,
	documents driving.DocumentService,
	settings driving.SettingsService,
	cfg Config,
) *Handler {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = DefaultHeartbeat
	}
	return &Handler{
		chat:          chat,
		conversations: conversations,
		documents:     documents,
		settings:      settings,
		cfg:           cfg,
	}
}

type healthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

// Health reports liveness and which optional providers are configured.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	services := map[string]string{"api": "running"}
	if h.settings != nil {
		if s, err := h.settings.Get(); err == nil {
			services["llm"] = configured(s.LLM.IsConfigured())
			services["web_search"] = configured(s.Web.IsConfigured())
		}
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Version:   h.cfg.Version,
		Timestamp: time.Now().UTC(),
		Services:  services,
	})
}

func configured(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}
