package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/manthysbr/toolchat/internal/config"
	"github.com/manthysbr/toolchat/internal/core/ports"
	"github.com/manthysbr/toolchat/internal/core/services"
	"github.com/rs/cors"
)

// Server is the HTTP surface over the worker bridge, the tool registry, the
// settings store and the file store.
type Server struct {
	logger   *slog.Logger
	bridge   *services.Bridge
	eventBus *services.EventBus
	chat     *services.ChatService
	resolver *services.Resolver
	settings *config.SettingsStore // optional
	files    ports.FileStore       // optional
}

func NewServer(
	logger *slog.Logger,
	bridge *services.Bridge,
	eventBus *services.EventBus,
	chat *services.ChatService,
	resolver *services.Resolver,
	settings *config.SettingsStore,
	files ports.FileStore,
) *Server {
	return &Server{
		logger:   logger,
		bridge:   bridge,
		eventBus: eventBus,
		chat:     chat,
		resolver: resolver,
		settings: settings,
		files:    files,
	}
}

// Handler returns the routes wrapped with CORS for allowedOrigins.
func (s *Server) Handler(allowedOrigins []string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)

	// Chat
	mux.HandleFunc("POST /v1/chat", s.handleChat)
	mux.HandleFunc("GET /v1/chat/history", s.handleGetHistory)
	mux.HandleFunc("DELETE /v1/chat/history", s.handleResetHistory)

	// Tools
	mux.HandleFunc("GET /v1/tools", s.handleListTools)
	mux.HandleFunc("POST /v1/tools/{name}/run", s.handleRunTool)

	// Settings
	mux.HandleFunc("GET /v1/settings", s.handleGetSettings)
	mux.HandleFunc("PUT /v1/settings", s.handleUpdateSettings)

	// Files
	mux.HandleFunc("GET /v1/files", s.handleListFiles)
	mux.HandleFunc("GET /v1/files/{path...}", s.handleGetFile)
	mux.HandleFunc("PUT /v1/files/{path...}", s.handlePutFile)
	mux.HandleFunc("DELETE /v1/files/{path...}", s.handleDeleteFile)

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	return c.Handler(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"queued": s.bridge.Queued(),
		"tools":  len(s.resolver.Tools()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
