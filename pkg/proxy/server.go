package proxy

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/samber/lo"

	"github.com/integrail/poetry-assistant/pkg/dto"
)

// CompletionPath is where the proxy endpoint is mounted.
const CompletionPath = "/api/ollama"

// maxRequestBodySize caps completion request bodies (1MB).
const maxRequestBodySize = 1 << 20

// NewRouter returns the HTTP surface of the proxy.
func NewRouter(p *Proxy, corsOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(CORS(corsOrigins))

	p.RegisterRoutes(r)
	return r
}

// RegisterRoutes mounts the completion endpoint on r.
func (p *Proxy) RegisterRoutes(r chi.Router) {
	r.Post(CompletionPath, p.handleCompletion)
}

func (p *Proxy) handleCompletion(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req dto.CompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		p.log.Error("failed to decode completion request", "request_id", chiMiddleware.GetReqID(r.Context()), "error", err)
		JSON(w, http.StatusInternalServerError, dto.Failed(p.FailureMessage()).Response())
		return
	}

	res := p.Handle(r.Context(), req)
	JSON(w, lo.Ternary(res.Success, http.StatusOK, http.StatusInternalServerError), res.Response())
}

// JSON writes a JSON response with the given status code. The header is
// already sent when encoding fails, so the error is only logged.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "status", status, "error", err)
	}
}
