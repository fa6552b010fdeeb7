package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Handler exposes the token-exchange endpoint: a caller presents the API key
// for its role (probe agent or dashboard) and receives a short-lived bearer
// token carrying that role.
type Handler struct {
	tokens           *TokenService
	agentKeyHash     string
	dashboardKeyHash string
	logger           *zap.Logger
}

// NewHandler creates the auth handler. The hashes are bcrypt hashes of the
// agent and dashboard API keys from configuration; an empty hash disables
// token exchange for that role.
func NewHandler(tokens *TokenService, agentKeyHash, dashboardKeyHash string, logger *zap.Logger) *Handler {
	return &Handler{
		tokens:           tokens,
		agentKeyHash:     agentKeyHash,
		dashboardKeyHash: dashboardKeyHash,
		logger:           logger,
	}
}

// RegisterRoutes registers auth routes on the server mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/auth/token", h.handleToken)
}

type tokenRequest struct {
	APIKey string `json:"api_key"`
	// Role the caller wants a token for; defaults to agent.
	Role string `json:"role,omitempty"`
}

type tokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

func (h *Handler) handleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.APIKey) == "" {
		http.Error(w, "missing api_key", http.StatusBadRequest)
		return
	}

	role := req.Role
	if role == "" {
		role = RoleAgent
	}

	var hash, subject string
	switch role {
	case RoleAgent:
		hash, subject = h.agentKeyHash, "probe"
	case RoleDashboard:
		hash, subject = h.dashboardKeyHash, "dashboard"
	default:
		http.Error(w, "unknown role", http.StatusBadRequest)
		return
	}

	if hash == "" {
		http.Error(w, "token exchange not configured", http.StatusServiceUnavailable)
		return
	}

	if !VerifyAPIKey(hash, req.APIKey) {
		h.logger.Warn("token exchange rejected",
			zap.String("role", role),
			zap.String("remote", r.RemoteAddr),
		)
		http.Error(w, "invalid api key", http.StatusUnauthorized)
		return
	}

	token, err := h.tokens.Issue(subject, role)
	if err != nil {
		h.logger.Error("token issue failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(tokenResponse{
		Token:     token,
		ExpiresIn: int(h.tokens.TTL().Seconds()),
	})
}

// BearerToken extracts the token from an Authorization: Bearer header.
// Returns "" when the header is absent or malformed.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
