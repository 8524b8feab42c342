package devserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
)

// Server holds the stub's HTTP surface. Tokens are opaque UUIDs kept in
// memory: restarting the stub logs everyone out, which is fine for dev.
type Server struct {
	store         *Store
	logger        *slog.Logger
	gatewayURL    string
	mu            sync.Mutex
	tokens        map[string]string
}

func NewServer(store *Store, gatewayURL string, logger *slog.Logger) *Server {
	return &Server{
		store:      store,
		logger:     logger,
		gatewayURL: gatewayURL,
		tokens:     make(map[string]string),
	}
}

func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("POST /logout", s.authenticated(s.handleLogout))
	mux.HandleFunc("GET /me", s.authenticated(s.handleMe))
	mux.HandleFunc("PUT /me", s.authenticated(s.handleUpdateMe))
	mux.HandleFunc("PUT /me/password", s.authenticated(s.handleChangePassword))
	mux.HandleFunc("POST /me/deactivate", s.authenticated(s.handleDeactivate))

	mux.HandleFunc("GET /productos", s.handleProducts)
	mux.HandleFunc("GET /productos/{id}", s.handleProduct)
	mux.HandleFunc("GET /productos/{id}/reviews", s.handleReviews)
	mux.HandleFunc("POST /productos/{id}/reviews", s.authenticated(s.handleCreateReview))
	mux.HandleFunc("DELETE /productos/{id}/reviews/{reviewId}", s.authenticated(s.handleDeleteReview))

	mux.HandleFunc("GET /addresses", s.authenticated(s.handleListAddresses))
	mux.HandleFunc("POST /addresses", s.authenticated(s.handleCreateAddress))
	mux.HandleFunc("PUT /addresses/{id}", s.authenticated(s.handleUpdateAddress))
	mux.HandleFunc("DELETE /addresses/{id}", s.authenticated(s.handleDeleteAddress))
	mux.HandleFunc("PUT /addresses/{id}/default", s.authenticated(s.handleSetDefaultAddress))

	mux.HandleFunc("GET /orders", s.authenticated(s.handleListOrders))
	mux.HandleFunc("POST /orders", s.authenticated(s.handleCreateOrder))
	mux.HandleFunc("GET /orders/{id}", s.authenticated(s.handleGetOrder))

	mux.HandleFunc("POST /payments/preference", s.authenticated(s.handleCreatePreference))
	mux.HandleFunc("POST /payments/confirm", s.authenticated(s.handleConfirmPayment))

	mux.HandleFunc("GET /notifications", s.authenticated(s.handleListNotifications))
	mux.HandleFunc("GET /notifications/unread-count", s.authenticated(s.handleUnreadCount))
	mux.HandleFunc("PUT /notifications/{id}/read", s.authenticated(s.handleMarkRead))

	mux.HandleFunc("GET /admin/users", s.admin(s.handleAdminUsers))
	mux.HandleFunc("POST /admin/notifications/complete", s.admin(s.handleAdminNotify))

	// Gateway simulator pages are browser-facing, no bearer token.
	mux.HandleFunc("GET /gateway/{id}", s.handleGatewayPage)
	mux.HandleFunc("GET /gateway/{id}/{outcome}", s.handleGatewayOutcome)

	return mux
}

type authedHandler func(w http.ResponseWriter, r *http.Request, user *storedUser)

// authenticated resolves the bearer token. Missing or unknown tokens get a
// 401; a deactivated account gets a 403 and keeps its token, matching the
// production behavior the SDK is written against.
func (s *Server) authenticated(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			s.writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		s.mu.Lock()
		userID, found := s.tokens[token]
		s.mu.Unlock()
		if !found {
			s.writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		user, err := s.store.UserByID(r.Context(), userID)
		if err != nil {
			s.logger.Error("failed to load user", "error", err, "user_id", userID)
			s.writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if user == nil {
			s.writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		if !user.Active {
			s.writeError(w, http.StatusForbidden, "account deactivated")
			return
		}

		next(w, r, user)
	}
}

func (s *Server) admin(next authedHandler) http.HandlerFunc {
	return s.authenticated(func(w http.ResponseWriter, r *http.Request, user *storedUser) {
		if user.Role != "admin" {
			s.writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next(w, r, user)
	})
}

func (s *Server) issueToken(userID string) string {
	token := newToken()

	s.mu.Lock()
	s.tokens[token] = userID
	s.mu.Unlock()

	return token
}

func (s *Server) dropTokensFor(userID string) {
	s.mu.Lock()
	for token, id := range s.tokens {
		if id == userID {
			delete(s.tokens, token)
		}
	}
	s.mu.Unlock()
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// writeValidation emits the production backend's 422 shape: a message plus
// a field→messages map.
func (s *Server) writeValidation(w http.ResponseWriter, fields map[string][]string) {
	s.writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"message": "validation failed",
		"errors":  fields,
	})
}

func decodeBody(r *http.Request, out any) error {
	return json.NewDecoder(r.Body).Decode(out)
}
