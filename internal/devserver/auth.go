package devserver

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tiendashop/storefront-go/internal/domain"
)

func newToken() string {
	return uuid.NewString()
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	fields := map[string][]string{}
	if req.Email == "" {
		fields["email"] = []string{"is required"}
	}
	if req.Password == "" {
		fields["password"] = []string{"is required"}
	}
	if len(fields) > 0 {
		s.writeValidation(w, fields)
		return
	}

	user, err := s.store.UserByEmail(r.Context(), req.Email)
	if err != nil {
		s.logger.Error("login lookup failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if user == nil || user.Password != req.Password {
		s.writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if !user.Active {
		s.writeError(w, http.StatusForbidden, "account deactivated")
		return
	}

	token := s.issueToken(user.ID)
	s.logger.Info("user logged in", "user_id", user.ID)

	// The data envelope, as production wraps it.
	s.writeJSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{"token": token, "user": user.User},
	})
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	fields := map[string][]string{}
	if req.Name == "" {
		fields["name"] = []string{"is required"}
	}
	if req.Email == "" {
		fields["email"] = []string{"is required"}
	}
	if len(req.Password) < 6 {
		fields["password"] = []string{"must be at least 6 characters"}
	}
	if len(fields) > 0 {
		s.writeValidation(w, fields)
		return
	}

	user, err := s.store.CreateUser(r.Context(), req.Name, req.Email, req.Password)
	if err == ErrDuplicateEmail {
		s.writeValidation(w, map[string][]string{"email": {"already registered"}})
		return
	}
	if err != nil {
		s.logger.Error("registration failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	token := s.issueToken(user.ID)
	s.logger.Info("user registered", "user_id", user.ID)

	s.writeJSON(w, http.StatusCreated, map[string]any{
		"data": map[string]any{"token": token, "user": user},
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, user *storedUser) {
	s.dropTokensFor(user.ID)
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, user *storedUser) {
	// Bare object, no envelope.
	s.writeJSON(w, http.StatusOK, user.User)
}

type updateMeRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request, user *storedUser) {
	var req updateMeRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	fields := map[string][]string{}
	if req.Name == "" {
		fields["name"] = []string{"is required"}
	}
	if req.Email == "" {
		fields["email"] = []string{"is required"}
	}
	if len(fields) > 0 {
		s.writeValidation(w, fields)
		return
	}

	updated, err := s.store.UpdateUser(r.Context(), user.ID, req.Name, req.Email)
	if err != nil {
		s.logger.Error("profile update failed", "error", err, "user_id", user.ID)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"user": updated.User})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request, user *storedUser) {
	var req changePasswordRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.CurrentPassword != user.Password {
		s.writeValidation(w, map[string][]string{"current_password": {"does not match"}})
		return
	}
	if len(req.NewPassword) < 6 {
		s.writeValidation(w, map[string][]string{"new_password": {"must be at least 6 characters"}})
		return
	}

	if err := s.store.UpdatePassword(r.Context(), user.ID, req.NewPassword); err != nil {
		s.logger.Error("password change failed", "error", err, "user_id", user.ID)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"status": "password changed"})
}

type deactivateRequest struct {
	Password string `json:"password"`
}

func (s *Server) handleDeactivate(w http.ResponseWriter, r *http.Request, user *storedUser) {
	var req deactivateRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Password != user.Password {
		s.writeValidation(w, map[string][]string{"password": {"does not match"}})
		return
	}

	if err := s.store.DeactivateUser(r.Context(), user.ID); err != nil {
		s.logger.Error("deactivation failed", "error", err, "user_id", user.ID)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.dropTokensFor(user.ID)
	s.logger.Info("account deactivated", "user_id", user.ID)
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

func (s *Server) handleAdminUsers(w http.ResponseWriter, r *http.Request, _ *storedUser) {
	users, err := s.store.Users(r.Context())
	if err != nil {
		s.logger.Error("user list failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if users == nil {
		users = []domain.User{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"data": users})
}
