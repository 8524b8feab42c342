// Package session holds the authenticated user and bearer token, mirrored
// to the local store under the "token" and "user" keys. Every mutation goes
// through a named method; a 401 on any API call forces a logout through
// ForceLogout.
package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/tiendashop/storefront-go/internal/api"
	"github.com/tiendashop/storefront-go/internal/domain"
	"github.com/tiendashop/storefront-go/internal/localstore"
)

const (
	keyToken = "token"
	keyUser  = "user"
)

type Store struct {
	local  *localstore.Store
	logger *slog.Logger

	mu     sync.Mutex
	client *api.Client
	user   *domain.User
	token  string
}

func New(local *localstore.Store, logger *slog.Logger) *Store {
	return &Store{local: local, logger: logger}
}

// SetClient wires the API client after construction; the client's token
// source and unauthorized hook point back at this store.
func (s *Store) SetClient(client *api.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = client
}

// Token implements api.TokenSource.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Current returns the logged-in user, if any.
func (s *Store) Current() (domain.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return domain.User{}, false
	}
	return *s.user, true
}

func (s *Store) IsAdmin() bool {
	user, ok := s.Current()
	return ok && user.Role == domain.RoleAdmin
}

// Bootstrap restores the session from the local store. Either key missing
// or the user blob unparseable means logged out, and both keys are cleared.
func (s *Store) Bootstrap() {
	token, okToken := s.local.Get(keyToken)
	rawUser, okUser := s.local.Get(keyUser)

	if !okToken || !okUser || token == "" {
		s.ForceLogout()
		return
	}

	var user domain.User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		s.logger.Warn("stored user is corrupt, clearing session", "error", err)
		s.ForceLogout()
		return
	}

	s.mu.Lock()
	s.token = token
	s.user = &user
	s.mu.Unlock()
}

// credentials is the shape of /login and /register responses once the
// optional data envelope is peeled.
type credentials struct {
	Token       string      `json:"token"`
	AccessToken string      `json:"access_token"`
	User        domain.User `json:"user"`
}

func (s *Store) Login(ctx context.Context, email, password string) (domain.User, error) {
	body := map[string]string{"email": email, "password": password}
	return s.authenticate(ctx, "/login", body)
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Store) Register(ctx context.Context, req RegisterRequest) (domain.User, error) {
	return s.authenticate(ctx, "/register", req)
}

func (s *Store) authenticate(ctx context.Context, path string, body any) (domain.User, error) {
	var raw json.RawMessage
	if err := s.apiClient().Do(ctx, http.MethodPost, path, body, &raw); err != nil {
		return domain.User{}, err
	}

	creds, err := api.DecodeWrapped[credentials](raw, "data")
	if err != nil {
		return domain.User{}, err
	}
	token := creds.Token
	if token == "" {
		token = creds.AccessToken
	}

	s.set(creds.User, token)
	s.logger.Info("session established", "user_id", creds.User.ID)
	return creds.User, nil
}

// Logout tells the backend best-effort, then clears local state either way.
func (s *Store) Logout(ctx context.Context) {
	if err := s.apiClient().Do(ctx, http.MethodPost, "/logout", nil, nil); err != nil {
		s.logger.Warn("logout call failed", "error", err)
	}
	s.ForceLogout()
}

type ProfileUpdate struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (s *Store) UpdateProfile(ctx context.Context, update ProfileUpdate) (domain.User, error) {
	var raw json.RawMessage
	if err := s.apiClient().Do(ctx, http.MethodPut, "/me", update, &raw); err != nil {
		return domain.User{}, err
	}

	user, err := api.DecodeWrapped[domain.User](raw, "data", "user")
	if err != nil {
		return domain.User{}, err
	}

	s.mu.Lock()
	token := s.token
	s.mu.Unlock()
	s.set(user, token)

	return user, nil
}

func (s *Store) ChangePassword(ctx context.Context, current, updated string) error {
	body := map[string]string{"current_password": current, "new_password": updated}
	return s.apiClient().Do(ctx, http.MethodPut, "/me/password", body, nil)
}

// Deactivate clears the session on success; the server blocks any further
// login for the account.
func (s *Store) Deactivate(ctx context.Context, password string) error {
	body := map[string]string{"password": password}
	if err := s.apiClient().Do(ctx, http.MethodPost, "/me/deactivate", body, nil); err != nil {
		return err
	}
	s.ForceLogout()
	return nil
}

// ForceLogout drops the in-memory session and both persisted keys. Safe to
// call repeatedly; it is the client's 401 hook.
func (s *Store) ForceLogout() {
	s.mu.Lock()
	s.user = nil
	s.token = ""
	s.mu.Unlock()

	if err := s.local.Delete(keyToken); err != nil {
		s.logger.Warn("failed to clear token", "error", err)
	}
	if err := s.local.Delete(keyUser); err != nil {
		s.logger.Warn("failed to clear user", "error", err)
	}
}

func (s *Store) set(user domain.User, token string) {
	s.mu.Lock()
	s.user = &user
	s.token = token
	s.mu.Unlock()

	if err := s.local.Set(keyToken, token); err != nil {
		s.logger.Warn("failed to persist token", "error", err)
	}
	data, err := json.Marshal(user)
	if err == nil {
		err = s.local.Set(keyUser, string(data))
	}
	if err != nil {
		s.logger.Warn("failed to persist user", "error", err)
	}
}

func (s *Store) apiClient() *api.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}
