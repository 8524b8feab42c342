// Package notifications wraps the notification endpoints, including the
// admin "send complete notification" call that persists and emails in one
// server-side step.
package notifications

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/tiendashop/storefront-go/internal/api"
	"github.com/tiendashop/storefront-go/internal/domain"
)

type Service struct {
	client *api.Client
	logger *slog.Logger
}

func NewService(client *api.Client, logger *slog.Logger) *Service {
	return &Service{client: client, logger: logger}
}

func (s *Service) List(ctx context.Context) ([]domain.Notification, error) {
	var raw json.RawMessage
	if err := s.client.Do(ctx, http.MethodGet, "/notifications", nil, &raw); err != nil {
		s.logger.Error("notification list failed", "error", err)
		return nil, err
	}
	return api.DecodeWrapped[[]domain.Notification](raw, "data", "notifications")
}

// UnreadCount tolerates the count arriving bare, under data, or as an
// object with a count field.
func (s *Service) UnreadCount(ctx context.Context) (int, error) {
	var raw json.RawMessage
	if err := s.client.Do(ctx, http.MethodGet, "/notifications/unread-count", nil, &raw); err != nil {
		s.logger.Error("unread count failed", "error", err)
		return 0, err
	}

	payload := api.Unwrap(raw, "data")

	var wrapped struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(payload, &wrapped); err == nil {
		return wrapped.Count, nil
	}

	var bare int
	if err := json.Unmarshal(payload, &bare); err == nil {
		return bare, nil
	}

	return 0, nil
}

func (s *Service) MarkRead(ctx context.Context, id string) error {
	return s.client.Do(ctx, http.MethodPut, "/notifications/"+id+"/read", nil, nil)
}

// Users fetches the admin recipient list.
func (s *Service) Users(ctx context.Context) ([]domain.User, error) {
	var raw json.RawMessage
	if err := s.client.Do(ctx, http.MethodGet, "/admin/users", nil, &raw); err != nil {
		s.logger.Error("user list failed", "error", err)
		return nil, err
	}
	return api.DecodeWrapped[[]domain.User](raw, "data", "users")
}

type SendRequest struct {
	RecipientID string `json:"recipient_id"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
	Priority    string `json:"priority"`
	Type        string `json:"type"`
}

// SendComplete submits the admin notification; the backend persists it and
// sends the email. No client-side queueing or delivery tracking.
func (s *Service) SendComplete(ctx context.Context, req SendRequest) error {
	if err := s.client.Do(ctx, http.MethodPost, "/admin/notifications/complete", req, nil); err != nil {
		s.logger.Error("notification send failed", "error", err, "recipient_id", req.RecipientID)
		return err
	}
	return nil
}
