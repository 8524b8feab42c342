// Package orders wraps the /orders resource. Functions here shape the
// request, make one call through the API core and peel the response
// envelope; nothing is retried.
package orders

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

// AddressPayload is the order's shipping address in one of three shapes:
// a reference to the profile default, a reference to a saved address, or
// an inline new address.
type AddressPayload struct {
	Source    string          `json:"source"`
	AddressID string          `json:"address_id,omitempty"`
	Address   *domain.Address `json:"address,omitempty"`
}

const (
	AddressSourceDefault = "default"
	AddressSourceSaved   = "saved"
	AddressSourceNew     = "new"
)

type CreateRequest struct {
	Items          []domain.OrderItem `json:"items"`
	Subtotal       int64              `json:"subtotal"`
	Shipping       int64              `json:"shipping"`
	Total          int64              `json:"total"`
	FreeShipping   bool               `json:"free_shipping"`
	Address        AddressPayload     `json:"address"`
	IdempotencyKey string             `json:"idempotency_key"`
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (domain.Order, error) {
	var raw json.RawMessage
	if err := s.client.Do(ctx, http.MethodPost, "/orders", req, &raw); err != nil {
		s.logger.Error("order creation failed", "error", err)
		return domain.Order{}, err
	}
	return api.DecodeWrapped[domain.Order](raw, "data", "order")
}

func (s *Service) Get(ctx context.Context, id string) (domain.Order, error) {
	var raw json.RawMessage
	if err := s.client.Do(ctx, http.MethodGet, "/orders/"+id, nil, &raw); err != nil {
		s.logger.Error("order fetch failed", "error", err, "order_id", id)
		return domain.Order{}, err
	}
	return api.DecodeWrapped[domain.Order](raw, "data", "order")
}

// ListMine returns the caller's order history, newest first per backend.
func (s *Service) ListMine(ctx context.Context) ([]domain.Order, error) {
	var raw json.RawMessage
	if err := s.client.Do(ctx, http.MethodGet, "/orders", nil, &raw); err != nil {
		s.logger.Error("order list failed", "error", err)
		return nil, err
	}
	return api.DecodeWrapped[[]domain.Order](raw, "data", "orders")
}
