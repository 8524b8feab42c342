// Package reviews wraps the per-product review endpoints.
package reviews

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

func (s *Service) ListForProduct(ctx context.Context, productID string) ([]domain.Review, error) {
	var raw json.RawMessage
	if err := s.client.Do(ctx, http.MethodGet, "/productos/"+productID+"/reviews", nil, &raw); err != nil {
		s.logger.Error("review list failed", "error", err, "product_id", productID)
		return nil, err
	}
	return api.DecodeWrapped[[]domain.Review](raw, "data", "reviews")
}

type CreateRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`
}

func (s *Service) Create(ctx context.Context, productID string, req CreateRequest) (domain.Review, error) {
	var raw json.RawMessage
	if err := s.client.Do(ctx, http.MethodPost, "/productos/"+productID+"/reviews", req, &raw); err != nil {
		s.logger.Error("review creation failed", "error", err, "product_id", productID)
		return domain.Review{}, err
	}
	return api.DecodeWrapped[domain.Review](raw, "data", "review")
}

func (s *Service) Delete(ctx context.Context, productID, reviewID string) error {
	return s.client.Do(ctx, http.MethodDelete, "/productos/"+productID+"/reviews/"+reviewID, nil, nil)
}
