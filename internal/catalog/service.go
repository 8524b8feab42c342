// Package catalog wraps product browsing. The backend keeps its Spanish
// route names.
package catalog

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"

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

// List fetches products, optionally filtered by category.
func (s *Service) List(ctx context.Context, categoryID string) ([]domain.Product, error) {
	path := "/productos"
	if categoryID != "" {
		path += "?categoria=" + url.QueryEscape(categoryID)
	}

	var raw json.RawMessage
	if err := s.client.Do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		s.logger.Error("product list failed", "error", err)
		return nil, err
	}
	return api.DecodeWrapped[[]domain.Product](raw, "data", "productos", "products")
}

func (s *Service) Get(ctx context.Context, id string) (domain.Product, error) {
	var raw json.RawMessage
	if err := s.client.Do(ctx, http.MethodGet, "/productos/"+id, nil, &raw); err != nil {
		s.logger.Error("product fetch failed", "error", err, "product_id", id)
		return domain.Product{}, err
	}
	return api.DecodeWrapped[domain.Product](raw, "data", "producto", "product")
}
