// Package addresses wraps the /addresses resource. The backend enforces
// the single-default invariant; this client assumes it.
package addresses

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

func (s *Service) List(ctx context.Context) ([]domain.Address, error) {
	var raw json.RawMessage
	if err := s.client.Do(ctx, http.MethodGet, "/addresses", nil, &raw); err != nil {
		s.logger.Error("address list failed", "error", err)
		return nil, err
	}
	return api.DecodeWrapped[[]domain.Address](raw, "data", "addresses")
}

func (s *Service) Create(ctx context.Context, address domain.Address) (domain.Address, error) {
	var raw json.RawMessage
	if err := s.client.Do(ctx, http.MethodPost, "/addresses", address, &raw); err != nil {
		s.logger.Error("address creation failed", "error", err)
		return domain.Address{}, err
	}
	return api.DecodeWrapped[domain.Address](raw, "data", "address")
}

func (s *Service) Update(ctx context.Context, address domain.Address) (domain.Address, error) {
	var raw json.RawMessage
	if err := s.client.Do(ctx, http.MethodPut, "/addresses/"+address.ID, address, &raw); err != nil {
		s.logger.Error("address update failed", "error", err, "address_id", address.ID)
		return domain.Address{}, err
	}
	return api.DecodeWrapped[domain.Address](raw, "data", "address")
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.client.Do(ctx, http.MethodDelete, "/addresses/"+id, nil, nil)
}

func (s *Service) SetDefault(ctx context.Context, id string) error {
	return s.client.Do(ctx, http.MethodPut, "/addresses/"+id+"/default", nil, nil)
}

// Default returns the address flagged as default, or nil when none is.
func (s *Service) Default(ctx context.Context) (*domain.Address, error) {
	list, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].Default {
			return &list[i], nil
		}
	}
	return nil, nil
}
