// Package payments wraps the payment-gateway integration endpoints: the
// preference (hosted checkout) request and the redirect-observed status
// confirmation.
package payments

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

// Preference identifies a hosted gateway checkout; InitPoint is the URL
// the browser is sent to.
type Preference struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

// BackURLs are where the gateway sends the browser after the hosted
// checkout resolves, one per outcome.
type BackURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

// ReturnURLs derives the three landing URLs from the callback listener's
// base address.
func ReturnURLs(base string) BackURLs {
	return BackURLs{
		Success: base + "/checkout/success",
		Failure: base + "/checkout/failure",
		Pending: base + "/checkout/pending",
	}
}

// CreatePreference asks the backend for a gateway preference tagged with
// the order id as external reference, so the redirect and webhook can be
// correlated back to the order.
func (s *Service) CreatePreference(ctx context.Context, orderID string, total int64, back BackURLs) (Preference, error) {
	body := map[string]any{
		"external_reference": orderID,
		"total":              total,
		"back_urls":          back,
	}

	var raw json.RawMessage
	if err := s.client.Do(ctx, http.MethodPost, "/payments/preference", body, &raw); err != nil {
		s.logger.Error("preference creation failed", "error", err, "order_id", orderID)
		return Preference{}, err
	}
	return api.DecodeWrapped[Preference](raw, "data", "preference")
}

// ConfirmStatus reports the outcome observed on the gateway redirect. One
// attempt; the server-side webhook remains the authoritative updater.
func (s *Service) ConfirmStatus(ctx context.Context, orderID, paymentID string, status domain.PaymentStatus, paymentType string) error {
	body := map[string]string{
		"order_id":     orderID,
		"payment_id":   paymentID,
		"status":       string(status),
		"payment_type": paymentType,
	}

	if err := s.client.Do(ctx, http.MethodPost, "/payments/confirm", body, nil); err != nil {
		s.logger.Error("payment confirmation failed", "error", err, "order_id", orderID)
		return err
	}
	return nil
}
