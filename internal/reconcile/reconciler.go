// Package reconcile handles the return hop from the payment gateway: the
// three landing routes parse the redirect parameters and report the
// observed outcome to the backend exactly once per order. Confirmation is
// fire-and-forget: the gateway's server-side webhook is the authoritative
// updater, so failures are logged and never retried.
package reconcile

import (
	"context"
	"log/slog"
	"sync"

	"github.com/tiendashop/storefront-go/internal/domain"
	"github.com/tiendashop/storefront-go/internal/payments"
)

type Reconciler struct {
	payments *payments.Service
	logger   *slog.Logger

	mu   sync.Mutex
	done map[string]bool
}

func New(pay *payments.Service, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		payments: pay,
		logger:   logger,
		done:     make(map[string]bool),
	}
}

// Confirm fires the status-update call at most once per order id, even
// when invoked repeatedly for the same return. It reports whether the call
// was attempted.
func (r *Reconciler) Confirm(ctx context.Context, orderID, paymentID string, status domain.PaymentStatus, paymentType string) bool {
	r.mu.Lock()
	if r.done[orderID] {
		r.mu.Unlock()
		return false
	}
	r.done[orderID] = true
	r.mu.Unlock()

	if err := r.payments.ConfirmStatus(ctx, orderID, paymentID, status, paymentType); err != nil {
		r.logger.Warn("payment reconciliation failed, relying on webhook",
			"error", err, "order_id", orderID, "status", status)
		return true
	}

	r.logger.Info("payment reconciled", "order_id", orderID, "payment_id", paymentID, "status", status)
	return true
}

// ConfirmFromReturn maps the raw redirect parameters onto the client
// payment vocabulary before confirming.
func (r *Reconciler) ConfirmFromReturn(ctx context.Context, result Result) bool {
	return r.Confirm(ctx, result.OrderID, result.PaymentID,
		domain.PaymentStatusFromGateway(result.Status), result.Type)
}
