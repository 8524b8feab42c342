package reconcile

import (
	"fmt"
	"log/slog"
	"net/http"
)

// Result is one observed gateway return.
type Result struct {
	OrderID   string
	PaymentID string
	Status    string
	Type      string
}

// Handler serves the three gateway landing routes. notify, when set, is
// called after each handled return (the CLI uses it to stop waiting).
type Handler struct {
	reconciler *Reconciler
	logger     *slog.Logger
	notify     func(Result)
}

func NewHandler(rec *Reconciler, logger *slog.Logger, notify func(Result)) *Handler {
	return &Handler{reconciler: rec, logger: logger, notify: notify}
}

// Routes mounts the landing endpoints on a fresh mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /checkout/success", h.landing("Payment approved. Thank you for your purchase!"))
	mux.HandleFunc("GET /checkout/failure", h.landing("Payment was not completed. Your order has not been charged."))
	mux.HandleFunc("GET /checkout/pending", h.landing("Payment is pending. We will update your order once it settles."))
	return mux
}

func (h *Handler) landing(message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		result := Result{
			OrderID:   q.Get("order_id"),
			PaymentID: q.Get("payment_id"),
			Status:    q.Get("status"),
			Type:      q.Get("payment_type"),
		}

		if result.OrderID == "" {
			h.logger.Warn("gateway return missing order_id", "path", r.URL.Path)
			http.Error(w, "missing order_id", http.StatusBadRequest)
			return
		}

		h.reconciler.ConfirmFromReturn(r.Context(), result)

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, message)

		if h.notify != nil {
			h.notify(result)
		}
	}
}
