package devserver

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/tiendashop/storefront-go/internal/domain"
)

// The gateway simulator stands in for the hosted checkout page. It shows one
// link per outcome; following a link performs the redirect hop the real
// gateway would, back URL plus the usual query parameters.

var gatewayOutcomes = map[string]struct {
	status      string
	paymentType string
	backKey     string
}{
	"approve": {status: "approved", paymentType: "credit_card", backKey: "success"},
	"reject":  {status: "rejected", paymentType: "credit_card", backKey: "failure"},
	"pend":    {status: "in_process", paymentType: "ticket", backKey: "pending"},
}

func (s *Server) handleGatewayPage(w http.ResponseWriter, r *http.Request) {
	payment, _, err := s.lookupPayment(w, r)
	if err != nil || payment == nil {
		return
	}

	order, err := s.store.OrderByID(r.Context(), payment.OrderID)
	if err != nil || order == nil {
		s.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<h1>Checkout</h1><p>Order %s, total %d</p><ul>", order.ID, order.Total)
	for outcome := range gatewayOutcomes {
		fmt.Fprintf(w, `<li><a href="/gateway/%s/%s">%s</a></li>`, payment.ID, outcome, outcome)
	}
	fmt.Fprint(w, "</ul>")
}

func (s *Server) handleGatewayOutcome(w http.ResponseWriter, r *http.Request) {
	outcome, ok := gatewayOutcomes[r.PathValue("outcome")]
	if !ok {
		s.writeError(w, http.StatusNotFound, "unknown outcome")
		return
	}

	payment, backURLs, err := s.lookupPayment(w, r)
	if err != nil || payment == nil {
		return
	}

	back := backURLs[outcome.backKey]
	if back == "" {
		s.writeError(w, http.StatusConflict, "preference has no back URL for this outcome")
		return
	}

	query := url.Values{}
	query.Set("order_id", payment.OrderID)
	query.Set("payment_id", payment.ID)
	query.Set("status", outcome.status)
	query.Set("payment_type", outcome.paymentType)

	s.logger.Info("gateway redirect", "payment_id", payment.ID, "status", outcome.status)
	http.Redirect(w, r, back+"?"+query.Encode(), http.StatusFound)
}

func (s *Server) lookupPayment(w http.ResponseWriter, r *http.Request) (*domain.Payment, map[string]string, error) {
	payment, backURLs, err := s.store.PaymentByID(r.Context(), r.PathValue("id"))
	if err != nil {
		s.logger.Error("payment lookup failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return nil, nil, err
	}
	if payment == nil {
		s.writeError(w, http.StatusNotFound, "payment not found")
		return nil, nil, nil
	}
	return payment, backURLs, nil
}
