package reconcile

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/tiendashop/storefront-go/internal/api"
	"github.com/tiendashop/storefront-go/internal/domain"
	"github.com/tiendashop/storefront-go/internal/payments"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestReconciler backs the reconciler with an httptest confirm endpoint
// and returns a counter of confirm calls received.
func newTestReconciler(t *testing.T, status int) (*Reconciler, *atomic.Int64, *[]map[string]string) {
	t.Helper()

	var confirms atomic.Int64
	var mu sync.Mutex
	bodies := &[]map[string]string{}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /payments/confirm", func(w http.ResponseWriter, r *http.Request) {
		confirms.Add(1)
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		*bodies = append(*bodies, body)
		mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	logger := discardLogger()
	client := api.New(server.URL, server.Client(), logger)
	return New(payments.NewService(client, logger), logger), &confirms, bodies
}

func TestReconciler_Confirm(t *testing.T) {
	t.Run("fires once per order id", func(t *testing.T) {
		rec, confirms, _ := newTestReconciler(t, http.StatusOK)
		ctx := context.Background()

		if !rec.Confirm(ctx, "o1", "p1", domain.PaymentStatusSuccess, "credit_card") {
			t.Error("expected the first call to attempt")
		}
		if rec.Confirm(ctx, "o1", "p1", domain.PaymentStatusSuccess, "credit_card") {
			t.Error("expected the repeat to be suppressed")
		}
		if got := confirms.Load(); got != 1 {
			t.Errorf("expected 1 confirm request, got %d", got)
		}
	})

	t.Run("different orders confirm independently", func(t *testing.T) {
		rec, confirms, _ := newTestReconciler(t, http.StatusOK)
		ctx := context.Background()

		rec.Confirm(ctx, "o1", "p1", domain.PaymentStatusSuccess, "")
		rec.Confirm(ctx, "o2", "p2", domain.PaymentStatusFailure, "")

		if got := confirms.Load(); got != 2 {
			t.Errorf("expected 2 confirm requests, got %d", got)
		}
	})

	t.Run("backend failure is not retried", func(t *testing.T) {
		rec, confirms, _ := newTestReconciler(t, http.StatusInternalServerError)
		ctx := context.Background()

		if !rec.Confirm(ctx, "o1", "p1", domain.PaymentStatusSuccess, "") {
			t.Error("expected the call to be attempted")
		}
		// The webhook owns recovery; a repeat return must not re-fire.
		rec.Confirm(ctx, "o1", "p1", domain.PaymentStatusSuccess, "")

		if got := confirms.Load(); got != 1 {
			t.Errorf("expected 1 confirm request, got %d", got)
		}
	})

	t.Run("concurrent duplicates collapse to one attempt", func(t *testing.T) {
		rec, confirms, _ := newTestReconciler(t, http.StatusOK)
		ctx := context.Background()

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				rec.Confirm(ctx, "o1", "p1", domain.PaymentStatusSuccess, "")
			}()
		}
		wg.Wait()

		if got := confirms.Load(); got != 1 {
			t.Errorf("expected 1 confirm request, got %d", got)
		}
	})
}

func TestHandler_Landing(t *testing.T) {
	t.Run("parses the redirect parameters", func(t *testing.T) {
		rec, confirms, bodies := newTestReconciler(t, http.StatusOK)

		var notified []Result
		handler := NewHandler(rec, discardLogger(), func(r Result) {
			notified = append(notified, r)
		})
		server := httptest.NewServer(handler.Routes())
		defer server.Close()

		resp, err := http.Get(server.URL + "/checkout/success?order_id=o1&payment_id=p1&status=approved&payment_type=credit_card")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected 200, got %d", resp.StatusCode)
		}
		if got := confirms.Load(); got != 1 {
			t.Errorf("expected 1 confirm request, got %d", got)
		}
		if len(*bodies) != 1 {
			t.Fatalf("expected 1 confirm body, got %d", len(*bodies))
		}
		body := (*bodies)[0]
		if body["order_id"] != "o1" || body["payment_id"] != "p1" || body["status"] != "success" || body["payment_type"] != "credit_card" {
			t.Errorf("unexpected confirm body %v", body)
		}
		if len(notified) != 1 || notified[0].OrderID != "o1" {
			t.Errorf("unexpected notifications %v", notified)
		}
	})

	t.Run("rejected status maps to failure", func(t *testing.T) {
		rec, _, bodies := newTestReconciler(t, http.StatusOK)
		handler := NewHandler(rec, discardLogger(), nil)
		server := httptest.NewServer(handler.Routes())
		defer server.Close()

		resp, err := http.Get(server.URL + "/checkout/failure?order_id=o2&status=rejected")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_ = resp.Body.Close()

		if len(*bodies) != 1 || (*bodies)[0]["status"] != "failure" {
			t.Errorf("unexpected confirm bodies %v", *bodies)
		}
	})

	t.Run("unknown status maps to pending", func(t *testing.T) {
		rec, _, bodies := newTestReconciler(t, http.StatusOK)
		handler := NewHandler(rec, discardLogger(), nil)
		server := httptest.NewServer(handler.Routes())
		defer server.Close()

		resp, err := http.Get(server.URL + "/checkout/pending?order_id=o3&status=in_process")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_ = resp.Body.Close()

		if len(*bodies) != 1 || (*bodies)[0]["status"] != "pending" {
			t.Errorf("unexpected confirm bodies %v", *bodies)
		}
	})

	t.Run("missing order_id is a 400 and confirms nothing", func(t *testing.T) {
		rec, confirms, _ := newTestReconciler(t, http.StatusOK)
		notified := false
		handler := NewHandler(rec, discardLogger(), func(Result) { notified = true })
		server := httptest.NewServer(handler.Routes())
		defer server.Close()

		resp, err := http.Get(server.URL + "/checkout/success?status=approved")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_ = resp.Body.Close()

		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", resp.StatusCode)
		}
		if confirms.Load() != 0 {
			t.Error("confirm fired without an order id")
		}
		if notified {
			t.Error("notify fired without an order id")
		}
	})

	t.Run("duplicate return hits the backend once", func(t *testing.T) {
		rec, confirms, _ := newTestReconciler(t, http.StatusOK)
		handler := NewHandler(rec, discardLogger(), nil)
		server := httptest.NewServer(handler.Routes())
		defer server.Close()

		for i := 0; i < 2; i++ {
			resp, err := http.Get(server.URL + "/checkout/success?order_id=o1&status=approved")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			_ = resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Errorf("expected 200 on request %d, got %d", i, resp.StatusCode)
			}
		}

		if got := confirms.Load(); got != 1 {
			t.Errorf("expected 1 confirm request, got %d", got)
		}
	})
}
