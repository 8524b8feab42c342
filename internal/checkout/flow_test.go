package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tiendashop/storefront-go/internal/addresses"
	"github.com/tiendashop/storefront-go/internal/api"
	"github.com/tiendashop/storefront-go/internal/cart"
	"github.com/tiendashop/storefront-go/internal/domain"
	"github.com/tiendashop/storefront-go/internal/orders"
	"github.com/tiendashop/storefront-go/internal/payments"
)

type backendStub struct {
	savedAddresses []domain.Address
	failOrders     bool

	orderRequests []map[string]any
	prefRequests  []map[string]any
}

func (b *backendStub) handler(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("GET /addresses", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"addresses": b.savedAddresses})
	})

	mux.HandleFunc("POST /orders", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("bad order body: %v", err)
		}
		b.orderRequests = append(b.orderRequests, body)

		if b.failOrders {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"boom"}`))
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"order": domain.Order{ID: "order-1", Total: 1599},
		})
	})

	mux.HandleFunc("POST /payments/preference", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("bad preference body: %v", err)
		}
		b.prefRequests = append(b.prefRequests, body)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]string{"id": "pref-1", "init_point": "https://gateway.test/pay/pref-1"},
		})
	})

	return mux
}

func newTestFlow(t *testing.T, stub *backendStub, c *cart.Cart, opts ...Option) *Flow {
	t.Helper()

	server := httptest.NewServer(stub.handler(t))
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := api.New(server.URL, server.Client(), logger)

	return NewFlow(c,
		addresses.NewService(client, logger),
		orders.NewService(client, logger),
		payments.NewService(client, logger),
		logger,
		opts...,
	)
}

func cartWith(t *testing.T, lines ...domain.CartLine) *cart.Cart {
	t.Helper()
	c := cart.New()
	for _, l := range lines {
		c.Add(l.Product, l.Quantity)
	}
	return c
}

func completeAddress() domain.Address {
	return domain.Address{
		Street:     "Av. Corrientes 1234",
		City:       "Buenos Aires",
		Province:   "CABA",
		PostalCode: "C1043",
		Country:    "AR",
	}
}

func TestFlow_SelectAddress(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects an empty cart", func(t *testing.T) {
		flow := newTestFlow(t, &backendStub{}, cart.New())

		err := flow.SelectAddress(ctx, AddressSelection{UseDefault: true})
		if !errors.Is(err, ErrEmptyCart) {
			t.Errorf("expected ErrEmptyCart, got %v", err)
		}
		if flow.Step() != StepAddress {
			t.Errorf("step moved to %s", flow.Step())
		}
	})

	t.Run("rejects when no source is named", func(t *testing.T) {
		flow := newTestFlow(t, &backendStub{}, cartWith(t, line(1000, 1, "2")))

		if err := flow.SelectAddress(ctx, AddressSelection{}); !errors.Is(err, ErrNoAddress) {
			t.Errorf("expected ErrNoAddress, got %v", err)
		}
	})

	t.Run("rejects an incomplete new address", func(t *testing.T) {
		flow := newTestFlow(t, &backendStub{}, cartWith(t, line(1000, 1, "2")))

		incomplete := completeAddress()
		incomplete.PostalCode = ""
		err := flow.SelectAddress(ctx, AddressSelection{New: &incomplete})
		if !errors.Is(err, ErrIncompleteAddress) {
			t.Errorf("expected ErrIncompleteAddress, got %v", err)
		}
		if flow.Step() != StepAddress {
			t.Errorf("step moved to %s", flow.Step())
		}
	})

	t.Run("rejects an unknown saved address", func(t *testing.T) {
		stub := &backendStub{savedAddresses: []domain.Address{{ID: "a1"}}}
		flow := newTestFlow(t, stub, cartWith(t, line(1000, 1, "2")))

		err := flow.SelectAddress(ctx, AddressSelection{SavedID: "a2"})
		if !errors.Is(err, ErrUnknownAddress) {
			t.Errorf("expected ErrUnknownAddress, got %v", err)
		}
	})

	t.Run("rejects default when none is set", func(t *testing.T) {
		flow := newTestFlow(t, &backendStub{}, cartWith(t, line(1000, 1, "2")))

		err := flow.SelectAddress(ctx, AddressSelection{UseDefault: true})
		if !errors.Is(err, ErrNoAddress) {
			t.Errorf("expected ErrNoAddress, got %v", err)
		}
	})

	t.Run("advances with a complete new address", func(t *testing.T) {
		flow := newTestFlow(t, &backendStub{}, cartWith(t, line(1000, 1, "2")))

		addr := completeAddress()
		if err := flow.SelectAddress(ctx, AddressSelection{New: &addr}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if flow.Step() != StepPayment {
			t.Errorf("expected payment step, got %s", flow.Step())
		}
	})

	t.Run("second select is rejected", func(t *testing.T) {
		flow := newTestFlow(t, &backendStub{}, cartWith(t, line(1000, 1, "2")))

		addr := completeAddress()
		if err := flow.SelectAddress(ctx, AddressSelection{New: &addr}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := flow.SelectAddress(ctx, AddressSelection{New: &addr}); !errors.Is(err, ErrWrongStep) {
			t.Errorf("expected ErrWrongStep, got %v", err)
		}
	})
}

func TestFlow_Back(t *testing.T) {
	ctx := context.Background()

	t.Run("returns from payment to address", func(t *testing.T) {
		flow := newTestFlow(t, &backendStub{}, cartWith(t, line(1000, 1, "2")))

		addr := completeAddress()
		if err := flow.SelectAddress(ctx, AddressSelection{New: &addr}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := flow.Back(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if flow.Step() != StepAddress {
			t.Errorf("expected address step, got %s", flow.Step())
		}
	})

	t.Run("not allowed from the address step", func(t *testing.T) {
		flow := newTestFlow(t, &backendStub{}, cartWith(t, line(1000, 1, "2")))

		if err := flow.Back(); !errors.Is(err, ErrWrongStep) {
			t.Errorf("expected ErrWrongStep, got %v", err)
		}
	})
}

func TestFlow_Submit(t *testing.T) {
	ctx := context.Background()

	t.Run("not allowed before the payment step", func(t *testing.T) {
		flow := newTestFlow(t, &backendStub{}, cartWith(t, line(1000, 1, "2")))

		if _, err := flow.Submit(ctx); !errors.Is(err, ErrWrongStep) {
			t.Errorf("expected ErrWrongStep, got %v", err)
		}
	})

	t.Run("creates the order and returns the redirect URL", func(t *testing.T) {
		stub := &backendStub{}
		flow := newTestFlow(t, stub, cartWith(t, line(1000, 1, "2")),
			WithReturnBaseURL("http://127.0.0.1:8765"))

		addr := completeAddress()
		if err := flow.SelectAddress(ctx, AddressSelection{New: &addr}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		redirectURL, err := flow.Submit(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if redirectURL != "https://gateway.test/pay/pref-1" {
			t.Errorf("unexpected redirect URL %q", redirectURL)
		}
		if flow.Step() != StepConfirmation {
			t.Errorf("expected confirmation step, got %s", flow.Step())
		}

		if len(stub.orderRequests) != 1 {
			t.Fatalf("expected 1 order request, got %d", len(stub.orderRequests))
		}
		body := stub.orderRequests[0]
		if body["subtotal"].(float64) != 1000 || body["shipping"].(float64) != 599 || body["total"].(float64) != 1599 {
			t.Errorf("unexpected totals: %v", body)
		}
		if body["idempotency_key"] == "" {
			t.Error("expected a non-empty idempotency key")
		}

		if len(stub.prefRequests) != 1 {
			t.Fatalf("expected 1 preference request, got %d", len(stub.prefRequests))
		}
		pref := stub.prefRequests[0]
		if pref["external_reference"] != "order-1" {
			t.Errorf("expected external_reference order-1, got %v", pref["external_reference"])
		}
		back := pref["back_urls"].(map[string]any)
		if back["success"] != "http://127.0.0.1:8765/checkout/success" {
			t.Errorf("unexpected back_urls: %v", back)
		}
	})

	t.Run("free shipping over the promo threshold", func(t *testing.T) {
		stub := &backendStub{}
		flow := newTestFlow(t, stub, cartWith(t, line(1299, 3, "1")))

		addr := completeAddress()
		if err := flow.SelectAddress(ctx, AddressSelection{New: &addr}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := flow.Submit(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		body := stub.orderRequests[0]
		if body["shipping"].(float64) != 0 || body["total"].(float64) != 3897 {
			t.Errorf("unexpected totals: %v", body)
		}
		if body["free_shipping"] != true {
			t.Error("expected free_shipping to be set")
		}
	})

	t.Run("order failure keeps the flow at payment", func(t *testing.T) {
		stub := &backendStub{failOrders: true}
		flow := newTestFlow(t, stub, cartWith(t, line(1000, 1, "2")))

		addr := completeAddress()
		if err := flow.SelectAddress(ctx, AddressSelection{New: &addr}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if _, err := flow.Submit(ctx); err == nil {
			t.Fatal("expected an error")
		}
		if flow.Step() != StepPayment {
			t.Errorf("expected payment step after failure, got %s", flow.Step())
		}

		// The wizard allows a retry once the backend recovers.
		stub.failOrders = false
		if _, err := flow.Submit(ctx); err != nil {
			t.Fatalf("retry failed: %v", err)
		}
		if flow.Step() != StepConfirmation {
			t.Errorf("expected confirmation step, got %s", flow.Step())
		}
	})
}
