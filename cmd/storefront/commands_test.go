package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tiendashop/storefront-go/internal/addresses"
	"github.com/tiendashop/storefront-go/internal/api"
	"github.com/tiendashop/storefront-go/internal/cart"
	"github.com/tiendashop/storefront-go/internal/catalog"
	"github.com/tiendashop/storefront-go/internal/domain"
	"github.com/tiendashop/storefront-go/internal/localstore"
	"github.com/tiendashop/storefront-go/internal/notifications"
	"github.com/tiendashop/storefront-go/internal/orders"
	"github.com/tiendashop/storefront-go/internal/payments"
	"github.com/tiendashop/storefront-go/internal/reviews"
	"github.com/tiendashop/storefront-go/internal/session"
)

// newTestApp wires an app against an httptest backend, with state in a
// per-test directory.
func newTestApp(t *testing.T, stateDir string, handler http.Handler) *app {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	local, err := localstore.New(stateDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sess := session.New(local, logger)
	client := api.New(server.URL, &http.Client{Timeout: 10 * time.Second}, logger,
		api.WithTokenSource(sess.Token),
		api.WithOnUnauthorized(sess.ForceLogout),
	)
	sess.SetClient(client)
	sess.Bootstrap()

	a := &app{
		logger:        logger,
		local:         local,
		session:       sess,
		cart:          cart.New(),
		catalog:       catalog.NewService(client, logger),
		reviews:       reviews.NewService(client, logger),
		addresses:     addresses.NewService(client, logger),
		orders:        orders.NewService(client, logger),
		payments:      payments.NewService(client, logger),
		notifications: notifications.NewService(client, logger),
		promoCategory: "1",
		callbackAddr:  "127.0.0.1:0",
	}
	a.loadCart()
	return a
}

func loginMux(t *testing.T) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token": "tok-1",
			"user":  domain.User{ID: "u1", Name: "Ana", Email: "ana@test", Role: domain.RoleCustomer},
		})
	})
	return mux
}

func TestCmdReviews(t *testing.T) {
	var got reviews.CreateRequest
	mux := loginMux(t)
	mux.HandleFunc("POST /productos/{id}/reviews", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "p1" {
			t.Errorf("unexpected product id %s", r.PathValue("id"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"review":{"id":"r1","rating":5}}`))
	})

	a := newTestApp(t, t.TempDir(), mux)
	if _, err := a.session.Login(context.Background(), "ana@test", "secret"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if err := a.cmdReviews([]string{"p1", "add", "5", "worth", "it"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Rating != 5 || got.Comment != "worth it" {
		t.Errorf("unexpected review request %+v", got)
	}

	t.Run("requires login", func(t *testing.T) {
		anon := newTestApp(t, t.TempDir(), loginMux(t))
		if err := anon.cmdReviews([]string{"p1", "add", "5"}); err == nil {
			t.Error("expected an error when logged out")
		}
	})
}

func TestCartPersistsBetweenInvocations(t *testing.T) {
	stateDir := t.TempDir()
	mux := http.NewServeMux()

	a := newTestApp(t, stateDir, mux)
	a.cart.Add(domain.Product{ID: "p1", Name: "Yerba Mate 1kg", Price: 1299, CategoryID: "1"}, 2)
	if err := a.saveCart(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A fresh app on the same state dir is the next CLI invocation.
	b := newTestApp(t, stateDir, mux)
	lines := b.cart.Lines()
	if len(lines) != 1 || lines[0].Product.ID != "p1" || lines[0].Quantity != 2 {
		t.Fatalf("unexpected restored cart %+v", lines)
	}

	b.cart.Clear()
	if err := b.saveCart(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := b.local.Get(cartKey); ok {
		t.Error("expected the cart key cleared with the cart")
	}
}

func TestFormatCents(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{0, "$0.00"},
		{599, "$5.99"},
		{1299, "$12.99"},
		{3897, "$38.97"},
		{-50, "-$0.50"},
	}
	for _, tt := range tests {
		if got := formatCents(tt.cents); got != tt.want {
			t.Errorf("formatCents(%d) = %q, want %q", tt.cents, got, tt.want)
		}
	}
}
