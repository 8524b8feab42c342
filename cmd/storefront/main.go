package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tiendashop/storefront-go/internal/addresses"
	"github.com/tiendashop/storefront-go/internal/api"
	"github.com/tiendashop/storefront-go/internal/cart"
	"github.com/tiendashop/storefront-go/internal/catalog"
	"github.com/tiendashop/storefront-go/internal/checkout"
	"github.com/tiendashop/storefront-go/internal/localstore"
	"github.com/tiendashop/storefront-go/internal/notifications"
	"github.com/tiendashop/storefront-go/internal/orders"
	"github.com/tiendashop/storefront-go/internal/payments"
	"github.com/tiendashop/storefront-go/internal/reviews"
	"github.com/tiendashop/storefront-go/internal/session"
)

const usage = `usage: storefront <command> [args]

commands:
  login EMAIL PASSWORD       sign in and persist the session
  logout                     sign out
  register NAME EMAIL PASS   create an account and sign in
  profile [update|password|deactivate]
  products [CATEGORY]        list the catalog
  reviews PRODUCT_ID         list reviews for a product
  cart add|rm|set|show|clear manage the cart
  checkout [flags]           run the checkout wizard
  orders [ID]                list orders or show one
  addresses [add|rm|default] manage shipping addresses
  notifications [read ID|watch]
  notify RECIPIENT_ID SUBJECT BODY   (admin) send a notification
  shop                       interactive browse and cart screen`

type app struct {
	logger *slog.Logger
	local  *localstore.Store

	session       *session.Store
	cart          *cart.Cart
	catalog       *catalog.Service
	reviews       *reviews.Service
	addresses     *addresses.Service
	orders        *orders.Service
	payments      *payments.Service
	notifications *notifications.Service

	promoCategory string
	callbackAddr  string
}

func newApp() (*app, error) {
	level := slog.LevelWarn
	if os.Getenv("STOREFRONT_DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	baseURL := os.Getenv("STOREFRONT_API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	stateDir := os.Getenv("STOREFRONT_STATE_DIR")
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve state dir: %w", err)
		}
		stateDir = filepath.Join(home, ".storefront")
	}

	callbackAddr := os.Getenv("STOREFRONT_CALLBACK_ADDR")
	if callbackAddr == "" {
		callbackAddr = "127.0.0.1:8765"
	}

	promoCategory := os.Getenv("STOREFRONT_PROMO_CATEGORY")
	if promoCategory == "" {
		promoCategory = checkout.DefaultPromoCategory
	}

	local, err := localstore.New(stateDir)
	if err != nil {
		return nil, fmt.Errorf("open state dir: %w", err)
	}

	sess := session.New(local, logger)

	httpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	client := api.New(baseURL, httpClient, logger,
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
		promoCategory: promoCategory,
		callbackAddr:  callbackAddr,
	}
	a.loadCart()
	return a, nil
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	a, err := newApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, "storefront:", err)
		os.Exit(1)
	}

	cmd, args := os.Args[1], os.Args[2:]

	switch cmd {
	case "login":
		err = a.cmdLogin(args)
	case "logout":
		err = a.cmdLogout(args)
	case "register":
		err = a.cmdRegister(args)
	case "profile":
		err = a.cmdProfile(args)
	case "products":
		err = a.cmdProducts(args)
	case "reviews":
		err = a.cmdReviews(args)
	case "cart":
		err = a.cmdCart(args)
	case "checkout":
		err = a.cmdCheckout(args)
	case "orders":
		err = a.cmdOrders(args)
	case "addresses":
		err = a.cmdAddresses(args)
	case "notifications":
		err = a.cmdNotifications(args)
	case "notify":
		err = a.cmdNotify(args)
	case "shop":
		err = a.cmdShop(args)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "storefront:", err)
		os.Exit(1)
	}
}

// formatCents renders an integer cent amount as dollars.
func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}
