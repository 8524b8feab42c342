package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tiendashop/storefront-go/internal/checkout"
	"github.com/tiendashop/storefront-go/internal/domain"
	"github.com/tiendashop/storefront-go/internal/reconcile"
)

// cmdCheckout runs the three-step wizard end to end: pick the address,
// submit the order, hand the gateway URL to the user, then sit on the
// callback listener until the gateway redirects the browser back.
func (a *app) cmdCheckout(args []string) error {
	fs := flag.NewFlagSet("checkout", flag.ContinueOnError)
	savedID := fs.String("saved", "", "use a saved address by id")
	street := fs.String("street", "", "new address: street")
	city := fs.String("city", "", "new address: city")
	province := fs.String("province", "", "new address: province")
	postal := fs.String("postal", "", "new address: postal code")
	country := fs.String("country", "", "new address: country")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.requireLogin(); err != nil {
		return err
	}
	if a.cart.Empty() {
		return errors.New("cart is empty")
	}

	sel := checkout.AddressSelection{UseDefault: true}
	switch {
	case *savedID != "":
		sel = checkout.AddressSelection{SavedID: *savedID}
	case *street != "" || *city != "" || *province != "" || *postal != "" || *country != "":
		sel = checkout.AddressSelection{New: &domain.Address{
			Street:     *street,
			City:       *city,
			Province:   *province,
			PostalCode: *postal,
			Country:    *country,
		}}
	}

	ctx := context.Background()
	returnBase := "http://" + a.callbackAddr

	flow := checkout.NewFlow(a.cart, a.addresses, a.orders, a.payments, a.logger,
		checkout.WithPromoCategory(a.promoCategory),
		checkout.WithReturnBaseURL(returnBase),
	)

	if err := flow.SelectAddress(ctx, sel); err != nil {
		return describeErr(err)
	}

	results := make(chan reconcile.Result, 1)
	rec := reconcile.New(a.payments, a.logger)
	handler := reconcile.NewHandler(rec, a.logger, func(r reconcile.Result) {
		select {
		case results <- r:
		default:
		}
	})

	listener := &http.Server{
		Addr:         a.callbackAddr,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		if err := listener.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("callback listener error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = listener.Shutdown(shutdownCtx)
	}()

	redirectURL, err := flow.Submit(ctx)
	if err != nil {
		return describeErr(err)
	}

	fmt.Println("order placed, complete the payment in your browser:")
	fmt.Println("  " + redirectURL)
	fmt.Println("waiting for the gateway to send you back, ctrl-c to stop waiting")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		fmt.Println("stopped waiting; the payment will still be settled by the backend")
		return nil
	case result := <-results:
		return a.finishCheckout(result)
	}
}

func (a *app) finishCheckout(result reconcile.Result) error {
	switch domain.PaymentStatusFromGateway(result.Status) {
	case domain.PaymentStatusSuccess:
		a.cart.Clear()
		if err := a.saveCart(); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		fmt.Printf("payment approved, order %s confirmed\n", result.OrderID)
	case domain.PaymentStatusFailure:
		fmt.Printf("payment rejected for order %s, the cart is unchanged\n", result.OrderID)
	default:
		fmt.Printf("payment pending for order %s, check your orders later\n", result.OrderID)
	}
	return nil
}
