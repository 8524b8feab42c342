// Package checkout implements the three-step wizard: address, payment,
// confirmation. Transitions are linear; the only backward move is an
// explicit Back from payment to address. Submitting payment creates the
// order, requests a gateway preference and hands back the redirect URL,
// a hard exit from the client until the gateway returns the user.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/tiendashop/storefront-go/internal/addresses"
	"github.com/tiendashop/storefront-go/internal/cart"
	"github.com/tiendashop/storefront-go/internal/domain"
	"github.com/tiendashop/storefront-go/internal/orders"
	"github.com/tiendashop/storefront-go/internal/payments"
)

type Step int

const (
	StepAddress Step = iota + 1
	StepPayment
	StepConfirmation
)

func (s Step) String() string {
	switch s {
	case StepAddress:
		return "address"
	case StepPayment:
		return "payment"
	case StepConfirmation:
		return "confirmation"
	default:
		return "unknown"
	}
}

var (
	ErrEmptyCart         = errors.New("cart is empty, nothing to check out")
	ErrNoAddress         = errors.New("no shipping address resolvable")
	ErrIncompleteAddress = errors.New("new address is missing required fields")
	ErrUnknownAddress    = errors.New("selected address does not exist")
	ErrWrongStep         = errors.New("operation not allowed in current step")
)

// AddressSelection names exactly one address source: the profile default,
// a saved address by id, or an inline new address.
type AddressSelection struct {
	UseDefault bool
	SavedID    string
	New        *domain.Address
}

type Flow struct {
	cart      *cart.Cart
	addresses *addresses.Service
	orders    *orders.Service
	payments  *payments.Service
	logger    *slog.Logger

	promoCategory string
	returnBase    string

	mu       sync.Mutex
	step     Step
	resolved orders.AddressPayload
}

type Option func(*Flow)

func WithPromoCategory(id string) Option {
	return func(f *Flow) { f.promoCategory = id }
}

// WithReturnBaseURL sets the callback listener address the gateway redirects
// back to after the hosted checkout.
func WithReturnBaseURL(base string) Option {
	return func(f *Flow) { f.returnBase = base }
}

func NewFlow(c *cart.Cart, addr *addresses.Service, ord *orders.Service, pay *payments.Service, logger *slog.Logger, opts ...Option) *Flow {
	f := &Flow{
		cart:          c,
		addresses:     addr,
		orders:        ord,
		payments:      pay,
		logger:        logger,
		promoCategory: DefaultPromoCategory,
		step:          StepAddress,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Flow) Step() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// SelectAddress is the 1→2 guard: it validates that exactly one address
// source resolves, and only then advances. On any error the step does not
// move.
func (f *Flow) SelectAddress(ctx context.Context, sel AddressSelection) error {
	if f.Step() != StepAddress {
		return ErrWrongStep
	}
	if f.cart.Empty() {
		return ErrEmptyCart
	}

	payload, err := f.resolve(ctx, sel)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.resolved = payload
	f.step = StepPayment
	f.mu.Unlock()

	f.logger.Info("checkout advanced", "step", StepPayment.String(), "address_source", payload.Source)
	return nil
}

func (f *Flow) resolve(ctx context.Context, sel AddressSelection) (orders.AddressPayload, error) {
	switch {
	case sel.New != nil:
		if !sel.New.Complete() {
			return orders.AddressPayload{}, ErrIncompleteAddress
		}
		return orders.AddressPayload{Source: orders.AddressSourceNew, Address: sel.New}, nil

	case sel.SavedID != "":
		saved, err := f.addresses.List(ctx)
		if err != nil {
			return orders.AddressPayload{}, fmt.Errorf("load saved addresses: %w", err)
		}
		for _, a := range saved {
			if a.ID == sel.SavedID {
				return orders.AddressPayload{Source: orders.AddressSourceSaved, AddressID: sel.SavedID}, nil
			}
		}
		return orders.AddressPayload{}, ErrUnknownAddress

	case sel.UseDefault:
		def, err := f.addresses.Default(ctx)
		if err != nil {
			return orders.AddressPayload{}, fmt.Errorf("load default address: %w", err)
		}
		if def == nil {
			return orders.AddressPayload{}, ErrNoAddress
		}
		return orders.AddressPayload{Source: orders.AddressSourceDefault, AddressID: def.ID}, nil

	default:
		return orders.AddressPayload{}, ErrNoAddress
	}
}

// Back returns from payment to address. No other backward move exists.
func (f *Flow) Back() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.step != StepPayment {
		return ErrWrongStep
	}
	f.step = StepAddress
	return nil
}

// Submit is the 2→3 entry action: snapshot the cart, compute totals with
// the shipping rule, create the order, request the gateway preference, and
// return the hosted-checkout URL. Any failure leaves the flow in the
// payment step and the order is not considered created.
func (f *Flow) Submit(ctx context.Context) (string, error) {
	if f.Step() != StepPayment {
		return "", ErrWrongStep
	}

	lines := f.cart.Lines()
	if len(lines) == 0 {
		return "", ErrEmptyCart
	}

	var subtotal int64
	items := make([]domain.OrderItem, 0, len(lines))
	for _, line := range lines {
		subtotal += line.LineTotal()
		items = append(items, domain.OrderItem{
			ProductID: line.Product.ID,
			Name:      line.Product.Name,
			Quantity:  line.Quantity,
			UnitPrice: line.Product.EffectivePrice(),
		})
	}
	shipping := ShippingCost(lines, f.promoCategory)

	f.mu.Lock()
	address := f.resolved
	f.mu.Unlock()

	req := orders.CreateRequest{
		Items:          items,
		Subtotal:       subtotal,
		Shipping:       shipping,
		Total:          subtotal + shipping,
		FreeShipping:   shipping == 0,
		Address:        address,
		IdempotencyKey: uuid.NewString(),
	}

	order, err := f.orders.Create(ctx, req)
	if err != nil {
		return "", err
	}

	pref, err := f.payments.CreatePreference(ctx, order.ID, req.Total, payments.ReturnURLs(f.returnBase))
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	f.step = StepConfirmation
	f.mu.Unlock()

	f.logger.Info("checkout submitted", "order_id", order.ID, "total", req.Total, "shipping", shipping)
	return pref.InitPoint, nil
}
