package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/tiendashop/storefront-go/internal/api"
	"github.com/tiendashop/storefront-go/internal/checkout"
	"github.com/tiendashop/storefront-go/internal/domain"
	"github.com/tiendashop/storefront-go/internal/notifications"
	"github.com/tiendashop/storefront-go/internal/reviews"
	"github.com/tiendashop/storefront-go/internal/session"
)

const cartKey = "cart"

func (a *app) loadCart() {
	raw, ok := a.local.Get(cartKey)
	if !ok {
		return
	}

	var lines []domain.CartLine
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		a.logger.Warn("discarding unreadable cart state", "error", err)
		_ = a.local.Delete(cartKey)
		return
	}
	for _, line := range lines {
		a.cart.Add(line.Product, line.Quantity)
	}
}

func (a *app) saveCart() error {
	lines := a.cart.Lines()
	if len(lines) == 0 {
		return a.local.Delete(cartKey)
	}

	raw, err := json.Marshal(lines)
	if err != nil {
		return err
	}
	return a.local.Set(cartKey, string(raw))
}

func (a *app) requireLogin() error {
	if _, ok := a.session.Current(); !ok {
		return errors.New("not logged in, run: storefront login EMAIL PASSWORD")
	}
	return nil
}

// describeErr expands validation failures into their field messages so the
// user sees which inputs the backend rejected.
func describeErr(err error) error {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.IsValidation() {
		return fmt.Errorf("%s:\n  %s", apiErr.Message, strings.Join(apiErr.FieldMessages(), "\n  "))
	}
	return err
}

func (a *app) cmdLogin(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: storefront login EMAIL PASSWORD")
	}

	user, err := a.session.Login(context.Background(), args[0], args[1])
	if err != nil {
		return describeErr(err)
	}
	fmt.Printf("logged in as %s <%s>\n", user.Name, user.Email)
	return nil
}

func (a *app) cmdLogout(_ []string) error {
	a.session.Logout(context.Background())
	fmt.Println("logged out")
	return nil
}

func (a *app) cmdRegister(args []string) error {
	if len(args) != 3 {
		return errors.New("usage: storefront register NAME EMAIL PASSWORD")
	}

	user, err := a.session.Register(context.Background(), session.RegisterRequest{
		Name:     args[0],
		Email:    args[1],
		Password: args[2],
	})
	if err != nil {
		return describeErr(err)
	}
	fmt.Printf("registered and logged in as %s <%s>\n", user.Name, user.Email)
	return nil
}

func (a *app) cmdProfile(args []string) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	ctx := context.Background()

	if len(args) == 0 {
		user, _ := a.session.Current()
		fmt.Printf("%s <%s> role=%s\n", user.Name, user.Email, user.Role)
		return nil
	}

	switch args[0] {
	case "update":
		if len(args) != 3 {
			return errors.New("usage: storefront profile update NAME EMAIL")
		}
		user, err := a.session.UpdateProfile(ctx, session.ProfileUpdate{Name: args[1], Email: args[2]})
		if err != nil {
			return describeErr(err)
		}
		fmt.Printf("profile updated: %s <%s>\n", user.Name, user.Email)
		return nil

	case "password":
		if len(args) != 3 {
			return errors.New("usage: storefront profile password CURRENT NEW")
		}
		if err := a.session.ChangePassword(ctx, args[1], args[2]); err != nil {
			return describeErr(err)
		}
		fmt.Println("password changed")
		return nil

	case "deactivate":
		if len(args) != 2 {
			return errors.New("usage: storefront profile deactivate PASSWORD")
		}
		if err := a.session.Deactivate(ctx, args[1]); err != nil {
			return describeErr(err)
		}
		fmt.Println("account deactivated")
		return nil

	default:
		return errors.New("usage: storefront profile [update|password|deactivate]")
	}
}

func (a *app) cmdProducts(args []string) error {
	category := ""
	if len(args) > 0 {
		category = args[0]
	}

	products, err := a.catalog.List(context.Background(), category)
	if err != nil {
		return describeErr(err)
	}

	for _, p := range products {
		price := formatCents(p.Price)
		if p.SalePrice != nil {
			price = fmt.Sprintf("%s (was %s)", formatCents(*p.SalePrice), formatCents(p.Price))
		}
		fmt.Printf("%s  %-24s %-12s cat=%s stock=%d\n", p.ID, p.Name, price, p.CategoryID, p.Stock)
	}
	return nil
}

func (a *app) cmdReviews(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: storefront reviews PRODUCT_ID [add RATING COMMENT | rm REVIEW_ID]")
	}
	ctx := context.Background()
	productID := args[0]

	if len(args) == 1 {
		list, err := a.reviews.ListForProduct(ctx, productID)
		if err != nil {
			return describeErr(err)
		}
		for _, rv := range list {
			fmt.Printf("%s  %d/5  %s\n", rv.ID, rv.Rating, rv.Comment)
		}
		return nil
	}

	if err := a.requireLogin(); err != nil {
		return err
	}

	switch args[1] {
	case "add":
		if len(args) < 3 {
			return errors.New("usage: storefront reviews PRODUCT_ID add RATING [COMMENT]")
		}
		rating, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("rating must be a number: %w", err)
		}
		review, err := a.reviews.Create(ctx, productID, reviews.CreateRequest{
			Rating:  rating,
			Comment: strings.Join(args[3:], " "),
		})
		if err != nil {
			return describeErr(err)
		}
		fmt.Printf("review %s created\n", review.ID)
		return nil

	case "rm":
		if len(args) != 3 {
			return errors.New("usage: storefront reviews PRODUCT_ID rm REVIEW_ID")
		}
		if err := a.reviews.Delete(ctx, productID, args[2]); err != nil {
			return describeErr(err)
		}
		fmt.Println("review deleted")
		return nil

	default:
		return errors.New("usage: storefront reviews PRODUCT_ID [add|rm]")
	}
}

func (a *app) cmdCart(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: storefront cart add|rm|set|show|clear")
	}
	ctx := context.Background()

	switch args[0] {
	case "add":
		if len(args) < 2 {
			return errors.New("usage: storefront cart add PRODUCT_ID [QTY]")
		}
		quantity := 1
		if len(args) > 2 {
			q, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("quantity must be a number: %w", err)
			}
			quantity = q
		}
		product, err := a.catalog.Get(ctx, args[1])
		if err != nil {
			return describeErr(err)
		}
		a.cart.Add(product, quantity)

	case "rm":
		if len(args) != 2 {
			return errors.New("usage: storefront cart rm PRODUCT_ID")
		}
		a.cart.Remove(args[1])

	case "set":
		if len(args) != 3 {
			return errors.New("usage: storefront cart set PRODUCT_ID QTY")
		}
		quantity, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("quantity must be a number: %w", err)
		}
		a.cart.UpdateQuantity(args[1], quantity)

	case "clear":
		a.cart.Clear()

	case "show":
		a.printCart()
		return nil

	default:
		return errors.New("usage: storefront cart add|rm|set|show|clear")
	}

	if err := a.saveCart(); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	a.printCart()
	return nil
}

func (a *app) printCart() {
	lines := a.cart.Lines()
	if len(lines) == 0 {
		fmt.Println("cart is empty")
		return
	}

	for _, line := range lines {
		fmt.Printf("%s  %-24s x%d  %s\n",
			line.Product.ID, line.Product.Name, line.Quantity, formatCents(line.LineTotal()))
	}

	subtotal := a.cart.Subtotal()
	shipping := checkout.ShippingCost(lines, a.promoCategory)
	fmt.Printf("subtotal %s, shipping %s, total %s\n",
		formatCents(subtotal), formatCents(shipping), formatCents(subtotal+shipping))
	if shipping == 0 {
		fmt.Println("free shipping applied")
	}
}

func (a *app) cmdOrders(args []string) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	ctx := context.Background()

	if len(args) == 1 {
		order, err := a.orders.Get(ctx, args[0])
		if err != nil {
			return describeErr(err)
		}
		fmt.Printf("order %s  status=%s  total=%s\n", order.ID, order.Status, formatCents(order.Total))
		for _, item := range order.Items {
			fmt.Printf("  %-24s x%d  %s\n", item.Name, item.Quantity, formatCents(int64(item.Quantity)*item.UnitPrice))
		}
		fmt.Printf("  ship to: %s, %s, %s %s, %s\n",
			order.Address.Street, order.Address.City, order.Address.Province,
			order.Address.PostalCode, order.Address.Country)
		return nil
	}

	list, err := a.orders.ListMine(ctx)
	if err != nil {
		return describeErr(err)
	}
	for _, order := range list {
		fmt.Printf("%s  %-10s %s  %s\n", order.ID, order.Status, formatCents(order.Total),
			order.CreatedAt.Format(time.DateTime))
	}
	return nil
}

func (a *app) cmdAddresses(args []string) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	ctx := context.Background()

	if len(args) == 0 {
		list, err := a.addresses.List(ctx)
		if err != nil {
			return describeErr(err)
		}
		for _, addr := range list {
			marker := " "
			if addr.Default {
				marker = "*"
			}
			fmt.Printf("%s %s  %s, %s, %s %s, %s\n", marker, addr.ID,
				addr.Street, addr.City, addr.Province, addr.PostalCode, addr.Country)
		}
		return nil
	}

	switch args[0] {
	case "add":
		if len(args) != 6 {
			return errors.New("usage: storefront addresses add STREET CITY PROVINCE POSTAL_CODE COUNTRY")
		}
		addr, err := a.addresses.Create(ctx, domain.Address{
			Street:     args[1],
			City:       args[2],
			Province:   args[3],
			PostalCode: args[4],
			Country:    args[5],
		})
		if err != nil {
			return describeErr(err)
		}
		fmt.Printf("address %s created\n", addr.ID)
		return nil

	case "rm":
		if len(args) != 2 {
			return errors.New("usage: storefront addresses rm ID")
		}
		if err := a.addresses.Delete(ctx, args[1]); err != nil {
			return describeErr(err)
		}
		fmt.Println("address deleted")
		return nil

	case "default":
		if len(args) != 2 {
			return errors.New("usage: storefront addresses default ID")
		}
		if err := a.addresses.SetDefault(ctx, args[1]); err != nil {
			return describeErr(err)
		}
		fmt.Println("default address set")
		return nil

	default:
		return errors.New("usage: storefront addresses [add|rm|default]")
	}
}

func (a *app) cmdNotifications(args []string) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	ctx := context.Background()

	if len(args) == 0 {
		list, err := a.notifications.List(ctx)
		if err != nil {
			return describeErr(err)
		}
		for _, n := range list {
			marker := "*"
			if n.Read {
				marker = " "
			}
			fmt.Printf("%s %s  [%s] %s\n", marker, n.ID, n.Priority, n.Subject)
		}
		return nil
	}

	switch args[0] {
	case "read":
		if len(args) != 2 {
			return errors.New("usage: storefront notifications read ID")
		}
		if err := a.notifications.MarkRead(ctx, args[1]); err != nil {
			return describeErr(err)
		}
		fmt.Println("marked read")
		return nil

	case "watch":
		return a.watchNotifications(ctx)

	default:
		return errors.New("usage: storefront notifications [read ID|watch]")
	}
}

// watchNotifications polls the unread count and reports changes until
// interrupted.
func (a *app) watchNotifications(ctx context.Context) error {
	badge := notifications.NewBadge(a.notifications, 15*time.Second, a.logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	badge.Start(ctx)
	defer badge.Stop()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	last := -1
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	fmt.Println("watching unread notifications, ctrl-c to stop")
	for {
		select {
		case <-stop:
			return nil
		case <-ticker.C:
			if count := badge.Count(); count != last {
				fmt.Printf("unread: %d\n", count)
				last = count
			}
		}
	}
}

func (a *app) cmdNotify(args []string) error {
	fs := flag.NewFlagSet("notify", flag.ContinueOnError)
	priority := fs.String("priority", "normal", "notification priority")
	notifType := fs.String("type", "system", "notification type")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) < 3 {
		return errors.New("usage: storefront notify [-priority P] [-type T] RECIPIENT_ID SUBJECT BODY")
	}

	if err := a.requireLogin(); err != nil {
		return err
	}
	if !a.session.IsAdmin() {
		return errors.New("notify requires an admin account")
	}

	err := a.notifications.SendComplete(context.Background(), notifications.SendRequest{
		RecipientID: rest[0],
		Subject:     rest[1],
		Body:        strings.Join(rest[2:], " "),
		Priority:    *priority,
		Type:        *notifType,
	})
	if err != nil {
		return describeErr(err)
	}
	fmt.Println("notification sent")
	return nil
}
