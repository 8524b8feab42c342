package main

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tiendashop/storefront-go/internal/checkout"
	"github.com/tiendashop/storefront-go/internal/domain"
)

// cmdShop opens the interactive browse and cart screen.
func (a *app) cmdShop(_ []string) error {
	p := tea.NewProgram(shopModel{app: a, status: "loading catalog..."})
	_, err := p.Run()
	return err
}

type shopModel struct {
	app *app

	products []domain.Product
	cursor   int
	status   string
}

type catalogLoaded struct {
	products []domain.Product
	err      error
}

func (m shopModel) Init() tea.Cmd {
	return func() tea.Msg {
		products, err := m.app.catalog.List(context.Background(), "")
		return catalogLoaded{products: products, err: err}
	}
}

func (m shopModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case catalogLoaded:
		if msg.err != nil {
			m.status = "failed to load catalog: " + msg.err.Error()
			return m, nil
		}
		m.products = msg.products
		m.status = fmt.Sprintf("%d products", len(m.products))

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "up":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down":
			if m.cursor < len(m.products)-1 {
				m.cursor++
			}
		case "enter", "a", "+":
			if product, ok := m.selected(); ok {
				m.app.cart.Add(product, 1)
				m.status = m.persistCart("added " + product.Name)
			}
		case "-":
			if product, ok := m.selected(); ok {
				m.removeOne(product)
				m.status = m.persistCart("removed one " + product.Name)
			}
		case "x":
			if product, ok := m.selected(); ok {
				m.app.cart.Remove(product.ID)
				m.status = m.persistCart("dropped " + product.Name)
			}
		case "c":
			m.app.cart.Clear()
			m.status = m.persistCart("cart cleared")
		}
	}
	return m, nil
}

func (m shopModel) selected() (domain.Product, bool) {
	if m.cursor < 0 || m.cursor >= len(m.products) {
		return domain.Product{}, false
	}
	return m.products[m.cursor], true
}

func (m shopModel) removeOne(product domain.Product) {
	for _, line := range m.app.cart.Lines() {
		if line.Product.ID == product.ID {
			m.app.cart.UpdateQuantity(product.ID, line.Quantity-1)
			return
		}
	}
}

func (m shopModel) persistCart(status string) string {
	if err := m.app.saveCart(); err != nil {
		return "failed to save cart: " + err.Error()
	}
	return status
}

func (m shopModel) View() string {
	b := &strings.Builder{}
	fmt.Fprintln(b, "storefront")
	fmt.Fprintln(b, "")

	inCart := map[string]int{}
	for _, line := range m.app.cart.Lines() {
		inCart[line.Product.ID] = line.Quantity
	}

	for i, p := range m.products {
		marker := " "
		if i == m.cursor {
			marker = ">"
		}
		price := formatCents(p.EffectivePrice())
		sale := ""
		if p.SalePrice != nil {
			sale = " SALE"
		}
		qty := ""
		if n := inCart[p.ID]; n > 0 {
			qty = fmt.Sprintf("  [x%d]", n)
		}
		fmt.Fprintf(b, " %s %-24s %s%s%s\n", marker, p.Name, price, sale, qty)
	}

	fmt.Fprintln(b, "")
	lines := m.app.cart.Lines()
	if len(lines) == 0 {
		fmt.Fprintln(b, "Cart: empty")
	} else {
		subtotal := m.app.cart.Subtotal()
		shipping := checkout.ShippingCost(lines, m.app.promoCategory)
		fmt.Fprintf(b, "Cart: %d items, subtotal %s, shipping %s, total %s\n",
			m.app.cart.Count(), formatCents(subtotal), formatCents(shipping),
			formatCents(subtotal+shipping))
	}

	fmt.Fprintf(b, "Status: %s\n", m.status)
	fmt.Fprintln(b, "\nControls: up/down move, enter/a add, - remove one, x drop line, c clear, q quit")
	fmt.Fprintln(b, "Run `storefront checkout` to place the order.")
	return b.String()
}
