package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/matheusmosca/pos-terminal/pos/cart"
)

const helpText = `Commands:
  search <text>      filter the catalog by name or SKU
  list               show the filtered catalog
  add <product-id>   add one unit of a product to the cart
  remove <line#>     remove a cart line (numbers as shown by "cart")
  customer <name>    set the customer name
  pay <method>       set the payment method
  total              show the cart total
  cart               show the cart
  clear              empty the cart
  checkout           submit the sale
  help               show this help
  quit               exit`

// Terminal é a interface de linha de comando do caixa sobre uma cart.Session
type Terminal struct {
	session *cart.Session
	out     io.Writer

	mu       sync.Mutex
	lastView string
}

// NewTerminal cria uma nova instância de Terminal
func NewTerminal(session *cart.Session, out io.Writer) *Terminal {
	return &Terminal{session: session, out: out}
}

// Run lê comandos até quit, EOF ou cancelamento do contexto
func (t *Terminal) Run(ctx context.Context, in io.Reader) error {
	fmt.Fprintln(t.out, `Type "help" for commands.`)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(t.out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}
		if quit := t.Execute(ctx, scanner.Text()); quit {
			return nil
		}
	}
}

// Execute interpreta uma linha; retorna true quando o caixa pede para sair
func (t *Terminal) Execute(ctx context.Context, line string) bool {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	if cmd != "" && t.session.State().ShowConfirm {
		t.session.DismissConfirm()
	}

	switch strings.ToLower(cmd) {
	case "":
	case "search":
		t.session.SetQuery(arg)
		t.printProducts(t.session.Filtered())
	case "list":
		t.printProducts(t.session.Filtered())
	case "add":
		if arg == "" {
			fmt.Fprintln(t.out, "usage: add <product-id>")
			return false
		}
		if !t.session.AddByID(arg) {
			fmt.Fprintf(t.out, "product %q not found\n", arg)
		}
	case "remove":
		n, err := strconv.Atoi(arg)
		if err != nil {
			fmt.Fprintln(t.out, "usage: remove <line#>")
			return false
		}
		t.session.Remove(n - 1)
	case "customer":
		t.session.SetCustomer(arg)
	case "pay":
		if arg == "" {
			fmt.Fprintln(t.out, "usage: pay <method>")
			return false
		}
		t.session.SetPaymentMethod(arg)
	case "total":
		fmt.Fprintf(t.out, "Total: %s\n", t.session.Total().StringFixed(2))
	case "cart":
		t.printCart(t.session.State())
	case "clear":
		t.session.ClearCart()
	case "checkout":
		err := t.session.Checkout(ctx)
		if errors.Is(err, cart.ErrCheckoutInProgress) {
			fmt.Fprintln(t.out, "checkout already in progress")
		}
	case "help":
		fmt.Fprintln(t.out, helpText)
	case "quit", "exit":
		return true
	default:
		fmt.Fprintf(t.out, "unknown command %q, type \"help\"\n", cmd)
	}
	return false
}

// Render é o listener de mudanças da sessão; só imprime quando o resumo muda
func (t *Terminal) Render(st cart.State) {
	view := summary(st)

	t.mu.Lock()
	defer t.mu.Unlock()
	if view == t.lastView {
		return
	}
	t.lastView = view
	fmt.Fprintln(t.out, view)
}

func summary(st cart.State) string {
	switch {
	case st.Processing:
		return "⏳ Processing sale..."
	case st.ShowConfirm:
		return fmt.Sprintf("✅ Sale completed | Receipt: %s", st.LastReceiptID)
	}

	units := 0
	for _, l := range st.Lines {
		units += l.Qty
	}
	return fmt.Sprintf("🛒 %d line(s), %d unit(s) | Total: %s | Customer: %q | Payment: %s",
		len(st.Lines), units, st.Total().StringFixed(2), st.Customer, st.PaymentMethod)
}

func (t *Terminal) printProducts(products []cart.Product) {
	if len(products) == 0 {
		fmt.Fprintln(t.out, "no products")
		return
	}
	for _, p := range products {
		fmt.Fprintf(t.out, "%-6s %-28s %10.2f  stock %d\n", p.ID, p.Name, p.Price, p.Stock)
	}
}

func (t *Terminal) printCart(st cart.State) {
	if len(st.Lines) == 0 {
		fmt.Fprintln(t.out, "cart is empty")
		return
	}
	for i, l := range st.Lines {
		fmt.Fprintf(t.out, "%2d. %-28s %4d x %8.2f\n", i+1, l.Name, l.Qty, l.Price)
	}
	fmt.Fprintf(t.out, "Total: %s\n", st.Total().StringFixed(2))
}
