// Package cli wires the storefront commands. Cart commands route to the
// account cart when a session record exists and to the on-device cart
// otherwise; authenticated commands fold saved items in first.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/angelmondragon/packfinderz-storefront/internal/cart"
	"github.com/angelmondragon/packfinderz-storefront/internal/catalog"
	"github.com/angelmondragon/packfinderz-storefront/internal/localcart"
	"github.com/angelmondragon/packfinderz-storefront/internal/merge"
	"github.com/angelmondragon/packfinderz-storefront/internal/session"
	"github.com/angelmondragon/packfinderz-storefront/pkg/logger"
)

// CLI holds the wired services behind the command tree.
type CLI struct {
	logg    *logger.Logger
	local   localcart.Service
	cart    cart.Service
	catalog catalog.Service
	session session.Service
	guard   *merge.Guard

	out          io.Writer
	readPassword func(prompt string) (string, error)
}

// Params bundles the dependencies required to build the CLI.
type Params struct {
	Logger  *logger.Logger
	Local   localcart.Service
	Cart    cart.Service
	Catalog catalog.Service
	Session session.Service
	Guard   *merge.Guard

	// Out defaults to stdout. ReadPassword defaults to a hidden terminal
	// prompt; tests inject their own.
	Out          io.Writer
	ReadPassword func(prompt string) (string, error)
}

func New(params Params) (*CLI, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if params.Local == nil {
		return nil, fmt.Errorf("local cart service is required")
	}
	if params.Cart == nil {
		return nil, fmt.Errorf("cart service is required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog service is required")
	}
	if params.Session == nil {
		return nil, fmt.Errorf("session service is required")
	}
	if params.Guard == nil {
		return nil, fmt.Errorf("merge guard is required")
	}

	out := params.Out
	if out == nil {
		out = os.Stdout
	}
	readPassword := params.ReadPassword
	if readPassword == nil {
		readPassword = promptPassword
	}

	return &CLI{
		logg:         params.Logger,
		local:        params.Local,
		cart:         params.Cart,
		catalog:      params.Catalog,
		session:      params.Session,
		guard:        params.Guard,
		out:          out,
		readPassword: readPassword,
	}, nil
}

// Root builds the storefront command tree.
func (c *CLI) Root() *cobra.Command {
	root := &cobra.Command{
		Use:          "storefront",
		Short:        "Browse packfinderz products and manage your cart from the terminal",
		SilenceUsage: true,
	}
	root.AddCommand(
		c.newLoginCmd(),
		c.newLogoutCmd(),
		c.newStatusCmd(),
		c.newCartCmd(),
		c.newProductsCmd(),
	)
	return root
}

func (c *CLI) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

// runMergeGuard folds saved items into the account cart. Failures warn and
// leave the items on this device; the surrounding command keeps going.
func (c *CLI) runMergeGuard(ctx context.Context) {
	result, err := c.guard.Run(ctx)
	if err != nil {
		c.logg.Warn(ctx, "cart merge failed, local items kept")
		c.printf("Your saved items could not be moved to your account cart yet; they remain saved on this device.\n")
		return
	}
	if result.Status == merge.StatusMerged && result.ItemsMerged > 0 {
		c.printf("%d item(s) moved to your account cart.\n", result.ItemsMerged)
	}
}

func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(raw), nil
}

var errNotSignedIn = errors.New("you are not signed in, run 'storefront login' first")
