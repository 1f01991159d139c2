package cli

import (
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/angelmondragon/packfinderz-storefront/internal/cart"
	"github.com/angelmondragon/packfinderz-storefront/internal/catalog"
	"github.com/angelmondragon/packfinderz-storefront/internal/localcart"
	"github.com/angelmondragon/packfinderz-storefront/internal/session"
	pkgerrors "github.com/angelmondragon/packfinderz-storefront/pkg/errors"
	"github.com/angelmondragon/packfinderz-storefront/pkg/types"
)

func (c *CLI) table() *tabwriter.Writer {
	return tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
}

func (c *CLI) renderServerCart(serverCart *cart.Cart) {
	w := c.table()
	fmt.Fprintln(w, "ITEM\tNAME\tQTY\tUNIT\tTOTAL")
	for _, item := range serverCart.Items {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			item.ID,
			item.Name,
			item.Quantity,
			types.FormatCents(item.UnitPriceCents),
			types.FormatCents(item.LineTotalCents),
		)
	}
	w.Flush()
	c.printf("Subtotal: %s\n", types.FormatCents(serverCart.SubtotalCents))
}

func (c *CLI) renderLocalCart(localCart *localcart.Cart) {
	w := c.table()
	fmt.Fprintln(w, "PRODUCT\tNAME\tQTY\tUNIT\tTOTAL")
	for _, item := range localCart.Items {
		unit := item.Product.UnitPriceCents()
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n",
			item.ProductID,
			item.Product.Name,
			item.Quantity,
			types.FormatCents(unit),
			types.FormatCents(unit*int64(item.Quantity)),
		)
	}
	w.Flush()
	c.printf("Subtotal: %s\n", types.FormatCents(localCart.SubtotalCents()))
}

func (c *CLI) renderProducts(page *catalog.Page) {
	w := c.table()
	fmt.Fprintln(w, "ID\tNAME\tPRICE")
	for _, product := range page.Products {
		fmt.Fprintf(w, "%d\t%s\t%s\n", product.ID, product.Name, formatPrice(product))
	}
	w.Flush()
	c.printf("Page %d of %d product(s).\n", page.Page, page.Total)
}

func parseID(raw, label string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%q is not a valid %s", raw, label)
	}
	return id, nil
}

// friendly turns client errors into messages fit for command output. Server
// messages pass through; codes without one fall back to their public message.
func friendly(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, session.ErrNotAuthenticated) {
		return errNotSignedIn
	}

	typed := pkgerrors.As(err)
	if typed == nil {
		return err
	}
	message := typed.Message()
	if message == "" {
		message = pkgerrors.MetadataFor(typed.Code()).PublicMessage
	}
	return errors.New(message)
}
