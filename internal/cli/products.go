package cli

import (
	"github.com/spf13/cobra"

	"github.com/angelmondragon/packfinderz-storefront/internal/catalog"
	"github.com/angelmondragon/packfinderz-storefront/pkg/types"
)

func (c *CLI) newProductsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Browse the catalog",
	}
	cmd.AddCommand(c.newProductsListCmd(), c.newProductsShowCmd())
	return cmd
}

func (c *CLI) newProductsListCmd() *cobra.Command {
	var page, perPage int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List products",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.catalog.List(cmd.Context(), catalog.ListParams{Page: page, PerPage: perPage})
			if err != nil {
				return friendly(err)
			}
			if len(result.Products) == 0 {
				c.printf("No products on page %d.\n", result.Page)
				return nil
			}
			c.renderProducts(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&perPage, "per-page", catalog.DefaultPerPage, "products per page")
	return cmd
}

func (c *CLI) newProductsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <product-id>",
		Short: "Show one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			productID, err := parseID(args[0], "product id")
			if err != nil {
				return err
			}

			product, err := c.catalog.Get(cmd.Context(), productID)
			if err != nil {
				return friendly(err)
			}

			c.printf("%s (#%d)\n", product.Name, product.ID)
			c.printf("Price: %s\n", formatPrice(*product))
			if product.Description != "" {
				c.printf("%s\n", product.Description)
			}
			return nil
		},
	}
}

// formatPrice renders the effective price, noting the original when a
// discount applies.
func formatPrice(product types.Product) string {
	price := types.FormatCents(product.UnitPriceCents())
	if product.DiscountedPriceCents != nil && product.OriginalPriceCents != nil {
		return price + " (was " + types.FormatCents(*product.OriginalPriceCents) + ")"
	}
	return price
}
