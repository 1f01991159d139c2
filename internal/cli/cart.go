package cli

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newCartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Manage your cart",
		Long: "Manage your cart.\n\n" +
			"Signed out, items live on this device and update/remove take the product id.\n" +
			"Signed in, commands work on your account cart and update/remove take the\n" +
			"item id shown by 'cart list'.",
	}
	cmd.AddCommand(
		c.newCartAddCmd(),
		c.newCartListCmd(),
		c.newCartUpdateCmd(),
		c.newCartRemoveCmd(),
		c.newCartClearCmd(),
		c.newCartCountCmd(),
	)
	return cmd
}

func (c *CLI) newCartAddCmd() *cobra.Command {
	var qty int

	cmd := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add a product to your cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			productID, err := parseID(args[0], "product id")
			if err != nil {
				return err
			}

			if c.session.IsAuthenticated(ctx) {
				c.runMergeGuard(ctx)
				serverCart, err := c.cart.Add(ctx, productID, qty)
				if err != nil {
					return friendly(err)
				}
				c.printf("Added to your account cart (%d item(s)).\n", serverCart.ItemCount())
				return nil
			}

			// Signed out: capture the catalog snapshot so the cart renders
			// without further lookups.
			product, err := c.catalog.Get(ctx, productID)
			if err != nil {
				return friendly(err)
			}
			if err := c.local.Add(ctx, *product, qty); err != nil {
				return friendly(err)
			}
			count, err := c.local.ItemCount(ctx)
			if err != nil {
				return friendly(err)
			}
			c.printf("Saved %s to the cart on this device (%d item(s)).\n", product.Name, count)
			return nil
		},
	}

	cmd.Flags().IntVar(&qty, "qty", 1, "quantity to add")
	return cmd
}

func (c *CLI) newCartListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show your cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if c.session.IsAuthenticated(ctx) {
				c.runMergeGuard(ctx)
				serverCart, err := c.cart.Fetch(ctx)
				if err != nil {
					return friendly(err)
				}
				if serverCart == nil || len(serverCart.Items) == 0 {
					c.printf("Your account cart is empty.\n")
					return nil
				}
				c.renderServerCart(serverCart)
				return nil
			}

			localCart, err := c.local.Get(ctx)
			if err != nil {
				return friendly(err)
			}
			if len(localCart.Items) == 0 {
				c.printf("The cart on this device is empty.\n")
				return nil
			}
			c.renderLocalCart(localCart)
			return nil
		},
	}
}

func (c *CLI) newCartUpdateCmd() *cobra.Command {
	var qty int

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a line's quantity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if c.session.IsAuthenticated(ctx) {
				c.runMergeGuard(ctx)
				serverCart, err := c.cart.UpdateItem(ctx, args[0], qty)
				if err != nil {
					return friendly(err)
				}
				c.printf("Updated. Your account cart has %d item(s).\n", serverCart.ItemCount())
				return nil
			}

			productID, err := parseID(args[0], "product id")
			if err != nil {
				return err
			}
			if err := c.local.UpdateQuantity(ctx, productID, qty); err != nil {
				return friendly(err)
			}
			count, err := c.local.ItemCount(ctx)
			if err != nil {
				return friendly(err)
			}
			c.printf("Updated. The cart on this device has %d item(s).\n", count)
			return nil
		},
	}

	cmd.Flags().IntVar(&qty, "qty", 1, "new quantity")
	_ = cmd.MarkFlagRequired("qty")
	return cmd
}

func (c *CLI) newCartRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a line from your cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if c.session.IsAuthenticated(ctx) {
				c.runMergeGuard(ctx)
				serverCart, err := c.cart.RemoveItem(ctx, args[0])
				if err != nil {
					return friendly(err)
				}
				c.printf("Removed. Your account cart has %d item(s).\n", serverCart.ItemCount())
				return nil
			}

			productID, err := parseID(args[0], "product id")
			if err != nil {
				return err
			}
			if err := c.local.Remove(ctx, productID); err != nil {
				return friendly(err)
			}
			count, err := c.local.ItemCount(ctx)
			if err != nil {
				return friendly(err)
			}
			c.printf("Removed. The cart on this device has %d item(s).\n", count)
			return nil
		},
	}
}

func (c *CLI) newCartClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty your cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if c.session.IsAuthenticated(ctx) {
				// Merge first so pending local items cannot reappear in the
				// account cart after it was emptied.
				c.runMergeGuard(ctx)
				if _, err := c.cart.Clear(ctx); err != nil {
					return friendly(err)
				}
				c.printf("Your account cart is now empty.\n")
				return nil
			}

			if err := c.local.Clear(ctx); err != nil {
				return friendly(err)
			}
			c.printf("The cart on this device is now empty.\n")
			return nil
		},
	}
}

func (c *CLI) newCartCountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Show how many items are in your cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if c.session.IsAuthenticated(ctx) {
				c.runMergeGuard(ctx)
				count, err := c.cart.Count(ctx)
				if err != nil {
					return friendly(err)
				}
				c.printf("%d\n", count)
				return nil
			}

			count, err := c.local.ItemCount(ctx)
			if err != nil {
				return friendly(err)
			}
			c.printf("%d\n", count)
			return nil
		},
	}
}
