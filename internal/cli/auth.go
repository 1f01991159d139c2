package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/packfinderz-storefront/internal/session"
	"github.com/angelmondragon/packfinderz-storefront/pkg/config"
)

func (c *CLI) newLoginCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to your storefront account",
		Long: fmt.Sprintf(
			"Sign in to your storefront account.\n\nThe password is read from %s when set, otherwise prompted without echo.",
			config.EnvPassword,
		),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			password := os.Getenv(config.EnvPassword)
			if password == "" {
				value, err := c.readPassword("Password: ")
				if err != nil {
					return err
				}
				password = value
			}

			record, err := c.session.Login(ctx, session.LoginInput{Email: email, Password: password})
			if err != nil {
				return friendly(err)
			}
			c.printf("Signed in as %s.\n", record.Email)

			c.runMergeGuard(ctx)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (c *CLI) newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.session.Logout(cmd.Context()); err != nil {
				return friendly(err)
			}
			c.printf("Signed out.\n")
			return nil
		},
	}
}

func (c *CLI) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show who is signed in and where your cart lives",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			record, err := c.session.Current(ctx)
			if errors.Is(err, session.ErrNotAuthenticated) {
				count, countErr := c.local.ItemCount(ctx)
				if countErr != nil {
					return friendly(countErr)
				}
				c.printf("Not signed in.\n")
				c.printf("Cart on this device: %d item(s).\n", count)
				return nil
			}
			if err != nil {
				return friendly(err)
			}

			if record.Name != "" {
				c.printf("Signed in as %s (%s).\n", record.Name, record.Email)
			} else {
				c.printf("Signed in as %s.\n", record.Email)
			}
			c.printf("Signed in since %s.\n", record.LoggedInAt.Local().Format(time.RFC1123))
			if expiry, ok := c.session.TokenExpiry(); ok {
				c.printf("Access token expires %s.\n", expiry.Local().Format(time.RFC1123))
			}

			count, err := c.cart.Count(ctx)
			if err != nil {
				return friendly(err)
			}
			c.printf("Account cart: %d item(s).\n", count)
			return nil
		},
	}
}
