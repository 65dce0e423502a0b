package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marche241/storefront-gateway/config"
	"github.com/marche241/storefront-gateway/internal/app/service"
	apperrors "github.com/marche241/storefront-gateway/internal/errors"
	"github.com/marche241/storefront-gateway/internal/sessionstore"
	"github.com/marche241/storefront-gateway/pkg/cart"
	"github.com/marche241/storefront-gateway/pkg/marche"
	"github.com/marche241/storefront-gateway/pkg/session"
)

// cli holds what the commands share. Tests fill carts and export directly;
// otherwise they are built from the environment on first use.
type cli struct {
	carts      service.CartService
	export     service.OrderExportService
	closeStore func() error

	visitor string
	shopID  uint
}

func (a *cli) setup(ctx context.Context) error {
	if a.carts != nil {
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	store, closeStore, err := sessionstore.Open(ctx, cfg)
	if err != nil {
		return err
	}
	if cfg.Session.Store == "memory" {
		fmt.Fprintln(os.Stderr, "warning: SESSION_STORE=memory, the cart session ends with this command")
	}

	api, err := marche.NewClient(marche.Config{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		UserAgent: cfg.API.UserAgent,
	})
	if err != nil {
		_ = closeStore()
		return err
	}

	a.carts = service.NewCartService(cart.NewSyncer(api), session.NewManager(store))
	a.export = service.NewOrderExportService(service.NewOrderService(api, a.carts))
	a.closeStore = closeStore
	return nil
}

func (a *cli) teardown() {
	if a.closeStore != nil {
		_ = a.closeStore()
	}
}

func newRootCmd(a *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "cartctl",
		Short:         "Inspect and edit a Marché241 visitor cart",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&a.visitor, "visitor", "cartctl", "visitor id owning the cart sessions")
	root.PersistentFlags().UintVar(&a.shopID, "shop", 0, "shop id (0 is the all-shops cart)")

	root.AddCommand(
		a.getCmd(),
		a.addCmd(),
		a.updateCmd(),
		a.removeCmd(),
		a.clearCmd(),
		a.sessionCmd(),
		a.resetCmd(),
		a.exportCmd(),
	)
	return root
}

func (a *cli) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Fetch the cart and print it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := a.carts.Cart(a.visitor).FetchCart(cmd.Context(), a.shopID)
			if err != nil {
				return userError(err)
			}
			return printSnapshot(cmd.OutOrStdout(), snap)
		},
	}
}

func (a *cli) addCmd() *cobra.Command {
	var variants []string
	cmd := &cobra.Command{
		Use:   "add <product-id> <quantity>",
		Short: "Add a product to the cart",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			productID, err := parseID(args[0])
			if err != nil {
				return err
			}
			quantity, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid quantity %q", args[1])
			}
			selected, err := parseVariants(variants)
			if err != nil {
				return err
			}

			ack, err := a.carts.Cart(a.visitor).AddItem(cmd.Context(), a.shopID, productID, quantity, selected)
			if err != nil {
				return userError(err)
			}
			return printAck(cmd.OutOrStdout(), ack)
		},
	}
	cmd.Flags().StringArrayVar(&variants, "variant", nil, "variant choice as name=value, repeatable")
	return cmd
}

func (a *cli) updateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update <item-id> <quantity>",
		Short: "Change the quantity of a cart line",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			itemID, err := parseID(args[0])
			if err != nil {
				return err
			}
			quantity, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid quantity %q", args[1])
			}

			ack, err := a.carts.Cart(a.visitor).UpdateQuantity(cmd.Context(), a.shopID, itemID, quantity)
			if err != nil {
				return userError(err)
			}
			return printAck(cmd.OutOrStdout(), ack)
		},
	}
}

func (a *cli) removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <item-id>",
		Short: "Remove a cart line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			itemID, err := parseID(args[0])
			if err != nil {
				return err
			}
			ack, err := a.carts.Cart(a.visitor).RemoveItem(cmd.Context(), a.shopID, itemID)
			if err != nil {
				return userError(err)
			}
			return printAck(cmd.OutOrStdout(), ack)
		},
	}
}

func (a *cli) clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ack, err := a.carts.Cart(a.visitor).ClearCart(cmd.Context(), a.shopID)
			if err != nil {
				return userError(err)
			}
			return printAck(cmd.OutOrStdout(), ack)
		},
	}
}

func (a *cli) sessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Show whether the cart session is valid and when it expires",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(cmd.OutOrStdout(), a.carts.SessionStatus(cmd.Context(), a.visitor, a.shopID))
		},
	}
}

func (a *cli) resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Abandon the cart session; the next command starts a new one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.carts.ResetSession(cmd.Context(), a.visitor, a.shopID); err != nil {
				return userError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Nouvelle session de panier démarrée")
			return nil
		},
	}
}

func (a *cli) exportCmd() *cobra.Command {
	var token, status, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the shop's orders to an Excel file (seller token required)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.shopID == 0 {
				return fmt.Errorf("--shop is required")
			}
			if token == "" {
				token = os.Getenv("MARCHE241_TOKEN")
			}
			if token == "" {
				return fmt.Errorf("--token or MARCHE241_TOKEN is required")
			}

			ctx := marche.WithToken(cmd.Context(), token)
			buf, filename, err := a.export.Export(ctx, a.shopID, status)
			if err != nil {
				return userError(err)
			}
			if out == "" {
				out = filename
			}
			if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d octets)\n", out, buf.Len())
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "seller token")
	cmd.Flags().StringVar(&status, "statut", "", "only orders with this status")
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (defaults to the generated name)")
	return cmd
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return uint(id), nil
}

func parseVariants(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	variants := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid variant %q, want name=value", pair)
		}
		variants[name] = value
	}
	return variants, nil
}

// userError leads with the message a shopper would see, then the cause
func userError(err error) error {
	return fmt.Errorf("%s (%w)", apperrors.UserMessage(err), err)
}

func printAck(w io.Writer, ack *cart.Ack) error {
	fmt.Fprintln(w, ack.Message)
	if ack.Snapshot == nil {
		fmt.Fprintln(w, "Panier non relu, relancez `cartctl get`")
		return nil
	}
	return printSnapshot(w, ack.Snapshot)
}

func printSnapshot(w io.Writer, snap *cart.Snapshot) error {
	for _, notice := range snap.Notices {
		fmt.Fprintln(w, "! "+notice)
	}
	return printJSON(w, snap)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
