package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	subscriptions "github.com/xraph/subscriptions"
	"github.com/xraph/subscriptions/types"
)

func newMerchantCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merchant",
		Short: "Merchant rights, sale and treasury",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "transfer <collection-id> <to>",
			Short: "Hand merchant rights to another address",
			Args:  cobra.ExactArgs(2),
			RunE: a.collectionRunE(func(cmd *cobra.Command, c *subscriptions.Collection, caller types.Address, args []string) error {
				to, err := types.ParseAddress(args[1])
				if err != nil {
					return fmt.Errorf("invalid recipient: %w", err)
				}
				if err := c.TransferMerchantRights(cmd.Context(), caller, to); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "merchant is now %s\n", to.Hex())
				return nil
			}),
		},
		&cobra.Command{
			Use:   "price <collection-id> <price>",
			Short: "Put merchant rights up for sale; 0 closes the sale",
			Args:  cobra.ExactArgs(2),
			RunE: a.collectionRunE(func(cmd *cobra.Command, c *subscriptions.Collection, caller types.Address, args []string) error {
				price, err := parsePayment(args[1], c)
				if err != nil {
					return err
				}
				if err := c.SetMerchantPrice(cmd.Context(), caller, price); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "sale price set to %s\n", price)
				return nil
			}),
		},
		newMerchantBuyCmd(a),
		&cobra.Command{
			Use:   "disable-sale <collection-id>",
			Short: "Withdraw merchant rights from sale",
			Args:  cobra.ExactArgs(1),
			RunE: a.collectionRunE(func(cmd *cobra.Command, c *subscriptions.Collection, caller types.Address, _ []string) error {
				if err := c.DisableSale(cmd.Context(), caller); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "sale disabled")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "withdraw <collection-id>",
			Short: "Pay the collected treasury out to the merchant",
			Args:  cobra.ExactArgs(1),
			RunE: a.collectionRunE(func(cmd *cobra.Command, c *subscriptions.Collection, caller types.Address, _ []string) error {
				out, err := c.Withdraw(cmd.Context(), caller)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "withdrew %s\n", out)
				return nil
			}),
		},
	)
	return cmd
}

func newMerchantBuyCmd(a *app) *cobra.Command {
	var pay string

	cmd := &cobra.Command{
		Use:   "buy <collection-id>",
		Short: "Buy merchant rights for the sale price",
		Args:  cobra.ExactArgs(1),
		RunE: a.collectionRunE(func(cmd *cobra.Command, c *subscriptions.Collection, caller types.Address, _ []string) error {
			payment, err := parsePayment(pay, c)
			if err != nil {
				return err
			}
			if err := c.BuyMerchantRights(cmd.Context(), caller, payment); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "merchant is now %s\n", caller.Hex())
			return nil
		}),
	}
	cmd.Flags().StringVar(&pay, "pay", "", "payment, e.g. 100 or \"100 wei\"")
	_ = cmd.MarkFlagRequired("pay")
	return cmd
}

func newTiersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tiers",
		Short: "Add or disable tiers",
	}

	var prices, periods []int64
	add := &cobra.Command{
		Use:   "add <collection-id>",
		Short: "Append tiers to a collection",
		Args:  cobra.ExactArgs(1),
		RunE: a.collectionRunE(func(cmd *cobra.Command, c *subscriptions.Collection, caller types.Address, _ []string) error {
			added, err := c.AddTiers(cmd.Context(), caller, prices, periods)
			if err != nil {
				return err
			}
			for _, t := range added {
				fmt.Fprintf(cmd.OutOrStdout(), "added tier %d: %s every %s\n", t.Index, t.Price, t.Period)
			}
			return nil
		}),
	}
	add.Flags().Int64SliceVar(&prices, "price", nil, "tier price in the smallest currency unit (repeatable)")
	add.Flags().Int64SliceVar(&periods, "period", nil, "tier period in seconds (repeatable)")

	disable := &cobra.Command{
		Use:   "disable <collection-id> <tier>...",
		Short: "Close tiers to new subscriptions",
		Args:  cobra.MinimumNArgs(2),
		RunE: a.collectionRunE(func(cmd *cobra.Command, c *subscriptions.Collection, caller types.Address, args []string) error {
			indices := make([]int, 0, len(args)-1)
			for _, raw := range args[1:] {
				i, err := strconv.Atoi(raw)
				if err != nil {
					return fmt.Errorf("invalid tier %q", raw)
				}
				indices = append(indices, i)
			}
			if err := c.DisableTiers(cmd.Context(), caller, indices); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "disabled tiers %v\n", indices)
			return nil
		}),
	}

	cmd.AddCommand(add, disable)
	return cmd
}

// collectionRunE adapts a command that acts on the collection in args[0] on
// behalf of --as.
func (a *app) collectionRunE(fn func(cmd *cobra.Command, c *subscriptions.Collection, caller types.Address, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		caller, err := a.callerAddress()
		if err != nil {
			return err
		}
		return a.withCollection(cmd.Context(), args[0], func(c *subscriptions.Collection) error {
			return fn(cmd, c, caller, args)
		})
	}
}
