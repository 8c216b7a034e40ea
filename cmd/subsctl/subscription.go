package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	subscriptions "github.com/xraph/subscriptions"
	"github.com/xraph/subscriptions/types"
)

func newMintCmd(a *app) *cobra.Command {
	var (
		pay string
		to  string
	)

	cmd := &cobra.Command{
		Use:   "mint <collection-id> <tier>",
		Short: "Start a subscription by paying the tier price",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := a.callerAddress()
			if err != nil {
				return err
			}
			tier, err := parseTier(args[1])
			if err != nil {
				return err
			}
			recipient := caller
			if to != "" {
				if recipient, err = types.ParseAddress(to); err != nil {
					return fmt.Errorf("invalid --to: %w", err)
				}
			}

			return a.withCollection(cmd.Context(), args[0], func(c *subscriptions.Collection) error {
				payment, err := parsePayment(pay, c)
				if err != nil {
					return err
				}
				e, err := c.Mint(cmd.Context(), caller, recipient, tier, payment)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "subscribed %s to tier %d until %s\n",
					e.Holder.Hex(), e.Tier, e.Deadline.Format(time.RFC3339))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&pay, "pay", "", "payment, e.g. 10 or \"10 wei\"")
	cmd.Flags().StringVar(&to, "to", "", "subscriber address (defaults to --as)")
	_ = cmd.MarkFlagRequired("pay")
	return cmd
}

func newRenewCmd(a *app) *cobra.Command {
	var pay string

	cmd := &cobra.Command{
		Use:   "renew <collection-id> <tier>",
		Short: "Extend your subscription by one period",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := a.callerAddress()
			if err != nil {
				return err
			}
			tier, err := parseTier(args[1])
			if err != nil {
				return err
			}

			return a.withCollection(cmd.Context(), args[0], func(c *subscriptions.Collection) error {
				payment, err := parsePayment(pay, c)
				if err != nil {
					return err
				}
				e, err := c.RenewSubscription(cmd.Context(), caller, tier, payment)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "renewed tier %d until %s\n", e.Tier, e.Deadline.Format(time.RFC3339))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&pay, "pay", "", "payment, e.g. 10 or \"10 wei\"")
	_ = cmd.MarkFlagRequired("pay")
	return cmd
}

func newEndCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "end <collection-id> <tier> <holder>",
		Short: "End a lapsed subscription and free its slot",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := a.callerAddress()
			if err != nil {
				return err
			}
			tier, err := parseTier(args[1])
			if err != nil {
				return err
			}
			holder, err := types.ParseAddress(args[2])
			if err != nil {
				return fmt.Errorf("invalid holder: %w", err)
			}

			return a.withCollection(cmd.Context(), args[0], func(c *subscriptions.Collection) error {
				if err := c.EndSubscription(cmd.Context(), caller, tier, holder); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ended tier %d for %s\n", tier, holder.Hex())
				return nil
			})
		},
	}
}

func newApproveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "approve <collection-id> <tier> <operator>",
		Short: "Allow operator to transfer your subscription once",
		Long:  "Allow operator to transfer your subscription once. Approving 0x0000000000000000000000000000000000000000 revokes the approval.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := a.callerAddress()
			if err != nil {
				return err
			}
			tier, err := parseTier(args[1])
			if err != nil {
				return err
			}
			operator, err := types.ParseAddress(args[2])
			if err != nil {
				return fmt.Errorf("invalid operator: %w", err)
			}

			return a.withCollection(cmd.Context(), args[0], func(c *subscriptions.Collection) error {
				if err := c.ApproveSubscriptionTransfer(cmd.Context(), caller, operator, tier); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "approved %s for tier %d\n", operator.Hex(), tier)
				return nil
			})
		},
	}
}

func newTransferCmd(a *app) *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "transfer <collection-id> <tier> <to>",
		Short: "Transfer a subscription to another address",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := a.callerAddress()
			if err != nil {
				return err
			}
			tier, err := parseTier(args[1])
			if err != nil {
				return err
			}
			to, err := types.ParseAddress(args[2])
			if err != nil {
				return fmt.Errorf("invalid recipient: %w", err)
			}
			owner := caller
			if from != "" {
				if owner, err = types.ParseAddress(from); err != nil {
					return fmt.Errorf("invalid --from: %w", err)
				}
			}

			return a.withCollection(cmd.Context(), args[0], func(c *subscriptions.Collection) error {
				if err := c.TransferSubscriptionToken(cmd.Context(), caller, to, tier, owner); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "transferred tier %d from %s to %s\n", tier, owner.Hex(), to.Hex())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "current holder when acting as approved operator (defaults to --as)")
	return cmd
}

func parseTier(s string) (int, error) {
	tier, err := strconv.Atoi(s)
	if err != nil || tier < 0 {
		return 0, fmt.Errorf("invalid tier %q", s)
	}
	return tier, nil
}

// parsePayment reads a --pay value. A bare amount is in the collection's
// currency.
func parsePayment(s string, c *subscriptions.Collection) (types.Money, error) {
	m, err := types.ParseMoney(s, c.Snapshot().Currency)
	if err != nil {
		return types.Money{}, fmt.Errorf("invalid --pay: %w", err)
	}
	return m, nil
}
