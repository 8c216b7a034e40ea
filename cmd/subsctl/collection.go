package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	subscriptions "github.com/xraph/subscriptions"
	"github.com/xraph/subscriptions/collection"
	"github.com/xraph/subscriptions/id"
	"github.com/xraph/subscriptions/types"
)

func newCollectionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "collection",
		Aliases: []string{"col"},
		Short:   "Create, inspect and delete collections",
	}
	cmd.AddCommand(
		newCollectionCreateCmd(a),
		newCollectionListCmd(a),
		newCollectionShowCmd(a),
		newCollectionDeleteCmd(a),
	)
	return cmd
}

func newCollectionCreateCmd(a *app) *cobra.Command {
	var (
		p        subscriptions.CreateParams
		merchant string
		prices   []int64
		periods  []int64
		start    string
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new collection",
		Example: `  # Two tiers: 10 wei per 30 days and 25 wei per 90 days, 100 slots each
  subsctl collection create gym --merchant 0x00..ee --price 10 --period 2592000 \
      --price 25 --period 7776000 --capacity 100`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p.Name = args[0]
			p.Prices = prices
			p.Periods = periods

			if merchant == "" {
				caller, err := a.callerAddress()
				if err != nil {
					return fmt.Errorf("--merchant or --as is required")
				}
				p.Merchant = caller
			} else {
				addr, err := types.ParseAddress(merchant)
				if err != nil {
					return fmt.Errorf("invalid --merchant: %w", err)
				}
				p.Merchant = addr
			}

			if start != "" {
				ts, err := parseTimestamp(start)
				if err != nil {
					return fmt.Errorf("invalid --start: %w", err)
				}
				p.StartTimestamp = ts
			}

			return a.withFactory(cmd.Context(), func(f *subscriptions.Factory) error {
				c, err := f.CreateCollection(cmd.Context(), p)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), c.ID())
				return nil
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&merchant, "merchant", "", "merchant address (defaults to --as)")
	flags.Int64SliceVar(&prices, "price", nil, "tier price in the smallest currency unit (repeatable)")
	flags.Int64SliceVar(&periods, "period", nil, "tier period in seconds (repeatable)")
	flags.Int64Var(&p.Capacity, "capacity", collection.Unlimited, "active subscriptions allowed per tier, -1 for unlimited")
	flags.StringVar(&p.MetadataURI, "uri", "", "metadata URI")
	flags.StringVar(&p.Description, "description", "", "free-form description")
	flags.StringVar(&p.Currency, "currency", "", "currency (defaults to the configured currency)")
	flags.StringVar(&start, "start", "", "start time as unix seconds or RFC 3339")
	return cmd
}

func newCollectionListCmd(a *app) *cobra.Command {
	var merchant string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var filter types.Address
			if merchant != "" {
				addr, err := types.ParseAddress(merchant)
				if err != nil {
					return fmt.Errorf("invalid --merchant: %w", err)
				}
				filter = addr
			}

			return a.withFactory(cmd.Context(), func(f *subscriptions.Factory) error {
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tMERCHANT\tTIERS\tACTIVE")
				for _, c := range f.Collections() {
					if !filter.IsZero() && c.GetMerchant() != filter {
						continue
					}
					s := c.Snapshot()
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n",
						s.ID, s.Name, s.Merchant.Hex(), s.Tiers.Len(), s.ActiveSubscriptions())
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&merchant, "merchant", "", "only list collections of this merchant")
	return cmd
}

func newCollectionShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <collection-id>",
		Short: "Show a collection with its tiers and subscriptions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCollection(cmd.Context(), args[0], func(c *subscriptions.Collection) error {
				return printCollection(cmd.OutOrStdout(), c.Snapshot())
			})
		},
	}
}

func newCollectionDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <collection-id>",
		Short: "Delete a collection without active subscriptions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := a.callerAddress()
			if err != nil {
				return err
			}
			collectionID, err := id.ParseCollectionID(args[0])
			if err != nil {
				return fmt.Errorf("invalid collection id %q: %w", args[0], err)
			}
			return a.withFactory(cmd.Context(), func(f *subscriptions.Factory) error {
				ok, err := f.DeleteCollection(cmd.Context(), caller, collectionID)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%s is not the merchant of %s", caller.Hex(), collectionID)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", collectionID)
				return nil
			})
		},
	}
}

func printCollection(out io.Writer, s *collection.State) error {
	fmt.Fprintf(out, "ID:          %s\n", s.ID)
	fmt.Fprintf(out, "Name:        %s\n", s.Name)
	if s.URI != "" {
		fmt.Fprintf(out, "URI:         %s\n", s.URI)
	}
	if s.Description != "" {
		fmt.Fprintf(out, "Description: %s\n", s.Description)
	}
	fmt.Fprintf(out, "Merchant:    %s\n", s.Merchant.Hex())
	if s.ForSale() {
		fmt.Fprintf(out, "For sale:    %s\n", s.SalePrice)
	}
	fmt.Fprintf(out, "Treasury:    %s\n", s.Treasury)
	if !s.StartTime.IsZero() {
		fmt.Fprintf(out, "Starts:      %s\n", s.StartTime.Format(time.RFC3339))
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "\nTIER\tPRICE\tPERIOD\tACTIVE\tCAPACITY\tENABLED")
	for _, t := range s.Tiers.All() {
		capacity := "unlimited"
		if t.Capacity != collection.Unlimited {
			capacity = strconv.FormatInt(t.Capacity, 10)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%t\n", t.Index, t.Price, t.Period, t.Active, capacity, t.Enabled)
	}

	if entries := s.Ledger.Entries(); len(entries) > 0 {
		fmt.Fprintln(w, "\nTIER\tHOLDER\tDEADLINE\tRENEWALS\tOPERATOR")
		for _, e := range entries {
			operator := "-"
			if e.HasOperator() {
				operator = e.Operator.Hex()
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n",
				e.Tier, e.Holder.Hex(), e.Deadline.Format(time.RFC3339), e.Renewals, operator)
		}
	}
	return w.Flush()
}

// parseTimestamp accepts unix seconds or an RFC 3339 time.
func parseTimestamp(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}
