package cli

import (
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"sharebasket/pkg/basketcode"
	"sharebasket/pkg/model"
	"sharebasket/pkg/reconcile"
)

// NewCreateCommand creates the create command.
func NewCreateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create a new basket",
		Long: `Create a new basket and print its code.

When --name is set you join the basket right away.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := opts.Client().CreateBasket(cmd.Context(), opts.Name)
			if err != nil {
				return err
			}
			opts.log.Debug("Basket created", "basket_code", resp.Code)
			return opts.out.Created(resp)
		},
	}
}

func NewJoinCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "join <code>",
		Short: "Join an existing basket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Name == "" {
				return usageError("a name is required to join (--name or %s_NAME)", EnvPrefix)
			}
			code, err := opts.Client().JoinBasket(cmd.Context(), args[0], opts.Name)
			if err != nil {
				return err
			}
			return opts.out.Joined(code, opts.Name)
		},
	}
}

func NewAddCommand(opts *RootOptions) *cobra.Command {
	var quantity int

	cmd := &cobra.Command{
		Use:   "add <code> <product> <price>",
		Short: "Add an item to a basket",
		Long: `Add an item to a basket under your --name. The price is per unit.

Example:
  basket add AB12CD Milk 1.50 --qty 2 --name Alice`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Name == "" {
				return usageError("a name is required to add (--name or %s_NAME)", EnvPrefix)
			}
			price, err := decimal.NewFromString(args[2])
			if err != nil {
				return usageError("invalid price %q", args[2])
			}
			item, err := opts.Client().AddItem(cmd.Context(), args[0], model.NewItem{
				Product:  args[1],
				Price:    &price,
				Quantity: quantity,
				AddedBy:  opts.Name,
			}, "")
			if err != nil {
				return err
			}
			return opts.out.Added(item)
		},
	}

	cmd.Flags().IntVarP(&quantity, "qty", "q", 1, "quantity")
	return cmd
}

func NewRemoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <code> <id>",
		Aliases: []string{"delete"},
		Short:   "Remove an item from a basket",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || id < 1 {
				return usageError("invalid item id %q", args[1])
			}
			if err := opts.Client().DeleteItem(cmd.Context(), args[0], id); err != nil {
				return err
			}
			return opts.out.Removed(id)
		},
	}
}

func NewListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "ls <code>",
		Aliases: []string{"list"},
		Short:   "List the items of a basket",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := opts.Client().ListItems(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return opts.out.Items(basketcode.Normalize(args[0]), items)
		},
	}
}

func NewTotalsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "totals <code>",
		Short: "Show the basket total and your share",
		Long: `Show the basket total, the part added by --name and a subtotal per
participant.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := opts.Client().Totals(cmd.Context(), args[0], opts.Name)
			if err != nil {
				return err
			}
			return opts.out.Summary(summary)
		},
	}
}

// NewWatchCommand joins a basket and prints a fresh view on every poll
// until interrupted.
func NewWatchCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <code>",
		Short: "Join a basket and follow it live",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Name == "" {
				return usageError("a name is required to watch (--name or %s_NAME)", EnvPrefix)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			session := reconcile.NewSession(opts.Client(), args[0], opts.Name, reconcile.Options{
				Interval: opts.Interval,
				Log:      opts.log,
			})
			if err := session.Join(ctx); err != nil {
				return err
			}
			defer session.Leave()

			session.Subscribe(func(v reconcile.View) {
				if err := opts.out.View(v); err != nil {
					opts.log.Error("failed to print view", "error", err)
				}
			})

			opts.log.Debug("Watching basket", "basket_code", session.Code(), "interval", opts.Interval)
			return session.Run(ctx)
		},
	}
}
