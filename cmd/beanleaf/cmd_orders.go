package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/beanleaf/app/bot"
	"github.com/shashiranjanraj/beanleaf/app/models"
	"github.com/shashiranjanraj/beanleaf/internal/kernel"
)

// beanleaf orders:queue
var ordersQueueCmd = &cobra.Command{
	Use:   "orders:queue",
	Short: "Show pending and paid orders, oldest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withKernel(cmd, func(ctx context.Context, k *kernel.Kernel) error {
			orders, err := k.Orders.PendingQueue(ctx)
			if err != nil {
				return err
			}
			fmt.Print(bot.FormatQueue(orders, ""))
			return nil
		})
	},
}

// beanleaf orders:report
var ordersReportCmd = &cobra.Command{
	Use:   "orders:report",
	Short: "Totals over completed orders",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withKernel(cmd, func(ctx context.Context, k *kernel.Kernel) error {
			report, err := k.Orders.CompletedReport(ctx)
			if err != nil {
				return err
			}
			fmt.Println(bot.FormatReport(report))
			return nil
		})
	},
}

type transition func(k *kernel.Kernel) func(context.Context, int) (models.Order, error)

func transitionCmd(use, short string, move transition) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <order-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil || id <= 0 {
				return fmt.Errorf("order id must be a positive integer, got %q", args[0])
			}
			return withKernel(cmd, func(ctx context.Context, k *kernel.Kernel) error {
				order, err := move(k)(ctx, id)
				if err != nil {
					return err
				}
				fmt.Printf("✅ Order #%d is now %s\n", order.ID, order.Status.Label())
				return nil
			})
		},
	}
}

var (
	ordersPaidCmd = transitionCmd("orders:paid", "Confirm payment and take stock",
		func(k *kernel.Kernel) func(context.Context, int) (models.Order, error) { return k.Orders.ConfirmPayment })
	ordersCompleteCmd = transitionCmd("orders:complete", "Mark an order fulfilled",
		func(k *kernel.Kernel) func(context.Context, int) (models.Order, error) { return k.Orders.Fulfil })
	ordersDeclineCmd = transitionCmd("orders:decline", "Cancel an open order",
		func(k *kernel.Kernel) func(context.Context, int) (models.Order, error) { return k.Orders.Decline })
)
