package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/beanleaf/config"
	"github.com/shashiranjanraj/beanleaf/internal/kernel"
)

// beanleaf serve: bot, ops API, gRPC health and workers in one process.
var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"run", "start"},
	Short:   "Start the bot, the ops API and the notification workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd)
		defer stop()

		k, err := kernel.Boot(ctx)
		if err != nil {
			return err
		}
		defer k.Close(context.Background()) //nolint:errcheck

		fmt.Printf("☕ BeanLeaf running (HTTP :%s, gRPC :%s). Press Ctrl+C to stop.\n", config.AppPort(), config.GRPCPort())
		if err := k.Run(ctx); err != nil {
			return err
		}
		fmt.Println("\n⚡ BeanLeaf stopped.")
		return nil
	},
}

var queueWorkersFlag int

// beanleaf queue:work: deliver queued notifications only. Useful with
// QUEUE_DRIVER=redis to scale delivery apart from the bot.
var queueWorkCmd = &cobra.Command{
	Use:   "queue:work",
	Short: "Start the notification queue workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd)
		defer stop()

		k, err := kernel.Boot(ctx, kernel.WithoutBot())
		if err != nil {
			return err
		}
		defer k.Close(context.Background()) //nolint:errcheck

		workers := queueWorkersFlag
		if workers < 1 {
			workers = config.NotifyWorkers()
		}

		fmt.Printf("🚀 Queue worker started (%d workers). Press Ctrl+C to stop.\n", workers)
		k.Queue.StartWorkers(ctx, workers)

		<-ctx.Done()
		k.Queue.Wait()
		fmt.Println("\n⚡ Queue worker stopped.")
		return nil
	},
}

func init() {
	queueWorkCmd.Flags().IntVarP(&queueWorkersFlag, "workers", "w", 0, "Number of concurrent workers (default NOTIFY_WORKERS)")
}
