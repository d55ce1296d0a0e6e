package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "beanleaf",
	Short:         "BeanLeaf, a Telegram point-of-sale bot",
	Long:          "BeanLeaf runs the coffee shop bot and its ops API, and manages the catalog and order queue from the shell.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Server
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(queueWorkCmd)

	// Store
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(backupCmd)

	// Catalog and orders
	rootCmd.AddCommand(productsListCmd)
	rootCmd.AddCommand(productsAddCmd)
	rootCmd.AddCommand(ordersQueueCmd)
	rootCmd.AddCommand(ordersPaidCmd)
	rootCmd.AddCommand(ordersCompleteCmd)
	rootCmd.AddCommand(ordersDeclineCmd)
	rootCmd.AddCommand(ordersReportCmd)

	// Ops
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(eventsTailCmd)
}
