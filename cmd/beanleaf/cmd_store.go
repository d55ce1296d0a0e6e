package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/beanleaf/database/seeders"
	"github.com/shashiranjanraj/beanleaf/internal/kernel"
)

// beanleaf init: create the collections and header rows.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create missing collections and their header rows",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withKernel(cmd, func(ctx context.Context, k *kernel.Kernel) error {
			for _, name := range k.Store.Collections() {
				fmt.Printf("  ✅ %s: %v\n", name, k.Store.Schema(name))
			}
			return nil
		})
	},
}

// beanleaf seed
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Run all seeders",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withKernel(cmd, func(ctx context.Context, k *kernel.Kernel) error {
			fmt.Println("Running seeders…")
			return seeders.RunAll(ctx, k.Repos, os.Stdout)
		})
	},
}

// beanleaf backup
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Export every collection as CSV to the default storage disk",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withKernel(cmd, func(ctx context.Context, k *kernel.Kernel) error {
			res, err := k.Backup(ctx)
			if err != nil {
				return err
			}
			for _, f := range res.Files {
				fmt.Println("  •", f)
			}
			fmt.Printf("✅ Backup written to %s (%d rows)\n", res.Dir, res.Rows)
			return nil
		})
	},
}
