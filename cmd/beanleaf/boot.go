package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/beanleaf/internal/kernel"
)

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
}

// withKernel boots the kernel for a one-shot command and closes it after.
// Notifications are delivered inline since no queue worker outlives the
// command.
func withKernel(cmd *cobra.Command, fn func(ctx context.Context, k *kernel.Kernel) error) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	k, err := kernel.Boot(ctx, kernel.WithInlineNotifications())
	if err != nil {
		return err
	}
	defer k.Close(context.Background()) //nolint:errcheck

	return fn(ctx, k)
}
