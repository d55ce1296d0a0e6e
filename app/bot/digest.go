package bot

import (
	"context"
	"fmt"

	"github.com/shashiranjanraj/beanleaf/app/services"
	"github.com/shashiranjanraj/beanleaf/pkg/notification"
	"github.com/shashiranjanraj/beanleaf/pkg/schedule"
)

// SalesDigest returns the scheduled task that sends the sales statistics
// and the open queue size to the admin.
func SalesDigest(orders *services.OrderService, sink notification.Sink, adminID int64) schedule.Task {
	return func(ctx context.Context) error {
		if adminID == 0 {
			return nil
		}
		report, err := orders.CompletedReport(ctx)
		if err != nil {
			return fmt.Errorf("sales digest: %w", err)
		}
		open, err := orders.PendingQueue(ctx)
		if err != nil {
			return fmt.Errorf("sales digest: %w", err)
		}
		msg := fmt.Sprintf("🗓️ Daily digest\n\n%s\n📥 Open orders: %d", FormatReport(report), len(open))
		return sink.Notify(ctx, adminID, msg)
	}
}
