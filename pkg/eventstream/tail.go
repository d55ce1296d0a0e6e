package eventstream

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"golang.org/x/sync/errgroup"

	"github.com/shashiranjanraj/beanleaf/pkg/event"
	"github.com/shashiranjanraj/beanleaf/pkg/logger"
)

// Tail consumes topic from the newest offset on every partition and hands
// each decoded event to fn until ctx is cancelled or fn fails.
// Undecodable messages are logged and skipped.
func Tail(ctx context.Context, consumer sarama.Consumer, topic string, fn func(event.OrderEvent) error) error {
	partitions, err := consumer.Partitions(topic)
	if err != nil {
		return fmt.Errorf("eventstream: list partitions of %q: %w", topic, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	for _, partition := range partitions {
		pc, err := consumer.ConsumePartition(topic, partition, sarama.OffsetNewest)
		if err != nil {
			return fmt.Errorf("eventstream: consume %s/%d: %w", topic, partition, err)
		}
		g.Go(func() error {
			defer pc.Close()
			return drain(ctx, pc, fn)
		})
	}
	return g.Wait()
}

func drain(ctx context.Context, pc sarama.PartitionConsumer, fn func(event.OrderEvent) error) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-pc.Messages():
			if !ok {
				return nil
			}
			var e event.OrderEvent
			if err := json.Unmarshal(msg.Value, &e); err != nil {
				logger.Warn("eventstream: skipping undecodable message",
					"partition", msg.Partition, "offset", msg.Offset, "error", err)
				continue
			}
			if err := fn(e); err != nil {
				return err
			}
		case err, ok := <-pc.Errors():
			if ok && err != nil {
				logger.Error("eventstream: consumer error", "error", err)
			}
		}
	}
}
