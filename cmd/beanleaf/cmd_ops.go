package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/IBM/sarama"
	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/beanleaf/config"
	"github.com/shashiranjanraj/beanleaf/pkg/auth"
	"github.com/shashiranjanraj/beanleaf/pkg/event"
	"github.com/shashiranjanraj/beanleaf/pkg/eventstream"
)

var hashKeyFlag string

// beanleaf token: mint a staff token, or hash a new API key.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print a staff bearer token for the ops API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if hashKeyFlag != "" {
			hash, err := auth.HashAPIKey(hashKeyFlag)
			if err != nil {
				return err
			}
			fmt.Println("ADMIN_API_KEY_HASH=" + hash)
			return nil
		}

		tok, err := auth.GenerateToken("cli", auth.RoleStaff)
		if err != nil {
			return err
		}
		fmt.Println(tok)
		return nil
	},
}

// beanleaf events:tail: print order events from Kafka as JSON lines.
var eventsTailCmd = &cobra.Command{
	Use:   "events:tail",
	Short: "Follow the order event stream",
	RunE: func(cmd *cobra.Command, args []string) error {
		brokers := config.KafkaBrokers()
		if len(brokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is not set")
		}
		consumer, err := sarama.NewConsumer(brokers, eventstream.NewConfig())
		if err != nil {
			return err
		}
		defer consumer.Close()

		ctx, stop := signalContext(cmd)
		defer stop()

		enc := json.NewEncoder(os.Stdout)
		return eventstream.Tail(ctx, consumer, config.KafkaTopic(), func(e event.OrderEvent) error {
			return enc.Encode(e)
		})
	},
}

func init() {
	tokenCmd.Flags().StringVar(&hashKeyFlag, "hash", "", "Hash this API key for ADMIN_API_KEY_HASH instead of minting a token")
}
