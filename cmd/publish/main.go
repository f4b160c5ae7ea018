package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/oksasatya/signup-email-service/config"
	"github.com/oksasatya/signup-email-service/internal/application"
	"github.com/oksasatya/signup-email-service/internal/domain/entity"
	"github.com/oksasatya/signup-email-service/pkg/helpers"
)

type publisher interface {
	PublishJSON(ctx context.Context, body any) (string, error)
	Close()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		req    entity.SendEmailRequest
		broker string
	)

	cmd := &cobra.Command{
		Use:          "publish",
		Short:        "Publish a signup event for the email worker",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = godotenv.Load()
			cfg := config.Load()
			if broker != "" {
				cfg.Broker = broker
			}
			if err := cfg.ValidateBroker(); err != nil {
				return err
			}

			// Reject what the worker would reject
			b, err := json.Marshal(req)
			if err != nil {
				return err
			}
			if _, err := application.DecodeSendEmailRequest(b); err != nil {
				return err
			}

			pub, err := newPublisher(cfg)
			if err != nil {
				return err
			}
			defer pub.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			id, err := pub.PublishJSON(ctx, req)
			if err != nil {
				return fmt.Errorf("publish: %w", err)
			}

			logger := helpers.NewLogger(cfg.AppName, cfg.Env)
			logger.WithFields(logrus.Fields{
				"broker":     cfg.Broker,
				"message_id": id,
				"to":         req.To,
			}).Info("signup event published")
			return nil
		},
	}

	cmd.Flags().StringVar(&req.To, "to", "", "recipient address")
	cmd.Flags().StringVar(&req.Subject, "subject", "Welcome", "email subject")
	cmd.Flags().StringVar(&req.Body, "body", "", "plain-text body")
	cmd.Flags().StringVar(&broker, "broker", "", "override BROKER (kafka or rabbitmq)")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newPublisher(cfg *config.Config) (publisher, error) {
	switch cfg.Broker {
	case config.BrokerRabbitMQ:
		return helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange, cfg.RabbitMQRoutingKey)
	default:
		return helpers.NewKafkaPublisher(helpers.KafkaOptions{
			Brokers:       cfg.KafkaBrokerList(),
			Topic:         cfg.KafkaTopic,
			SASLMechanism: cfg.KafkaSASLMechanism,
			Username:      cfg.KafkaUsername,
			Password:      cfg.KafkaPassword,
			TLS:           cfg.KafkaTLSEnabled,
		})
	}
}
