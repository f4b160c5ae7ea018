package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/signup-email-service/config"
	"github.com/oksasatya/signup-email-service/internal/application"
	"github.com/oksasatya/signup-email-service/internal/interface/consumer"
	"github.com/oksasatya/signup-email-service/pkg/helpers"
	"github.com/oksasatya/signup-email-service/pkg/mailer"
)

type runner interface {
	Run(ctx context.Context) error
}

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	if !cfg.MailSendEnabled {
		log.Println("MAIL_SEND_ENABLED=false; email worker disabled (no real emails will be sent)")
		return
	}
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, cfg, logger)
	stop()
	if err != nil {
		logger.Errorf("email worker: %v", err)
		os.Exit(1)
	}
	logger.Info("email worker exited")
}

// run wires the worker and blocks until the consumer stops or ctx is cancelled.
// Broker resources are released before it returns.
func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	if err := cfg.ValidateWorker(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	handler, err := newHandler(cfg, logger)
	if err != nil {
		return fmt.Errorf("mail transport: %w", err)
	}

	var r runner
	switch cfg.Broker {
	case config.BrokerRabbitMQ:
		sub, err := helpers.NewRabbitSubscription(cfg.RabbitMQURL, cfg.RabbitMQExchange, cfg.RabbitMQRoutingKey, cfg.RabbitMQQueue, cfg.RabbitMQPrefetch)
		if err != nil {
			return fmt.Errorf("amqp subscribe: %w", err)
		}
		defer sub.Close()
		r = consumer.NewRabbitConsumer(sub.Deliveries, handler, logger, cfg.SendTimeout)
		logger.WithFields(logrus.Fields{
			"exchange": cfg.RabbitMQExchange,
			"queue":    sub.Queue,
		}).Info("email worker listening")
	default:
		reader, err := helpers.NewKafkaReader(helpers.KafkaOptions{
			Brokers:       cfg.KafkaBrokerList(),
			Topic:         cfg.KafkaTopic,
			GroupID:       cfg.KafkaGroupID,
			SASLMechanism: cfg.KafkaSASLMechanism,
			Username:      cfg.KafkaUsername,
			Password:      cfg.KafkaPassword,
			TLS:           cfg.KafkaTLSEnabled,
		})
		if err != nil {
			return fmt.Errorf("kafka reader: %w", err)
		}
		defer func() { _ = reader.Close() }()
		r = consumer.NewKafkaConsumer(reader, handler, logger, cfg.SendTimeout)
		logger.WithFields(logrus.Fields{
			"topic": cfg.KafkaTopic,
			"group": cfg.KafkaGroupID,
		}).Info("email worker listening")
	}

	return serve(ctx, r, cfg.SendTimeout+2*time.Second, logger)
}

// serve runs r until it returns or ctx is cancelled. After cancellation it
// waits up to grace for the in-flight message.
func serve(ctx context.Context, r runner, grace time.Duration, logger *logrus.Logger) error {
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("consumer stopped: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down...")
		select {
		case <-done:
		case <-time.After(grace):
			logger.Warn("in-flight message did not finish before shutdown")
		}
	}
	return nil
}

func newHandler(cfg *config.Config, logger *logrus.Logger) (*application.SignupEmailHandler, error) {
	settings := mailer.SessionSettings{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Auth:     cfg.SMTPAuth,
		StartTLS: cfg.SMTPStartTLS,
		Timeout:  cfg.SMTPTimeout,
	}

	var mg *mailer.Mailgun
	if cfg.MailTransport == config.TransportMailgun {
		mg = mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender)
		// Mailgun authenticates with its API key
		settings.Auth = false
	}
	transport, err := mailer.NewTransport(cfg.MailTransport, mg)
	if err != nil {
		return nil, err
	}

	creds := mailer.StaticCredentials{Password: cfg.SenderPassword}
	return application.NewSignupEmailHandler(transport, creds, cfg.SenderEmail, settings, logger), nil
}
