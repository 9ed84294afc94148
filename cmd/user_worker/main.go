package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-users-api/config"
	"github.com/oksasatya/go-ddd-users-api/pkg/helpers"
	"github.com/oksasatya/go-ddd-users-api/pkg/mailer"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-worker", cfg.Env)

	if !cfg.MailSendEnabled {
		logger.Info("MAIL_SEND_ENABLED=false; user worker disabled (no real emails will be sent)")
		return
	}
	if cfg.RabbitMQURL == "" || cfg.RabbitMQUserQueue == "" {
		logger.Fatal("RabbitMQ not configured")
	}
	if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.MailgunSender == "" {
		logger.Fatal("Mailgun not configured")
	}

	consumer, err := helpers.NewRabbitConsumer(cfg.RabbitMQURL, cfg.RabbitMQUserQueue, 16)
	if err != nil {
		logger.Fatalf("amqp: %v", err)
	}
	defer consumer.Close()

	msgs, err := consumer.Deliveries()
	if err != nil {
		logger.Fatalf("consume: %v", err)
	}

	job := &mailer.UserEventJob{
		Sender:  mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender),
		Company: cfg.CompanyName,
	}
	ctx := context.Background()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		for msg := range msgs {
			c, cancel := context.WithTimeout(ctx, 15*time.Second)
			sent, err := job.Handle(c, msg.Body)
			cancel()
			switch mailer.Settle(err, msg.Redelivered) {
			case mailer.Drop:
				helpers.LogError(logger, "dropping message", err, logrus.Fields{"redelivered": msg.Redelivered})
				_ = msg.Nack(false, false)
			case mailer.Requeue:
				helpers.LogError(logger, "send failed, requeueing once", err, nil)
				_ = msg.Nack(false, true)
			default:
				if sent {
					helpers.LogInfo(logger, "welcome email sent", logrus.Fields{"message_id": msg.MessageId})
				}
				_ = msg.Ack(false)
			}
		}
		close(done)
	}()

	logger.WithField("queue", cfg.RabbitMQUserQueue).Info("user worker listening")
	select {
	case <-stop:
		logger.Info("shutting down...")
		consumer.Close()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
		}
	case <-done:
		// deliveries channel closed: broker or channel went away
		logger.Fatal("rabbitmq delivery channel closed")
	}
}
