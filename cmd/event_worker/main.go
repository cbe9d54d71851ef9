package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"userhub/config"
	"userhub/internal/application"
	"userhub/pkg/mailer"
)

// Consumes user.created events and sends a welcome email per user.
// Delivery is at-least-once: a redelivered event produces a duplicate
// welcome mail, which is tolerable.
func main() {
	cfg := config.Load()
	if !cfg.MailSendEnabled {
		log.Println("MAIL_SEND_ENABLED=false; event worker disabled (no emails will be sent)")
		return
	}
	if cfg.RabbitMQURL == "" || cfg.RabbitMQUserQueue == "" {
		log.Fatal("RabbitMQ not configured")
	}
	if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.MailgunSender == "" {
		log.Fatal("Mailgun not configured")
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("amqp dial: %v", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("amqp channel: %v", err)
	}
	defer func() { _ = ch.Close() }()

	// Prefetch for fair dispatch across workers
	if err := ch.Qos(16, 0, false); err != nil {
		log.Fatalf("qos: %v", err)
	}

	// Same durable declaration as the publisher; whichever side starts
	// first creates the queue.
	if _, err := ch.QueueDeclare(cfg.RabbitMQUserQueue, true, false, false, false, nil); err != nil {
		log.Fatalf("queue declare: %v", err)
	}

	msgs, err := ch.Consume(cfg.RabbitMQUserQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	mg := mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender)
	ctx := context.Background()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		for msg := range msgs {
			var event application.UserCreatedEvent
			if err := json.Unmarshal(msg.Body, &event); err != nil {
				log.Printf("bad message: %v", err)
				_ = msg.Nack(false, false)
				continue
			}
			if event.Kind != application.EventKindUserCreated {
				log.Printf("unexpected event kind %q, dropping", event.Kind)
				_ = msg.Nack(false, false)
				continue
			}

			subject := fmt.Sprintf("Welcome, %s!", event.User.Name)
			text := fmt.Sprintf("Hi %s,\n\nYour account was created on %s.\n",
				event.User.Name, event.User.CreatedAt.Format("2006-01-02"))

			c, cancel := context.WithTimeout(ctx, 15*time.Second)
			if err := mg.Send(c, event.User.Email, subject, text, ""); err != nil {
				cancel()
				log.Printf("send failed for user %s: %v", event.User.ID, err)
				_ = msg.Nack(false, true)
				continue
			}
			cancel()
			_ = msg.Ack(false)
		}
		close(done)
	}()

	log.Printf("event worker listening on queue=%s", cfg.RabbitMQUserQueue)
	<-stop
	log.Printf("shutting down...")
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}
