package queue

// This file contains the background consumer that listens to the
// booking.notifications queue, sends best-effort emails to the restaurant
// and the customer, and appends a structured line to logs/notifications.log.

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	gomail "gopkg.in/gomail.v2"
)

// StartNotificationConsumer connects to RabbitMQ, declares the
// booking.notifications queue (durable), and starts consuming messages.
// Each message produces emails to the affected parties and a line in
// logs/notifications.log. The function runs a reconnect loop and keeps
// running indefinitely; processing errors are logged and the offending
// message is rejected so the server continues operating.
func StartNotificationConsumer() error {
	url := brokerURL()

	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("notification-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn); err != nil {
			log.Printf("notification-consumer: consume loop ended: %v; reconnecting", err)
			// Sleep briefly before reconnect
			time.Sleep(2 * time.Second)
			continue
		}
	}
}

func consumeLoop(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("notification-consumer: set QoS failed: %v", err)
	}

	_, err = ch.QueueDeclare(notificationQueueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(notificationQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handleMessage(d.Body); err != nil {
			log.Printf("notification-consumer: handle message failed: %v", err)
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func handleMessage(body []byte) error {
	var ev BookingNotification
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	// Emails are best effort: a dead SMTP server must not poison the queue.
	if err := sendEmails(ev); err != nil {
		log.Printf("notification-consumer: send email failed: %v", err)
	}

	return appendLog(ev)
}

// sendEmails notifies the restaurant and the customer about the event. A
// missing SMTP configuration disables email entirely.
func sendEmails(ev BookingNotification) error {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		return nil
	}
	port := 587
	if p := os.Getenv("SMTP_PORT"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			port = n
		}
	}
	user := os.Getenv("SMTP_USER")
	pass := os.Getenv("SMTP_PASS")
	from := os.Getenv("SMTP_FROM")
	if from == "" {
		from = user
	}
	dialer := gomail.NewDialer(host, port, user, pass)

	subject, bodyText := composeEmail(ev)
	var firstErr error
	for _, to := range []string{ev.RestaurantEmail, ev.CustomerEmail} {
		if to == "" {
			continue
		}
		m := gomail.NewMessage()
		m.SetHeader("From", from)
		m.SetHeader("To", to)
		m.SetHeader("Subject", subject)
		m.SetBody("text/plain", bodyText)
		if err := dialer.DialAndSend(m); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func composeEmail(ev BookingNotification) (subject, body string) {
	switch ev.Status {
	case "pending":
		subject = fmt.Sprintf("New reservation request at %s", ev.RestaurantName)
	case "approved":
		subject = fmt.Sprintf("Reservation confirmed at %s", ev.RestaurantName)
	case "declined":
		subject = fmt.Sprintf("Reservation declined at %s", ev.RestaurantName)
	case "cancelled":
		subject = fmt.Sprintf("Reservation cancelled at %s", ev.RestaurantName)
	default:
		subject = fmt.Sprintf("Reservation update at %s", ev.RestaurantName)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Reservation %s\n", ev.ReservationID)
	fmt.Fprintf(&b, "Restaurant: %s\n", ev.RestaurantName)
	fmt.Fprintf(&b, "Guest: %s\n", ev.CustomerName)
	fmt.Fprintf(&b, "When: %s\n", ev.DateTime)
	fmt.Fprintf(&b, "Party size: %d\n", ev.PartySize)
	fmt.Fprintf(&b, "Status: %s\n", ev.Status)
	if len(ev.MenuItemNames) > 0 {
		fmt.Fprintf(&b, "Pre-ordered: %s\n", strings.Join(ev.MenuItemNames, ", "))
	}
	return subject, b.String()
}

func appendLog(ev BookingNotification) error {
	// Ensure logs directory exists
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	fpath := filepath.Join("logs", "notifications.log")
	f, err := os.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	items := "[]"
	if len(ev.MenuItemNames) > 0 {
		items = fmt.Sprintf("[%s]", strings.Join(ev.MenuItemNames, ","))
	}

	line := fmt.Sprintf("[%s] Booking %s | reservation_id=%s | restaurant=%q | customer=%q | when=%s | party=%d | items=%s\n",
		ev.OccurredAt, ev.Status, ev.ReservationID, ev.RestaurantName, ev.CustomerName, ev.DateTime, ev.PartySize, items)

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
