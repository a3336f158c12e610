package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/consuldesk/invoicedesk/libs/config"
	"github.com/consuldesk/invoicedesk/libs/db"
	"github.com/consuldesk/invoicedesk/libs/httpx"
	"github.com/consuldesk/invoicedesk/libs/kafkax"
	otelx "github.com/consuldesk/invoicedesk/libs/otel"
	"github.com/consuldesk/invoicedesk/libs/runtime"
	"github.com/consuldesk/invoicedesk/services/notification-service/internal/consumer"
	"github.com/consuldesk/invoicedesk/services/notification-service/internal/email"
	"github.com/consuldesk/invoicedesk/services/notification-service/internal/inbox"
	"github.com/consuldesk/invoicedesk/services/notification-service/internal/outbox"
	"github.com/consuldesk/invoicedesk/services/notification-service/internal/storage"
	"github.com/consuldesk/invoicedesk/services/notification-service/internal/webhook"
)

type invoicePayload struct {
	InvoiceNumber  string    `json:"invoice_number"`
	ClientID       string    `json:"client_id"`
	ClientName     string    `json:"client_name"`
	ContactEmail   string    `json:"contact_email"`
	Subtotal       float64   `json:"subtotal"`
	Tax            float64   `json:"tax"`
	Total          float64   `json:"total"`
	IssueDate      time.Time `json:"issue_date"`
	DueDate        time.Time `json:"due_date"`
	PaymentLinkURL string    `json:"payment_link_url"`
}

func renderInvoiceEmail(p invoicePayload) (string, string) {
	subject := fmt.Sprintf("Invoice %s from Invoice Desk", p.InvoiceNumber)

	var b strings.Builder
	name := strings.TrimSpace(p.ClientName)
	if name == "" {
		name = "there"
	}
	fmt.Fprintf(&b, "Hello %s,\n\n", name)
	fmt.Fprintf(&b, "Invoice %s was issued on %s.\n\n", p.InvoiceNumber, p.IssueDate.Format("January 2, 2006"))
	fmt.Fprintf(&b, "  Subtotal: $%.2f\n", p.Subtotal)
	fmt.Fprintf(&b, "  Tax:      $%.2f\n", p.Tax)
	fmt.Fprintf(&b, "  Total:    $%.2f\n\n", p.Total)
	fmt.Fprintf(&b, "Payment is due by %s.\n", p.DueDate.Format("January 2, 2006"))
	if p.PaymentLinkURL != "" {
		fmt.Fprintf(&b, "\nPay online: %s\n", p.PaymentLinkURL)
	}
	b.WriteString("\nThank you,\nInvoice Desk\n")
	return subject, b.String()
}

func writeOutboxSent(ctx context.Context, pool *db.Pool, outboxRepo *outbox.Repository, payload invoicePayload, providerID string) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if strings.TrimSpace(providerID) == "" {
		providerID = "unknown"
	}
	eventPayload, err := json.Marshal(map[string]any{
		"invoice_number": payload.InvoiceNumber,
		"client_id":      payload.ClientID,
		"channel":        "email",
		"provider_id":    providerID,
		"sent_at":        time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	if err := outboxRepo.Insert(ctx, tx, outbox.Event{
		AggregateType: "notification",
		AggregateID:   payload.InvoiceNumber,
		EventType:     outbox.EventNotificationSent,
		Payload:       eventPayload,
	}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func writeOutboxFailed(ctx context.Context, pool *db.Pool, outboxRepo *outbox.Repository, payload invoicePayload, reason string) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	eventPayload, err := json.Marshal(map[string]any{
		"invoice_number": payload.InvoiceNumber,
		"client_id":      payload.ClientID,
		"channel":        "email",
		"error_reason":   reason,
		"failed_at":      time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	if err := outboxRepo.Insert(ctx, tx, outbox.Event{
		AggregateType: "notification",
		AggregateID:   payload.InvoiceNumber,
		EventType:     outbox.EventNotificationFailed,
		Payload:       eventPayload,
	}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func main() {
	service := config.String("SERVICE_NAME", "notification-service")
	port, err := config.Port("PORT", "8085")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	inboxRepo := inbox.NewRepository(pool)
	notificationsRepo := storage.NewRepository(pool)
	outboxRepo := outbox.NewRepository(pool)
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	smtpHost := config.String("SMTP_HOST", "mailpit")
	smtpPort := config.String("SMTP_PORT", "1025")
	smtpFrom := config.String("SMTP_FROM", "no-reply@invoicedesk.local")
	emailSender := email.NewSMTPSender(smtpHost, smtpPort, smtpFrom)
	emailProviderID := "smtp"

	webhookURL := config.String("WEBHOOK_URL", "")
	webhookToken := config.String("WEBHOOK_TOKEN", "")
	var webhookSender webhook.Sender = webhook.NewNoopSender()
	if webhookURL != "" {
		webhookSender = webhook.NewHTTPSender(webhookURL, webhookToken)
	}

	failSuffix := config.String("NOTIFICATION_FAIL_SUFFIX", "")
	consumerCfg := consumer.Config{
		Brokers: config.String("KAFKA_BROKERS", ""),
		GroupID: config.String("KAFKA_GROUP_ID", "notification-service"),
		Topic:   config.String("KAFKA_CONSUME_TOPIC", "invoicedesk.invoice.generated.v1"),
	}
	eventConsumer := consumer.New(logger, inboxRepo, consumerCfg, func(ctx context.Context, msg kafka.Message) error {
		var payload invoicePayload
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Error("invalid invoice payload", "err", err)
			return nil
		}
		if payload.InvoiceNumber == "" || payload.ClientID == "" {
			logger.Error("missing invoice fields")
			return nil
		}

		status := "sent"
		failureReason := ""
		switch {
		case payload.ContactEmail == "":
			status = "failed"
			failureReason = "client has no contact email"
		case failSuffix != "" && strings.HasSuffix(payload.ContactEmail, failSuffix):
			status = "failed"
			failureReason = "simulated failure"
		}

		notifPayload := map[string]any{
			"subtotal":     payload.Subtotal,
			"tax":          payload.Tax,
			"total":        payload.Total,
			"due_date":     payload.DueDate.Format(time.RFC3339),
			"payment_link": payload.PaymentLinkURL,
		}

		providerID := ""
		if status == "sent" {
			subject, body := renderInvoiceEmail(payload)
			if err := emailSender.Send(payload.ContactEmail, subject, body); err != nil {
				status = "failed"
				failureReason = err.Error()
				logger.Error("email send failed", "err", err, "recipient", payload.ContactEmail)
			} else {
				providerID = emailProviderID
			}
		}

		if webhookURL != "" {
			if err := webhookSender.Send(ctx, map[string]any{
				"invoice_number": payload.InvoiceNumber,
				"client_id":      payload.ClientID,
				"client_name":    payload.ClientName,
				"total":          payload.Total,
				"due_date":       payload.DueDate.Format(time.RFC3339),
				"email_status":   status,
			}); err != nil {
				logger.Error("webhook send failed", "err", err)
			} else if err := notificationsRepo.Insert(ctx, storage.Notification{
				InvoiceNumber: payload.InvoiceNumber,
				ClientID:      payload.ClientID,
				Channel:       "webhook",
				Recipient:     webhookURL,
				Payload:       notifPayload,
				Status:        "sent",
			}); err != nil {
				logger.Error("failed to persist webhook notification", "err", err)
			}
		}

		if err := notificationsRepo.Insert(ctx, storage.Notification{
			InvoiceNumber: payload.InvoiceNumber,
			ClientID:      payload.ClientID,
			Channel:       "email",
			Recipient:     payload.ContactEmail,
			Payload:       notifPayload,
			Status:        status,
		}); err != nil {
			logger.Error("failed to persist notification", "err", err)
			return err
		}

		if status == "failed" {
			if err := writeOutboxFailed(ctx, pool, outboxRepo, payload, failureReason); err != nil {
				logger.Error("failed to enqueue notification.failed", "err", err)
				return err
			}
		} else {
			if err := writeOutboxSent(ctx, pool, outboxRepo, payload, providerID); err != nil {
				logger.Error("failed to enqueue notification.sent", "err", err)
				return err
			}
		}

		logger.Info("invoice notification processed", "invoice_number", payload.InvoiceNumber, "status", status)
		return nil
	})
	go eventConsumer.Run(ctx)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "notification")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
