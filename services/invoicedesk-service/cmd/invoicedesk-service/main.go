package main

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/consuldesk/invoicedesk/libs/config"
	"github.com/consuldesk/invoicedesk/libs/db"
	"github.com/consuldesk/invoicedesk/libs/httpx"
	"github.com/consuldesk/invoicedesk/libs/kafkax"
	otelx "github.com/consuldesk/invoicedesk/libs/otel"
	"github.com/consuldesk/invoicedesk/libs/runtime"
	"github.com/consuldesk/invoicedesk/services/invoicedesk-service/internal/handlers"
	"github.com/consuldesk/invoicedesk/services/invoicedesk-service/internal/outbox"
	"github.com/consuldesk/invoicedesk/services/invoicedesk-service/internal/payments"
	"github.com/consuldesk/invoicedesk/services/invoicedesk-service/internal/storage"
)

func main() {
	service := config.String("SERVICE_NAME", "invoicedesk-service")
	port, err := config.Port("PORT", "8081")
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

	jwtSecret, err := config.RequiredString("JWT_SECRET")
	if err != nil {
		panic(err)
	}

	clientRepo := storage.NewClientRepository(pool)
	appointmentRepo := storage.NewAppointmentRepository(pool)
	invoiceRepo := storage.NewInvoiceRepository(pool)
	userRepo := storage.NewUserRepository(pool)
	outboxRepo := outbox.NewRepository(pool)
	links := payments.NewLinkGenerator(config.String("STRIPE_SECRET_KEY", ""), logger)

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	// Overdue sweep: flip pending invoices past their due date.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := invoiceRepo.MarkOverdue(ctx, time.Now())
				if err != nil {
					logger.Error("overdue sweep failed", "err", err)
				} else if n > 0 {
					logger.Info("invoices marked overdue", "count", n)
				}
			}
		}
	}()

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)

	clientHandler := handlers.NewClientHandler(clientRepo)
	appointmentHandler := handlers.NewAppointmentHandler(appointmentRepo)
	cancellationHandler := handlers.NewCancellationHandler(pool, appointmentRepo, clientRepo, outboxRepo)
	invoiceHandler := handlers.NewInvoiceHandler(pool, clientRepo, appointmentRepo, invoiceRepo, outboxRepo, links, logger)
	userHandler := handlers.NewUserHandler(userRepo, jwtSecret, time.Hour)
	stripeWebhookHandler := handlers.NewStripeWebhookHandler(pool, invoiceRepo, config.String("STRIPE_WEBHOOK_SECRET", ""), logger)

	mux.HandleFunc("/api/v1/clients", clientHandler.Collection)
	mux.HandleFunc("/api/v1/clients/", clientHandler.Item)
	mux.HandleFunc("/api/v1/appointments", appointmentHandler.List)
	mux.HandleFunc("/api/v1/appointments/export", appointmentHandler.Export)
	mux.HandleFunc("/api/v1/cancellations/review", cancellationHandler.Review)
	mux.HandleFunc("/api/v1/cancellations/pending", cancellationHandler.Pending)
	mux.HandleFunc("/api/v1/invoices/preview", invoiceHandler.Preview)
	mux.HandleFunc("/api/v1/invoices/generate", invoiceHandler.Generate)
	mux.HandleFunc("/api/v1/invoices/", invoiceHandler.PDF)
	mux.HandleFunc("/api/v1/auth/login", userHandler.Login)
	mux.HandleFunc("/api/v1/users", userHandler.Users)
	mux.HandleFunc("/api/v1/webhooks/stripe", stripeWebhookHandler.Webhook)

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "invoicedesk")
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

	if err := startGrpcServer(ctx, logger); err != nil {
		logger.Error("grpc server failed to start", "err", err)
	}

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
