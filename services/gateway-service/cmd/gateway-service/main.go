package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/consuldesk/invoicedesk/libs/auth"
	"github.com/consuldesk/invoicedesk/libs/cache"
	"github.com/consuldesk/invoicedesk/libs/config"
	"github.com/consuldesk/invoicedesk/libs/grpcx"
	"github.com/consuldesk/invoicedesk/libs/httpx"
	otelx "github.com/consuldesk/invoicedesk/libs/otel"
	"github.com/consuldesk/invoicedesk/libs/runtime"
)

func main() {
	service := config.String("SERVICE_NAME", "gateway-service")
	port, err := config.Port("PORT", "8080")
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

	var rdb *redis.Client
	if addr := strings.TrimSpace(config.String("REDIS_ADDR", "")); addr != "" {
		redisDB := 0
		if v, err := strconv.Atoi(config.String("REDIS_DB", "0")); err == nil && v >= 0 {
			redisDB = v
		}
		rdb = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       redisDB,
		})
		defer func() { _ = rdb.Close() }()
	}

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "invoicedesk-grpc", Check: upstreamHealthCheck(config.String("INVOICEDESK_GRPC_ADDR", "invoicedesk-service:9091"))},
	)
	jwtSecret := config.String("JWT_SECRET", "dev-secret")
	csrf := newCSRFIssuer(
		config.String("CSRF_SECRET", jwtSecret),
		envDuration("CSRF_TTL_SECONDS", time.Hour),
	)
	registerRoutes(mux, jwtSecret, csrf)

	bodyLimit := int64(1 << 20) // 1MB
	if v, err := strconv.Atoi(config.String("REQUEST_BODY_LIMIT_BYTES", "1048576")); err == nil && v > 0 {
		bodyLimit = int64(v)
	}
	requestTimeout := envDuration("REQUEST_TIMEOUT_SECONDS", 10*time.Second)

	limitPerMinute := 60
	if v, err := strconv.Atoi(config.String("RATE_LIMIT_PER_MINUTE", "60")); err == nil && v > 0 {
		limitPerMinute = v
	}

	var rateLimitMW httpx.Middleware
	if rdb != nil {
		rl := httpx.NewRedisRateLimiter(rdb, limitPerMinute, time.Minute, config.String("RATE_LIMIT_PREFIX", "rl"))
		rateLimitMW = rl.Middleware(logger, isTruthy(config.String("RATE_LIMIT_FAIL_OPEN", "true")))
		logger.Info("rate limiting enabled (redis)", "per_minute", limitPerMinute)
	} else {
		rl := httpx.NewRateLimiter(limitPerMinute, time.Minute)
		rateLimitMW = rl.Middleware()
		logger.Info("rate limiting enabled (in-memory)", "per_minute", limitPerMinute)
	}

	var store cache.Store
	if rdb != nil {
		store = cache.NewRedisStore(rdb, config.String("RESPONSE_CACHE_PREFIX", "gwcache"))
		logger.Info("response cache enabled (redis)")
	} else {
		store = cache.NewMemoryStore()
		logger.Info("response cache enabled (in-memory)")
	}
	cacheMW := withResponseCache(
		store,
		envDuration("RESPONSE_CACHE_TTL_SECONDS", 30*time.Second),
		[]string{"/api/v1/clients", "/api/v1/appointments", "/api/v1/cancellations/pending"},
		logger,
	)

	handler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins:   parseList(config.String("CORS_ALLOWED_ORIGINS", "")),
			AllowedMethods:   parseList(config.String("CORS_ALLOWED_METHODS", "GET,POST,PUT,PATCH,DELETE,OPTIONS")),
			AllowedHeaders:   parseList(config.String("CORS_ALLOWED_HEADERS", "Authorization,Content-Type,X-Request-Id,x-csrf-token")),
			AllowCredentials: isTruthy(config.String("CORS_ALLOW_CREDENTIALS", "false")),
			MaxAge:           envDuration("CORS_MAX_AGE_SECONDS", 600*time.Second),
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(bodyLimit),
		httpx.WithTimeout(requestTimeout),
		rateLimitMW,
		cacheMW,
	)
	handler = otelhttp.NewHandler(handler, "gateway")
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

func isTruthy(s string) bool {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func parseList(raw string) []string {
	items := strings.Split(raw, ",")
	out := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v, err := strconv.Atoi(config.String(key, "")); err == nil && v > 0 {
		return time.Duration(v) * time.Second
	}
	return fallback
}

// upstreamHealthCheck probes the core service's gRPC health endpoint.
func upstreamHealthCheck(addr string) func(context.Context) error {
	return func(ctx context.Context) error {
		conn, err := grpcx.Dial(ctx, addr, grpcx.DialOptions{Timeout: 2 * time.Second})
		if err != nil {
			return err
		}
		defer func() { _ = conn.Close() }()

		resp, err := grpc_health_v1.NewHealthClient(conn).Check(ctx, &grpc_health_v1.HealthCheckRequest{})
		if err != nil {
			return err
		}
		if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
			return fmt.Errorf("upstream not serving: %s", resp.GetStatus())
		}
		return nil
	}
}

func registerRoutes(mux *http.ServeMux, jwtSecret string, csrf *csrfIssuer) {
	upstream := mustParseURL(config.String("INVOICEDESK_URL", "http://invoicedesk-service:8081"))
	proxy := httputil.NewSingleHostReverseProxy(upstream)
	proxy.Transport = otelhttp.NewTransport(http.DefaultTransport)

	mux.HandleFunc("/csrf-token", csrf.TokenHandler)

	// Login needs neither a JWT nor a CSRF token; everything else under the
	// API does.
	registerProxy(mux, "/api/v1/auth/login", proxy)

	// Stripe authenticates with its signature header, not a JWT.
	registerProxy(mux, "/api/v1/webhooks/stripe", proxy)

	authed := requireAuth(proxy, jwtSecret)
	admin := requireAuth(requireRole(proxy, "admin", "owner"), jwtSecret)

	registerProxy(mux, "/api/v1/clients", requireCSRF(authed, csrf))
	registerProxy(mux, "/api/v1/appointments", authed)
	registerProxy(mux, "/api/v1/cancellations", requireCSRF(admin, csrf))
	registerProxy(mux, "/api/v1/invoices", requireCSRF(authed, csrf))
	registerProxy(mux, "/api/v1/users", requireCSRF(admin, csrf))
}

func registerProxy(mux *http.ServeMux, prefix string, handler http.Handler) {
	if !strings.HasSuffix(prefix, "/") {
		mux.Handle(prefix, handler)
		mux.Handle(prefix+"/", handler)
		return
	}
	mux.Handle(prefix, handler)
}

func mustParseURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		panic(err)
	}
	return u
}

func requireAuth(next http.Handler, jwtSecret string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") || len(strings.TrimSpace(authHeader)) <= len("Bearer ") {
			http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		claims, err := auth.ParseAndVerifyHS256(token, jwtSecret)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		r.Header.Del("X-User-Id")
		r.Header.Del("X-Email")
		r.Header.Del("X-Role")
		r.Header.Set("X-User-Id", claims.Sub)
		r.Header.Set("X-Email", claims.Email)
		r.Header.Set("X-Role", claims.Role)
		next.ServeHTTP(w, r)
	})
}

func requireRole(next http.Handler, roles ...string) http.Handler {
	allowed := map[string]struct{}{}
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role := r.Header.Get("X-Role")
		if _, ok := allowed[role]; !ok {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
