package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/opentab/grouporder/internal/auth"
	"github.com/opentab/grouporder/internal/broadcast"
	"github.com/opentab/grouporder/internal/catalog"
	"github.com/opentab/grouporder/internal/group"
	"github.com/opentab/grouporder/internal/middleware"
	"github.com/opentab/grouporder/internal/orders"
	"github.com/opentab/grouporder/internal/service"
	"github.com/opentab/grouporder/internal/storage/sqlite"
	"github.com/opentab/grouporder/pkg/logging"
	"github.com/opentab/grouporder/pkg/metrics"
)

const tokenDuration = 24 * time.Hour

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func main() {
	logging.Setup()

	port := getEnv("PORT", "8080")
	dbPath := getEnv("DB_PATH", "./data/grouporder.db")
	jwtSecret := getEnv("JWT_SECRET", "")
	catalogURL := getEnv("CATALOG_URL", "http://localhost:8081")
	orderServiceURL := getEnv("ORDER_SERVICE_URL", "http://localhost:8082")

	if jwtSecret == "" {
		slog.Error("JWT_SECRET must be set")
		os.Exit(1)
	}

	store, err := sqlite.New(dbPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", dbPath)

	m := metrics.New()
	hub := broadcast.NewHub()
	engine := group.New(store,
		catalog.NewHTTPClient(catalogURL),
		orders.NewHTTPClient(orderServiceURL),
		hub, m)

	jwtManager := auth.NewJWTManager(jwtSecret, tokenDuration)
	authenticator := auth.NewPasswordAuthenticator(store)

	mux := http.NewServeMux()
	service.Routes(mux,
		service.NewGroupOrderService(engine),
		service.NewAuthService(authenticator, jwtManager, slog.Default()),
		connect.WithInterceptors(
			middleware.ResolveIdentity(jwtManager),
			middleware.LoggingInterceptor(),
			middleware.MetricsInterceptor(m),
		),
	)

	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	handler := h2c.NewHandler(corsMiddleware(mux), &http2.Server{})

	addr := ":" + port
	slog.Info("Connect server starting", "address", addr, "catalog", catalogURL, "order_service", orderServiceURL)
	if err := http.ListenAndServe(addr, handler); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Session-Id, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
