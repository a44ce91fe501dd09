// Package server exposes the settlement core over HTTP and WebSocket.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ayushsaklani-min/Prediction-market/internal/server/handler"
	"github.com/ayushsaklani-min/Prediction-market/internal/server/middleware"
	"github.com/ayushsaklani-min/Prediction-market/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
}

// Handlers aggregates all HTTP handlers that the server needs to register.
// Archive is optional; its routes are only registered when blob storage is
// configured.
type Handlers struct {
	Health  *handler.HealthHandler
	Markets *handler.MarketHandler
	Trades  *handler.TradeHandler
	Oracle  *handler.OracleHandler
	Archive *handler.ArchiveHandler
}

// Server is the HTTP + WebSocket API server for the settlement engine.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth) and attaches the WebSocket hub.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Market lifecycle and reads.
	mux.HandleFunc("GET /api/markets", handlers.Markets.ListMarkets)
	mux.HandleFunc("POST /api/markets", handlers.Markets.CreateMarket)
	mux.HandleFunc("GET /api/markets/{id}", handlers.Markets.GetMarket)
	mux.HandleFunc("GET /api/markets/{id}/record", handlers.Markets.GetRecord)
	mux.HandleFunc("GET /api/markets/{id}/price", handlers.Markets.GetPrice)
	mux.HandleFunc("GET /api/markets/{id}/positions", handlers.Markets.ListPositions)
	mux.HandleFunc("GET /api/markets/{id}/balance", handlers.Markets.GetBalance)
	mux.HandleFunc("GET /api/markets/{id}/lp-balance", handlers.Markets.GetLpBalance)
	mux.HandleFunc("GET /api/markets/{id}/trades", handlers.Markets.ListTrades)

	// Cold-storage reads of settled markets.
	if handlers.Archive != nil {
		mux.HandleFunc("GET /api/markets/{id}/archive/trades", handlers.Archive.GetTrades)
		mux.HandleFunc("GET /api/markets/{id}/archive/resolution", handlers.Archive.GetResolution)
	}

	// Trading, liquidity, and redemption.
	mux.HandleFunc("POST /api/markets/{id}/buy", handlers.Trades.Buy)
	mux.HandleFunc("POST /api/markets/{id}/sell", handlers.Trades.Sell)
	mux.HandleFunc("POST /api/markets/{id}/liquidity", handlers.Trades.AddLiquidity)
	mux.HandleFunc("DELETE /api/markets/{id}/liquidity", handlers.Trades.RemoveLiquidity)
	mux.HandleFunc("POST /api/markets/{id}/redeem", handlers.Trades.Redeem)
	mux.HandleFunc("POST /api/markets/{id}/fees/collect", handlers.Trades.CollectFees)

	// Oracle resolution protocol.
	mux.HandleFunc("POST /api/oracle/{id}/commit", handlers.Oracle.Commit)
	mux.HandleFunc("GET /api/oracle/{id}/commitment", handlers.Oracle.GetCommitment)
	mux.HandleFunc("POST /api/oracle/{id}/propose", handlers.Oracle.Propose)
	mux.HandleFunc("POST /api/oracle/{id}/challenge", handlers.Oracle.Challenge)
	mux.HandleFunc("POST /api/oracle/{id}/resolve", handlers.Oracle.Resolve)
	mux.HandleFunc("POST /api/oracle/{id}/finalize", handlers.Oracle.Finalize)
	mux.HandleFunc("GET /api/oracle/{id}/outcome", handlers.Oracle.GetOutcome)
	mux.HandleFunc("GET /api/oracle/{id}/dispute", handlers.Oracle.GetDispute)
	mux.HandleFunc("PUT /api/oracle/{id}/policy", handlers.Oracle.SetPolicy)
	mux.HandleFunc("GET /api/oracle/{id}/policy", handlers.Oracle.GetPolicy)
	mux.HandleFunc("GET /api/oracle/treasury", handlers.Oracle.GetTreasury)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux

	// Apply auth middleware (skips if APIKey is empty).
	h = middleware.Auth(cfg.APIKey)(h)

	// Apply request logging middleware.
	h = middleware.Logging(logger)(h)

	// Apply CORS middleware.
	h = corsMiddleware(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// corsMiddleware returns middleware that sets CORS headers for the allowed
// origins. If no origins are specified, it defaults to allowing all origins.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" {
				allowed := len(allowedOrigins) == 0 // allow all if none specified
				for _, o := range allowedOrigins {
					if strings.EqualFold(o, "*") || strings.EqualFold(o, origin) {
						allowed = true
						break
					}
				}

				if allowed {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key, X-Caller")
					w.Header().Set("Access-Control-Max-Age", "86400")
				}
			}

			// Handle preflight requests.
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
