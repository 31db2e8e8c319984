// Package http exposes the ledger as a JSON API.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"moomoney/internal/ledger"
)

type Server struct {
	http.Server
	tracker        *ledger.Tracker
	rateLimiter    *rateLimiter
	maxImportBytes int64
	shutdownOnce   sync.Once
}

// Simple in-memory rate limiter, keyed by client IP.
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries idle for over 10 minutes.
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		if rl.stopCleanup != nil {
			close(rl.stopCleanup)
		}
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]
	if !exists {
		rl.clients[clientIP] = &clientInfo{lastRequest: now, requests: 1}
		return true
	}

	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	// Up to 120 mutations per minute per client.
	client.requests++
	client.lastRequest = now
	return client.requests <= 120
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(addr string, tracker *ledger.Tracker, maxImportBytes int64) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		tracker:        tracker,
		rateLimiter:    newRateLimiter(),
		maxImportBytes: maxImportBytes,
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /api/overview", s.withMiddleware(s.handleOverview))
	mux.HandleFunc("GET /api/export", s.withMiddleware(s.handleExport))
	mux.HandleFunc("POST /api/import", s.withMiddleware(s.handleImport))

	mux.HandleFunc("POST /api/expenses", s.withMiddleware(s.handleAddExpense))
	mux.HandleFunc("PATCH /api/expenses/{id}", s.withMiddleware(s.handleUpdateExpense))
	mux.HandleFunc("PUT /api/expenses/{id}/date", s.withMiddleware(s.handleSetExpenseDate))
	mux.HandleFunc("POST /api/expenses/{id}/smart-item", s.withMiddleware(s.handleSmartItem))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.withMiddleware(s.handleDeleteExpense))

	mux.HandleFunc("PUT /api/budget", s.withMiddleware(s.handleSetBudget))
	mux.HandleFunc("PUT /api/budget/categories/{name}", s.withMiddleware(s.handleSetCategoryBudget))
	mux.HandleFunc("POST /api/categories", s.withMiddleware(s.handleAddCategory))
	mux.HandleFunc("POST /api/categories/{name}/track", s.withMiddleware(s.handleTrackCategory))
	mux.HandleFunc("DELETE /api/categories/{name}/track", s.withMiddleware(s.handleUntrackCategory))

	mux.HandleFunc("GET /api/archives", s.withMiddleware(s.handleListArchives))
	mux.HandleFunc("POST /api/archives/{id}/open", s.withMiddleware(s.handleOpenArchive))
	mux.HandleFunc("POST /api/archives/close", s.withMiddleware(s.handleCloseArchive))
	mux.HandleFunc("DELETE /api/archives/{id}", s.withMiddleware(s.handleDeleteArchive))

	mux.HandleFunc("POST /api/rollover/check", s.withMiddleware(s.handleRolloverCheck))
	mux.HandleFunc("POST /api/rollover/confirm", s.withMiddleware(s.handleRolloverConfirm))
	mux.HandleFunc("POST /api/rollover/decline", s.withMiddleware(s.handleRolloverDecline))
	mux.HandleFunc("POST /api/rollover/manual/confirm", s.withMiddleware(s.handleManualRolloverConfirm))
	mux.HandleFunc("POST /api/rollover/manual/cancel", s.withMiddleware(s.handleManualRolloverCancel))

	mux.HandleFunc("PUT /api/settings/cutoff-day", s.withMiddleware(s.handleSetCutoffDay))
	mux.HandleFunc("PUT /api/settings/theme", s.withMiddleware(s.handleSetTheme))

	return s
}

// Shutdown stops the server and its cleanup goroutines once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

type contextKey string

const requestIDKey contextKey = "request_id"

// withMiddleware adds security headers, rate limiting on mutations, and
// request logging with a per-request ID.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
