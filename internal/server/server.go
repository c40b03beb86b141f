// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server implements the gateway HTTP surface the chat widget
// talks to.
//
// Endpoints:
//   - GET    /api/app_info/{app_key}  - Widget bootstrap info
//   - POST   /api/chat                - Relay a conversation upstream
//   - POST   /api/admin/login         - Admin JWT issuance
//   - GET    /api/admin/apps          - List registered applications
//   - POST   /api/admin/apps          - Register an application
//   - PUT    /api/admin/apps/{key}    - Update an application
//   - DELETE /api/admin/apps/{key}    - Remove an application
//   - GET    /health                  - Health check
//   - GET    /stats                   - Usage statistics
//   - GET    /demo, /                 - Embedded demo page
//
// The admin API requires a bearer token from /api/admin/login.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ParisNeo/tinyLollms/internal/auth"
	"github.com/ParisNeo/tinyLollms/internal/binding"
	"github.com/ParisNeo/tinyLollms/internal/logging"
	"github.com/ParisNeo/tinyLollms/internal/store"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr is the default listen address for the gateway.
	DefaultAddr = ":8002"

	// MaxQueryLength is the maximum length for a single message to prevent DoS.
	MaxQueryLength = 100000

	// MaxMessageCount is the maximum number of messages in a request.
	MaxMessageCount = 100

	// MaxRequestBodySize is the maximum size for request body to prevent DoS (1MB).
	MaxRequestBodySize = 1 * 1024 * 1024

	// DefaultRateLimit is the sustained per-client request rate (per second).
	DefaultRateLimit = 5

	// DefaultRateBurst is the per-client burst allowance.
	DefaultRateBurst = 10

	// Version is the gateway version.
	Version = "0.1.0"
)

// validRoles defines the set of acceptable message roles.
// SECURITY: Validates message roles to prevent injection attacks.
var validRoles = map[string]bool{
	"user":      true,
	"assistant": true,
	"system":    true,
}

// validateMessages validates that all message roles are acceptable.
// Returns an error if any message has an invalid role.
func validateMessages(messages []ChatMessage) error {
	for i, msg := range messages {
		if !validRoles[msg.Role] {
			return fmt.Errorf("invalid role '%s' at message %d: must be one of user, assistant, system", msg.Role, i)
		}
	}
	return nil
}

// ============================================================================
// SERVER STATS
// ============================================================================

// ServerStats tracks gateway usage statistics.
type ServerStats struct {
	TotalRequests    int64     `json:"total_requests"`
	ChatRequests     int64     `json:"chat_requests"`
	AppInfoRequests  int64     `json:"app_info_requests"`
	UpstreamFailures int64     `json:"upstream_failures"`
	RejectedRequests int64     `json:"rejected_requests"`
	StartTime        time.Time `json:"start_time"`
	mu               sync.Mutex
}

// NewServerStats creates a new ServerStats instance.
func NewServerStats() *ServerStats {
	return &ServerStats{
		StartTime: time.Now(),
	}
}

// RecordChat records a chat relay attempt and its response status.
func (s *ServerStats) RecordChat(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	atomic.AddInt64(&s.TotalRequests, 1)
	atomic.AddInt64(&s.ChatRequests, 1)

	switch {
	case status == http.StatusBadGateway:
		atomic.AddInt64(&s.UpstreamFailures, 1)
	case status >= 400:
		atomic.AddInt64(&s.RejectedRequests, 1)
	}
}

// RecordAppInfo records a served widget bootstrap request.
func (s *ServerStats) RecordAppInfo() {
	s.mu.Lock()
	defer s.mu.Unlock()

	atomic.AddInt64(&s.TotalRequests, 1)
	atomic.AddInt64(&s.AppInfoRequests, 1)
}

// GetStats returns a copy of the current stats.
func (s *ServerStats) GetStats() ServerStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return ServerStats{
		TotalRequests:    atomic.LoadInt64(&s.TotalRequests),
		ChatRequests:     atomic.LoadInt64(&s.ChatRequests),
		AppInfoRequests:  atomic.LoadInt64(&s.AppInfoRequests),
		UpstreamFailures: atomic.LoadInt64(&s.UpstreamFailures),
		RejectedRequests: atomic.LoadInt64(&s.RejectedRequests),
		StartTime:        s.StartTime,
	}
}

// Uptime returns the server uptime duration.
func (s *ServerStats) Uptime() time.Duration {
	return time.Since(s.StartTime)
}

// ============================================================================
// SERVER
// ============================================================================

// Server is the gateway HTTP server.
type Server struct {
	addr   string
	router *http.ServeMux
	server *http.Server

	store *store.Store
	auth  *auth.Authenticator
	stats *ServerStats
	log   *zap.Logger

	rateLimit float64
	rateBurst int

	mu sync.RWMutex
}

// NewServer creates a new Server listening on addr.
// If addr is empty, the default address (":8002") is used.
func NewServer(addr string) *Server {
	if addr == "" {
		addr = DefaultAddr
	}

	s := &Server{
		addr:      addr,
		router:    http.NewServeMux(),
		stats:     NewServerStats(),
		log:       logging.Nop(),
		rateLimit: DefaultRateLimit,
		rateBurst: DefaultRateBurst,
	}

	s.setupRoutes()
	return s
}

// WithStore sets the application registry.
func (s *Server) WithStore(st *store.Store) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store = st
	return s
}

// WithAuthenticator sets the admin authenticator.
func (s *Server) WithAuthenticator(a *auth.Authenticator) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth = a
	return s
}

// WithLogger sets the server logger.
func (s *Server) WithLogger(logger *zap.Logger) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	if logger != nil {
		s.log = logger
	}
	return s
}

// WithRateLimit sets the per-client rate limit and burst allowance.
// A non-positive limit disables rate limiting.
func (s *Server) WithRateLimit(limit float64, burst int) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rateLimit = limit
	s.rateBurst = burst
	return s
}

// Addr returns the server listen address.
func (s *Server) Addr() string {
	return s.addr
}

// Stats returns the server's usage counters.
func (s *Server) Stats() *ServerStats {
	return s.stats
}

// getStore returns the store under the read lock.
func (s *Server) getStore() *store.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store
}

// getAuth returns the authenticator under the read lock.
func (s *Server) getAuth() *auth.Authenticator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.auth
}

// ============================================================================
// ROUTES
// ============================================================================

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Widget-facing endpoints
	s.router.HandleFunc("GET /api/app_info/{app_key}", s.handleAppInfo)
	s.router.HandleFunc("POST /api/chat", s.handleChat)

	// Admin endpoints
	s.router.HandleFunc("POST /api/admin/login", s.handleAdminLogin)
	s.router.HandleFunc("GET /api/admin/apps", s.requireAdmin(s.handleListApps))
	s.router.HandleFunc("POST /api/admin/apps", s.requireAdmin(s.handleCreateApp))
	s.router.HandleFunc("PUT /api/admin/apps/{app_key}", s.requireAdmin(s.handleUpdateApp))
	s.router.HandleFunc("DELETE /api/admin/apps/{app_key}", s.requireAdmin(s.handleDeleteApp))

	// Health and stats endpoints
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /stats", s.handleStats)

	// Demo page
	s.router.HandleFunc("GET /demo", s.handleDemo)
	s.router.HandleFunc("GET /{$}", s.handleDemo)
}

// ============================================================================
// WIRE TYPES
// ============================================================================

// ChatMessage is one conversation turn as the widget submits it.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /api/chat. The widget sends the
// entire conversation so far on every request.
type ChatRequest struct {
	AppKey   string        `json:"app_key"`
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
}

// ChatResponse carries the assistant reply back to the widget.
type ChatResponse struct {
	Response string `json:"response"`
}

// AppInfoResponse is the widget bootstrap payload.
type AppInfoResponse struct {
	AppName        string   `json:"app_name"`
	WelcomeMessage string   `json:"welcome_message"`
	AllowedModels  []string `json:"allowed_models"`
}

// LoginRequest is the admin login body.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	TOTPCode string `json:"totp_code,omitempty"`
}

// LoginResponse carries the issued admin token.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// AppPayload is the admin create/update body. Models is the
// comma-separated list the admin surface exposes.
type AppPayload struct {
	Name           string `json:"name"`
	Binding        string `json:"binding"`
	HostAddress    string `json:"host_address"`
	ServiceKey     string `json:"service_key"`
	WelcomeMessage string `json:"welcome_message"`
	Models         string `json:"models"`
}

// StatusResponse reports the outcome of an admin mutation.
type StatusResponse struct {
	Status string `json:"status"`
	Key    string `json:"key,omitempty"`
}

// ============================================================================
// WIDGET HANDLERS
// ============================================================================

// handleAppInfo handles GET /api/app_info/{app_key}.
//
// The widget treats this call as best-effort, so the handler never
// returns partial data: either the full record or a 404.
func (s *Server) handleAppInfo(w http.ResponseWriter, r *http.Request) {
	st := s.getStore()
	if st == nil {
		s.writeError(w, http.StatusServiceUnavailable, "Application store not configured")
		return
	}

	key := r.PathValue("app_key")
	app, err := st.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, store.ErrAppNotFound) {
			s.writeError(w, http.StatusNotFound, "Application not found")
			return
		}
		s.log.Error("app info lookup failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	s.stats.RecordAppInfo()
	s.writeJSON(w, http.StatusOK, AppInfoResponse{
		AppName:        app.Name,
		WelcomeMessage: app.WelcomeMessage,
		AllowedModels:  app.AllowedModels,
	})
}

// handleChat handles POST /api/chat.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	// SECURITY: Limit request body size to prevent DoS attacks.
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err.Error() == "http: request body too large" {
			s.writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Request body exceeds maximum size of %d bytes", MaxRequestBodySize))
			return
		}
		// SECURITY: Log full details internally, return generic message to client.
		s.log.Warn("invalid chat request body", zap.Error(err))
		s.writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	if len(req.Messages) == 0 {
		s.writeError(w, http.StatusBadRequest, "Request must contain at least one message")
		return
	}

	if len(req.Messages) > MaxMessageCount {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("Too many messages: maximum is %d", MaxMessageCount))
		return
	}

	if err := validateMessages(req.Messages); err != nil {
		s.log.Warn("chat message validation failed", zap.Error(err))
		s.writeError(w, http.StatusBadRequest, "Invalid message format. Messages must have valid roles (user, assistant, system)")
		return
	}

	for i, msg := range req.Messages {
		if len(msg.Content) > MaxQueryLength {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("Message %d exceeds maximum length of %d", i, MaxQueryLength))
			return
		}
	}

	st := s.getStore()
	if st == nil {
		s.writeError(w, http.StatusServiceUnavailable, "Application store not configured")
		return
	}

	app, err := st.Get(r.Context(), req.AppKey)
	if err != nil {
		if errors.Is(err, store.ErrAppNotFound) {
			s.stats.RecordChat(http.StatusNotFound)
			s.writeError(w, http.StatusNotFound, "Application not found")
			return
		}
		s.log.Error("application lookup failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	// An omitted model falls back to the application's first allowed
	// model. An empty allowed list places no restriction.
	model := strings.TrimSpace(req.Model)
	if model == "" && len(app.AllowedModels) > 0 {
		model = app.AllowedModels[0]
	}
	if len(app.AllowedModels) > 0 && !modelAllowed(app.AllowedModels, model) {
		s.stats.RecordChat(http.StatusForbidden)
		s.writeError(w, http.StatusForbidden, "Model not allowed for this application key")
		return
	}

	b, err := binding.New(binding.Config{
		Binding:     app.Binding,
		HostAddress: app.HostAddress,
		ServiceKey:  app.ServiceKey,
	})
	if err != nil {
		s.log.Error("binding construction failed",
			zap.String("app", app.Name),
			zap.String("binding", app.Binding),
			zap.Error(err),
		)
		s.stats.RecordChat(http.StatusBadGateway)
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	start := time.Now()
	reply, err := b.Chat(r.Context(), binding.Request{
		Model:    model,
		Messages: toBindingMessages(req.Messages),
	})
	if err != nil {
		s.log.Warn("upstream chat failed",
			zap.String("app", app.Name),
			zap.String("binding", app.Binding),
			zap.String("model", model),
			zap.Error(err),
		)
		s.stats.RecordChat(http.StatusBadGateway)
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	s.log.Info("chat relayed",
		zap.String("app", app.Name),
		zap.String("binding", app.Binding),
		zap.String("model", model),
		zap.Int("messages", len(req.Messages)),
		zap.Duration("latency", time.Since(start)),
	)
	s.stats.RecordChat(http.StatusOK)
	s.writeJSON(w, http.StatusOK, ChatResponse{Response: reply})
}

// modelAllowed reports membership in the allowed model list.
func modelAllowed(allowed []string, model string) bool {
	for _, m := range allowed {
		if m == model {
			return true
		}
	}
	return false
}

// toBindingMessages converts wire messages to the binding request form.
func toBindingMessages(messages []ChatMessage) []binding.Message {
	out := make([]binding.Message, len(messages))
	for i, msg := range messages {
		out[i] = binding.Message{Role: msg.Role, Content: msg.Content}
	}
	return out
}

// ============================================================================
// ADMIN HANDLERS
// ============================================================================

// handleAdminLogin handles POST /api/admin/login.
func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	a := s.getAuth()
	if a == nil {
		s.writeError(w, http.StatusServiceUnavailable, "Admin authentication not configured")
		return
	}

	token, err := a.Login(req.Username, req.Password, req.TOTPCode)
	if err != nil {
		if errors.Is(err, auth.ErrTOTPRequired) {
			s.writeError(w, http.StatusForbidden, "One-time code required")
			return
		}
		s.log.Warn("admin login rejected", zap.String("ip", GetClientIP(r)))
		s.writeError(w, http.StatusForbidden, "Invalid credentials")
		return
	}

	s.writeJSON(w, http.StatusOK, LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}

// requireAdmin wraps an admin handler with bearer token verification.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a := s.getAuth()
		if a == nil {
			s.writeError(w, http.StatusServiceUnavailable, "Admin authentication not configured")
			return
		}

		token, ok := bearerToken(r)
		if !ok {
			s.writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		if _, err := a.VerifyToken(token); err != nil {
			s.log.Warn("admin token rejected", zap.String("ip", GetClientIP(r)))
			s.writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		next(w, r)
	}
}

// bearerToken extracts a non-empty bearer token from the request.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimPrefix(header, "Bearer ")
	return token, token != ""
}

// handleListApps handles GET /api/admin/apps.
func (s *Server) handleListApps(w http.ResponseWriter, r *http.Request) {
	st := s.getStore()
	if st == nil {
		s.writeError(w, http.StatusServiceUnavailable, "Application store not configured")
		return
	}

	apps, err := st.List(r.Context())
	if err != nil {
		s.log.Error("application list failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if apps == nil {
		apps = []store.App{}
	}

	s.writeJSON(w, http.StatusOK, apps)
}

// handleCreateApp handles POST /api/admin/apps.
func (s *Server) handleCreateApp(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req AppPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		s.writeError(w, http.StatusBadRequest, "Application name is required")
		return
	}
	if !knownBinding(req.Binding) {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown binding %q: must be one of %s", req.Binding, strings.Join(binding.Names(), ", ")))
		return
	}

	st := s.getStore()
	if st == nil {
		s.writeError(w, http.StatusServiceUnavailable, "Application store not configured")
		return
	}

	app := &store.App{
		Name:           req.Name,
		Binding:        req.Binding,
		HostAddress:    req.HostAddress,
		ServiceKey:     req.ServiceKey,
		WelcomeMessage: req.WelcomeMessage,
		AllowedModels:  store.ParseModelList(req.Models),
	}

	key, err := st.Create(r.Context(), app)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateApp) {
			s.writeError(w, http.StatusConflict, "Application key already exists")
			return
		}
		s.log.Error("application create failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	s.log.Info("application registered",
		zap.String("name", app.Name),
		zap.String("binding", app.Binding),
	)
	s.writeJSON(w, http.StatusCreated, StatusResponse{Status: "created", Key: key})
}

// handleUpdateApp handles PUT /api/admin/apps/{app_key}.
func (s *Server) handleUpdateApp(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req AppPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		s.writeError(w, http.StatusBadRequest, "Application name is required")
		return
	}
	if !knownBinding(req.Binding) {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown binding %q: must be one of %s", req.Binding, strings.Join(binding.Names(), ", ")))
		return
	}

	st := s.getStore()
	if st == nil {
		s.writeError(w, http.StatusServiceUnavailable, "Application store not configured")
		return
	}

	app := &store.App{
		Key:            r.PathValue("app_key"),
		Name:           req.Name,
		Binding:        req.Binding,
		HostAddress:    req.HostAddress,
		ServiceKey:     req.ServiceKey,
		WelcomeMessage: req.WelcomeMessage,
		AllowedModels:  store.ParseModelList(req.Models),
	}

	if err := st.Update(r.Context(), app); err != nil {
		if errors.Is(err, store.ErrAppNotFound) {
			s.writeError(w, http.StatusNotFound, "Application not found")
			return
		}
		s.log.Error("application update failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	s.writeJSON(w, http.StatusOK, StatusResponse{Status: "updated"})
}

// handleDeleteApp handles DELETE /api/admin/apps/{app_key}.
func (s *Server) handleDeleteApp(w http.ResponseWriter, r *http.Request) {
	st := s.getStore()
	if st == nil {
		s.writeError(w, http.StatusServiceUnavailable, "Application store not configured")
		return
	}

	key := r.PathValue("app_key")
	if err := st.Delete(r.Context(), key); err != nil {
		if errors.Is(err, store.ErrAppNotFound) {
			s.writeError(w, http.StatusNotFound, "Application not found")
			return
		}
		s.log.Error("application delete failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	s.log.Info("application removed", zap.String("key", key))
	s.writeJSON(w, http.StatusOK, StatusResponse{Status: "deleted"})
}

// knownBinding reports whether name is a registered binding.
func knownBinding(name string) bool {
	for _, b := range binding.Names() {
		if b == name {
			return true
		}
	}
	return false
}

// ============================================================================
// HEALTH AND STATS HANDLERS
// ============================================================================

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status       string `json:"status"`
	Version      string `json:"version"`
	Database     string `json:"database"`
	Applications int    `json:"applications"`
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status:  "ok",
		Version: Version,
	}

	st := s.getStore()
	if st == nil {
		health.Database = "not_configured"
		health.Status = "degraded"
		s.writeJSON(w, http.StatusOK, health)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	count, err := st.Count(ctx)
	if err != nil {
		health.Database = "unavailable"
		health.Status = "degraded"
	} else {
		health.Database = "ok"
		health.Applications = count
	}

	s.writeJSON(w, http.StatusOK, health)
}

// StatsResponse represents the usage statistics response.
type StatsResponse struct {
	TotalRequests    int64 `json:"total_requests"`
	ChatRequests     int64 `json:"chat_requests"`
	AppInfoRequests  int64 `json:"app_info_requests"`
	UpstreamFailures int64 `json:"upstream_failures"`
	RejectedRequests int64 `json:"rejected_requests"`
	UptimeSeconds    int64 `json:"uptime_seconds"`
}

// handleStats handles GET /stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.stats.GetStats()

	s.writeJSON(w, http.StatusOK, StatsResponse{
		TotalRequests:    stats.TotalRequests,
		ChatRequests:     stats.ChatRequests,
		AppInfoRequests:  stats.AppInfoRequests,
		UpstreamFailures: stats.UpstreamFailures,
		RejectedRequests: stats.RejectedRequests,
		UptimeSeconds:    int64(stats.Uptime().Seconds()),
	})
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	s.mu.RLock()
	logger := s.log
	limit := s.rateLimit
	burst := s.rateBurst
	s.mu.RUnlock()

	middlewares := []func(http.Handler) http.Handler{
		RecoveryMiddleware(logger),
		SecurityHeadersMiddleware(),
		CORSMiddleware(DefaultCORSConfig()),
		LoggingMiddleware(logger),
	}
	if limit > 0 {
		middlewares = append(middlewares, RateLimitMiddleware(NewClientLimiter(limit, burst)))
	}

	return Chain(middlewares...)(s.router)
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.log.Info("server starting", zap.String("addr", s.addr), zap.String("version", Version))
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	s.log.Info("server shutting down")
	return s.server.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
