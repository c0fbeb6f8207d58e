package httpapi

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"quotedesk/backend/internal/domain"
	"quotedesk/backend/internal/grid"
	"quotedesk/backend/internal/service"
	"quotedesk/backend/internal/store"
)

type API struct {
	service       *service.Service
	auth          *AuthManager
	allowedOrigin string
	loginLimiter  *attemptLimiter
	csrfSecret    []byte
	log           zerolog.Logger
}

func New(svc *service.Service, auth *AuthManager, allowedOrigin string, log zerolog.Logger) *API {
	csrfSecret := make([]byte, 32)
	if _, err := rand.Read(csrfSecret); err != nil {
		// Fall back to a deterministic secret if crypto/rand fails (should not happen in practice).
		csrfSecret = []byte("csrf-fallback-secret-change-me!!")
	}
	return &API{
		service:       svc,
		auth:          auth,
		allowedOrigin: allowedOrigin,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
		csrfSecret:    csrfSecret,
		log:           log,
	}
}

// csrfTokenForHour computes an HMAC-SHA256 token for the given hour bucket
// (expressed as Unix time truncated to the hour). The token is hex-encoded.
func (a *API) csrfTokenForHour(hourBucket int64) string {
	h := hmac.New(sha256.New, a.csrfSecret)
	fmt.Fprintf(h, "%d", hourBucket)
	return hex.EncodeToString(h.Sum(nil))
}

// generateCSRFToken returns a token valid for the current hour bucket.
func (a *API) generateCSRFToken() string {
	now := time.Now().UTC()
	bucket := now.Truncate(time.Hour).Unix()
	return a.csrfTokenForHour(bucket)
}

// validateCSRFToken checks whether the provided token matches the current or
// previous hour bucket, giving a 2-hour validity window.
func (a *API) validateCSRFToken(token string) bool {
	if token == "" {
		return false
	}
	now := time.Now().UTC()
	currentBucket := now.Truncate(time.Hour).Unix()
	prevBucket := currentBucket - 3600

	expected1 := a.csrfTokenForHour(currentBucket)
	expected2 := a.csrfTokenForHour(prevBucket)

	return hmac.Equal([]byte(token), []byte(expected1)) ||
		hmac.Equal([]byte(token), []byte(expected2))
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	kept = append(kept, now)
	l.entries[key] = kept
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/v1/auth/login", a.handleLogin)
	mux.HandleFunc("/api/v1/auth/csrf-token", a.handleCSRFToken)

	mux.HandleFunc("/api/v1/parties", a.requireAuth(a.handleParties, "sales", "admin"))
	mux.HandleFunc("/api/v1/salesmen", a.requireAuth(a.handleSalesmen, "sales", "admin"))
	mux.HandleFunc("/api/v1/price-lists", a.requireAuth(a.handlePriceLists, "sales", "admin"))
	mux.HandleFunc("/api/v1/products/search", a.requireAuth(a.handleProductSearch, "sales", "admin"))

	mux.HandleFunc("/api/v1/quotations", a.requireAuth(a.handleQuotations, "sales", "admin"))
	mux.HandleFunc("/api/v1/quotations/", a.requireAuth(a.handleQuotationActions, "sales", "admin"))

	mux.HandleFunc("/api/v1/editor/sessions", a.requireAuth(a.handleOpenSession, "sales", "admin"))
	mux.HandleFunc("/api/v1/editor/sessions/", a.requireAuth(a.handleSessionActions, "sales", "admin"))

	mux.HandleFunc("/api/v1/users/sales", a.requireAuth(a.handleSalesUsers, "admin"))

	return a.withMiddleware(mux)
}

func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			a.writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			a.writeError(w, http.StatusUnauthorized, err)
			return
		}

		if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
			a.writeError(w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}

		next(w, r.WithContext(service.WithActor(r.Context(), actor)))
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}

	a.writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.writeMethodNotAllowed(w)
		return
	}
	if !a.loginLimiter.Allow(clientKey(r)) {
		a.writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.auth.Login(req)
	if err != nil {
		a.writeError(w, http.StatusUnauthorized, err)
		return
	}

	a.writeJSON(w, http.StatusOK, resp)
}

// handleCSRFToken returns a stateless CSRF token valid for the current hour bucket.
// Clients must include this token in the X-CSRF-Token header for all mutating requests.
func (a *API) handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{
		"csrf_token": a.generateCSRFToken(),
	})
}

// csrfExemptPaths lists paths that are exempt from CSRF validation. Login is
// excluded because it is called without a prior CSRF token fetch.
var csrfExemptPaths = []string{
	"/api/v1/auth/login",
}

// checkCSRF enforces CSRF token validation for state-changing methods (POST/PUT/PATCH/DELETE).
// Returns false and writes an error response if validation fails.
func (a *API) checkCSRF(w http.ResponseWriter, r *http.Request) bool {
	method := r.Method
	if method != http.MethodPost && method != http.MethodPut && method != http.MethodPatch && method != http.MethodDelete {
		return true
	}
	for _, exempt := range csrfExemptPaths {
		if r.URL.Path == exempt {
			return true
		}
	}
	token := strings.TrimSpace(r.Header.Get("X-CSRF-Token"))
	if !a.validateCSRFToken(token) {
		a.writeError(w, http.StatusForbidden, errors.New("missing or invalid CSRF token"))
		return false
	}
	return true
}

func (a *API) handleParties(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}
	parties, err := a.service.ListParties(r.Context())
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"parties": parties})
}

func (a *API) handleSalesmen(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}
	salesmen, err := a.service.ListSalesmen(r.Context())
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"salesmen": salesmen})
}

func (a *API) handlePriceLists(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}
	priceLists, err := a.service.ListPriceLists(r.Context())
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"price_lists": priceLists})
}

func (a *API) handleProductSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		a.writeError(w, http.StatusBadRequest, errors.New("query parameter q required"))
		return
	}
	priceList := strings.TrimSpace(r.URL.Query().Get("price_list"))

	resp, err := a.service.SearchProducts(r.Context(), query, priceList)
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}
	a.writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleQuotations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		filter := domain.QuotationFilter{
			Party:    strings.TrimSpace(r.URL.Query().Get("party")),
			Salesman: strings.TrimSpace(r.URL.Query().Get("salesman")),
			Limit:    parsePositiveLimit(r.URL.Query().Get("limit"), 50, 200),
		}
		if from := strings.TrimSpace(r.URL.Query().Get("from")); from != "" {
			if parsed, err := time.Parse("2006-01-02", from); err == nil {
				filter.From = parsed
			}
		}
		if to := strings.TrimSpace(r.URL.Query().Get("to")); to != "" {
			if parsed, err := time.Parse("2006-01-02", to); err == nil {
				filter.To = parsed.Add(24*time.Hour - time.Nanosecond)
			}
		}

		quotations, err := a.service.ListQuotations(r.Context(), filter)
		if err != nil {
			a.writeError(w, http.StatusInternalServerError, err)
			return
		}
		a.writeJSON(w, http.StatusOK, map[string]any{"quotations": quotations})
	case http.MethodPost:
		var quotation domain.Quotation
		if err := decodeJSON(r, &quotation); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}

		resp, err := a.service.SaveQuotation(r.Context(), quotation)
		if err != nil {
			status := http.StatusUnprocessableEntity
			if errors.Is(err, store.ErrInvalidQuotation) {
				status = http.StatusBadRequest
			}
			if errors.Is(err, store.ErrNotFound) {
				status = http.StatusNotFound
			}
			a.writeError(w, status, err)
			return
		}
		a.writeJSON(w, http.StatusCreated, resp)
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleQuotationActions(w http.ResponseWriter, r *http.Request) {
	prefix := "/api/v1/quotations/"
	id := strings.TrimSpace(strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/"))
	if id == "" || strings.Contains(id, "/") {
		a.writeError(w, http.StatusBadRequest, errors.New("quotation id required"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		quotation, err := a.service.GetQuotation(r.Context(), id)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, store.ErrNotFound) {
				status = http.StatusNotFound
			}
			a.writeError(w, status, err)
			return
		}
		a.writeJSON(w, http.StatusOK, map[string]any{"quotation": quotation})
	case http.MethodDelete:
		err := a.service.DeleteQuotation(r.Context(), id)
		if err != nil {
			status := http.StatusUnprocessableEntity
			if errors.Is(err, store.ErrNotFound) {
				status = http.StatusNotFound
			}
			if strings.Contains(strings.ToLower(err.Error()), "admin role required") {
				status = http.StatusForbidden
			}
			a.writeError(w, status, err)
			return
		}
		a.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.writeMethodNotAllowed(w)
		return
	}

	var req domain.OpenSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.service.OpenEditorSession(r.Context(), req)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, store.ErrNotFound) {
			status = http.StatusNotFound
		}
		a.writeError(w, status, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, resp)
}

// handleSessionActions routes /api/v1/editor/sessions/{id} and its
// /keys, /commands and /save sub-resources.
func (a *API) handleSessionActions(w http.ResponseWriter, r *http.Request) {
	prefix := "/api/v1/editor/sessions/"
	tail := strings.TrimSpace(strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/"))
	if tail == "" {
		a.writeError(w, http.StatusBadRequest, errors.New("session id required"))
		return
	}

	sessionID, action, _ := strings.Cut(tail, "/")
	switch action {
	case "":
		a.handleSession(w, r, sessionID)
	case "keys":
		a.handleSessionKey(w, r, sessionID)
	case "commands":
		a.handleSessionCommand(w, r, sessionID)
	case "save":
		a.handleSessionSave(w, r, sessionID)
	default:
		a.writeError(w, http.StatusBadRequest, errors.New("unknown session action"))
	}
}

func (a *API) handleSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	switch r.Method {
	case http.MethodGet:
		quotation, state, events, err := a.service.SessionSnapshot(sessionID)
		if err != nil {
			a.writeSessionError(w, err)
			return
		}
		a.writeJSON(w, http.StatusOK, map[string]any{
			"quotation": quotation,
			"grid":      state,
			"events":    events,
		})
	case http.MethodDelete:
		if err := a.service.CloseEditorSession(sessionID); err != nil {
			a.writeSessionError(w, err)
			return
		}
		a.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleSessionKey(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		a.writeMethodNotAllowed(w)
		return
	}

	var req domain.KeyEventRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}

	events, state, err := a.service.SessionKey(r.Context(), sessionID, grid.Key{
		Name:  req.Key,
		Shift: req.Shift,
		Alt:   req.Alt,
		Text:  req.Text,
	})
	if err != nil {
		a.writeSessionError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"grid":   state,
	})
}

func (a *API) handleSessionCommand(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		a.writeMethodNotAllowed(w)
		return
	}

	var req domain.EditorCommandRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}

	events, err := a.service.SessionCommand(r.Context(), sessionID, req)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			a.writeError(w, http.StatusNotFound, err)
			return
		}
		if strings.HasPrefix(err.Error(), "unknown editor command") {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		a.writeSessionError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (a *API) handleSessionSave(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		a.writeMethodNotAllowed(w)
		return
	}

	resp, err := a.service.SaveSession(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, store.ErrInvalidQuotation) {
			a.writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		a.writeSessionError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, resp)
}

func (a *API) writeSessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, service.ErrSessionUnknown) {
		a.writeError(w, http.StatusNotFound, err)
		return
	}
	a.writeError(w, http.StatusInternalServerError, err)
}

func (a *API) handleSalesUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		users := a.auth.ListSalesUsers()
		a.writeJSON(w, http.StatusOK, map[string]any{"users": users})
	case http.MethodPost:
		var req domain.LoginRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}

		user, err := a.auth.CreateSalesUser(req.Username, req.Password)
		if err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		a.writeJSON(w, http.StatusCreated, map[string]any{"user": user})
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-CSRF-Token")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if (r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut) && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		// Enforce CSRF protection for all state-changing requests.
		if !a.checkCSRF(w, r) {
			return
		}

		startedAt := time.Now()
		next.ServeHTTP(w, r)
		a.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(startedAt)).
			Msg("request")
	})
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

func (a *API) writeMethodNotAllowed(w http.ResponseWriter) {
	a.writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func (a *API) writeError(w http.ResponseWriter, status int, err error) {
	// For 5xx responses, return a generic message to avoid leaking internal
	// implementation details (stack traces, SQL errors, file paths, etc.).
	// 4xx responses are user-facing so we return the original error message.
	msg := err.Error()
	if status >= 500 {
		a.log.Error().Int("status", status).Err(err).Msg("internal error")
		msg = "internal server error"
	}
	a.writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func (a *API) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
