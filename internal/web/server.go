package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	sdkmath "cosmossdk.io/math"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/elys-network/vault-valuator/internal/amm"
	"github.com/elys-network/vault-valuator/internal/config"
	"github.com/elys-network/vault-valuator/internal/datafetcher"
	"github.com/elys-network/vault-valuator/internal/logger"
	"github.com/elys-network/vault-valuator/internal/metrics"
	"github.com/elys-network/vault-valuator/internal/state"
	"github.com/elys-network/vault-valuator/internal/types"
	"github.com/elys-network/vault-valuator/internal/valuation"
	"github.com/elys-network/vault-valuator/internal/vaults"
)

var webLogger = logger.GetForComponent("web_server")

const (
	defaultListLimit = 20
	maxListLimit     = 100
	requestTimeout   = 30 * time.Second
)

// VaultService is what the HTTP API needs from the vault service.
type VaultService interface {
	Health(ctx context.Context) error
	Valuation(ctx context.Context, address string) (types.VaultValuation, error)
	Performance(ctx context.Context, address string) ([]types.PerformanceIndexPoint, error)
	ListRanked(ctx context.Context, limit int) ([]types.VaultRank, error)
	QuoteSwap(ctx context.Context, address, tokenIn string, amountIn sdkmath.Int) (types.SwapQuote, error)
	QuoteAdd(ctx context.Context, address string, amount0, amount1 sdkmath.Int) (types.MintQuote, error)
	QuoteRemove(ctx context.Context, address string, lpAmount sdkmath.Int) (types.BurnQuote, error)
}

// WebServer serves the vault valuation API
type WebServer struct {
	router  *mux.Router
	port    string
	service VaultService
	server  *http.Server
	started time.Time
}

// NewWebServer creates a new web server instance
func NewWebServer(port string, service VaultService) *WebServer {
	if port == "" {
		port = "8080"
	}

	ws := &WebServer{
		router:  mux.NewRouter(),
		port:    port,
		service: service,
		started: time.Now(),
	}

	ws.setupRoutes()
	return ws
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	ws.router.Handle("/metrics", promhttp.Handler()).Methods("GET", "OPTIONS")

	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET", "OPTIONS")
	api.HandleFunc("/vaults", ws.handleListVaults).Methods("GET", "OPTIONS")
	api.HandleFunc("/vaults/{address}/valuation", ws.handleValuation).Methods("GET", "OPTIONS")
	api.HandleFunc("/vaults/{address}/performance", ws.handlePerformance).Methods("GET", "OPTIONS")
	api.HandleFunc("/vaults/{address}/quote/swap", ws.handleQuoteSwap).Methods("GET", "OPTIONS")
	api.HandleFunc("/vaults/{address}/quote/add", ws.handleQuoteAdd).Methods("GET", "OPTIONS")
	api.HandleFunc("/vaults/{address}/quote/remove", ws.handleQuoteRemove).Methods("GET", "OPTIONS")

	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Handler exposes the router, mainly for tests
func (ws *WebServer) Handler() http.Handler {
	return ws.router
}

// Start starts the web server and blocks until it stops
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	ws.server = &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if err := ws.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (ws *WebServer) Shutdown(ctx context.Context) error {
	if ws.server == nil {
		return nil
	}
	webLogger.Info().Msg("Shutting down web server")
	return ws.server.Shutdown(ctx)
}

// handleHealth returns server health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	dbHealthy := true
	if err := ws.service.Health(r.Context()); err != nil {
		webLogger.Warn().Err(err).Msg("Health check: store unreachable")
		dbHealthy = false
	}

	overallStatus := "OK"
	statusCode := http.StatusOK
	if !dbHealthy {
		overallStatus = "DEGRADED"
		statusCode = http.StatusServiceUnavailable
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"sys_bytes":        memStats.Sys,
			"gc_cycles":        memStats.NumGC,
			"uptime_seconds":   int64(time.Since(ws.started).Seconds()),
		},
		"component": map[string]interface{}{
			"name":    "vault-valuator",
			"version": "1.0.0",
		},
		"database_healthy": dbHealthy,
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// handleListVaults returns configured vaults ranked by APY
func (ws *WebServer) handleListVaults(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= maxListLimit {
			limit = parsedLimit
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	ranks, err := ws.service.ListRanked(ctx, limit)
	if err != nil {
		ws.writeServiceError(w, err, "Failed to rank vaults")
		return
	}

	response := map[string]interface{}{
		"vaults": ranks,
		"count":  len(ranks),
		"limit":  limit,
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleValuation returns the full valuation of one vault
func (ws *WebServer) handleValuation(w http.ResponseWriter, r *http.Request) {
	address, ok := ws.vaultAddress(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	v, err := ws.service.Valuation(ctx, address)
	if err != nil {
		ws.writeServiceError(w, err, "Failed to value vault")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, v)
}

// handlePerformance returns only the PI/RPI series of one vault
func (ws *WebServer) handlePerformance(w http.ResponseWriter, r *http.Request) {
	address, ok := ws.vaultAddress(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	series, err := ws.service.Performance(ctx, address)
	if err != nil {
		ws.writeServiceError(w, err, "Failed to compute performance index")
		return
	}

	response := map[string]interface{}{
		"vault":  address,
		"series": series,
		"count":  len(series),
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

func (ws *WebServer) handleQuoteSwap(w http.ResponseWriter, r *http.Request) {
	address, ok := ws.vaultAddress(w, r)
	if !ok {
		return
	}
	tokenIn := r.URL.Query().Get("token_in")
	if !ethcommon.IsHexAddress(tokenIn) {
		ws.writeErrorResponse(w, http.StatusBadRequest, "token_in must be a hex address")
		return
	}
	amountIn, ok := ws.amountParam(w, r, "amount_in")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	quote, err := ws.service.QuoteSwap(ctx, address, tokenIn, amountIn)
	if err != nil {
		ws.writeServiceError(w, err, "Failed to quote swap")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, quote)
}

func (ws *WebServer) handleQuoteAdd(w http.ResponseWriter, r *http.Request) {
	address, ok := ws.vaultAddress(w, r)
	if !ok {
		return
	}
	amount0, ok := ws.amountParam(w, r, "amount0")
	if !ok {
		return
	}
	amount1, ok := ws.amountParam(w, r, "amount1")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	quote, err := ws.service.QuoteAdd(ctx, address, amount0, amount1)
	if err != nil {
		ws.writeServiceError(w, err, "Failed to quote liquidity add")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, quote)
}

func (ws *WebServer) handleQuoteRemove(w http.ResponseWriter, r *http.Request) {
	address, ok := ws.vaultAddress(w, r)
	if !ok {
		return
	}
	lpAmount, ok := ws.amountParam(w, r, "lp_amount")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	quote, err := ws.service.QuoteRemove(ctx, address, lpAmount)
	if err != nil {
		ws.writeServiceError(w, err, "Failed to quote liquidity removal")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, quote)
}

// vaultAddress validates the {address} path variable
func (ws *WebServer) vaultAddress(w http.ResponseWriter, r *http.Request) (string, bool) {
	address := mux.Vars(r)["address"]
	if !ethcommon.IsHexAddress(address) {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid vault address")
		return "", false
	}
	return types.NormalizeAddress(address), true
}

// amountParam parses a raw integer amount from the query string
func (ws *WebServer) amountParam(w http.ResponseWriter, r *http.Request, name string) (sdkmath.Int, bool) {
	raw := r.URL.Query().Get(name)
	amount, ok := sdkmath.NewIntFromString(raw)
	if !ok {
		ws.writeErrorResponse(w, http.StatusBadRequest, name+" must be an integer amount in raw token units")
		return sdkmath.Int{}, false
	}
	return amount, true
}

// statusForError maps service errors to HTTP status codes
func statusForError(err error) int {
	switch {
	case errors.Is(err, amm.ErrNilAmount),
		errors.Is(err, amm.ErrNegativeAmount),
		errors.Is(err, amm.ErrOverflow),
		errors.Is(err, vaults.ErrTokenNotInPair),
		errors.Is(err, datafetcher.ErrInvalidAddress):
		return http.StatusBadRequest
	case errors.Is(err, state.ErrVaultNotFound),
		errors.Is(err, datafetcher.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, amm.ErrDegenerateReserves):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, datafetcher.ErrSubgraphUnavailable),
		errors.Is(err, datafetcher.ErrGraphQL),
		errors.Is(err, datafetcher.ErrInvalidPayload),
		errors.Is(err, datafetcher.ErrTooManyPages),
		errors.Is(err, valuation.ErrInvalidInput),
		errors.Is(err, valuation.ErrQuoteNotInPair),
		errors.Is(err, config.ErrIdenticalPair),
		errors.Is(err, config.ErrEmptyToken),
		errors.Is(err, vaults.ErrPairMismatch):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError logs err and writes it with the mapped status
func (ws *WebServer) writeServiceError(w http.ResponseWriter, err error, message string) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		webLogger.Error().Err(err).Int("status", status).Msg(message)
	} else {
		webLogger.Debug().Err(err).Int("status", status).Msg(message)
	}
	ws.writeErrorResponse(w, status, message+": "+err.Error())
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests and records request metrics
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)

		// route template keeps label cardinality bounded
		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				path = tmpl
			}
		}
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapper.statusCode)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration.Seconds())

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
