package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"github.com/itransmotors/carbot/internal/calculator"
	"github.com/itransmotors/carbot/internal/database"
	"github.com/itransmotors/carbot/internal/metrics"
)

const (
	sessionName = "carbot_session"
	staffKey    = "staff"
)

// TariffService exposes the live tariff table and its refresh
type TariffService interface {
	Table() *calculator.Table
	Refresh(ctx context.Context) (*database.SyncHistory, error)
}

// Options configures the HTTP API
type Options struct {
	// StaffToken unlocks staff endpoints through POST /api/session; empty disables staff login
	StaffToken string
	Contacts   calculator.Contacts
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	db       *database.DB
	tariffs  TariffService
	sessions sessions.Store
	opts     Options
	logger   *zap.Logger
	now      func() time.Time
}

// NewHandler creates a new handler
func NewHandler(db *database.DB, tariffs TariffService, store sessions.Store, opts Options, logger *zap.Logger) *Handler {
	return &Handler{
		db:       db,
		tariffs:  tariffs,
		sessions: store,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// jsonResponse writes data as JSON
func (h *Handler) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("Error encoding JSON", zap.Error(err))
	}
}

// errorResponse writes {"error": message}
func (h *Handler) errorResponse(w http.ResponseWriter, status int, message string) {
	h.jsonResponse(w, status, map[string]string{"error": message})
}

// HealthCheck returns API health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	table := h.tariffs.Table()
	h.jsonResponse(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"tariffEntries": table.Len(),
		"copart":        table.Count(calculator.Copart),
		"iaai":          table.Count(calculator.IAAI),
	})
}

// GetLocations lists location keys, for one auction when ?auction= is set
func (h *Handler) GetLocations(w http.ResponseWriter, r *http.Request) {
	table := h.tariffs.Table()

	if q := r.URL.Query().Get("auction"); q != "" {
		auction, err := calculator.ParseAuction(q)
		if err != nil {
			h.errorResponse(w, http.StatusBadRequest, err.Error())
			return
		}
		locations := table.Locations(auction)
		h.jsonResponse(w, http.StatusOK, map[string]any{
			"auction":   auction,
			"locations": locations,
			"total":     len(locations),
		})
		return
	}

	all := make(map[calculator.Auction][]string)
	for _, a := range calculator.Auctions() {
		all[a] = table.Locations(a)
	}
	h.jsonResponse(w, http.StatusOK, map[string]any{
		"locations": all,
		"total":     table.Len(),
	})
}

// Calculate runs a landed-cost calculation. Pro mode requires a staff session.
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req calculator.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Mode == "" {
		req.Mode = calculator.ModeClient
	}
	if req.Mode == calculator.ModePro && !h.isStaff(r) {
		h.errorResponse(w, http.StatusForbidden, "staff session required for pro mode")
		return
	}

	table := h.tariffs.Table()
	if key, ok := table.MatchLocation(req.Auction, req.Location); ok {
		req.Location = key
	}

	result, err := calculator.Calculate(req, table, h.now())
	if err != nil {
		var verr *calculator.ValidationError
		switch {
		case errors.As(err, &verr):
			recordCalculation(req, metrics.OutcomeInvalid)
			h.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": verr.Error(), "field": verr.Field})
		case errors.Is(err, calculator.ErrLocationNotFound):
			recordCalculation(req, metrics.OutcomeLocationNotFound)
			h.errorResponse(w, http.StatusNotFound, err.Error())
		default:
			recordCalculation(req, metrics.OutcomeError)
			h.logger.Error("Calculation failed", zap.Error(err))
			h.errorResponse(w, http.StatusInternalServerError, "calculation failed")
		}
		return
	}
	recordCalculation(req, metrics.OutcomeOK)

	if req.Mode == calculator.ModePro {
		h.jsonResponse(w, http.StatusOK, map[string]any{
			"result": result,
			"report": calculator.ProReport(result),
		})
		return
	}
	h.jsonResponse(w, http.StatusOK, map[string]any{
		"total":  result.Total,
		"report": calculator.ClientReport(result, h.opts.Contacts),
	})
}

// recordCalculation counts an outcome. Unknown modes and auctions share
// the "unknown" label.
func recordCalculation(req calculator.Request, outcome string) {
	mode, auction := metrics.LabelUnknown, metrics.LabelUnknown
	if req.Mode.Valid() {
		mode = string(req.Mode)
	}
	if req.Auction.Valid() {
		auction = string(req.Auction)
	}
	metrics.Calculations.WithLabelValues(mode, auction, outcome).Inc()
}

type sessionRequest struct {
	Token string `json:"token"`
}

// CreateSession exchanges the staff token for a staff session cookie
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	if h.opts.StaffToken == "" {
		h.errorResponse(w, http.StatusForbidden, "staff login disabled")
		return
	}

	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Token), []byte(h.opts.StaffToken)) != 1 {
		h.logger.Warn("Rejected staff login", zap.String("remote", r.RemoteAddr))
		h.errorResponse(w, http.StatusUnauthorized, "invalid token")
		return
	}

	session, _ := h.sessions.Get(r, sessionName)
	session.Values[staffKey] = true
	if err := session.Save(r, w); err != nil {
		h.logger.Error("Failed to save session", zap.Error(err))
		h.errorResponse(w, http.StatusInternalServerError, "failed to save session")
		return
	}
	h.jsonResponse(w, http.StatusOK, map[string]any{"staff": true})
}

// DeleteSession logs the staff session out
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	session, _ := h.sessions.Get(r, sessionName)
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		h.logger.Error("Failed to delete session", zap.Error(err))
		h.errorResponse(w, http.StatusInternalServerError, "failed to delete session")
		return
	}
	h.jsonResponse(w, http.StatusOK, map[string]any{"staff": false})
}

func (h *Handler) isStaff(r *http.Request) bool {
	session, err := h.sessions.Get(r, sessionName)
	if err != nil || session == nil {
		return false
	}
	staff, _ := session.Values[staffKey].(bool)
	return staff
}

// requireStaff rejects requests without a staff session
func (h *Handler) requireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.isStaff(r) {
			h.errorResponse(w, http.StatusUnauthorized, "staff session required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RefreshTariffs reloads the tariff sheets
func (h *Handler) RefreshTariffs(w http.ResponseWriter, r *http.Request) {
	history, err := h.tariffs.Refresh(r.Context())
	if err != nil {
		h.logger.Error("Tariff refresh failed", zap.Error(err))
		h.jsonResponse(w, http.StatusBadGateway, map[string]any{
			"error":   err.Error(),
			"history": history,
		})
		return
	}
	h.jsonResponse(w, http.StatusOK, map[string]any{
		"history": history,
		"total":   h.tariffs.Table().Len(),
	})
}

// GetCalculations returns saved calculations
func (h *Handler) GetCalculations(w http.ResponseWriter, r *http.Request) {
	calcs, err := h.db.GetCalculations(limitParam(r))
	if err != nil {
		h.logger.Error("GetCalculations error", zap.Error(err))
		h.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	if calcs == nil {
		calcs = []database.Calculation{}
	}
	h.jsonResponse(w, http.StatusOK, map[string]any{
		"calculations": calcs,
		"total":        len(calcs),
	})
}

// GetSyncHistory returns tariff refresh history
func (h *Handler) GetSyncHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.db.GetSyncHistory(limitParam(r))
	if err != nil {
		h.logger.Error("GetSyncHistory error", zap.Error(err))
		h.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	if history == nil {
		history = []database.SyncHistory{}
	}
	h.jsonResponse(w, http.StatusOK, map[string]any{
		"history": history,
		"total":   len(history),
	})
}

func limitParam(r *http.Request) int {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return limit
}
