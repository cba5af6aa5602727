// Package api exposes the monitor state over HTTP and reports health over
// gRPC.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"sewamonitor/internal/config"
	"sewamonitor/internal/export"
	"sewamonitor/internal/logging"
	"sewamonitor/internal/metrics"
	"sewamonitor/internal/models"
	"sewamonitor/internal/monitor"
	"sewamonitor/internal/rental"
	"sewamonitor/internal/units"

	"github.com/rs/zerolog"
)

const (
	routeHealth  = "/healthz"
	routeRentals = "/api/v1/rentals"
	routeUnits   = "/api/v1/units"
	routeAlerts  = "/api/v1/alerts"
	routeExport  = "/api/v1/export.xlsx"
	routeRefresh = "/api/v1/refresh"

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// StateProvider exposes the latest monitor view.
type StateProvider interface {
	View() *monitor.View
}

// Monitor is the part of the coordinator the HTTP API drives.
type Monitor interface {
	StateProvider
	RefreshNow() bool
}

// AlertLister returns recently raised alerts, newest first.
type AlertLister interface {
	List() []models.AlertEvent
}

// HTTPServer serves the read-only JSON view, the spreadsheet export and the
// manual refresh trigger.
type HTTPServer struct {
	cfg     config.APIConfig
	exports config.ExportConfig
	monitor Monitor
	alerts  AlertLister
	auth    *HTTPAuth
	server  *http.Server
	logger  *zerolog.Logger
}

func NewHTTPServer(
	cfg config.APIConfig,
	exports config.ExportConfig,
	mon Monitor,
	alerts AlertLister,
	logger *zerolog.Logger,
) *HTTPServer {
	srv := &HTTPServer{
		cfg:     cfg,
		exports: exports,
		monitor: mon,
		alerts:  alerts,
		auth:    NewHTTPAuth(cfg),
		logger:  logging.Component(logger, "http"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(routeHealth, srv.handleHealth)
	mux.HandleFunc(routeRentals, srv.handleRentals)
	mux.HandleFunc(routeUnits, srv.handleUnits)
	mux.HandleFunc(routeAlerts, srv.handleAlerts)
	mux.HandleFunc(routeExport, srv.handleExport)
	mux.HandleFunc(routeRefresh, srv.handleRefresh)

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.loggingMiddleware(srv.auth.Wrap(mux)),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
	return srv
}

// Handler returns the full middleware chain, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return errors.New("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) view() *monitor.View {
	if view := s.monitor.View(); view != nil {
		return view
	}
	return &monitor.View{}
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	view := s.view()
	resp := map[string]any{"status": "ok"}
	statusCode := http.StatusOK
	if !view.Healthy() {
		resp["status"] = "degraded"
		statusCode = http.StatusServiceUnavailable
	}
	if !view.LastFetchAt.IsZero() {
		resp["last_fetch_at"] = view.LastFetchAt
	}
	if view.LastError != "" {
		resp["last_error"] = view.LastError
	}
	writeJSON(w, statusCode, resp)
}

type rentalResponse struct {
	ID               string    `json:"id"`
	Client           string    `json:"client"`
	Unit             string    `json:"unit"`
	Start            time.Time `json:"waktu_mulai"`
	End              time.Time `json:"waktu_selesai"`
	Price            float64   `json:"price"`
	BookingSource    string    `json:"booking_source"`
	State            string    `json:"state"`
	RemainingSeconds int64     `json:"remaining_seconds"`
	Countdown        string    `json:"countdown"`
	Alerted          bool      `json:"alerted"`
}

func toRentalResponse(rs monitor.RentalStatus) rentalResponse {
	return rentalResponse{
		ID:               rs.Rental.ID,
		Client:           rs.Rental.Client,
		Unit:             rs.Rental.Unit,
		Start:            rs.Rental.Start,
		End:              rs.Rental.End,
		Price:            rs.Rental.Price,
		BookingSource:    rs.Rental.BookingSource,
		State:            rs.Countdown.State.String(),
		RemainingSeconds: rs.Countdown.RemainingSeconds,
		Countdown:        rs.Countdown.Clock(),
		Alerted:          rs.Alerted,
	}
}

func (s *HTTPServer) handleRentals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	view := s.view()
	statuses := view.Rentals

	if raw := r.URL.Query().Get("state"); raw != "" {
		state, ok := rental.ParseState(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid state; expected active, upcoming or finished")
			return
		}
		statuses = view.ByState(state)
	}
	statuses = monitor.Filter(statuses, r.URL.Query().Get("source"))

	out := make([]rentalResponse, 0, len(statuses))
	for _, rs := range statuses {
		out = append(out, toRentalResponse(rs))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"generated_at": view.GeneratedAt,
		"count":        len(out),
		"rentals":      out,
	})
}

func (s *HTTPServer) handleUnits(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	view := s.view()
	list := view.Units
	if list == nil {
		list = []units.Status{}
	}
	total, occupied := units.Counts(list)

	writeJSON(w, http.StatusOK, map[string]any{
		"generated_at": view.GeneratedAt,
		"total":        total,
		"occupied":     occupied,
		"units":        list,
	})
}

func (s *HTTPServer) handleAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	alerts := []models.AlertEvent{}
	if s.alerts != nil {
		alerts = s.alerts.List()
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	view := s.view()
	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, view, s.exports); err != nil {
		s.logger.Error().Err(err).Msg("build export workbook")
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	fileName := fmt.Sprintf("sewa_%s.xlsx", view.GeneratedAt.Format("20060102_150405"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *HTTPServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if !s.monitor.RefreshNow() {
		writeError(w, http.StatusServiceUnavailable, "monitor is not running")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"triggered": true})
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		metrics.IncHTTP(endpointLabel(r.URL.Path), recorder.status)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// endpointLabel keeps the metric label set bounded.
func endpointLabel(path string) string {
	switch path {
	case routeHealth, routeRentals, routeUnits, routeAlerts, routeExport, routeRefresh:
		return path
	default:
		return "other"
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
