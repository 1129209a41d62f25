package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"roombook/internal/app"
	"roombook/internal/ratelimit"
	"roombook/internal/util"
	"roombook/pkg/domain"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App                      *app.App
	RedisAddr                string
	RedisPassword            string
	VerifyRateLimitPerMinute int
	TrustedProxies           *util.TrustedProxies
}

// Server exposes the reservation API over HTTP.
type Server struct {
	app           *app.App
	mux           *http.ServeMux
	verifyLimiter *ratelimit.FixedWindowLimiter
	trusted       *util.TrustedProxies
}

// New constructs the server with routes configured. Key verification is
// rate limited per client IP to slow down brute-forcing.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("server requires the application core")
	}
	limit := cfg.VerifyRateLimitPerMinute
	if limit <= 0 {
		limit = 10
	}
	verifyLimiter, err := ratelimit.NewRedisFixedWindowLimiter(
		cfg.RedisAddr, cfg.RedisPassword, "roombook:ratelimit:verify", limit, time.Minute)
	if err != nil {
		return nil, fmt.Errorf("init verify limiter: %w", err)
	}
	s := &Server{
		app:           cfg.App,
		mux:           http.NewServeMux(),
		verifyLimiter: verifyLimiter,
		trusted:       cfg.TrustedProxies,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithSecurityHeaders(util.WithCORS(util.WithRequestLog("roombook", util.WithRequestID(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/api/reservations", s.handleReservations)
	s.mux.HandleFunc("/api/reservations/", s.handleReservationByID)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// /api/reservations
func (s *Server) handleReservations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleList(w, r)
	case http.MethodPost:
		s.handleCreate(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	filter := app.FilterUpcoming
	switch r.URL.Query().Get("filter") {
	case "", "upcoming":
	case "past":
		filter = app.FilterPast
	default:
		writeError(w, http.StatusBadRequest, "filter must be upcoming or past")
		return
	}
	reservations, err := s.app.ListReservations(r.Context(), filter)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": reservations,
		"count": len(reservations),
	})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req reservationRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	cand, verrs := req.toDomain()
	if len(verrs) > 0 {
		s.writeAppError(w, r, verrs)
		return
	}
	created, err := s.app.CreateReservation(r.Context(), cand)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// /api/reservations/{id}[/verify-private-key|/verify-public-key]
func (s *Server) handleReservationByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/reservations/")
	parts := strings.Split(rest, "/")
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusNotFound, "reservation not found")
		return
	}
	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			s.handleGet(w, r, id)
		case http.MethodPut:
			s.handleEdit(w, r, id)
		case http.MethodDelete:
			s.handleDelete(w, r, id)
		default:
			methodNotAllowed(w)
		}
	case len(parts) == 2 && parts[1] == "verify-private-key":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		s.handleVerifyPrivateKey(w, r, id)
	case len(parts) == 2 && parts[1] == "verify-public-key":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		s.handleVerifyPublicKey(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request, id int64) {
	res, err := s.app.GetReservation(r.Context(), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request, id int64) {
	token, ok := bearerToken(r)
	if !ok {
		s.audit(r, "reservation.edit", "fail", "reason", "missing_credential", "id", id)
		s.writeForbiddenWithVerifyHint(w, id)
		return
	}
	var req reservationRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	upd, verrs := req.toDomain()
	if len(verrs) > 0 {
		s.writeAppError(w, r, verrs)
		return
	}
	res, err := s.app.EditReservation(r.Context(), id, upd, token)
	if err != nil {
		s.audit(r, "reservation.edit", "fail", "reason", err.Error(), "id", id)
		s.writeAppError(w, r, err)
		return
	}
	s.audit(r, "reservation.edit", "success", "id", id)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request, id int64) {
	token, ok := bearerToken(r)
	if !ok {
		s.audit(r, "reservation.delete", "fail", "reason", "missing_credential", "id", id)
		s.writeForbiddenWithVerifyHint(w, id)
		return
	}
	if err := s.app.DeleteReservation(r.Context(), id, token); err != nil {
		s.audit(r, "reservation.delete", "fail", "reason", err.Error(), "id", id)
		s.writeAppError(w, r, err)
		return
	}
	s.audit(r, "reservation.delete", "success", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleVerifyPrivateKey(w http.ResponseWriter, r *http.Request, id int64) {
	if !s.allowRate(w, r, "too many key verification attempts") {
		s.audit(r, "reservation.verify_private_key", "rate_limited", "id", id)
		return
	}
	var req verifyPrivateKeyRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	action := domain.ActionEdit
	if req.ReturnAction != "" {
		action = domain.Action(strings.ToLower(strings.TrimSpace(req.ReturnAction)))
	}
	token, cred, err := s.app.VerifyPrivateKey(r.Context(), id, req.PrivateKey, action)
	if err != nil {
		s.audit(r, "reservation.verify_private_key", "fail", "reason", err.Error(), "id", id)
		s.writeAppError(w, r, err)
		return
	}
	s.audit(r, "reservation.verify_private_key", "success", "id", id, "action", action)
	writeJSON(w, http.StatusOK, verifyPrivateKeyResponse{
		Token:         token,
		ReservationID: cred.ReservationID,
		Action:        cred.Action,
		ExpiresAt:     cred.ExpiresAt,
	})
}

func (s *Server) handleVerifyPublicKey(w http.ResponseWriter, r *http.Request, id int64) {
	if !s.allowRate(w, r, "too many key verification attempts") {
		s.audit(r, "reservation.verify_public_key", "rate_limited", "id", id)
		return
	}
	var req verifyPublicKeyRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	res, err := s.app.VerifyPublicKey(r.Context(), id, req.PublicKey)
	if err != nil {
		s.audit(r, "reservation.verify_public_key", "fail", "reason", err.Error(), "id", id)
		s.writeAppError(w, r, err)
		return
	}
	s.audit(r, "reservation.verify_public_key", "success", "id", id)
	writeJSON(w, http.StatusOK, res)
}

// writeForbiddenWithVerifyHint points an uncredentialed caller at the
// verification flow instead of silently failing. This mirrors the
// original UX choice; it is not a security boundary.
func (s *Server) writeForbiddenWithVerifyHint(w http.ResponseWriter, id int64) {
	writeJSON(w, http.StatusForbidden, map[string]string{
		"error":  "forbidden",
		"verify": fmt.Sprintf("/api/reservations/%d/verify-private-key", id),
	})
}

func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs app.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": verrs,
		})
	case errors.Is(err, app.ErrNotFound):
		writeError(w, http.StatusNotFound, "reservation not found")
	case errors.Is(err, app.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, app.ErrConflict):
		writeError(w, http.StatusConflict, "room already reserved for the requested time")
	default:
		slog.Error("request failed",
			"err", err,
			"path", r.URL.Path,
			"method", r.Method,
			"request_id", util.RequestIDFromRequest(r),
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", util.ClientIP(r, s.trusted),
		"request_id", util.RequestIDFromRequest(r),
	}
	logAttrs = append(logAttrs, attrs...)
	if outcome == "success" {
		slog.Info("security_event", logAttrs...)
		return
	}
	slog.Warn("security_event", logAttrs...)
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, msg string) bool {
	key := r.URL.Path + "|" + util.ClientIP(r, s.trusted)
	if s.verifyLimiter.Allow(key) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, msg)
	return false
}

type reservationRequest struct {
	Date         string `json:"date"`
	StartTime    string `json:"startTime"`
	EndTime      string `json:"endTime"`
	Room         string `json:"room"`
	Organizer    string `json:"organizer"`
	Remarks      string `json:"remarks"`
	Participants string `json:"participants"`
}

// toDomain parses the wire representation, accumulating format errors the
// same way the core accumulates semantic ones.
func (req reservationRequest) toDomain() (domain.Reservation, app.ValidationErrors) {
	var errs app.ValidationErrors
	res := domain.Reservation{
		Room:         domain.Room(strings.ToLower(strings.TrimSpace(req.Room))),
		Organizer:    strings.TrimSpace(req.Organizer),
		Remarks:      req.Remarks,
		Participants: req.Participants,
	}
	if strings.TrimSpace(req.Date) != "" {
		date, err := domain.ParseDate(strings.TrimSpace(req.Date))
		if err != nil {
			errs = append(errs, app.FieldError{Field: "date", Message: "date must be formatted YYYY-MM-DD"})
		} else {
			res.Date = date
		}
	}
	if strings.TrimSpace(req.StartTime) == "" {
		errs = append(errs, app.FieldError{Field: "startTime", Message: "start time is required"})
	} else if start, err := domain.ParseTimeOfDay(strings.TrimSpace(req.StartTime)); err != nil {
		errs = append(errs, app.FieldError{Field: "startTime", Message: "start time must be formatted HH:MM"})
	} else {
		res.StartTime = start
	}
	if strings.TrimSpace(req.EndTime) == "" {
		errs = append(errs, app.FieldError{Field: "endTime", Message: "end time is required"})
	} else if end, err := domain.ParseTimeOfDay(strings.TrimSpace(req.EndTime)); err != nil {
		errs = append(errs, app.FieldError{Field: "endTime", Message: "end time must be formatted HH:MM"})
	} else {
		res.EndTime = end
	}
	return res, errs
}

type verifyPrivateKeyRequest struct {
	PrivateKey   string `json:"privateKey"`
	ReturnAction string `json:"returnAction"`
}

type verifyPrivateKeyResponse struct {
	Token         string        `json:"token"`
	ReservationID int64         `json:"reservationId"`
	Action        domain.Action `json:"action"`
	ExpiresAt     time.Time     `json:"expiresAt"`
}

type verifyPublicKeyRequest struct {
	PublicKey string `json:"publicKey"`
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
