// Package httphandler serves the local control API the presentation shell
// and the CLI use to read daemon status and change preferences.
package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ericfisherdev/prnotify/internal/application"
	"github.com/ericfisherdev/prnotify/internal/domain/model"
	"github.com/ericfisherdev/prnotify/internal/domain/port/driven"
)

// Poller is the subset of the poll service the API drives.
type Poller interface {
	Status() application.Status
	CheckNow(ctx context.Context) (application.CycleResult, error)
	Pause()
	Resume()
}

// SettingsManager is the subset of the settings service the API drives.
type SettingsManager interface {
	Settings(ctx context.Context) (model.Settings, error)
	SaveSettings(ctx context.Context, settings model.Settings) error
	SaveToken(ctx context.Context, token string) error
	HasToken(ctx context.Context) (bool, error)
	TestConnection(ctx context.Context, token string) application.ConnectionResult
	Snooze(ctx context.Context, d time.Duration, now time.Time) (time.Time, error)
	ClearSnooze(ctx context.Context) error
	SnoozeUntil(ctx context.Context) (time.Time, error)
}

// maxBodyBytes caps request bodies; the largest valid one is a settings
// record with 100 filters of 200 characters.
const maxBodyBytes = 64 << 10

// Handler is the HTTP driving adapter that serves the control API.
type Handler struct {
	poller   Poller
	settings SettingsManager
	logger   *slog.Logger
	now      func() time.Time
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(poller Poller, settings SettingsManager, logger *slog.Logger) *Handler {
	return &Handler{
		poller:   poller,
		settings: settings,
		logger:   logger,
		now:      time.Now,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /api/v1/status", h.Status)
	mux.HandleFunc("POST /api/v1/check", h.CheckNow)
	mux.HandleFunc("POST /api/v1/pause", h.Pause)
	mux.HandleFunc("POST /api/v1/resume", h.Resume)
	mux.HandleFunc("GET /api/v1/settings", h.GetSettings)
	mux.HandleFunc("PUT /api/v1/settings", h.PutSettings)
	mux.HandleFunc("GET /api/v1/token", h.TokenStatus)
	mux.HandleFunc("PUT /api/v1/token", h.PutToken)
	mux.HandleFunc("POST /api/v1/token/test", h.TestToken)
	mux.HandleFunc("POST /api/v1/snooze", h.Snooze)
	mux.HandleFunc("DELETE /api/v1/snooze", h.ClearSnooze)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   h.now().UTC().Format(time.RFC3339),
	})
}

// Status returns the tray state, pause flag and last cycle summary.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.status(r.Context()))
}

// CheckNow runs a poll cycle and returns its result. It is rejected while
// paused, without a token, or while another cycle runs.
func (h *Handler) CheckNow(w http.ResponseWriter, r *http.Request) {
	res, err := h.poller.CheckNow(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, NewCycleResponse(res))
	case errors.Is(err, application.ErrCycleInFlight), errors.Is(err, application.ErrPaused):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, application.ErrUnconfigured):
		writeError(w, http.StatusPreconditionFailed, err.Error())
	case errors.Is(err, driven.ErrAuth), errors.Is(err, driven.ErrNetwork):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		h.logger.Error("check now failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// Pause stops polling and returns the new status.
func (h *Handler) Pause(w http.ResponseWriter, r *http.Request) {
	h.poller.Pause()
	writeJSON(w, http.StatusOK, h.status(r.Context()))
}

// Resume restarts polling and returns the new status.
func (h *Handler) Resume(w http.ResponseWriter, r *http.Request) {
	h.poller.Resume()
	writeJSON(w, http.StatusOK, h.status(r.Context()))
}

// GetSettings returns the current preferences.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.Settings(r.Context())
	if err != nil {
		h.logger.Error("failed to load settings", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// PutSettings validates and saves preferences. Fields absent from the body
// keep their current values.
func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.Settings(r.Context())
	if err != nil {
		h.logger.Error("failed to load settings", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if !decodeBody(w, r, &settings) {
		return
	}

	if err := h.settings.SaveSettings(r.Context(), settings); err != nil {
		if writeValidationError(w, err) {
			return
		}
		h.logger.Error("failed to save settings", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, settings)
}

// TokenStatus reports whether a token is stored, without decrypting it.
func (h *Handler) TokenStatus(w http.ResponseWriter, r *http.Request) {
	ok, err := h.settings.HasToken(r.Context())
	if err != nil {
		h.logger.Error("failed to check token", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, TokenStatusResponse{Configured: ok})
}

// PutToken validates, encrypts and stores the GitHub token.
func (h *Handler) PutToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.settings.SaveToken(r.Context(), req.Token); err != nil {
		if writeValidationError(w, err) {
			return
		}
		if errors.Is(err, driven.ErrEncryptionUnavailable) {
			writeError(w, http.StatusServiceUnavailable, driven.ErrEncryptionUnavailable.Error())
			return
		}
		h.logger.Error("failed to save token", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// TestToken verifies a token against GitHub. An empty body or token tests the
// stored token. The outcome is always reported with 200.
func (h *Handler) TestToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}

	res := h.settings.TestConnection(r.Context(), req.Token)
	writeJSON(w, http.StatusOK, ConnectionResponse{
		Success:  res.Success,
		Username: res.Username,
		Message:  res.Message,
	})
}

// Snooze suppresses notifications for the requested duration.
func (h *Handler) Snooze(w http.ResponseWriter, r *http.Request) {
	var req SnoozeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	d, err := time.ParseDuration(req.Duration)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid duration: expected e.g. 30m or 2h", Field: "duration"})
		return
	}

	until, err := h.settings.Snooze(r.Context(), d, h.now())
	if err != nil {
		if writeValidationError(w, err) {
			return
		}
		h.logger.Error("failed to snooze", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, SnoozeResponse{SnoozeUntil: until.UTC().Format(time.RFC3339)})
}

// ClearSnooze ends any active snooze.
func (h *Handler) ClearSnooze(w http.ResponseWriter, r *http.Request) {
	if err := h.settings.ClearSnooze(r.Context()); err != nil {
		h.logger.Error("failed to clear snooze", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) status(ctx context.Context) StatusResponse {
	until, err := h.settings.SnoozeUntil(ctx)
	if err != nil {
		h.logger.Warn("snooze state unreadable", "error", err)
		until = time.Time{}
	}
	if !until.After(h.now()) {
		until = time.Time{}
	}
	return toStatusResponse(h.poller.Status(), until)
}

// decodeBody decodes the JSON request body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// writeValidationError writes a 400 if err is a *model.ValidationError.
func writeValidationError(w http.ResponseWriter, err error) bool {
	var verr *model.ValidationError
	if !errors.As(err, &verr) {
		return false
	}
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: verr.Error(), Field: verr.Field})
	return true
}
