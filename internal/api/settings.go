package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"locbridge/pkg/config"
	"locbridge/pkg/model"
)

// SettingsHandler reads and updates the runtime request defaults.
type SettingsHandler struct {
	prov *config.UnifiedProvider
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(prov *config.UnifiedProvider) *SettingsHandler {
	return &SettingsHandler{prov: prov}
}

// SettingsResponse is the wire form of config.Settings. Durations are milliseconds.
type SettingsResponse struct {
	CoordType          string  `json:"coordType"`
	Timeout            int64   `json:"timeout"`
	MaximumAge         int64   `json:"maximumAge"`
	EnableHighAccuracy bool    `json:"enableHighAccuracy"`
	Interval           int64   `json:"interval"`
	DistanceFilter     float64 `json:"distanceFilter"`
}

// HandleSettings dispatches GET, PUT and DELETE.
func (h *SettingsHandler) HandleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleGet(w, r)
	case http.MethodPut:
		h.handlePut(w, r)
	case http.MethodDelete:
		h.handleReset(w, r)
	default:
		w.Header().Set("Allow", "GET, PUT, DELETE")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *SettingsHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.response(r))
}

func (h *SettingsHandler) handlePut(w http.ResponseWriter, r *http.Request) {
	var req model.RequestOptions
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.prov.UpdateSettings(r.Context(), req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	slog.Info("Location defaults updated")
	writeJSON(w, http.StatusOK, h.response(r))
}

func (h *SettingsHandler) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := h.prov.ResetSettings(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.response(r))
}

func (h *SettingsHandler) response(r *http.Request) SettingsResponse {
	s := h.prov.Settings(r.Context())
	return SettingsResponse{
		CoordType:          h.prov.CoordType(r.Context()),
		Timeout:            s.Timeout.Milliseconds(),
		MaximumAge:         s.MaximumAge.Milliseconds(),
		EnableHighAccuracy: s.HighAccuracy,
		Interval:           s.Interval.Milliseconds(),
		DistanceFilter:     s.DistanceFilter,
	}
}
