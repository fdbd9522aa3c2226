package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"locbridge/pkg/model"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// failureStatus maps a positioning failure to an HTTP status.
func failureStatus(code model.ErrorCode) int {
	switch code {
	case model.PermissionDenied:
		return http.StatusForbidden
	case model.Timeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusServiceUnavailable
	}
}

func writeFailure(w http.ResponseWriter, f *model.Failure) {
	writeJSON(w, failureStatus(f.Code), f)
}

// writeErr writes err as a failure when it is one, otherwise as a 500.
func writeErr(w http.ResponseWriter, err error) {
	var f *model.Failure
	if errors.As(err, &f) {
		writeFailure(w, f)
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

// parseQueryOptions reads request options from URL query parameters.
// Durations are milliseconds, distanceFilter is meters.
func parseQueryOptions(q url.Values) (model.RequestOptions, error) {
	var o model.RequestOptions

	ms := func(key string) (*int64, error) {
		s := q.Get(key)
		if s == "" {
			return nil, nil
		}
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %q", key, s)
		}
		if v < 0 {
			return nil, fmt.Errorf("%s must not be negative", key)
		}
		return &v, nil
	}

	var err error
	if o.Timeout, err = ms("timeout"); err != nil {
		return o, err
	}
	if o.MaximumAge, err = ms("maximumAge"); err != nil {
		return o, err
	}
	if o.Interval, err = ms("interval"); err != nil {
		return o, err
	}
	if s := q.Get("enableHighAccuracy"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return o, fmt.Errorf("invalid enableHighAccuracy: %q", s)
		}
		o.EnableHighAccuracy = &b
	}
	if s := q.Get("distanceFilter"); s != "" {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f < 0 {
			return o, fmt.Errorf("invalid distanceFilter: %q", s)
		}
		o.DistanceFilter = &f
	}
	return o, nil
}
