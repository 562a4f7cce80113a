package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/UnknownOlympus/rdgeo/internal/models"
)

const errNotFinite = "conversion result is not a finite number"

// convertRD handles GET /v1/convert/rd?x=..&y=.. and answers with WGS84 coordinates.
func convertRD(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(log, w, r, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		x, err := floatParam(r, "x")
		if err != nil {
			writeError(log, w, r, http.StatusBadRequest, err.Error())
			return
		}
		y, err := floatParam(r, "y")
		if err != nil {
			writeError(log, w, r, http.StatusBadRequest, err.Error())
			return
		}

		coords := models.RDPoint{X: x, Y: y}.ToWGS84()
		if !finite(coords.Latitude, coords.Longitude) {
			writeError(log, w, r, http.StatusUnprocessableEntity, errNotFinite)
			return
		}

		writeJSON(log, w, r, http.StatusOK, coords)
	}
}

// convertWGS84 handles GET /v1/convert/wgs84?lat=..&lon=.. and answers with RD coordinates.
func convertWGS84(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(log, w, r, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		lat, err := floatParam(r, "lat")
		if err != nil {
			writeError(log, w, r, http.StatusBadRequest, err.Error())
			return
		}
		lon, err := floatParam(r, "lon")
		if err != nil {
			writeError(log, w, r, http.StatusBadRequest, err.Error())
			return
		}

		point := models.Coordinates{Latitude: lat, Longitude: lon}.ToRD()
		if !finite(point.X, point.Y) {
			writeError(log, w, r, http.StatusUnprocessableEntity, errNotFinite)
			return
		}

		writeJSON(log, w, r, http.StatusOK, point)
	}
}

// floatParam parses a required finite query parameter. JSON cannot carry NaN or Inf.
func floatParam(r *http.Request, name string) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, fmt.Errorf("missing query parameter %q", name)
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || !finite(value) {
		return 0, fmt.Errorf("query parameter %q must be a finite number", name)
	}

	return value, nil
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// writeJSON encodes v before touching the response so an encoding failure still yields a 500.
func writeJSON(log *slog.Logger, w http.ResponseWriter, r *http.Request, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		log.ErrorContext(r.Context(), "encode failed", "method", r.Method, "path", r.URL.Path, "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal error"}` + "\n"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err = w.Write(append(body, '\n')); err != nil {
		log.ErrorContext(r.Context(), "failed to write reply", "path", r.URL.Path, "error", err)
	}
}

func writeError(log *slog.Logger, w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(log, w, r, status, map[string]string{"error": msg})
}
