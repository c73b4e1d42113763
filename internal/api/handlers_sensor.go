package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/nerrad567/homelink-bridge/internal/reading"
)

// noSensorDataMessage is the 404 body for an empty readings table.
// Web clients match on this string.
const noSensorDataMessage = "No sensor data available"

// handleLatestReading returns the most recent sensor reading.
//
// GET /sensor/latest?sensorId=DHT22
//
// The optional sensorId query restricts the lookup to one stream. The
// Redis cache is consulted first when configured; SQLite is the fallback
// and the authority.
func (s *Server) handleLatestReading(w http.ResponseWriter, r *http.Request) {
	sensorID := r.URL.Query().Get("sensorId")

	if s.cache != nil {
		if cached, err := s.cache.Latest(r.Context(), sensorID); err == nil {
			writeSuccess(w, http.StatusOK, cached)
			return
		} else if !errors.Is(err, reading.ErrCacheMiss) {
			s.logger.Warn("latest-reading cache lookup failed", "error", err)
		}
	}

	latest, err := s.readings.Latest(r.Context(), sensorID)
	if errors.Is(err, reading.ErrNotFound) {
		writeFailure(w, http.StatusNotFound, noSensorDataMessage)
		return
	}
	if err != nil {
		s.logger.Error("failed to query latest reading", "error", err)
		writeInternalError(w, "failed to retrieve sensor data")
		return
	}

	writeSuccess(w, http.StatusOK, latest)
}

// handleReadingHistory returns recent readings, newest first.
//
// GET /sensor/history?sensorId=MQ2&limit=100&offset=0
func (s *Server) handleReadingHistory(w http.ResponseWriter, r *http.Request) {
	filter := reading.Filter{
		SensorID: r.URL.Query().Get("sensorId"),
	}

	var ok bool
	if filter.Limit, ok = queryInt(w, r, "limit"); !ok {
		return
	}
	if filter.Offset, ok = queryInt(w, r, "offset"); !ok {
		return
	}

	readings, err := s.readings.History(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to query reading history", "error", err)
		writeInternalError(w, "failed to retrieve sensor data")
		return
	}

	writeSuccess(w, http.StatusOK, readings)
}

// queryInt parses an optional integer query parameter.
// On a malformed value it writes a 400 response and returns ok=false.
func queryInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		writeBadRequest(w, name+" must be an integer")
		return 0, false
	}
	return v, true
}
