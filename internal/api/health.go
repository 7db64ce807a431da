package api

import (
	"net/http"
	"time"

	"inferd/internal/version"
)

// isoLayout renders UTC timestamps with microseconds and a Z suffix.
const isoLayout = "2006-01-02T15:04:05.000000Z"

func isoTime(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status                string  `json:"status"`
	UptimeSeconds         float64 `json:"uptime_seconds"`
	InferenceEngine       string  `json:"inference_engine"`
	InferenceRequestCount int64   `json:"inference_request_count"`
	ModelName             string  `json:"model_name"`
	ServerStartTime       string  `json:"server_start_time"`
	BootTimestampUnix     float64 `json:"boot_timestamp_unix"`
}

// StatusResponse represents the operational snapshot
type StatusResponse struct {
	Status                string  `json:"status"`
	ModelName             string  `json:"model_name"`
	ActiveSessionCount    int     `json:"active_session_count"`
	InferenceRequestCount int64   `json:"inference_request_count"`
	UptimeSeconds         float64 `json:"uptime_seconds"`
	CacheEnabled          bool    `json:"cache_enabled"`
	APIVersion            string  `json:"api_version"`
	TotalInferenceTimeMs  int64   `json:"total_inference_time_ms"`
	AverageLatencyMs      float64 `json:"average_latency_ms"`
}

// handleHealth reports liveness. It only reads the registry.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	st := s.registry.Stats()
	WriteJSON(w, HealthResponse{
		Status:                "healthy",
		UptimeSeconds:         st.Uptime.Seconds(),
		InferenceEngine:       s.engine.Name(),
		InferenceRequestCount: st.InferenceCount,
		ModelName:             st.ModelName,
		ServerStartTime:       isoTime(st.BootTime),
		BootTimestampUnix:     unixSeconds(st.BootTime),
	}, http.StatusOK)
}

// handleStatus reports the operational snapshot
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	st := s.registry.Stats()
	WriteJSON(w, StatusResponse{
		Status:                "operational",
		ModelName:             st.ModelName,
		ActiveSessionCount:    st.ActiveSessions,
		InferenceRequestCount: st.InferenceCount,
		UptimeSeconds:         st.Uptime.Seconds(),
		CacheEnabled:          st.CacheEnabled,
		APIVersion:            version.APIVersion,
		TotalInferenceTimeMs:  st.TotalLatencyMs,
		AverageLatencyMs:      st.AverageLatencyMs,
	}, http.StatusOK)
}
