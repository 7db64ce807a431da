package api

import (
	"net/http"

	rerrors "inferd/internal/errors"
)

// SessionInfo is one entry of the session listing
type SessionInfo struct {
	SessionID         string  `json:"session_id"`
	CreatedAt         string  `json:"created_at"`
	ModelName         string  `json:"model_name"`
	InferenceCount    int64   `json:"inference_count"`
	LastInferenceTime *string `json:"last_inference_time"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	id := s.registry.CreateSession("")
	snap, _ := s.registry.Get(id)
	s.logger.Info("Session created", "session_id", id)

	WriteJSON(w, map[string]interface{}{
		"status":     "success",
		"session_id": id,
		"created_at": isoTime(snap.CreatedAt),
		"model":      snap.ModelName,
	}, http.StatusOK)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	snaps := s.registry.ListSessions()
	sessions := make([]SessionInfo, 0, len(snaps))
	for _, snap := range snaps {
		info := SessionInfo{
			SessionID:      snap.ID,
			CreatedAt:      isoTime(snap.CreatedAt),
			ModelName:      snap.ModelName,
			InferenceCount: snap.InferenceCount,
		}
		if snap.LastInferenceAt != nil {
			ts := isoTime(*snap.LastInferenceAt)
			info.LastInferenceTime = &ts
		}
		sessions = append(sessions, info)
	}

	WriteJSON(w, map[string]interface{}{
		"status":         "success",
		"total_sessions": len(sessions),
		"sessions":       sessions,
	}, http.StatusOK)
}

// handleReset clears the registry. Operators turn it off with
// server.enableReset=false, in which case handleResetDisabled is bound instead.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	before := s.registry.Stats()
	s.registry.Reset()
	s.logger.Warn("Router state reset",
		"dropped_sessions", before.ActiveSessions,
		"dropped_inferences", before.InferenceCount,
		"request_id", GetRequestID(r.Context()),
	)

	WriteJSON(w, map[string]interface{}{
		"status":         "success",
		"message":        "Router state reset complete",
		"uptime_seconds": s.registry.Uptime().Seconds(),
	}, http.StatusOK)
}

func (s *Server) handleResetDisabled(w http.ResponseWriter, r *http.Request) {
	WriteRouterError(w, rerrors.New(rerrors.ResetDisabled, "Reset is disabled on this server", nil))
}
