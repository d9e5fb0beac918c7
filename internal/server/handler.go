package server

import (
	"encoding/json"
	"net/http"
)

// handleHealth responds with a simple JSON status indicating the server
// is alive.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
	})
}

// debugSessionResponse is the shape returned by GET /debug/session.
type debugSessionResponse struct {
	SessionID  string `json:"sessionId"`
	Primed     bool   `json:"primed"`
	Generation uint64 `json:"generation"`
}

// handleDebugSession reports the live session id, primed flag, and
// controller generation counter — an operator-facing introspection
// surface, not part of the completion/chat wire contract.
func (s *Server) handleDebugSession(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(debugSessionResponse{
		SessionID:  s.sess.ID,
		Primed:     s.sess.Primed,
		Generation: s.ctrl.Generation(),
	})
}
