package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"jamalekbot/pkg/session"
)

const landingPage = `<!doctype html>
<html lang="fr">
<head><meta charset="utf-8"><title>Jamalek Online Bot</title></head>
<body>
<h1>Jamalek Online Bot</h1>
<p>Le serveur est en ligne!</p>
<p><a href="/status">Vérifier le statut</a></p>
</body>
</html>
`

const oauthAcknowledgement = "Authentification reçue! Cette fonctionnalité sera activée prochainement."

type statusResponse struct {
	Status    string  `json:"status"`
	Service   string  `json:"service"`
	Timestamp string  `json:"timestamp"`
	Uptime    float64 `json:"uptime"`
	Session   string  `json:"session"`
	SelfID    string  `json:"self_id,omitempty"`
	// PairingSince is set while a pairing code waits to be scanned. The code
	// itself is only shown on the terminal.
	PairingSince string `json:"pairing_since,omitempty"`
}

func (s *Service) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleLanding)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /oauth2callback", s.handleOAuthCallback)

	return mux
}

func (s *Service) handleLanding(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(landingPage))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.respondStatus(w, http.StatusOK, "online")
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondStatus(w, http.StatusOK, "ok")
}

// handleReady reports ready only while the session is connected.
func (s *Service) handleReady(w http.ResponseWriter, _ *http.Request) {
	if s.session.State() != session.StateConnected {
		s.respondStatus(w, http.StatusServiceUnavailable, "not_ready")
		return
	}

	s.respondStatus(w, http.StatusOK, "ready")
}

// handleOAuthCallback acknowledges the redirect. Token exchange is done out
// of band; the code is never logged.
func (s *Service) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	s.log.Info("OAuth callback received", "has_code", r.URL.Query().Get("code") != "")

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(oauthAcknowledgement))
}

func (s *Service) respondStatus(w http.ResponseWriter, statusCode int, status string) {
	payload := s.currentStatus(status)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("Failed to write status response", "error", err)
	}
}

func (s *Service) currentStatus(status string) statusResponse {
	s.mu.RLock()
	startedAt := s.startedAt
	s.mu.RUnlock()

	now := time.Now().UTC()
	uptime := 0.0
	if !startedAt.IsZero() {
		uptime = now.Sub(startedAt).Seconds()
	}

	payload := statusResponse{
		Status:    status,
		Service:   serviceName,
		Timestamp: now.Format(time.RFC3339Nano),
		Uptime:    uptime,
		Session:   s.session.State().String(),
		SelfID:    s.session.SelfID(),
	}
	if challenge := s.session.Pairing(); challenge != nil {
		payload.PairingSince = challenge.IssuedAt.UTC().Format(time.RFC3339)
	}

	return payload
}
