package dashboard

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayonizm/folio/internal/model"
	"github.com/ayonizm/folio/internal/store"
)

const sessionCookie = "folio_session"

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/login", s.handleLogin)
	mux.HandleFunc("/api/logout", s.handleLogout)
	mux.HandleFunc("/api/hero", s.handleHero)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/clean", s.handleClean)
	mux.HandleFunc("/api/activity", s.handleActivity)
	mux.HandleFunc("/api/", s.handleCollection)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"clients": s.ClientCount(),
	})
}

// sessionToken pulls the admin session from the cookie or bearer header.
func sessionToken(r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil {
		return c.Value
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// requireSession gates mutating handlers on a valid admin session.
func (s *Server) requireSession(w http.ResponseWriter, r *http.Request) bool {
	if s.sessions.valid(sessionToken(r)) {
		return true
	}
	writeError(w, http.StatusUnauthorized, "authentication required")
	return false
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !s.store.Login(req.Password) {
		// Retryable; no lockout.
		writeError(w, http.StatusUnauthorized, "incorrect password")
		return
	}

	token := s.sessions.create()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	s.sessions.revoke(sessionToken(r))
	s.store.Logout()
	http.SetCookie(w, &http.Cookie{
		Name:   sessionCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// handleCollection serves /api/{collection} and /api/{collection}/{id}.
// Reads are public; mutations require a session.
func (s *Server) handleCollection(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/"), "/"), "/")
	collection := parts[0]
	if err := model.ValidCollection(collection); err != nil {
		writeError(w, http.StatusNotFound, "unknown collection")
		return
	}
	var id string
	if len(parts) > 1 {
		id = parts[1]
	}

	switch r.Method {
	case http.MethodGet:
		docs := s.store.List(r.Context(), collection)
		if collection == model.CollectionAchievements {
			docs = model.SortAchievements(docs)
		}
		writeJSON(w, http.StatusOK, docs)

	case http.MethodPost:
		if !s.requireSession(w, r) {
			return
		}
		var doc model.Doc
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			writeError(w, http.StatusBadRequest, "invalid document")
			return
		}
		created, err := s.store.Create(r.Context(), collection, doc)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, created)

	case http.MethodPut:
		if !s.requireSession(w, r) {
			return
		}
		if id == "" {
			writeError(w, http.StatusBadRequest, "document id required")
			return
		}
		var patch model.Doc
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeError(w, http.StatusBadRequest, "invalid document")
			return
		}
		updated, err := s.store.Update(r.Context(), collection, id, patch)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, updated)

	case http.MethodDelete:
		if !s.requireSession(w, r) {
			return
		}
		if id == "" {
			writeError(w, http.StatusBadRequest, "document id required")
			return
		}
		if err := s.store.Delete(r.Context(), collection, id); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})

	default:
		writeError(w, http.StatusMethodNotAllowed, "unsupported method")
	}
}

func (s *Server) handleHero(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.store.Hero(r.Context()))

	case http.MethodPut:
		if !s.requireSession(w, r) {
			return
		}
		var patch model.Doc
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeError(w, http.StatusBadRequest, "invalid document")
			return
		}
		updated, err := s.store.UpdateHero(r.Context(), patch)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, updated)

	default:
		writeError(w, http.StatusMethodNotAllowed, "unsupported method")
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}
	if s.aggregator == nil {
		writeError(w, http.StatusNotFound, "statistics not configured")
		return
	}

	report := s.aggregator.Aggregate(r.Context())

	if data, err := json.Marshal(report); err == nil {
		s.Broadcast(Message{Type: MessageTypeStats, Data: data})
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleClean(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	if !s.requireSession(w, r) {
		return
	}

	result, err := s.store.Clean(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if data, err := json.Marshal(result); err == nil {
		s.Broadcast(Message{Type: MessageTypeCleanComplete, Data: data})
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}
	if !s.requireSession(w, r) {
		return
	}

	ops, err := s.store.RecentActivity(50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ops)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
