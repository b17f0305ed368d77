package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/laval/internal/query"
	"github.com/woozymasta/laval/internal/vars"
	"github.com/woozymasta/laval/internal/view"
)

// lookupResponse is the answer of the lookup API: the result to display and the toasts to show.
type lookupResponse struct {
	Notifications []query.Notification `json:"notifications"`
	Node          view.Node            `json:"node"`
}

// handleIndex renders the lookup page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := s.index.Execute(w, map[string]string{
		"Name":       vars.Name,
		"Version":    vars.Version,
		"ManagerURL": s.managerURL,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to render index page")
	}
}

// handleNodeConfig runs one lookup in the caller's session.
// Accepts ?name= on GET, and a JSON or form body on POST.
func (s *Server) handleNodeConfig(w http.ResponseWriter, r *http.Request) {
	name, err := s.readName(w, r)
	if err != nil {
		log.Debug().
			Err(err).
			Str("ip", GetRealIP(r, s.trustProxy)).
			Msg("Invalid lookup request")

		respondJSON(w, http.StatusBadRequest, errorBody{Message: "Invalid request body"})
		return
	}

	sess := s.sessionFor(w, r)

	// a started lookup runs to completion even if the browser goes away
	res, err := sess.client.Submit(context.WithoutCancel(r.Context()), name)
	if errors.Is(err, query.ErrInFlight) {
		respondJSON(w, http.StatusConflict, errorBody{Message: "A lookup is already in progress"})
		return
	}

	log.Info().
		Str("node", res.NodeName).
		Str("outcome", string(res.Outcome)).
		Dur("duration", res.Duration).
		Str("ip", GetRealIP(r, s.trustProxy)).
		Msg("Node lookup")

	respondJSON(w, http.StatusOK, lookupResponse{
		Node:          view.FromResult(res),
		Notifications: sess.notes.Drain(),
	})
}

func (s *Server) readName(w http.ResponseWriter, r *http.Request) (string, error) {
	if r.Method == http.MethodGet {
		return r.URL.Query().Get("name"), nil
	}

	if s.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req lookupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return "", fmt.Errorf("decode json body: %w", err)
		}
		return req.Name, nil
	}

	if err := r.ParseForm(); err != nil {
		return "", fmt.Errorf("parse form: %w", err)
	}

	return r.PostForm.Get("name"), nil
}

// handleLookups returns the most recent audit records.
// Query params: ?limit=50
func (s *Server) handleLookups(w http.ResponseWriter, r *http.Request) {
	limit := s.historySize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	lookups, err := s.audit.RecentLookups(limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch lookups")
		http.Error(w, "Database Error", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, lookups)
}

// handleVersion returns build information.
func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, vars.Info())
}

// handleHealth answers liveness probes.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, "ok")
}
