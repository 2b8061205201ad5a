package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

type sessionRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

type createResponse struct {
	Info
	Greeting string `json:"greeting"`
}

type deleteResponse struct {
	SessionID string `json:"session_id"`
	Final     string `json:"final"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler returns the HTTP API:
//
//	POST     /v1/session/create   {"session_id"?}         -> session + greeting
//	POST     /v1/session/respond  {"session_id", "text"}  -> reply
//	GET|POST /v1/session/get      session_id              -> session
//	POST     /v1/session/delete   {"session_id"}          -> closing line
//	GET      /v1/sessions                                 -> every session
//	GET      /metrics
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/session/create", s.handleCreate)
	mux.HandleFunc("POST /v1/session/respond", s.handleRespond)
	mux.HandleFunc("GET /v1/session/get", s.handleGet)
	mux.HandleFunc("POST /v1/session/get", s.handleGet)
	mux.HandleFunc("POST /v1/session/delete", s.handleDelete)
	mux.HandleFunc("GET /v1/sessions", s.handleList)
	mux.Handle("GET /metrics", s.metrics.Handler())
	return mux
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if r.ContentLength != 0 {
		if !s.decode(w, r, &req) {
			return
		}
	}
	info, greeting, err := s.Create(r.Context(), req.SessionID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createResponse{Info: info, Greeting: greeting})
}

func (s *Server) handleRespond(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.SessionID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "session_id is required"})
		return
	}
	turn, err := s.Respond(r.Context(), req.SessionID, req.Text)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, turn)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if r.Method == http.MethodGet {
		req.SessionID = r.URL.Query().Get("session_id")
	} else if !s.decode(w, r, &req) {
		return
	}
	if req.SessionID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "session_id is required"})
		return
	}
	info, err := s.Get(r.Context(), req.SessionID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !s.decode(w, r, &req) {
		return
	}
	final, err := s.Delete(r.Context(), req.SessionID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{SessionID: req.SessionID, Final: final})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	infos, err := s.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if infos == nil {
		infos = []Info{}
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON: " + err.Error()})
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrSessionExists):
		status = http.StatusConflict
	default:
		s.log.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
