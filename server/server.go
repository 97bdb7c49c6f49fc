//
// Tencent is pleased to support the open source community by making trpc-cassette-go available.
//
// Copyright (C) 2025 Tencent.
// All rights reserved.
//
// If you have downloaded a copy of the trpc-cassette-go source code from Tencent,
// please note that trpc-cassette-go source code is licensed under the  Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.
//
//

// Package server exposes cassette render sessions over HTTP. Clients list
// cassettes, open a session on one, follow its render passes as a stream of
// server-sent events and post handler values back.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"trpc.group/trpc-go/trpc-cassette-go/components"
	"trpc.group/trpc-go/trpc-cassette-go/gateway"
	"trpc.group/trpc-go/trpc-cassette-go/log"
	"trpc.group/trpc-go/trpc-cassette-go/registry"
	"trpc.group/trpc-go/trpc-cassette-go/render"
	"trpc.group/trpc-go/trpc-cassette-go/session"
)

// Server is the live UI HTTP surface.
type Server struct {
	source  Source
	router  *mux.Router
	handler http.Handler
	opts    options

	mu       sync.RWMutex
	sessions map[string]*session.Session
}

// Option configures the Server.
type Option func(*options)

type options struct {
	kinds          *render.Kinds
	namespace      string
	allowedOrigins []string
	sessionOpts    []session.Option
}

// WithKinds sets the task kinds sessions render with. The built-in
// components are used by default.
func WithKinds(kinds *render.Kinds) Option {
	return func(o *options) { o.kinds = kinds }
}

// WithNamespace sets the namespace used when a request names none.
func WithNamespace(ns string) Option {
	return func(o *options) { o.namespace = ns }
}

// WithAllowedOrigins sets the CORS origins.
func WithAllowedOrigins(origins ...string) Option {
	return func(o *options) { o.allowedOrigins = origins }
}

// WithSessionOptions appends options applied to every session.
func WithSessionOptions(opts ...session.Option) Option {
	return func(o *options) { o.sessionOpts = append(o.sessionOpts, opts...) }
}

// New creates a server rendering cassettes from source.
func New(source Source, opts ...Option) *Server {
	o := options{
		namespace:      "default",
		allowedOrigins: []string{"*"},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.kinds == nil {
		o.kinds = components.Kinds()
	}
	s := &Server{
		source:   source,
		router:   mux.NewRouter(),
		opts:     o,
		sessions: make(map[string]*session.Session),
	}
	c := cors.New(cors.Options{
		AllowedOrigins: o.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Content-Length", "Content-Type"},
	})
	// Preflights are answered before routing.
	s.handler = c.Handler(s.router)
	s.registerRoutes()
	return s
}

// Handler returns the http.Handler for the server.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/_health", s.handleHealth).Methods(http.MethodGet)

	s.router.HandleFunc("/api/c/{ns}", s.handleList).Methods(http.MethodGet)
	s.router.HandleFunc("/api/c/{ns}/{id}", s.handleGet).Methods(http.MethodGet)
	s.router.HandleFunc("/api/c/{ns}/{id}/sessions", s.handleOpen).Methods(http.MethodPost)

	s.router.HandleFunc("/api/sessions/{sid}", s.handleLast).Methods(http.MethodGet)
	s.router.HandleFunc("/api/sessions/{sid}", s.handleClose).Methods(http.MethodDelete)
	s.router.HandleFunc("/api/sessions/{sid}/events", s.handleEvents).Methods(http.MethodGet)
	s.router.HandleFunc("/api/sessions/{sid}/tasks/{task}/handlers/{handler}",
		s.handleSetValue).Methods(http.MethodPost)
}

// Close stops every open session.
func (s *Server) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*session.Session)
	s.mu.Unlock()
	for _, sess := range sessions {
		sess.Stop()
	}
}

// Sessions returns the number of open sessions.
func (s *Server) Sessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Server) namespace(r *http.Request) string {
	if ns := mux.Vars(r)["ns"]; ns != "" && ns != "-" {
		return ns
	}
	return s.opts.namespace
}

// ---- Handlers -----------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeOK(w, gateway.Health)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	log.Infof("handleList called: path=%s", r.URL.Path)
	refs, err := s.source.List(r.Context(), s.namespace(r))
	if err != nil {
		s.writeErr(w, http.StatusBadGateway, err)
		return
	}
	s.writeOK(w, refs)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	log.Infof("handleGet called: path=%s", r.URL.Path)
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		s.writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid cassette id: %w", err))
		return
	}
	c, err := s.source.Get(r.Context(), s.namespace(r), id)
	if err != nil {
		s.writeErr(w, statusOf(err), err)
		return
	}
	s.writeOK(w, c)
}

// openResponse is returned when a session is opened.
type openResponse struct {
	Session  string    `json:"session"`
	Cassette uuid.UUID `json:"cassette"`
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	log.Infof("handleOpen called: path=%s", r.URL.Path)
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		s.writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid cassette id: %w", err))
		return
	}
	ns := s.namespace(r)
	c, err := s.source.Get(r.Context(), ns, id)
	if err != nil {
		s.writeErr(w, statusOf(err), err)
		return
	}
	opts := append([]session.Option{session.WithNamespace(ns)}, s.opts.sessionOpts...)
	sess, err := session.New(c, s.opts.kinds, opts...)
	if err != nil {
		s.writeErr(w, http.StatusInternalServerError, err)
		return
	}
	s.mu.Lock()
	s.sessions[sess.ID()] = sess
	s.mu.Unlock()
	sess.Start()
	log.Infof("session %s opened for cassette %s", sess.ID(), c.ID)
	s.writeStatus(w, http.StatusCreated, openResponse{Session: sess.ID(), Cassette: c.ID})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sid := mux.Vars(r)["sid"]
	s.mu.RLock()
	sess, ok := s.sessions[sid]
	s.mu.RUnlock()
	if !ok {
		s.writeErr(w, http.StatusNotFound, fmt.Errorf("no such session: %s", sid))
	}
	return sess, ok
}

func (s *Server) handleLast(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	last, ok := sess.Last()
	if !ok {
		s.writeOK(w, nil)
		return
	}
	s.writeOK(w, last)
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	delete(s.sessions, sess.ID())
	s.mu.Unlock()
	sess.Stop()
	log.Infof("session %s closed", sess.ID())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported!", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	updates, cancel := sess.Subscribe()
	defer cancel()
	for {
		select {
		case <-r.Context().Done():
			return
		case u, ok := <-updates:
			if !ok {
				_ = writeEvent(w, "closed", openResponse{Session: sess.ID(), Cassette: sess.Cassette().ID})
				flusher.Flush()
				return
			}
			if err := writeEvent(w, "render", u); err != nil {
				log.Debugf("session %s: event stream ended: %v", sess.ID(), err)
				return
			}
			flusher.Flush()
		}
	}
}

func (s *Server) handleSetValue(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	defer r.Body.Close()
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		s.writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid value: %w", err))
		return
	}
	vars := mux.Vars(r)
	err := sess.SetValue(r.Context(), vars["task"], vars["handler"], raw)
	if err != nil {
		s.writeErr(w, statusOf(err), err)
		return
	}
	s.writeStatus(w, http.StatusAccepted, nil)
}

// ---- Helpers ------------------------------------------------------------

func statusOf(err error) int {
	switch {
	case errors.Is(err, gateway.ErrNotFound), errors.Is(err, registry.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, registry.ErrTypeMismatch):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrStopped):
		return http.StatusGone
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) writeOK(w http.ResponseWriter, v any) {
	s.writeStatus(w, http.StatusOK, v)
}

func (s *Server) writeStatus(w http.ResponseWriter, status int, v any) {
	env, err := gateway.OK(v)
	if err != nil {
		log.Errorf("Error marshalling response: %v", err)
		env, status = gateway.Err(err.Error()), http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func (s *Server) writeErr(w http.ResponseWriter, status int, err error) {
	log.Infof("request failed with %d: %v", status, err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(gateway.Err(err.Error()))
}
