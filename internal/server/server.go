// Package server exposes one edit session over HTTP for a browser front end.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mhpenta/imageedit"
)

// uploadOverhead leaves room for multipart framing around the largest image.
const uploadOverhead = 1 << 20

// Server serves a single Session.
type Server struct {
	session  *imageedit.Session
	registry *imageedit.DisplayRegistry
	storage  imageedit.Storage
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithStorage enables POST /api/export.
func WithStorage(storage imageedit.Storage) Option {
	return func(s *Server) {
		s.storage = storage
	}
}

// WithGatherer serves metrics from g on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithLogger sets the server's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a Server. registry must be the one the session's ImageSource
// issues display handles from.
func New(session *imageedit.Session, registry *imageedit.DisplayRegistry, opts ...Option) *Server {
	s := &Server{
		session:  session,
		registry: registry,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
	)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.getState)
		r.Post("/image", s.postImage)
		r.Put("/instruction", s.putInstruction)
		r.Post("/generate", s.postGenerate)
		r.Post("/reset", s.postReset)
		r.Get("/display/{id}", s.getDisplay)
		r.Get("/result", s.getResult)
		r.Post("/export", s.postExport)
	})

	return r
}

func (s *Server) getState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) postImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, imageedit.MaxImageSize+uploadOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid upload: "+err.Error())
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing form field \"image\"")
		return
	}
	defer file.Close()

	err = s.session.AcquireImage(r.Context(), imageedit.RawFile{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Reader:      file,
	})
	switch {
	case errors.Is(err, imageedit.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, imageedit.ErrSessionBusy):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		s.logger.Error("acquiring image failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "failed to read image")
		return
	}

	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

type instructionRequest struct {
	Instruction string `json:"instruction"`
}

func (s *Server) putInstruction(w http.ResponseWriter, r *http.Request) {
	var body instructionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.session.SetInstruction(body.Instruction)
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

type generateResponse struct {
	Started bool               `json:"started"`
	State   imageedit.Snapshot `json:"state"`
}

func (s *Server) postGenerate(w http.ResponseWriter, r *http.Request) {
	// A dropped connection does not cancel the edit; reset is the way to abandon it.
	snap, started := s.session.Generate(context.WithoutCancel(r.Context()))
	writeJSON(w, http.StatusOK, generateResponse{Started: started, State: snap})
}

func (s *Server) postReset(w http.ResponseWriter, _ *http.Request) {
	s.session.Reset()
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) getDisplay(w http.ResponseWriter, r *http.Request) {
	data, mimeType, ok := s.registry.Resolve(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "display handle not found")
		return
	}
	writeImage(w, data, mimeType)
}

func (s *Server) getResult(w http.ResponseWriter, _ *http.Request) {
	img, ok := s.session.Result()
	if !ok {
		writeError(w, http.StatusNotFound, imageedit.ErrNoResult.Error())
		return
	}
	writeImage(w, img.Data, img.MIMEType)
}

func (s *Server) postExport(w http.ResponseWriter, r *http.Request) {
	res, err := s.session.Export(r.Context(), s.storage)
	switch {
	case errors.Is(err, imageedit.ErrNoResult):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, imageedit.ErrStorageNotConfigured):
		writeError(w, http.StatusNotImplemented, err.Error())
		return
	case err != nil:
		s.logger.Error("export failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "failed to export image")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func writeImage(w http.ResponseWriter, data []byte, mimeType string) {
	if strings.TrimSpace(mimeType) == "" {
		mimeType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
