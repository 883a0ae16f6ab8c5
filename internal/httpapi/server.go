package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/user/docchat/internal/broker"
	"github.com/user/docchat/internal/docstore"
	"github.com/user/docchat/internal/types"
)

// maxUploadBytes caps a single multipart upload.
const maxUploadBytes = 64 << 20

// Server exposes the chat and upload API over HTTP.
type Server struct {
	broker *broker.Broker
	store  *docstore.Store
	logger *slog.Logger
}

func NewServer(b *broker.Broker, store *docstore.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{broker: b, store: store, logger: logger}
}

// Handler returns the routed http.Handler for the API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/chat/stream/{job_id}", s.handleStream)
	mux.HandleFunc("POST /api/pdf/upload", s.handleUpload)
	mux.HandleFunc("POST /api/pdf/reset", s.handleReset)
	mux.Handle("GET /api/pdf/files/", http.StripPrefix("/api/pdf/files/",
		http.FileServer(http.Dir(s.store.UploadDir()))))
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	id := s.broker.Submit(req.Query)
	writeJSON(w, http.StatusOK, map[string]string{"job_id": string(id)})
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id := types.JobID(r.PathValue("job_id"))
	thread := types.DefaultThread
	if v := r.URL.Query().Get("thread_id"); v != "" {
		thread = types.ThreadID(v)
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	events, err := s.broker.Attach(r.Context(), id, thread)
	if err != nil {
		if errors.Is(err, broker.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "attach failed")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range events {
		if ev.Terminal() {
			fmt.Fprint(w, "data: [DONE]\n\n")
			flusher.Flush()
			return
		}
		payload, err := json.Marshal(ev)
		if err != nil {
			s.logger.Error("marshal event", "error", err)
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
	}
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read upload")
		return
	}

	result, err := s.store.Ingest(data, header.Filename)
	if err != nil {
		s.logger.Error("ingest failed", "filename", header.Filename, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to process document")
		return
	}

	name := filepath.Base(result.Path)
	writeJSON(w, http.StatusOK, map[string]string{
		"filename": name,
		"status":   "success",
		"url":      "/api/pdf/files/" + name,
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Reset(); err != nil {
		s.logger.Error("reset failed", "error", err)
		writeError(w, http.StatusInternalServerError, "reset failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"status": "error", "detail": msg})
}
