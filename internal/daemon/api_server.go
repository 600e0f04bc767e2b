package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"log/slog"

	"revoice/internal/api"
	"revoice/internal/config"
	"revoice/internal/logging"
	"revoice/internal/services"
	"revoice/internal/session"
)

type apiServer struct {
	bind      string
	logger    *slog.Logger
	daemon    *Daemon
	maxUpload int64
	server    *http.Server

	mu       sync.Mutex
	listener net.Listener
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, errors.New("api bind address required")
	}

	srv := &apiServer{
		bind:      bind,
		logger:    logging.NewComponentLogger(logger, "api"),
		daemon:    d,
		maxUpload: int64(cfg.Processing.UploadMaxMB) << 20,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/upload", srv.handleUpload)
	mux.HandleFunc("/api/recognize", srv.handleRecognize)
	mux.HandleFunc("/api/split", srv.handleSplit)
	mux.HandleFunc("/api/transcription", srv.handleTranscription)
	mux.HandleFunc("/api/reference", srv.handleReference)
	mux.HandleFunc("/api/clone", srv.handleClone)
	mux.HandleFunc("/api/clone/regenerate", srv.handleRegenerate)
	mux.HandleFunc("/api/merge", srv.handleMerge)
	mux.HandleFunc("/api/subtitles", srv.handleSubtitles)
	mux.HandleFunc("/api/subtitles/preview", srv.handleSubtitlePreview)
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/session", srv.handleSession)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
	s.mu.Lock()
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
	s.mu.Unlock()
}

func (s *apiServer) addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	file, name, ok := s.formFile(w, r)
	if !ok {
		return
	}
	defer file.Close()
	if err := s.daemon.manager.Upload(r.Context(), name, file); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.NewSessionView(s.daemon.manager.Session()))
}

func (s *apiServer) handleRecognize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	if err := s.daemon.manager.Recognize(r.Context()); err != nil {
		s.writeServiceError(w, err)
		return
	}
	sess := s.daemon.manager.Session()
	s.writeJSON(w, http.StatusOK, map[string]string{"transcript": sess.Transcript})
}

func (s *apiServer) handleSplit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	if err := s.daemon.manager.Split(r.Context()); err != nil {
		s.writeServiceError(w, err)
		return
	}
	view := api.NewSessionView(s.daemon.manager.Session())
	s.writeJSON(w, http.StatusOK, map[string]any{"sentences": view.Sentences})
}

type transcriptionRequest struct {
	Sentences []struct {
		SentenceID int64  `json:"sentence_id"`
		Text       string `json:"text"`
	} `json:"sentences"`
}

func (s *apiServer) handleTranscription(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	var req transcriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	edits := make([]session.SentenceEdit, 0, len(req.Sentences))
	for _, e := range req.Sentences {
		edits = append(edits, session.SentenceEdit{ID: e.SentenceID, Text: e.Text})
	}
	if err := s.daemon.manager.SubmitEdits(r.Context(), edits); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *apiServer) handleReference(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	file, name, ok := s.formFile(w, r)
	if !ok {
		return
	}
	defer file.Close()
	text := r.FormValue("text")
	if err := s.daemon.manager.UploadReference(r.Context(), name, file, text); err != nil {
		s.writeServiceError(w, err)
		return
	}
	view := api.NewSessionView(s.daemon.manager.Session())
	s.writeJSON(w, http.StatusOK, map[string]any{"reference": view.Reference})
}

func (s *apiServer) handleClone(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	if err := s.daemon.manager.Clone(r.Context()); err != nil {
		s.writeServiceError(w, err)
		return
	}
	view := api.NewSessionView(s.daemon.manager.Session())
	s.writeJSON(w, http.StatusOK, map[string]any{"cloned_audios": view.ClonedAudios})
}

type regenerateRequest struct {
	SentenceID int64  `json:"sentence_id"`
	Text       string `json:"text"`
}

func (s *apiServer) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	var req regenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	clone, err := s.daemon.regen.Regenerate(r.Context(), req.SentenceID, req.Text)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.CloneView{
		SentenceID: clone.SentenceID,
		Text:       clone.Text,
		BeginTime:  clone.BeginMS,
		EndTime:    clone.EndMS,
		Audio:      api.ArtifactView{LocalURL: clone.Audio.LocalPath, OSSURL: clone.Audio.RemoteURL},
	})
}

func (s *apiServer) handleMerge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	if err := s.daemon.manager.Merge(r.Context()); err != nil {
		s.writeServiceError(w, err)
		return
	}
	view := api.NewSessionView(s.daemon.manager.Session())
	s.writeJSON(w, http.StatusOK, map[string]any{"merged_audio": view.MergedAudio})
}

func (s *apiServer) handleSubtitles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	if err := s.daemon.manager.Subtitle(r.Context()); err != nil {
		s.writeServiceError(w, err)
		return
	}
	view := api.NewSessionView(s.daemon.manager.Session())
	s.writeJSON(w, http.StatusOK, map[string]any{"subtitle_file": view.SubtitleFile})
}

func (s *apiServer) handleSubtitlePreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	doc, err := s.daemon.manager.SubtitlePreview()
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, doc)
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	resp := api.NewStatusResponse(s.daemon.manager.Status(), s.daemon.Info())
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	s.writeJSON(w, http.StatusOK, api.NewSessionView(s.daemon.manager.Session()))
}

// formFile extracts the multipart "file" part, bounding the request body by
// the configured upload limit.
func (s *apiServer) formFile(w http.ResponseWriter, r *http.Request) (multipart.File, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	f, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.writeError(w, http.StatusBadRequest, "file exceeds upload limit", fmt.Sprintf("limit %d bytes", maxErr.Limit))
			return nil, "", false
		}
		s.writeError(w, http.StatusBadRequest, "multipart file field required", err.Error())
		return nil, "", false
	}
	return f, header.Filename, true
}

// writeServiceError maps the error taxonomy onto HTTP status codes:
// validation 400, not-found 404, conflict 409, external call 502.
func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, services.ErrExternalCall):
		status = http.StatusBadGateway
	}
	s.writeError(w, status, err.Error(), "")
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message, details string) {
	s.writeJSON(w, status, api.ErrorPayload{Error: message, Details: details})
}
