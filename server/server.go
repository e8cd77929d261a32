package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tove/storyforge/internal/models"
)

// Processor is the pipeline surface the server drives.
type Processor interface {
	Process(ctx context.Context, documents map[string]string) models.ProcessingResult
}

type Config struct {
	Port      string
	MaxUpload int64 // multipart memory limit per request, in bytes
	Logger    *zap.Logger
}

type Server struct {
	config    Config
	processor Processor
	logger    *zap.Logger
}

func NewServer(config Config, processor Processor) (*Server, error) {
	if processor == nil {
		return nil, fmt.Errorf("processor is required")
	}
	if config.Port == "" {
		config.Port = "8000"
	}
	if config.MaxUpload == 0 {
		config.MaxUpload = 32 << 20
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	return &Server{
		config:    config,
		processor: processor,
		logger:    config.Logger,
	}, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/process-documents", s.handleProcessDocuments)
	return mux
}

func (s *Server) ListenAndServe() error {
	srv := &http.Server{
		Addr:        ":" + s.config.Port,
		Handler:     s.Handler(),
		ReadTimeout: 30 * time.Second,
		// a full pipeline run holds the response open
		WriteTimeout: 10 * time.Minute,
	}

	s.logger.Info("starting server", zap.String("port", s.config.Port))
	return srv.ListenAndServe()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleProcessDocuments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"detail": "method not allowed"})
		return
	}

	if err := r.ParseMultipartForm(s.config.MaxUpload); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid multipart request"})
		return
	}

	documents := make(map[string]string)
	for _, headers := range r.MultipartForm.File {
		for _, header := range headers {
			name := filepath.Base(header.Filename)
			if !strings.HasSuffix(strings.ToLower(name), ".txt") {
				s.logger.Warn("skipping non-text upload", zap.String("filename", name))
				continue
			}

			content, err := readUpload(header)
			if err != nil {
				s.logger.Warn("skipping unreadable upload",
					zap.String("filename", name), zap.Error(err))
				continue
			}
			documents[name] = content
		}
	}

	if len(documents) == 0 {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "no valid .txt files provided"})
		return
	}

	s.logger.Info("processing uploaded documents", zap.Int("count", len(documents)))
	result := s.processor.Process(r.Context(), documents)
	s.writeJSON(w, http.StatusOK, result)
}

func readUpload(header *multipart.FileHeader) (string, error) {
	file, err := header.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to write response", zap.Error(err))
	}
}
