package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/forPelevin/montage/internal/assembly"
	"github.com/forPelevin/montage/internal/domain/cutranges"
	"github.com/forPelevin/montage/internal/logging"
	"github.com/forPelevin/montage/internal/usecase"
)

const defaultMaxUploadBytes = 2 << 30

func NewRouter(cfg ServerConfig) *chi.Mux {
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}
	cfg.Logger = logging.WithComponent(cfg.Logger, "httpapi")
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))
	r.Post("/process", processHandler(cfg))
	r.Post("/analyze", analyzeHandler(cfg))

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:      "healthy",
			AIAvailable: cfg.Service.AIAvailable(),
			Message:     "Montage backend is running",
		})
	}
}

func processHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		up, err := receiveUpload(w, r, cfg)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		defer up.cleanup(cfg)

		prompt := strings.TrimSpace(r.FormValue("prompt"))
		if prompt == "" {
			WriteError(w, http.StatusBadRequest, "prompt is required", "BAD_REQUEST")
			return
		}

		outName := "cut_" + up.name
		dest := filepath.Join(cfg.OutputDir, up.id, outName)
		defer os.RemoveAll(filepath.Join(cfg.OutputDir, up.id))

		res, err := cfg.Service.Cut(r.Context(), usecase.Input{
			Source:      up.path,
			Intent:      prompt,
			CacheDir:    up.workDir,
			Destination: dest,
		})
		if err != nil {
			writeUsecaseError(w, cfg, r, err)
			return
		}

		f, err := os.Open(res.Destination)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "output is missing", "INTERNAL_ERROR")
			return
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "output is missing", "INTERNAL_ERROR")
			return
		}

		w.Header().Set("Content-Type", "video/mp4")
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": outName}))
		w.Header().Set("X-Cut-Source", string(res.Source))
		http.ServeContent(w, r, outName, info.ModTime(), f)
	}
}

func analyzeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		up, err := receiveUpload(w, r, cfg)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		defer up.cleanup(cfg)

		script := r.FormValue("script")
		if script == "" {
			script = r.FormValue("script_content")
		}

		sel, err := cfg.Service.Analyze(r.Context(), usecase.Input{
			Source:   up.path,
			Intent:   script,
			CacheDir: up.workDir,
		})
		if err != nil {
			writeUsecaseError(w, cfg, r, err)
			return
		}

		WriteJSON(w, http.StatusOK, AnalyzeResponse{
			Success:    true,
			Ranges:     sel.Ranges,
			Transcript: sel.Transcript.PlainText(),
			Metadata: AnalyzeMetadata{
				Duration: sel.Transcript.Duration(),
				Source:   string(sel.Source),
			},
		})
	}
}

type upload struct {
	id      string
	name    string
	path    string
	workDir string
}

// receiveUpload stores the multipart "file" field under a unique name.
func receiveUpload(w http.ResponseWriter, r *http.Request, cfg ServerConfig) (*upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return nil, fmt.Errorf("invalid multipart form: %w", err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, errors.New("file is required")
	}
	defer file.Close()

	name := filepath.Base(strings.ReplaceAll(header.Filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "video.mp4"
	}

	id := uuid.NewString()
	up := &upload{
		id:      id,
		name:    name,
		path:    filepath.Join(cfg.UploadDir, id+filepath.Ext(name)),
		workDir: filepath.Join(cfg.UploadDir, id+"-work"),
	}
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	dst, err := os.Create(up.path)
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.Remove(up.path)
		return nil, fmt.Errorf("store upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(up.path)
		return nil, fmt.Errorf("store upload: %w", err)
	}
	return up, nil
}

func (u *upload) cleanup(cfg ServerConfig) {
	if err := os.Remove(u.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		cfg.Logger.Warn("remove upload failed", "path", u.path, "error", err)
	}
	if err := os.RemoveAll(u.workDir); err != nil {
		cfg.Logger.Warn("remove work dir failed", "path", u.workDir, "error", err)
	}
}

func writeUsecaseError(w http.ResponseWriter, cfg ServerConfig, r *http.Request, err error) {
	var (
		pe *cutranges.ParseError
		ie *cutranges.InvalidRangeError
		ae *assembly.Error
	)
	switch {
	case errors.Is(err, usecase.ErrEmptyIntent):
		WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
	case errors.Is(err, usecase.ErrNothingSelected):
		WriteError(w, http.StatusUnprocessableEntity, err.Error(), "NOTHING_SELECTED")
	case errors.As(err, &pe), errors.As(err, &ie):
		WriteError(w, http.StatusUnprocessableEntity, err.Error(), "UNPARSABLE_ANSWER")
	case errors.Is(err, usecase.ErrModelUnavailable):
		WriteError(w, http.StatusServiceUnavailable, err.Error(), "AI_UNAVAILABLE")
	case errors.As(err, &ae):
		cfg.Logger.Error("assembly failed", "error", err, "request_id", requestID(r.Context()))
		WriteError(w, http.StatusInternalServerError, "assembly failed", "ASSEMBLY_FAILED")
	default:
		cfg.Logger.Error("request failed", "error", err, "request_id", requestID(r.Context()))
		WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
	}
}
