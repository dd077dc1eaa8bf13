package rest

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
)

const maxUploadBytes = 32 << 20

type fileResponse struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	FilePath    string `json:"file_path"`
}

// uploadFile stores one multipart file under a timestamped name and returns
// the URL it will be served from.
func (h *Handler) uploadFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, Failure(1, "Invalid multipart body"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Failure(1, "Missing field: file"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		writeJSON(w, http.StatusBadRequest, Failure(1, "Missing field: Content-type header"))
		return
	}

	if err := os.MkdirAll(h.cfg.UploadsDir, 0o755); err != nil {
		h.logger.Error("failed to create uploads directory", "error", err)
		writeJSON(w, http.StatusInternalServerError, Failure(1, "Service unavailable"))
		return
	}
	name := fmt.Sprintf("%d_%s", time.Now().UnixMilli(), filepath.Base(header.Filename))
	dst, err := os.Create(filepath.Join(h.cfg.UploadsDir, name))
	if err != nil {
		h.logger.Error("failed to create uploaded file", "error", err)
		writeJSON(w, http.StatusInternalServerError, Failure(1, "Service unavailable"))
		return
	}
	defer dst.Close()
	if _, err := io.Copy(dst, file); err != nil {
		h.logger.Error("failed to write uploaded file", "error", err)
		writeJSON(w, http.StatusInternalServerError, Failure(1, "Service unavailable"))
		return
	}

	writeJSON(w, http.StatusOK, fileResponse{
		Name:        name,
		ContentType: contentType,
		FilePath:    fmt.Sprintf("/files/%s", name),
	})
}

// serveFile streams a previously uploaded file.
func (h *Handler) serveFile(w http.ResponseWriter, r *http.Request) {
	name := filepath.Base(chi.URLParam(r, "name"))
	path := filepath.Join(h.cfg.UploadsDir, name)
	if _, err := os.Stat(path); err != nil {
		http.Error(w, "404: File not found", http.StatusNotFound)
		return
	}
	http.ServeFile(w, r, path)
}
