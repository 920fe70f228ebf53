package controller

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"folio/internal/attachment"
	"folio/internal/models"
	"folio/internal/web/renderer"
)

const maxUploadSize = 10 << 20

// Misc provides miscellaneous handlers
type Misc struct {
	View
	AttachmentRepo *attachment.Repository
	UploadsDir     string
}

// Register registers the misc routes
func (m *Misc) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /_preview", m.preview)
	mux.HandleFunc("POST /upload", m.upload)
}

func (m *Misc) preview(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadSize))
	if err != nil {
		http.Error(w, "Error reading request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	out, err := renderer.Org(string(body))
	if err != nil {
		m.serverError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, string(out))
}

func (m *Misc) upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "The uploaded file is too big.", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Error retrieving the file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	uniqueFilename, err := storeUpload(m.UploadsDir, file, header)
	if err != nil {
		m.serverError(w, r, err)
		return
	}

	a := &models.Attachment{
		Filename:       header.Filename,
		UniqueFilename: uniqueFilename,
		MimeType:       header.Header.Get("Content-Type"),
		Size:           header.Size,
	}
	if err := m.AttachmentRepo.Create(r.Context(), a); err != nil {
		m.serverError(w, r, err)
		return
	}
	m.Logger.Info("attachment uploaded", zap.Int("attachment_id", a.ID), zap.String("filename", a.Filename), zap.Int64("size", a.Size))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"url": a.URL()})
}

// storeUpload writes an uploaded file into dir under a content-derived
// name and returns that name.
func storeUpload(dir string, file multipart.File, header *multipart.FileHeader) (string, error) {
	fileBytes, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	hash := sha256.Sum256(fileBytes)
	uniqueFilename := fmt.Sprintf("%s-%d%s",
		hex.EncodeToString(hash[:16]),
		time.Now().Unix(),
		filepath.Ext(header.Filename))

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create uploads dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, uniqueFilename), fileBytes, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return uniqueFilename, nil
}
