package controller

import (
	"net/http"

	"go.uber.org/zap"

	"folio/internal/auth"
	"folio/internal/silo"
)

// Silo provides silo handlers
type Silo struct {
	View
	SiloRepo   *silo.Repository
	UploadsDir string
}

// Register registers the silo routes
func (s *Silo) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.list)
	mux.HandleFunc("POST /{$}", s.create)
}

func (s *Silo) list(w http.ResponseWriter, r *http.Request) {
	silos, err := s.SiloRepo.List(r.Context())
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	data := s.pageData(r)
	data.Silos = silos
	s.render(w, r, http.StatusOK, "index.html", data)
}

func (s *Silo) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}
	name := r.PostFormValue("name")
	slug := r.PostFormValue("slug")
	if name == "" || slug == "" {
		http.Error(w, "Name and slug are required", http.StatusBadRequest)
		return
	}

	user := auth.CurrentUser(r.Context())
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var coverImageURL *string
	file, header, err := r.FormFile("cover_image")
	if err != nil && err != http.ErrMissingFile {
		http.Error(w, "Error retrieving the file", http.StatusBadRequest)
		return
	}
	if err == nil {
		defer file.Close()
		stored, err := storeUpload(s.UploadsDir, file, header)
		if err != nil {
			s.serverError(w, r, err)
			return
		}
		url := "/uploads/" + stored
		coverImageURL = &url
	}

	id, err := s.SiloRepo.Create(r.Context(), name, slug, coverImageURL, user.ID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.Logger.Info("silo created", zap.Int("silo_id", id), zap.String("slug", slug), zap.String("user", user.Username))

	http.Redirect(w, r, "/", http.StatusSeeOther)
}
