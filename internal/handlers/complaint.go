package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/aawaaz/complaint-server/internal/services"
	"go.uber.org/zap"
)

// maxUploadBytes caps a complaint submission including its media
const maxUploadBytes = 20 << 20

// ComplaintHandler handles the citizen complaint endpoints
type ComplaintHandler struct {
	complaints *services.ComplaintService
	actors     ActorResolver
	logger     *zap.SugaredLogger
}

// NewComplaintHandler creates a new complaint handler
func NewComplaintHandler(cs *services.ComplaintService, actors ActorResolver, logger *zap.SugaredLogger) *ComplaintHandler {
	return &ComplaintHandler{complaints: cs, actors: actors, logger: logger}
}

func formFloat(r *http.Request, names ...string) (float64, error) {
	for _, name := range names {
		if raw := strings.TrimSpace(r.FormValue(name)); raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return 0, fmt.Errorf("invalid %s", name)
			}
			return v, nil
		}
	}
	return 0, nil
}

func formFile(r *http.Request, name string) (*services.Upload, error) {
	f, header, err := r.FormFile(name)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &services.Upload{Filename: header.Filename, Data: data}, nil
}

// Submit handles POST /api/complaints (multipart)
func (h *ComplaintHandler) Submit(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	lat, err := formFloat(r, "lat")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid latitude")
		return
	}
	lng, err := formFloat(r, "lon", "lng")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid longitude")
		return
	}
	image, err := formFile(r, "image")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid image upload")
		return
	}
	audio, err := formFile(r, "audio")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid audio upload")
		return
	}

	complaint, err := h.complaints.Create(r.Context(), p.ID, services.NewComplaint{
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
		Phone:       r.FormValue("phone"),
		Lat:         lat,
		Lng:         lng,
		Image:       image,
		Audio:       audio,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":   "Complaint submitted. You will receive a verification call shortly.",
		"complaint": complaint,
	})
}

// ListOwn handles GET /api/complaints
func (h *ComplaintHandler) ListOwn(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	list, err := h.complaints.ListOwn(r.Context(), p.ID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// Get handles GET /api/complaints/{id}
func (h *ComplaintHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	a, ok := actor(w, r, h.actors, h.logger)
	if !ok {
		return
	}
	c, err := h.complaints.Get(r.Context(), *a, id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// Explore handles GET /api/complaints/explore
func (h *ComplaintHandler) Explore(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.complaints.Explore(r.Context(), limit)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}
