package httpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Clark-Hu/media-reviews/internal/auth"
	"github.com/Clark-Hu/media-reviews/internal/domain"
	"github.com/Clark-Hu/media-reviews/internal/repository"
	"github.com/Clark-Hu/media-reviews/internal/validation"
)

const minMediaYear = 1880

type suggestRequest struct {
	Title       string          `json:"title" validate:"required,min=1,max=200"`
	Type        string          `json:"type" validate:"required,oneof=movie anime series"`
	Description string          `json:"description" validate:"required,min=10,max=5000"`
	Category    json.RawMessage `json:"category"`
	Year        *int            `json:"year"`
	ImageURL    *string         `json:"imageUrl" validate:"omitnil,url"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending approved rejected"`
}

type categoryResponse struct {
	ID   *string `json:"id,omitempty"`
	Name string  `json:"name"`
}

type mediaResponse struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Slug        string              `json:"slug"`
	Type        string              `json:"type"`
	Description string              `json:"description"`
	Category    categoryResponse    `json:"category"`
	Year        *int                `json:"year,omitempty"`
	ImageURL    *string             `json:"imageUrl,omitempty"`
	Status      string              `json:"status"`
	CreatedBy   string              `json:"createdBy"`
	ApprovedBy  *string             `json:"approvedBy,omitempty"`
	ApprovedAt  *time.Time          `json:"approvedAt,omitempty"`
	Metrics     domain.MediaMetrics `json:"metrics"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

type mediaListResponse struct {
	Items      []mediaResponse `json:"items"`
	NextCursor *string         `json:"nextCursor,omitempty"`
}

func (s *Server) handleSuggestMedia(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req suggestRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	req.ImageURL = normalizeStringPtr(req.ImageURL)
	if err := validation.Struct(&req); err != nil {
		s.respondValidation(w, err)
		return
	}
	if req.Year != nil {
		if latest := time.Now().UTC().Year(); *req.Year < minMediaYear || *req.Year > latest {
			s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR",
				fmt.Sprintf("year must be between %d and %d", minMediaYear, latest))
			return
		}
	}
	category, err := parseCategory(req.Category)
	if err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
		return
	}

	media, err := s.repo.Media.Suggest(r.Context(), repository.MediaSuggestParams{
		Title:       req.Title,
		Type:        domain.MediaType(req.Type),
		Description: req.Description,
		Category:    category,
		Year:        req.Year,
		ImageURL:    req.ImageURL,
		CreatedBy:   userID,
	})
	if err != nil {
		s.respondDomainError(w, r, "suggest_media", err)
		return
	}

	w.Header().Set("Location", "/media/"+media.ID)
	s.respondJSON(w, http.StatusCreated, toMediaResponse(media))
}

// parseCategory accepts either a bare category name or an object carrying
// `_id`/`id` and `name`. A missing or blank category becomes "Uncategorized".
func parseCategory(raw json.RawMessage) (domain.Category, error) {
	fallback := domain.Category{Name: "Uncategorized"}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return fallback, nil
	}

	switch raw[0] {
	case '"':
		var name string
		if err := json.Unmarshal(raw, &name); err != nil {
			return domain.Category{}, fmt.Errorf("category must be a string or an object")
		}
		if name = strings.TrimSpace(name); name == "" {
			return fallback, nil
		}
		return domain.Category{Name: name}, nil
	case '{':
		var obj struct {
			MongoID *string `json:"_id"`
			ID      *string `json:"id"`
			Name    string  `json:"name"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return domain.Category{}, fmt.Errorf("category must be a string or an object")
		}
		id := normalizeStringPtr(obj.MongoID)
		if id == nil {
			id = normalizeStringPtr(obj.ID)
		}
		name := strings.TrimSpace(obj.Name)
		if name == "" {
			name = fallback.Name
		}
		return domain.Category{ID: id, Name: name}, nil
	default:
		return domain.Category{}, fmt.Errorf("category must be a string or an object")
	}
}

func (s *Server) handleListMedia(w http.ResponseWriter, r *http.Request) {
	filters, err := buildMediaFilters(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	approved := domain.MediaStatusApproved
	filters.Status = &approved
	s.listMedia(w, r, filters)
}

func (s *Server) handleAdminListMedia(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filters, err := buildMediaFilters(query)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	status := domain.MediaStatusPending
	if val := strings.TrimSpace(query.Get("status")); val != "" {
		status = domain.MediaStatus(val)
		if !status.Valid() {
			s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid status value")
			return
		}
	}
	filters.Status = &status
	s.listMedia(w, r, filters)
}

func (s *Server) listMedia(w http.ResponseWriter, r *http.Request, filters repository.MediaListFilters) {
	result, err := s.repo.Media.List(r.Context(), filters)
	if err != nil {
		s.respondDomainError(w, r, "list_media", err)
		return
	}

	items := make([]mediaResponse, 0, len(result.Items))
	for _, media := range result.Items {
		items = append(items, toMediaResponse(media))
	}
	s.respondJSON(w, http.StatusOK, mediaListResponse{
		Items:      items,
		NextCursor: result.NextCursor,
	})
}

func buildMediaFilters(query url.Values) (repository.MediaListFilters, error) {
	filters := repository.MediaListFilters{Sort: repository.MediaSortRecent}

	if val := strings.TrimSpace(query.Get("type")); val != "" {
		mediaType := domain.MediaType(val)
		if !mediaType.Valid() {
			return filters, fmt.Errorf("invalid type value")
		}
		filters.Type = &mediaType
	}
	if q := strings.TrimSpace(query.Get("q")); q != "" {
		filters.Query = &q
	}
	if val := strings.TrimSpace(query.Get("sort")); val != "" {
		sort := repository.MediaSort(val)
		if !sort.Valid() {
			return filters, fmt.Errorf("invalid sort value")
		}
		filters.Sort = sort
	}
	if val := strings.TrimSpace(query.Get("limit")); val != "" {
		limit, err := strconv.Atoi(val)
		if err != nil || limit < 0 {
			return filters, fmt.Errorf("invalid limit value")
		}
		filters.Limit = limit
	}
	if val := strings.TrimSpace(query.Get("cursor")); val != "" {
		if filters.Sort != repository.MediaSortRecent {
			return filters, fmt.Errorf("cursor is only supported with sort=recent")
		}
		cursor, err := repository.DecodeCursor(val)
		if err != nil {
			return filters, fmt.Errorf("invalid cursor")
		}
		filters.Cursor = cursor
	}
	return filters, nil
}

func (s *Server) handleGetMedia(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	media, err := s.repo.Media.GetByID(r.Context(), id)
	if err != nil {
		s.respondDomainError(w, r, "get_media", err)
		return
	}
	s.respondJSON(w, http.StatusOK, toMediaResponse(media))
}

func (s *Server) handleSetMediaStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	moderatorID, _ := auth.UserIDFromContext(r.Context())

	var req statusRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	media, err := s.repo.Media.SetStatus(r.Context(), id, domain.MediaStatus(req.Status), moderatorID)
	if err != nil {
		s.respondDomainError(w, r, "set_media_status", err)
		return
	}
	s.respondJSON(w, http.StatusOK, toMediaResponse(media))
}

func toMediaResponse(m domain.Media) mediaResponse {
	return mediaResponse{
		ID:          m.ID,
		Title:       m.Title,
		Slug:        m.Slug,
		Type:        string(m.Type),
		Description: m.Description,
		Category:    categoryResponse{ID: m.Category.ID, Name: m.Category.Name},
		Year:        m.Year,
		ImageURL:    m.ImageURL,
		Status:      string(m.Status),
		CreatedBy:   m.CreatedBy,
		ApprovedBy:  m.ApprovedBy,
		ApprovedAt:  m.ApprovedAt,
		Metrics:     m.Metrics,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
