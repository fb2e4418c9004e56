package httpserver

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Clark-Hu/media-reviews/internal/auth"
	"github.com/Clark-Hu/media-reviews/internal/domain"
	"github.com/Clark-Hu/media-reviews/internal/ratings"
	"github.com/Clark-Hu/media-reviews/internal/repository"
	"github.com/Clark-Hu/media-reviews/internal/validation"
)

type reviewCreateRequest struct {
	Title   string `json:"title" validate:"required,min=3,max=120"`
	Comment string `json:"comment" validate:"required,min=10,max=2000"`
	Rating  int    `json:"rating" validate:"required,min=1,max=10"`
}

type reviewUpdateRequest struct {
	Title   *string `json:"title" validate:"omitnil,min=3,max=120"`
	Comment *string `json:"comment" validate:"omitnil,min=10,max=2000"`
	Rating  *int    `json:"rating" validate:"omitnil,min=1,max=10"`
}

type reactionRequest struct {
	Value int `json:"value" validate:"required,oneof=1 -1"`
}

type reviewResponse struct {
	ID            string    `json:"id"`
	MediaID       string    `json:"mediaId"`
	UserID        string    `json:"userId"`
	Title         string    `json:"title"`
	Comment       string    `json:"comment"`
	Rating        int       `json:"rating"`
	LikesCount    int64     `json:"likesCount"`
	DislikesCount int64     `json:"dislikesCount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type reviewListResponse struct {
	Items      []reviewResponse `json:"items"`
	NextCursor *string          `json:"nextCursor,omitempty"`
}

type reactionResponse struct {
	ReviewID      string `json:"reviewId"`
	Value         int    `json:"value"`
	LikesCount    int64  `json:"likesCount"`
	DislikesCount int64  `json:"dislikesCount"`
}

func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	mediaID, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	userID, _ := auth.UserIDFromContext(r.Context())

	var req reviewCreateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Comment = strings.TrimSpace(req.Comment)
	if err := validation.Struct(&req); err != nil {
		s.respondValidation(w, err)
		return
	}

	review, err := s.reviews.CreateReview(r.Context(), ratings.CreateReviewInput{
		MediaID: mediaID,
		UserID:  userID,
		Title:   req.Title,
		Comment: req.Comment,
		Rating:  req.Rating,
	})
	if err != nil {
		s.respondDomainError(w, r, "create_review", err)
		return
	}

	w.Header().Set("Location", "/reviews/"+review.ID)
	s.respondJSON(w, http.StatusCreated, toReviewResponse(review))
}

func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	mediaID, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	query := r.URL.Query()
	var limit int
	if val := strings.TrimSpace(query.Get("limit")); val != "" {
		limit, err = strconv.Atoi(val)
		if err != nil || limit < 0 {
			s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid limit value")
			return
		}
	}
	var cursor *repository.Cursor
	if val := strings.TrimSpace(query.Get("cursor")); val != "" {
		cursor, err = repository.DecodeCursor(val)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid cursor")
			return
		}
	}

	if _, err := s.repo.Media.GetByID(r.Context(), mediaID); err != nil {
		s.respondDomainError(w, r, "list_reviews", err)
		return
	}
	result, err := s.repo.Reviews.ListByMedia(r.Context(), mediaID, limit, cursor)
	if err != nil {
		s.respondDomainError(w, r, "list_reviews", err)
		return
	}

	items := make([]reviewResponse, 0, len(result.Items))
	for _, review := range result.Items {
		items = append(items, toReviewResponse(review))
	}
	s.respondJSON(w, http.StatusOK, reviewListResponse{
		Items:      items,
		NextCursor: result.NextCursor,
	})
}

func (s *Server) handleGetReview(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	review, err := s.repo.Reviews.GetByID(r.Context(), id)
	if err != nil {
		s.respondDomainError(w, r, "get_review", err)
		return
	}
	s.respondJSON(w, http.StatusOK, toReviewResponse(review))
}

func (s *Server) handleUpdateReview(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	userID, _ := auth.UserIDFromContext(r.Context())

	var req reviewUpdateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	req.Title = trimPtr(req.Title)
	req.Comment = trimPtr(req.Comment)
	if req.Title == nil && req.Comment == nil && req.Rating == nil {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "at least one of title, comment or rating is required")
		return
	}
	if err := validation.Struct(&req); err != nil {
		s.respondValidation(w, err)
		return
	}

	review, err := s.reviews.UpdateReview(r.Context(), id, userID, ratings.ReviewPatch{
		Title:   req.Title,
		Comment: req.Comment,
		Rating:  req.Rating,
	})
	if err != nil {
		s.respondDomainError(w, r, "update_review", err)
		return
	}
	s.respondJSON(w, http.StatusOK, toReviewResponse(review))
}

func (s *Server) handleDeleteReview(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	userID, _ := auth.UserIDFromContext(r.Context())

	if err := s.reviews.DeleteReview(r.Context(), id, userID); err != nil {
		s.respondDomainError(w, r, "delete_review", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReact(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	userID, _ := auth.UserIDFromContext(r.Context())

	var req reactionRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	counts, err := s.reviews.React(r.Context(), id, userID, domain.ReactionValue(req.Value))
	if err != nil {
		s.respondDomainError(w, r, "react", err)
		return
	}
	s.respondJSON(w, http.StatusOK, reactionResponse{
		ReviewID:      id,
		Value:         req.Value,
		LikesCount:    counts.Likes,
		DislikesCount: counts.Dislikes,
	})
}

// trimPtr trims a present string without dropping it, so an all-blank
// value still reaches validation.
func trimPtr(ptr *string) *string {
	if ptr == nil {
		return nil
	}
	val := strings.TrimSpace(*ptr)
	return &val
}

func toReviewResponse(r domain.Review) reviewResponse {
	return reviewResponse{
		ID:            r.ID,
		MediaID:       r.MediaID,
		UserID:        r.UserID,
		Title:         r.Title,
		Comment:       r.Comment,
		Rating:        r.Rating,
		LikesCount:    r.LikesCount,
		DislikesCount: r.DislikesCount,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}
