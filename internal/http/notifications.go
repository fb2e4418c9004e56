package httpserver

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Clark-Hu/media-reviews/internal/domain"
)

type notificationStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending read"`
}

type notificationResponse struct {
	ID        string    `json:"id"`
	ReviewID  string    `json:"reviewId"`
	UserID    string    `json:"userId"`
	MediaID   string    `json:"mediaId"`
	Message   string    `json:"message"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type notificationListResponse struct {
	Items []notificationResponse `json:"items"`
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var status *domain.NotificationStatus
	if val := strings.TrimSpace(query.Get("status")); val != "" {
		st := domain.NotificationStatus(val)
		if !st.Valid() {
			s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid status value")
			return
		}
		status = &st
	}
	var limit int
	if val := strings.TrimSpace(query.Get("limit")); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil || parsed < 0 {
			s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid limit value")
			return
		}
		limit = parsed
	}

	list, err := s.repo.Notifications.List(r.Context(), status, limit)
	if err != nil {
		s.respondDomainError(w, r, "list_notifications", err)
		return
	}
	items := make([]notificationResponse, 0, len(list))
	for _, n := range list {
		items = append(items, toNotificationResponse(n))
	}
	s.respondJSON(w, http.StatusOK, notificationListResponse{Items: items})
}

func (s *Server) handleUpdateNotification(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	var req notificationStatusRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	n, err := s.repo.Notifications.UpdateStatus(r.Context(), id, domain.NotificationStatus(req.Status))
	if err != nil {
		s.respondDomainError(w, r, "update_notification", err)
		return
	}
	s.respondJSON(w, http.StatusOK, toNotificationResponse(n))
}

func toNotificationResponse(n domain.Notification) notificationResponse {
	return notificationResponse{
		ID:        n.ID,
		ReviewID:  n.ReviewID,
		UserID:    n.UserID,
		MediaID:   n.MediaID,
		Message:   n.Message,
		Status:    string(n.Status),
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}
