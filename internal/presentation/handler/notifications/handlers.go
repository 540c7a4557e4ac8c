package notifications

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hilthontt/encore/internal/domain"
	"github.com/hilthontt/encore/internal/infrastructure/json"
	"github.com/hilthontt/encore/internal/infrastructure/logging"
	"github.com/hilthontt/encore/internal/infrastructure/validate"
	"github.com/hilthontt/encore/internal/presentation/utils"
)

// Streamer upgrades a request into a live notification stream for one user.
type Streamer interface {
	Serve(w http.ResponseWriter, r *http.Request, userID int64) error
}

type Handler struct {
	store    domain.NotificationStore
	streamer Streamer
	logger   logging.Logger
}

func NewHandler(store domain.NotificationStore, streamer Streamer, logger logging.Logger) *Handler {
	return &Handler{store: store, streamer: streamer, logger: logger}
}

var updateChecks = map[string]validate.Validator{
	"title":        validate.Compose(validate.Required(), validate.MaxLength(200)),
	"notification": validate.Compose(validate.Required(), validate.MaxLength(2000)),
	"relevance": validate.OneOf(
		string(domain.RelevanceLow),
		string(domain.RelevanceMedium),
		string(domain.RelevanceHigh),
	),
}

// ListUserNotificationsHandler godoc
// @Summary      List a user's notifications
// @Description  Returns every stored notification of the user, newest first
// @Tags         notifications
// @Produce      json
// @Param        userId path int true "User ID"
// @Success      200 {object} listNotificationsResponse
// @Failure      400 {object} json.ErrorResponse "Invalid user id"
// @Failure      500 {object} json.ErrorResponse "Store unavailable"
// @Router       /users/{userId}/notifications [get]
func (h *Handler) ListUserNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.PathID(r, "userId")
	if err != nil {
		json.WriteValidationError(w, err)
		return
	}

	items, err := h.store.FindAll(r.Context(), userID)
	if err != nil {
		h.writeStoreError(w, "failed to list notifications", err)
		return
	}

	json.Write(w, http.StatusOK, listNotificationsResponse{
		UserID:        userID,
		Notifications: items,
		Total:         len(items),
	})
}

// GetNotificationHandler godoc
// @Summary      Get a notification
// @Tags         notifications
// @Produce      json
// @Param        id path string true "Notification ID"
// @Success      200 {object} domain.Notification
// @Failure      400 {object} json.ErrorResponse "Malformed id"
// @Failure      404 {object} json.ErrorResponse "Notification not found"
// @Router       /notifications/{id} [get]
func (h *Handler) GetNotificationHandler(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeStoreError(w, "failed to load notification", err)
		return
	}
	json.Write(w, http.StatusOK, n)
}

// UpdateNotificationHandler godoc
// @Summary      Update a notification
// @Description  Applies the provided fields; omitted fields are left unchanged
// @Tags         notifications
// @Accept       json
// @Produce      json
// @Param        id path string true "Notification ID"
// @Param        request body updateNotificationRequest true "Fields to change"
// @Success      200 {object} domain.Notification
// @Failure      400 {object} json.ErrorResponse "Invalid body or id"
// @Failure      404 {object} json.ErrorResponse "Notification not found"
// @Router       /notifications/{id} [patch]
func (h *Handler) UpdateNotificationHandler(w http.ResponseWriter, r *http.Request) {
	var req updateNotificationRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteBadRequestError(w, err.Error())
		return
	}

	update, err := req.toUpdate()
	if err != nil {
		json.WriteValidationError(w, err)
		return
	}
	if update.Empty() {
		json.WriteBadRequestError(w, "at least one field must be provided")
		return
	}

	n, err := h.store.UpdateByID(r.Context(), chi.URLParam(r, "id"), update)
	if err != nil {
		h.writeStoreError(w, "failed to update notification", err)
		return
	}
	json.Write(w, http.StatusOK, n)
}

// MarkAsReadHandler godoc
// @Summary      Mark a notification as read
// @Tags         notifications
// @Produce      json
// @Param        id path string true "Notification ID"
// @Success      200 {object} domain.Notification
// @Failure      400 {object} json.ErrorResponse "Malformed id"
// @Failure      404 {object} json.ErrorResponse "Notification not found"
// @Router       /notifications/{id}/read [patch]
func (h *Handler) MarkAsReadHandler(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.MarkAsRead(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeStoreError(w, "failed to mark notification as read", err)
		return
	}
	json.Write(w, http.StatusOK, n)
}

// DeleteNotificationHandler godoc
// @Summary      Delete a notification
// @Tags         notifications
// @Param        id path string true "Notification ID"
// @Success      204
// @Failure      400 {object} json.ErrorResponse "Malformed id"
// @Failure      404 {object} json.ErrorResponse "Notification not found"
// @Router       /notifications/{id} [delete]
func (h *Handler) DeleteNotificationHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteByID(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeStoreError(w, "failed to delete notification", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StreamHandler godoc
// @Summary      Stream new notifications
// @Description  Upgrades to a websocket that receives notification.created events for the user
// @Tags         notifications
// @Param        userId path int true "User ID"
// @Success      101
// @Failure      400 {object} json.ErrorResponse "Invalid user id"
// @Router       /users/{userId}/notifications/ws [get]
func (h *Handler) StreamHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.PathID(r, "userId")
	if err != nil {
		json.WriteValidationError(w, err)
		return
	}

	// The upgrader has already answered the client on failure.
	if err := h.streamer.Serve(w, r, userID); err != nil {
		h.logger.Warn(logging.RequestResponse, logging.Push, "websocket upgrade failed", map[logging.ExtraKey]any{
			logging.UserID:       userID,
			logging.ErrorMessage: err.Error(),
		})
	}
}

func (h *Handler) writeStoreError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidID):
		json.WriteBadRequestError(w, err.Error())
	case errors.Is(err, domain.ErrNotificationNotFound):
		json.WriteNotFoundError(w, "Notification not found")
	default:
		h.logger.Error(logging.MongoDB, logging.Select, msg, map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
		json.WriteInternalError(w)
	}
}

func (req updateNotificationRequest) toUpdate() (domain.NotificationUpdate, error) {
	values := make(map[string]string)
	checks := make(map[string]validate.Validator)
	add := func(name string, v *string) {
		if v != nil {
			values[name] = *v
			checks[name] = updateChecks[name]
		}
	}
	add("title", req.Title)
	add("notification", req.Notification)
	add("relevance", req.Relevance)

	if err := validate.All(checks, values); err != nil {
		return domain.NotificationUpdate{}, err
	}

	update := domain.NotificationUpdate{
		Title:        req.Title,
		Notification: req.Notification,
		Read:         req.Read,
	}
	if req.Relevance != nil {
		rel := domain.Relevance(*req.Relevance)
		update.Relevance = &rel
	}
	return update, nil
}
