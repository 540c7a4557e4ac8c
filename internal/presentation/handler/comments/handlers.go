package comments

import (
	"context"
	"errors"
	"net/http"

	"github.com/hilthontt/encore/internal/application/milestones"
	"github.com/hilthontt/encore/internal/domain"
	"github.com/hilthontt/encore/internal/infrastructure/json"
	"github.com/hilthontt/encore/internal/infrastructure/logging"
	"github.com/hilthontt/encore/internal/presentation/utils"
)

type ReplyNotifier interface {
	NotifyOnCommentReply(ctx context.Context, in milestones.CommentReplyInput) error
}

type Handler struct {
	notifier ReplyNotifier
	logger   logging.Logger
}

func NewHandler(notifier ReplyNotifier, logger logging.Logger) *Handler {
	return &Handler{notifier: notifier, logger: logger}
}

// ReplyHandler godoc
// @Summary      Notify a comment author of a reply
// @Description  Called after a reply is stored; queues a notification for the parent comment's author
// @Tags         comments
// @Accept       json
// @Produce      json
// @Param        commentId path int true "Parent comment ID"
// @Param        request body replyRequest true "Reply details"
// @Success      202 {object} replyQueuedResponse
// @Failure      400 {object} json.ErrorResponse "Missing sender or content"
// @Failure      404 {object} json.ErrorResponse "Parent comment not found"
// @Failure      500 {object} json.ErrorResponse "Notification could not be published"
// @Router       /comments/{commentId}/replies [post]
func (h *Handler) ReplyHandler(w http.ResponseWriter, r *http.Request) {
	commentID, err := utils.PathID(r, "commentId")
	if err != nil {
		json.WriteValidationError(w, err)
		return
	}

	var req replyRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteBadRequestError(w, err.Error())
		return
	}

	err = h.notifier.NotifyOnCommentReply(r.Context(), milestones.CommentReplyInput{
		CommentID:      commentID,
		SenderID:       req.SenderID,
		SenderName:     req.SenderName,
		MessageContent: req.MessageContent,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrMissingCommentID),
			errors.Is(err, domain.ErrMissingSender),
			errors.Is(err, domain.ErrMissingMessageContent):
			json.WriteBadRequestError(w, err.Error())
		case errors.Is(err, domain.ErrCommentNotFound):
			json.WriteNotFoundError(w, "Comment not found")
		default:
			h.logger.Error(logging.RequestResponse, logging.ExternalService, "failed to queue reply notification", map[logging.ExtraKey]any{
				logging.CommentID:    commentID,
				logging.ErrorMessage: err.Error(),
			})
			json.WriteInternalError(w)
		}
		return
	}

	json.Write(w, http.StatusAccepted, replyQueuedResponse{CommentID: commentID, Status: "queued"})
}
