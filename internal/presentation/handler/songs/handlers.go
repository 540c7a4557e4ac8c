package songs

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/hilthontt/encore/internal/domain"
	"github.com/hilthontt/encore/internal/infrastructure/json"
	"github.com/hilthontt/encore/internal/infrastructure/logging"
	"github.com/hilthontt/encore/internal/presentation/utils"
)

type MilestoneChecker interface {
	CheckAndNotifySongVisits(ctx context.Context, song *domain.Song) error
}

type DeletionPublisher interface {
	Publish(ctx context.Context, idSong int64) error
}

type Handler struct {
	songs      domain.SongRepository
	milestones MilestoneChecker
	deletions  DeletionPublisher
	logger     logging.Logger
}

func NewHandler(songs domain.SongRepository, milestones MilestoneChecker, deletions DeletionPublisher, logger logging.Logger) *Handler {
	return &Handler{
		songs:      songs,
		milestones: milestones,
		deletions:  deletions,
		logger:     logger,
	}
}

// RecordPlayHandler godoc
// @Summary      Evaluate a song play
// @Description  Called after a play is stored; publishes a milestone event when total plays is a multiple of five
// @Tags         songs
// @Produce      json
// @Param        songId path int true "Song ID"
// @Success      202 {object} playCheckedResponse
// @Failure      400 {object} json.ErrorResponse "Invalid song id"
// @Failure      404 {object} json.ErrorResponse "Song not found"
// @Failure      500 {object} json.ErrorResponse "Milestone could not be published"
// @Router       /songs/{songId}/plays [post]
func (h *Handler) RecordPlayHandler(w http.ResponseWriter, r *http.Request) {
	songID, err := utils.PathID(r, "songId")
	if err != nil {
		json.WriteValidationError(w, err)
		return
	}

	ctx := r.Context()
	song, err := h.songs.GetByID(ctx, songID)
	if err != nil {
		if errors.Is(err, domain.ErrSongNotFound) {
			json.WriteNotFoundError(w, "Song not found")
			return
		}
		h.internalError(w, "failed to load song", songID, err)
		return
	}

	if err := h.milestones.CheckAndNotifySongVisits(ctx, song); err != nil {
		if errors.Is(err, domain.ErrInvalidSong) {
			json.WriteBadRequestError(w, err.Error())
			return
		}
		h.internalError(w, "failed to evaluate song milestone", songID, err)
		return
	}

	json.Write(w, http.StatusAccepted, playCheckedResponse{
		SongID:    songID,
		CheckedAt: time.Now().UTC(),
	})
}

// DeleteSongHandler godoc
// @Summary      Announce a song deletion
// @Description  Publishes a song deletion event for downstream storage cleanup
// @Tags         songs
// @Produce      json
// @Param        songId path int true "Song ID"
// @Success      202 {object} songDeletedResponse
// @Failure      400 {object} json.ErrorResponse "Invalid song id"
// @Failure      500 {object} json.ErrorResponse "Event could not be published"
// @Router       /songs/{songId} [delete]
func (h *Handler) DeleteSongHandler(w http.ResponseWriter, r *http.Request) {
	songID, err := utils.PathID(r, "songId")
	if err != nil {
		json.WriteValidationError(w, err)
		return
	}

	if err := h.deletions.Publish(r.Context(), songID); err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			json.WriteBadRequestError(w, err.Error())
			return
		}
		h.internalError(w, "failed to publish song deletion", songID, err)
		return
	}

	json.Write(w, http.StatusAccepted, songDeletedResponse{SongID: songID, Status: "queued"})
}

func (h *Handler) internalError(w http.ResponseWriter, msg string, songID int64, err error) {
	h.logger.Error(logging.RequestResponse, logging.ExternalService, msg, map[logging.ExtraKey]any{
		logging.SongID:       songID,
		logging.ErrorMessage: err.Error(),
	})
	json.WriteInternalError(w)
}
