// Package milestones decides when domain actions become notification events.
package milestones

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hilthontt/encore/internal/domain"
	"github.com/hilthontt/encore/internal/infrastructure/logging"
)

// VisitStep is the play-count multiple that triggers a milestone event.
const VisitStep = 5

type SongVisitPublisher interface {
	Publish(ctx context.Context, event domain.SongVisitEvent) error
}

type CommentReplyPublisher interface {
	Publish(ctx context.Context, event domain.CommentReplyEvent) error
}

type Service struct {
	visualizations domain.VisualizationRepository
	comments       domain.CommentRepository
	songVisits     SongVisitPublisher
	commentReplies CommentReplyPublisher
	logger         logging.Logger
	now            func() time.Time
}

func NewService(
	visualizations domain.VisualizationRepository,
	comments domain.CommentRepository,
	songVisits SongVisitPublisher,
	commentReplies CommentReplyPublisher,
	logger logging.Logger,
) *Service {
	return &Service{
		visualizations: visualizations,
		comments:       comments,
		songVisits:     songVisits,
		commentReplies: commentReplies,
		logger:         logger,
		now:            time.Now,
	}
}

// CheckAndNotifySongVisits publishes a milestone event when the song's total
// plays across every stored period is a positive multiple of VisitStep. It
// fires on every call made at such a total.
func (s *Service) CheckAndNotifySongVisits(ctx context.Context, song *domain.Song) error {
	if song == nil || song.ID <= 0 {
		return domain.ErrInvalidSong
	}

	records, err := s.visualizations.GetBySongID(ctx, song.ID)
	if err != nil {
		return fmt.Errorf("failed to load play counts for song %d: %w", song.ID, err)
	}

	total := domain.TotalPlays(records)
	if total <= 0 || total%VisitStep != 0 {
		return nil
	}

	err = s.songVisits.Publish(ctx, domain.SongVisitEvent{
		UserID:     song.OwnerID,
		UserName:   song.OwnerName(),
		SongID:     song.ID,
		SongName:   song.Name,
		VisitCount: total,
		Timestamp:  s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to publish song visit milestone: %w", err)
	}

	s.logger.Info(logging.Internal, logging.Publish, "song visit milestone reached", map[logging.ExtraKey]any{
		logging.SongID: song.ID,
		"VisitCount":   total,
	})
	return nil
}

type CommentReplyInput struct {
	CommentID      int64  `json:"commentId"`
	SenderID       int64  `json:"senderId"`
	SenderName     string `json:"senderName"`
	MessageContent string `json:"messageContent"`
}

// NotifyOnCommentReply tells the author of the parent comment about a reply.
// Replying to your own comment still notifies you.
func (s *Service) NotifyOnCommentReply(ctx context.Context, in CommentReplyInput) error {
	if in.CommentID <= 0 {
		return domain.ErrMissingCommentID
	}
	if in.SenderID <= 0 || strings.TrimSpace(in.SenderName) == "" {
		return domain.ErrMissingSender
	}
	if strings.TrimSpace(in.MessageContent) == "" {
		return domain.ErrMissingMessageContent
	}

	parent, err := s.comments.GetRawByID(ctx, in.CommentID)
	if err != nil {
		return fmt.Errorf("failed to load comment %d: %w", in.CommentID, err)
	}
	if parent == nil {
		return fmt.Errorf("%w: %d", domain.ErrCommentNotFound, in.CommentID)
	}

	err = s.commentReplies.Publish(ctx, domain.CommentReplyEvent{
		SenderID:       in.SenderID,
		SenderName:     in.SenderName,
		MessageContent: in.MessageContent,
		RecipientID:    parent.AuthorID,
		RecipientName:  parent.AuthorName(),
		Timestamp:      s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to publish comment reply: %w", err)
	}

	s.logger.Info(logging.Internal, logging.Publish, "comment reply notification queued", map[logging.ExtraKey]any{
		logging.CommentID: in.CommentID,
		logging.UserID:    parent.AuthorID,
	})
	return nil
}
