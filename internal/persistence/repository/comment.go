package repository

import (
	"context"
	"errors"

	"github.com/hilthontt/encore/internal/domain"
	"gorm.io/gorm"
)

type commentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) domain.CommentRepository {
	return &commentRepository{db: db}
}

// GetRawByID returns (nil, nil) when the comment does not exist.
func (r *commentRepository) GetRawByID(ctx context.Context, id int64) (*domain.RawComment, error) {
	var row commentModel
	err := r.db.WithContext(ctx).Preload("User").First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &domain.RawComment{
		ID:       row.ID,
		AuthorID: row.AuthorID,
		User:     row.User.toDomain(),
		Content:  row.Content,
		ParentID: row.ParentID,
	}, nil
}
