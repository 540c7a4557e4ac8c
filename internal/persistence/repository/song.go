package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/hilthontt/encore/internal/domain"
	"gorm.io/gorm"
)

type songRepository struct {
	db *gorm.DB
}

func NewSongRepository(db *gorm.DB) domain.SongRepository {
	return &songRepository{db: db}
}

func (r *songRepository) GetByID(ctx context.Context, id int64) (*domain.Song, error) {
	var row songModel
	if err := r.db.WithContext(ctx).Preload("Owner").First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", domain.ErrSongNotFound, id)
		}
		return nil, err
	}

	return &domain.Song{
		ID:      row.ID,
		Name:    row.Name,
		OwnerID: row.OwnerID,
		Owner:   row.Owner.toDomain(),
	}, nil
}

type visualizationRepository struct {
	db *gorm.DB
}

func NewVisualizationRepository(db *gorm.DB) domain.VisualizationRepository {
	return &visualizationRepository{db: db}
}

func (r *visualizationRepository) GetBySongID(ctx context.Context, songID int64) ([]domain.Visualization, error) {
	var rows []visualizationModel
	if err := r.db.WithContext(ctx).Where("song_id = ?", songID).Order("period").Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]domain.Visualization, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.Visualization{
			ID:        row.ID,
			SongID:    row.SongID,
			PlayCount: row.PlayCount,
			Period:    row.Period,
		})
	}
	return out, nil
}
