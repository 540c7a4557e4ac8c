package domain

import (
	"context"
	"time"
)

// UnknownUserName is used when a song's owner relation is not loaded.
const UnknownUserName = "Unknown"

type Song struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	OwnerID int64  `json:"ownerId"`
	Owner   *User  `json:"owner,omitempty"`
}

// OwnerName returns the denormalized owner name, or UnknownUserName.
func (s *Song) OwnerName() string {
	if s.Owner == nil || s.Owner.NameUser == "" {
		return UnknownUserName
	}
	return s.Owner.NameUser
}

// Visualization is one play-count record of a song for a period.
type Visualization struct {
	ID        int64     `json:"id"`
	SongID    int64     `json:"songId"`
	PlayCount int64     `json:"playCount"`
	Period    time.Time `json:"period"`
}

type SongRepository interface {
	// GetByID loads the song together with its owner.
	GetByID(ctx context.Context, id int64) (*Song, error)
}

type VisualizationRepository interface {
	GetBySongID(ctx context.Context, songID int64) ([]Visualization, error)
}

// TotalPlays sums every stored play-count record.
func TotalPlays(records []Visualization) int64 {
	var total int64
	for _, v := range records {
		total += v.PlayCount
	}
	return total
}
