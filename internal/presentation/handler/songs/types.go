package songs

import "time"

// playCheckedResponse is returned after a play was evaluated for milestones
type playCheckedResponse struct {
	SongID    int64     `json:"songId" example:"42"`                      // Song that was played
	CheckedAt time.Time `json:"checkedAt" example:"2024-01-01T12:00:00Z"` // Evaluation time
}

// songDeletedResponse is returned once the deletion event is queued
type songDeletedResponse struct {
	SongID int64  `json:"songId" example:"42"`
	Status string `json:"status" example:"queued"`
}
