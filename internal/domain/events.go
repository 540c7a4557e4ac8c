package domain

import "time"

// SongVisitEvent is published every time a song's total plays reach a
// positive multiple of the milestone step.
type SongVisitEvent struct {
	UserID     int64     `json:"userId"`
	UserName   string    `json:"userName"`
	SongID     int64     `json:"songId"`
	SongName   string    `json:"songName"`
	VisitCount int64     `json:"visitCount"`
	Timestamp  time.Time `json:"timestamp"`
}

// CommentReplyEvent announces a reply to the author of the parent comment.
type CommentReplyEvent struct {
	SenderID       int64     `json:"senderId"`
	SenderName     string    `json:"senderName"`
	MessageContent string    `json:"messageContent"`
	RecipientID    int64     `json:"recipientId"`
	RecipientName  string    `json:"recipientName"`
	Timestamp      time.Time `json:"timestamp"`
}

type SongDeletionEvent struct {
	IDSong    int64     `json:"idSong"`
	Timestamp time.Time `json:"timestamp"`
}
