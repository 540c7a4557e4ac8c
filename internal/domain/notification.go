package domain

import (
	"context"
	"time"
)

type Relevance string

const (
	RelevanceLow    Relevance = "low"
	RelevanceMedium Relevance = "medium"
	RelevanceHigh   Relevance = "high"
)

func (r Relevance) Valid() bool {
	switch r {
	case RelevanceLow, RelevanceMedium, RelevanceHigh:
		return true
	}
	return false
}

// Notification is the user-visible record written by the notification consumer.
type Notification struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Sender       string    `json:"sender"`
	UserID       int64     `json:"user_id"`
	User         string    `json:"user"`
	Notification string    `json:"notification"`
	Relevance    Relevance `json:"relevance"`
	Read         bool      `json:"read"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NotificationUpdate holds the mutable fields; nil fields are left untouched.
type NotificationUpdate struct {
	Title        *string    `json:"title,omitempty"`
	Notification *string    `json:"notification,omitempty"`
	Relevance    *Relevance `json:"relevance,omitempty"`
	Read         *bool      `json:"read,omitempty"`
}

func (u NotificationUpdate) Empty() bool {
	return u.Title == nil && u.Notification == nil && u.Relevance == nil && u.Read == nil
}

type NotificationStore interface {
	Create(ctx context.Context, n *Notification) (*Notification, error)
	FindByID(ctx context.Context, id string) (*Notification, error)
	FindAll(ctx context.Context, userID int64) ([]Notification, error)
	UpdateByID(ctx context.Context, id string, update NotificationUpdate) (*Notification, error)
	DeleteByID(ctx context.Context, id string) error
	MarkAsRead(ctx context.Context, id string) (*Notification, error)
}
