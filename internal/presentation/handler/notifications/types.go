package notifications

import "github.com/hilthontt/encore/internal/domain"

// updateNotificationRequest carries the mutable fields of a notification
type updateNotificationRequest struct {
	Title        *string `json:"title,omitempty" example:"Song milestone"`
	Notification *string `json:"notification,omitempty" example:"Intro reached 10 plays"`
	Relevance    *string `json:"relevance,omitempty" example:"high" enums:"low,medium,high"`
	Read         *bool   `json:"read,omitempty" example:"true"`
}

type listNotificationsResponse struct {
	UserID        int64                 `json:"userId" example:"7"`
	Notifications []domain.Notification `json:"notifications"`
	Total         int                   `json:"total" example:"1"`
}
