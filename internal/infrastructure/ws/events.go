package ws

import "github.com/hilthontt/encore/internal/domain"

const EventNotificationCreated = "notification.created"

// Event is the frame written to notification stream clients.
type Event struct {
	Type string               `json:"type"`
	Data *domain.Notification `json:"data"`
}
