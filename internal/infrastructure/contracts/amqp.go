package contracts

// Fixed queue names. Song-visit and comment-reply queues come from configuration.
const (
	NotificationsQueue = "notifications-queue"
	SongDeleteQueue    = "song.delete"
)
