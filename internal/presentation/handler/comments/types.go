package comments

// replyRequest is the body of a reply notification request
type replyRequest struct {
	SenderID       int64  `json:"senderId" example:"12"`          // Author of the reply
	SenderName     string `json:"senderName" example:"john_doe"`  // Display name of the author
	MessageContent string `json:"messageContent" example:"Agree"` // Reply text
}

type replyQueuedResponse struct {
	CommentID int64  `json:"commentId" example:"5"`
	Status    string `json:"status" example:"queued"`
}
