package domain

import "context"

// RawComment is a comment row with its author relation, without replies.
type RawComment struct {
	ID       int64  `json:"id"`
	AuthorID int64  `json:"author_id"`
	User     *User  `json:"user,omitempty"`
	Content  string `json:"content"`
	ParentID *int64 `json:"parent_id,omitempty"`
}

// AuthorName returns the author's display name, or UnknownUserName.
func (c *RawComment) AuthorName() string {
	if c.User == nil || c.User.NameUser == "" {
		return UnknownUserName
	}
	return c.User.NameUser
}

// CommentRepository returns (nil, nil) from GetRawByID when the id does not exist.
type CommentRepository interface {
	GetRawByID(ctx context.Context, id int64) (*RawComment, error)
}
