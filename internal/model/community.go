package model

import "time"

// Post is a community board entry. Author is the author's nickname (falling
// back to their display name) resolved at read time.
type Post struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"authorId"`
	Author    string    `json:"user"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Comment belongs to a Post and carries its replies.
type Comment struct {
	ID        string       `json:"id"`
	PostID    string       `json:"postId"`
	AuthorID  string       `json:"authorId"`
	Author    string       `json:"user"`
	Body      string       `json:"body"`
	Replies   []SubComment `json:"replies"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// SubComment is a reply to a Comment.
type SubComment struct {
	ID        string    `json:"id"`
	CommentID string    `json:"commentId"`
	AuthorID  string    `json:"authorId"`
	Author    string    `json:"user"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}
