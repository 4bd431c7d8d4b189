package models

import (
	"time"

	"gorm.io/gorm"
)

// Post is either a root post (ReplyToID nil) or a reply to another post.
// Replies never show up in feeds or the root listing; they are reachable
// only through the parent's reply listing.
type Post struct {
	gorm.Model
	UserID    uint   `gorm:"column:user_id;not null;index" json:"user_id"`
	Content   string `gorm:"column:content;type:text;not null" json:"content"`
	ReplyToID *uint  `gorm:"column:reply_to_id;index" json:"reply_to_id"`

	User    *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
	ReplyTo *Post  `gorm:"foreignKey:ReplyToID" json:"reply_to,omitempty"`
	Replies []Post `gorm:"foreignKey:ReplyToID" json:"replies,omitempty"`
	Likes   []Like `gorm:"foreignKey:PostID" json:"likes,omitempty"`
}

// IsRoot reports whether the post is a root post rather than a reply.
func (p *Post) IsRoot() bool { return p.ReplyToID == nil }

// Like pairs a user with a post, at most once per pair. Rows are hard-deleted
// on unlike so the unique index always reflects the current state.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"column:post_id;not null;index;uniqueIndex:idx_post_user" json:"post_id"`
	UserID    uint      `gorm:"column:user_id;not null;uniqueIndex:idx_post_user" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// PostView is the post shape returned by listings: the post joined with its
// author summary and engagement counts aggregated at read time.
type PostView struct {
	ID         uint          `json:"id"`
	Content    string        `json:"content"`
	ReplyToID  *uint         `json:"replyToId"`
	CreatedAt  time.Time     `json:"createdAt"`
	Author     AuthorSummary `json:"author"`
	ReplyCount int64         `json:"replyCount"`
	LikeCount  int64         `json:"likeCount"`
}
