package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Email        string `gorm:"column:email;size:255;not null;uniqueIndex" json:"email"`
	Username     string `gorm:"column:username;size:255;not null;uniqueIndex" json:"username"`
	PasswordHash string `gorm:"column:password_hash;size:255;not null" json:"-"`

	Posts []Post `gorm:"foreignKey:UserID" json:"posts,omitempty"`
}

// Follow is the directed edge "FollowerID follows FolloweeID". The composite
// unique index allows at most one active edge per pair; rows are hard-deleted
// on unfollow, so presence of the row means "following". No gorm.Model here:
// a soft-deleted edge would still occupy the unique index.
type Follow struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FollowerID uint      `gorm:"column:follower_id;not null;index;uniqueIndex:idx_follower_followee" json:"follower_id"`
	FolloweeID uint      `gorm:"column:followee_id;not null;uniqueIndex:idx_follower_followee" json:"followee_id"`
	CreatedAt  time.Time `json:"created_at"`

	Follower *User `gorm:"foreignKey:FollowerID" json:"follower,omitempty"`
	Followee *User `gorm:"foreignKey:FolloweeID" json:"followee,omitempty"`
}

// AuthorSummary is the minimal author shape attached to posts.
type AuthorSummary struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

// Profile is the public user shape with live counts.
type Profile struct {
	ID             uint      `json:"id"`
	Username       string    `json:"username"`
	CreatedAt      time.Time `json:"createdAt"`
	PostsCount     int64     `json:"postsCount"`
	FollowersCount int64     `json:"followersCount"`
	FollowingCount int64     `json:"followingCount"`
}
