// Package engagement owns the like and follow relationships: the toggle
// engine that flips them and the aggregate counts read from them.
package engagement

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/kaglah/ripple-server/cmd/models"
)

// ErrSelfFollow is returned before any store access when a user tries to
// follow themselves.
var ErrSelfFollow = errors.New("cannot follow yourself")

// ToggleLike flips the like relationship between a user and a post and
// reports the resulting state. The composite unique index on likes is the
// arbiter under concurrent toggles: a duplicate insert means another request
// activated the pair first, which converges to the same observable state and
// is not an error.
func ToggleLike(ctx context.Context, db *gorm.DB, userID, postID uint) (liked bool, err error) {
	res := db.WithContext(ctx).Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.Like{})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return false, nil
	}

	like := models.Like{PostID: postID, UserID: userID}
	if err := db.WithContext(ctx).Create(&like).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return true, nil
		}
		return false, err
	}
	return true, nil
}

// ToggleFollow flips the directed follow edge follower -> followee. Same
// convergence rules as ToggleLike.
func ToggleFollow(ctx context.Context, db *gorm.DB, followerID, followeeID uint) (following bool, err error) {
	if followerID == followeeID {
		return false, ErrSelfFollow
	}

	res := db.WithContext(ctx).Where("follower_id = ? AND followee_id = ?", followerID, followeeID).Delete(&models.Follow{})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return false, nil
	}

	follow := models.Follow{FollowerID: followerID, FolloweeID: followeeID}
	if err := db.WithContext(ctx).Create(&follow).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return true, nil
		}
		return false, err
	}
	return true, nil
}

// FolloweeIDs returns every user the given user follows. The follow set is
// read unbounded; feed pagination happens on posts, not on the set itself.
func FolloweeIDs(ctx context.Context, db *gorm.DB, userID uint) ([]uint, error) {
	var ids []uint
	err := db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ?", userID).
		Pluck("followee_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// LikeCounts returns the live like count for each of the given posts.
// Posts with no likes are absent from the map.
func LikeCounts(ctx context.Context, db *gorm.DB, postIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(postIDs))
	if len(postIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		PostID uint
		Count  int64
	}
	err := db.WithContext(ctx).Model(&models.Like{}).
		Select("post_id, COUNT(*) AS count").
		Where("post_id IN ?", postIDs).
		Group("post_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.PostID] = row.Count
	}
	return counts, nil
}

// ReplyCounts returns the live reply count for each of the given posts.
func ReplyCounts(ctx context.Context, db *gorm.DB, postIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(postIDs))
	if len(postIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		ReplyToID uint
		Count     int64
	}
	err := db.WithContext(ctx).Model(&models.Post{}).
		Select("reply_to_id, COUNT(*) AS count").
		Where("reply_to_id IN ?", postIDs).
		Group("reply_to_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.ReplyToID] = row.Count
	}
	return counts, nil
}

// ProfileCounts aggregates the public counters shown on a profile.
func ProfileCounts(ctx context.Context, db *gorm.DB, userID uint) (posts, followers, following int64, err error) {
	tx := db.WithContext(ctx)
	if err = tx.Model(&models.Post{}).Where("user_id = ?", userID).Count(&posts).Error; err != nil {
		return
	}
	if err = tx.Model(&models.Follow{}).Where("followee_id = ?", userID).Count(&followers).Error; err != nil {
		return
	}
	err = tx.Model(&models.Follow{}).Where("follower_id = ?", userID).Count(&following).Error
	return
}
