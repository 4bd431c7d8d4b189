// Package feed composes the personalized timeline: root posts authored by
// the viewer's followees, newest first.
package feed

import (
	"context"

	"gorm.io/gorm"

	"github.com/kaglah/ripple-server/cmd/models"
	"github.com/kaglah/ripple-server/service/engagement"
	"github.com/kaglah/ripple-server/service/post"
)

// Compose builds one feed page for the viewer. Ordering is created_at
// descending with id descending as the tie-breaker, so pages stay
// deterministic when timestamps collide. An empty followee set composes an
// empty page, not an error.
func Compose(ctx context.Context, db *gorm.DB, viewerID uint, page, limit int) ([]models.PostView, error) {
	followeeIDs, err := engagement.FolloweeIDs(ctx, db, viewerID)
	if err != nil {
		return nil, err
	}
	if len(followeeIDs) == 0 {
		return []models.PostView{}, nil
	}

	var posts []models.Post
	err = db.WithContext(ctx).
		Preload("User").
		Where("user_id IN ? AND reply_to_id IS NULL", followeeIDs).
		Order("created_at DESC, id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}

	return post.BuildViews(ctx, db, posts)
}
