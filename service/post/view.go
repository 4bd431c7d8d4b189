package post

import (
	"context"

	"gorm.io/gorm"

	"github.com/kaglah/ripple-server/cmd/models"
	"github.com/kaglah/ripple-server/service/engagement"
)

// BuildViews joins a page of posts with author summaries and live engagement
// counts. The posts must have been loaded with User preloaded. Always returns
// a non-nil slice so empty pages encode as [] rather than null.
func BuildViews(ctx context.Context, db *gorm.DB, posts []models.Post) ([]models.PostView, error) {
	ids := make([]uint, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}

	likeCounts, err := engagement.LikeCounts(ctx, db, ids)
	if err != nil {
		return nil, err
	}
	replyCounts, err := engagement.ReplyCounts(ctx, db, ids)
	if err != nil {
		return nil, err
	}

	views := make([]models.PostView, 0, len(posts))
	for _, p := range posts {
		view := models.PostView{
			ID:         p.ID,
			Content:    p.Content,
			ReplyToID:  p.ReplyToID,
			CreatedAt:  p.CreatedAt,
			ReplyCount: replyCounts[p.ID],
			LikeCount:  likeCounts[p.ID],
		}
		if p.User != nil {
			view.Author = models.AuthorSummary{ID: p.User.ID, Username: p.User.Username}
		}
		views = append(views, view)
	}
	return views, nil
}
