package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/domain"
	"github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/ports"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type reactionRepository struct {
	db *gorm.DB
}

func (r *reactionRepository) CreateIfAbsent(ctx context.Context, params ports.CreateReactionParams) (domain.Reaction, bool, error) {
	rec := reactionModel{
		UserID:        params.UserID,
		ReactableType: string(params.Reactable.Kind),
		ReactableID:   params.Reactable.ID,
		Category:      string(params.Category),
		CreatedAt:     params.CreatedAt,
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"}, {Name: "reactable_type"}, {Name: "reactable_id"}, {Name: "category"},
		},
		DoNothing: true,
	}).Create(&rec)
	if res.Error != nil {
		return domain.Reaction{}, false, res.Error
	}
	if res.RowsAffected > 0 {
		return toDomainReaction(rec), true, nil
	}
	var existing reactionModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND reactable_type = ? AND reactable_id = ? AND category = ?",
			rec.UserID, rec.ReactableType, rec.ReactableID, rec.Category).
		Take(&existing).Error; err != nil {
		return domain.Reaction{}, false, err
	}
	return toDomainReaction(existing), false, nil
}

func (r *reactionRepository) CountByReactorOnOwnedContent(ctx context.Context, ownerID int64, kind domain.EntityKind, reactorID int64, category domain.ReactionCategory) (int64, error) {
	q := r.db.WithContext(ctx).Model(&reactionModel{}).
		Where("reactions.user_id = ?", reactorID).
		Where("reactions.category = ?", string(category)).
		Where("reactions.reactable_type = ?", string(kind))
	switch kind {
	case domain.EntityArticle:
		q = q.Joins("JOIN articles ON articles.id = reactions.reactable_id").Where("articles.user_id = ?", ownerID)
	case domain.EntityComment:
		q = q.Joins("JOIN comments ON comments.id = reactions.reactable_id").Where("comments.user_id = ?", ownerID)
	case domain.EntityUser:
		q = q.Where("reactions.reactable_id = ?", ownerID)
	default:
		return 0, fmt.Errorf("%w: unknown reactable kind %q", domain.ErrInvalidInput, kind)
	}
	var count int64
	err := q.Count(&count).Error
	return count, err
}

type footprintRow struct {
	UserID   int64 `gorm:"column:user_id"`
	AuthorID int64 `gorm:"column:author_id"`
}

func (r *reactionRepository) ArticleReactionFootprints(ctx context.Context, userIDs []int64, categories []domain.ReactionCategory, since time.Time) (map[int64]domain.ReactionFootprint, error) {
	out := make(map[int64]domain.ReactionFootprint, len(userIDs))
	if len(userIDs) == 0 || len(categories) == 0 {
		return out, nil
	}
	var rows []footprintRow
	if err := r.articleReactions(ctx, categories, since).
		Select("reactions.user_id AS user_id, articles.user_id AS author_id").
		Where("reactions.user_id IN ?", userIDs).
		Order("reactions.user_id asc, reactions.id asc").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		fp := out[row.UserID]
		fp.UserID = row.UserID
		fp.Authors = append(fp.Authors, row.AuthorID)
		out[row.UserID] = fp
	}
	return out, nil
}

func (r *reactionRepository) UsersReactingToAuthors(ctx context.Context, authorIDs []int64, categories []domain.ReactionCategory, since time.Time, excludeUserID int64, minAuthors int) ([]int64, error) {
	if len(authorIDs) == 0 || len(categories) == 0 {
		return nil, nil
	}
	var ids []int64
	err := r.articleReactions(ctx, categories, since).
		Where("articles.user_id IN ?", authorIDs).
		Where("reactions.user_id <> ?", excludeUserID).
		Group("reactions.user_id").
		Having("COUNT(DISTINCT articles.user_id) >= ?", minAuthors).
		Order("reactions.user_id asc").
		Pluck("reactions.user_id", &ids).Error
	return ids, err
}

func (r *reactionRepository) articleReactions(ctx context.Context, categories []domain.ReactionCategory, since time.Time) *gorm.DB {
	return r.db.WithContext(ctx).Model(&reactionModel{}).
		Joins("JOIN articles ON articles.id = reactions.reactable_id").
		Where("reactions.reactable_type = ?", string(domain.EntityArticle)).
		Where("reactions.category IN ?", categoryStrings(categories)).
		Where("reactions.created_at >= ?", since)
}

var _ ports.ReactionRepository = (*reactionRepository)(nil)
