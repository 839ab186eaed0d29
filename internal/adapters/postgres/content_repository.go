package postgres

import (
	"context"
	"errors"

	"github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/domain"
	"github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/ports"
	"gorm.io/gorm"
)

type contentRepository struct {
	db *gorm.DB
}

func (r *contentRepository) GetArticle(ctx context.Context, articleID int64) (domain.Article, error) {
	var rec articleModel
	if err := r.db.WithContext(ctx).Where("id = ?", articleID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Article{}, domain.ErrNotFound
		}
		return domain.Article{}, err
	}
	return toDomainArticle(rec), nil
}

func (r *contentRepository) GetComment(ctx context.Context, commentID int64) (domain.Comment, error) {
	var rec commentModel
	if err := r.db.WithContext(ctx).Where("id = ?", commentID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Comment{}, domain.ErrNotFound
		}
		return domain.Comment{}, err
	}
	return toDomainComment(rec), nil
}

var _ ports.ContentRepository = (*contentRepository)(nil)
