package postgres

import (
	"context"

	"github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/domain"
	"github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/ports"
	"gorm.io/gorm"
)

type socialGraphRepository struct {
	db *gorm.DB
}

func (r *socialGraphRepository) MutuallyFollow(ctx context.Context, userID, otherID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&followModel{}).
		Where("followable_type = ?", string(domain.EntityUser)).
		Where("(follower_id = ? AND followable_id = ?) OR (follower_id = ? AND followable_id = ?)", userID, otherID, otherID, userID).
		Count(&count).Error
	return count >= 2, err
}

func (r *socialGraphRepository) ShareOrganization(ctx context.Context, userID, otherID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Table("organization_memberships AS a").
		Joins("JOIN organization_memberships AS b ON b.organization_id = a.organization_id").
		Where("a.user_id = ? AND b.user_id = ?", userID, otherID).
		Count(&count).Error
	return count > 0, err
}

var _ ports.SocialGraphRepository = (*socialGraphRepository)(nil)
