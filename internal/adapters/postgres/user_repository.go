package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/domain"
	"github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/ports"
	"gorm.io/gorm"
)

type userRepository struct {
	db *gorm.DB
}

func (r *userRepository) GetByID(ctx context.Context, userID int64) (domain.User, error) {
	var rec userModel
	if err := r.db.WithContext(ctx).Where("id = ?", userID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	roles, err := r.rolesFor(ctx, []int64{rec.ID})
	if err != nil {
		return domain.User{}, err
	}
	return toDomainUser(rec, roles[rec.ID]), nil
}

func (r *userRepository) ListByIDs(ctx context.Context, userIDs []int64) ([]domain.User, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var rows []userModel
	if err := r.db.WithContext(ctx).Where("id IN ?", userIDs).Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return r.withRoles(ctx, rows)
}

func (r *userRepository) ListByEmailDomain(ctx context.Context, emailDomain string) ([]domain.User, error) {
	var rows []userModel
	if err := r.db.WithContext(ctx).
		Where("email ILIKE ?", emailDomainPattern(emailDomain)).
		Order("id asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return r.withRoles(ctx, rows)
}

func (r *userRepository) ExistsByEmailDomainRegisteredBefore(ctx context.Context, emailDomain string, cutoff time.Time) (bool, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&userModel{}).
		Where("email ILIKE ?", emailDomainPattern(emailDomain)).
		Where("registered_at < ?", cutoff).
		Limit(1).
		Pluck("id", &ids).Error
	return len(ids) > 0, err
}

func (r *userRepository) CountByEmailDomainWithRolesRegisteredSince(ctx context.Context, emailDomain string, roles []domain.Role, cutoff time.Time) (int64, error) {
	if len(roles) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&userModel{}).
		Joins("JOIN user_roles ON user_roles.user_id = users.id").
		Where("users.email ILIKE ?", emailDomainPattern(emailDomain)).
		Where("users.registered_at >= ?", cutoff).
		Where("user_roles.role IN ?", roleStrings(roles)).
		Distinct("users.id").
		Count(&count).Error
	return count, err
}

func (r *userRepository) withRoles(ctx context.Context, rows []userModel) ([]domain.User, error) {
	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	roles, err := r.rolesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]domain.User, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainUser(row, roles[row.ID]))
	}
	return out, nil
}

func (r *userRepository) rolesFor(ctx context.Context, userIDs []int64) (map[int64][]string, error) {
	out := make(map[int64][]string, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var rows []userRoleModel
	if err := r.db.WithContext(ctx).Where("user_id IN ?", userIDs).Order("role asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.UserID] = append(out[row.UserID], row.Role)
	}
	return out, nil
}

var _ ports.UserRepository = (*userRepository)(nil)
