package postgres

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/domain"
	"github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/ports"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type moderationRepository struct {
	db *gorm.DB
}

func (r *moderationRepository) SuspendUser(ctx context.Context, params ports.SuspendUserParams) (domain.Note, error) {
	note := noteModel{
		AuthorID:     params.AuthorID,
		NoteableType: string(domain.EntityUser),
		NoteableID:   params.UserID,
		Reason:       string(params.Reason),
		Content:      params.Content,
		CreatedAt:    params.At,
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user userModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", params.UserID).
			Take(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		role := userRoleModel{UserID: params.UserID, Role: string(domain.RoleSuspended), CreatedAt: params.At}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&role).Error; err != nil {
			return err
		}
		if err := tx.Create(&note).Error; err != nil {
			return err
		}
		if params.Event == nil {
			return nil
		}
		rec := toOutboxModel(*params.Event)
		return tx.Create(&rec).Error
	})
	if err != nil {
		return domain.Note{}, err
	}
	return toDomainNote(note), nil
}

// ApplyReputationPenalty locks rows in ascending id order so concurrent
// penalties over overlapping groups cannot deadlock.
func (r *moderationRepository) ApplyReputationPenalty(ctx context.Context, params ports.ReputationPenaltyParams) ([]ports.ReputationPenaltyResult, error) {
	ids := uniqueSorted(params.UserIDs)
	results := make([]ports.ReputationPenaltyResult, 0, len(ids))
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range ids {
			var user userModel
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("id = ?", id).
				Take(&user).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return domain.ErrNotFound
				}
				return err
			}
			updated := params.Adjust(user.ReputationModifier)
			if err := tx.Model(&userModel{}).
				Where("id = ?", id).
				Update("reputation_modifier", updated).Error; err != nil {
				return err
			}
			note := noteModel{
				AuthorID:     params.AuthorID,
				NoteableType: string(domain.EntityUser),
				NoteableID:   id,
				Reason:       string(params.Reason),
				Content:      params.Content(updated),
				CreatedAt:    params.At,
			}
			if err := tx.Create(&note).Error; err != nil {
				return err
			}
			results = append(results, ports.ReputationPenaltyResult{UserID: id, Previous: user.ReputationModifier, Updated: updated})
		}
		if params.Event == nil {
			return nil
		}
		rec := toOutboxModel(*params.Event)
		return tx.Create(&rec).Error
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (r *moderationRepository) BlockEmailDomain(ctx context.Context, emailDomain string, at time.Time) (bool, error) {
	rec := blockedEmailDomainModel{Domain: emailDomain, CreatedAt: at}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "domain"}},
		DoNothing: true,
	}).Create(&rec)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func uniqueSorted(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

var _ ports.ModerationRepository = (*moderationRepository)(nil)
