package repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"needboard/internal/domain"
	"needboard/internal/feature/need"
)

type NeedRepo struct{ db *gorm.DB }

func NewNeedRepo(db *gorm.DB) *NeedRepo { return &NeedRepo{db: db} }

func withChildren(q *gorm.DB) *gorm.DB {
	byCreated := func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }
	return q.Preload("Unlocks", byCreated).Preload("Offers", byCreated)
}

func toDomainNeeds(ms []need.NeedModel) []domain.Need {
	out := make([]domain.Need, 0, len(ms))
	for i := range ms {
		out = append(out, *ms[i].ToDomain())
	}
	return out
}

func (r *NeedRepo) Create(ctx context.Context, n *domain.Need) error {
	m := need.FromDomain(n)
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(m).Error; err != nil {
		if isDupKey(err) {
			return fmt.Errorf("need %s: %w", n.ID, domain.ErrAlreadyExists)
		}
		return err
	}
	n.CreatedAt, n.UpdatedAt = m.CreatedAt, m.UpdatedAt
	return nil
}

func (r *NeedRepo) FindByID(ctx context.Context, id string) (*domain.Need, error) {
	var m need.NeedModel
	err := withChildren(r.db.WithContext(ctx)).Where("id = ?", id).First(&m).Error
	if isNotFound(err) {
		return nil, fmt.Errorf("need %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return m.ToDomain(), nil
}

func (r *NeedRepo) ListActive(ctx context.Context, f domain.NeedFilter) ([]domain.Need, int64, error) {
	now := f.Now
	if now.IsZero() {
		now = time.Now()
	}
	q := r.db.WithContext(ctx).Model(&need.NeedModel{}).
		Where("status = ? AND expires_at > ?", string(domain.NeedActive), now)
	if f.Category != "" {
		q = q.Where("category = ?", string(f.Category))
	}
	if s := strings.TrimSpace(f.Location); s != "" {
		q = q.Where("LOWER(location) LIKE ?", "%"+strings.ToLower(s)+"%")
	}
	if f.MinBudget != nil {
		q = q.Where("budget >= ?", *f.MinBudget)
	}
	if f.MaxBudget != nil {
		q = q.Where("budget <= ?", *f.MaxBudget)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	switch f.Sort {
	case domain.SortBudgetHigh:
		q = q.Order("budget DESC").Order("created_at DESC")
	case domain.SortBudgetLow:
		q = q.Order("budget ASC").Order("created_at DESC")
	case domain.SortUrgent:
		q = q.Order("CASE WHEN timeframe = 'urgent' THEN 0 ELSE 1 END").Order("created_at DESC")
	default:
		q = q.Order("created_at DESC")
	}

	var ms []need.NeedModel
	if err := withChildren(q).Offset(max(0, f.Offset)).Limit(clampLimit(f.Limit)).Find(&ms).Error; err != nil {
		return nil, 0, err
	}
	return toDomainNeeds(ms), total, nil
}

func (r *NeedRepo) ListByOwner(ctx context.Context, askerID string) ([]domain.Need, error) {
	var ms []need.NeedModel
	err := withChildren(r.db.WithContext(ctx)).
		Where("user_id = ?", askerID).Order("created_at DESC").Find(&ms).Error
	if err != nil {
		return nil, err
	}
	return toDomainNeeds(ms), nil
}

func (r *NeedRepo) ListUnlockedBy(ctx context.Context, fulfillerID string) ([]domain.Need, error) {
	db := r.db.WithContext(ctx)
	sub := db.Model(&need.UnlockModel{}).Select("need_id").Where("fulfiller_id = ?", fulfillerID)
	var ms []need.NeedModel
	if err := withChildren(db).Where("id IN (?)", sub).Order("created_at DESC").Find(&ms).Error; err != nil {
		return nil, err
	}
	return toDomainNeeds(ms), nil
}

func (r *NeedRepo) AddUnlock(ctx context.Context, needID, fulfillerID string) error {
	err := r.db.WithContext(ctx).Create(&need.UnlockModel{NeedID: needID, FulfillerID: fulfillerID}).Error
	if isDupKey(err) {
		return domain.ErrAlreadyUnlocked
	}
	return err
}

func (r *NeedRepo) AddOffer(ctx context.Context, needID string, o *domain.Offer) error {
	m := need.OfferFromDomain(needID, o)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		if isDupKey(err) {
			return fmt.Errorf("offer already made: %w", domain.ErrConflict)
		}
		return err
	}
	o.CreatedAt = m.CreatedAt
	return nil
}

func (r *NeedRepo) AcceptOffer(ctx context.Context, needID, offerID, fulfillerID string) error {
	db := r.db.WithContext(ctx)
	res := db.Model(&need.OfferModel{}).
		Where("id = ? AND need_id = ? AND status = ?", offerID, needID, string(domain.OfferPending)).
		Update("status", string(domain.OfferAccepted))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("offer %s not pending: %w", offerID, domain.ErrConflict)
	}
	if err := db.Model(&need.OfferModel{}).
		Where("need_id = ? AND id <> ? AND status = ?", needID, offerID, string(domain.OfferPending)).
		Update("status", string(domain.OfferRejected)).Error; err != nil {
		return err
	}
	return db.Model(&need.NeedModel{}).Where("id = ?", needID).
		Updates(map[string]any{"selected_fulfiller": fulfillerID, "updated_at": time.Now()}).Error
}

func (r *NeedRepo) TransitionStatus(ctx context.Context, needID string, from, to domain.NeedStatus) error {
	res := r.db.WithContext(ctx).Model(&need.NeedModel{}).
		Where("id = ? AND status = ?", needID, string(from)).
		Updates(map[string]any{"status": string(to), "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := r.db.WithContext(ctx).Model(&need.NeedModel{}).Where("id = ?", needID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("need %s: %w", needID, domain.ErrNotFound)
		}
		return fmt.Errorf("need %s is not %s: %w", needID, from, domain.ErrConflict)
	}
	return nil
}

func (r *NeedRepo) CountsForOwner(ctx context.Context, askerID string) (domain.NeedCounts, error) {
	db := r.db.WithContext(ctx)
	var out domain.NeedCounts

	var rows []struct {
		Status string
		N      int64
	}
	if err := db.Model(&need.NeedModel{}).Select("status, COUNT(*) AS n").
		Where("user_id = ?", askerID).Group("status").Scan(&rows).Error; err != nil {
		return out, err
	}
	for _, row := range rows {
		switch domain.NeedStatus(row.Status) {
		case domain.NeedActive:
			out.Active = row.N
		case domain.NeedFulfilled:
			out.Fulfilled = row.N
		case domain.NeedCancelled:
			out.Cancelled = row.N
		}
	}

	if err := db.Model(&need.UnlockModel{}).
		Joins("JOIN needs ON needs.id = need_unlocks.need_id").
		Where("needs.user_id = ?", askerID).Count(&out.Unlocks).Error; err != nil {
		return out, err
	}
	if err := db.Model(&need.OfferModel{}).
		Joins("JOIN needs ON needs.id = need_offers.need_id").
		Where("needs.user_id = ?", askerID).Count(&out.Offers).Error; err != nil {
		return out, err
	}
	return out, nil
}

func (r *NeedRepo) CountUnlockedBy(ctx context.Context, fulfillerID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&need.UnlockModel{}).Where("fulfiller_id = ?", fulfillerID).Count(&n).Error
	return n, err
}

// DeleteExpired 关系库没有 TTL 索引，由 sweeper 定期调用
func (r *NeedRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []string
		if err := tx.Model(&need.NeedModel{}).Where("expires_at <= ?", now).
			Limit(500).Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Where("need_id IN ?", ids).Delete(&need.UnlockModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("need_id IN ?", ids).Delete(&need.OfferModel{}).Error; err != nil {
			return err
		}
		res := tx.Where("id IN ?", ids).Delete(&need.NeedModel{})
		deleted = res.RowsAffected
		return res.Error
	})
	return deleted, err
}
