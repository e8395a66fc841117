package repo

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"needboard/internal/domain"
	"needboard/internal/feature/ledger"
)

// TxRepo 账本：只追加，唯一的原地修改是受控的状态迁移
type TxRepo struct{ db *gorm.DB }

func NewTxRepo(db *gorm.DB) *TxRepo { return &TxRepo{db: db} }

func (r *TxRepo) Create(ctx context.Context, t *domain.Transaction) error {
	m := ledger.FromDomain(t)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		if isDupKey(err) {
			return fmt.Errorf("payment reference already used: %w", domain.ErrConflict)
		}
		return err
	}
	t.CreatedAt = m.CreatedAt
	return nil
}

func (r *TxRepo) FindByID(ctx context.Context, id string) (*domain.Transaction, error) {
	var m ledger.TransactionModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if isNotFound(err) {
		return nil, fmt.Errorf("transaction %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return m.ToDomain(), nil
}

func (r *TxRepo) List(ctx context.Context, f domain.TxFilter) ([]domain.Transaction, int64, error) {
	q := r.db.WithContext(ctx).Model(&ledger.TransactionModel{})
	if f.User != "" {
		q = q.Where("user_id = ?", f.User)
	}
	if f.Type != "" {
		q = q.Where("type = ?", string(f.Type))
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var ms []ledger.TransactionModel
	if err := q.Order("created_at DESC").Offset(max(0, f.Offset)).Limit(clampLimit(f.Limit)).Find(&ms).Error; err != nil {
		return nil, 0, err
	}
	out := make([]domain.Transaction, 0, len(ms))
	for i := range ms {
		out = append(out, *ms[i].ToDomain())
	}
	return out, total, nil
}

func (r *TxRepo) Sum(ctx context.Context, userID string, typ domain.TxType, status domain.TxStatus) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).Model(&ledger.TransactionModel{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ? AND type = ? AND status = ?", userID, string(typ), string(status)).
		Scan(&sum).Error
	return sum, err
}

func (r *TxRepo) TransitionStatus(ctx context.Context, id string, from, to domain.TxStatus) error {
	res := r.db.WithContext(ctx).Model(&ledger.TransactionModel{}).
		Where("id = ? AND status = ?", id, string(from)).
		Update("status", string(to))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("transaction %s is not %s: %w", id, from, domain.ErrConflict)
	}
	return nil
}
