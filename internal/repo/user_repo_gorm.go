package repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"needboard/internal/domain"
	"needboard/internal/feature/user"
)

type UserRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{db: db} }

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	m := user.FromDomain(u)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		if isDupKey(err) {
			return fmt.Errorf("user %s: %w", u.Email, domain.ErrAlreadyExists)
		}
		return err
	}
	u.CreatedAt, u.UpdatedAt = m.CreatedAt, m.UpdatedAt
	return nil
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *UserRepo) first(ctx context.Context, cond string, arg any) (*domain.User, error) {
	var m user.UserModel
	err := r.db.WithContext(ctx).Where(cond, arg).First(&m).Error
	if isNotFound(err) {
		return nil, fmt.Errorf("user: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return m.ToDomain(), nil
}

func (r *UserRepo) ExistsByEmailOrPhone(ctx context.Context, email, phone string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&user.UserModel{}).
		Where("email = ? OR phone = ?", email, phone).Count(&n).Error
	return n > 0, err
}

func (r *UserRepo) List(ctx context.Context, f domain.UserFilter) ([]domain.User, int64, error) {
	q := r.db.WithContext(ctx).Model(&user.UserModel{})
	if s := strings.TrimSpace(f.Q); s != "" {
		like := "%" + s + "%"
		q = q.Where("email LIKE ? OR name LIKE ? OR phone LIKE ?", like, like, like)
	}
	if f.Role != "" {
		q = q.Where("role = ?", string(f.Role))
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var ms []user.UserModel
	if err := q.Order("created_at DESC").Offset(max(0, f.Offset)).Limit(clampLimit(f.Limit)).Find(&ms).Error; err != nil {
		return nil, 0, err
	}
	out := make([]domain.User, 0, len(ms))
	for i := range ms {
		out = append(out, *ms[i].ToDomain())
	}
	return out, total, nil
}

func (r *UserRepo) AdjustCredits(ctx context.Context, id string, delta int64) (int64, error) {
	db := r.db.WithContext(ctx)
	if delta != 0 {
		// 条件更新：余额不足时不命中任何行
		res := db.Model(&user.UserModel{}).
			Where("id = ? AND credits + ? >= 0", id, delta).
			Updates(map[string]any{
				"credits":    gorm.Expr("credits + ?", delta),
				"updated_at": time.Now(),
			})
		if res.Error != nil {
			return 0, res.Error
		}
		if res.RowsAffected == 0 {
			if _, err := r.FindByID(ctx, id); err != nil {
				return 0, err
			}
			return 0, domain.ErrInsufficientCredits
		}
	}
	var balance int64
	if err := db.Model(&user.UserModel{}).Where("id = ?", id).Select("credits").Scan(&balance).Error; err != nil {
		return 0, err
	}
	return balance, nil
}

func (r *UserRepo) IncrementCompletedJobs(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&user.UserModel{}).Where("id = ?", id).
		Updates(map[string]any{
			"completed_jobs": gorm.Expr("completed_jobs + 1"),
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user: %w", domain.ErrNotFound)
	}
	return nil
}
