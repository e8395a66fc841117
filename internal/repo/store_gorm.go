package repo

import (
	"context"

	"gorm.io/gorm"

	"needboard/internal/domain"
	"needboard/internal/feature/ledger"
	"needboard/internal/feature/need"
	"needboard/internal/feature/user"
)

// GormStore 关系型实现（postgres / mysql / sqlite）
type GormStore struct{ db *gorm.DB }

func NewGormStore(db *gorm.DB) *GormStore { return &GormStore{db: db} }

func (s *GormStore) Users() domain.UserRepository { return &UserRepo{db: s.db} }

func (s *GormStore) Needs() domain.NeedRepository { return &NeedRepo{db: s.db} }

func (s *GormStore) Transactions() domain.TransactionRepository { return &TxRepo{db: s.db} }

func (s *GormStore) WithinTx(ctx context.Context, fn func(ctx context.Context, st domain.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &GormStore{db: tx})
	})
}

func (s *GormStore) AutoMigrate() error {
	return s.db.AutoMigrate(
		&user.UserModel{},
		&need.NeedModel{},
		&need.UnlockModel{},
		&need.OfferModel{},
		&ledger.TransactionModel{},
	)
}
