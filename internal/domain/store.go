package domain

import "context"

// Store 聚合三个仓储；WithinTx 内的写入要么全部提交要么全部回滚。
// fn 必须只使用传入的 ctx 和 Store。
type Store interface {
	Users() UserRepository
	Needs() NeedRepository
	Transactions() TransactionRepository
	WithinTx(ctx context.Context, fn func(ctx context.Context, s Store) error) error
}
