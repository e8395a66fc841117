// Package docstore 是 MongoDB 实现：需求文档内嵌 unlockedBy / offers，
// expiresAt 上的 TTL 索引负责被动删除过期需求。多文档写入需要副本集。
package docstore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"needboard/internal/domain"
)

const (
	colUsers        = "users"
	colNeeds        = "needs"
	colTransactions = "transactions"
)

type Store struct {
	db    *mongo.Database
	users *mongo.Collection
	needs *mongo.Collection
	txs   *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		db:    db,
		users: db.Collection(colUsers),
		needs: db.Collection(colNeeds),
		txs:   db.Collection(colTransactions),
	}
}

func (s *Store) Users() domain.UserRepository { return &userRepo{c: s.users} }

func (s *Store) Needs() domain.NeedRepository { return &needRepo{c: s.needs} }

func (s *Store) Transactions() domain.TransactionRepository { return &txRepo{c: s.txs} }

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, st domain.Store) error) error {
	// 已在事务内则直接复用
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx, s)
	}
	sess, err := s.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, s)
	})
	return err
}

func (s *Store) Disconnect(ctx context.Context) error { return s.db.Client().Disconnect(ctx) }

func (s *Store) EnsureIndexes(ctx context.Context) error {
	specs := map[*mongo.Collection][]mongo.IndexModel{
		s.users: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "phone", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		s.needs: {
			{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "user", Value: 1}}},
			{Keys: bson.D{{Key: "unlockedBy", Value: 1}}},
		},
		s.txs: {
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
			{
				Keys: bson.D{{Key: "paymentRef", Value: 1}},
				Options: options.Index().SetUnique(true).
					SetPartialFilterExpression(bson.M{"paymentRef": bson.M{"$type": "string"}}),
			},
		},
	}
	for c, models := range specs {
		if _, err := c.Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", c.Name(), err)
		}
	}
	return nil
}

func notFound(err error, what string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return err
}

func exists(ctx context.Context, c *mongo.Collection, id string) (bool, error) {
	n, err := c.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	return n > 0, err
}

func pageOpts(offset, limit int) (int64, int64) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return int64(max(0, offset)), int64(limit)
}
