package docstore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"needboard/internal/domain"
)

type txRepo struct{ c *mongo.Collection }

func (r *txRepo) Create(ctx context.Context, t *domain.Transaction) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if _, err := r.c.InsertOne(ctx, txToDoc(t)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("payment reference already used: %w", domain.ErrConflict)
		}
		return err
	}
	return nil
}

func (r *txRepo) FindByID(ctx context.Context, id string) (*domain.Transaction, error) {
	var d txDoc
	if err := r.c.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		return nil, notFound(err, "transaction "+id)
	}
	return d.toDomain(), nil
}

func (r *txRepo) List(ctx context.Context, f domain.TxFilter) ([]domain.Transaction, int64, error) {
	filter := bson.M{}
	if f.User != "" {
		filter["user"] = f.User
	}
	if f.Type != "" {
		filter["type"] = string(f.Type)
	}
	total, err := r.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	skip, limit := pageOpts(f.Offset, f.Limit)
	cur, err := r.c.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetSkip(skip).SetLimit(limit))
	if err != nil {
		return nil, 0, err
	}
	var docs []txDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, err
	}
	out := make([]domain.Transaction, 0, len(docs))
	for i := range docs {
		out = append(out, *docs[i].toDomain())
	}
	return out, total, nil
}

func (r *txRepo) Sum(ctx context.Context, userID string, typ domain.TxType, status domain.TxStatus) (int64, error) {
	cur, err := r.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user": userID, "type": string(typ), "status": string(status)}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$amount"}}}},
	})
	if err != nil {
		return 0, err
	}
	var rows []struct {
		Total int64 `bson:"total"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Total, nil
}

func (r *txRepo) TransitionStatus(ctx context.Context, id string, from, to domain.TxStatus) error {
	res, err := r.c.UpdateOne(ctx, bson.M{"_id": id, "status": string(from)},
		bson.M{"$set": bson.M{"status": string(to)}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		ok, err := exists(ctx, r.c, id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("transaction %s: %w", id, domain.ErrNotFound)
		}
		return fmt.Errorf("transaction %s is not %s: %w", id, from, domain.ErrConflict)
	}
	return nil
}
