package docstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"needboard/internal/domain"
)

type userRepo struct{ c *mongo.Collection }

func (r *userRepo) Create(ctx context.Context, u *domain.User) error {
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	if _, err := r.c.InsertOne(ctx, userToDoc(u)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("user %s: %w", u.Email, domain.ErrAlreadyExists)
		}
		return err
	}
	return nil
}

func (r *userRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *userRepo) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var d userDoc
	if err := r.c.FindOne(ctx, filter).Decode(&d); err != nil {
		return nil, notFound(err, "user")
	}
	return d.toDomain(), nil
}

func (r *userRepo) ExistsByEmailOrPhone(ctx context.Context, email, phone string) (bool, error) {
	n, err := r.c.CountDocuments(ctx, bson.M{"$or": bson.A{bson.M{"email": email}, bson.M{"phone": phone}}})
	return n > 0, err
}

func (r *userRepo) List(ctx context.Context, f domain.UserFilter) ([]domain.User, int64, error) {
	filter := bson.M{}
	if s := strings.TrimSpace(f.Q); s != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
		filter["$or"] = bson.A{bson.M{"email": re}, bson.M{"name": re}, bson.M{"phone": re}}
	}
	if f.Role != "" {
		filter["role"] = string(f.Role)
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
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, err
	}
	out := make([]domain.User, 0, len(docs))
	for i := range docs {
		out = append(out, *docs[i].toDomain())
	}
	return out, total, nil
}

func (r *userRepo) AdjustCredits(ctx context.Context, id string, delta int64) (int64, error) {
	filter := bson.M{"_id": id}
	if delta < 0 {
		filter["credits"] = bson.M{"$gte": -delta}
	}
	var d userDoc
	err := r.c.FindOneAndUpdate(ctx, filter,
		bson.M{"$inc": bson.M{"credits": delta}, "$set": bson.M{"updatedAt": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		ok, e := exists(ctx, r.c, id)
		if e != nil {
			return 0, e
		}
		if !ok {
			return 0, fmt.Errorf("user: %w", domain.ErrNotFound)
		}
		return 0, domain.ErrInsufficientCredits
	}
	if err != nil {
		return 0, err
	}
	return d.Credits, nil
}

func (r *userRepo) IncrementCompletedJobs(ctx context.Context, id string) error {
	res, err := r.c.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$inc": bson.M{"completedJobs": 1}, "$set": bson.M{"updatedAt": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user: %w", domain.ErrNotFound)
	}
	return nil
}
