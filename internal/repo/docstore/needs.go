package docstore

import (
	"context"
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

type needRepo struct{ c *mongo.Collection }

func (r *needRepo) decodeAll(ctx context.Context, cur *mongo.Cursor) ([]domain.Need, error) {
	var docs []needDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.Need, 0, len(docs))
	for i := range docs {
		out = append(out, *docs[i].toDomain())
	}
	return out, nil
}

func (r *needRepo) Create(ctx context.Context, n *domain.Need) error {
	now := time.Now().UTC()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	n.UpdatedAt = now
	if _, err := r.c.InsertOne(ctx, needToDoc(n)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("need %s: %w", n.ID, domain.ErrAlreadyExists)
		}
		return err
	}
	return nil
}

func (r *needRepo) FindByID(ctx context.Context, id string) (*domain.Need, error) {
	var d needDoc
	if err := r.c.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		return nil, notFound(err, "need "+id)
	}
	return d.toDomain(), nil
}

func activeFilter(f domain.NeedFilter) bson.M {
	now := f.Now
	if now.IsZero() {
		now = time.Now()
	}
	filter := bson.M{"status": string(domain.NeedActive), "expiresAt": bson.M{"$gt": now}}
	if f.Category != "" {
		filter["category"] = string(f.Category)
	}
	if s := strings.TrimSpace(f.Location); s != "" {
		filter["location"] = primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
	}
	budget := bson.M{}
	if f.MinBudget != nil {
		budget["$gte"] = *f.MinBudget
	}
	if f.MaxBudget != nil {
		budget["$lte"] = *f.MaxBudget
	}
	if len(budget) > 0 {
		filter["budget"] = budget
	}
	return filter
}

func sortStage(s domain.NeedSort) bson.D {
	newest := bson.E{Key: "createdAt", Value: -1}
	switch s {
	case domain.SortBudgetHigh:
		return bson.D{{Key: "budget", Value: -1}, newest}
	case domain.SortBudgetLow:
		return bson.D{{Key: "budget", Value: 1}, newest}
	case domain.SortUrgent:
		return bson.D{{Key: "urgentRank", Value: 1}, newest}
	default:
		return bson.D{newest}
	}
}

func (r *needRepo) ListActive(ctx context.Context, f domain.NeedFilter) ([]domain.Need, int64, error) {
	filter := activeFilter(f)
	total, err := r.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	skip, limit := pageOpts(f.Offset, f.Limit)
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$addFields", Value: bson.M{
			"urgentRank": bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{"$timeframe", string(domain.TimeframeUrgent)}}, 0, 1}},
		}}},
		{{Key: "$sort", Value: sortStage(f.Sort)}},
		{{Key: "$skip", Value: skip}},
		{{Key: "$limit", Value: limit}},
	}
	cur, err := r.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, 0, err
	}
	out, err := r.decodeAll(ctx, cur)
	return out, total, err
}

func (r *needRepo) ListByOwner(ctx context.Context, askerID string) ([]domain.Need, error) {
	cur, err := r.c.Find(ctx, bson.M{"user": askerID}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	return r.decodeAll(ctx, cur)
}

func (r *needRepo) ListUnlockedBy(ctx context.Context, fulfillerID string) ([]domain.Need, error) {
	cur, err := r.c.Find(ctx, bson.M{"unlockedBy": fulfillerID}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	return r.decodeAll(ctx, cur)
}

// missOr 更新未命中时区分 not found 和业务冲突
func (r *needRepo) missOr(ctx context.Context, id string, conflict error) error {
	ok, err := exists(ctx, r.c, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("need %s: %w", id, domain.ErrNotFound)
	}
	return conflict
}

func (r *needRepo) AddUnlock(ctx context.Context, needID, fulfillerID string) error {
	res, err := r.c.UpdateOne(ctx,
		bson.M{"_id": needID, "unlockedBy": bson.M{"$ne": fulfillerID}},
		bson.M{"$push": bson.M{"unlockedBy": fulfillerID}, "$set": bson.M{"updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return r.missOr(ctx, needID, domain.ErrAlreadyUnlocked)
	}
	return nil
}

func (r *needRepo) AddOffer(ctx context.Context, needID string, o *domain.Offer) error {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	res, err := r.c.UpdateOne(ctx,
		bson.M{"_id": needID, "offers.fulfiller": bson.M{"$ne": o.Fulfiller}},
		bson.M{"$push": bson.M{"offers": offerToDoc(o)}, "$set": bson.M{"updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return r.missOr(ctx, needID, fmt.Errorf("offer already made: %w", domain.ErrConflict))
	}
	return nil
}

func (r *needRepo) AcceptOffer(ctx context.Context, needID, offerID, fulfillerID string) error {
	res, err := r.c.UpdateOne(ctx,
		bson.M{"_id": needID, "offers": bson.M{"$elemMatch": bson.M{"id": offerID, "status": string(domain.OfferPending)}}},
		bson.M{"$set": bson.M{
			"offers.$[acc].status":   string(domain.OfferAccepted),
			"offers.$[other].status": string(domain.OfferRejected),
			"selectedFulfiller":      fulfillerID,
			"updatedAt":              time.Now().UTC(),
		}},
		options.Update().SetArrayFilters(options.ArrayFilters{Filters: []interface{}{
			bson.M{"acc.id": offerID},
			bson.M{"other.id": bson.M{"$ne": offerID}, "other.status": string(domain.OfferPending)},
		}}),
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return r.missOr(ctx, needID, fmt.Errorf("offer %s not pending: %w", offerID, domain.ErrConflict))
	}
	return nil
}

func (r *needRepo) TransitionStatus(ctx context.Context, needID string, from, to domain.NeedStatus) error {
	res, err := r.c.UpdateOne(ctx,
		bson.M{"_id": needID, "status": string(from)},
		bson.M{"$set": bson.M{"status": string(to), "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return r.missOr(ctx, needID, fmt.Errorf("need %s is not %s: %w", needID, from, domain.ErrConflict))
	}
	return nil
}

func (r *needRepo) CountsForOwner(ctx context.Context, askerID string) (domain.NeedCounts, error) {
	var out domain.NeedCounts
	sizeOf := func(field string) bson.M {
		return bson.M{"$size": bson.M{"$ifNull": bson.A{"$" + field, bson.A{}}}}
	}
	cur, err := r.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user": askerID}}},
		{{Key: "$group", Value: bson.M{
			"_id":     "$status",
			"n":       bson.M{"$sum": 1},
			"unlocks": bson.M{"$sum": sizeOf("unlockedBy")},
			"offers":  bson.M{"$sum": sizeOf("offers")},
		}}},
	})
	if err != nil {
		return out, err
	}
	var rows []struct {
		Status  string `bson:"_id"`
		N       int64  `bson:"n"`
		Unlocks int64  `bson:"unlocks"`
		Offers  int64  `bson:"offers"`
	}
	if err := cur.All(ctx, &rows); err != nil {
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
		out.Unlocks += row.Unlocks
		out.Offers += row.Offers
	}
	return out, nil
}

func (r *needRepo) CountUnlockedBy(ctx context.Context, fulfillerID string) (int64, error) {
	return r.c.CountDocuments(ctx, bson.M{"unlockedBy": fulfillerID})
}

// DeleteExpired TTL 索引每 60s 左右跑一次；这里补一个主动清理
func (r *needRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.c.DeleteMany(ctx, bson.M{"expiresAt": bson.M{"$lte": now}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
