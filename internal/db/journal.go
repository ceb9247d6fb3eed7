package laundry

import (
	"context"
	"fmt"
	"time"

	model "github.com/glkeru/laundry/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Журнал в mongo, если postgres не настроен
type MongoJournal struct {
	rewards     *mongo.Collection
	redemptions *mongo.Collection
}

func NewMongoJournal(m *MongoDB) *MongoJournal {
	return &MongoJournal{m.db.Collection("rewards"), m.db.Collection("redemptions")}
}

func (j *MongoJournal) SaveRewards(ctx context.Context, rewards []model.Reward) error {
	if len(rewards) == 0 {
		return nil
	}
	writes := make([]mongo.WriteModel, 0, len(rewards))
	for _, r := range rewards {
		writes = append(writes, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"id": r.ID}).
			SetReplacement(r).
			SetUpsert(true))
	}
	_, err := j.rewards.BulkWrite(ctx, writes)
	return err
}

func (j *MongoJournal) SaveRedemptions(ctx context.Context, redemptions []model.Redemption) error {
	if len(redemptions) == 0 {
		return nil
	}
	writes := make([]mongo.WriteModel, 0, len(redemptions))
	for _, r := range redemptions {
		// статус мог уже измениться (купон погашен), не перезаписываем
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"id": r.ID}).
			SetUpdate(bson.M{"$setOnInsert": r}).
			SetUpsert(true))
	}
	_, err := j.redemptions.BulkWrite(ctx, writes)
	return err
}

func (j *MongoJournal) GetRewards(ctx context.Context, userID string) ([]model.Reward, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	result, err := j.rewards.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer result.Close(ctx)

	var rewards []model.Reward
	for result.Next(ctx) {
		var r model.Reward
		if err := result.Decode(&r); err != nil {
			return nil, err
		}
		rewards = append(rewards, r)
	}
	return rewards, result.Err()
}

func (j *MongoJournal) GetRedemptions(ctx context.Context, userID string) ([]model.Redemption, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	result, err := j.redemptions.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer result.Close(ctx)

	var redemptions []model.Redemption
	for result.Next(ctx) {
		var r model.Redemption
		if err := result.Decode(&r); err != nil {
			return nil, err
		}
		redemptions = append(redemptions, r)
	}
	return redemptions, result.Err()
}

func (j *MongoJournal) GetRedemptionByCoupon(ctx context.Context, code string) (model.Redemption, error) {
	var r model.Redemption
	err := j.redemptions.FindOne(ctx, bson.M{"couponCode": code}).Decode(&r)
	if err != nil {
		return model.Redemption{}, mongoErr(err, "coupon "+code)
	}
	return r, nil
}

func (j *MongoJournal) UpdateRedemptionStatus(ctx context.Context, id string, from model.RedemptionStatus,
	to model.RedemptionStatus, at time.Time) error {
	set := bson.M{"status": to}
	if to == model.RedemptionUsed {
		set["usedAt"] = at
	}
	res, err := j.redemptions.UpdateOne(ctx, bson.M{"id": id, "status": from}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 1 {
		return nil
	}
	n, err := j.redemptions.CountDocuments(ctx, bson.M{"id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return mongoErr(mongo.ErrNoDocuments, "redemption "+id)
	}
	return fmt.Errorf("redemption %s %w", id, model.ErrVersionConflict)
}

func (j *MongoJournal) ExpireRedemptions(ctx context.Context, now time.Time) (int64, error) {
	res, err := j.redemptions.UpdateMany(ctx,
		bson.M{"status": model.RedemptionPending, "validUntil": bson.M{"$lt": now}},
		bson.M{"$set": bson.M{"status": model.RedemptionExpired}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
