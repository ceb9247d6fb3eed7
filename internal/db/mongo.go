package laundry

import (
	"context"
	"errors"
	"fmt"
	"time"

	model "github.com/glkeru/laundry/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoDB struct {
	mgo *mongo.Client
	db  *mongo.Database
}

func NewMongoDB(uri string, base string) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if uri == "" {
		return nil, fmt.Errorf("env LAUNDRY_MONGO is not set")
	}
	options := options.Client().ApplyURI("mongodb://" + uri)
	client, err := mongo.Connect(ctx, options)
	if err != nil {
		return nil, err
	}
	err = client.Ping(ctx, nil)
	if err != nil {
		return nil, err
	}
	m := &MongoDB{client, client.Database(base)}
	if err := m.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *MongoDB) Close(ctx context.Context) error {
	return m.mgo.Disconnect(ctx)
}

func unique(fields ...string) mongo.IndexModel {
	keys := bson.D{}
	for _, f := range fields {
		keys = append(keys, bson.E{Key: f, Value: 1})
	}
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetUnique(true)}
}

// уникальные индексы: идентичность заказа, счет на пользователя, реферальный код
func (m *MongoDB) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		"orders": {
			unique("id"), unique("orderNumber"), unique("trackingCode"), unique("tagId"),
		},
		"ledgers": {
			unique("userId"), unique("referralCode"),
		},
		"rewards": {
			unique("id"),
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
		"redemptions": {
			unique("id"),
			{Keys: bson.D{{Key: "couponCode", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "validUntil", Value: 1}}},
		},
	}
	for coll, models := range indexes {
		if _, err := m.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("indexes %s: %w", coll, err)
		}
	}
	return nil
}

func mongoErr(err error, what string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s %w", what, model.ErrNotFound)
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%s %w", what, model.ErrAlreadyExists)
	}
	return err
}

// Запись документа при неизменной версии: ReplaceOne с фильтром по версии
func replaceVersioned(ctx context.Context, coll *mongo.Collection, filter bson.M, version int64, doc any, what string) error {
	filter["version"] = version
	res, err := coll.ReplaceOne(ctx, filter, doc)
	if err != nil {
		return mongoErr(err, what)
	}
	if res.MatchedCount == 1 {
		return nil
	}
	delete(filter, "version")
	n, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %w", what, model.ErrNotFound)
	}
	return fmt.Errorf("%s %w", what, model.ErrVersionConflict)
}
