package laundry

import (
	"context"

	model "github.com/glkeru/laundry/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type OrdersDB struct {
	coll *mongo.Collection
}

func NewOrdersDB(m *MongoDB) *OrdersDB {
	return &OrdersDB{m.db.Collection("orders")}
}

func (o *OrdersDB) CreateOrder(ctx context.Context, order model.Order) error {
	_, err := o.coll.InsertOne(ctx, order)
	if err != nil {
		return mongoErr(err, "order "+order.ID)
	}
	return nil
}

func (o *OrdersDB) find(ctx context.Context, filter bson.M, what string) (model.Order, error) {
	var order model.Order
	err := o.coll.FindOne(ctx, filter).Decode(&order)
	if err != nil {
		return model.Order{}, mongoErr(err, what)
	}
	return order, nil
}

func (o *OrdersDB) GetOrder(ctx context.Context, orderID string) (model.Order, error) {
	return o.find(ctx, bson.M{"id": orderID}, "order "+orderID)
}

func (o *OrdersDB) GetOrderByTag(ctx context.Context, tagID string) (model.Order, error) {
	return o.find(ctx, bson.M{"tagId": tagID}, "tag "+tagID)
}

func (o *OrdersDB) GetOrderByTracking(ctx context.Context, trackingCode string) (model.Order, error) {
	return o.find(ctx, bson.M{"trackingCode": trackingCode}, "tracking code "+trackingCode)
}

func (o *OrdersDB) UpdateOrder(ctx context.Context, order model.Order) error {
	expected := order.Version
	order.Version++
	return replaceVersioned(ctx, o.coll, bson.M{"id": order.ID}, expected, order, "order "+order.ID)
}
