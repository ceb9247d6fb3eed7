package laundry

import (
	"context"

	model "github.com/glkeru/laundry/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type LedgersDB struct {
	coll *mongo.Collection
}

func NewLedgersDB(m *MongoDB) *LedgersDB {
	return &LedgersDB{m.db.Collection("ledgers")}
}

func (l *LedgersDB) GetLedger(ctx context.Context, userID string) (model.Ledger, error) {
	var ledger model.Ledger
	err := l.coll.FindOne(ctx, bson.M{"userId": userID}).Decode(&ledger)
	if err != nil {
		return model.Ledger{}, mongoErr(err, "ledger "+userID)
	}
	return ledger, nil
}

func (l *LedgersDB) GetLedgerByReferralCode(ctx context.Context, code string) (model.Ledger, error) {
	var ledger model.Ledger
	err := l.coll.FindOne(ctx, bson.M{"referralCode": code}).Decode(&ledger)
	if err != nil {
		return model.Ledger{}, mongoErr(err, "referral code "+code)
	}
	return ledger, nil
}

func (l *LedgersDB) CreateLedger(ctx context.Context, ledger model.Ledger) error {
	_, err := l.coll.InsertOne(ctx, ledger)
	if err != nil {
		return mongoErr(err, "ledger "+ledger.UserID)
	}
	return nil
}

// compare-and-swap: документ заменяется, только если версия не изменилась
func (l *LedgersDB) UpdateLedger(ctx context.Context, ledger model.Ledger) error {
	expected := ledger.Version
	ledger.Version++
	return replaceVersioned(ctx, l.coll, bson.M{"userId": ledger.UserID}, expected, ledger, "ledger "+ledger.UserID)
}
