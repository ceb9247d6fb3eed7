package laundry

import (
	"context"
	"errors"
	"fmt"
	"math"

	model "github.com/glkeru/laundry/internal/models"
	"github.com/google/uuid"
)

// Списание баллов. Проверка баланса и уменьшение выполняются в одной записи счета.
func (s *RewardService) RedeemPoints(ctx context.Context, userID string, req model.RedemptionRequest) (model.Redemption, error) {
	if userID == "" {
		return model.Redemption{}, fmt.Errorf("user is required: %w", model.ErrValidation)
	}
	if !req.Type.Valid() {
		return model.Redemption{}, fmt.Errorf("redemption type %q: %w", req.Type, model.ErrValidation)
	}
	if req.Points <= 0 || req.Points < s.rules.MinRedemption {
		return model.Redemption{}, fmt.Errorf("minimum redemption is %d points, got %d: %w",
			s.rules.MinRedemption, req.Points, model.ErrValidation)
	}

	var red model.Redemption
	_, err := s.mutate(ctx, userID, func(tx *ledgerTx) error {
		l := tx.ledger
		if l.AvailablePoints < req.Points {
			return fmt.Errorf("available %d, requested %d: %w", l.AvailablePoints, req.Points, model.ErrInsufficientPoints)
		}
		l.AvailablePoints -= req.Points
		l.RedeemedPoints += req.Points
		tx.redeemed = req.Points

		red = model.Redemption{
			ID:         uuid.NewString(),
			UserID:     userID,
			Type:       req.Type,
			PointsCost: req.Points,
			CashValue:  math.Round(float64(req.Points)*s.rules.PointValue*100) / 100,
			Status:     model.RedemptionApplied,
			CreatedAt:  tx.now,
			ValidFrom:  tx.now,
			ValidUntil: tx.now.Add(s.rules.RedemptionTTL),
		}
		if req.Type.HasCoupon() {
			red.CouponCode = newCouponCode()
			red.Status = model.RedemptionPending
		}
		l.Outbox.Redemptions = append(l.Outbox.Redemptions, red)

		body := fmt.Sprintf("You redeemed %d points for %.2f credit.", red.PointsCost, red.CashValue)
		if red.CouponCode != "" {
			body = fmt.Sprintf("You redeemed %d points. Your coupon code: %s", red.PointsCost, red.CouponCode)
		}
		tx.notify(model.Notification{
			Title:     "Points redeemed",
			Body:      body,
			Category:  model.CategoryRedemption,
			Priority:  model.PriorityNormal,
			ActionRef: "/redemptions/" + red.ID,
		})
		return nil
	})
	if err != nil {
		return model.Redemption{}, err
	}
	return red, nil
}

// Погашение купона
func (s *RewardService) UseCoupon(ctx context.Context, code string, actor model.Actor) (model.Redemption, error) {
	if code == "" {
		return model.Redemption{}, fmt.Errorf("coupon code is required: %w", model.ErrValidation)
	}
	red, err := s.journal.GetRedemptionByCoupon(ctx, code)
	if err != nil {
		return model.Redemption{}, err
	}
	if !actor.Admin && actor.UserID != red.UserID {
		return model.Redemption{}, fmt.Errorf("coupon %s: %w", code, model.ErrForbidden)
	}
	if red.Status != model.RedemptionPending {
		return model.Redemption{}, fmt.Errorf("coupon %s is %s: %w", code, red.Status, model.ErrValidation)
	}
	now := s.now()
	if now.After(red.ValidUntil) {
		return model.Redemption{}, fmt.Errorf("coupon %s expired at %s: %w", code, red.ValidUntil.Format("2006-01-02"), model.ErrValidation)
	}
	err = s.journal.UpdateRedemptionStatus(ctx, red.ID, model.RedemptionPending, model.RedemptionUsed, now)
	if errors.Is(err, model.ErrVersionConflict) {
		return model.Redemption{}, fmt.Errorf("coupon %s: %w", code, model.ErrConcurrencyConflict)
	}
	if err != nil {
		return model.Redemption{}, err
	}
	red.Status = model.RedemptionUsed
	red.UsedAt = &now
	return red, nil
}

func (s *RewardService) ListRedemptions(ctx context.Context, userID string) ([]model.Redemption, error) {
	if userID == "" {
		return nil, fmt.Errorf("user is required: %w", model.ErrValidation)
	}
	return s.journal.GetRedemptions(ctx, userID)
}

// Просроченные купоны
func (s *RewardService) ExpireRedemptions(ctx context.Context) (int64, error) {
	return s.journal.ExpireRedemptions(ctx, s.now())
}
