package laundry

import (
	"context"
	"fmt"

	model "github.com/glkeru/laundry/internal/models"
)

type ReferralResult struct {
	Referrer model.Ledger `json:"referrerLedger"`
	NewUser  model.Ledger `json:"newUserLedger"`
}

// Реферал. referredBy и отложенный бонус пригласившему записываются одной мутацией счета
// нового пользователя. Бонус пригласившему начисляется отдельно и идемпотентно по id нового
// пользователя; повторный вызов с тем же кодом доводит незавершенный реферал до конца.
func (s *RewardService) ProcessReferral(ctx context.Context, referrerCode string, newUserID string) (ReferralResult, error) {
	if referrerCode == "" || newUserID == "" {
		return ReferralResult{}, fmt.Errorf("referral code and user are required: %w", model.ErrValidation)
	}
	referrer, err := s.ledgers.GetLedgerByReferralCode(ctx, referrerCode)
	if err != nil {
		return ReferralResult{}, fmt.Errorf("referral code %s: %w", referrerCode, err)
	}
	if referrer.UserID == newUserID {
		return ReferralResult{}, fmt.Errorf("user %s cannot refer themselves: %w", newUserID, model.ErrValidation)
	}

	newLedger, err := s.mutate(ctx, newUserID, func(tx *ledgerTx) error {
		l := tx.ledger
		if l.ReferredBy != "" {
			if l.PendingReferral != nil && l.PendingReferral.ReferrerID == referrer.UserID {
				return errNoChange
			}
			return fmt.Errorf("user %s: %w", newUserID, model.ErrAlreadyReferred)
		}
		l.ReferredBy = referrer.UserID
		l.PendingReferral = &model.ReferralCredit{ReferrerID: referrer.UserID, CreatedAt: tx.now}
		if err := tx.award(model.RewardWelcome, tx.rules.WelcomeBonus, "referral:"+referrer.UserID, nil); err != nil {
			return err
		}
		return tx.evaluateAchievements()
	})
	if err != nil {
		return ReferralResult{}, err
	}

	return s.completeReferral(ctx, newLedger)
}

// Начисление пригласившему по отложенному бонусу и снятие отметки у нового пользователя
func (s *RewardService) completeReferral(ctx context.Context, newLedger model.Ledger) (ReferralResult, error) {
	newUserID := newLedger.UserID
	referrerID := newLedger.PendingReferral.ReferrerID

	refLedger, err := s.mutate(ctx, referrerID, func(tx *ledgerTx) error {
		l := tx.ledger
		if l.ReferralCredited(newUserID) {
			return errNoChange
		}
		l.MarkReferralCredited(newUserID)
		l.ReferralsCount++
		l.ReferralPointsEarned += tx.rules.ReferralBonus
		err := tx.award(model.RewardReferral, tx.rules.ReferralBonus, "referral:"+newUserID,
			map[string]any{"referredUser": newUserID})
		if err != nil {
			return err
		}
		return tx.evaluateAchievements()
	})
	if err != nil {
		// бонус остается отложенным, повторный вызов его начислит
		s.Log("ProcessReferral", referrerID, err)
		return ReferralResult{NewUser: newLedger}, err
	}

	cleared, err := s.mutate(ctx, newUserID, func(tx *ledgerTx) error {
		if tx.ledger.PendingReferral == nil {
			return errNoChange
		}
		tx.ledger.PendingReferral = nil
		return nil
	})
	if err != nil {
		// бонус уже начислен, повтор только снимет отметку
		s.Log("ProcessReferral", newUserID, err)
		return ReferralResult{Referrer: refLedger, NewUser: newLedger}, nil
	}
	return ReferralResult{Referrer: refLedger, NewUser: cleared}, nil
}
