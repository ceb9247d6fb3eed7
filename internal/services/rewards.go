package laundry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/glkeru/laundry/internal/config"
	interf "github.com/glkeru/laundry/internal/interfaces"
	model "github.com/glkeru/laundry/internal/models"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("laundry")

// мутация завершилась без изменений, запись не нужна
var errNoChange = errors.New("no change")

// Движок начислений. Все изменения счета пользователя идут через mutate:
// мьютекс на пользователя внутри процесса и compare-and-swap по версии в хранилище.
type RewardService struct {
	logger   *zap.Logger
	ledgers  interf.LedgerStorage
	journal  interf.JournalStorage
	cache    interf.CacheStorage
	notifier interf.Notifier
	rules    config.RewardRules
	locks    *keyedMutex
	now      func() time.Time
}

func NewRewardService(logger *zap.Logger, ledgers interf.LedgerStorage, journal interf.JournalStorage,
	cache interf.CacheStorage, notifier interf.Notifier, rules config.RewardRules) *RewardService {
	if rules.LedgerRetries < 1 {
		rules.LedgerRetries = 1
	}
	return &RewardService{
		logger:   logger,
		ledgers:  ledgers,
		journal:  journal,
		cache:    cache,
		notifier: notifier,
		rules:    rules,
		locks:    newKeyedMutex(),
		now:      time.Now,
	}
}

func (s *RewardService) Log(service string, userID string, err error) {
	s.logger.Error("Reward Engine",
		zap.String("service", service),
		zap.String("userId", userID),
		zap.Error(err),
	)
}

// Изменения в рамках одной записи счета
type ledgerTx struct {
	ledger   *model.Ledger
	rules    config.RewardRules
	now      time.Time
	notes    []model.Notification
	awarded  []model.Reward
	redeemed int64
}

func (tx *ledgerTx) notify(n model.Notification) {
	n.UserID = tx.ledger.UserID
	n.CreatedAt = tx.now
	tx.notes = append(tx.notes, n)
}

func (tx *ledgerTx) setLevel() {
	level, next := LevelFor(tx.ledger.TotalPointsEarned)
	tx.ledger.CurrentLevel = level.Level
	tx.ledger.LevelName = level.Name
	tx.ledger.PointsToNextLevel = next
}

// Начисление: запись в outbox, счетчики, уровень. При повышении уровня - бонус за уровень.
func (tx *ledgerTx) award(t model.RewardType, points int64, source string, meta map[string]any) error {
	if !t.Valid() {
		return fmt.Errorf("reward type %d: %w", int(t), model.ErrValidation)
	}
	if points <= 0 {
		return fmt.Errorf("points must be positive, got %d: %w", points, model.ErrValidation)
	}
	l := tx.ledger
	r := model.Reward{
		ID:        uuid.NewString(),
		UserID:    l.UserID,
		Type:      t,
		Points:    points,
		Source:    source,
		Metadata:  meta,
		Status:    model.RewardActive,
		CreatedAt: tx.now,
		ExpiresAt: tx.now.Add(tx.rules.RewardTTL),
	}
	l.Outbox.Rewards = append(l.Outbox.Rewards, r)
	tx.awarded = append(tx.awarded, r)

	prev := l.CurrentLevel
	l.TotalPointsEarned += points
	l.AvailablePoints += points
	tx.setLevel()

	tx.notify(model.Notification{
		Title:     t.Title(),
		Body:      fmt.Sprintf("You earned %d points. %s.", points, t.Description()),
		Category:  model.CategoryPoints,
		Priority:  model.PriorityNormal,
		ActionRef: "/rewards",
	})

	if l.CurrentLevel > prev {
		tx.notify(model.Notification{
			Title:     "Level up!",
			Body:      fmt.Sprintf("You reached level %d: %s", l.CurrentLevel, l.LevelName),
			Category:  model.CategoryLevelUp,
			Priority:  model.PriorityHigh,
			ActionRef: "/rewards",
		})
		bonus := int64(l.CurrentLevel) * tx.rules.LevelUpBonusPerLevel
		if bonus > 0 {
			return tx.award(model.RewardLevelUp, bonus, fmt.Sprintf("level:%d", l.CurrentLevel),
				map[string]any{"level": l.CurrentLevel, "levelName": l.LevelName})
		}
	}
	return nil
}

// Проверка достижений. Уже открытые пропускаются, поэтому повторный вызов ничего не меняет.
func (tx *ledgerTx) evaluateAchievements() error {
	l := tx.ledger
	for changed := true; changed; {
		changed = false
		for _, a := range catalog {
			if l.HasAchievement(a.ID) || !a.Satisfied(l) {
				continue
			}
			l.UnlockedAchievements = append(l.UnlockedAchievements, model.UnlockedAchievement{ID: a.ID, UnlockedAt: tx.now})
			tx.notify(model.Notification{
				Title:     "Achievement unlocked: " + a.Name,
				Body:      a.Description,
				Category:  model.CategoryAchievement,
				Priority:  model.PriorityNormal,
				ActionRef: "/achievements/" + a.ID,
			})
			if a.PointReward > 0 {
				err := tx.award(model.RewardAchievement, a.PointReward, "achievement:"+a.ID,
					map[string]any{"achievement": a.ID, "rarity": string(a.Rarity)})
				if err != nil {
					return err
				}
			}
			changed = true
		}
	}
	return nil
}

// Серия: заказы с промежутком не больше StreakWindow
func (tx *ledgerTx) updateStreak() {
	l := tx.ledger
	if l.LastOrderCompletionDate == nil || tx.now.Sub(*l.LastOrderCompletionDate) <= tx.rules.StreakWindow {
		l.CurrentStreak++
	} else {
		l.CurrentStreak = 1
	}
	if l.CurrentStreak > l.LongestStreak {
		l.LongestStreak = l.CurrentStreak
	}
	now := tx.now
	l.LastOrderCompletionDate = &now
}

// Базовые баллы с множителем серии. Степень ограничена StreakMaxExponent (отрицательное - без ограничения).
func streakPoints(rules config.RewardRules, streak int) int64 {
	base := rules.OrderCompletionPoints
	if streak < 3 {
		return base
	}
	exp := streak - 2
	if rules.StreakMaxExponent >= 0 && exp > rules.StreakMaxExponent {
		exp = rules.StreakMaxExponent
	}
	return int64(math.Round(float64(base) * math.Pow(rules.StreakMultiplier, float64(exp))))
}

func (s *RewardService) newLedger(userID string) model.Ledger {
	now := s.now()
	l := model.Ledger{
		UserID:               userID,
		ReferralCode:         newReferralCode(),
		UnlockedAchievements: []model.UnlockedAchievement{},
		ProcessedOrders:      []string{},
		CreditedReferrals:    []string{},
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	level, next := LevelFor(0)
	l.CurrentLevel = level.Level
	l.LevelName = level.Name
	l.PointsToNextLevel = next
	return l
}

// Получить счет или создать новый
func (s *RewardService) loadOrCreate(ctx context.Context, userID string) (model.Ledger, error) {
	l, err := s.ledgers.GetLedger(ctx, userID)
	if err == nil {
		return l, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return model.Ledger{}, err
	}
	for i := 0; i < 3; i++ {
		l = s.newLedger(userID)
		err = s.ledgers.CreateLedger(ctx, l)
		if err == nil {
			return l, nil
		}
		if !errors.Is(err, model.ErrAlreadyExists) {
			return model.Ledger{}, err
		}
		// счет создан параллельно, либо занят реферальный код
		existing, gerr := s.ledgers.GetLedger(ctx, userID)
		if gerr == nil {
			return existing, nil
		}
		if !errors.Is(gerr, model.ErrNotFound) {
			return model.Ledger{}, gerr
		}
	}
	return model.Ledger{}, fmt.Errorf("create ledger %s: %w", userID, model.ErrConcurrencyConflict)
}

// Одна атомарная запись счета: чтение, изменение, запись при неизменной версии.
// При конфликте версии повтор, не больше LedgerRetries раз.
func (s *RewardService) mutate(ctx context.Context, userID string, fn func(tx *ledgerTx) error) (model.Ledger, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	for attempt := 0; attempt < s.rules.LedgerRetries; attempt++ {
		ledger, err := s.loadOrCreate(ctx, userID)
		if err != nil {
			return model.Ledger{}, err
		}
		if limit := s.rules.MaxOutbox; limit > 0 && ledger.Outbox.Len() >= limit {
			s.flushOutbox(ctx, &ledger)
			if ledger.Outbox.Len() >= limit {
				return model.Ledger{}, fmt.Errorf("ledger %s: %d records wait for the journal: %w",
					userID, ledger.Outbox.Len(), model.ErrJournalBacklog)
			}
		}
		tx := &ledgerTx{ledger: &ledger, rules: s.rules, now: s.now()}
		err = fn(tx)
		if errors.Is(err, errNoChange) {
			return ledger, nil
		}
		if err != nil {
			return model.Ledger{}, err
		}
		ledger.UpdatedAt = tx.now
		if err := ledger.Check(); err != nil {
			return model.Ledger{}, err
		}

		err = s.ledgers.UpdateLedger(ctx, ledger)
		if errors.Is(err, model.ErrVersionConflict) {
			ledgerConflicts.Inc()
			s.logger.Debug("ledger version conflict",
				zap.String("userId", userID),
				zap.Int("attempt", attempt+1),
			)
			continue
		}
		if err != nil {
			return model.Ledger{}, err
		}
		ledger.Version++

		for _, r := range tx.awarded {
			pointsAwarded.WithLabelValues(r.Type.String()).Add(float64(r.Points))
		}
		if tx.redeemed > 0 {
			pointsRedeemed.Add(float64(tx.redeemed))
		}
		s.flushOutbox(ctx, &ledger)
		s.refreshCache(ctx, ledger)
		for _, n := range tx.notes {
			s.notifier.Notify(ctx, n)
		}
		return ledger, nil
	}
	return model.Ledger{}, fmt.Errorf("ledger %s: %d attempts: %w", userID, s.rules.LedgerRetries, model.ErrConcurrencyConflict)
}

// Перенос записей из outbox в журнал. Ошибки не откатывают начисление:
// записи остаются в outbox и переносятся при следующей записи счета.
func (s *RewardService) flushOutbox(ctx context.Context, ledger *model.Ledger) {
	if ledger.Outbox.Empty() {
		return
	}
	out := ledger.Outbox
	g, gctx := errgroup.WithContext(ctx)
	if len(out.Rewards) > 0 {
		g.Go(func() error { return s.journal.SaveRewards(gctx, out.Rewards) })
	}
	if len(out.Redemptions) > 0 {
		g.Go(func() error { return s.journal.SaveRedemptions(gctx, out.Redemptions) })
	}
	if err := g.Wait(); err != nil {
		s.Log("FlushOutbox", ledger.UserID, err)
		return
	}

	flushed := make(map[string]struct{}, len(out.Rewards)+len(out.Redemptions))
	for _, r := range out.Rewards {
		flushed[r.ID] = struct{}{}
	}
	for _, r := range out.Redemptions {
		flushed[r.ID] = struct{}{}
	}

	cur := ledger.Clone()
	for attempt := 0; attempt < s.rules.LedgerRetries; attempt++ {
		cur.Outbox = removeFlushed(cur.Outbox, flushed)
		err := s.ledgers.UpdateLedger(ctx, cur)
		if err == nil {
			cur.Version++
			*ledger = cur
			return
		}
		if !errors.Is(err, model.ErrVersionConflict) {
			s.Log("FlushOutbox", ledger.UserID, err)
			return
		}
		ledgerConflicts.Inc()
		cur, err = s.ledgers.GetLedger(ctx, ledger.UserID)
		if err != nil {
			s.Log("FlushOutbox", ledger.UserID, err)
			return
		}
	}
}

func removeFlushed(o model.Outbox, flushed map[string]struct{}) model.Outbox {
	var res model.Outbox
	for _, r := range o.Rewards {
		if _, ok := flushed[r.ID]; !ok {
			res.Rewards = append(res.Rewards, r)
		}
	}
	for _, r := range o.Redemptions {
		if _, ok := flushed[r.ID]; !ok {
			res.Redemptions = append(res.Redemptions, r)
		}
	}
	return res
}

// Запись в кэш после коммита. Кэш не принимает версию старше сохраненной,
// поэтому запоздавшее чтение не перетрет новый счет. Если записать не удалось, ключ сбрасывается.
func (s *RewardService) refreshCache(ctx context.Context, ledger model.Ledger) {
	if s.cache == nil {
		return
	}
	err := s.cache.SetLedger(ctx, ledger)
	if err == nil {
		return
	}
	s.Log("SetLedger", ledger.UserID, err)
	if err := s.cache.InvalidateLedger(ctx, ledger.UserID); err != nil {
		s.Log("InvalidateLedger", ledger.UserID, err)
	}
}

// Начисление баллов по завершенному заказу. Повторный вызов с тем же заказом ничего не меняет.
func (s *RewardService) ProcessOrderCompletion(ctx context.Context, order model.Order) (model.Ledger, error) {
	ctx, span := tracer.Start(ctx, "ProcessOrderCompletion")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", order.ID), attribute.String("user.id", order.UserID))

	if order.ID == "" || order.UserID == "" {
		return model.Ledger{}, fmt.Errorf("order and user are required: %w", model.ErrValidation)
	}
	if order.Status != model.StatusDelivered {
		return model.Ledger{}, fmt.Errorf("order %s is %s: %w", order.ID, order.Status, model.ErrValidation)
	}

	return s.mutate(ctx, order.UserID, func(tx *ledgerTx) error {
		l := tx.ledger
		if l.OrderProcessed(order.ID) {
			return errNoChange
		}
		l.MarkOrderProcessed(order.ID)

		// статистика
		l.Stats.TotalOrders++
		l.Stats.TotalSpent += order.Total
		if order.Urgent {
			l.Stats.UrgentOrders++
		}
		tx.updateStreak()

		// баллы
		base := streakPoints(tx.rules, l.CurrentStreak)
		points := base
		meta := map[string]any{
			"orderNumber": order.OrderNumber,
			"base":        base,
			"streak":      l.CurrentStreak,
		}
		if l.Stats.TotalOrders == 1 {
			points += tx.rules.FirstOrderBonus
			meta["firstOrderBonus"] = tx.rules.FirstOrderBonus
		}
		if order.Detergent == model.DetergentEco {
			l.Stats.EcoFriendlyChoices++
			points += tx.rules.EcoBonus
			meta["ecoBonus"] = tx.rules.EcoBonus
		}
		if err := tx.award(model.RewardOrderCompletion, points, order.ID, meta); err != nil {
			return err
		}
		if l.CurrentStreak >= 5 {
			if bonus := base / 2; bonus > 0 {
				err := tx.award(model.RewardStreakBonus, bonus, order.ID, map[string]any{"streak": l.CurrentStreak})
				if err != nil {
					return err
				}
			}
		}
		return tx.evaluateAchievements()
	})
}

// Начисление баллов произвольного типа
func (s *RewardService) AwardPoints(ctx context.Context, userID string, t model.RewardType, points int64,
	source string, meta map[string]any) (model.Ledger, error) {
	if userID == "" {
		return model.Ledger{}, fmt.Errorf("user is required: %w", model.ErrValidation)
	}
	if points <= 0 {
		return model.Ledger{}, fmt.Errorf("points must be positive, got %d: %w", points, model.ErrValidation)
	}
	return s.mutate(ctx, userID, func(tx *ledgerTx) error {
		if err := tx.award(t, points, source, meta); err != nil {
			return err
		}
		return tx.evaluateAchievements()
	})
}

// Счет пользователя (создается при первом обращении)
func (s *RewardService) GetLoyaltyLedger(ctx context.Context, userID string) (model.Ledger, error) {
	if userID == "" {
		return model.Ledger{}, fmt.Errorf("user is required: %w", model.ErrValidation)
	}
	if s.cache != nil {
		if l, err := s.cache.GetLedger(ctx, userID); err == nil {
			return l, nil
		}
	}
	// чтение и заполнение кэша под тем же мьютексом, что и запись счета
	unlock := s.locks.Lock(userID)
	defer unlock()
	l, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return model.Ledger{}, err
	}
	if s.cache != nil {
		if err := s.cache.SetLedger(ctx, l); err != nil {
			s.Log("SetLedger", userID, err)
		}
	}
	return l, nil
}

func (s *RewardService) ListAchievementProgress(ctx context.Context, userID string) ([]AchievementProgress, error) {
	l, err := s.GetLoyaltyLedger(ctx, userID)
	if err != nil {
		return nil, err
	}
	return progressFor(&l), nil
}

func (s *RewardService) ListRewards(ctx context.Context, userID string) ([]model.Reward, error) {
	if userID == "" {
		return nil, fmt.Errorf("user is required: %w", model.ErrValidation)
	}
	return s.journal.GetRewards(ctx, userID)
}
