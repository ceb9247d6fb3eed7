package laundry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	model "github.com/glkeru/laundry/internal/models"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Журнал начислений и списаний в postgres
type JournalDB struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

const journalSchema = `
CREATE TABLE IF NOT EXISTS rewards (
	id        TEXT PRIMARY KEY,
	userid    TEXT NOT NULL,
	type      TEXT NOT NULL,
	points    BIGINT NOT NULL CHECK (points > 0),
	source    TEXT NOT NULL,
	metadata  JSONB,
	status    TEXT NOT NULL,
	createdat TIMESTAMPTZ NOT NULL,
	expiresat TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS rewards_user ON rewards (userid, createdat);
CREATE TABLE IF NOT EXISTS redemptions (
	id         TEXT PRIMARY KEY,
	userid     TEXT NOT NULL,
	type       TEXT NOT NULL,
	pointscost BIGINT NOT NULL CHECK (pointscost > 0),
	cashvalue  DOUBLE PRECISION NOT NULL,
	couponcode TEXT UNIQUE,
	status     TEXT NOT NULL,
	createdat  TIMESTAMPTZ NOT NULL,
	validfrom  TIMESTAMPTZ NOT NULL,
	validuntil TIMESTAMPTZ NOT NULL,
	usedat     TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS redemptions_user ON redemptions (userid, createdat);
`

func NewJournalDB(ctx context.Context, dsn string, logger *zap.Logger) (*JournalDB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("env LAUNDRY_JOURNAL_DB is not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if _, err := pool.Exec(ctx, journalSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("journal schema: %w", err)
	}
	return &JournalDB{pool, logger}, nil
}

func (j *JournalDB) Close() {
	j.pool.Close()
}

func (j *JournalDB) logSQL(service string, sql string, args []any, err error) {
	j.logger.Error("SQL error",
		zap.String("service", service),
		zap.Error(err),
		zap.String("query", sql),
		zap.Any("args", args),
	)
}

func (j *JournalDB) SaveRewards(ctx context.Context, rewards []model.Reward) error {
	if len(rewards) == 0 {
		return nil
	}
	q := sq.Insert("rewards").
		Columns("id", "userid", "type", "points", "source", "metadata", "status", "createdat", "expiresat")
	for _, r := range rewards {
		var meta any
		if len(r.Metadata) > 0 {
			b, err := json.Marshal(r.Metadata)
			if err != nil {
				return err
			}
			meta = string(b)
		}
		q = q.Values(r.ID, r.UserID, r.Type.String(), r.Points, r.Source, meta, string(r.Status), r.CreatedAt, r.ExpiresAt)
	}
	sql, args, err := q.Suffix("ON CONFLICT (id) DO NOTHING").PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		j.logSQL("SaveRewards", sql, args, err)
		return err
	}
	if _, err = j.pool.Exec(ctx, sql, args...); err != nil {
		j.logSQL("SaveRewards", sql, args, err)
		return err
	}
	return nil
}

func (j *JournalDB) SaveRedemptions(ctx context.Context, redemptions []model.Redemption) error {
	if len(redemptions) == 0 {
		return nil
	}
	q := sq.Insert("redemptions").
		Columns("id", "userid", "type", "pointscost", "cashvalue", "couponcode", "status", "createdat", "validfrom", "validuntil")
	for _, r := range redemptions {
		var coupon any
		if r.CouponCode != "" {
			coupon = r.CouponCode
		}
		q = q.Values(r.ID, r.UserID, string(r.Type), r.PointsCost, r.CashValue, coupon, string(r.Status), r.CreatedAt, r.ValidFrom, r.ValidUntil)
	}
	sql, args, err := q.Suffix("ON CONFLICT (id) DO NOTHING").PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		j.logSQL("SaveRedemptions", sql, args, err)
		return err
	}
	if _, err = j.pool.Exec(ctx, sql, args...); err != nil {
		j.logSQL("SaveRedemptions", sql, args, err)
		return err
	}
	return nil
}

func (j *JournalDB) GetRewards(ctx context.Context, userID string) ([]model.Reward, error) {
	sql, args, err := sq.Select("id", "userid", "type", "points", "source", "metadata::text", "status", "createdat", "expiresat").
		From("rewards").
		Where(sq.Eq{"userid": userID}).
		OrderBy("createdat").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := j.pool.Query(ctx, sql, args...)
	if err != nil {
		j.logSQL("GetRewards", sql, args, err)
		return nil, err
	}
	defer rows.Close()

	var rewards []model.Reward
	for rows.Next() {
		var r model.Reward
		var typ, status string
		var meta pgtype.Text
		err = rows.Scan(&r.ID, &r.UserID, &typ, &r.Points, &r.Source, &meta, &status, &r.CreatedAt, &r.ExpiresAt)
		if err != nil {
			return nil, err
		}
		if err := r.Type.UnmarshalText([]byte(typ)); err != nil {
			return nil, err
		}
		r.Status = model.RewardStatus(status)
		if meta.Status == pgtype.Present && meta.String != "" {
			if err := json.Unmarshal([]byte(meta.String), &r.Metadata); err != nil {
				return nil, err
			}
		}
		rewards = append(rewards, r)
	}
	return rewards, rows.Err()
}

var redemptionColumns = []string{"id", "userid", "type", "pointscost", "cashvalue", "couponcode", "status", "createdat", "validfrom", "validuntil", "usedat"}

func scanRedemption(row pgx.Row) (model.Redemption, error) {
	var r model.Redemption
	var typ, status string
	var coupon pgtype.Text
	var usedAt pgtype.Timestamptz
	err := row.Scan(&r.ID, &r.UserID, &typ, &r.PointsCost, &r.CashValue, &coupon, &status, &r.CreatedAt, &r.ValidFrom, &r.ValidUntil, &usedAt)
	if err != nil {
		return model.Redemption{}, err
	}
	r.Type = model.RedemptionType(typ)
	r.Status = model.RedemptionStatus(status)
	r.CouponCode = coupon.String
	if usedAt.Status == pgtype.Present {
		t := usedAt.Time
		r.UsedAt = &t
	}
	return r, nil
}

func (j *JournalDB) GetRedemptions(ctx context.Context, userID string) ([]model.Redemption, error) {
	sql, args, err := sq.Select(redemptionColumns...).
		From("redemptions").
		Where(sq.Eq{"userid": userID}).
		OrderBy("createdat").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := j.pool.Query(ctx, sql, args...)
	if err != nil {
		j.logSQL("GetRedemptions", sql, args, err)
		return nil, err
	}
	defer rows.Close()

	var res []model.Redemption
	for rows.Next() {
		r, err := scanRedemption(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, r)
	}
	return res, rows.Err()
}

func (j *JournalDB) GetRedemptionByCoupon(ctx context.Context, code string) (model.Redemption, error) {
	sql, args, err := sq.Select(redemptionColumns...).
		From("redemptions").
		Where(sq.Eq{"couponcode": code}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return model.Redemption{}, err
	}
	r, err := scanRedemption(j.pool.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Redemption{}, fmt.Errorf("coupon %s %w", code, model.ErrNotFound)
		}
		return model.Redemption{}, err
	}
	return r, nil
}

func (j *JournalDB) UpdateRedemptionStatus(ctx context.Context, id string, from model.RedemptionStatus,
	to model.RedemptionStatus, at time.Time) error {
	q := sq.Update("redemptions").
		Set("status", string(to)).
		Where(sq.Eq{"id": id}).
		Where(sq.Eq{"status": string(from)})
	if to == model.RedemptionUsed {
		q = q.Set("usedat", at)
	}
	sql, args, err := q.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return err
	}
	tag, err := j.pool.Exec(ctx, sql, args...)
	if err != nil {
		j.logSQL("UpdateRedemptionStatus", sql, args, err)
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	err = j.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM redemptions WHERE id = $1)", id).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("redemption %s %w", id, model.ErrNotFound)
	}
	return fmt.Errorf("redemption %s %w", id, model.ErrVersionConflict)
}

func (j *JournalDB) ExpireRedemptions(ctx context.Context, now time.Time) (int64, error) {
	sql, args, err := sq.Update("redemptions").
		Set("status", string(model.RedemptionExpired)).
		Where(sq.Eq{"status": string(model.RedemptionPending)}).
		Where(sq.Lt{"validuntil": now}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return 0, err
	}
	tag, err := j.pool.Exec(ctx, sql, args...)
	if err != nil {
		j.logSQL("ExpireRedemptions", sql, args, err)
		return 0, err
	}
	return tag.RowsAffected(), nil
}
