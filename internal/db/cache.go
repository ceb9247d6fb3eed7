package laundry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	model "github.com/glkeru/laundry/internal/models"
	redis "github.com/redis/go-redis/v9"
)

// Кэш счетов для чтения. Обновляется после каждой записи счета.
type CacheService struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCacheService(addr string, user string, pwd string) (serv *CacheService, err error) {
	if addr == "" {
		return nil, fmt.Errorf("env LAUNDRY_CACHE_URL is not set")
	}
	db := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    pwd,
		Username:    user,
		DB:          0,
		MaxRetries:  5,
		DialTimeout: 10 * time.Second,
	})
	err = db.Ping(context.Background()).Err()
	if err != nil {
		return nil, err
	}
	return NewCacheWithClient(db), nil
}

func NewCacheWithClient(client *redis.Client) *CacheService {
	return &CacheService{client, 5 * time.Minute}
}

// SET только если в кэше нет версии новее. ARGV: json, версия, ttl в мс
var setIfNewer = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur then
	local ok, doc = pcall(cjson.decode, cur)
	if ok and doc['version'] and tonumber(doc['version']) > tonumber(ARGV[2]) then
		return 0
	end
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`)

func ledgerKey(userID string) string {
	return "ledger:" + userID
}

func (c *CacheService) GetLedger(ctx context.Context, userID string) (model.Ledger, error) {
	val, err := c.client.Get(ctx, ledgerKey(userID)).Result()
	if err == redis.Nil {
		return model.Ledger{}, fmt.Errorf("cache %w", model.ErrNotFound)
	} else if err != nil {
		return model.Ledger{}, err
	}
	var l model.Ledger
	if err := json.Unmarshal([]byte(val), &l); err != nil {
		return model.Ledger{}, err
	}
	return l, nil
}

func (c *CacheService) SetLedger(ctx context.Context, ledger model.Ledger) error {
	b, err := json.Marshal(ledger)
	if err != nil {
		return err
	}
	return setIfNewer.Run(ctx, c.client, []string{ledgerKey(ledger.UserID)},
		string(b), ledger.Version, c.ttl.Milliseconds()).Err()
}

func (c *CacheService) InvalidateLedger(ctx context.Context, userID string) error {
	return c.client.Del(ctx, ledgerKey(userID)).Err()
}

func (c *CacheService) Close() error {
	return c.client.Close()
}
