package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Правила начисления баллов
type RewardRules struct {
	OrderCompletionPoints int64
	FirstOrderBonus       int64
	EcoBonus              int64
	ReferralBonus         int64
	WelcomeBonus          int64
	LevelUpBonusPerLevel  int64

	StreakWindow      time.Duration // максимальный промежуток между заказами серии
	StreakMultiplier  float64
	StreakMaxExponent int // ограничение степени множителя серии

	RewardTTL         time.Duration
	RedemptionTTL     time.Duration
	MinRedemption     int64
	PointValue        float64 // стоимость одного балла в валюте
	LedgerRetries     int
	MaxOutbox         int // записей в outbox счета, после которого начисления отклоняются
	NotifyWorkers     int
	NotifyQueueLength int
}

func DefaultRewardRules() RewardRules {
	return RewardRules{
		OrderCompletionPoints: 50,
		FirstOrderBonus:       100,
		EcoBonus:              25,
		ReferralBonus:         200,
		WelcomeBonus:          100,
		LevelUpBonusPerLevel:  50,
		StreakWindow:          7 * 24 * time.Hour,
		StreakMultiplier:      1.1,
		StreakMaxExponent:     10,
		RewardTTL:             365 * 24 * time.Hour,
		RedemptionTTL:         30 * 24 * time.Hour,
		MinRedemption:         100,
		PointValue:            0.1,
		LedgerRetries:         5,
		MaxOutbox:             500,
		NotifyWorkers:         4,
		NotifyQueueLength:     256,
	}
}

type Config struct {
	Port       string
	LogMode    string
	MongoURI   string
	MongoBase  string
	JournalDSN string // postgres, если пусто - журнал в mongo

	CacheURL  string
	CacheUser string
	CachePwd  string

	RabbitURL      string
	RabbitPort     string
	RabbitUser     string
	RabbitPassword string

	KafkaURL  string
	KafkaPort string

	OtelEndpoint string

	ScanWorkers   int
	RedeemWorkers int

	Rules RewardRules
}

// Загрузка конфигурации из переменных окружения
func Load() (*Config, error) {
	cfg := &Config{
		Port:           os.Getenv("LAUNDRY_PORT"),
		LogMode:        os.Getenv("LAUNDRY_LOG"),
		MongoURI:       os.Getenv("LAUNDRY_MONGO"),
		MongoBase:      os.Getenv("LAUNDRY_MONGO_BASE"),
		JournalDSN:     os.Getenv("LAUNDRY_JOURNAL_DB"),
		CacheURL:       os.Getenv("LAUNDRY_CACHE_URL"),
		CacheUser:      os.Getenv("LAUNDRY_CACHE_USER"),
		CachePwd:       os.Getenv("LAUNDRY_CACHE_PWD"),
		RabbitURL:      os.Getenv("RABBIT_URL"),
		RabbitPort:     os.Getenv("RABBIT_PORT"),
		RabbitUser:     os.Getenv("RABBIT_USER"),
		RabbitPassword: os.Getenv("RABBIT_PASSWORD"),
		KafkaURL:       os.Getenv("KAFKA_SCANS_URL"),
		KafkaPort:      os.Getenv("KAFKA_SCANS_PORT"),
		OtelEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		ScanWorkers:    envInt("LAUNDRY_SCAN_WORKERS", 5),
		RedeemWorkers:  envInt("LAUNDRY_REDEEM_WORKERS", 5),
		Rules:          DefaultRewardRules(),
	}
	if cfg.MongoURI == "" {
		return nil, fmt.Errorf("env LAUNDRY_MONGO is not set")
	}
	if cfg.MongoBase == "" {
		cfg.MongoBase = "laundryDB"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}

	r := &cfg.Rules
	r.StreakMultiplier = envFloat("LAUNDRY_STREAK_MULTIPLIER", r.StreakMultiplier)
	r.StreakMaxExponent = envInt("LAUNDRY_STREAK_MAX_EXPONENT", r.StreakMaxExponent)
	r.LedgerRetries = envInt("LAUNDRY_LEDGER_RETRIES", r.LedgerRetries)
	r.MaxOutbox = envInt("LAUNDRY_MAX_OUTBOX", r.MaxOutbox)
	r.NotifyWorkers = envInt("LAUNDRY_NOTIFY_WORKERS", r.NotifyWorkers)
	r.NotifyQueueLength = envInt("LAUNDRY_NOTIFY_QUEUE", r.NotifyQueueLength)
	if r.LedgerRetries < 1 {
		r.LedgerRetries = 1
	}
	if r.NotifyWorkers < 1 {
		r.NotifyWorkers = 1
	}
	if cfg.ScanWorkers < 1 {
		cfg.ScanWorkers = 1
	}
	if cfg.RedeemWorkers < 1 {
		cfg.RedeemWorkers = 1
	}
	return cfg, nil
}

func (c *Config) RabbitDSN() (string, error) {
	if c.RabbitURL == "" {
		return "", fmt.Errorf("env RABBIT_URL is not set")
	}
	if c.RabbitPort == "" {
		return "", fmt.Errorf("env RABBIT_PORT is not set")
	}
	if c.RabbitUser == "" {
		return "", fmt.Errorf("env RABBIT_USER is not set")
	}
	if c.RabbitPassword == "" {
		return "", fmt.Errorf("env RABBIT_PASSWORD is not set")
	}
	return "amqp://" + c.RabbitUser + ":" + c.RabbitPassword + "@" + c.RabbitURL + ":" + c.RabbitPort + "/laundry", nil
}

func (c *Config) KafkaBroker() (string, error) {
	if c.KafkaURL == "" {
		return "", fmt.Errorf("env KAFKA_SCANS_URL is not set")
	}
	if c.KafkaPort == "" {
		return "", fmt.Errorf("env KAFKA_SCANS_PORT is not set")
	}
	return c.KafkaURL + ":" + c.KafkaPort, nil
}

// значение по умолчанию, если переменная не задана или не число
func envInt(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func envFloat(name string, def float64) float64 {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
