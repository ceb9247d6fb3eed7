package app

import (
	"context"

	"github.com/glkeru/laundry/internal/config"
	db "github.com/glkeru/laundry/internal/db"
	rabbit "github.com/glkeru/laundry/internal/external/rabbitmq"
	interf "github.com/glkeru/laundry/internal/interfaces"
	services "github.com/glkeru/laundry/internal/services"
	"go.uber.org/zap"
)

// Сервисы и подключения, общие для всех программ
type App struct {
	Config     *config.Config
	Logger     *zap.Logger
	Orders     *services.OrderService
	Rewards    *services.RewardService
	dispatcher *services.Dispatcher
	closers    []func()
}

func NewLogger(mode string) (*zap.Logger, error) {
	if mode == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	// database
	mongo, err := db.NewMongoDB(cfg.MongoURI, cfg.MongoBase)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = mongo.Close(context.Background()) })

	var journal interf.JournalStorage
	if cfg.JournalDSN != "" {
		pg, err := db.NewJournalDB(ctx, cfg.JournalDSN, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, pg.Close)
		journal = pg
	} else {
		logger.Info("env LAUNDRY_JOURNAL_DB is not set, journal in mongo")
		journal = db.NewMongoJournal(mongo)
	}

	// cache
	var cache interf.CacheStorage
	redis, err := db.NewCacheService(cfg.CacheURL, cfg.CacheUser, cfg.CachePwd)
	if err != nil {
		logger.Warn("cache disabled", zap.Error(err))
	} else {
		a.closers = append(a.closers, func() { _ = redis.Close() })
		cache = redis
	}

	// notifications
	var sender interf.Sender
	dsn, err := cfg.RabbitDSN()
	if err == nil {
		var pub *rabbit.NotificationPublisher
		pub, err = rabbit.NewNotificationPublisher(dsn)
		if err == nil {
			a.closers = append(a.closers, pub.Close)
			sender = pub
		}
	}
	if sender == nil {
		logger.Warn("notifications are logged only", zap.Error(err))
		sender = services.NewLogSender(logger)
	}
	a.dispatcher = services.NewDispatcher(sender, logger, cfg.Rules.NotifyWorkers, cfg.Rules.NotifyQueueLength)

	// services
	a.Rewards = services.NewRewardService(logger, db.NewLedgersDB(mongo), journal, cache, a.dispatcher, cfg.Rules)
	a.Orders = services.NewOrderService(logger, db.NewOrdersDB(mongo), a.Rewards, a.dispatcher, cfg.Rules.LedgerRetries)
	return a, nil
}

// Close отправляет оставшиеся уведомления и закрывает подключения в обратном порядке
func (a *App) Close() {
	if a.dispatcher != nil {
		a.dispatcher.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
