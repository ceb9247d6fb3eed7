// Job - обработка запросов на списание баллов из RabbitMQ
package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/glkeru/laundry/internal/app"
	"github.com/glkeru/laundry/internal/config"
	rabbit "github.com/glkeru/laundry/internal/external/rabbitmq"
	services "github.com/glkeru/laundry/internal/services"
	"go.uber.org/zap"
)

func main() {
	// config
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	// log
	logger, err := app.NewLogger(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// rabbitmq
	dsn, err := cfg.RabbitDSN()
	if err != nil {
		logger.Fatal("rabbit", zap.Error(err))
	}
	reader, err := rabbit.NewRedeemConsumer(dsn)
	if err != nil {
		logger.Fatal("rabbit", zap.Error(err))
	}
	defer reader.Close()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("init", zap.Error(err))
	}
	defer a.Close()

	// workers
	wg := &sync.WaitGroup{}
	wg.Add(cfg.RedeemWorkers)
	for i := 0; i < cfg.RedeemWorkers; i++ {
		go worker(ctx, a.Rewards, wg, logger, reader)
	}
	wg.Wait()
}

// worker for rabbitmq messages
func worker(ctx context.Context, serv *services.RewardService, wg *sync.WaitGroup, logger *zap.Logger, reader *rabbit.RedeemConsumer) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-reader.Msg:
			if !ok {
				return
			}
			req, err := rabbit.DecodeRedeem(msg.Body)
			if err != nil {
				logger.Warn("skip redeem message", zap.Error(err))
				if req.RequestID != "" {
					_ = reader.Processed(ctx, req.RequestID, nil, err)
				}
				_ = msg.Ack(false)
				continue
			}
			red, err := serv.RedeemPoints(ctx, req.UserID, req.Request())
			if err != nil {
				logger.Error("redeem",
					zap.String("requestId", req.RequestID),
					zap.String("userId", req.UserID),
					zap.Error(err),
				)
				err = reader.Processed(ctx, req.RequestID, nil, err)
			} else {
				err = reader.Processed(ctx, req.RequestID, &red, nil)
			}
			if err != nil {
				// подтверждение не отправлено, сообщение вернется в очередь
				logger.Error(err.Error())
				_ = msg.Nack(false, true)
				continue
			}
			_ = msg.Ack(false)
		}
	}
}
