// Job - перевод просроченных купонов в expired
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/glkeru/laundry/internal/app"
	"github.com/glkeru/laundry/internal/config"
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
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("init", zap.Error(err))
	}
	defer a.Close()

	n, err := a.Rewards.ExpireRedemptions(ctx)
	if err != nil {
		logger.Error("expire redemptions", zap.Error(err))
		return
	}
	logger.Info("expired redemptions", zap.Int64("count", n))
}
