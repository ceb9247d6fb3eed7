// Job - обработка сканирований меток заказов
// Опрос Kafka -> смена статуса заказа
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/glkeru/laundry/internal/app"
	"github.com/glkeru/laundry/internal/config"
	kafka "github.com/glkeru/laundry/internal/external/kafka"
	model "github.com/glkeru/laundry/internal/models"
	otel "github.com/glkeru/laundry/observability/otel"
	otelapi "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
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

	shutdownTracer, err := otel.InitTracer(ctx, cfg.OtelEndpoint, "laundry-scans", logger)
	if err != nil {
		logger.Fatal("tracer", zap.Error(err))
	}
	defer shutdownTracer()

	// kafka
	broker, err := cfg.KafkaBroker()
	if err != nil {
		logger.Fatal("kafka", zap.Error(err))
	}
	reader, err := kafka.NewScanReader(broker, os.Getenv("KAFKA_SCANS_TOPIC"))
	if err != nil {
		logger.Fatal("kafka", zap.Error(err))
	}
	defer reader.CloseReader()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("init", zap.Error(err))
	}
	defer a.Close()

	tracer := otelapi.Tracer("laundry-scans")
	wg := &sync.WaitGroup{}
	semaphore := make(chan struct{}, cfg.ScanWorkers)

	for {
		scan, err := reader.GetNewScan(ctx)
		if ctx.Err() != nil {
			break
		}
		if errors.Is(err, kafka.ErrBadMessage) {
			logger.Warn("skip scan message", zap.Error(err))
			continue
		}
		if err != nil {
			logger.Error(err.Error())
			break
		}

		semaphore <- struct{}{}
		wg.Add(1)
		go func(scan model.TagScan) {
			defer wg.Done()
			defer func() { <-semaphore }()
			sctx, span := tracer.Start(ctx, "scan", trace.WithSpanKind(trace.SpanKindConsumer))
			span.SetAttributes(attribute.String("tag.id", scan.TagID), attribute.String("device.id", scan.DeviceID))
			defer span.End()

			order, err := a.Orders.ScanTag(sctx, scan)
			if err != nil {
				span.RecordError(err)
				logger.Error("scan",
					zap.String("tagId", scan.TagID),
					zap.String("orderId", order.ID),
					zap.Error(err),
				)
				return
			}
			logger.Debug("scan applied", zap.String("orderId", order.ID), zap.String("status", string(order.Status)))
		}(scan)
	}
	wg.Wait()
}
