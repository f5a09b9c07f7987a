// Command salesaudit follows the sale event topic and logs running totals
// per company.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gartstein/pdv/internal/pos/config"
	"github.com/gartstein/pdv/internal/pos/events"
	"go.uber.org/zap"
)

const defaultGroup = "pos-sales-audit"

func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	topic := cfg.Topic
	if topic == "" {
		topic = events.DefaultTopic
	}
	group := cfg.AuditGroup
	if group == "" {
		group = defaultGroup
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer := events.NewConsumer(cfg.KafkaBrokers, group, topic, logger)
	consumer.RegisterHandler(events.NewLedger(logger).Handle)

	logger.Info("Sales audit started", zap.String("topic", topic), zap.String("group", group))
	consumer.Start(ctx)
	consumer.Wait()
	consumer.Close()
	logger.Info("Sales audit stopped")
}
