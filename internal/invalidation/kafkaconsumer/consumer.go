// Package kafkaconsumer applies catalog change events from Kafka to the
// listing cache.
package kafkaconsumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"github.com/MdAlAmin212104/hydrogen-demo-store/internal/cache"
	obs "github.com/MdAlAmin212104/hydrogen-demo-store/internal/core/observability"
	"github.com/MdAlAmin212104/hydrogen-demo-store/internal/invalidation"
	mylog "github.com/MdAlAmin212104/hydrogen-demo-store/internal/logger"
)

type Consumer struct {
	cfg    Config
	logger *slog.Logger
	purger cache.Purger
	dedupe *invalidation.Dedupe
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func New(cfg Config, logger *slog.Logger, p cache.Purger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		cfg:    cfg.withDefaults(),
		logger: logger,
		purger: p,
		dedupe: invalidation.NewDedupe(8192),
	}
}

// Start joins the consumer group and consumes in the background until ctx
// is cancelled or Stop is called.
func (c *Consumer) Start(ctx context.Context) error {
	if c.purger == nil {
		return errors.New("kafkaconsumer: missing cache purger")
	}
	if len(c.cfg.Brokers) == 0 {
		return errors.New("kafkaconsumer: no brokers configured")
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.ClientID = "hydrogen-storefront"
	cfg.Consumer.Group.Session.Timeout = c.cfg.SessionTimeout
	cfg.Consumer.Group.Heartbeat.Interval = c.cfg.Heartbeat
	cfg.Consumer.Group.Rebalance.Timeout = c.cfg.RebalanceTimeout
	if c.cfg.InitialOffsetOldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cfg.Consumer.Offsets.AutoCommit.Enable = true
	cfg.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(c.cfg.Brokers, c.cfg.GroupID, cfg)
	if err != nil {
		return fmt.Errorf("create consumer group: %w", err)
	}

	ctx, cancel := context.WithCancel(mylog.WithComponent(ctx, "kafka_consumer"))
	c.cancel = cancel
	handler := c.handler()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			if err := group.Close(); err != nil {
				c.logger.Error("kafka consumer group close", "err", err)
			}
		}()
		for {
			if err := group.Consume(ctx, []string{c.cfg.Topic}, handler); err != nil {
				c.logger.ErrorContext(ctx, "kafka consume error", "topic", c.cfg.Topic, "err", err)
				select {
				case <-time.After(2 * time.Second):
				case <-ctx.Done():
					return
				}
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for err := range group.Errors() {
			c.logger.ErrorContext(ctx, "kafka group error", "err", err)
		}
	}()

	c.logger.InfoContext(ctx, "catalog invalidation consumer started",
		"brokers", c.cfg.Brokers, "topic", c.cfg.Topic, "group", c.cfg.GroupID)
	return nil
}

func (c *Consumer) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	c.logger.Info("catalog invalidation consumer stopped")
}

// ProcessOne applies a single message. Undecodable or invalid events are
// logged and skipped; only a failed purge is returned as an error.
func (c *Consumer) ProcessOne(ctx context.Context, msg *sarama.ConsumerMessage) error {
	start := time.Now()

	var ev invalidation.Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		obs.ObserveInvalidation("", "error", 0, time.Since(start).Seconds())
		c.logger.WarnContext(ctx, "skipping undecodable catalog event",
			"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "err", err)
		return nil
	}
	if err := ev.Validate(); err != nil {
		obs.ObserveInvalidation(ev.Op, "error", 0, time.Since(start).Seconds())
		c.logger.WarnContext(ctx, "skipping invalid catalog event",
			"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "err", err)
		return nil
	}
	if c.dedupe.Stale(ev) {
		obs.ObserveInvalidation(ev.Op, "skipped", 0, time.Since(start).Seconds())
		c.logger.DebugContext(ctx, "stale catalog event", "product_id", ev.ProductID, "revision", ev.Revision)
		return nil
	}

	purged := 0
	for _, p := range c.cfg.Prefixes {
		n, err := c.purger.PurgePrefix(ctx, p)
		purged += n
		if err != nil {
			obs.ObserveInvalidation(ev.Op, "error", purged, time.Since(start).Seconds())
			return fmt.Errorf("purge %q: %w", p, err)
		}
	}

	c.dedupe.Applied(ev)
	obs.ObserveInvalidation(ev.Op, "purged", purged, time.Since(start).Seconds())
	c.logger.InfoContext(ctx, "listing cache invalidated",
		"op", ev.Op, "product_id", ev.ProductID, "keys", purged)
	return nil
}
