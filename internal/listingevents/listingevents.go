// Package listingevents publishes product listing views to Kafka.
package listingevents

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"github.com/MdAlAmin212104/hydrogen-demo-store/internal/core/model"
	"github.com/MdAlAmin212104/hydrogen-demo-store/internal/core/observability"
	mylog "github.com/MdAlAmin212104/hydrogen-demo-store/internal/logger"
)

type Event struct {
	ID          string    `json:"id"`
	TS          time.Time `json:"ts"`
	RequestID   string    `json:"requestId,omitempty"`
	Locale      string    `json:"locale"`
	SearchText  string    `json:"searchText"`
	SortKey     string    `json:"sortKey"`
	Reverse     bool      `json:"reverse"`
	PageSize    int       `json:"pageSize"`
	ResultCount int       `json:"resultCount"`
}

type Publisher struct {
	logger  *slog.Logger
	topic   string
	prod    sarama.AsyncProducer
	now     func() time.Time
	mu      sync.RWMutex
	closed  bool
	events  chan Event
	stopped chan struct{}
	errDone chan struct{}
}

// NewPublisher connects an async producer to brokers. Events are queued in
// memory and dropped, never blocking, once queueSize are pending.
func NewPublisher(logger *slog.Logger, brokers []string, topic string, queueSize int) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("listingevents: no brokers configured")
	}
	prod, err := sarama.NewAsyncProducer(brokers, producerConfig())
	if err != nil {
		return nil, fmt.Errorf("listingevents: create async producer: %w", err)
	}
	return newWithProducer(logger, prod, topic, queueSize), nil
}

func producerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.ClientID = "hydrogen-storefront"
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Return.Errors = true
	cfg.Producer.Return.Successes = false
	return cfg
}

func newWithProducer(logger *slog.Logger, prod sarama.AsyncProducer, topic string, queueSize int) *Publisher {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Publisher{
		logger:  logger,
		topic:   topic,
		prod:    prod,
		now:     time.Now,
		events:  make(chan Event, queueSize),
		stopped: make(chan struct{}),
		errDone: make(chan struct{}),
	}
	go p.pump()
	go p.drainErrors()
	return p
}

func (p *Publisher) pump() {
	defer close(p.stopped)
	for ev := range p.events {
		b, err := json.Marshal(ev)
		if err != nil {
			p.logger.Warn("listing event marshal failed", "err", err)
			continue
		}
		p.prod.Input() <- &sarama.ProducerMessage{
			Topic: p.topic,
			Key:   sarama.StringEncoder(ev.Locale),
			Value: sarama.ByteEncoder(b),
		}
	}
}

func (p *Publisher) drainErrors() {
	defer close(p.errDone)
	for err := range p.prod.Errors() {
		if err != nil {
			p.logger.Warn("listing event delivery failed", "topic", p.topic, "err", err.Err)
		}
	}
}

// Publish queues ev and reports whether it was accepted.
func (p *Publisher) Publish(ev Event) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.events <- ev:
		return true
	default:
		observability.IncEventsDropped()
		return false
	}
}

// RecordView publishes one event for a served listing.
func (p *Publisher) RecordView(ctx context.Context, loc model.Locale, l model.ProductListing) {
	p.Publish(Event{
		ID:          uuid.NewString(),
		TS:          p.now().UTC(),
		RequestID:   mylog.RequestID(ctx),
		Locale:      loc.String(),
		SearchText:  l.Params.SearchText,
		SortKey:     string(l.Params.SortKey),
		Reverse:     l.Params.Reverse,
		PageSize:    l.Params.PageSize,
		ResultCount: len(l.Products),
	})
}

// Close flushes queued events and shuts the producer down. It is safe to
// call more than once.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.events)
	p.mu.Unlock()

	<-p.stopped
	err := p.prod.Close()
	<-p.errDone
	if err != nil {
		return fmt.Errorf("listingevents: close producer: %w", err)
	}
	return nil
}
