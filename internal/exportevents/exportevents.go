// Package exportevents publishes a record of every successful export to Kafka.
// Publishing never blocks a request: when the queue is full the event is
// dropped and counted.
package exportevents

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"github.com/mohammed-shakir/geofence-helper/internal/core/observability"
)

type Event struct {
	Mode     string    `json:"mode"`
	Style    string    `json:"style"`
	Fences   []string  `json:"fences"`
	Instance int       `json:"instance"`
	Bytes    int       `json:"bytes"`
	TS       time.Time `json:"ts"`
}

// Publisher is satisfied by *Kafka and by Nop.
type Publisher interface {
	Publish(ev Event)
	Close() error
}

type Nop struct{}

func (Nop) Publish(Event) {}
func (Nop) Close() error  { return nil }

type Kafka struct {
	topic   string
	events  chan Event
	prod    sarama.AsyncProducer
	logger  *slog.Logger
	stopped chan struct{}
	errDone chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewKafka(brokers []string, topic string, queueSize int, logger *slog.Logger) (*Kafka, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.ClientID = "gfhelper"
	cfg.Producer.Return.Errors = true
	cfg.Producer.Return.Successes = false
	cfg.Producer.RequiredAcks = sarama.WaitForLocal

	prod, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("exportevents: create async producer: %w", err)
	}
	return WithProducer(prod, topic, queueSize, logger), nil
}

// WithProducer wires an existing producer; the publisher takes ownership and
// closes it in Close.
func WithProducer(prod sarama.AsyncProducer, topic string, queueSize int, logger *slog.Logger) *Kafka {
	if queueSize <= 0 {
		queueSize = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Kafka{
		topic:   topic,
		events:  make(chan Event, queueSize),
		prod:    prod,
		logger:  logger,
		stopped: make(chan struct{}),
		errDone: make(chan struct{}),
	}

	go func() {
		defer close(p.stopped)
		for ev := range p.events {
			b, err := json.Marshal(ev)
			if err != nil {
				observability.IncExportEvent("failed")
				p.logger.Error("export event marshal", "err", err)
				continue
			}
			p.prod.Input() <- &sarama.ProducerMessage{
				Topic: p.topic,
				Key:   sarama.StringEncoder(ev.Mode),
				Value: sarama.ByteEncoder(b),
			}
		}
	}()

	go func() {
		defer close(p.errDone)
		for err := range p.prod.Errors() {
			if err != nil {
				observability.IncExportEvent("failed")
				p.logger.Warn("export event producer error", "err", err)
			}
		}
	}()

	return p
}

func (p *Kafka) Publish(ev Event) {
	if ev.TS.IsZero() {
		ev.TS = time.Now().UTC()
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		observability.IncExportEvent("dropped")
		return
	}
	select {
	case p.events <- ev:
		observability.IncExportEvent("queued")
	default:
		observability.IncExportEvent("dropped")
	}
}

// Close drains queued events, then closes the producer. Events published
// after Close are dropped. Close is idempotent.
func (p *Kafka) Close() error {
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
		return fmt.Errorf("exportevents: close producer: %w", err)
	}
	return nil
}
