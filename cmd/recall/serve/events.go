package servecmder

import (
	"fmt"
	"strings"

	"github.com/papercomputeco/recall/pkg/eventstream"
	"github.com/papercomputeco/recall/pkg/eventstream/kafka"
	"github.com/papercomputeco/recall/pkg/eventstream/nop"
	"github.com/papercomputeco/recall/pkg/logger"
	"github.com/papercomputeco/recall/pkg/metrics"
	"github.com/papercomputeco/recall/pkg/worker"
)

// Turn event publisher names.
const (
	eventsNop   = "nop"
	eventsKafka = "kafka"
)

// startEvents creates the configured publisher and the worker pool feeding it.
func (c *ServeCommander) startEvents(m *metrics.Metrics) (*worker.Pool, error) {
	cfg := c.cfg.Events

	publisher, err := newPublisher(cfg.Provider, cfg.Brokers, cfg.Topic)
	if err != nil {
		return nil, err
	}

	pool, err := worker.NewPool(&worker.Config{
		Publisher:  publisher,
		NumWorkers: cfg.Workers,
		Metrics:    m,
		Logger:     logger.Component(c.logger, "events"),
	})
	if err != nil {
		_ = publisher.Close()
		return nil, fmt.Errorf("creating event worker pool: %w", err)
	}

	if cfg.Provider == eventsKafka {
		c.logger.Info("publishing turn events to kafka", "brokers", cfg.Brokers, "topic", cfg.Topic)
	}
	return pool, nil
}

func newPublisher(name, brokers, topic string) (eventstream.Publisher, error) {
	switch strings.ToLower(name) {
	case "", eventsNop:
		return nop.NewPublisher(), nil
	case eventsKafka:
		p, err := kafka.NewPublisher(kafka.Config{
			Brokers: splitBrokers(brokers),
			Topic:   topic,
		})
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown events provider: %q (supported: %s, %s)", name, eventsNop, eventsKafka)
	}
}

func splitBrokers(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
