// Package events publishes job status events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/MimeLyc/subtitle-trans/internal/metrics"
	"github.com/MimeLyc/subtitle-trans/pkg/log"
)

// Event describes one status change of a translation job.
type Event struct {
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	JobID    string    `json:"job_id"`
	Path     string    `json:"path"`
	Language string    `json:"language"`
	Status   string    `json:"status"`
	Error    string    `json:"error,omitempty"`
	Time     time.Time `json:"time"`
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers []string
	Topic   string
	Enabled bool
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes events to a topic, or only logs them when Kafka is disabled.
type Publisher struct {
	writer  messageWriter
	topic   string
	enabled bool
	metrics *metrics.Metrics
	logger  *log.Logger
}

// New creates a publisher. A nil or disabled config yields a log-only publisher.
func New(cfg *Config) *Publisher {
	logger := log.GetLogger().With("component", "events")
	p := &Publisher{metrics: metrics.DefaultMetrics, logger: logger}

	if cfg == nil || !cfg.Enabled || len(cfg.Brokers) == 0 {
		logger.Info("Kafka disabled, using log-only mode")
		return p
	}

	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	p.writer = &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    &kafka.Transport{Dial: dialer.DialFunc},
	}
	p.topic = cfg.Topic
	p.enabled = true

	logger.Info("Kafka publisher initialized, brokers=%v topic=%s", cfg.Brokers, cfg.Topic)
	return p
}

// Enabled reports whether events leave the process.
func (p *Publisher) Enabled() bool {
	return p.enabled
}

// Publish sends ev keyed by its job id. Missing id and time are filled in.
func (p *Publisher) Publish(ctx context.Context, ev Event) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	p.logger.Debug("Publishing event %s job=%s status=%s", ev.Type, ev.JobID, ev.Status)

	if !p.enabled || p.writer == nil {
		p.metrics.RecordEvent(nil)
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(ev.JobID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(ev.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to write event to %s: %v", p.topic, err)
		p.metrics.RecordEvent(err)
		return err
	}

	p.metrics.RecordEvent(nil)
	return nil
}

// Close closes the Kafka writer.
func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	if err := p.writer.Close(); err != nil {
		p.logger.Error("Error closing writer: %v", err)
		return err
	}
	return nil
}
