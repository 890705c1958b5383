package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/subtitle-trans/internal/metrics"
	"github.com/MimeLyc/subtitle-trans/pkg/log"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func newTestPublisher(w messageWriter) *Publisher {
	return &Publisher{
		writer:  w,
		topic:   "subtitle-jobs",
		enabled: true,
		metrics: metrics.NewMetrics(nil),
		logger:  log.GetLogger(),
	}
}

func TestNew_DisabledIsLogOnly(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"nil config", nil},
		{"disabled", &Config{Brokers: []string{"localhost:9092"}, Topic: "t"}},
		{"no brokers", &Config{Enabled: true, Topic: "t"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.cfg)
			assert.False(t, p.Enabled())
			assert.NoError(t, p.Publish(context.Background(), Event{Type: "job", JobID: "job-1"}))
			assert.NoError(t, p.Close())
		})
	}
}

func TestPublish_WritesKeyedMessage(t *testing.T) {
	w := &fakeWriter{}
	p := newTestPublisher(w)

	err := p.Publish(context.Background(), Event{
		Type:     "job.finished",
		JobID:    "job-7",
		Path:     "/media/ep01.srt",
		Language: "zh-CN",
		Status:   "success",
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "job-7", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "job.finished", string(msg.Headers[0].Value))

	var ev Event
	require.NoError(t, json.Unmarshal(msg.Value, &ev))
	assert.NotEmpty(t, ev.ID)
	assert.False(t, ev.Time.IsZero())
	assert.Equal(t, "/media/ep01.srt", ev.Path)
}

func TestPublish_WriterError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := newTestPublisher(w)

	err := p.Publish(context.Background(), Event{Type: "job.failed", JobID: "job-1"})
	assert.EqualError(t, err, "broker down")

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}
