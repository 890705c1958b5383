package translator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/subtitle-trans/internal/backend"
	"github.com/MimeLyc/subtitle-trans/internal/browser"
	"github.com/MimeLyc/subtitle-trans/internal/cloudtrans"
	"github.com/MimeLyc/subtitle-trans/internal/config"
	"github.com/MimeLyc/subtitle-trans/internal/metrics"
)

type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) Init(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockBackend) Translate(ctx context.Context, text string) (string, error) {
	args := m.Called(ctx, text)
	return args.String(0), args.Error(1)
}

func (m *MockBackend) Close() error {
	args := m.Called()
	return args.Error(0)
}

func newOrchestrator(b backend.Backend, opts ...Option) *Orchestrator {
	opts = append([]Option{WithMetrics(metrics.NewMetrics(nil)), WithRetry(2, time.Millisecond)}, opts...)
	return New(b, opts...)
}

func TestOrchestrator_RequiresInit(t *testing.T) {
	m := new(MockBackend)
	o := newOrchestrator(m)

	_, err := o.Translate(context.Background(), "Hello.")
	assert.ErrorIs(t, err, ErrNotInitialized)
	m.AssertNotCalled(t, "Translate", mock.Anything, mock.Anything)
}

func TestOrchestrator_InitOnce(t *testing.T) {
	m := new(MockBackend)
	m.On("Init", mock.Anything).Return(nil).Once()
	m.On("Translate", mock.Anything, "Hello.").Return("你好。", nil)

	o := newOrchestrator(m)
	require.NoError(t, o.Init(context.Background()))
	require.NoError(t, o.Init(context.Background()))

	got, err := o.Translate(context.Background(), "Hello.")
	require.NoError(t, err)
	assert.Equal(t, "你好。", got)
	m.AssertExpectations(t)
}

func TestOrchestrator_InitFailure(t *testing.T) {
	m := new(MockBackend)
	m.On("Init", mock.Anything).Return(errors.New("no chrome")).Once()

	o := newOrchestrator(m)
	err := o.Init(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no chrome")
	assert.Equal(t, err, o.Init(context.Background()))

	_, err = o.Translate(context.Background(), "Hello.")
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestOrchestrator_RetriesTransientErrors(t *testing.T) {
	m := new(MockBackend)
	m.On("Init", mock.Anything).Return(nil)
	m.On("Translate", mock.Anything, "Hello.").
		Return("", backend.NewError(backend.KindOverload, "busy")).Once()
	m.On("Translate", mock.Anything, "Hello.").
		Return("", backend.NewError(backend.KindTimeout, "slow")).Once()
	m.On("Translate", mock.Anything, "Hello.").Return("你好。", nil).Once()

	o := newOrchestrator(m)
	require.NoError(t, o.Init(context.Background()))

	got, err := o.Translate(context.Background(), "Hello.")
	require.NoError(t, err)
	assert.Equal(t, "你好。", got)
	m.AssertNumberOfCalls(t, "Translate", 3)
}

func TestOrchestrator_GivesUpAfterRetries(t *testing.T) {
	m := new(MockBackend)
	m.On("Init", mock.Anything).Return(nil)
	m.On("Translate", mock.Anything, "Hello.").Return("", backend.NewError(backend.KindOverload, "busy"))

	o := newOrchestrator(m)
	require.NoError(t, o.Init(context.Background()))

	_, err := o.Translate(context.Background(), "Hello.")
	assert.True(t, backend.IsKind(err, backend.KindOverload))
	m.AssertNumberOfCalls(t, "Translate", 3)
}

func TestOrchestrator_DoesNotRetryPermanentErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"empty query", backend.NewError(backend.KindEmptyQuery, "empty")},
		{"element not found", backend.NewError(backend.KindElementNotFound, "gone")},
		{"plain error", errors.New("boom")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(MockBackend)
			m.On("Init", mock.Anything).Return(nil)
			m.On("Translate", mock.Anything, "x").Return("", tt.err)

			o := newOrchestrator(m)
			require.NoError(t, o.Init(context.Background()))

			_, err := o.Translate(context.Background(), "x")
			assert.ErrorIs(t, err, tt.err)
			m.AssertNumberOfCalls(t, "Translate", 1)
		})
	}
}

func TestOrchestrator_RetryHonorsContext(t *testing.T) {
	m := new(MockBackend)
	m.On("Init", mock.Anything).Return(nil)
	m.On("Translate", mock.Anything, "x").Return("", backend.NewError(backend.KindOverload, "busy"))

	o := newOrchestrator(m, WithRetry(5, time.Hour))
	require.NoError(t, o.Init(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := o.Translate(ctx, "x")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	m.AssertNumberOfCalls(t, "Translate", 1)
}

func TestOrchestrator_Close(t *testing.T) {
	m := new(MockBackend)
	m.On("Init", mock.Anything).Return(nil)
	m.On("Close").Return(nil).Once()

	o := newOrchestrator(m)
	require.NoError(t, o.Init(context.Background()))
	require.NoError(t, o.Close())

	_, err := o.Translate(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNotInitialized)
	m.AssertExpectations(t)
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.Default()

	o, err := NewFromConfig(cfg)
	require.NoError(t, err)
	_, ok := o.Backend().(*browser.Pool)
	assert.True(t, ok)
	assert.Equal(t, "browser", o.name)
	assert.Equal(t, 3, o.retryAttempts)

	cfg.Translate.Mode = "api"
	cfg.API.Key = "k"
	o, err = NewFromConfig(cfg)
	require.NoError(t, err)
	_, ok = o.Backend().(*cloudtrans.Client)
	assert.True(t, ok)

	cfg.API.Key = ""
	_, err = NewFromConfig(cfg)
	assert.Error(t, err)

	cfg.Translate.Mode = "llm"
	_, err = NewFromConfig(cfg)
	assert.Error(t, err)
}
