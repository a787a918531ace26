package kafka

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pulsetrack/shared/genproto/patienteventpb"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockWriter struct {
	mu       sync.Mutex
	failures int32
	calls    int32
	written  []kafkago.Message
	block    chan struct{}
	closed   bool
	// lateWrites counts writes attempted after Close.
	lateWrites int32
}

func (m *mockWriter) WriteMessages(ctx context.Context, msgs ...kafkago.Message) error {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	if m.closed {
		m.lateWrites++
	}
	m.mu.Unlock()
	n := atomic.AddInt32(&m.calls, 1)
	if n <= atomic.LoadInt32(&m.failures) {
		return errors.New("leader not available")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.written = append(m.written, msgs...)
	return nil
}

func (m *mockWriter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func event() *patienteventpb.PatientEvent {
	return &patienteventpb.PatientEvent{
		PatientId: "p-1", Name: "P1", Email: "p1@x.com",
		EventType: patienteventpb.EventTypeCreated, EventId: "e-1", OccurredAt: 1,
	}
}

func TestPublishRetriesThenDelivers(t *testing.T) {
	w := &mockWriter{failures: 2}
	p := newProducer(w, ProducerConfig{MaxElapsed: 5 * time.Second}, zap.NewNop())

	p.Publish(event())
	require.NoError(t, p.Close(context.Background()))

	assert.Equal(t, int32(3), atomic.LoadInt32(&w.calls))
	require.Len(t, w.written, 1)
	assert.Equal(t, []byte("p-1"), w.written[0].Key)

	var got patienteventpb.PatientEvent
	require.NoError(t, patienteventpb.Unmarshal(w.written[0].Value, &got))
	assert.Equal(t, "p1@x.com", got.Email)
	assert.True(t, w.closed)
}

func TestPublishDoesNotBlockCaller(t *testing.T) {
	w := &mockWriter{block: make(chan struct{})}
	p := newProducer(w, ProducerConfig{}, zap.NewNop())

	done := make(chan struct{})
	go func() {
		p.Publish(event())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on the writer")
	}

	close(w.block)
	require.NoError(t, p.Close(context.Background()))
	assert.Len(t, w.written, 1)
}

func TestPublishGivesUpAfterBudget(t *testing.T) {
	w := &mockWriter{failures: 1 << 30}
	p := newProducer(w, ProducerConfig{MaxElapsed: 300 * time.Millisecond}, zap.NewNop())

	p.Publish(event())
	require.NoError(t, p.Close(context.Background()))
	assert.Empty(t, w.written)
	assert.Greater(t, atomic.LoadInt32(&w.calls), int32(1))
}

func TestPublishAfterCloseIsDropped(t *testing.T) {
	w := &mockWriter{}
	p := newProducer(w, ProducerConfig{}, zap.NewNop())
	require.NoError(t, p.Close(context.Background()))

	p.Publish(event())
	assert.Zero(t, atomic.LoadInt32(&w.calls))
}

func TestCloseTimeoutStopsRetriesBeforeClosingWriter(t *testing.T) {
	w := &mockWriter{failures: 1 << 30}
	p := newProducer(w, ProducerConfig{MaxElapsed: time.Minute}, zap.NewNop())
	p.Publish(event())
	p.Publish(event())

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := p.Close(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)

	calls := atomic.LoadInt32(&w.calls)
	time.Sleep(500 * time.Millisecond)
	assert.Equal(t, calls, atomic.LoadInt32(&w.calls))

	w.mu.Lock()
	defer w.mu.Unlock()
	assert.True(t, w.closed)
	assert.Zero(t, w.lateWrites)
	assert.Empty(t, w.written)
}
