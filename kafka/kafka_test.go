package kafka

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/datapipe/component"
	apperrors "github.com/kbukum/datapipe/errors"
	"github.com/kbukum/datapipe/logger"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		err  error
		code apperrors.ErrorCode
	}{
		{errors.New("dial tcp 127.0.0.1:9092: connection refused"), apperrors.ErrCodeConnectionFailed},
		{errors.New("[3] Unknown Topic Or Partition"), apperrors.ErrCodeInvalidInput},
		{errors.New("request timed out"), apperrors.ErrCodeConnectionFailed},
		{errors.New("boom"), apperrors.ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			err := Translate(tt.err, "orders")
			if got := apperrors.CodeOf(err); got != tt.code {
				t.Errorf("code = %s, want %s", got, tt.code)
			}
			if !errors.Is(err, tt.err) {
				t.Error("cause should be preserved")
			}
		})
	}
	if Translate(nil, "x") != nil {
		t.Error("nil should translate to nil")
	}
	if err := Translate(context.Canceled, "x"); err != context.Canceled {
		t.Errorf("context errors should pass through, got %v", err)
	}
}

func TestMessage_RoundTrip(t *testing.T) {
	km := kafkago.Message{
		Key:     []byte("k"),
		Value:   []byte("table:orders"),
		Topic:   "t",
		Offset:  7,
		Headers: []kafkago.Header{{Key: "content-type", Value: []byte("text/plain")}},
	}
	m := FromKafkaMessage(km)
	if m.Key != "k" || string(m.Value) != "table:orders" || m.Offset != 7 {
		t.Fatalf("unexpected message %+v", m)
	}
	if m.Headers["content-type"] != "text/plain" {
		t.Errorf("headers = %v", m.Headers)
	}
	back := m.ToKafkaMessage()
	if string(back.Key) != "k" || len(back.Headers) != 1 {
		t.Errorf("unexpected kafka message %+v", back)
	}
}

type fakeWriter struct {
	fails  int
	writes atomic.Int32
	closed atomic.Bool
	last   kafkago.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	n := w.writes.Add(1)
	if int(n) <= w.fails {
		return errors.New("leader not available")
	}
	w.last = msgs[0]
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed.Store(true)
	return nil
}

func TestPublisher_RetriesTransientFailures(t *testing.T) {
	w := &fakeWriter{fails: 2}
	p := NewPublisher(w, "reports", 3, logger.Nop())
	p.retry.InitialBackoff = 1
	if err := p.PublishJSON(context.Background(), "exec-1", map[string]int{"n": 1}); err != nil {
		t.Fatalf("PublishJSON: %v", err)
	}
	if got := w.writes.Load(); got != 3 {
		t.Errorf("writes = %d, want 3", got)
	}
	if string(w.last.Value) != `{"n":1}` || string(w.last.Key) != "exec-1" {
		t.Errorf("unexpected message %s/%s", w.last.Key, w.last.Value)
	}
	if err := p.Close(); err != nil || !w.closed.Load() {
		t.Fatal("Close should close the writer")
	}
	if err := p.PublishJSON(context.Background(), "k", 1); err == nil {
		t.Error("publishing after Close should fail")
	}
}

type fakeReader struct{ closed atomic.Bool }

func (r *fakeReader) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	<-ctx.Done()
	return kafkago.Message{}, ctx.Err()
}
func (r *fakeReader) CommitMessages(context.Context, ...kafkago.Message) error { return nil }
func (r *fakeReader) Stats() kafkago.ReaderStats                               { return kafkago.ReaderStats{} }
func (r *fakeReader) Close() error {
	r.closed.Store(true)
	return nil
}

func TestComponent_ClosesReadersOnStop(t *testing.T) {
	var opened []*fakeReader
	c := NewComponent(Config{}, logger.Nop()).withOpener(func(string, string) (Reader, error) {
		r := &fakeReader{}
		opened = append(opened, r)
		return r, nil
	})
	ctx := context.Background()

	if h := c.Health(ctx); h.Status != component.StatusUnhealthy {
		t.Errorf("health before start = %s, want unhealthy", h.Status)
	}
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if h := c.Health(ctx); h.Status != component.StatusHealthy {
		t.Errorf("disabled kafka should report healthy, got %s", h.Status)
	}
	for _, topic := range []string{"a", "b"} {
		if _, err := c.Readers()(topic, ""); err != nil {
			t.Fatalf("open reader: %v", err)
		}
	}
	if err := c.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	for i, r := range opened {
		if !r.closed.Load() {
			t.Errorf("reader %d not closed", i)
		}
	}
}

func TestNewReader_Disabled(t *testing.T) {
	_, err := NewReader(Config{}, "orders", "", logger.Nop())
	if !apperrors.IsCode(err, apperrors.ErrCodeConfiguration) {
		t.Fatalf("err = %v, want CONFIGURATION", err)
	}
}
