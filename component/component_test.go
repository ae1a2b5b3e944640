package component

import (
	"context"
	"errors"
	"fmt"
	"testing"

	apperrors "github.com/kbukum/datapipe/errors"
	"github.com/kbukum/datapipe/logger"
)

// mockComponent implements Component for testing.
type mockComponent struct {
	name       string
	startErr   error
	stopErr    error
	health     Health
	startOrder *[]string
	stopOrder  *[]string
}

func (m *mockComponent) Name() string { return m.name }
func (m *mockComponent) Start(context.Context) error {
	if m.startOrder != nil {
		*m.startOrder = append(*m.startOrder, m.name)
	}
	return m.startErr
}
func (m *mockComponent) Stop(context.Context) error {
	if m.stopOrder != nil {
		*m.stopOrder = append(*m.stopOrder, m.name)
	}
	return m.stopErr
}
func (m *mockComponent) Health(context.Context) Health { return m.health }

func newRegistry() *Registry { return NewRegistry(logger.Nop()) }

func TestRegisterDuplicate(t *testing.T) {
	r := newRegistry()
	if err := r.Register(&mockComponent{name: "db"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	err := r.Register(&mockComponent{name: "db"})
	if !apperrors.IsCode(err, apperrors.ErrCodeConfiguration) {
		t.Errorf("err = %v, want CONFIGURATION", err)
	}
}

func TestGet(t *testing.T) {
	r := newRegistry()
	_ = r.Register(&mockComponent{name: "db"})

	if got := r.Get("db"); got == nil || got.Name() != "db" {
		t.Fatalf("Get(db) = %v", got)
	}
	if r.Get("missing") != nil {
		t.Error("expected nil for unregistered component")
	}
	if len(r.All()) != 1 {
		t.Errorf("All() = %d components", len(r.All()))
	}
}

func TestStartAll_Order(t *testing.T) {
	r := newRegistry()
	order := []string{}
	_ = r.Register(&mockComponent{name: "storage", startOrder: &order})
	_ = r.Register(&mockComponent{name: "runner", startOrder: &order})

	if err := r.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	if len(order) != 2 || order[0] != "storage" || order[1] != "runner" {
		t.Errorf("start order = %v", order)
	}
}

func TestStartAll_FailureStopsStarted(t *testing.T) {
	r := newRegistry()
	var started, stopped []string
	_ = r.Register(&mockComponent{name: "storage", startOrder: &started, stopOrder: &stopped})
	_ = r.Register(&mockComponent{name: "kafka", startOrder: &started, stopOrder: &stopped,
		startErr: apperrors.ConnectionFailed("kafka")})
	_ = r.Register(&mockComponent{name: "runner", startOrder: &started, stopOrder: &stopped})

	err := r.StartAll(context.Background())
	if !apperrors.IsCode(err, apperrors.ErrCodeConnectionFailed) {
		t.Fatalf("err = %v, want CONNECTION_FAILED", err)
	}
	if len(started) != 2 {
		t.Errorf("started = %v, runner must not start", started)
	}
	if len(stopped) != 1 || stopped[0] != "storage" {
		t.Errorf("stopped = %v, want [storage]", stopped)
	}
}

func TestStopAll_ReverseOrder(t *testing.T) {
	r := newRegistry()
	order := []string{}
	for _, name := range []string{"storage", "database", "kafka"} {
		_ = r.Register(&mockComponent{name: name, stopOrder: &order})
	}
	_ = r.StartAll(context.Background())
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll: %v", err)
	}
	if len(order) != 3 || order[0] != "kafka" || order[1] != "database" || order[2] != "storage" {
		t.Errorf("stop order = %v", order)
	}
}

func TestStopAll_SkipsUnstarted(t *testing.T) {
	r := newRegistry()
	order := []string{}
	_ = r.Register(&mockComponent{name: "db", stopOrder: &order})

	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll: %v", err)
	}
	if len(order) != 0 {
		t.Errorf("expected no stops, got %v", order)
	}
}

func TestStopAll_JoinsErrors(t *testing.T) {
	r := newRegistry()
	boom := fmt.Errorf("stop failed")
	_ = r.Register(&mockComponent{name: "a", stopErr: boom})
	_ = r.Register(&mockComponent{name: "b", stopErr: apperrors.Timeout("flush")})
	_ = r.StartAll(context.Background())

	err := r.StopAll(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want to wrap boom", err)
	}
	if !apperrors.IsCode(err, apperrors.ErrCodeTimeout) {
		t.Errorf("err = %v, want TIMEOUT kept", err)
	}
}

func TestHealthAll_Overall(t *testing.T) {
	r := newRegistry()
	_ = r.Register(&mockComponent{name: "db", health: Health{Name: "db", Status: StatusHealthy}})
	_ = r.Register(&mockComponent{name: "kafka", health: Health{Name: "kafka", Status: StatusDegraded}})

	results := r.HealthAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if got := Overall(results); got != StatusDegraded {
		t.Errorf("Overall = %s, want degraded", got)
	}
	results = append(results, Health{Name: "runner", Status: StatusUnhealthy})
	if got := Overall(results); got != StatusUnhealthy {
		t.Errorf("Overall = %s, want unhealthy", got)
	}
	if got := Overall(nil); got != StatusHealthy {
		t.Errorf("Overall(nil) = %s", got)
	}
}

func TestLazy_InitializesOnce(t *testing.T) {
	calls := 0
	l := NewLazy("sink", func(context.Context) (string, error) {
		calls++
		return "ready", nil
	}, logger.Nop())

	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if l.Initialized() || calls != 0 {
		t.Fatal("Start must not initialize")
	}
	for i := 0; i < 2; i++ {
		v, err := l.Get(context.Background())
		if err != nil || v != "ready" {
			t.Fatalf("Get = %q, %v", v, err)
		}
	}
	if calls != 1 {
		t.Errorf("initializer called %d times", calls)
	}
}

func TestLazy_RetriesAfterFailure(t *testing.T) {
	fail := true
	l := NewLazy("db", func(context.Context) (int, error) {
		if fail {
			return 0, apperrors.ConnectionFailed("database")
		}
		return 7, nil
	}, logger.Nop())

	_, err := l.Get(context.Background())
	if !apperrors.IsCode(err, apperrors.ErrCodeConnectionFailed) {
		t.Fatalf("err = %v", err)
	}
	if h := l.Health(context.Background()); h.Status != StatusUnhealthy {
		t.Errorf("health = %s, want unhealthy", h.Status)
	}

	fail = false
	if v, err := l.Get(context.Background()); err != nil || v != 7 {
		t.Fatalf("Get = %d, %v", v, err)
	}
	if h := l.Health(context.Background()); h.Status != StatusHealthy {
		t.Errorf("health = %s, want healthy", h.Status)
	}
}

func TestLazy_StopCloses(t *testing.T) {
	closed := 0
	l := NewLazy("pub", func(context.Context) (string, error) { return "x", nil }, logger.Nop()).
		WithCloser(func(string) error {
			closed++
			return nil
		})

	if err := l.Stop(context.Background()); err != nil || closed != 0 {
		t.Fatalf("Stop before use: %v, closed=%d", err, closed)
	}
	_, _ = l.Get(context.Background())
	if err := l.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if closed != 1 || l.Initialized() {
		t.Errorf("closed=%d initialized=%v", closed, l.Initialized())
	}
}

type describedComponent struct {
	mockComponent
	desc Description
}

func (d *describedComponent) Describe() Description { return d.desc }

func TestDescriptionFields(t *testing.T) {
	d := Description{Type: "storage", Details: "backend=local"}
	f := d.fields("stores")
	if f["display_name"] != "stores" || f["type"] != "storage" || f["details"] != "backend=local" {
		t.Errorf("fields = %v", f)
	}
	d.Name = "input store"
	if got := d.fields("stores")["display_name"]; got != "input store" {
		t.Errorf("display_name = %v, want input store", got)
	}
}

func TestStartAll_Describable(t *testing.T) {
	r := newRegistry()
	c := &describedComponent{mockComponent: mockComponent{name: "stores"}, desc: Description{Type: "storage"}}
	if err := r.Register(c); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll: %v", err)
	}
}
