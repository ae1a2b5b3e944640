package step

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/kbukum/datapipe/logger"
	"github.com/kbukum/datapipe/resource"
	"github.com/kbukum/datapipe/transfer"
)

// Step is implemented by every step through an embedded Base.
type Step interface {
	ID() int
	Name() string
	Operation() string
	Args() map[string]any
	Kind() Kind
	ProcessingType() ProcessingType
	Identity() Identity

	base() *Base
}

// Identity is the reporting view of a step.
type Identity struct {
	ID        int            `json:"id"`
	Name      string         `json:"name"`
	Operation string         `json:"operation"`
	Args      map[string]any `json:"args,omitempty"`
}

func (i Identity) String() string {
	return fmt.Sprintf("%q (#%d, operation %s)", i.Name, i.ID, i.Operation)
}

// Base holds the state shared by all steps. Embed it by value and construct
// it with NewBase.
type Base struct {
	kind      Kind
	operation string
	userName  string
	name      string
	args      map[string]any
	id        int
}

// NewBase creates a Base. name may be empty, in which case the step is named
// step<ID> once it is assigned a position.
func NewBase(kind Kind, operation, name string, args map[string]any) Base {
	return Base{
		kind:      kind,
		operation: operation,
		userName:  name,
		name:      name,
		args:      maps.Clone(args),
		id:        -1,
	}
}

func (b *Base) base() *Base { return b }

// ID returns the position of the step in its pipeline, or -1 before assignment.
func (b *Base) ID() int { return b.id }

// Name returns the user-given name or the default step<ID>.
func (b *Base) Name() string { return b.name }

// Operation returns the operation name.
func (b *Base) Operation() string { return b.operation }

// Args returns a copy of the step arguments.
func (b *Base) Args() map[string]any { return maps.Clone(b.args) }

// Kind returns the step kind.
func (b *Base) Kind() Kind { return b.kind }

// ProcessingType returns the processing type fixed by the kind.
func (b *Base) ProcessingType() ProcessingType { return b.kind.ProcessingType() }

// Identity returns the reporting view of the step.
func (b *Base) Identity() Identity {
	return Identity{ID: b.id, Name: b.name, Operation: b.operation, Args: b.Args()}
}

// Assign fixes the position of s in its pipeline and derives the default
// name. Builders call it once per step, in declaration order.
func Assign(s Step, id int) {
	b := s.base()
	b.id = id
	b.name = b.userName
	if b.name == "" {
		b.name = fmt.Sprintf("step%d", id)
	}
}

// Supplier produces resources. HasNext reports whether Next will yield one.
type Supplier interface {
	HasNext(ctx context.Context) (bool, error)
	Next(ctx context.Context) (resource.Resource, error)
}

// Poller refreshes a stream source so that HasNext can report new input.
type Poller interface {
	Poll(ctx context.Context) error
}

// BatchSupplier is a root step that runs to exhaustion.
type BatchSupplier interface {
	Step
	Supplier
}

// StreamSupplier is a root step polled until the pipeline stops.
type StreamSupplier interface {
	Step
	Supplier
	Poller
}

// Mapper transforms one resource into another. Only KindFilterMap steps may
// return a nil resource.
type Mapper interface {
	Step
	Apply(ctx context.Context, r resource.Resource) (resource.Resource, error)
}

// Splitter turns one resource into a fresh sub-supplier.
type Splitter interface {
	Step
	Split(ctx context.Context, r resource.Resource) (Supplier, error)
}

// Collector buffers resources and emits them as a sub-supplier on demand.
// Collect returns nil when there is nothing to emit.
type Collector interface {
	Step
	Accept(ctx context.Context, r resource.Resource) error
	Collect(ctx context.Context) (Supplier, error)
	Reset()
	Buffered() []resource.Resource
}

// Starter is fired before a root supplier or sub-supplier is drained.
type Starter interface {
	OnStart(ctx context.Context) error
}

// Completer is fired after a root supplier or sub-supplier is drained, even
// when draining failed.
type Completer interface {
	OnComplete(ctx context.Context) error
}

// Rebuilder is implemented by steps that hold state across runs; Rebuild is
// called before every run after the first.
type Rebuilder interface {
	Rebuild() error
}

// Windowed lets a collector choose its own drain interval in stream mode.
type Windowed interface {
	WindowInterval() time.Duration
}

// Environment carries pipeline-wide collaborators into steps.
type Environment struct {
	Pipeline string
	Mode     ProcessingType
	Logger   *logger.Logger
	Transfer transfer.Manager
	Target   transfer.Target
}

// Configurable steps receive the pipeline Environment at build time.
type Configurable interface {
	Configure(env Environment) error
}

// Validate checks that s implements the behavior its kind requires.
func Validate(s Step) error {
	var ok bool
	switch s.Kind() {
	case KindBatchSupplier:
		_, ok = s.(BatchSupplier)
	case KindStreamSupplier:
		_, ok = s.(StreamSupplier)
	case KindMap, KindFilterMap:
		_, ok = s.(Mapper)
	case KindSplit:
		_, ok = s.(Splitter)
	case KindCollect:
		_, ok = s.(Collector)
	default:
		return fmt.Errorf("step %q has unknown kind %s", s.Name(), s.Kind())
	}
	if !ok {
		return fmt.Errorf("step %q (operation %s) is declared %s but does not implement it", s.Name(), s.Operation(), s.Kind())
	}
	return nil
}

// Spec is the declarative form of a step.
type Spec struct {
	Name      string         `yaml:"name" json:"name"`
	Operation string         `yaml:"operation" json:"operation"`
	Args      map[string]any `yaml:"args" json:"args,omitempty"`
}

// Base creates the Base of a step of the given kind declared by s.
func (s Spec) Base(kind Kind) Base {
	return NewBase(kind, s.Operation, s.Name, s.Args)
}
