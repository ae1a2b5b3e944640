package steps

import (
	"sort"
	"sync"

	apperrors "github.com/kbukum/datapipe/errors"
	"github.com/kbukum/datapipe/kafka"
	"github.com/kbukum/datapipe/logger"
	"github.com/kbukum/datapipe/resource"
	"github.com/kbukum/datapipe/step"
	"github.com/kbukum/datapipe/storage"
)

// Factory creates a step for one declaration.
type Factory func(spec step.Spec, deps Dependencies) (step.Step, error)

// Dependencies are the collaborators shared by every created step.
type Dependencies struct {
	Catalog *resource.Catalog
	Stores  *storage.Stores
	// Readers opens Kafka readers for consume steps. Nil disables consume.
	Readers kafka.ReaderFactory
	// Kafka supplies poll defaults for consume steps.
	Kafka  kafka.Config
	Logger *logger.Logger
}

// Registry maps operation names to factories. It implements
// pipeline.StepFactory.
type Registry struct {
	mu        sync.RWMutex
	deps      Dependencies
	factories map[string]Factory
}

// NewRegistry creates a registry with every built-in operation registered.
func NewRegistry(deps Dependencies) *Registry {
	if deps.Catalog == nil {
		deps.Catalog = resource.NewCatalog("default")
	}
	if deps.Stores == nil {
		deps.Stores = storage.NewStores()
	}
	if deps.Logger == nil {
		deps.Logger = logger.GetGlobalLogger()
	}
	deps.Kafka.ApplyDefaults()
	r := &Registry{deps: deps, factories: make(map[string]Factory)}
	for op, f := range builtins {
		r.factories[op] = f
	}
	return r
}

var builtins = map[string]Factory{
	"define":   newDefine,
	"tables":   newTables,
	"list":     newList,
	"watch":    newWatch,
	"consume":  newConsume,
	"select":   newSelect,
	"create":   newCreate,
	"truncate": newTruncate,
	"transfer": newTransfer,
	"match":    newMatch,
	"drop":     newDrop,
	"split":    newSplit,
	"union":    newUnion,
	"diff":     newDiff,
}

// Register adds an operation. Registering a name twice is an error.
func (r *Registry) Register(operation string, f Factory) error {
	if operation == "" || f == nil {
		return apperrors.InvalidInput("operation", "name and factory are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[operation]; ok {
		return apperrors.Configuration("operation already registered").WithDetail("operation", operation)
	}
	r.factories[operation] = f
	return nil
}

// Create builds the step declared by spec.
func (r *Registry) Create(spec step.Spec) (step.Step, error) {
	r.mu.RLock()
	f, ok := r.factories[spec.Operation]
	r.mu.RUnlock()
	if !ok {
		return nil, apperrors.NotFound("operation", spec.Operation)
	}
	s, err := f(spec, r.deps)
	if err != nil {
		if appErr, ok := apperrors.AsAppError(err); ok {
			return nil, appErr.WithDetail("operation", spec.Operation)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeConfiguration, "create step").WithDetail("operation", spec.Operation)
	}
	return s, nil
}

// Operations returns the registered operation names in sorted order.
func (r *Registry) Operations() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Kind reports the kind of a built-in operation.
func Kind(operation string) (step.Kind, bool) {
	k, ok := builtinKinds[operation]
	return k, ok
}

var builtinKinds = map[string]step.Kind{
	"define":   step.KindBatchSupplier,
	"tables":   step.KindBatchSupplier,
	"list":     step.KindBatchSupplier,
	"watch":    step.KindStreamSupplier,
	"consume":  step.KindStreamSupplier,
	"select":   step.KindMap,
	"create":   step.KindMap,
	"truncate": step.KindMap,
	"transfer": step.KindMap,
	"match":    step.KindFilterMap,
	"drop":     step.KindFilterMap,
	"split":    step.KindSplit,
	"union":    step.KindCollect,
	"diff":     step.KindCollect,
}
