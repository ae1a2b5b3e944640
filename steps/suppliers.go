package steps

import (
	"context"
	"fmt"
	"path"
	"time"

	apperrors "github.com/kbukum/datapipe/errors"
	"github.com/kbukum/datapipe/resource"
	"github.com/kbukum/datapipe/step"
	"github.com/kbukum/datapipe/storage"
)

// lister is a batch supplier over a list loaded on first use.
type lister struct {
	step.Base
	load   func(ctx context.Context) ([]resource.Resource, error)
	items  []resource.Resource
	loaded bool
}

func (l *lister) HasNext(ctx context.Context) (bool, error) {
	if !l.loaded {
		items, err := l.load(ctx)
		if err != nil {
			return false, err
		}
		l.items, l.loaded = items, true
	}
	return len(l.items) > 0, nil
}

// Next pops the head of the list before any error can surface, so a failing
// item is never returned twice.
func (l *lister) Next(ctx context.Context) (resource.Resource, error) {
	ok, err := l.HasNext(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, step.ErrExhausted
	}
	r := l.items[0]
	l.items = l.items[1:]
	return r, nil
}

func (l *lister) Rebuild() error {
	l.items, l.loaded = nil, false
	return nil
}

type defineArgs struct {
	Table   string   `mapstructure:"table" validate:"required"`
	Columns []string `mapstructure:"columns" validate:"required,min=1,dive,required"`
	Rows    [][]any  `mapstructure:"rows"`
}

// newDefine emits one literal table, written to the catalog when the
// supplier is first pulled.
func newDefine(spec step.Spec, deps Dependencies) (step.Step, error) {
	var a defineArgs
	if err := decodeArgs(spec, &a); err != nil {
		return nil, err
	}
	rows := make([]resource.Row, len(a.Rows))
	for i, r := range a.Rows {
		if len(r) != len(a.Columns) {
			return nil, apperrors.InvalidInput("rows", fmt.Sprintf("row %d has %d values, want %d", i, len(r), len(a.Columns)))
		}
		rows[i] = resource.Row(r)
	}
	schema := resource.NewSchema(a.Columns...)
	l := &lister{Base: spec.Base(step.KindBatchSupplier)}
	l.load = func(context.Context) ([]resource.Resource, error) {
		return []resource.Resource{deps.Catalog.Put(a.Table, schema, rows)}, nil
	}
	return l, nil
}

type tablesArgs struct {
	Pattern string `mapstructure:"pattern"`
}

// newTables emits the catalog tables whose names match a glob.
func newTables(spec step.Spec, deps Dependencies) (step.Step, error) {
	var a tablesArgs
	if err := decodeArgs(spec, &a); err != nil {
		return nil, err
	}
	if err := checkGlob("pattern", a.Pattern); err != nil {
		return nil, err
	}
	l := &lister{Base: spec.Base(step.KindBatchSupplier)}
	l.load = func(context.Context) ([]resource.Resource, error) {
		names, err := deps.Catalog.Names(a.Pattern)
		if err != nil {
			return nil, err
		}
		out := make([]resource.Resource, len(names))
		for i, n := range names {
			out[i] = deps.Catalog.Table(n)
		}
		return out, nil
	}
	return l, nil
}

type objectsArgs struct {
	Store   string `mapstructure:"store" validate:"required"`
	Prefix  string `mapstructure:"prefix"`
	Pattern string `mapstructure:"pattern"`
}

func (a *objectsArgs) decode(spec step.Spec, deps Dependencies) (storage.Storage, error) {
	if err := decodeArgs(spec, a); err != nil {
		return nil, err
	}
	if err := checkGlob("pattern", a.Pattern); err != nil {
		return nil, err
	}
	return store(deps, a.Store)
}

func (a *objectsArgs) match(p string) bool {
	if a.Pattern == "" {
		return true
	}
	ok, _ := path.Match(a.Pattern, path.Base(p))
	return ok
}

// newList emits the objects stored under a prefix.
func newList(spec step.Spec, deps Dependencies) (step.Step, error) {
	var a objectsArgs
	st, err := a.decode(spec, deps)
	if err != nil {
		return nil, err
	}
	l := &lister{Base: spec.Base(step.KindBatchSupplier)}
	l.load = func(ctx context.Context) ([]resource.Resource, error) {
		infos, err := st.List(ctx, a.Prefix)
		if err != nil {
			return nil, apperrors.StorageError("list", err).WithDetail("store", a.Store)
		}
		var out []resource.Resource
		for _, fi := range infos {
			if a.match(fi.Path) {
				out = append(out, resource.NewObject(a.Store, st, fi.Path, nil))
			}
		}
		return out, nil
	}
	return l, nil
}

// watcher is a stream supplier that emits objects that are new or changed
// since the previous poll.
type watcher struct {
	step.Base
	args  objectsArgs
	st    storage.Storage
	seen  map[string]time.Time
	queue []resource.Resource
}

func newWatch(spec step.Spec, deps Dependencies) (step.Step, error) {
	w := &watcher{Base: spec.Base(step.KindStreamSupplier), seen: make(map[string]time.Time)}
	st, err := w.args.decode(spec, deps)
	if err != nil {
		return nil, err
	}
	w.st = st
	return w, nil
}

func (w *watcher) HasNext(context.Context) (bool, error) { return len(w.queue) > 0, nil }

func (w *watcher) Next(context.Context) (resource.Resource, error) {
	if len(w.queue) == 0 {
		return nil, step.ErrExhausted
	}
	r := w.queue[0]
	w.queue = w.queue[1:]
	return r, nil
}

func (w *watcher) Poll(ctx context.Context) error {
	infos, err := w.st.List(ctx, w.args.Prefix)
	if err != nil {
		return apperrors.StorageError("list", err).WithDetail("store", w.args.Store)
	}
	for _, fi := range infos {
		if !w.args.match(fi.Path) {
			continue
		}
		if prev, ok := w.seen[fi.Path]; ok && !fi.LastModified.After(prev) {
			continue
		}
		w.seen[fi.Path] = fi.LastModified
		w.queue = append(w.queue, resource.NewObject(w.args.Store, w.st, fi.Path, nil))
	}
	return nil
}

func (w *watcher) Rebuild() error {
	w.seen = make(map[string]time.Time)
	w.queue = nil
	return nil
}
