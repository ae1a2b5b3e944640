package steps

import (
	"context"
	"fmt"
	"path"

	apperrors "github.com/kbukum/datapipe/errors"
	"github.com/kbukum/datapipe/logger"
	"github.com/kbukum/datapipe/resource"
	"github.com/kbukum/datapipe/step"
	"github.com/kbukum/datapipe/storage"
	"github.com/kbukum/datapipe/transfer"
)

// mapper adapts a function to a map or filter-map step.
type mapper struct {
	step.Base
	apply func(ctx context.Context, name string, r resource.Resource) (resource.Resource, error)
}

func (m *mapper) Apply(ctx context.Context, r resource.Resource) (resource.Resource, error) {
	return m.apply(ctx, m.Name(), r)
}

type selectArgs struct {
	Target  string         `mapstructure:"target"`
	Columns []string       `mapstructure:"columns" validate:"dive,required"`
	Where   map[string]any `mapstructure:"where"`
}

// newSelect projects columns and keeps rows whose values equal every
// where entry, writing the result to a new table.
func newSelect(spec step.Spec, _ Dependencies) (step.Step, error) {
	a := selectArgs{Target: "{{.Name}}_selected"}
	if err := decodeArgs(spec, &a); err != nil {
		return nil, err
	}
	target, err := parseTarget(a.Target)
	if err != nil {
		return nil, err
	}
	m := &mapper{Base: spec.Base(step.KindMap)}
	m.apply = func(_ context.Context, name string, r resource.Resource) (resource.Resource, error) {
		src, err := asTable("select", r)
		if err != nil {
			return nil, err
		}
		schema, rows, ok := src.Catalog().Get(src.Name())
		if !ok {
			return nil, apperrors.NotFound("table", src.Key())
		}
		out, idx := schema, []int(nil)
		if len(a.Columns) > 0 {
			if out, idx, err = schema.Project(a.Columns); err != nil {
				return nil, apperrors.InvalidInput("columns", err.Error())
			}
		}
		where := make(map[int]any, len(a.Where))
		for col, v := range a.Where {
			i := schema.Index(col)
			if i < 0 {
				return nil, apperrors.InvalidInput("where", fmt.Sprintf("unknown column %q in %s", col, src.Key()))
			}
			where[i] = v
		}
		var kept []resource.Row
		for _, row := range rows {
			if !matchRow(row, where) {
				continue
			}
			if idx == nil {
				kept = append(kept, row)
				continue
			}
			p := make(resource.Row, len(idx))
			for j, i := range idx {
				p[j] = row[i]
			}
			kept = append(kept, p)
		}
		dst, err := target(src, name)
		if err != nil {
			return nil, err
		}
		return src.Catalog().Put(dst.Name(), out, kept), nil
	}
	return m, nil
}

func matchRow(row resource.Row, where map[int]any) bool {
	for i, v := range where {
		if i >= len(row) || !valueEqual(row[i], v) {
			return false
		}
	}
	return true
}

type targetArgs struct {
	Target string `mapstructure:"target" validate:"required"`
}

// newCreate creates an empty copy of the source's shape at the target.
func newCreate(spec step.Spec, _ Dependencies) (step.Step, error) {
	var a targetArgs
	if err := decodeArgs(spec, &a); err != nil {
		return nil, err
	}
	target, err := parseTarget(a.Target)
	if err != nil {
		return nil, err
	}
	m := &mapper{Base: spec.Base(step.KindMap)}
	m.apply = func(ctx context.Context, name string, r resource.Resource) (resource.Resource, error) {
		dst, err := target(r, name)
		if err != nil {
			return nil, err
		}
		switch d := dst.(type) {
		case *resource.Table:
			schema := r.Schema()
			if schema == nil {
				return nil, apperrors.NotFound("schema", r.Key())
			}
			return d.Catalog().Put(d.Name(), schema, nil), nil
		case *resource.Object:
			if err := storage.WriteAll(ctx, d.Storage(), d.Path(), nil); err != nil {
				return nil, apperrors.StorageError("upload", err)
			}
			return d, nil
		}
		return nil, apperrors.InvalidInput("resource", "unsupported resource "+dst.Key())
	}
	return m, nil
}

// newTruncate empties a table or object in place.
func newTruncate(spec step.Spec, _ Dependencies) (step.Step, error) {
	if err := decodeArgs(spec, &struct{}{}); err != nil {
		return nil, err
	}
	m := &mapper{Base: spec.Base(step.KindMap)}
	m.apply = func(ctx context.Context, _ string, r resource.Resource) (resource.Resource, error) {
		switch t := r.(type) {
		case *resource.Table:
			if err := t.Catalog().Truncate(t.Name()); err != nil {
				return nil, apperrors.NotFound("table", t.Key()).WithCause(err)
			}
		case *resource.Object:
			if err := storage.WriteAll(ctx, t.Storage(), t.Path(), nil); err != nil {
				return nil, apperrors.StorageError("upload", err)
			}
		default:
			return nil, apperrors.InvalidInput("resource", "unsupported resource "+r.Key())
		}
		return r, nil
	}
	return m, nil
}

type transferArgs struct {
	Target string `mapstructure:"target" validate:"required"`
	Into   string `mapstructure:"into" validate:"omitempty,oneof=same table object"`
	Store  string `mapstructure:"store" validate:"required_if=Into object"`
}

// transferStep copies the resource to its target through the pipeline's
// transfer manager, optionally converting between tables and objects.
type transferStep struct {
	mapper
	manager transfer.Manager
	log     *logger.Logger
}

func (t *transferStep) Configure(env step.Environment) error {
	t.manager = env.Transfer
	t.log = env.Logger
	if t.manager == nil {
		return apperrors.Configuration("transfer needs a transfer manager")
	}
	return nil
}

func newTransfer(spec step.Spec, deps Dependencies) (step.Step, error) {
	var a transferArgs
	if err := decodeArgs(spec, &a); err != nil {
		return nil, err
	}
	target, err := parseTarget(a.Target)
	if err != nil {
		return nil, err
	}
	var st storage.Storage
	if a.Into == "object" {
		if st, err = store(deps, a.Store); err != nil {
			return nil, err
		}
	}
	t := &transferStep{mapper: mapper{Base: spec.Base(step.KindMap)}, log: deps.Logger}
	t.apply = func(ctx context.Context, name string, r resource.Resource) (resource.Resource, error) {
		dst, err := target(r, name)
		if err != nil {
			return nil, err
		}
		switch a.Into {
		case "table":
			dst = deps.Catalog.Table(dst.Name())
		case "object":
			dst = resource.NewObject(a.Store, st, dst.Name(), r.Schema())
		}
		if err := t.manager.Transfer(ctx, r, dst); err != nil {
			return nil, err
		}
		t.log.Debug("transferred", logger.Fields(logger.FieldStep, name, logger.FieldResource, r.Key(), logger.FieldTarget, dst.Key()))
		return dst, nil
	}
	return t, nil
}

type matchArgs struct {
	Pattern string `mapstructure:"pattern" validate:"required"`
	Invert  bool   `mapstructure:"invert"`
}

// newMatch keeps resources whose name matches a glob.
func newMatch(spec step.Spec, _ Dependencies) (step.Step, error) {
	var a matchArgs
	if err := decodeArgs(spec, &a); err != nil {
		return nil, err
	}
	if err := checkGlob("pattern", a.Pattern); err != nil {
		return nil, err
	}
	m := &mapper{Base: spec.Base(step.KindFilterMap)}
	m.apply = func(_ context.Context, _ string, r resource.Resource) (resource.Resource, error) {
		ok, _ := path.Match(a.Pattern, r.Name())
		if ok == a.Invert {
			return nil, nil
		}
		return r, nil
	}
	return m, nil
}

// newDrop deletes the resource and emits nothing.
func newDrop(spec step.Spec, _ Dependencies) (step.Step, error) {
	if err := decodeArgs(spec, &struct{}{}); err != nil {
		return nil, err
	}
	m := &mapper{Base: spec.Base(step.KindFilterMap)}
	m.apply = func(ctx context.Context, _ string, r resource.Resource) (resource.Resource, error) {
		switch t := r.(type) {
		case *resource.Table:
			t.Catalog().Delete(t.Name())
		case *resource.Object:
			if err := t.Storage().Delete(ctx, t.Path()); err != nil {
				return nil, apperrors.StorageError("delete", err)
			}
		default:
			return nil, apperrors.InvalidInput("resource", "unsupported resource "+r.Key())
		}
		return nil, nil
	}
	return m, nil
}
