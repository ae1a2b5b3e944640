package steps

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	apperrors "github.com/kbukum/datapipe/errors"
	"github.com/kbukum/datapipe/resource"
	"github.com/kbukum/datapipe/step"
	"github.com/kbukum/datapipe/storage"
)

type splitArgs struct {
	Size int `mapstructure:"size" validate:"required,min=1"`
}

type splitter struct {
	step.Base
	size int
}

// newSplit cuts a table into tables of at most size rows, or a JSON lines
// object into objects of at most size lines. Chunks are named
// <name>_part<N>.
func newSplit(spec step.Spec, _ Dependencies) (step.Step, error) {
	var a splitArgs
	if err := decodeArgs(spec, &a); err != nil {
		return nil, err
	}
	return &splitter{Base: spec.Base(step.KindSplit), size: a.Size}, nil
}

func (s *splitter) Split(ctx context.Context, r resource.Resource) (step.Supplier, error) {
	switch t := r.(type) {
	case *resource.Table:
		return s.splitTable(t)
	case *resource.Object:
		return s.splitObject(ctx, t)
	}
	return nil, apperrors.InvalidInput("resource", "split does not support "+r.Key())
}

func (s *splitter) splitTable(t *resource.Table) (step.Supplier, error) {
	schema, rows, ok := t.Catalog().Get(t.Name())
	if !ok {
		return nil, apperrors.NotFound("table", t.Key())
	}
	var chunks []resource.Resource
	for i := 0; i*s.size < len(rows); i++ {
		end := min((i+1)*s.size, len(rows))
		name := fmt.Sprintf("%s_part%d", t.Name(), i)
		chunks = append(chunks, t.Catalog().Put(name, schema, rows[i*s.size:end]))
	}
	return step.FromSlice(chunks...), nil
}

func (s *splitter) splitObject(ctx context.Context, o *resource.Object) (step.Supplier, error) {
	data, err := storage.ReadAll(ctx, o.Storage(), o.Path())
	if err != nil {
		return nil, apperrors.StorageError("download", err)
	}
	var lines [][]byte
	for _, l := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimSpace(l)) > 0 {
			lines = append(lines, l)
		}
	}
	ext := path.Ext(o.Path())
	base := strings.TrimSuffix(o.Path(), ext)
	var chunks []resource.Resource
	for i := 0; i*s.size < len(lines); i++ {
		end := min((i+1)*s.size, len(lines))
		var buf bytes.Buffer
		for _, l := range lines[i*s.size : end] {
			buf.Write(l)
			buf.WriteByte('\n')
		}
		p := fmt.Sprintf("%s_part%d%s", base, i, ext)
		if err := storage.WriteAll(ctx, o.Storage(), p, buf.Bytes()); err != nil {
			return nil, apperrors.StorageError("upload", err)
		}
		chunks = append(chunks, resource.NewObject(o.Store(), o.Storage(), p, o.Schema()))
	}
	return step.FromSlice(chunks...), nil
}

type collectArgs struct {
	Target string        `mapstructure:"target" validate:"required"`
	Window time.Duration `mapstructure:"window" validate:"gte=0"`
}

// newUnion merges every buffered table into the target table. All inputs
// must share the column names of the first one.
func newUnion(spec step.Spec, deps Dependencies) (step.Step, error) {
	var a collectArgs
	if err := decodeArgs(spec, &a); err != nil {
		return nil, err
	}
	fn := func(_ context.Context, buffered []resource.Resource) (step.Supplier, error) {
		tables, err := load("union", buffered)
		if err != nil {
			return nil, err
		}
		schema := tables[0].schema
		var rows []resource.Row
		for _, t := range tables {
			if !schema.Equal(t.schema) {
				return nil, apperrors.InvalidInput("schema", fmt.Sprintf("union of %s (%s) and %s (%s)", tables[0].key, schema, t.key, t.schema))
			}
			rows = append(rows, t.rows...)
		}
		return step.FromSlice(deps.Catalog.Put(a.Target, schema, rows)), nil
	}
	return step.NewCollectorFromSpec(spec, fn).WithWindow(a.Window), nil
}

// newDiff writes the rows of the first buffered table that appear in none
// of the others to the target table.
func newDiff(spec step.Spec, deps Dependencies) (step.Step, error) {
	var a collectArgs
	if err := decodeArgs(spec, &a); err != nil {
		return nil, err
	}
	fn := func(_ context.Context, buffered []resource.Resource) (step.Supplier, error) {
		tables, err := load("diff", buffered)
		if err != nil {
			return nil, err
		}
		first := tables[0]
		others := make(map[string]struct{})
		for _, t := range tables[1:] {
			if !first.schema.Equal(t.schema) {
				return nil, apperrors.InvalidInput("schema", fmt.Sprintf("diff of %s (%s) and %s (%s)", first.key, first.schema, t.key, t.schema))
			}
			for _, r := range t.rows {
				others[fmt.Sprint(r)] = struct{}{}
			}
		}
		var rows []resource.Row
		for _, r := range first.rows {
			if _, ok := others[fmt.Sprint(r)]; !ok {
				rows = append(rows, r)
			}
		}
		return step.FromSlice(deps.Catalog.Put(a.Target, first.schema, rows)), nil
	}
	return step.NewCollectorFromSpec(spec, fn).WithWindow(a.Window), nil
}

type tableData struct {
	key    string
	schema *resource.Schema
	rows   []resource.Row
}

func load(op string, buffered []resource.Resource) ([]tableData, error) {
	out := make([]tableData, 0, len(buffered))
	for _, r := range buffered {
		t, err := asTable(op, r)
		if err != nil {
			return nil, err
		}
		schema, rows, ok := t.Catalog().Get(t.Name())
		if !ok {
			return nil, apperrors.NotFound("table", t.Key())
		}
		out = append(out, tableData{key: t.Key(), schema: schema, rows: rows})
	}
	return out, nil
}
