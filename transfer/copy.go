package transfer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"sort"

	apperrors "github.com/kbukum/datapipe/errors"
	"github.com/kbukum/datapipe/resource"
	"github.com/kbukum/datapipe/storage"
)

func copyTable(src, dst *resource.Table) error {
	schema, rows, ok := src.Catalog().Get(src.Name())
	if !ok {
		return apperrors.NotFound("table", src.Key())
	}
	dst.Catalog().Put(dst.Name(), schema, rows)
	return nil
}

func copyObject(ctx context.Context, src, dst *resource.Object) error {
	ok, err := src.Storage().Exists(ctx, src.Path())
	if err != nil {
		return apperrors.StorageError("exists", err)
	}
	if !ok {
		return apperrors.NotFound("object", src.Key())
	}
	if err := storage.Copy(ctx, src.Storage(), src.Path(), dst.Storage(), dst.Path()); err != nil {
		return apperrors.StorageError("copy", err)
	}
	return nil
}

// exportTable writes one JSON object per row.
func exportTable(ctx context.Context, src *resource.Table, dst *resource.Object) error {
	if !src.Catalog().Exists(src.Name()) {
		return apperrors.NotFound("table", src.Key())
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, rec := range src.Records() {
		if err := enc.Encode(rec); err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeInvalidInput, "encode row of "+src.Key())
		}
	}
	if err := storage.WriteAll(ctx, dst.Storage(), dst.Path(), buf.Bytes()); err != nil {
		return apperrors.StorageError("upload", err)
	}
	return nil
}

// importObject reads JSON lines into a table. Columns come from the object
// schema when it has one, otherwise from the sorted keys of the first record.
func importObject(ctx context.Context, src *resource.Object, dst *resource.Table) error {
	data, err := storage.ReadAll(ctx, src.Storage(), src.Path())
	if err != nil {
		return apperrors.StorageError("download", err)
	}
	records, err := DecodeRecords(data)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInvalidInput, "decode "+src.Key())
	}

	schema := src.Schema()
	if schema.ColumnCount() == 0 && len(records) > 0 {
		keys := make([]string, 0, len(records[0]))
		for k := range records[0] {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		schema = resource.NewSchema(keys...)
	}
	if schema == nil {
		schema = resource.NewSchema()
	}

	names := schema.Names()
	rows := make([]resource.Row, len(records))
	for i, rec := range records {
		row := make(resource.Row, len(names))
		for j, n := range names {
			row[j] = rec[n]
		}
		rows[i] = row
	}
	dst.Catalog().Put(dst.Name(), schema, rows)
	return nil
}

// DecodeRecords parses JSON lines into records. Blank lines are skipped.
func DecodeRecords(data []byte) ([]map[string]any, error) {
	var out []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, sc.Err()
}
