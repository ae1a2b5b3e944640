package report

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"text/template"

	apperrors "github.com/kbukum/datapipe/errors"
	"github.com/kbukum/datapipe/result"
	"github.com/kbukum/datapipe/storage"
)

// DefaultPathPattern places reports under their pipeline name.
const DefaultPathPattern = "reports/{{.Pipeline}}/{{.ExecutionID}}.json"

// StorageSink uploads each report as a JSON object.
type StorageSink struct {
	store storage.Storage
	path  *template.Template
}

// NewStorageSink creates a sink writing to store. pattern is a text/template
// evaluated against the report; empty selects DefaultPathPattern.
func NewStorageSink(store storage.Storage, pattern string) (*StorageSink, error) {
	if pattern == "" {
		pattern = DefaultPathPattern
	}
	tmpl, err := template.New("report").Option("missingkey=error").Parse(pattern)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeConfiguration, "parse report path pattern")
	}
	return &StorageSink{store: store, path: tmpl}, nil
}

// Path renders the object path of rep.
func (s *StorageSink) Path(rep *result.Report) (string, error) {
	var b strings.Builder
	if err := s.path.Execute(&b, rep); err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeInvalidInput, "render report path")
	}
	return b.String(), nil
}

// Write uploads rep.
func (s *StorageSink) Write(ctx context.Context, rep *result.Report) error {
	return traced(ctx, "storage", rep, func(ctx context.Context) error {
		path, err := s.Path(rep)
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "encode report")
		}
		if err := s.store.Upload(ctx, path, bytes.NewReader(data)); err != nil {
			return apperrors.StorageError("upload report", err).WithDetail("path", path)
		}
		return nil
	})
}
