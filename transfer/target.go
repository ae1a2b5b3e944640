package transfer

import (
	"bytes"
	"path"
	"strings"
	"text/template"
	"time"

	apperrors "github.com/kbukum/datapipe/errors"
	"github.com/kbukum/datapipe/resource"
)

// Target computes the destination for a resource handled by the named step.
type Target func(src resource.Resource, step string) (resource.Resource, error)

// TargetData is the data available to a Template.
type TargetData struct {
	Name      string
	Base      string
	Ext       string
	Key       string
	Step      string
	Timestamp int64
	Date      string
}

// Template returns a Target that relocates the source to the location
// rendered from pattern. The pattern is a text/template over TargetData.
func Template(pattern string) (Target, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, apperrors.InvalidInput("target", "template must not be empty")
	}
	tmpl, err := template.New("target").Option("missingkey=error").Parse(pattern)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeConfiguration, "parse target template")
	}
	return func(src resource.Resource, step string) (resource.Resource, error) {
		now := time.Now().UTC()
		ext := path.Ext(src.Name())
		data := TargetData{
			Name:      src.Name(),
			Base:      strings.TrimSuffix(path.Base(src.Name()), ext),
			Ext:       ext,
			Key:       src.Key(),
			Step:      step,
			Timestamp: now.UnixMilli(),
			Date:      now.Format("2006-01-02"),
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidInput, "render target for "+src.Key())
		}
		name := buf.String()
		if name == "" {
			return nil, apperrors.InvalidInput("target", "rendered an empty name for "+src.Key())
		}
		return src.Relocate(name), nil
	}, nil
}

// MustTemplate is like Template but panics on a bad pattern.
func MustTemplate(pattern string) Target {
	t, err := Template(pattern)
	if err != nil {
		panic(err)
	}
	return t
}
