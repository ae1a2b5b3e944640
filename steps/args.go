package steps

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	apperrors "github.com/kbukum/datapipe/errors"
	"github.com/kbukum/datapipe/resource"
	"github.com/kbukum/datapipe/step"
	"github.com/kbukum/datapipe/storage"
	"github.com/kbukum/datapipe/transfer"
	"github.com/kbukum/datapipe/validation"
)

// decodeArgs decodes spec.Args into out and validates it. Unknown keys are
// rejected.
func decodeArgs(spec step.Spec, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return apperrors.Internal(err)
	}
	if err := dec.Decode(spec.Args); err != nil {
		return apperrors.InvalidInput("args", err.Error()).WithCause(err)
	}
	if err := validation.Validate(out); err != nil {
		return err
	}
	return nil
}

func parseTarget(pattern string) (transfer.Target, error) {
	return transfer.Template(pattern)
}

func checkGlob(field, pattern string) error {
	return validation.New().Glob(field, pattern).Validate()
}

func store(deps Dependencies, name string) (storage.Storage, error) {
	st, ok := deps.Stores.Get(name)
	if !ok {
		return nil, apperrors.NotFound("store", name)
	}
	return st, nil
}

// Resolve turns a reference into a resource handle. References are
// "table:<name>", "table:<catalog>/<name>", "object:<store>/<path>" or a
// bare table name.
func Resolve(deps Dependencies, ref string) (resource.Resource, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, apperrors.InvalidInput("reference", "must not be empty")
	}
	switch {
	case strings.HasPrefix(ref, "object:"):
		storeName, p, ok := strings.Cut(strings.TrimPrefix(ref, "object:"), "/")
		if !ok || p == "" {
			return nil, apperrors.InvalidInput("reference", "object reference needs <store>/<path>: "+ref)
		}
		st, err := store(deps, storeName)
		if err != nil {
			return nil, err
		}
		return resource.NewObject(storeName, st, p, nil), nil
	case strings.HasPrefix(ref, "table:"):
		name := strings.TrimPrefix(ref, "table:")
		name = strings.TrimPrefix(name, deps.Catalog.Name()+"/")
		if name == "" {
			return nil, apperrors.InvalidInput("reference", "table reference needs a name: "+ref)
		}
		return deps.Catalog.Table(name), nil
	default:
		return deps.Catalog.Table(ref), nil
	}
}

func asTable(op string, r resource.Resource) (*resource.Table, error) {
	t, ok := r.(*resource.Table)
	if !ok {
		return nil, apperrors.InvalidInput("resource", fmt.Sprintf("%s needs a table, got %s", op, r.Key()))
	}
	return t, nil
}

func valueEqual(a, b any) bool {
	return fmt.Sprint(a) == fmt.Sprint(b)
}
