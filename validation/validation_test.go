package validation

import (
	"strings"
	"testing"

	"github.com/kbukum/datapipe/errors"
)

type sampleConfig struct {
	Name        string `yaml:"name" validate:"required"`
	OnError     string `yaml:"on_error" validate:"omitempty,oneof=stop discard park"`
	MaxAttempts int    `yaml:"max_attempts" validate:"gte=0"`
	RetryDelay  int
}

func TestValidate_Valid(t *testing.T) {
	if err := Validate(sampleConfig{Name: "orders", OnError: "park"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_ReportsYAMLNames(t *testing.T) {
	err := Validate(sampleConfig{OnError: "explode", MaxAttempts: -1})
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	for _, want := range []string{"name: is required", "on_error: must be one of: stop discard park", "max_attempts: must be greater than or equal to 0"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}
	if !errors.IsCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %s", errors.CodeOf(err))
	}
}

func TestToSnakeCase(t *testing.T) {
	if got := toSnakeCase("RetryDelay"); got != "retry_delay" {
		t.Errorf("toSnakeCase = %q", got)
	}
}

func TestValidator(t *testing.T) {
	v := New().
		Required("table", "orders").
		NotEmpty("columns", 2).
		Positive("size", 10).
		OneOf("mode", "append", "append", "replace").
		Glob("pattern", "orders_*")
	if err := v.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	bad := New().
		Required("table", " ").
		NotEmpty("columns", 0).
		Positive("size", 0).
		OneOf("mode", "merge", "append", "replace").
		Glob("pattern", "[").
		Custom(false, "where", "unknown column")
	if len(bad.Errors()) != 6 {
		t.Fatalf("expected 6 errors, got %v", bad.Errors())
	}
	err := bad.Validate()
	if err == nil || !strings.Contains(err.Error(), "pattern: must be a valid glob pattern") {
		t.Errorf("unexpected error %v", err)
	}
}
