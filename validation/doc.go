// Package validation checks configuration structs and step arguments.
//
// Struct tag validation uses go-playground/validator and reports fields by
// their yaml names; the programmatic Validator collects field errors for
// step arguments. Both return *errors.AppError with code INVALID_INPUT.
//
//	type Config struct {
//	    Name string `yaml:"name" validate:"required"`
//	}
//	err := validation.Validate(cfg)
package validation
