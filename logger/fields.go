package logger

// Field keys shared by the engine, the steps and the command.
const (
	FieldComponent   = "component"
	FieldPipeline    = "pipeline"
	FieldExecutionID = "execution_id"
	FieldRun         = "run"
	FieldMode        = "mode"
	FieldStep        = "step"
	FieldStepID      = "step_id"
	FieldOperation   = "operation"
	FieldResource    = "resource"
	FieldTarget      = "target"
	FieldAction      = "action"
	FieldStatus      = "status"
	FieldError       = "error"
	FieldDuration    = "duration_ms"
	FieldCount       = "count"
)

// Fields builds a field map from alternating key-value pairs. Pairs whose
// key is not a string are dropped.
//
//	log.Info("parked", logger.Fields(logger.FieldStep, "select", logger.FieldTarget, "errors/orders"))
func Fields(kvs ...any) map[string]any {
	m := make(map[string]any, len(kvs)/2)
	for i := 0; i+1 < len(kvs); i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// MergeWithError sets the error field on fields, allocating the map when nil.
func MergeWithError(fields map[string]any, err error) map[string]any {
	if fields == nil {
		fields = make(map[string]any, 1)
	}
	fields[FieldError] = err.Error()
	return fields
}
