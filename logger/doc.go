// Package logger provides structured logging for datapipe using zerolog.
//
// Loggers are scoped with WithComponent and WithFields; the engine tags every
// line with the pipeline name and execution id and, when a step is involved,
// the step name and operation.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.GetGlobalLogger().WithComponent("pipeline")
//	log.Info("pipeline finished", logger.Fields(logger.FieldPipeline, "orders"))
package logger
