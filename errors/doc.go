// Package errors provides the structured error type used across datapipe.
//
// Every failure that leaves the engine is an *AppError carrying a
// machine-readable code, a message naming the pipeline and step involved,
// and the underlying cause. Callers test codes with IsCode or unwrap the
// cause with the standard errors package.
package errors
