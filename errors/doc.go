// Package errors provides structured error types for the disposable library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the owner type name, the release level, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseRelease, errors.KindRelease).
//		Type("store.Journal").
//		Level("Journal").
//		Cause(closeErr).
//		Detail("close journal file").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.UsedAfterRelease("store.Buffer")
//	err := errors.OutOfBounds(errors.PhaseMemory, 4096, 16, 1024)
//
// Every constructor result matches the corresponding sentinel:
//
//	if errors.Is(err, errors.ErrUsedAfterRelease) { ... }
package errors
