// Package errors provides structured error types for the script-engine library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type includes the module identity involved and a cause
// chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseLoad, errors.KindNotFound).
//		Identity("lib@1.2.0").
//		Detail("no fallback container registered").
//		Build()
//
// Matching uses Phase+Kind equality via errors.Is:
//
//	if stderrors.Is(err, errors.NotFound(errors.PhaseLoad, "")) {
//		// handle a load miss
//	}
package errors
