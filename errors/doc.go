// Package errors provides structured error types for stickyhost.
//
// Errors are categorized by Phase (where in a host's lifetime the error
// occurred) and Kind (error category). Callers of host.Create only ever see
// three kinds:
//
//	KindPlatform     a platform status code, preserved in Error.Code
//	KindOutOfMemory  an allocation the hosted object manages failed
//	KindGeneric      anything else; internal detail is not exposed
//
// Classify performs that mapping. Other kinds (KindDisconnected,
// KindNotSupported, ...) are reported by operations on an already
// created reference.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDispatch, errors.KindTypeMismatch).
//		GoType("string").
//		WitType("u32").
//		Detail("argument 0").
//		Build()
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
