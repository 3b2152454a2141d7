package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally wrapped)
// so services can translate them into domain errors.
//
//   - ErrNotFound: row does not exist for the given tenant scope
//   - ErrAlreadyUsed: a unique identifier (scan id, ticket id, item name) is taken
//   - ErrGuardFailed: a conditional write matched the row but its predicate was false
//   - ErrConflict: a conditional write matched nothing although the row was read earlier
//   - ErrUnavailable: backing service temporarily unreachable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrAlreadyUsed = errors.New("already used")
	ErrGuardFailed = errors.New("guard failed")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
