package pipeline

import "errors"

// Run-level fatal conditions. Per-segment failures never surface as
// these; they are aggregated into the run report instead.
var (
	ErrEmptyArticle      = errors.New("article produced no narratable segments")
	ErrTooManyUnresolved = errors.New("too many unresolved segments")
)
