package domain

import "errors"

// Error classes shared by the storage layer, the aggregation core and the
// HTTP handlers. Callers wrap them with fmt.Errorf("...: %w") and test them
// with errors.Is.
var (
	// ErrNotFound indicates the referenced media, review or notification does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a uniqueness violation, e.g. a second review by the same user.
	ErrConflict = errors.New("conflict")
	// ErrForbidden indicates the caller may not act on the entity.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidState indicates the aggregate arithmetic would break an invariant.
	ErrInvalidState = errors.New("invalid state")
	// ErrTransient indicates the atomic unit could not commit; the caller may retry.
	ErrTransient = errors.New("transient storage failure")
	// ErrInternal indicates a violated programming invariant.
	ErrInternal = errors.New("internal error")
)
