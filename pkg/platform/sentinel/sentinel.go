package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and adapters return these
// (optionally wrapped) so services and handlers can translate them:
// - ErrNotFound: entity does not exist in store (or has expired)
// - ErrInvalidInput: store was handed data it cannot persist
// - ErrUnavailable: backing service temporarily unavailable
// - ErrTimeout: backing service did not answer in time
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnavailable  = errors.New("unavailable")
	ErrTimeout      = errors.New("timeout")
)
