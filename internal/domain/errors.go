package domain

import "fmt"

// EngineError is the unified error type for the engine.
// Each error has a numeric code and human-readable message.
type EngineError struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	return fmt.Sprintf("engine error %d: %s", e.Code, e.Message)
}

// Is matches any EngineError with the same code, so re-messaged errors
// still satisfy errors.Is against the sentinel.
func (e *EngineError) Is(target error) bool {
	t, ok := target.(*EngineError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewEngineError creates a new EngineError.
func NewEngineError(code int, msg string) *EngineError {
	return &EngineError{Code: code, Message: msg}
}

// WrapEngineError creates an EngineError that includes a cause.
func WrapEngineError(code int, msg string, cause error) *EngineError {
	return &EngineError{Code: code, Message: fmt.Sprintf("%s: %v", msg, cause)}
}

// ---- Not found (-32010 to -32029) ----

var (
	ErrScaleNotFound   = &EngineError{Code: -32010, Message: "rating scale not found"}
	ErrCriticNotFound  = &EngineError{Code: -32011, Message: "critic not found"}
	ErrFeatureNotFound = &EngineError{Code: -32012, Message: "feature not found"}
	ErrReviewNotFound  = &EngineError{Code: -32013, Message: "review not found"}
	ErrOutletNotFound  = &EngineError{Code: -32014, Message: "outlet not found"}
	ErrStatsNotFound   = &EngineError{Code: -32015, Message: "no statistics for key"}
)

// ---- Conflict / constraint (-32040 to -32069) ----

var (
	ErrDuplicateReview = &EngineError{Code: -32040, Message: "critic has already reviewed this feature"}
	ErrOutletInUse     = &EngineError{Code: -32041, Message: "outlet still has critics"}
	ErrScaleInUse      = &EngineError{Code: -32042, Message: "rating scale is referenced by reviews"}
	ErrInvalidReview   = &EngineError{Code: -32043, Message: "invalid review"}
	ErrEmptyPatch      = &EngineError{Code: -32044, Message: "review patch changes nothing"}
	ErrDuplicateScale  = &EngineError{Code: -32045, Message: "rating scale already exists"}
)

// ---- Aggregation (-32070 to -32099) ----

var (
	ErrRecomputeFailed = &EngineError{Code: -32070, Message: "statistics recompute failed"}
)

// ---- Store / Config errors (-32130 to -32159) ----

var (
	ErrStoreInit       = &EngineError{Code: -32130, Message: "failed to initialize store"}
	ErrStoreQuery      = &EngineError{Code: -32131, Message: "store query failed"}
	ErrStoreWrite      = &EngineError{Code: -32132, Message: "store write failed"}
	ErrSchemaMigration = &EngineError{Code: -32133, Message: "schema migration failed"}
	ErrConfigInvalid   = &EngineError{Code: -32136, Message: "invalid configuration"}
)
