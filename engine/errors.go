/*
errors.go - Centralized error types for the reconciliation engine

PURPOSE:
  All engine error types in one place. Every failure mode aborts exactly
  one sub-policy's evaluation; none aborts a batch. There are no
  transient failures here - the engine is pure computation - so nothing
  is retryable.

ERROR CATEGORIES:
  1. Not found      - referenced policy or group absent from the store
  2. Configuration  - payment method outside the supported set
  3. Validation     - required dates missing or unparseable

USAGE:
  Callers classify with errors.Is / the helpers below:

    if engine.IsNotFound(err) { ... 404 ... }
    if engine.IsPolicyFault(err) { ... skip this member ... }

SEE ALSO:
  - schedule.go: Raises configuration/validation errors
  - evaluator.go: Catches per-member faults during group aggregation
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrPolicyNotFound is returned when a certificate has no policy record.
	ErrPolicyNotFound = errors.New("policy not found")

	// ErrGroupNotFound is returned when a group id has no member policies.
	ErrGroupNotFound = errors.New("policy group not found")

	// ErrGroupEmpty is returned when every member of a group failed
	// evaluation, leaving nothing to aggregate.
	ErrGroupEmpty = errors.New("no evaluable sub-policies in group")

	// ErrUnsupportedPaymentMethod is returned when no billing schedule
	// can be derived for the policy's collection channel.
	ErrUnsupportedPaymentMethod = errors.New("unsupported payment method")

	// ErrScheduleUndefined is returned when the dates required to anchor
	// the billing schedule are missing or unparseable.
	ErrScheduleUndefined = errors.New("billing schedule undefined")
)

// =============================================================================
// STRUCTURED ERRORS - Carry per-policy context
// =============================================================================

// ConfigurationError reports a payment method the engine cannot schedule.
type ConfigurationError struct {
	Certificate string
	Method      PaymentMethod
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("policy %s: %v: %q", e.Certificate, ErrUnsupportedPaymentMethod, e.Method)
}

func (e *ConfigurationError) Unwrap() error { return ErrUnsupportedPaymentMethod }

// ValidationError reports missing or unusable required policy data.
type ValidationError struct {
	Certificate string
	Reason      string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("policy %s: %v: %s", e.Certificate, ErrScheduleUndefined, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrScheduleUndefined }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound reports whether the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPolicyNotFound) || errors.Is(err, ErrGroupNotFound)
}

// IsPolicyFault reports whether the error is a per-policy data or
// configuration fault - the class of error that group aggregation
// skips rather than propagates.
func IsPolicyFault(err error) bool {
	return errors.Is(err, ErrUnsupportedPaymentMethod) ||
		errors.Is(err, ErrScheduleUndefined) ||
		errors.Is(err, ErrPolicyNotFound)
}
