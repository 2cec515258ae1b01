package issuance

import (
	"errors"
	"fmt"

	"github.com/xraph/issuance/account"
	"github.com/xraph/issuance/custody"
	"github.com/xraph/issuance/dualcontrol"
	"github.com/xraph/issuance/kyc"
	"github.com/xraph/issuance/lifecycle"
	"github.com/xraph/issuance/registry"
	"github.com/xraph/issuance/sale"
	"github.com/xraph/issuance/types"
)

// Sentinel errors for every failure an operation can report.
var (
	// Authorization
	ErrUnauthorized          = errors.New("issuance: unauthorized")
	ErrDuplicateConfirmation = errors.New("issuance: duplicate confirmation")

	// Balances
	ErrInsufficientBalance = errors.New("issuance: insufficient balance")
	ErrOverflow            = errors.New("issuance: overflow")
	ErrConservation        = errors.New("issuance: supply does not match balances")

	// Time and state preconditions
	ErrSaleNotActive     = errors.New("issuance: sale not active")
	ErrSaleDisabled      = errors.New("issuance: sale disabled")
	ErrRateUnset         = errors.New("issuance: exchange rate not set")
	ErrTooEarly          = errors.New("issuance: too early")
	ErrPaused            = errors.New("issuance: campaign paused")
	ErrInvalidTransition = errors.New("issuance: invalid transition")

	// Policy
	ErrSenderNotVerified = errors.New("issuance: sender not verified")
	ErrAccountRefused    = errors.New("issuance: account refused")
	ErrFundNotRegistered = errors.New("issuance: fund not registered")
	ErrStaleRequest      = errors.New("issuance: stale feed request")

	// General
	ErrInvalidInput  = errors.New("issuance: invalid input")
	ErrNotFound      = errors.New("issuance: not found")
	ErrAlreadyExists = errors.New("issuance: already exists")
	ErrNotStarted    = errors.New("issuance: ledger not started")
	ErrReentrant     = errors.New("issuance: called from inside an operation")

	// Collaborators
	ErrCollaborator = errors.New("issuance: collaborator failed")

	// Store
	ErrStoreClosed = errors.New("issuance: store is closed")
	ErrPersist     = errors.New("issuance: persisting entry failed")
	ErrReplay      = errors.New("issuance: journal replay failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("issuance: validation failed for %s: %s", e.Field, e.Message)
}

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "issuance: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("issuance: %d errors occurred", len(e.Errors))
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e MultiError) Unwrap() []error { return e.Errors }

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAuthorization returns true if the caller lacked a role or tried to
// confirm their own request.
func IsAuthorization(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrDuplicateConfirmation) ||
		errors.Is(err, ErrSenderNotVerified) ||
		errors.Is(err, ErrAccountRefused)
}

// IsPrecondition returns true if the operation was refused because of
// the campaign phase, the clock or the sale state.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrSaleNotActive) ||
		errors.Is(err, ErrSaleDisabled) ||
		errors.Is(err, ErrRateUnset) ||
		errors.Is(err, ErrTooEarly) ||
		errors.Is(err, ErrPaused) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrStaleRequest)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrPersist) ||
		errors.Is(err, ErrStoreClosed)
}

// errorMap translates component errors into the public taxonomy.
var errorMap = []struct {
	from, to error
}{
	{account.ErrInsufficientBalance, ErrInsufficientBalance},
	{account.ErrOverflow, ErrOverflow},
	{account.ErrZeroAddress, ErrInvalidInput},
	{account.ErrConservation, ErrConservation},
	{types.ErrOverflow, ErrOverflow},
	{types.ErrUnderflow, ErrInsufficientBalance},
	{types.ErrSyntax, ErrInvalidInput},
	{dualcontrol.ErrUnauthorized, ErrUnauthorized},
	{dualcontrol.ErrDuplicateConfirmation, ErrDuplicateConfirmation},
	{sale.ErrSaleNotActive, ErrSaleNotActive},
	{sale.ErrSaleDisabled, ErrSaleDisabled},
	{sale.ErrRateUnset, ErrRateUnset},
	{sale.ErrStaleRequest, ErrStaleRequest},
	{sale.ErrInvalidRate, ErrInvalidInput},
	{sale.ErrInvalidPlan, ErrInvalidInput},
	{sale.ErrTreasury, ErrInsufficientBalance},
	{lifecycle.ErrSaleNotActive, ErrSaleNotActive},
	{lifecycle.ErrPaused, ErrPaused},
	{lifecycle.ErrTooEarly, ErrTooEarly},
	{lifecycle.ErrInvalidTransition, ErrInvalidTransition},
	{kyc.ErrSenderNotVerified, ErrSenderNotVerified},
	{kyc.ErrInvalidTransition, ErrInvalidTransition},
	{kyc.ErrRefused, ErrAccountRefused},
	{custody.ErrExceedsPosition, ErrInsufficientBalance},
	{registry.ErrUnknownRole, ErrInvalidInput},
}

// publicError wraps err with its public sentinel so callers can test
// with errors.Is against this package only.
func publicError(err error) error {
	if err == nil {
		return nil
	}
	for _, m := range errorMap {
		if errors.Is(err, m.from) {
			if errors.Is(err, m.to) {
				return err
			}
			return fmt.Errorf("%w: %w", m.to, err)
		}
	}
	return err
}
