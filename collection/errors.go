package collection

import (
	"errors"
	"fmt"
)

// Sentinel errors. Operations wrap them with a reason, so match with errors.Is.
var (
	// Payment and availability
	ErrIncorrectPayment = errors.New("subscriptions: incorrect payment")
	ErrTierUnavailable  = errors.New("subscriptions: tier unavailable")
	ErrSaleDisabled     = errors.New("subscriptions: merchant rights are not for sale")

	// Ledger entry state
	ErrAlreadySubscribed      = errors.New("subscriptions: already subscribed")
	ErrNotSubscribed          = errors.New("subscriptions: not subscribed")
	ErrSubscriptionNotExpired = errors.New("subscriptions: subscription not expired yet")

	// Caller and addressing
	ErrUnauthorized       = errors.New("subscriptions: unauthorized")
	ErrZeroAddress        = errors.New("subscriptions: zero address")
	ErrRestrictedTransfer = errors.New("subscriptions: restricted transfer")

	// Input
	ErrTierNotFound = errors.New("subscriptions: tier not found")
	ErrInvalidInput = errors.New("subscriptions: invalid input")

	// Collection lifecycle
	ErrCollectionNotFound = errors.New("subscriptions: collection not found")
	ErrCollectionExists   = errors.New("subscriptions: collection already exists")
	ErrCollectionDeleted  = errors.New("subscriptions: collection deleted")
	ErrCollectionInUse    = errors.New("subscriptions: collection has active subscriptions")
)

// ValidationError describes one rejected input field. It matches
// ErrInvalidInput under errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("subscriptions: validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap ties every validation failure to ErrInvalidInput.
func (e ValidationError) Unwrap() error { return ErrInvalidInput }

// MultiError collects several failures from one batch input.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "subscriptions: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("subscriptions: %d errors occurred: %v", len(e.Errors), e.Errors[0])
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

// ErrOrNil returns e when it holds errors and nil otherwise.
func (e MultiError) ErrOrNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}
