package subscriptions

import (
	"errors"

	"github.com/xraph/subscriptions/collection"
)

// Sentinel errors for common failure scenarios. They are shared with the
// collection package so that errors.Is works across both.
var (
	// Payment and availability
	ErrIncorrectPayment = collection.ErrIncorrectPayment
	ErrTierUnavailable  = collection.ErrTierUnavailable
	ErrSaleDisabled     = collection.ErrSaleDisabled

	// Ledger entry state
	ErrAlreadySubscribed      = collection.ErrAlreadySubscribed
	ErrNotSubscribed          = collection.ErrNotSubscribed
	ErrSubscriptionNotExpired = collection.ErrSubscriptionNotExpired

	// Caller and addressing
	ErrUnauthorized       = collection.ErrUnauthorized
	ErrZeroAddress        = collection.ErrZeroAddress
	ErrRestrictedTransfer = collection.ErrRestrictedTransfer

	// Input
	ErrTierNotFound = collection.ErrTierNotFound
	ErrInvalidInput = collection.ErrInvalidInput

	// Collection lifecycle
	ErrCollectionNotFound = collection.ErrCollectionNotFound
	ErrCollectionExists   = collection.ErrCollectionExists
	ErrCollectionDeleted  = collection.ErrCollectionDeleted
	ErrCollectionInUse    = collection.ErrCollectionInUse

	// Store errors
	ErrStoreClosed     = errors.New("subscriptions: store is closed")
	ErrMigrationFailed = errors.New("subscriptions: migration failed")
)

// ValidationError represents a validation failure with details.
type ValidationError = collection.ValidationError

// MultiError represents multiple errors that occurred.
type MultiError = collection.MultiError

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCollectionNotFound) ||
		errors.Is(err, ErrTierNotFound) ||
		errors.Is(err, ErrNotSubscribed)
}

// IsPaymentError returns true if the payment did not match the required price.
func IsPaymentError(err error) bool {
	return errors.Is(err, ErrIncorrectPayment)
}

// IsAuthError returns true if the caller lacked the role the operation needs.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrRestrictedTransfer)
}

// IsUnavailable returns true if the tier or the merchant sale cannot be
// bought into right now.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrTierUnavailable) ||
		errors.Is(err, ErrSaleDisabled) ||
		errors.Is(err, ErrCollectionDeleted)
}

// IsInputError returns true if the request itself was malformed.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrZeroAddress)
}
