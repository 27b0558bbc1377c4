package services

import "errors"

var (
	ErrInvalidPostalCode   = errors.New("postal code must be a 6-digit Singapore postal code")
	ErrInvalidStreet       = errors.New("street address is too short")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrAlreadyDispatched   = errors.New("order already has a delivery assigned")
	ErrIncompleteQuotation = errors.New("quotation response missing quotation or stop ids")
	ErrNoDelivery          = errors.New("no delivery assigned to order")
	ErrNotCancellable      = errors.New("order can no longer be cancelled")
	ErrAddressNotOwned     = errors.New("address does not belong to user")
	ErrOrderNotConfirmable = errors.New("order is not awaiting payment")
)
