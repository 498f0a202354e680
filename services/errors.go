package services

import "errors"

// Sentinel errors returned by the order store and catalog reader.
// Controllers map these to HTTP status codes and error envelopes.
var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrOrderItemNotFound    = errors.New("order item not found")
	ErrMenuItemNotFound     = errors.New("menu item not found")
	ErrMenuOptionNotFound   = errors.New("menu option not found")
	ErrOptionChoiceNotFound = errors.New("option choice not found")
	ErrInvalidQuantity      = errors.New("quantity must be a positive integer")
	ErrInvalidOrderStatus   = errors.New("unrecognized order status")
	ErrInvalidItemStatus    = errors.New("unrecognized item status")
	ErrEmptyOrder           = errors.New("order must contain at least one item")
)
