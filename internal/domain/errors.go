package domain

import "errors"

var (
	// Payment errors
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrPaymentAlreadyExists = errors.New("payment already exists")
	ErrPaymentAlreadyFinal  = errors.New("payment already has a final status")
	ErrInvalidPaymentStatus = errors.New("invalid payment status")
	ErrUnknownGateway       = errors.New("unknown payment gateway")
	ErrGatewayMismatch      = errors.New("payment belongs to another gateway")
	ErrInvalidAmount        = errors.New("amount must be positive")

	// Capacity errors
	ErrCapacityExceeded = errors.New("ticket class capacity exceeded")
	ErrMixedTicketTypes = errors.New("payment mixes ticket types")
	ErrNoTickets        = errors.New("payment has no tickets")

	// Ticket errors
	ErrTicketNotFound     = errors.New("ticket not found")
	ErrInvalidTicketType  = errors.New("invalid ticket type")
	ErrInvalidTicketState = errors.New("ticket is not in a valid state for this operation")
	ErrTicketAlreadyUsed  = errors.New("ticket already scanned")
	ErrNotTicketOwner     = errors.New("ticket does not belong to user")
	ErrSelfTransfer       = errors.New("cannot transfer ticket to its owner")

	// Event errors
	ErrEventNotFound  = errors.New("event not found")
	ErrEventPast      = errors.New("event has already taken place")
	ErrInvalidEvent   = errors.New("invalid event")
	ErrClassNotOnSale = errors.New("ticket class is not on sale")

	// User errors
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user with this email already exists")
	ErrInvalidUserID     = errors.New("invalid user id")
	ErrInvalidEmail      = errors.New("invalid email")
	ErrInvalidQuantity   = errors.New("quantity must be between 1 and 10")
)
