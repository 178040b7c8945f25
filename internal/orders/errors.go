package orders

import "errors"

var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrNotOwner            = errors.New("order belongs to another user")
	ErrCancelNotAllowed    = errors.New("order can no longer be cancelled")
	ErrRefundUPIRequired   = errors.New("refund UPI ID is required")
	ErrWaitForDelivery     = errors.New("wait for delivery")
	ErrReturnPeriodExpired = errors.New("return period expired")
	ErrReturnsNotAccepted  = errors.New("returns are not accepted for this item")
)
