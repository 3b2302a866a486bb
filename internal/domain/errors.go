package domain

import "errors"

var (
	ErrProductNotFound      = errors.New("product not found")
	ErrCartNotFound         = errors.New("cart not found")
	ErrItemNotFound         = errors.New("item not found in cart")
	ErrOrderNotFound        = errors.New("order not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrEmptyCart            = errors.New("cart is empty")
	ErrInvalidAddress       = errors.New("incomplete shipping address")
	ErrInvalidQuantity      = errors.New("quantity must be at least 1")
	ErrInvalidPaymentStatus = errors.New("invalid payment status")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrOrderCancelled       = errors.New("order has been cancelled")
	ErrForbidden            = errors.New("not authorized to access this order")
	ErrPaymentGateway       = errors.New("payment gateway error")
	ErrInvalidResetToken    = errors.New("invalid or expired reset token")
)
