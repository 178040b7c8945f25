package dto

import "github.com/upscwallahhacker-cell/Desikart/internal/models"

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type SessionResponse struct {
	User  models.UserProfile `json:"user"`
	Token string             `json:"token,omitempty"`
}

type UpdateProfileRequest struct {
	Name    *string `json:"name"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
	Pin     *string `json:"pin"`
}

type AddToCartRequest struct {
	ProductID string `json:"product_id" binding:"required"`
}

type CartResponse struct {
	Items []models.CartItem `json:"items"`
	Total int64             `json:"total"`
	Count int               `json:"count"`
}

type CheckoutRequest struct {
	Phone   string               `json:"phone" binding:"required"`
	Address string               `json:"address" binding:"required"`
	Pin     string               `json:"pin" binding:"required"`
	Method  models.PaymentMethod `json:"method" binding:"required"`
	UTR     string               `json:"utr"`
}

type UpdateStatusRequest struct {
	Status    models.OrderStatus `json:"status" binding:"required"`
	RefundUPI string             `json:"refundUpi"`
}

type CancelOrderRequest struct {
	RefundUPI string `json:"refundUpi"`
}

type ReturnOrderRequest struct {
	RefundUPI string `json:"refundUpi" binding:"required"`
}

type ExpectedDeliveryRequest struct {
	ExpectedDeliveryDate int64 `json:"expectedDeliveryDate" binding:"required"`
}

type OrderResponse struct {
	models.Order
	RemainingReturnDays int  `json:"remainingReturnDays"`
	ReturnWindowOpen    bool `json:"returnWindowOpen"`
}
