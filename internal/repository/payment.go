package repository

import (
	"context"

	"payments/internal/domain"
)

// PaymentRepository defines the persistence operations for payments.
type PaymentRepository interface {
	// Create persists a new payment. Returns ErrDuplicateBooking if a payment
	// already exists for the same booking number.
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByID retrieves a payment by payment number.
	GetByID(ctx context.Context, paymentNumber string) (*domain.Payment, error)

	// GetByBookingNumber retrieves a payment by booking number.
	// Returns nil if no payment exists for the booking.
	GetByBookingNumber(ctx context.Context, bookingNumber string) (*domain.Payment, error)

	// Update persists changes to an existing payment.
	Update(ctx context.Context, payment *domain.Payment) error
}
