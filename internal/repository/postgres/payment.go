package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"payments/internal/domain"
	"payments/internal/repository"
)

// PaymentRepository is a PostgreSQL implementation of repository.PaymentRepository.
//
// Expected schema:
//
//	CREATE TABLE payments (
//	    payment_number TEXT PRIMARY KEY,
//	    booking_number TEXT NOT NULL UNIQUE,
//	    bus_number     TEXT NOT NULL DEFAULT '',
//	    num_seats      INT NOT NULL DEFAULT 1,
//	    amount         NUMERIC NOT NULL DEFAULT 0,
//	    status         TEXT NOT NULL,
//	    payment_date   TIMESTAMPTZ NOT NULL
//	);
type PaymentRepository struct {
	q Querier
}

// NewPaymentRepository creates a new PostgreSQL payment repository.
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{q: db}
}

// Create persists a new payment. The unique index on booking_number is the
// backstop for concurrent redeliveries that both pass the existence check.
func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (payment_number, booking_number, bus_number, num_seats, amount, status, payment_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.q.ExecContext(ctx, query,
		payment.PaymentNumber,
		payment.BookingNumber,
		payment.BusNumber,
		payment.NumSeats,
		payment.Amount,
		payment.Status,
		payment.PaymentDate,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return repository.ErrDuplicateBooking
		}
		return err
	}

	return nil
}

// GetByID retrieves a payment by payment number.
func (r *PaymentRepository) GetByID(ctx context.Context, paymentNumber string) (*domain.Payment, error) {
	query := `
		SELECT payment_number, booking_number, bus_number, num_seats, amount, status, payment_date
		FROM payments WHERE payment_number = $1
	`

	var payment domain.Payment
	err := r.q.QueryRowContext(ctx, query, paymentNumber).Scan(
		&payment.PaymentNumber,
		&payment.BookingNumber,
		&payment.BusNumber,
		&payment.NumSeats,
		&payment.Amount,
		&payment.Status,
		&payment.PaymentDate,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &payment, nil
}

// GetByBookingNumber retrieves a payment by booking number.
// Returns nil if no payment exists for the booking.
func (r *PaymentRepository) GetByBookingNumber(ctx context.Context, bookingNumber string) (*domain.Payment, error) {
	query := `
		SELECT payment_number, booking_number, bus_number, num_seats, amount, status, payment_date
		FROM payments WHERE booking_number = $1
	`

	var payment domain.Payment
	err := r.q.QueryRowContext(ctx, query, bookingNumber).Scan(
		&payment.PaymentNumber,
		&payment.BookingNumber,
		&payment.BusNumber,
		&payment.NumSeats,
		&payment.Amount,
		&payment.Status,
		&payment.PaymentDate,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &payment, nil
}

// Update persists changes to an existing payment.
func (r *PaymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	query := `
		UPDATE payments
		SET amount = $1, status = $2, payment_date = $3
		WHERE payment_number = $4
	`

	result, err := r.q.ExecContext(ctx, query,
		payment.Amount,
		payment.Status,
		payment.PaymentDate,
		payment.PaymentNumber,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

var _ repository.PaymentRepository = (*PaymentRepository)(nil)
