package repository

import "errors"

var (
	// ErrNotFound is returned when a requested payment does not exist.
	ErrNotFound = errors.New("payment not found")

	// ErrDuplicateBooking is returned when a payment already exists for the
	// booking number. The unique constraint on booking_number raises this even
	// when two redeliveries pass the existence check concurrently.
	ErrDuplicateBooking = errors.New("payment already exists for booking")
)
