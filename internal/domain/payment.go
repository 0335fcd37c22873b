package domain

import "time"

// PaymentStatus represents the current status of a payment.
type PaymentStatus string

const (
	PaymentStatusSettled  PaymentStatus = "SETTLED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// Payment represents a settled (or refunded) payment for a booking.
// PaymentNumber is assigned exactly once by the processor and is the
// primary key; BookingNumber is unique across all payments and forms
// the idempotency boundary for redelivered events.
type Payment struct {
	PaymentNumber string        `json:"paymentNumber"`
	BookingNumber string        `json:"bookingNumber"`
	BusNumber     string        `json:"busNumber"`
	NumSeats      int           `json:"numSeats"`
	Amount        float64       `json:"amount"`
	Status        PaymentStatus `json:"status"`
	PaymentDate   time.Time     `json:"paymentDate"`
}
