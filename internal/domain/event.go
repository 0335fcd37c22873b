package domain

import "encoding/json"

// Event topics consumed and published by the payment service.
const (
	TopicBookingCreated        = "booking.created"
	TopicCancellationRequested = "booking.cancellation.requested"
	TopicPaymentCompleted      = "payment.completed"
	TopicBookingFailed         = "booking.failed"
	TopicPaymentRefunded       = "payment.refunded"
)

// BookingCreatedEvent is the inbound envelope that triggers settlement.
// Numeric fields are coerced at decode time: upstream producers are not
// trusted to send well-typed values, so anything non-numeric degrades to
// a default instead of failing the whole event.
type BookingCreatedEvent struct {
	BookingNumber string
	BusNumber     string
	NumSeats      int
	PricePerSeat  float64
	Amount        float64
}

// CancellationRequestedEvent is the inbound envelope that triggers a refund.
type CancellationRequestedEvent struct {
	BookingNumber string
}

// BookingFailedEvent is published when settlement cannot complete.
type BookingFailedEvent struct {
	BookingNumber string `json:"bookingNumber"`
	Reason        string `json:"reason"`
}

// DecodeBookingCreated decodes a raw booking.created payload.
// Missing or non-numeric numberOfSeats defaults to 1; pricePerSeat and
// amount default to 0.
func DecodeBookingCreated(data []byte) (BookingCreatedEvent, error) {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return BookingCreatedEvent{}, err
	}

	return BookingCreatedEvent{
		BookingNumber: asString(fields["bookingNumber"]),
		BusNumber:     asString(fields["busNumber"]),
		NumSeats:      asInt(fields["numberOfSeats"], 1),
		PricePerSeat:  asFloat(fields["pricePerSeat"], 0),
		Amount:        asFloat(fields["amount"], 0),
	}, nil
}

// DecodeCancellationRequested decodes a raw booking.cancellation.requested payload.
func DecodeCancellationRequested(data []byte) (CancellationRequestedEvent, error) {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return CancellationRequestedEvent{}, err
	}

	return CancellationRequestedEvent{
		BookingNumber: asString(fields["bookingNumber"]),
	}, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt(v any, def int) int {
	if f, ok := v.(float64); ok {
		return int(f)
	}
	return def
}

func asFloat(v any, def float64) float64 {
	if f, ok := v.(float64); ok {
		return f
	}
	return def
}
