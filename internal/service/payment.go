package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"payments/internal/domain"
	"payments/internal/repository"
)

// EventBus is the interface the processor publishes outbound events through.
type EventBus interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// PaymentService is the event-processing core: it settles payments for
// created bookings and refunds them on cancellation.
type PaymentService struct {
	paymentRepo repository.PaymentRepository
	bus         EventBus
	gateway     Gateway
	breaker     *CircuitBreaker
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(paymentRepo repository.PaymentRepository, bus EventBus, gateway Gateway, breaker *CircuitBreaker) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		bus:         bus,
		gateway:     gateway,
		breaker:     breaker,
	}
}

// HandleBookingCreated consumes a booking.created payload and settles the
// payment. Every inbound event produces at most one persisted payment and
// exactly one terminal outcome: a payment.completed event, a booking.failed
// event, or a silent no-op for a duplicate redelivery. Errors inside the
// settlement are routed through the circuit breaker to the fallback; the
// delivery is acknowledged unless the fallback cannot publish its event, in
// which case the error propagates so the transport redelivers.
func (s *PaymentService) HandleBookingCreated(ctx context.Context, payload []byte) error {
	event, err := domain.DecodeBookingCreated(payload)
	if err != nil {
		log.Printf("Dropping undecodable booking.created event: %v", err)
		return nil
	}

	log.Printf("Processing payment for booking %s", event.BookingNumber)

	err = s.breaker.Execute(ctx, func(ctx context.Context) error {
		return s.settle(ctx, event)
	})
	if err != nil {
		return s.settlementFallback(ctx, event, err)
	}

	return nil
}

// settle runs the gateway-dependent settlement steps under the breaker.
func (s *PaymentService) settle(ctx context.Context, event domain.BookingCreatedEvent) error {
	existing, err := s.paymentRepo.GetByBookingNumber(ctx, event.BookingNumber)
	if err != nil {
		return err
	}
	if existing != nil {
		log.Printf("Payment already processed for booking %s", event.BookingNumber)
		return nil
	}

	payment := &domain.Payment{
		PaymentNumber: uuid.New().String(),
		BookingNumber: event.BookingNumber,
		BusNumber:     event.BusNumber,
		NumSeats:      event.NumSeats,
		Amount:        event.Amount,
		Status:        domain.PaymentStatusSettled,
		PaymentDate:   time.Now(),
	}

	success, err := s.gateway.Charge(ctx, event)
	if err != nil {
		return err
	}

	if !success {
		log.Printf("Payment failed for booking %s", event.BookingNumber)
		return s.publishBookingFailed(ctx, event.BookingNumber, "Payment processing failed")
	}

	if payment.Amount <= 0 {
		payment.Amount = float64(payment.NumSeats) * event.PricePerSeat
	}

	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		if errors.Is(err, repository.ErrDuplicateBooking) {
			// A concurrent redelivery won the insert race; this one is a no-op.
			log.Printf("Payment already processed for booking %s", event.BookingNumber)
			return nil
		}
		return err
	}

	if err := s.publish(ctx, domain.TopicPaymentCompleted, payment); err != nil {
		return err
	}

	log.Printf("Payment processed successfully for booking %s with amount %.2f", event.BookingNumber, payment.Amount)
	return nil
}

// settlementFallback emits the terminal booking.failed event when the
// settlement threw or was short-circuited by the open breaker. A failed
// publish is returned to the caller: the inbound event must not be
// acknowledged until its one terminal event is out.
func (s *PaymentService) settlementFallback(ctx context.Context, event domain.BookingCreatedEvent, cause error) error {
	bookingNumber := event.BookingNumber
	if bookingNumber == "" {
		bookingNumber = "UNKNOWN"
	}

	log.Printf("Payment service fallback triggered for booking %s: %v", bookingNumber, cause)

	err := s.publishBookingFailed(ctx, bookingNumber, "Payment service unavailable: "+cause.Error())
	if err != nil {
		log.Printf("Failed to publish booking.failed for booking %s: %v", bookingNumber, err)
		return err
	}

	log.Printf("Published booking.failed event for booking %s", bookingNumber)
	return nil
}

// HandleRefundRequest consumes a booking.cancellation.requested payload and
// reverses the settled payment. Refunds have no breaker and no fallback
// event; failures are logged and swallowed.
func (s *PaymentService) HandleRefundRequest(ctx context.Context, payload []byte) error {
	event, err := domain.DecodeCancellationRequested(payload)
	if err != nil {
		log.Printf("Dropping undecodable cancellation request: %v", err)
		return nil
	}

	if event.BookingNumber == "" {
		log.Printf("No bookingNumber in cancellation request, skipping refund.")
		return nil
	}

	payment, err := s.paymentRepo.GetByBookingNumber(ctx, event.BookingNumber)
	if err != nil {
		log.Printf("Error processing refund for booking %s: %v", event.BookingNumber, err)
		return nil
	}
	if payment == nil {
		log.Printf("No payment found for booking %s, skipping refund.", event.BookingNumber)
		return nil
	}

	payment.Amount = 0
	payment.Status = domain.PaymentStatusRefunded
	payment.PaymentDate = time.Now()

	if err := s.paymentRepo.Update(ctx, payment); err != nil {
		log.Printf("Error processing refund for booking %s: %v", event.BookingNumber, err)
		return nil
	}

	if err := s.publish(ctx, domain.TopicPaymentRefunded, payment); err != nil {
		log.Printf("Error processing refund for booking %s: %v", event.BookingNumber, err)
		return nil
	}

	log.Printf("Refund processed for booking %s", event.BookingNumber)
	return nil
}

// GetPayment retrieves a payment by payment number.
func (s *PaymentService) GetPayment(ctx context.Context, paymentNumber string) (*domain.Payment, error) {
	if paymentNumber == "" {
		return nil, ErrInvalidPaymentID
	}

	return s.paymentRepo.GetByID(ctx, paymentNumber)
}

func (s *PaymentService) publishBookingFailed(ctx context.Context, bookingNumber, reason string) error {
	return s.publish(ctx, domain.TopicBookingFailed, domain.BookingFailedEvent{
		BookingNumber: bookingNumber,
		Reason:        reason,
	})
}

func (s *PaymentService) publish(ctx context.Context, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.bus.Publish(ctx, topic, data)
}
