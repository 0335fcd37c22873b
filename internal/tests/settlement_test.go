package tests

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"payments/internal/config"
	"payments/internal/domain"
	"payments/internal/repository"
	"payments/internal/service"
)

func newTestBreaker() *service.CircuitBreaker {
	return service.NewCircuitBreaker(config.BreakerConfig{
		FailureRateThreshold: 0.5,
		MinCalls:             5,
		WindowSize:           10,
		CoolDown:             time.Minute,
	})
}

func newSettlementFixture() (*MockPaymentRepository, *RecordingBus, *ScriptGateway, *service.PaymentService) {
	repo := NewMockPaymentRepository()
	bus := NewRecordingBus()
	gateway := NewScriptGateway()
	svc := service.NewPaymentService(repo, bus, gateway, newTestBreaker())
	return repo, bus, gateway, svc
}

func TestSettlement_PersistsAndEmitsCompleted(t *testing.T) {
	ctx := context.Background()
	repo, bus, _, svc := newSettlementFixture()

	payload := []byte(`{"bookingNumber":"B100","busNumber":"BUS-7","numberOfSeats":2,"pricePerSeat":20.0}`)
	if err := svc.HandleBookingCreated(ctx, payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	payment := repo.GetPayment("B100")
	if payment == nil {
		t.Fatal("expected payment to be persisted")
	}
	if payment.PaymentNumber == "" {
		t.Error("expected payment number to be assigned")
	}
	if payment.Status != domain.PaymentStatusSettled {
		t.Errorf("expected status SETTLED, got %s", payment.Status)
	}
	if payment.Amount != 40.0 {
		t.Errorf("expected amount 40.0, got %v", payment.Amount)
	}
	if bus.Count(domain.TopicPaymentCompleted) != 1 {
		t.Errorf("expected 1 payment.completed event, got %d", bus.Count(domain.TopicPaymentCompleted))
	}

	var emitted domain.Payment
	if err := json.Unmarshal(bus.EventsFor(domain.TopicPaymentCompleted)[0], &emitted); err != nil {
		t.Fatalf("failed to decode emitted payment: %v", err)
	}
	if emitted.BookingNumber != "B100" || emitted.Amount != 40.0 {
		t.Errorf("emitted payment does not match persisted record: %+v", emitted)
	}
}

func TestSettlement_IdempotentUnderRedelivery(t *testing.T) {
	ctx := context.Background()
	repo, bus, _, svc := newSettlementFixture()

	payload := []byte(`{"bookingNumber":"B101","numberOfSeats":3,"pricePerSeat":25.0}`)
	for i := 0; i < 5; i++ {
		if err := svc.HandleBookingCreated(ctx, payload); err != nil {
			t.Fatalf("delivery %d returned error: %v", i, err)
		}
	}

	if repo.CountPayments() != 1 {
		t.Errorf("expected exactly 1 payment, got %d", repo.CountPayments())
	}
	if bus.Total() != 1 {
		t.Errorf("expected exactly 1 outbound event, got %d", bus.Total())
	}
	if bus.Count(domain.TopicPaymentCompleted) != 1 {
		t.Errorf("expected exactly 1 payment.completed event, got %d", bus.Count(domain.TopicPaymentCompleted))
	}
}

func TestSettlement_UniqueConstraintBackstop(t *testing.T) {
	// Two concurrent redeliveries can both pass the existence check. The
	// loser's insert hits the unique constraint and must degrade to the same
	// silent no-op as the read check.
	ctx := context.Background()
	repo, bus, _, svc := newSettlementFixture()
	repo.CreateError = repository.ErrDuplicateBooking

	payload := []byte(`{"bookingNumber":"B102","numberOfSeats":1,"pricePerSeat":10.0}`)
	if err := svc.HandleBookingCreated(ctx, payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if bus.Total() != 0 {
		t.Errorf("expected no outbound events, got %d", bus.Total())
	}
}

func TestSettlement_AmountDerivation(t *testing.T) {
	ctx := context.Background()
	repo, _, _, svc := newSettlementFixture()

	payload := []byte(`{"bookingNumber":"B103","numberOfSeats":3,"pricePerSeat":25.0}`)
	if err := svc.HandleBookingCreated(ctx, payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	payment := repo.GetPayment("B103")
	if payment == nil {
		t.Fatal("expected payment to be persisted")
	}
	if payment.Amount != 75.0 {
		t.Errorf("expected derived amount 75.0, got %v", payment.Amount)
	}
}

func TestSettlement_PresetAmountWins(t *testing.T) {
	ctx := context.Background()
	repo, _, _, svc := newSettlementFixture()

	payload := []byte(`{"bookingNumber":"B104","numberOfSeats":3,"pricePerSeat":10.0,"amount":99.0}`)
	if err := svc.HandleBookingCreated(ctx, payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	payment := repo.GetPayment("B104")
	if payment == nil {
		t.Fatal("expected payment to be persisted")
	}
	if payment.Amount != 99.0 {
		t.Errorf("expected preset amount 99.0 to win, got %v", payment.Amount)
	}
}

func TestSettlement_DefaultSeatCount(t *testing.T) {
	ctx := context.Background()
	repo, _, _, svc := newSettlementFixture()

	payload := []byte(`{"bookingNumber":"B105","pricePerSeat":30.0}`)
	if err := svc.HandleBookingCreated(ctx, payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	payment := repo.GetPayment("B105")
	if payment == nil {
		t.Fatal("expected payment to be persisted")
	}
	if payment.NumSeats != 1 {
		t.Errorf("expected default seat count 1, got %d", payment.NumSeats)
	}
	if payment.Amount != 30.0 {
		t.Errorf("expected amount 30.0, got %v", payment.Amount)
	}
}

func TestSettlement_GatewayDecline(t *testing.T) {
	ctx := context.Background()
	repo, bus, gateway, svc := newSettlementFixture()
	gateway.Result = false

	payload := []byte(`{"bookingNumber":"B1","numberOfSeats":2,"pricePerSeat":15.0}`)
	if err := svc.HandleBookingCreated(ctx, payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if repo.CountPayments() != 0 {
		t.Errorf("expected no payment persisted, got %d", repo.CountPayments())
	}
	if bus.Count(domain.TopicBookingFailed) != 1 {
		t.Fatalf("expected exactly 1 booking.failed event, got %d", bus.Count(domain.TopicBookingFailed))
	}

	var failed domain.BookingFailedEvent
	if err := json.Unmarshal(bus.EventsFor(domain.TopicBookingFailed)[0], &failed); err != nil {
		t.Fatalf("failed to decode booking.failed: %v", err)
	}
	if failed.BookingNumber != "B1" {
		t.Errorf("expected bookingNumber B1, got %s", failed.BookingNumber)
	}
	if failed.Reason != "Payment processing failed" {
		t.Errorf("unexpected reason: %s", failed.Reason)
	}
}

func TestSettlement_UndecodablePayloadIsDropped(t *testing.T) {
	ctx := context.Background()
	repo, bus, _, svc := newSettlementFixture()

	if err := svc.HandleBookingCreated(ctx, []byte("not json")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if repo.CountPayments() != 0 || bus.Total() != 0 {
		t.Error("expected undecodable payload to be a no-op")
	}
}
