package tests

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"payments/internal/domain"
)

func TestRefund_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo, bus, _, svc := newSettlementFixture()

	created := []byte(`{"bookingNumber":"B3","numberOfSeats":2,"pricePerSeat":25.0}`)
	if err := svc.HandleBookingCreated(ctx, created); err != nil {
		t.Fatalf("settlement failed: %v", err)
	}
	if got := repo.GetPayment("B3").Amount; got != 50.0 {
		t.Fatalf("expected settled amount 50.0, got %v", got)
	}

	cancel := []byte(`{"bookingNumber":"B3"}`)
	if err := svc.HandleRefundRequest(ctx, cancel); err != nil {
		t.Fatalf("refund failed: %v", err)
	}

	payment := repo.GetPayment("B3")
	if payment.Amount != 0 {
		t.Errorf("expected amount zeroed, got %v", payment.Amount)
	}
	if payment.Status != domain.PaymentStatusRefunded {
		t.Errorf("expected status REFUNDED, got %s", payment.Status)
	}
	if bus.Count(domain.TopicPaymentRefunded) != 1 {
		t.Fatalf("expected 1 payment.refunded event, got %d", bus.Count(domain.TopicPaymentRefunded))
	}

	var emitted domain.Payment
	if err := json.Unmarshal(bus.EventsFor(domain.TopicPaymentRefunded)[0], &emitted); err != nil {
		t.Fatalf("failed to decode payment.refunded: %v", err)
	}
	if emitted.BookingNumber != "B3" || emitted.Amount != 0 {
		t.Errorf("unexpected refunded record: %+v", emitted)
	}
}

func TestRefund_ReplayRepeatsRefund(t *testing.T) {
	// Refund is deliberately not idempotent: a redelivered cancellation
	// re-zeroes the payment and re-emits payment.refunded.
	ctx := context.Background()
	repo, bus, _, svc := newSettlementFixture()

	_ = svc.HandleBookingCreated(ctx, []byte(`{"bookingNumber":"B4","numberOfSeats":1,"pricePerSeat":40.0}`))

	cancel := []byte(`{"bookingNumber":"B4"}`)
	_ = svc.HandleRefundRequest(ctx, cancel)
	_ = svc.HandleRefundRequest(ctx, cancel)

	if repo.GetPayment("B4").Amount != 0 {
		t.Error("expected amount to remain zero")
	}
	if bus.Count(domain.TopicPaymentRefunded) != 2 {
		t.Errorf("expected 2 payment.refunded events on replay, got %d", bus.Count(domain.TopicPaymentRefunded))
	}
}

func TestRefund_UnknownBookingIsNoOp(t *testing.T) {
	ctx := context.Background()
	_, bus, _, svc := newSettlementFixture()

	if err := svc.HandleRefundRequest(ctx, []byte(`{"bookingNumber":"NOPE"}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bus.Total() != 0 {
		t.Errorf("expected no events for unknown booking, got %d", bus.Total())
	}
}

func TestRefund_BlankBookingIsRejected(t *testing.T) {
	ctx := context.Background()
	repo, bus, _, svc := newSettlementFixture()

	if err := svc.HandleRefundRequest(ctx, []byte(`{}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bus.Total() != 0 || repo.CountPayments() != 0 {
		t.Error("expected blank booking number to be a no-op")
	}
}

func TestRefund_ErrorsAreSwallowed(t *testing.T) {
	ctx := context.Background()
	repo, bus, _, svc := newSettlementFixture()

	_ = svc.HandleBookingCreated(ctx, []byte(`{"bookingNumber":"B5","numberOfSeats":1,"pricePerSeat":10.0}`))
	settledEvents := bus.Total()

	repo.UpdateError = errors.New("store unavailable")
	if err := svc.HandleRefundRequest(ctx, []byte(`{"bookingNumber":"B5"}`)); err != nil {
		t.Fatalf("expected refund error to be swallowed, got %v", err)
	}

	if bus.Total() != settledEvents {
		t.Errorf("expected no outbound events on refund failure, got %d new", bus.Total()-settledEvents)
	}
	if repo.GetPayment("B5").Amount == 0 {
		t.Error("expected stored amount untouched when update fails")
	}
}
