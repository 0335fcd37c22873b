package tests

import (
	"context"
	"errors"
	"testing"

	"payments/internal/repository"
	"payments/internal/service"
)

func TestGetPayment_ByID(t *testing.T) {
	ctx := context.Background()
	repo, _, _, svc := newSettlementFixture()

	_ = svc.HandleBookingCreated(ctx, []byte(`{"bookingNumber":"B60","numberOfSeats":1,"pricePerSeat":20.0}`))
	stored := repo.GetPayment("B60")

	payment, err := svc.GetPayment(ctx, stored.PaymentNumber)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payment.BookingNumber != "B60" {
		t.Errorf("expected booking B60, got %s", payment.BookingNumber)
	}
}

func TestGetPayment_NotFound(t *testing.T) {
	ctx := context.Background()
	_, _, _, svc := newSettlementFixture()

	_, err := svc.GetPayment(ctx, "missing-id")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetPayment_BlankID(t *testing.T) {
	ctx := context.Background()
	_, _, _, svc := newSettlementFixture()

	_, err := svc.GetPayment(ctx, "")
	if !errors.Is(err, service.ErrInvalidPaymentID) {
		t.Errorf("expected ErrInvalidPaymentID, got %v", err)
	}
}
