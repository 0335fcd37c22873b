package service

import (
	"context"

	"payments/internal/domain"
)

// Gateway is the interface for a payment settlement gateway.
// A false result is a clean decline, not an error.
type Gateway interface {
	Charge(ctx context.Context, event domain.BookingCreatedEvent) (bool, error)
}

// MockGateway is a mock implementation of Gateway.
type MockGateway struct{}

// NewMockGateway creates a new mock gateway.
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

// Charge simulates a settlement call. Always succeeds.
func (g *MockGateway) Charge(ctx context.Context, event domain.BookingCreatedEvent) (bool, error) {
	// Mock implementation: always succeeds.
	return true, nil
}
