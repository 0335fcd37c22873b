package tests

import (
	"context"
	"sync"
	"sync/atomic"

	"payments/internal/domain"
	"payments/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK PAYMENT REPOSITORY
// ──────────────────────────────────────────────

// MockPaymentRepository is a mock implementation of PaymentRepository.
type MockPaymentRepository struct {
	mu          sync.RWMutex
	payments    map[string]*domain.Payment // by payment number
	byBookingNo map[string]string          // booking number -> payment number

	// Counters for verification
	CreateCallCount int32
	UpdateCallCount int32

	// Error injection
	CreateError error
	UpdateError error
	LookupError error
}

// NewMockPaymentRepository creates a new mock payment repository.
func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{
		payments:    make(map[string]*domain.Payment),
		byBookingNo: make(map[string]string),
	}
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	// The real store enforces a unique constraint on booking number.
	if _, ok := m.byBookingNo[payment.BookingNumber]; ok {
		return repository.ErrDuplicateBooking
	}
	copy := *payment
	m.payments[payment.PaymentNumber] = &copy
	m.byBookingNo[payment.BookingNumber] = payment.PaymentNumber
	return nil
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, paymentNumber string) (*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	payment, ok := m.payments[paymentNumber]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *payment
	return &copy, nil
}

func (m *MockPaymentRepository) GetByBookingNumber(ctx context.Context, bookingNumber string) (*domain.Payment, error) {
	if m.LookupError != nil {
		return nil, m.LookupError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byBookingNo[bookingNumber]
	if !ok {
		return nil, nil
	}
	copy := *m.payments[id]
	return &copy, nil
}

func (m *MockPaymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.payments[payment.PaymentNumber]; !ok {
		return repository.ErrNotFound
	}
	copy := *payment
	m.payments[payment.PaymentNumber] = &copy
	return nil
}

// GetPayment returns the payment for a booking (for test assertions).
func (m *MockPaymentRepository) GetPayment(bookingNumber string) *domain.Payment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byBookingNo[bookingNumber]
	if !ok {
		return nil
	}
	return m.payments[id]
}

// CountPayments returns the number of stored payments.
func (m *MockPaymentRepository) CountPayments() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.payments)
}

var _ repository.PaymentRepository = (*MockPaymentRepository)(nil)

// ──────────────────────────────────────────────
// RECORDING EVENT BUS
// ──────────────────────────────────────────────

// PublishedEvent is one event captured by the RecordingBus.
type PublishedEvent struct {
	Topic   string
	Payload []byte
}

// RecordingBus is a mock event bus that records published events.
type RecordingBus struct {
	mu     sync.Mutex
	events []PublishedEvent

	// Error injection
	PublishError error
}

// NewRecordingBus creates a new recording bus.
func NewRecordingBus() *RecordingBus {
	return &RecordingBus{}
}

func (b *RecordingBus) Publish(ctx context.Context, topic string, payload []byte) error {
	if b.PublishError != nil {
		return b.PublishError
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, PublishedEvent{Topic: topic, Payload: payload})
	return nil
}

// EventsFor returns all payloads published to a topic.
func (b *RecordingBus) EventsFor(topic string) [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	var payloads [][]byte
	for _, e := range b.events {
		if e.Topic == topic {
			payloads = append(payloads, e.Payload)
		}
	}
	return payloads
}

// Count returns the number of events published to a topic.
func (b *RecordingBus) Count(topic string) int {
	return len(b.EventsFor(topic))
}

// Total returns the number of events published to any topic.
func (b *RecordingBus) Total() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// ──────────────────────────────────────────────
// SCRIPTABLE GATEWAY
// ──────────────────────────────────────────────

// ScriptGateway is a gateway whose outcome is set by the test.
type ScriptGateway struct {
	// Result is returned when Err is nil.
	Result bool
	Err    error

	CallCount int32
}

// NewScriptGateway creates a gateway that approves every charge.
func NewScriptGateway() *ScriptGateway {
	return &ScriptGateway{Result: true}
}

func (g *ScriptGateway) Charge(ctx context.Context, event domain.BookingCreatedEvent) (bool, error) {
	atomic.AddInt32(&g.CallCount, 1)
	if g.Err != nil {
		return false, g.Err
	}
	return g.Result, nil
}
