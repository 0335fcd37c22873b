package redis

import "context"

// BusInterface defines the interface for the event channel.
type BusInterface interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(topic string, handler Handler)
	Start(ctx context.Context) error
	Stop()
}

// Ensure concrete types implement interfaces.
var _ BusInterface = (*StreamBus)(nil)
