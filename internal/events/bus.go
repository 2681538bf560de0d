package events

import (
	"github.com/kelindar/event"
)

// Bus fans run events out to in-process subscribers over a kelindar/event
// dispatcher. Delivery is asynchronous; each subscriber receives events on
// its own goroutine in publish order.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates an event bus.
func New() *Bus {
	return &Bus{dispatcher: event.NewDispatcher()}
}

// Publish delivers ev to every current subscriber.
func (b *Bus) Publish(ev RunEvent) {
	event.Publish(b.dispatcher, ev)
}

// Subscribe registers handler and returns the function that removes it.
// Events published after unsubscribing are not delivered.
func (b *Bus) Subscribe(handler func(RunEvent)) (unsubscribe func()) {
	return event.Subscribe(b.dispatcher, handler)
}
