package services

import (
	"sync"

	"github.com/finvox/tuneloop/internal/ports"
)

// TuningProgressPublisher manages subscriptions and publishing of tuning
// progress events. It separates the pub/sub plumbing from the loop itself.
type TuningProgressPublisher struct {
	channels map[string][]chan ports.TuningProgressEvent
	mu       sync.RWMutex

	// Optional broadcaster for WebSocket delivery
	wsBroadcaster ports.TuningProgressBroadcaster
}

// Compile-time interface check
var _ ports.TuningProgressPublisher = (*TuningProgressPublisher)(nil)

// NewTuningProgressPublisher creates a new progress publisher. Pass nil for
// wsBroadcaster when WebSocket broadcasting is not needed.
func NewTuningProgressPublisher(wsBroadcaster ports.TuningProgressBroadcaster) *TuningProgressPublisher {
	return &TuningProgressPublisher{
		channels:      make(map[string][]chan ports.TuningProgressEvent),
		wsBroadcaster: wsBroadcaster,
	}
}

// Subscribe creates a new channel for receiving progress events for a run.
// The returned channel is buffered to prevent blocking the publisher.
func (p *TuningProgressPublisher) Subscribe(runID string) <-chan ports.TuningProgressEvent {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch := make(chan ports.TuningProgressEvent, 100)
	p.channels[runID] = append(p.channels[runID], ch)
	return ch
}

// Unsubscribe removes a channel from receiving progress events and closes it.
func (p *TuningProgressPublisher) Unsubscribe(runID string, ch <-chan ports.TuningProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	channels := p.channels[runID]
	for i, subscriberCh := range channels {
		if subscriberCh == ch {
			p.channels[runID] = append(channels[:i], channels[i+1:]...)
			close(subscriberCh)
			break
		}
	}

	if len(p.channels[runID]) == 0 {
		delete(p.channels, runID)
	}
}

// Publish sends a progress event to all subscribers and broadcasts it via
// WebSocket. Publishing is non-blocking; if a subscriber's buffer is full the
// event is dropped for that subscriber.
func (p *TuningProgressPublisher) Publish(event ports.TuningProgressEvent) {
	if p.wsBroadcaster != nil {
		p.wsBroadcaster.BroadcastTuningProgress(event.RunID, event)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, ch := range p.channels[event.RunID] {
		select {
		case ch <- event:
		default:
			// Buffer full, skip this update so one slow consumer
			// cannot affect the others.
		}
	}
}

// Close closes all channels for a run once it reaches a terminal state.
func (p *TuningProgressPublisher) Close(runID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, ch := range p.channels[runID] {
		close(ch)
	}
	delete(p.channels, runID)
}

// SubscriberCount returns the number of active subscribers for a run.
func (p *TuningProgressPublisher) SubscriberCount(runID string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.channels[runID])
}
