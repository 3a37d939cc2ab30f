package events

import "context"

// Sink receives emitted events. Grounded on the teacher's EventSink
// interface (internal/agent/event_sink.go) and its NopSink zero-value
// default.
type Sink interface {
	Emit(ctx context.Context, e Event)
}

// NopSink discards all events. Useful as a default when no consumer is
// wired, matching the teacher's NewEventEmitter(nil) fallback.
type NopSink struct{}

func (NopSink) Emit(context.Context, Event) {}

// ChannelSink forwards events to a buffered Go channel, backing the lazy
// event sequence described in spec §4.8. The buffer is bounded: once it
// holds its full depth of undrained events, Emit blocks the producer until
// a consumer reads or the producer's ctx is cancelled.
type ChannelSink struct {
	ch chan Event
}

// NewChannelSink creates a ChannelSink with the given buffer depth.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 64
	}
	return &ChannelSink{ch: make(chan Event, buffer)}
}

// Emit sends e to the channel, blocking if the buffer is full and ctx is
// not yet cancelled.
func (s *ChannelSink) Emit(ctx context.Context, e Event) {
	select {
	case s.ch <- e:
	case <-ctx.Done():
	}
}

// Events returns the receive-only channel callers consume.
func (s *ChannelSink) Events() <-chan Event {
	return s.ch
}

// Close closes the underlying channel. Must only be called by the
// producer once it has stopped emitting.
func (s *ChannelSink) Close() {
	close(s.ch)
}

// MultiSink fans out each event to every wrapped sink in order.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink builds a MultiSink from the given sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) Emit(ctx context.Context, e Event) {
	for _, s := range m.sinks {
		s.Emit(ctx, e)
	}
}
