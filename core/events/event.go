package events

// Event is a structured record of a ledger state change.
type Event interface {
	EventType() string
}

// Emitter delivers events to whatever sits downstream, typically the
// metrics decorator or a test capture.
type Emitter interface {
	Emit(Event)
}

// NoopEmitter discards everything. It is the engine default so emitting
// is never conditional at call sites.
type NoopEmitter struct{}

func (NoopEmitter) Emit(Event) {}
