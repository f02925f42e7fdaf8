package observability

import (
	"log/slog"

	"nftledger/core/events"
	"nftledger/core/types"
)

// attributed is satisfied by ledger events that can render themselves into the
// flat attribute-map form used for structured output.
type attributed interface {
	Event() *types.Event
}

// LogEmitter returns an emitter that writes every ledger event as a structured
// log line before forwarding it. Events are rendered through their attribute
// map; a nil next emitter discards them after logging.
func LogEmitter(logger *slog.Logger, next events.Emitter) events.Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	if next == nil {
		next = events.NoopEmitter{}
	}
	return &loggingEmitter{logger: logger, next: next}
}

type loggingEmitter struct {
	logger *slog.Logger
	next   events.Emitter
}

func (l *loggingEmitter) Emit(event events.Event) {
	if a, ok := event.(attributed); ok {
		if rendered := a.Event(); rendered != nil {
			attrs := make([]any, 0, len(rendered.Attributes))
			for key, value := range rendered.Attributes {
				attrs = append(attrs, slog.String(key, value))
			}
			l.logger.Info(rendered.Type, attrs...)
		}
	} else {
		l.logger.Info(event.EventType())
	}
	l.next.Emit(event)
}
