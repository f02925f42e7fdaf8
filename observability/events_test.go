package observability

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"nftledger/core/events"
)

type captureEmitter struct {
	seen []events.Event
}

func (c *captureEmitter) Emit(e events.Event) {
	c.seen = append(c.seen, e)
}

func TestLogEmitterRendersAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	next := &captureEmitter{}
	emitter := LogEmitter(logger, next)

	emitter.Emit(events.NFTMinted{TokenID: 7, Owner: "alice"})

	line := buf.String()
	for _, want := range []string{events.TypeNFTMinted, `"tokenId":"7"`, `"owner":"alice"`} {
		if !strings.Contains(line, want) {
			t.Fatalf("log line missing %q: %s", want, line)
		}
	}
	if len(next.seen) != 1 {
		t.Fatalf("event must still reach the downstream emitter, saw %d", len(next.seen))
	}
}

func TestLogEmitterRendersResolutionReason(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	emitter := LogEmitter(logger, nil)

	emitter.Emit(events.NFTTransferCallResolved{
		CallID:   "call-1",
		TokenID:  2,
		Receiver: "bob",
		Outcome:  events.ResolutionReverted,
		Reason:   "rejected",
	})

	line := buf.String()
	for _, want := range []string{events.TypeNFTTransferCallResolved, `"outcome":"reverted"`, `"reason":"rejected"`} {
		if !strings.Contains(line, want) {
			t.Fatalf("log line missing %q: %s", want, line)
		}
	}
}
