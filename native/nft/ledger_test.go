package nft

import (
	"errors"
	"testing"

	"nftledger/core/events"
	"nftledger/core/state"
	"nftledger/storage"
)

type capturingEmitter struct {
	events []events.Event
}

func (c *capturingEmitter) Emit(e events.Event) {
	c.events = append(c.events, e)
}

func (c *capturingEmitter) byType(eventType string) []events.Event {
	var out []events.Event
	for _, e := range c.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

func newTestEngine(t *testing.T) (*Engine, *state.Manager) {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	manager := state.NewManager(db)
	return NewEngine(manager), manager
}

func TestMintAssignsSequentialIDs(t *testing.T) {
	engine, _ := newTestEngine(t)

	for i := uint64(0); i < 5; i++ {
		token, err := engine.Mint("alice", TokenMetadata{Title: "t"})
		if err != nil {
			t.Fatalf("mint %d: %v", i, err)
		}
		if token.ID != i {
			t.Fatalf("expected id %d, got %d", i, token.ID)
		}
	}

	supply, err := engine.TotalSupply()
	if err != nil {
		t.Fatalf("total supply: %v", err)
	}
	if supply != 5 {
		t.Fatalf("expected supply 5, got %d", supply)
	}
}

func TestMintUpdatesOwnerIndex(t *testing.T) {
	engine, _ := newTestEngine(t)

	if _, err := engine.Mint("alice", TokenMetadata{}); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := engine.Mint("alice", TokenMetadata{}); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := engine.Mint("bob", TokenMetadata{}); err != nil {
		t.Fatalf("mint: %v", err)
	}

	count, err := engine.SupplyForOwner("alice")
	if err != nil {
		t.Fatalf("supply for owner: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected alice to hold 2 tokens, got %d", count)
	}

	tokens, known, err := engine.TokensForOwner("alice", 0, 0)
	if err != nil {
		t.Fatalf("tokens for owner: %v", err)
	}
	if !known {
		t.Fatalf("expected alice to be a known owner")
	}
	if len(tokens) != 2 || tokens[0].ID != 0 || tokens[1].ID != 1 {
		t.Fatalf("unexpected tokens for alice: %+v", tokens)
	}

	if _, known, err := engine.TokensForOwner("mallory", 0, 0); err != nil {
		t.Fatalf("tokens for unknown owner: %v", err)
	} else if known {
		t.Fatalf("expected unknown owner to report absent")
	}
}

func TestMintEmitsEvent(t *testing.T) {
	engine, _ := newTestEngine(t)
	emitter := &capturingEmitter{}
	engine.SetEmitter(emitter)

	if _, err := engine.Mint("alice", TokenMetadata{}); err != nil {
		t.Fatalf("mint: %v", err)
	}
	minted := emitter.byType(events.TypeNFTMinted)
	if len(minted) != 1 {
		t.Fatalf("expected one minted event, got %d", len(minted))
	}
}

func TestTokenLookup(t *testing.T) {
	engine, _ := newTestEngine(t)

	meta := TokenMetadata{Title: "artwork", Media: "ipfs://cid", MediaHash: []byte{1, 2, 3}}
	if _, err := engine.Mint("alice", meta); err != nil {
		t.Fatalf("mint: %v", err)
	}

	token, ok, err := engine.Token(0)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if !ok {
		t.Fatalf("expected token 0 to exist")
	}
	if token.Owner != "alice" || token.Metadata.Title != "artwork" || token.Metadata.Media != "ipfs://cid" {
		t.Fatalf("unexpected token: %+v", token)
	}

	if _, ok, err := engine.Token(99); err != nil {
		t.Fatalf("absent token: %v", err)
	} else if ok {
		t.Fatalf("expected token 99 to be absent")
	}
}

func TestTokensPagination(t *testing.T) {
	engine, _ := newTestEngine(t)
	for i := 0; i < 7; i++ {
		if _, err := engine.Mint("alice", TokenMetadata{}); err != nil {
			t.Fatalf("mint: %v", err)
		}
	}

	page, err := engine.Tokens(2, 3)
	if err != nil {
		t.Fatalf("tokens page: %v", err)
	}
	if len(page) != 3 || page[0].ID != 2 || page[2].ID != 4 {
		t.Fatalf("unexpected page: %+v", page)
	}

	tail, err := engine.Tokens(5, 10)
	if err != nil {
		t.Fatalf("tokens tail: %v", err)
	}
	if len(tail) != 2 {
		t.Fatalf("expected page clamped to remaining items, got %d", len(tail))
	}

	all, err := engine.Tokens(0, 0)
	if err != nil {
		t.Fatalf("tokens all: %v", err)
	}
	if len(all) != 7 {
		t.Fatalf("expected unlimited page to return everything, got %d", len(all))
	}

	empty, err := engine.Tokens(7, 0)
	if err != nil {
		t.Fatalf("tokens beyond supply: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty page past the end, got %d", len(empty))
	}
}

func TestContractMetadataSetOnce(t *testing.T) {
	engine, _ := newTestEngine(t)

	if _, err := engine.ContractMetadata(); !errors.Is(err, ErrMetadataNotFound) {
		t.Fatalf("expected ErrMetadataNotFound, got %v", err)
	}

	meta := ContractMetadata{Spec: "nft-1.0.0", Name: "Gallery", Symbol: "GAL"}
	if err := engine.InitContractMetadata(meta); err != nil {
		t.Fatalf("init metadata: %v", err)
	}
	if err := engine.InitContractMetadata(meta); !errors.Is(err, ErrMetadataInitialized) {
		t.Fatalf("expected ErrMetadataInitialized, got %v", err)
	}

	stored, err := engine.ContractMetadata()
	if err != nil {
		t.Fatalf("read metadata: %v", err)
	}
	if stored.Name != "Gallery" || stored.Symbol != "GAL" {
		t.Fatalf("unexpected metadata: %+v", stored)
	}
}

func TestOwnerIndexCorruptionIsFatal(t *testing.T) {
	engine, manager := newTestEngine(t)

	if _, err := engine.Mint("alice", TokenMetadata{}); err != nil {
		t.Fatalf("mint: %v", err)
	}
	// Break the inverse index behind the engine's back.
	if err := manager.KVDelete(ownerKey("alice")); err != nil {
		t.Fatalf("corrupt index: %v", err)
	}

	_, err := engine.Transfer(CallContext{Caller: "alice"}, "bob", 0, nil, "")
	if !errors.Is(err, ErrLedgerInvariant) {
		t.Fatalf("expected ErrLedgerInvariant, got %v", err)
	}
}
