package nft

import (
	"errors"
	"testing"
)

func TestTransferByOwner(t *testing.T) {
	engine, _ := newTestEngine(t)
	if err := mintTo(engine, "alice"); err != nil {
		t.Fatalf("mint: %v", err)
	}

	prev, err := engine.Transfer(CallContext{Caller: "alice"}, "bob", 0, nil, "gift")
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if prev != "alice" {
		t.Fatalf("expected previous owner alice, got %s", prev)
	}

	token, ok, err := engine.Token(0)
	if err != nil || !ok {
		t.Fatalf("token after transfer: ok=%v err=%v", ok, err)
	}
	if token.Owner != "bob" {
		t.Fatalf("expected owner bob, got %s", token.Owner)
	}

	if _, known, err := engine.TokensForOwner("alice", 0, 0); err != nil {
		t.Fatalf("tokens for alice: %v", err)
	} else if known {
		t.Fatalf("expected alice's empty token set to be dropped")
	}
}

func TestTransferErrorTaxonomy(t *testing.T) {
	engine, _ := newTestEngine(t)
	if err := mintTo(engine, "alice"); err != nil {
		t.Fatalf("mint: %v", err)
	}

	if _, err := engine.Transfer(CallContext{Caller: "alice"}, "bob", 42, nil, ""); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
	if _, err := engine.Transfer(CallContext{Caller: "alice"}, "alice", 0, nil, ""); !errors.Is(err, ErrSameOwner) {
		t.Fatalf("expected ErrSameOwner, got %v", err)
	}
	if _, err := engine.Transfer(CallContext{Caller: "mallory"}, "bob", 0, nil, ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	// Nothing above may have moved the token.
	token, _, err := engine.Token(0)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if token.Owner != "alice" {
		t.Fatalf("failed transfers must not mutate state, owner is %s", token.Owner)
	}
}

func TestTransferByDelegate(t *testing.T) {
	engine, _ := newTestEngine(t)
	if err := mintTo(engine, "alice"); err != nil {
		t.Fatalf("mint: %v", err)
	}
	id, err := engine.Approve(CallContext{Caller: "alice"}, 0, "bob")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if id != 1 {
		t.Fatalf("expected first approval id 1, got %d", id)
	}

	prev, err := engine.Transfer(CallContext{Caller: "bob"}, "carol", 0, &id, "")
	if err != nil {
		t.Fatalf("delegate transfer: %v", err)
	}
	if prev != "alice" {
		t.Fatalf("expected previous owner alice, got %s", prev)
	}

	token, _, err := engine.Token(0)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if token.Owner != "carol" {
		t.Fatalf("expected owner carol, got %s", token.Owner)
	}

	ok, err := engine.IsApproved(0, "bob", nil)
	if err != nil {
		t.Fatalf("is approved: %v", err)
	}
	if ok {
		t.Fatalf("transfer must clear the approval record")
	}
}

func TestTransferApprovalMismatch(t *testing.T) {
	engine, _ := newTestEngine(t)
	if err := mintTo(engine, "alice"); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := engine.Approve(CallContext{Caller: "alice"}, 0, "bob"); err != nil {
		t.Fatalf("approve: %v", err)
	}

	stale := uint64(2)
	if _, err := engine.Transfer(CallContext{Caller: "bob"}, "carol", 0, &stale, ""); !errors.Is(err, ErrApprovalMismatch) {
		t.Fatalf("expected ErrApprovalMismatch, got %v", err)
	}

	// The stale attempt must not consume the approval.
	ok, err := engine.IsApproved(0, "bob", nil)
	if err != nil {
		t.Fatalf("is approved: %v", err)
	}
	if !ok {
		t.Fatalf("failed transfer must leave the approval in place")
	}
}

func TestTransferClearsWholeApprovalRecord(t *testing.T) {
	engine, _ := newTestEngine(t)
	if err := mintTo(engine, "alice"); err != nil {
		t.Fatalf("mint: %v", err)
	}
	ctx := CallContext{Caller: "alice"}
	if _, err := engine.Approve(ctx, 0, "bob"); err != nil {
		t.Fatalf("approve bob: %v", err)
	}
	if _, err := engine.Approve(ctx, 0, "carol"); err != nil {
		t.Fatalf("approve carol: %v", err)
	}

	if _, err := engine.Transfer(ctx, "dave", 0, nil, ""); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	for _, delegate := range []string{"bob", "carol"} {
		ok, err := engine.IsApproved(0, delegate, nil)
		if err != nil {
			t.Fatalf("is approved %s: %v", delegate, err)
		}
		if ok {
			t.Fatalf("approval for %s must not survive a transfer", delegate)
		}
	}

	// The per-token counter survives the cleared record.
	id, err := engine.Approve(CallContext{Caller: "dave"}, 0, "erin")
	if err != nil {
		t.Fatalf("approve after transfer: %v", err)
	}
	if id != 3 {
		t.Fatalf("expected approval id 3 after two earlier grants, got %d", id)
	}
}

func TestDelegateTransferWithoutApprovalsSupport(t *testing.T) {
	engine, _ := newTestEngine(t)
	if err := mintTo(engine, "alice"); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := engine.Approve(CallContext{Caller: "alice"}, 0, "bob"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	engine.SetApprovalsEnabled(false)

	if _, err := engine.Transfer(CallContext{Caller: "bob"}, "carol", 0, nil, ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized with approvals disabled, got %v", err)
	}
}
