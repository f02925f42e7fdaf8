package state

import (
	"math/big"
	"testing"

	"nftledger/storage"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	return NewManager(db)
}

func TestKVRoundTrip(t *testing.T) {
	manager := newTestManager(t)

	type record struct {
		Name  string
		Count uint64
	}

	if ok, err := manager.KVGet([]byte("missing"), nil); err != nil {
		t.Fatalf("get absent key: %v", err)
	} else if ok {
		t.Fatalf("expected absent key")
	}

	stored := record{Name: "token", Count: 7}
	if err := manager.KVPut([]byte("rec"), &stored); err != nil {
		t.Fatalf("put: %v", err)
	}

	var loaded record
	ok, err := manager.KVGet([]byte("rec"), &loaded)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatalf("expected key to exist")
	}
	if loaded != stored {
		t.Fatalf("unexpected record: %+v", loaded)
	}

	if err := manager.KVDelete([]byte("rec")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ok, err := manager.KVGet([]byte("rec"), nil); err != nil {
		t.Fatalf("get after delete: %v", err)
	} else if ok {
		t.Fatalf("expected key to be gone")
	}
}

func TestKVRejectsEmptyKey(t *testing.T) {
	manager := newTestManager(t)
	if err := manager.KVPut(nil, uint64(1)); err == nil {
		t.Fatalf("expected error for empty key")
	}
	if _, err := manager.KVGet(nil, nil); err == nil {
		t.Fatalf("expected error for empty key")
	}
	if err := manager.KVDelete(nil); err == nil {
		t.Fatalf("expected error for empty key")
	}
}

func TestKVUint64Counter(t *testing.T) {
	manager := newTestManager(t)

	value, err := manager.KVGetUint64([]byte("counter"))
	if err != nil {
		t.Fatalf("get absent counter: %v", err)
	}
	if value != 0 {
		t.Fatalf("expected zero for absent counter, got %d", value)
	}

	if err := manager.KVPutUint64([]byte("counter"), 42); err != nil {
		t.Fatalf("put counter: %v", err)
	}
	value, err = manager.KVGetUint64([]byte("counter"))
	if err != nil {
		t.Fatalf("get counter: %v", err)
	}
	if value != 42 {
		t.Fatalf("unexpected counter value %d", value)
	}
}

func TestBalanceCredits(t *testing.T) {
	manager := newTestManager(t)

	balance, err := manager.BalanceGet("alice")
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance.Sign() != 0 {
		t.Fatalf("expected zero balance, got %s", balance)
	}

	if err := manager.BalanceAdd("alice", big.NewInt(100)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := manager.BalanceAdd("alice", big.NewInt(25)); err != nil {
		t.Fatalf("credit: %v", err)
	}

	balance, err = manager.BalanceGet("alice")
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance.Cmp(big.NewInt(125)) != 0 {
		t.Fatalf("unexpected balance %s", balance)
	}

	if err := manager.BalanceAdd("alice", big.NewInt(-1)); err == nil {
		t.Fatalf("expected negative credit to be rejected")
	}
}
