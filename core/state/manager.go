package state

import (
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"nftledger/storage"
)

// Manager provides a minimal interface for reading and writing ledger state.
// Keys are hashed with keccak256 before hitting the backing store and values
// are RLP encoded, so the layout stays stable regardless of which storage
// backend is configured.
//
// Manager is not safe for concurrent use; callers serialise access.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

// KVPut stores the provided value under the supplied key using RLP encoding.
// The key is automatically hashed with keccak256 before insertion.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.db.Put(kvKey(key), encoded)
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.db.Get(kvKey(key))
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVDelete removes the value stored under the supplied key. Deleting an absent
// key is not an error.
func (m *Manager) KVDelete(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	return m.db.Delete(kvKey(key))
}

// KVGetUint64 reads an unsigned counter stored under the supplied key,
// returning zero when the key is absent.
func (m *Manager) KVGetUint64(key []byte) (uint64, error) {
	var value uint64
	if _, err := m.KVGet(key, &value); err != nil {
		return 0, err
	}
	return value, nil
}

// KVPutUint64 stores an unsigned counter under the supplied key.
func (m *Manager) KVPutUint64(key []byte, value uint64) error {
	return m.KVPut(key, value)
}

var balancePrefix = []byte("balance/")

func balanceKey(account string) []byte {
	buf := make([]byte, len(balancePrefix)+len(account))
	copy(buf, balancePrefix)
	copy(buf[len(balancePrefix):], account)
	return buf
}

// BalanceGet returns the credit balance recorded for an account. Unknown
// accounts hold a zero balance.
func (m *Manager) BalanceGet(account string) (*big.Int, error) {
	if account == "" {
		return nil, fmt.Errorf("balance: account must not be empty")
	}
	var stored *big.Int
	ok, err := m.KVGet(balanceKey(account), &stored)
	if err != nil {
		return nil, err
	}
	if !ok || stored == nil {
		return big.NewInt(0), nil
	}
	return stored, nil
}

// BalanceAdd credits the supplied amount to an account. Negative amounts are
// rejected; debits happen only by construction (deposits are attached to the
// call rather than drawn from a balance).
func (m *Manager) BalanceAdd(account string, amount *big.Int) error {
	if account == "" {
		return fmt.Errorf("balance: account must not be empty")
	}
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("balance: credit amount must be non-negative")
	}
	if amount.Sign() == 0 {
		return nil
	}
	current, err := m.BalanceGet(account)
	if err != nil {
		return err
	}
	return m.KVPut(balanceKey(account), new(big.Int).Add(current, amount))
}
