package nft

import (
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"nftledger/core/events"
)

// ledgerState is the subset of state manager functionality required by the
// token ledger.
type ledgerState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
	KVGetUint64(key []byte) (uint64, error)
	KVPutUint64(key []byte, value uint64) error
	BalanceGet(account string) (*big.Int, error)
	BalanceAdd(account string, amount *big.Int) error
}

var (
	tokenPrefix       = []byte("nft/token/")
	ownerPrefix       = []byte("nft/owner/")
	approvalsPrefix   = []byte("nft/approvals/")
	approvalSeqPrefix = []byte("nft/approvalseq/")
	supplyKey         = []byte("nft/supply")
	contractKey       = []byte("nft/contract")
)

func tokenKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s%d", tokenPrefix, id))
}

func ownerKey(account AccountID) []byte {
	return []byte(fmt.Sprintf("%s%s", ownerPrefix, account))
}

func approvalsKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s%d", approvalsPrefix, id))
}

func approvalSeqKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s%d", approvalSeqPrefix, id))
}

// Engine owns the token store, the approval ledger, the storage-cost
// accountant and the transfer protocol. Every exported operation executes as
// one atomic unit under the engine mutex; the only suspension point in the
// system is the gap a transfer-call opens between its optimistic commit and
// the scheduled resolution.
type Engine struct {
	mu sync.Mutex

	state   ledgerState
	emitter events.Emitter
	hooks   HookClient
	runner  Runner
	logger  *slog.Logger

	storageByteCost  *big.Int
	storageCollector AccountID
	approvalsEnabled bool
}

// NewEngine creates a ledger engine bound to the provided state backend.
// Approvals are enabled and storage is free until configured otherwise.
func NewEngine(state ledgerState) *Engine {
	return &Engine{
		state:            state,
		emitter:          events.NoopEmitter{},
		hooks:            NewHookRegistry(),
		runner:           GoRunner{},
		logger:           slog.Default(),
		storageByteCost:  big.NewInt(0),
		approvalsEnabled: true,
	}
}

// SetLogger configures the logger the engine uses for failures it cannot
// surface through a return value, such as errors inside a scheduled
// resolution. Passing nil restores the process default.
func (e *Engine) SetLogger(logger *slog.Logger) {
	if logger == nil {
		e.logger = slog.Default()
		return
	}
	e.logger = logger
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetHookClient configures the cross-party call client used by transfer-calls.
// Passing nil installs an empty registry, under which every receiver is
// unreachable and every transfer-call reverts.
func (e *Engine) SetHookClient(hooks HookClient) {
	if hooks == nil {
		e.hooks = NewHookRegistry()
		return
	}
	e.hooks = hooks
}

// SetRunner configures how transfer-call continuations are scheduled. Passing
// nil restores the default goroutine runner.
func (e *Engine) SetRunner(runner Runner) {
	if runner == nil {
		e.runner = GoRunner{}
		return
	}
	e.runner = runner
}

// SetStorageCost configures the fixed per-byte storage rate and the account
// credited with storage charges. A nil rate means storage is free.
func (e *Engine) SetStorageCost(perByte *big.Int, collector AccountID) {
	if perByte == nil || perByte.Sign() < 0 {
		e.storageByteCost = big.NewInt(0)
	} else {
		e.storageByteCost = new(big.Int).Set(perByte)
	}
	e.storageCollector = collector
}

// SetApprovalsEnabled toggles the delegation subsystem. With approvals
// disabled the ledger behaves as if no approval records exist: approve and
// revoke yield ErrUnauthorized, is_approved reports false.
func (e *Engine) SetApprovalsEnabled(enabled bool) {
	e.approvalsEnabled = enabled
}

func (e *Engine) emit(event events.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(event)
}

func (e *Engine) requireState() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	return nil
}

// Balance reports the credit balance an account has accumulated through
// storage refunds and excess-deposit returns.
func (e *Engine) Balance(account AccountID) (*big.Int, error) {
	if err := e.requireState(); err != nil {
		return nil, err
	}
	if account == "" {
		return nil, errNilCaller
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.BalanceGet(account)
}
