package nft

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/google/uuid"
)

// CallContext carries the host-provided facts about the current call: who is
// calling, how much deposit they attached for storage settlement and how much
// compute budget the call may spend on continuations.
type CallContext struct {
	Caller          AccountID
	AttachedDeposit *big.Int
	PrepaidGas      uint64
}

func (ctx CallContext) deposit() *big.Int {
	if ctx.AttachedDeposit == nil {
		return big.NewInt(0)
	}
	return ctx.AttachedDeposit
}

// HookCall is the payload delivered to a receiver's acceptance hook during a
// transfer-call.
type HookCall struct {
	Sender        AccountID
	PreviousOwner AccountID
	TokenID       uint64
	Msg           string
	GasBudget     uint64
}

// HookClient abstracts the cross-party call primitive. Invoke delivers the
// acceptance hook to the receiver and returns the raw response payload. A
// non-nil error means the receiver was unreachable or its hook failed, which
// resolution treats as a revert signal.
type HookClient interface {
	Invoke(receiver AccountID, call HookCall) ([]byte, error)
}

// TransferHook is an in-process acceptance hook. The returned payload is
// interpreted by resolution strictly as a JSON boolean: true requests the
// transfer to be returned, false accepts it.
type TransferHook func(call HookCall) ([]byte, error)

// HookRegistry is an in-process HookClient keyed by receiver account. Parties
// without a registered hook are reported as unreachable.
type HookRegistry struct {
	mu    sync.RWMutex
	hooks map[AccountID]TransferHook
}

// NewHookRegistry creates an empty registry.
func NewHookRegistry() *HookRegistry {
	return &HookRegistry{hooks: make(map[AccountID]TransferHook)}
}

// Register installs the acceptance hook for a receiver, replacing any previous
// registration. A nil hook removes the registration.
func (r *HookRegistry) Register(receiver AccountID, hook TransferHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if hook == nil {
		delete(r.hooks, receiver)
		return
	}
	r.hooks[receiver] = hook
}

// Invoke implements HookClient. Panicking hooks are reported as failures
// instead of tearing down the scheduler.
func (r *HookRegistry) Invoke(receiver AccountID, call HookCall) (payload []byte, err error) {
	r.mu.RLock()
	hook, ok := r.hooks[receiver]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("hook: receiver %s unreachable", receiver)
	}
	defer func() {
		if recovered := recover(); recovered != nil {
			payload = nil
			err = fmt.Errorf("hook: receiver %s panicked: %v", receiver, recovered)
		}
	}()
	return hook(call)
}

// Runner schedules the asynchronous continuation of a transfer-call. The
// contract is that a submitted function runs exactly once, after the caller
// has returned from the optimistic phase.
type Runner interface {
	Go(fn func())
}

// GoRunner runs continuations on their own goroutine. This is the production
// runner.
type GoRunner struct{}

// Go implements Runner.
func (GoRunner) Go(fn func()) { go fn() }

// StepRunner queues continuations and runs them only when pumped. Tests use it
// to interleave independent calls inside the gap between the optimistic
// transfer and its resolution.
type StepRunner struct {
	mu    sync.Mutex
	queue []func()
}

// NewStepRunner creates an empty manual runner.
func NewStepRunner() *StepRunner {
	return &StepRunner{}
}

// Go implements Runner by queueing the continuation.
func (r *StepRunner) Go(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queue = append(r.queue, fn)
}

// Step runs the oldest queued continuation. It reports whether one ran.
func (r *StepRunner) Step() bool {
	r.mu.Lock()
	if len(r.queue) == 0 {
		r.mu.Unlock()
		return false
	}
	fn := r.queue[0]
	r.queue = r.queue[1:]
	r.mu.Unlock()
	fn()
	return true
}

// Drain runs queued continuations until none remain.
func (r *StepRunner) Drain() {
	for r.Step() {
	}
}

// TransferTicket tracks one in-flight transfer-call. It lives only in memory;
// no record of the in-flight transfer is persisted, matching the protocol's
// reconstruct-from-arguments design.
type TransferTicket struct {
	callID  uuid.UUID
	tokenID uint64
	done    chan struct{}
	stands  bool
}

func newTransferTicket(tokenID uint64) *TransferTicket {
	return &TransferTicket{
		callID:  uuid.New(),
		tokenID: tokenID,
		done:    make(chan struct{}),
	}
}

// CallID returns the correlation id stamped on this transfer-call's events and
// log lines.
func (t *TransferTicket) CallID() string { return t.callID.String() }

// TokenID returns the token the transfer-call moves.
func (t *TransferTicket) TokenID() uint64 { return t.tokenID }

// Wait blocks until resolution completes and reports whether the transfer
// stands (true) or was reverted (false).
func (t *TransferTicket) Wait(ctx context.Context) (bool, error) {
	select {
	case <-t.done:
		return t.stands, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (t *TransferTicket) complete(stands bool) {
	t.stands = stands
	close(t.done)
}
