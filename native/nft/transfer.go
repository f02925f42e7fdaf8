package nft

import (
	"encoding/json"
	"log/slog"

	"nftledger/core/events"
)

const (
	// gasTransferCall is the fixed protocol overhead of scheduling the
	// receiver hook plus the resolution continuation. Transfer-calls must
	// attach strictly more compute than this before any state is touched.
	gasTransferCall uint64 = 30_000_000_000_000
)

// Reasons recorded on transfer-call resolution events.
const (
	reasonAccepted         = "accepted"
	reasonRejected         = "rejected"
	reasonHookFailed       = "hook_failed"
	reasonMalformedPayload = "malformed_payload"
	reasonOwnerChanged     = "owner_changed"
)

// Transfer moves a token to the receiver and returns the previous owner. The
// caller must be the owner or hold a matching approval; either way the token's
// whole approval record is cleared by a successful transfer.
func (e *Engine) Transfer(ctx CallContext, receiver AccountID, id uint64, approvalID *uint64, memo string) (AccountID, error) {
	if err := e.requireState(); err != nil {
		return "", err
	}
	if ctx.Caller == "" || receiver == "" {
		return "", errNilCaller
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	prev, _, err := e.transferLocked(ctx.Caller, receiver, id, approvalID, memo)
	return prev, err
}

// transferLocked performs authorization and the ownership move, returning the
// previous owner and the approval record that was cleared. Validation failures
// abort before any mutation.
func (e *Engine) transferLocked(sender, receiver AccountID, id uint64, approvalID *uint64, memo string) (AccountID, ApprovalMap, error) {
	token, ok, err := e.tokenGet(id)
	if err != nil {
		return "", nil, err
	}
	if !ok {
		return "", nil, ErrTokenNotFound
	}
	owner := token.Owner

	approvals, err := e.approvalsGet(id)
	if err != nil {
		return "", nil, err
	}
	if sender != owner {
		if !e.approvalsEnabled {
			return "", nil, ErrUnauthorized
		}
		stored, approved := approvals[sender]
		if !approved {
			return "", nil, ErrUnauthorized
		}
		if approvalID != nil && *approvalID != stored {
			return "", nil, ErrApprovalMismatch
		}
	}
	if receiver == owner {
		return "", nil, ErrSameOwner
	}

	if err := e.reassignOwner(id, owner, receiver); err != nil {
		return "", nil, err
	}
	if err := e.approvalsPut(id, nil); err != nil {
		return "", nil, err
	}

	e.emit(events.NFTTransferred{TokenID: id, From: owner, To: receiver, Sender: sender, Memo: memo})
	return owner, approvals, nil
}

// TransferCall performs an optimistic transfer and schedules the receiver's
// acceptance hook followed by resolution. When it returns, ownership and
// approvals have already moved; the returned ticket resolves to true when the
// transfer stands and false when it was rolled back.
func (e *Engine) TransferCall(ctx CallContext, receiver AccountID, id uint64, approvalID *uint64, memo, msg string) (*TransferTicket, error) {
	if err := e.requireState(); err != nil {
		return nil, err
	}
	if ctx.Caller == "" || receiver == "" {
		return nil, errNilCaller
	}
	if ctx.PrepaidGas <= gasTransferCall {
		return nil, ErrInsufficientBudget
	}

	e.mu.Lock()
	prev, removed, err := e.transferLocked(ctx.Caller, receiver, id, approvalID, memo)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	ticket := newTransferTicket(id)
	e.emit(events.NFTTransferCallInitiated{
		CallID:        ticket.CallID(),
		TokenID:       id,
		Sender:        ctx.Caller,
		PreviousOwner: prev,
		Receiver:      receiver,
	})
	e.mu.Unlock()

	call := HookCall{
		Sender:        ctx.Caller,
		PreviousOwner: prev,
		TokenID:       id,
		Msg:           msg,
		GasBudget:     ctx.PrepaidGas - gasTransferCall,
	}
	// The continuation gets its own copy of the cleared record so nothing
	// that happens in the gap can alias into the rollback's restore set.
	removed = removed.Clone()
	e.runner.Go(func() {
		payload, hookErr := e.hooks.Invoke(receiver, call)
		ticket.complete(e.resolveTransfer(ticket.CallID(), prev, receiver, id, removed, payload, hookErr))
	})
	return ticket, nil
}

// interpretHookOutcome maps the acceptance hook's result onto the revert
// decision. Only a well-formed JSON boolean is trusted: true asks for the
// token back, false accepts it, and anything else is conservatively treated
// as a revert signal.
func interpretHookOutcome(payload []byte, hookErr error) (bool, string) {
	if hookErr != nil {
		return true, reasonHookFailed
	}
	var returnToken bool
	if err := json.Unmarshal(payload, &returnToken); err != nil {
		return true, reasonMalformedPayload
	}
	if returnToken {
		return true, reasonRejected
	}
	return false, reasonAccepted
}

// resolveTransfer is the terminal step of a transfer-call. It runs as its own
// atomic unit: between the optimistic transfer and this call, other
// independent calls may have interleaved, so the ownership re-check below is
// the sole gatekeeper of whether the rollback is safe to apply.
func (e *Engine) resolveTransfer(callID string, prev, receiver AccountID, id uint64, removed ApprovalMap, payload []byte, hookErr error) bool {
	revert, reason := interpretHookOutcome(payload, hookErr)
	if reason == reasonMalformedPayload || reason == reasonHookFailed {
		e.logger.Error("transfer-call hook produced no usable outcome",
			slog.String("callId", callID),
			slog.Uint64("tokenId", id),
			slog.String("receiver", string(receiver)),
			slog.String("reason", reason),
			slog.Any("error", hookErr))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !revert {
		e.emit(events.NFTTransferCallResolved{
			CallID:   callID,
			TokenID:  id,
			Receiver: receiver,
			Outcome:  events.ResolutionStands,
			Reason:   reason,
		})
		return true
	}

	token, ok, err := e.tokenGet(id)
	if err == nil && (!ok || token.Owner != receiver) {
		// The token legitimately changed hands after the optimistic
		// transfer; rolling back now would clobber a later state change.
		// The cleared approval record still owes its refund.
		if byteCount, berr := recordBytes(removed); berr != nil {
			e.logger.Error("failed to measure cleared approval record",
				slog.String("callId", callID), slog.Uint64("tokenId", id), slog.Any("error", berr))
		} else if rerr := e.refundBytes(id, prev, byteCount); rerr != nil {
			e.logger.Error("storage refund failed for abandoned rollback",
				slog.String("callId", callID), slog.Uint64("tokenId", id),
				slog.String("account", string(prev)), slog.Any("error", rerr))
		}
		e.emit(events.NFTTransferCallResolved{
			CallID:   callID,
			TokenID:  id,
			Receiver: receiver,
			Outcome:  events.ResolutionAbandoned,
			Reason:   reasonOwnerChanged,
		})
		return true
	}
	if err != nil {
		e.logger.Error("rollback skipped: current ownership could not be read",
			slog.String("callId", callID), slog.Uint64("tokenId", id), slog.Any("error", err))
		e.emit(events.NFTTransferCallResolved{
			CallID:   callID,
			TokenID:  id,
			Receiver: receiver,
			Outcome:  events.ResolutionStands,
			Reason:   reason,
		})
		return true
	}

	if err := e.reassignOwner(id, receiver, prev); err != nil {
		// Index corruption aborts the rollback before anything moved.
		e.logger.Error("rollback aborted: ownership could not be reinstated",
			slog.String("callId", callID), slog.Uint64("tokenId", id),
			slog.String("previousOwner", string(prev)), slog.Any("error", err))
		e.emit(events.NFTTransferCallResolved{
			CallID:   callID,
			TokenID:  id,
			Receiver: receiver,
			Outcome:  events.ResolutionStands,
			Reason:   reason,
		})
		return true
	}

	// Approvals granted by the receiver while they held the token die with
	// the rollback; their storage cost goes back to the receiver.
	current, err := e.approvalsGet(id)
	if err != nil {
		e.logger.Error("failed to read receiver approvals during rollback",
			slog.String("callId", callID), slog.Uint64("tokenId", id), slog.Any("error", err))
	} else if len(current) > 0 {
		if byteCount, berr := recordBytes(current); berr != nil {
			e.logger.Error("failed to measure receiver approval record",
				slog.String("callId", callID), slog.Uint64("tokenId", id), slog.Any("error", berr))
		} else if rerr := e.refundBytes(id, receiver, byteCount); rerr != nil {
			e.logger.Error("storage refund failed for discarded receiver approvals",
				slog.String("callId", callID), slog.Uint64("tokenId", id),
				slog.String("account", string(receiver)), slog.Any("error", rerr))
		}
	}
	if err := e.approvalsPut(id, removed); err != nil {
		e.logger.Error("failed to reinstate pre-transfer approvals",
			slog.String("callId", callID), slog.Uint64("tokenId", id), slog.Any("error", err))
	}

	e.emit(events.NFTTransferred{TokenID: id, From: receiver, To: prev})
	e.emit(events.NFTTransferCallResolved{
		CallID:   callID,
		TokenID:  id,
		Receiver: receiver,
		Outcome:  events.ResolutionReverted,
		Reason:   reason,
	})
	return false
}
