package nft

import "nftledger/core/events"

func (e *Engine) approvalsGet(id uint64) (ApprovalMap, error) {
	var record storedApprovalRecord
	ok, err := e.state.KVGet(approvalsKey(id), &record)
	if err != nil || !ok {
		return nil, err
	}
	return mapFromRecord(&record), nil
}

// approvalsPut persists the approval record for a token. Empty records are
// removed from state rather than stored as empty.
func (e *Engine) approvalsPut(id uint64, approvals ApprovalMap) error {
	if len(approvals) == 0 {
		return e.state.KVDelete(approvalsKey(id))
	}
	return e.state.KVPut(approvalsKey(id), recordFromMap(approvals))
}

// Approve grants the delegate a transfer approval on the token and returns the
// assigned approval id. Only the token's owner may approve; the caller pays
// the storage growth of the approval record out of the attached deposit, with
// any excess returned to their balance.
func (e *Engine) Approve(ctx CallContext, id uint64, delegate AccountID) (uint64, error) {
	if err := e.requireState(); err != nil {
		return 0, err
	}
	if ctx.Caller == "" || delegate == "" {
		return 0, errNilCaller
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.approvalsEnabled {
		return 0, ErrUnauthorized
	}
	token, ok, err := e.tokenGet(id)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrTokenNotFound
	}
	if token.Owner != ctx.Caller {
		return 0, ErrUnauthorized
	}

	approvals, err := e.approvalsGet(id)
	if err != nil {
		return 0, err
	}
	before, err := recordBytes(approvals)
	if err != nil {
		return 0, err
	}

	next, err := e.state.KVGetUint64(approvalSeqKey(id))
	if err != nil {
		return 0, err
	}
	if next == 0 {
		next = 1
	}
	if approvals == nil {
		approvals = make(ApprovalMap, 1)
	}
	approvals[delegate] = next

	after, err := recordBytes(approvals)
	if err != nil {
		return 0, err
	}
	cost := e.storageCost(after - before)
	if ctx.deposit().Cmp(cost) < 0 {
		return 0, ErrInsufficientDeposit
	}

	if err := e.approvalsPut(id, approvals); err != nil {
		return 0, err
	}
	if err := e.state.KVPutUint64(approvalSeqKey(id), next+1); err != nil {
		return 0, err
	}
	if err := e.applyCharge(ctx, id, cost); err != nil {
		return 0, err
	}

	e.emit(events.NFTApproved{TokenID: id, Owner: token.Owner, Delegate: delegate, ApprovalID: next})
	return next, nil
}

// Revoke removes a single delegate from the token's approval record and
// refunds the freed bytes to the caller. Revoking an absent delegate is a
// no-op with no refund.
func (e *Engine) Revoke(ctx CallContext, id uint64, delegate AccountID) error {
	if err := e.requireState(); err != nil {
		return err
	}
	if ctx.Caller == "" || delegate == "" {
		return errNilCaller
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.approvalsEnabled {
		return ErrUnauthorized
	}
	token, ok, err := e.tokenGet(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTokenNotFound
	}
	if token.Owner != ctx.Caller {
		return ErrUnauthorized
	}

	approvals, err := e.approvalsGet(id)
	if err != nil {
		return err
	}
	if _, present := approvals[delegate]; !present {
		return nil
	}
	before, err := recordBytes(approvals)
	if err != nil {
		return err
	}
	delete(approvals, delegate)
	after, err := recordBytes(approvals)
	if err != nil {
		return err
	}
	if err := e.approvalsPut(id, approvals); err != nil {
		return err
	}
	if err := e.refundBytes(id, ctx.Caller, before-after); err != nil {
		return err
	}

	e.emit(events.NFTRevoked{TokenID: id, Owner: token.Owner, Delegate: delegate})
	return nil
}

// RevokeAll drops the token's entire approval record and refunds its full
// serialized size to the caller. A token without approvals is a no-op.
func (e *Engine) RevokeAll(ctx CallContext, id uint64) error {
	if err := e.requireState(); err != nil {
		return err
	}
	if ctx.Caller == "" {
		return errNilCaller
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.approvalsEnabled {
		return ErrUnauthorized
	}
	token, ok, err := e.tokenGet(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTokenNotFound
	}
	if token.Owner != ctx.Caller {
		return ErrUnauthorized
	}

	approvals, err := e.approvalsGet(id)
	if err != nil {
		return err
	}
	if len(approvals) == 0 {
		return nil
	}
	before, err := recordBytes(approvals)
	if err != nil {
		return err
	}
	if err := e.approvalsPut(id, nil); err != nil {
		return err
	}
	if err := e.refundBytes(id, ctx.Caller, before); err != nil {
		return err
	}

	e.emit(events.NFTRevokedAll{TokenID: id, Owner: token.Owner})
	return nil
}

// IsApproved reports whether the account currently holds a transfer approval
// on the token. When an approval id is supplied it must match the stored id
// exactly.
func (e *Engine) IsApproved(id uint64, account AccountID, approvalID *uint64) (bool, error) {
	if err := e.requireState(); err != nil {
		return false, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.approvalsEnabled {
		return false, nil
	}
	approvals, err := e.approvalsGet(id)
	if err != nil {
		return false, err
	}
	stored, ok := approvals[account]
	if !ok {
		return false, nil
	}
	if approvalID == nil {
		return true, nil
	}
	return *approvalID == stored, nil
}
