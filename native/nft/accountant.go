package nft

import (
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"nftledger/core/events"
)

// recordBytes reports the serialized length of an approval record. An absent
// or empty record occupies zero bytes, matching the "empty map == absent"
// normalization rule.
func recordBytes(approvals ApprovalMap) (int, error) {
	if len(approvals) == 0 {
		return 0, nil
	}
	encoded, err := rlp.EncodeToBytes(recordFromMap(approvals))
	if err != nil {
		return 0, err
	}
	return len(encoded), nil
}

func (e *Engine) storageCost(byteCount int) *big.Int {
	if byteCount <= 0 || e.storageByteCost.Sign() == 0 {
		return big.NewInt(0)
	}
	return new(big.Int).Mul(big.NewInt(int64(byteCount)), e.storageByteCost)
}

// applyCharge credits a computed storage charge to the collector and returns
// any excess deposit to the caller. Deposit sufficiency has been validated by
// the caller before any state was touched.
func (e *Engine) applyCharge(ctx CallContext, tokenID uint64, cost *big.Int) error {
	if cost.Sign() > 0 && e.storageCollector != "" {
		if err := e.state.BalanceAdd(e.storageCollector, cost); err != nil {
			return err
		}
		e.emit(events.NFTStorageSettled{TokenID: tokenID, Account: ctx.Caller, Amount: cost})
	}
	excess := new(big.Int).Sub(ctx.deposit(), cost)
	if excess.Sign() > 0 {
		if err := e.state.BalanceAdd(ctx.Caller, excess); err != nil {
			return err
		}
	}
	return nil
}

// refundBytes credits the storage cost of the given byte count back to the
// designated account. Rollback paths use it without any deposit check.
func (e *Engine) refundBytes(tokenID uint64, account AccountID, byteCount int) error {
	refund := e.storageCost(byteCount)
	if refund.Sign() == 0 || account == "" {
		return nil
	}
	if err := e.state.BalanceAdd(account, refund); err != nil {
		return err
	}
	e.emit(events.NFTStorageSettled{TokenID: tokenID, Account: account, Amount: refund, Refund: true})
	return nil
}
