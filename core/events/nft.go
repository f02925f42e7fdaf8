package events

import (
	"math/big"
	"strconv"

	"nftledger/core/types"
)

const (
	// TypeNFTMinted is emitted when a new token is issued.
	TypeNFTMinted = "nft.minted"
	// TypeNFTTransferred is emitted for every ownership move, including the
	// optimistic leg of a transfer-call and its rollback.
	TypeNFTTransferred = "nft.transferred"
	// TypeNFTApproved is emitted when a delegate is granted a transfer
	// approval on a token.
	TypeNFTApproved = "nft.approved"
	// TypeNFTRevoked is emitted when a single delegate approval is removed.
	TypeNFTRevoked = "nft.revoked"
	// TypeNFTRevokedAll is emitted when a token's whole approval record is
	// dropped by its owner.
	TypeNFTRevokedAll = "nft.revoke_all"
	// TypeNFTTransferCallInitiated is emitted after the optimistic transfer
	// of a transfer-call has committed and the receiver hook is scheduled.
	TypeNFTTransferCallInitiated = "nft.transfer_call.initiated"
	// TypeNFTTransferCallResolved is emitted when resolution reaches a
	// terminal outcome for an in-flight transfer-call.
	TypeNFTTransferCallResolved = "nft.transfer_call.resolved"
	// TypeNFTStorageSettled is emitted for every storage-cost charge or
	// refund applied by the accountant.
	TypeNFTStorageSettled = "nft.storage.settled"
)

// Resolution outcomes reported on TypeNFTTransferCallResolved events.
const (
	ResolutionStands    = "stands"
	ResolutionReverted  = "reverted"
	ResolutionAbandoned = "abandoned"
)

type NFTMinted struct {
	TokenID uint64
	Owner   string
}

func (NFTMinted) EventType() string { return TypeNFTMinted }

func (e NFTMinted) Event() *types.Event {
	return &types.Event{Type: TypeNFTMinted, Attributes: map[string]string{
		"tokenId": strconv.FormatUint(e.TokenID, 10),
		"owner":   e.Owner,
	}}
}

type NFTTransferred struct {
	TokenID uint64
	From    string
	To      string
	Sender  string
	Memo    string
}

func (NFTTransferred) EventType() string { return TypeNFTTransferred }

func (e NFTTransferred) Event() *types.Event {
	attrs := map[string]string{
		"tokenId": strconv.FormatUint(e.TokenID, 10),
		"from":    e.From,
		"to":      e.To,
	}
	if e.Sender != "" && e.Sender != e.From {
		attrs["sender"] = e.Sender
	}
	if e.Memo != "" {
		attrs["memo"] = e.Memo
	}
	return &types.Event{Type: TypeNFTTransferred, Attributes: attrs}
}

type NFTApproved struct {
	TokenID    uint64
	Owner      string
	Delegate   string
	ApprovalID uint64
}

func (NFTApproved) EventType() string { return TypeNFTApproved }

func (e NFTApproved) Event() *types.Event {
	return &types.Event{Type: TypeNFTApproved, Attributes: map[string]string{
		"tokenId":    strconv.FormatUint(e.TokenID, 10),
		"owner":      e.Owner,
		"delegate":   e.Delegate,
		"approvalId": strconv.FormatUint(e.ApprovalID, 10),
	}}
}

type NFTRevoked struct {
	TokenID  uint64
	Owner    string
	Delegate string
}

func (NFTRevoked) EventType() string { return TypeNFTRevoked }

func (e NFTRevoked) Event() *types.Event {
	return &types.Event{Type: TypeNFTRevoked, Attributes: map[string]string{
		"tokenId":  strconv.FormatUint(e.TokenID, 10),
		"owner":    e.Owner,
		"delegate": e.Delegate,
	}}
}

type NFTRevokedAll struct {
	TokenID uint64
	Owner   string
}

func (NFTRevokedAll) EventType() string { return TypeNFTRevokedAll }

func (e NFTRevokedAll) Event() *types.Event {
	return &types.Event{Type: TypeNFTRevokedAll, Attributes: map[string]string{
		"tokenId": strconv.FormatUint(e.TokenID, 10),
		"owner":   e.Owner,
	}}
}

type NFTTransferCallInitiated struct {
	CallID        string
	TokenID       uint64
	Sender        string
	PreviousOwner string
	Receiver      string
}

func (NFTTransferCallInitiated) EventType() string { return TypeNFTTransferCallInitiated }

func (e NFTTransferCallInitiated) Event() *types.Event {
	return &types.Event{Type: TypeNFTTransferCallInitiated, Attributes: map[string]string{
		"callId":        e.CallID,
		"tokenId":       strconv.FormatUint(e.TokenID, 10),
		"sender":        e.Sender,
		"previousOwner": e.PreviousOwner,
		"receiver":      e.Receiver,
	}}
}

type NFTTransferCallResolved struct {
	CallID   string
	TokenID  uint64
	Receiver string
	Outcome  string
	Reason   string
}

func (NFTTransferCallResolved) EventType() string { return TypeNFTTransferCallResolved }

func (e NFTTransferCallResolved) Event() *types.Event {
	attrs := map[string]string{
		"callId":   e.CallID,
		"tokenId":  strconv.FormatUint(e.TokenID, 10),
		"receiver": e.Receiver,
		"outcome":  e.Outcome,
	}
	if e.Reason != "" {
		attrs["reason"] = e.Reason
	}
	return &types.Event{Type: TypeNFTTransferCallResolved, Attributes: attrs}
}

type NFTStorageSettled struct {
	TokenID uint64
	Account string
	Amount  *big.Int
	Refund  bool
}

func (NFTStorageSettled) EventType() string { return TypeNFTStorageSettled }

func (e NFTStorageSettled) Event() *types.Event {
	direction := "charge"
	if e.Refund {
		direction = "refund"
	}
	return &types.Event{Type: TypeNFTStorageSettled, Attributes: map[string]string{
		"tokenId":   strconv.FormatUint(e.TokenID, 10),
		"account":   e.Account,
		"amount":    formatAmount(e.Amount),
		"direction": direction,
	}}
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
