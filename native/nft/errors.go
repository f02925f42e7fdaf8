package nft

import "errors"

var (
	// ErrTokenNotFound marks operations against an unknown token id.
	ErrTokenNotFound = errors.New("nft: token not found")
	// ErrUnauthorized is returned when the caller is neither the token's
	// owner nor a valid delegate for the attempted operation.
	ErrUnauthorized = errors.New("nft: unauthorized")
	// ErrApprovalMismatch is returned when a supplied approval id does not
	// match the id stored for the delegate.
	ErrApprovalMismatch = errors.New("nft: approval id mismatch")
	// ErrSameOwner rejects transfers where the receiver already owns the
	// token.
	ErrSameOwner = errors.New("nft: receiver already owns token")
	// ErrInsufficientDeposit is returned when the attached deposit does not
	// cover the computed storage cost.
	ErrInsufficientDeposit = errors.New("nft: insufficient storage deposit")
	// ErrInsufficientBudget is returned when the compute budget attached to
	// a transfer-call cannot cover the notify and resolve continuation.
	ErrInsufficientBudget = errors.New("nft: insufficient compute budget")
	// ErrLedgerInvariant marks owner-index corruption. It is a
	// programming-error class failure: the enclosing call must abort and
	// never expects to observe it in correct operation.
	ErrLedgerInvariant = errors.New("nft: ownership index invariant violated")
	// ErrMetadataInitialized rejects re-initialisation of the contract
	// metadata singleton.
	ErrMetadataInitialized = errors.New("nft: contract metadata already initialised")
	// ErrMetadataNotFound is returned when the contract metadata singleton
	// has not been initialised yet.
	ErrMetadataNotFound = errors.New("nft: contract metadata not initialised")

	errNilState  = errors.New("nft engine: state not configured")
	errNilCaller = errors.New("nft engine: caller account required")
)
