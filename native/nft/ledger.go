package nft

import (
	"fmt"

	"nftledger/core/events"
)

func (e *Engine) tokenGet(id uint64) (*storedToken, bool, error) {
	var stored storedToken
	ok, err := e.state.KVGet(tokenKey(id), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &stored, true, nil
}

func (e *Engine) ownerTokens(account AccountID) ([]uint64, bool, error) {
	var ids []uint64
	ok, err := e.state.KVGet(ownerKey(account), &ids)
	if err != nil || !ok {
		return nil, false, err
	}
	return ids, true, nil
}

func (e *Engine) setOwnerTokens(account AccountID, ids []uint64) error {
	if len(ids) == 0 {
		return e.state.KVDelete(ownerKey(account))
	}
	return e.state.KVPut(ownerKey(account), ids)
}

// reassignOwner moves a token between the two owner sets and rewrites the
// forward map, as one logical operation. A missing source set or a source set
// without the token means the ownership index is corrupt; the call aborts with
// ErrLedgerInvariant before touching anything.
func (e *Engine) reassignOwner(id uint64, from, to AccountID) error {
	token, ok, err := e.tokenGet(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: token %d missing from forward map", ErrLedgerInvariant, id)
	}
	fromIDs, ok, err := e.ownerTokens(from)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: owner %s has no token set", ErrLedgerInvariant, from)
	}
	index := -1
	for i, existing := range fromIDs {
		if existing == id {
			index = i
			break
		}
	}
	if index < 0 {
		return fmt.Errorf("%w: token %d not in owner set of %s", ErrLedgerInvariant, id, from)
	}

	fromIDs = append(fromIDs[:index], fromIDs[index+1:]...)
	toIDs, _, err := e.ownerTokens(to)
	if err != nil {
		return err
	}
	toIDs = append(toIDs, id)

	if err := e.setOwnerTokens(from, fromIDs); err != nil {
		return err
	}
	if err := e.setOwnerTokens(to, toIDs); err != nil {
		return err
	}
	token.Owner = to
	return e.state.KVPut(tokenKey(id), token)
}

// Mint issues the next sequential token id to the given owner. Issuance is
// deliberately open to any caller; gating belongs to the surface that fronts
// the ledger, not to the store itself.
func (e *Engine) Mint(owner AccountID, metadata TokenMetadata) (*Token, error) {
	if err := e.requireState(); err != nil {
		return nil, err
	}
	if owner == "" {
		return nil, errNilCaller
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	supply, err := e.state.KVGetUint64(supplyKey)
	if err != nil {
		return nil, err
	}
	id := supply
	stored := &storedToken{Owner: owner, Metadata: storedFromMetadata(metadata)}
	if err := e.state.KVPut(tokenKey(id), stored); err != nil {
		return nil, err
	}
	ids, _, err := e.ownerTokens(owner)
	if err != nil {
		return nil, err
	}
	ids = append(ids, id)
	if err := e.setOwnerTokens(owner, ids); err != nil {
		return nil, err
	}
	if err := e.state.KVPutUint64(supplyKey, supply+1); err != nil {
		return nil, err
	}

	e.emit(events.NFTMinted{TokenID: id, Owner: owner})
	return &Token{ID: id, Owner: owner, Metadata: metadata}, nil
}

// Token returns the token stored under the given id.
func (e *Engine) Token(id uint64) (*Token, bool, error) {
	if err := e.requireState(); err != nil {
		return nil, false, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	stored, ok, err := e.tokenGet(id)
	if err != nil || !ok {
		return nil, false, err
	}
	return &Token{ID: id, Owner: stored.Owner, Metadata: metadataFromStored(stored.Metadata)}, true, nil
}

// TotalSupply reports the number of tokens minted so far. The counter only
// ever grows; there is no burn.
func (e *Engine) TotalSupply() (uint64, error) {
	if err := e.requireState(); err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.KVGetUint64(supplyKey)
}

// Tokens returns up to max tokens starting from the given index in mint
// order. A max of zero means no practical limit.
func (e *Engine) Tokens(start, max uint64) ([]Token, error) {
	if err := e.requireState(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	supply, err := e.state.KVGetUint64(supplyKey)
	if err != nil {
		return nil, err
	}
	if start >= supply {
		return []Token{}, nil
	}
	end := supply
	if max > 0 && start+max < end {
		end = start + max
	}
	out := make([]Token, 0, end-start)
	for id := start; id < end; id++ {
		stored, ok, err := e.tokenGet(id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: token %d missing from forward map", ErrLedgerInvariant, id)
		}
		out = append(out, Token{ID: id, Owner: stored.Owner, Metadata: metadataFromStored(stored.Metadata)})
	}
	return out, nil
}

// SupplyForOwner counts the tokens currently held by an account.
func (e *Engine) SupplyForOwner(owner AccountID) (uint64, error) {
	if err := e.requireState(); err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	ids, _, err := e.ownerTokens(owner)
	if err != nil {
		return 0, err
	}
	return uint64(len(ids)), nil
}

// TokensForOwner pages through the tokens held by an account in set order.
// The boolean return reports whether the owner is known to the index at all;
// unknown owners yield nil, false rather than an empty page.
func (e *Engine) TokensForOwner(owner AccountID, start, max uint64) ([]Token, bool, error) {
	if err := e.requireState(); err != nil {
		return nil, false, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	ids, ok, err := e.ownerTokens(owner)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	if start >= uint64(len(ids)) {
		return []Token{}, true, nil
	}
	end := uint64(len(ids))
	if max > 0 && start+max < end {
		end = start + max
	}
	out := make([]Token, 0, end-start)
	for _, id := range ids[start:end] {
		stored, ok, err := e.tokenGet(id)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, fmt.Errorf("%w: token %d missing from forward map", ErrLedgerInvariant, id)
		}
		out = append(out, Token{ID: id, Owner: stored.Owner, Metadata: metadataFromStored(stored.Metadata)})
	}
	return out, true, nil
}

// InitContractMetadata persists the collection metadata singleton. It can run
// once; later attempts fail with ErrMetadataInitialized.
func (e *Engine) InitContractMetadata(meta ContractMetadata) error {
	if err := e.requireState(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	ok, err := e.state.KVGet(contractKey, nil)
	if err != nil {
		return err
	}
	if ok {
		return ErrMetadataInitialized
	}
	stored := storedContractMetadata(meta)
	return e.state.KVPut(contractKey, &stored)
}

// ContractMetadata returns the collection metadata singleton.
func (e *Engine) ContractMetadata() (*ContractMetadata, error) {
	if err := e.requireState(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	var stored storedContractMetadata
	ok, err := e.state.KVGet(contractKey, &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrMetadataNotFound
	}
	meta := ContractMetadata(stored)
	return &meta, nil
}
