package nft

import "sort"

// AccountID identifies a party on the ledger. Identifiers are opaque
// non-empty strings; syntax rules are enforced at the boundary, not here.
type AccountID = string

// Token is one non-fungible unit. The ID is assigned sequentially at mint and
// never reused or reassigned afterwards.
type Token struct {
	ID       uint64        `json:"tokenId"`
	Owner    AccountID     `json:"owner"`
	Metadata TokenMetadata `json:"metadata"`
}

// TokenMetadata carries the opaque per-token record. Every field is optional;
// hash fields are only meaningful alongside their companion reference.
type TokenMetadata struct {
	Title         string `json:"title,omitempty"`
	Description   string `json:"description,omitempty"`
	Media         string `json:"media,omitempty"`
	MediaHash     []byte `json:"mediaHash,omitempty"`
	IssuedAt      uint64 `json:"issuedAt,omitempty"`
	StartsAt      uint64 `json:"startsAt,omitempty"`
	ExpiresAt     uint64 `json:"expiresAt,omitempty"`
	Extra         string `json:"extra,omitempty"`
	Reference     string `json:"reference,omitempty"`
	ReferenceHash []byte `json:"referenceHash,omitempty"`
}

// ContractMetadata is the ledger-wide singleton describing the collection.
// It is written once at initialisation and read-only afterwards.
type ContractMetadata struct {
	Spec          string `json:"spec"`
	Name          string `json:"name"`
	Symbol        string `json:"symbol"`
	Icon          string `json:"icon,omitempty"`
	BaseURI       string `json:"baseUri,omitempty"`
	Reference     string `json:"reference,omitempty"`
	ReferenceHash []byte `json:"referenceHash,omitempty"`
}

// ApprovalMap holds the delegated accounts of a single token together with the
// approval id stamped on each delegate.
type ApprovalMap map[AccountID]uint64

// Clone returns an independent copy of the map. A nil receiver yields nil.
func (m ApprovalMap) Clone() ApprovalMap {
	if m == nil {
		return nil
	}
	out := make(ApprovalMap, len(m))
	for account, id := range m {
		out[account] = id
	}
	return out
}

type storedToken struct {
	Owner    string
	Metadata storedTokenMetadata
}

type storedTokenMetadata struct {
	Title         string
	Description   string
	Media         string
	MediaHash     []byte
	IssuedAt      uint64
	StartsAt      uint64
	ExpiresAt     uint64
	Extra         string
	Reference     string
	ReferenceHash []byte
}

type approvalEntry struct {
	Account string
	ID      uint64
}

// storedApprovalRecord is the RLP form of an ApprovalMap. Entries are kept
// sorted by account so the serialized byte length is deterministic, which the
// storage-cost accountant relies on for exact charge/refund pairs.
type storedApprovalRecord struct {
	Entries []approvalEntry
}

type storedContractMetadata struct {
	Spec          string
	Name          string
	Symbol        string
	Icon          string
	BaseURI       string
	Reference     string
	ReferenceHash []byte
}

func storedFromMetadata(meta TokenMetadata) storedTokenMetadata {
	return storedTokenMetadata(meta)
}

func metadataFromStored(stored storedTokenMetadata) TokenMetadata {
	return TokenMetadata(stored)
}

func recordFromMap(approvals ApprovalMap) *storedApprovalRecord {
	record := &storedApprovalRecord{Entries: make([]approvalEntry, 0, len(approvals))}
	for account, id := range approvals {
		record.Entries = append(record.Entries, approvalEntry{Account: account, ID: id})
	}
	sort.Slice(record.Entries, func(i, j int) bool {
		return record.Entries[i].Account < record.Entries[j].Account
	})
	return record
}

func mapFromRecord(record *storedApprovalRecord) ApprovalMap {
	if record == nil || len(record.Entries) == 0 {
		return nil
	}
	approvals := make(ApprovalMap, len(record.Entries))
	for _, entry := range record.Entries {
		approvals[entry.Account] = entry.ID
	}
	return approvals
}
