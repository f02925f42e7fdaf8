package rpc

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strings"

	"nftledger/native/nft"
)

// defaultTransferCallGas is attached to transfer-calls when the caller does
// not budget the continuation explicitly.
const defaultTransferCallGas uint64 = 100_000_000_000_000

type mintParams struct {
	Owner    string            `json:"owner"`
	Metadata nft.TokenMetadata `json:"metadata"`
}

type tokenParams struct {
	TokenID uint64 `json:"tokenId"`
}

type tokensParams struct {
	From  uint64 `json:"from"`
	Limit uint64 `json:"limit"`
}

type ownerParams struct {
	Owner string `json:"owner"`
}

type tokensForOwnerParams struct {
	Owner string `json:"owner"`
	From  uint64 `json:"from"`
	Limit uint64 `json:"limit"`
}

type transferParams struct {
	Caller     string  `json:"caller"`
	Receiver   string  `json:"receiver"`
	TokenID    uint64  `json:"tokenId"`
	ApprovalID *uint64 `json:"approvalId,omitempty"`
	Memo       string  `json:"memo,omitempty"`
}

type transferCallParams struct {
	Caller     string  `json:"caller"`
	Receiver   string  `json:"receiver"`
	TokenID    uint64  `json:"tokenId"`
	ApprovalID *uint64 `json:"approvalId,omitempty"`
	Memo       string  `json:"memo,omitempty"`
	Msg        string  `json:"msg"`
	Gas        *uint64 `json:"gas,omitempty"`
}

type approveParams struct {
	Caller  string `json:"caller"`
	TokenID uint64 `json:"tokenId"`
	Account string `json:"account"`
	Deposit string `json:"deposit,omitempty"`
}

type revokeParams struct {
	Caller  string `json:"caller"`
	TokenID uint64 `json:"tokenId"`
	Account string `json:"account,omitempty"`
}

type isApprovedParams struct {
	TokenID    uint64  `json:"tokenId"`
	Account    string  `json:"account"`
	ApprovalID *uint64 `json:"approvalId,omitempty"`
}

type balanceParams struct {
	Account string `json:"account"`
}

type transferResult struct {
	PreviousOwner string `json:"previousOwner"`
}

type approveResult struct {
	ApprovalID uint64 `json:"approvalId"`
}

func decodeParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("exactly one parameter object expected")
	}
	if err := json.Unmarshal(req.Params[0], out); err != nil {
		return fmt.Errorf("invalid parameter object: %w", err)
	}
	return nil
}

func decodeOptionalParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) == 0 {
		return nil
	}
	return decodeParams(req, out)
}

func parseDeposit(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || value.Sign() < 0 {
		return nil, fmt.Errorf("deposit must be a non-negative decimal string")
	}
	return value, nil
}

func (s *Server) handleMint(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params mintParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	token, err := s.engine.Mint(params.Owner, params.Metadata)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, token)
}

func (s *Server) handleTotalSupply(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	supply, err := s.engine.TotalSupply()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, supply)
}

func (s *Server) handleTokens(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params tokensParams
	if err := decodeOptionalParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	tokens, err := s.engine.Tokens(params.From, params.Limit)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, tokens)
}

func (s *Server) handleToken(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params tokenParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	token, ok, err := s.engine.Token(params.TokenID)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	if !ok {
		writeResult(w, req.ID, nil)
		return
	}
	writeResult(w, req.ID, token)
}

func (s *Server) handleSupplyForOwner(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params ownerParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	count, err := s.engine.SupplyForOwner(params.Owner)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, count)
}

func (s *Server) handleTokensForOwner(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params tokensForOwnerParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	tokens, known, err := s.engine.TokensForOwner(params.Owner, params.From, params.Limit)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	if !known {
		writeResult(w, req.ID, nil)
		return
	}
	writeResult(w, req.ID, tokens)
}

func (s *Server) handleTransfer(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params transferParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	ctx := nft.CallContext{Caller: params.Caller}
	prev, err := s.engine.Transfer(ctx, params.Receiver, params.TokenID, params.ApprovalID, params.Memo)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, transferResult{PreviousOwner: prev})
}

func (s *Server) handleTransferCall(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params transferCallParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	// An absent gas field gets the default; an explicit value is honored
	// verbatim, including zero, which fails the budget check.
	gas := defaultTransferCallGas
	if params.Gas != nil {
		gas = *params.Gas
	}
	ctx := nft.CallContext{Caller: params.Caller, PrepaidGas: gas}
	ticket, err := s.engine.TransferCall(ctx, params.Receiver, params.TokenID, params.ApprovalID, params.Memo, params.Msg)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	s.logger.Info("transfer-call scheduled",
		slog.String("callId", ticket.CallID()),
		slog.Uint64("tokenId", ticket.TokenID()),
		slog.String("receiver", params.Receiver))
	stands, err := ticket.Wait(r.Context())
	if err != nil {
		writeError(w, http.StatusGatewayTimeout, req.ID, codeServerError, "transfer-call resolution pending", err.Error())
		return
	}
	writeResult(w, req.ID, stands)
}

func (s *Server) handleApprove(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params approveParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	deposit, err := parseDeposit(params.Deposit)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	ctx := nft.CallContext{Caller: params.Caller, AttachedDeposit: deposit}
	approvalID, err := s.engine.Approve(ctx, params.TokenID, params.Account)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, approveResult{ApprovalID: approvalID})
}

func (s *Server) handleRevoke(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params revokeParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	ctx := nft.CallContext{Caller: params.Caller}
	if err := s.engine.Revoke(ctx, params.TokenID, params.Account); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleRevokeAll(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params revokeParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	ctx := nft.CallContext{Caller: params.Caller}
	if err := s.engine.RevokeAll(ctx, params.TokenID); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleIsApproved(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params isApprovedParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	approved, err := s.engine.IsApproved(params.TokenID, params.Account, params.ApprovalID)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, approved)
}

func (s *Server) handleMetadata(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	meta, err := s.engine.ContractMetadata()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, meta)
}

func (s *Server) handleBalance(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params balanceParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	balance, err := s.engine.Balance(params.Account)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, balance.String())
}
