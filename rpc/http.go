package rpc

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nftledger/native/nft"
	"nftledger/observability"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000

	codeTokenNotFound       = -32040
	codeForbidden           = -32041
	codeApprovalMismatch    = -32042
	codeSameOwner           = -32043
	codeInsufficientDeposit = -32044
	codeInsufficientBudget  = -32045
)

// Server exposes the token ledger over JSON-RPC 2.0.
type Server struct {
	engine    *nft.Engine
	authToken string
	logger    *slog.Logger
	metrics   *observability.LedgerMetrics
}

// NewServer creates an RPC server fronting the supplied engine. A non-empty
// authToken gates every mutating method behind a bearer token.
func NewServer(engine *nft.Engine, authToken string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		engine:    engine,
		authToken: strings.TrimSpace(authToken),
		logger:    logger,
		metrics:   observability.Metrics(),
	}
}

// Router assembles the HTTP surface: the JSON-RPC endpoint plus health and
// metrics.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/", s.handle)
	return r
}

// Start serves the router on the supplied address and blocks.
func (s *Server) Start(addr string) error {
	s.logger.Info("starting JSON-RPC server", slog.String("addr", addr))
	return http.ListenAndServe(addr, s.Router())
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
}

// RPCResponse carries Result as raw JSON so that a successful null result stays
// on the wire: dropping the member would leave a reply with neither result nor
// error, which clients cannot classify.
type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	raw, err := json.Marshal(result)
	if err != nil {
		writeError(w, http.StatusInternalServerError, id, codeServerError, "failed to encode result", err.Error())
		return
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: raw}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeEngineError translates the ledger error taxonomy onto RPC error codes.
func writeEngineError(w http.ResponseWriter, id interface{}, err error) {
	switch {
	case errors.Is(err, nft.ErrTokenNotFound):
		writeError(w, http.StatusNotFound, id, codeTokenNotFound, err.Error(), nil)
	case errors.Is(err, nft.ErrUnauthorized):
		writeError(w, http.StatusForbidden, id, codeForbidden, err.Error(), nil)
	case errors.Is(err, nft.ErrApprovalMismatch):
		writeError(w, http.StatusConflict, id, codeApprovalMismatch, err.Error(), nil)
	case errors.Is(err, nft.ErrSameOwner):
		writeError(w, http.StatusBadRequest, id, codeSameOwner, err.Error(), nil)
	case errors.Is(err, nft.ErrInsufficientDeposit):
		writeError(w, http.StatusPaymentRequired, id, codeInsufficientDeposit, err.Error(), nil)
	case errors.Is(err, nft.ErrInsufficientBudget):
		writeError(w, http.StatusBadRequest, id, codeInsufficientBudget, err.Error(), nil)
	case errors.Is(err, nft.ErrMetadataNotFound):
		writeError(w, http.StatusNotFound, id, codeTokenNotFound, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, id, codeServerError, err.Error(), nil)
	}
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.authToken == "" {
		return nil
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return &RPCError{Code: codeUnauthorized, Message: "authorization required"}
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return &RPCError{Code: codeUnauthorized, Message: "bearer token required"}
	}
	supplied := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if subtle.ConstantTimeCompare([]byte(supplied), []byte(s.authToken)) != 1 {
		return &RPCError{Code: codeUnauthorized, Message: "invalid token"}
	}
	return nil
}

// handle is the main request handler that routes to specific handlers.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.dispatch(recorder, r, req)
	outcome := "ok"
	if recorder.status >= http.StatusBadRequest {
		outcome = "error"
	}
	s.metrics.ObserveRPC(req.Method, outcome)
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	switch req.Method {
	case "nft_mint":
		s.withAuth(w, r, req, s.handleMint)
	case "nft_total_supply":
		s.handleTotalSupply(w, r, req)
	case "nft_tokens":
		s.handleTokens(w, r, req)
	case "nft_token":
		s.handleToken(w, r, req)
	case "nft_supply_for_owner":
		s.handleSupplyForOwner(w, r, req)
	case "nft_tokens_for_owner":
		s.handleTokensForOwner(w, r, req)
	case "nft_transfer":
		s.withAuth(w, r, req, s.handleTransfer)
	case "nft_transfer_call":
		s.withAuth(w, r, req, s.handleTransferCall)
	case "nft_approve":
		s.withAuth(w, r, req, s.handleApprove)
	case "nft_revoke":
		s.withAuth(w, r, req, s.handleRevoke)
	case "nft_revoke_all":
		s.withAuth(w, r, req, s.handleRevokeAll)
	case "nft_is_approved":
		s.handleIsApproved(w, r, req)
	case "nft_metadata":
		s.handleMetadata(w, r, req)
	case "nft_balance":
		s.handleBalance(w, r, req)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("method %q not found", req.Method), nil)
	}
}

type rpcHandler func(w http.ResponseWriter, r *http.Request, req *RPCRequest)

func (s *Server) withAuth(w http.ResponseWriter, r *http.Request, req *RPCRequest, next rpcHandler) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	next(w, r, req)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
