package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/basebridge/gateway-l1/internal/channel"
	"github.com/basebridge/gateway-l1/internal/erc20"
	"github.com/basebridge/gateway-l1/internal/gateway"
	"github.com/basebridge/gateway-l1/internal/gatewayabi"
)

var ErrInvalidConfig = errors.New("httpapi: invalid config")

type Config struct {
	// AuthToken enables bearer-token auth on every /v1 request when set.
	AuthToken string

	// MaxBodyBytes limits request sizes. Defaults to 1 MiB.
	MaxBodyBytes int64

	// Devnet exposes token registration, mint and approve endpoints
	// against the in-memory bank. Never enable outside local stacks.
	Devnet bool
}

// NewHandler serves the gateway over HTTP. Deposits enter through the
// router identity, which is what an on-chain router contract would be;
// withdrawals are delivered under the counterpart's attested origin.
func NewHandler(gw *gateway.Gateway, ch *channel.Memory, bank *erc20.MemoryBank, cfg Config) (http.Handler, error) {
	if gw == nil {
		return nil, fmt.Errorf("%w: nil gateway", ErrInvalidConfig)
	}
	if ch == nil {
		return nil, fmt.Errorf("%w: nil channel", ErrInvalidConfig)
	}
	if cfg.Devnet && bank == nil {
		return nil, fmt.Errorf("%w: devnet mode requires a memory bank", ErrInvalidConfig)
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}

	h := &handler{gw: gw, ch: ch, bank: bank, cfg: cfg}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.handleHealthz)
	mux.HandleFunc("GET /v1/config", h.handleConfig)
	mux.HandleFunc("POST /v1/deposits", h.handleDeposit)
	mux.HandleFunc("POST /v1/withdrawals", h.handleWithdrawal)
	if cfg.Devnet {
		mux.HandleFunc("POST /v1/devnet/tokens", h.handleRegisterToken)
		mux.HandleFunc("POST /v1/devnet/tokens/{token}/mint", h.handleMint)
		mux.HandleFunc("POST /v1/devnet/tokens/{token}/approve", h.handleApprove)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" && cfg.AuthToken != "" {
			if !checkBearer(r.Header.Get("Authorization"), cfg.AuthToken) {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
		}
		mux.ServeHTTP(w, r)
	}), nil
}

type handler struct {
	gw   *gateway.Gateway
	ch   *channel.Memory
	bank *erc20.MemoryBank
	cfg  Config
}

func (h *handler) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (h *handler) handleConfig(w http.ResponseWriter, _ *http.Request) {
	cfg, ok := h.gw.Config()
	resp := map[string]any{
		"version":     "v1",
		"initialized": ok,
		"gateway":     h.gw.Address().Hex(),
	}
	if ok {
		resp["counterpart"] = cfg.Counterpart.Hex()
		resp["router"] = cfg.Router.Hex()
		resp["channel"] = cfg.Channel.Hex()
	}
	writeJSON(w, http.StatusOK, resp)
}

type depositRequestBody struct {
	Token             string `json:"token"`
	Sender            string `json:"sender"`
	To                string `json:"to"`
	Amount            string `json:"amount"`
	GasLimit          uint64 `json:"gas_limit"`
	GasPriceBid       string `json:"gas_price_bid"`
	MaxSubmissionCost string `json:"max_submission_cost"`
	Value             string `json:"value"`
	ExtraData         string `json:"extra_data,omitempty"`
}

func (h *handler) handleDeposit(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeJSONBody[depositRequestBody](w, r, h.cfg.MaxBodyBytes)
	if !ok {
		return
	}

	token, ok := parseAddress(body.Token)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_token")
		return
	}
	sender, ok := parseAddress(body.Sender)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_sender")
		return
	}
	to, ok := parseAddress(body.To)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_to")
		return
	}
	amount, err := parseBig(body.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	gasPriceBid, err := parseBig(body.GasPriceBid)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_gas_price_bid")
		return
	}
	maxSubmissionCost, err := parseBig(body.MaxSubmissionCost)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_max_submission_cost")
		return
	}
	value, err := parseBig(body.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_value")
		return
	}
	extraData, err := parseHexBytes(body.ExtraData)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_extra_data")
		return
	}

	payload, err := gatewayabi.EncodeRouterPayload(gatewayabi.RouterPayload{
		Sender:            sender,
		MaxSubmissionCost: maxSubmissionCost,
		ExtraData:         extraData,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}

	cfg, ok := h.gw.Config()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "not_initialized")
		return
	}

	res, err := h.gw.OutboundTransfer(r.Context(), cfg.Router, gateway.DepositParams{
		Token:       token,
		To:          to,
		Amount:      amount,
		GasLimit:    body.GasLimit,
		GasPriceBid: gasPriceBid,
		Data:        payload,
		Value:       value,
	})
	if err != nil {
		writeGatewayError(w, err)
		return
	}

	seq, err := gatewayabi.DecodeDepositResult(res)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"version":         "v1",
		"sequence_number": seq.String(),
	})
}

type withdrawalRequestBody struct {
	Token     string `json:"token"`
	From      string `json:"from"`
	To        string `json:"to"`
	Amount    string `json:"amount"`
	ExitNum   string `json:"exit_num"`
	ExtraData string `json:"extra_data,omitempty"`
}

func (h *handler) handleWithdrawal(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeJSONBody[withdrawalRequestBody](w, r, h.cfg.MaxBodyBytes)
	if !ok {
		return
	}

	token, ok := parseAddress(body.Token)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_token")
		return
	}
	from, ok := parseAddress(body.From)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_from")
		return
	}
	to, ok := parseAddress(body.To)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_to")
		return
	}
	amount, err := parseBig(body.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	exitNum, err := parseBig(body.ExitNum)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_exit_num")
		return
	}
	extraData, err := parseHexBytes(body.ExtraData)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_extra_data")
		return
	}

	data, err := gatewayabi.EncodeWithdrawalPayload(gatewayabi.WithdrawalPayload{
		ExitNum:   exitNum,
		ExtraData: extraData,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}

	cfg, ok := h.gw.Config()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "not_initialized")
		return
	}

	err = h.ch.DeliverFrom(r.Context(), cfg.Counterpart, func(ctx context.Context) error {
		return h.gw.FinalizeInboundTransfer(ctx, gateway.FinalizeParams{
			Token:  token,
			From:   from,
			To:     to,
			Amount: amount,
			Data:   data,
		})
	})
	if err != nil {
		writeGatewayError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"version":   "v1",
		"finalized": true,
	})
}

type registerTokenBody struct {
	Token    string `json:"token"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

func (h *handler) handleRegisterToken(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeJSONBody[registerTokenBody](w, r, h.cfg.MaxBodyBytes)
	if !ok {
		return
	}
	addr, ok := parseAddress(body.Token)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_token")
		return
	}

	tok := erc20.NewMemoryTokenWithMetadata(erc20.Metadata{
		Name:     body.Name,
		Symbol:   body.Symbol,
		Decimals: body.Decimals,
	})
	if err := h.bank.Register(addr, tok); err != nil {
		writeError(w, http.StatusConflict, "token_exists")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"version": "v1",
		"token":   addr.Hex(),
	})
}

type mintBody struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
}

func (h *handler) handleMint(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeJSONBody[mintBody](w, r, h.cfg.MaxBodyBytes)
	if !ok {
		return
	}
	tok, ok := h.devnetToken(w, r)
	if !ok {
		return
	}
	to, ok := parseAddress(body.To)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_to")
		return
	}
	amount, err := parseBig(body.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	if err := tok.Mint(to, amount); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"version": "v1", "minted": true})
}

type approveBody struct {
	Owner  string `json:"owner"`
	Amount string `json:"amount"`
}

// handleApprove grants the gateway an allowance on the owner's balance,
// which is the step a depositor performs on chain before calling the router.
func (h *handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeJSONBody[approveBody](w, r, h.cfg.MaxBodyBytes)
	if !ok {
		return
	}
	tok, ok := h.devnetToken(w, r)
	if !ok {
		return
	}
	owner, ok := parseAddress(body.Owner)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_owner")
		return
	}
	amount, err := parseBig(body.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	if err := tok.Approve(owner, h.gw.Address(), amount); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"version": "v1", "approved": true})
}

func (h *handler) devnetToken(w http.ResponseWriter, r *http.Request) (*erc20.MemoryToken, bool) {
	addr, ok := parseAddress(r.PathValue("token"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_token")
		return nil, false
	}
	tok, ok := h.bank.MemoryTokenAt(addr)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_token")
		return nil, false
	}
	return tok, true
}

func writeGatewayError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, gateway.ErrNotInitialized):
		writeError(w, http.StatusServiceUnavailable, "not_initialized")
	case errors.Is(err, gateway.ErrUnauthorized):
		writeError(w, http.StatusForbidden, "unauthorized_caller")
	case errors.Is(err, gatewayabi.ErrInvalidPayload):
		writeError(w, http.StatusBadRequest, "invalid_payload")
	case errors.Is(err, gateway.ErrTransferFailed):
		writeError(w, http.StatusUnprocessableEntity, "transfer_failed")
	case errors.Is(err, gateway.ErrInvalidConfig):
		writeError(w, http.StatusBadRequest, "invalid_request")
	default:
		writeError(w, http.StatusInternalServerError, "internal")
	}
}

func decodeJSONBody[T any](w http.ResponseWriter, r *http.Request, maxBytes int64) (T, bool) {
	var body T
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return body, false
	}
	if dec.More() {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return body, false
	}
	return body, true
}

func parseAddress(v string) (common.Address, bool) {
	v = strings.TrimSpace(v)
	if !common.IsHexAddress(v) {
		return common.Address{}, false
	}
	return common.HexToAddress(v), true
}

// parseBig accepts a decimal string; empty means zero.
func parseBig(v string) (*big.Int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return big.NewInt(0), nil
	}
	n, ok := new(big.Int).SetString(v, 10)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("httpapi: invalid integer %q", v)
	}
	return n, nil
}

func parseHexBytes(v string) ([]byte, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	return hexutil.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]any{
		"version": "v1",
		"error":   code,
	})
}

func checkBearer(header string, wantToken string) bool {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return false
	}
	got := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	return got == wantToken
}
