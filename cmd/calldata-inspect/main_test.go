package main

import (
	"bytes"
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/basebridge/gateway-l1/internal/gatewayabi"
)

func runAndDecode(t *testing.T, args []string) map[string]any {
	t.Helper()

	var out bytes.Buffer
	if err := runMain(args, &out); err != nil {
		t.Fatalf("runMain: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("decode output %q: %v", out.String(), err)
	}
	return decoded
}

func TestInspectRouterPayload(t *testing.T) {
	t.Parallel()

	sender := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	payload, err := gatewayabi.EncodeRouterPayload(gatewayabi.RouterPayload{
		Sender:            sender,
		MaxSubmissionCost: big.NewInt(77),
		ExtraData:         []byte{0xde, 0xad},
	})
	if err != nil {
		t.Fatalf("EncodeRouterPayload: %v", err)
	}

	out := runAndDecode(t, []string{"--kind", "router", "--data", hexutil.Encode(payload)})
	if got, want := out["sender"], sender.Hex(); got != want {
		t.Fatalf("sender mismatch: got %v want %v", got, want)
	}
	if got, want := out["maxSubmissionCost"], "77"; got != want {
		t.Fatalf("maxSubmissionCost mismatch: got %v want %v", got, want)
	}
	if got, want := out["extraData"], "0xdead"; got != want {
		t.Fatalf("extraData mismatch: got %v want %v", got, want)
	}
}

func TestInspectFinalizeCalldata(t *testing.T) {
	t.Parallel()

	deployData, err := gatewayabi.EncodeDeployData(gatewayabi.TokenMetadata{
		Name:     []byte("Wrapped Ether"),
		Symbol:   []byte("WETH"),
		Decimals: []byte{18},
	})
	if err != nil {
		t.Fatalf("EncodeDeployData: %v", err)
	}
	finalizeData, err := gatewayabi.EncodeFinalizeData(deployData, []byte{0x01})
	if err != nil {
		t.Fatalf("EncodeFinalizeData: %v", err)
	}
	calldata, err := gatewayabi.PackFinalizeInboundTransfer(gatewayabi.FinalizeCall{
		Token:  common.HexToAddress("0x11"),
		From:   common.HexToAddress("0xa1"),
		To:     common.HexToAddress("0xb2"),
		Amount: big.NewInt(500),
		Data:   finalizeData,
	})
	if err != nil {
		t.Fatalf("PackFinalizeInboundTransfer: %v", err)
	}

	out := runAndDecode(t, []string{"--kind", "finalize", "--data", hexutil.Encode(calldata)})
	if got, want := out["amount"], "500"; got != want {
		t.Fatalf("amount mismatch: got %v want %v", got, want)
	}
	if got, want := out["extraData"], "0x01"; got != want {
		t.Fatalf("extraData mismatch: got %v want %v", got, want)
	}
	deploy, ok := out["deployData"].(map[string]any)
	if !ok {
		t.Fatalf("expected deployData object, got %v", out["deployData"])
	}
	if got, want := deploy["symbol"], hexutil.Encode([]byte("WETH")); got != want {
		t.Fatalf("symbol mismatch: got %v want %v", got, want)
	}
}

func TestInspectWithdrawalPayload(t *testing.T) {
	t.Parallel()

	payload, err := gatewayabi.EncodeWithdrawalPayload(gatewayabi.WithdrawalPayload{
		ExitNum:   big.NewInt(9),
		ExtraData: nil,
	})
	if err != nil {
		t.Fatalf("EncodeWithdrawalPayload: %v", err)
	}

	out := runAndDecode(t, []string{"--kind", "withdrawal", "--data", hexutil.Encode(payload)})
	if got, want := out["exitNum"], "9"; got != want {
		t.Fatalf("exitNum mismatch: got %v want %v", got, want)
	}
}

func TestInspectRejectsBadInput(t *testing.T) {
	t.Parallel()

	if err := runMain([]string{"--kind", "router"}, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error for missing data")
	}
	if err := runMain([]string{"--kind", "bogus", "--data", "0x00"}, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error for unsupported kind")
	}
	if err := runMain([]string{"--kind", "router", "--data", "zz"}, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error for invalid hex")
	}
}
