package gatewayabi

import (
	"bytes"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

func TestRouterPayload_RoundTrip(t *testing.T) {
	t.Parallel()

	in := RouterPayload{
		Sender:            common.HexToAddress("0x00000000000000000000000000000000000000aa"),
		MaxSubmissionCost: big.NewInt(123456789),
		ExtraData:         []byte{0xde, 0xad, 0xbe, 0xef},
	}

	b, err := EncodeRouterPayload(in)
	if err != nil {
		t.Fatalf("EncodeRouterPayload: %v", err)
	}

	out, err := DecodeRouterPayload(b)
	if err != nil {
		t.Fatalf("DecodeRouterPayload: %v", err)
	}
	if out.Sender != in.Sender {
		t.Fatalf("Sender: got %s want %s", out.Sender, in.Sender)
	}
	if out.MaxSubmissionCost.Cmp(in.MaxSubmissionCost) != 0 {
		t.Fatalf("MaxSubmissionCost: got %s want %s", out.MaxSubmissionCost, in.MaxSubmissionCost)
	}
	if !bytes.Equal(out.ExtraData, in.ExtraData) {
		t.Fatalf("ExtraData: got %x want %x", out.ExtraData, in.ExtraData)
	}
}

func TestRouterPayload_EmptyExtraData(t *testing.T) {
	t.Parallel()

	b, err := EncodeRouterPayload(RouterPayload{
		Sender:            common.HexToAddress("0x00000000000000000000000000000000000000aa"),
		MaxSubmissionCost: big.NewInt(0),
	})
	if err != nil {
		t.Fatalf("EncodeRouterPayload: %v", err)
	}
	out, err := DecodeRouterPayload(b)
	if err != nil {
		t.Fatalf("DecodeRouterPayload: %v", err)
	}
	if out.MaxSubmissionCost.Sign() != 0 {
		t.Fatalf("MaxSubmissionCost: got %s want 0", out.MaxSubmissionCost)
	}
	if len(out.ExtraData) != 0 {
		t.Fatalf("ExtraData: got %x want empty", out.ExtraData)
	}
}

func TestRouterPayload_RejectsNilCost(t *testing.T) {
	t.Parallel()

	_, err := EncodeRouterPayload(RouterPayload{})
	if !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("err: got %v want ErrInvalidPayload", err)
	}
}

func TestRouterPayload_RejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := DecodeRouterPayload([]byte{0x01, 0x02, 0x03})
	if !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("err: got %v want ErrInvalidPayload", err)
	}
}

func TestFinalizeInboundTransfer_RoundTrip(t *testing.T) {
	t.Parallel()

	deployData, err := EncodeDeployData(TokenMetadata{
		Name:   []byte{0x01, 0x02},
		Symbol: []byte{0x03},
		// Decimals deliberately absent.
	})
	if err != nil {
		t.Fatalf("EncodeDeployData: %v", err)
	}
	data, err := EncodeFinalizeData(deployData, []byte{0xff})
	if err != nil {
		t.Fatalf("EncodeFinalizeData: %v", err)
	}

	in := FinalizeCall{
		Token:  common.HexToAddress("0x0000000000000000000000000000000000000011"),
		From:   common.HexToAddress("0x0000000000000000000000000000000000000022"),
		To:     common.HexToAddress("0x0000000000000000000000000000000000000033"),
		Amount: big.NewInt(1000),
		Data:   data,
	}

	calldata, err := PackFinalizeInboundTransfer(in)
	if err != nil {
		t.Fatalf("PackFinalizeInboundTransfer: %v", err)
	}

	wantSel := crypto.Keccak256([]byte("finalizeInboundTransfer(address,address,address,uint256,bytes)"))[:4]
	if len(calldata) < 4 || !bytes.Equal(calldata[:4], wantSel) {
		t.Fatalf("selector: got %x want %x", calldata[:4], wantSel)
	}
	gotSel, err := FinalizeInboundTransferID()
	if err != nil {
		t.Fatalf("FinalizeInboundTransferID: %v", err)
	}
	if !bytes.Equal(gotSel, wantSel) {
		t.Fatalf("FinalizeInboundTransferID: got %x want %x", gotSel, wantSel)
	}

	out, err := UnpackFinalizeInboundTransfer(calldata)
	if err != nil {
		t.Fatalf("UnpackFinalizeInboundTransfer: %v", err)
	}
	if out.Token != in.Token || out.From != in.From || out.To != in.To {
		t.Fatalf("addresses mismatch: got %+v", out)
	}
	if out.Amount.Cmp(in.Amount) != 0 {
		t.Fatalf("Amount: got %s want %s", out.Amount, in.Amount)
	}
	if !bytes.Equal(out.Data, in.Data) {
		t.Fatalf("Data mismatch")
	}

	gotDeploy, gotExtra, err := DecodeFinalizeData(out.Data)
	if err != nil {
		t.Fatalf("DecodeFinalizeData: %v", err)
	}
	if !bytes.Equal(gotDeploy, deployData) {
		t.Fatalf("deployData mismatch")
	}
	if !bytes.Equal(gotExtra, []byte{0xff}) {
		t.Fatalf("extraData: got %x want ff", gotExtra)
	}

	md, err := DecodeDeployData(gotDeploy)
	if err != nil {
		t.Fatalf("DecodeDeployData: %v", err)
	}
	if !bytes.Equal(md.Name, []byte{0x01, 0x02}) || !bytes.Equal(md.Symbol, []byte{0x03}) {
		t.Fatalf("metadata mismatch: %+v", md)
	}
	if len(md.Decimals) != 0 {
		t.Fatalf("Decimals: got %x want empty", md.Decimals)
	}
}

func TestUnpackFinalizeInboundTransfer_WrongSelector(t *testing.T) {
	t.Parallel()

	calldata, err := PackFinalizeInboundTransfer(FinalizeCall{Amount: big.NewInt(1)})
	if err != nil {
		t.Fatalf("PackFinalizeInboundTransfer: %v", err)
	}
	calldata[0] ^= 0xff

	_, err = UnpackFinalizeInboundTransfer(calldata)
	if !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("err: got %v want ErrInvalidPayload", err)
	}
}

func TestWithdrawalPayload_RoundTrip(t *testing.T) {
	t.Parallel()

	in := WithdrawalPayload{ExitNum: big.NewInt(7), ExtraData: []byte{0xaa, 0xbb}}

	b, err := EncodeWithdrawalPayload(in)
	if err != nil {
		t.Fatalf("EncodeWithdrawalPayload: %v", err)
	}
	out, err := DecodeWithdrawalPayload(b)
	if err != nil {
		t.Fatalf("DecodeWithdrawalPayload: %v", err)
	}
	if out.ExitNum.Cmp(in.ExitNum) != 0 {
		t.Fatalf("ExitNum: got %s want %s", out.ExitNum, in.ExitNum)
	}
	if !bytes.Equal(out.ExtraData, in.ExtraData) {
		t.Fatalf("ExtraData: got %x want %x", out.ExtraData, in.ExtraData)
	}
}

func TestDepositResult_RoundTrip(t *testing.T) {
	t.Parallel()

	b, err := EncodeDepositResult(big.NewInt(42))
	if err != nil {
		t.Fatalf("EncodeDepositResult: %v", err)
	}
	if len(b) != 32 {
		t.Fatalf("encoded length: got %d want 32", len(b))
	}
	seq, err := DecodeDepositResult(b)
	if err != nil {
		t.Fatalf("DecodeDepositResult: %v", err)
	}
	if seq.Cmp(big.NewInt(42)) != 0 {
		t.Fatalf("seq: got %s want 42", seq)
	}
}
