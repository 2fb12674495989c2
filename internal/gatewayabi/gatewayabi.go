// Package gatewayabi defines the byte-exact calldata contract between the
// base-chain gateway and its counterpart on the secondary chain. Field order
// and nesting are frozen wire format: any change requires a coordinated
// redeploy of both sides.
package gatewayabi

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

var ErrInvalidPayload = errors.New("gatewayabi: invalid payload")

// RouterPayload is the two-level deposit payload delivered to the gateway.
// The outer (sender, inner) layer is added by the router; the inner
// (maxSubmissionCost, extraData) layer is user-supplied.
type RouterPayload struct {
	Sender            common.Address
	MaxSubmissionCost *big.Int
	ExtraData         []byte
}

// TokenMetadata holds the raw ABI return bytes of the optional ERC20
// metadata accessors. A field is empty when the token does not implement
// the accessor or the probe reverted.
type TokenMetadata struct {
	Name     []byte
	Symbol   []byte
	Decimals []byte
}

// FinalizeCall is the decoded form of a finalizeInboundTransfer invocation.
type FinalizeCall struct {
	Token  common.Address
	From   common.Address
	To     common.Address
	Amount *big.Int
	Data   []byte
}

// WithdrawalPayload is the opaque data blob attached to an inbound finalize
// call: the counterpart's exit number plus pass-through extra data.
type WithdrawalPayload struct {
	ExitNum   *big.Int
	ExtraData []byte
}

var (
	initOnce sync.Once
	initErr  error

	gatewayABI abi.ABI

	addressBytesArgs abi.Arguments // (address, bytes)
	uint256BytesArgs abi.Arguments // (uint256, bytes)
	bytesPairArgs    abi.Arguments // (bytes, bytes)
	bytesTripleArgs  abi.Arguments // (bytes, bytes, bytes)
	uint256Args      abi.Arguments // (uint256)
)

func initABI() error {
	initOnce.Do(func() {
		var err error

		gatewayABI, err = abi.JSON(strings.NewReader(gatewayABIJSON))
		if err != nil {
			initErr = fmt.Errorf("gatewayabi: parse gateway ABI: %w", err)
			return
		}

		mk := func(types ...string) (abi.Arguments, error) {
			out := make(abi.Arguments, 0, len(types))
			for _, t := range types {
				ty, err := abi.NewType(t, "", nil)
				if err != nil {
					return nil, fmt.Errorf("gatewayabi: build %s ABI type: %w", t, err)
				}
				out = append(out, abi.Argument{Type: ty})
			}
			return out, nil
		}

		if addressBytesArgs, err = mk("address", "bytes"); err != nil {
			initErr = err
			return
		}
		if uint256BytesArgs, err = mk("uint256", "bytes"); err != nil {
			initErr = err
			return
		}
		if bytesPairArgs, err = mk("bytes", "bytes"); err != nil {
			initErr = err
			return
		}
		if bytesTripleArgs, err = mk("bytes", "bytes", "bytes"); err != nil {
			initErr = err
			return
		}
		if uint256Args, err = mk("uint256"); err != nil {
			initErr = err
			return
		}
	})
	return initErr
}

// EncodeRouterPayload produces the router-side deposit payload:
// abi.encode(sender, abi.encode(maxSubmissionCost, extraData)).
func EncodeRouterPayload(p RouterPayload) ([]byte, error) {
	if err := initABI(); err != nil {
		return nil, err
	}
	if p.MaxSubmissionCost == nil || p.MaxSubmissionCost.Sign() < 0 {
		return nil, fmt.Errorf("%w: MaxSubmissionCost must be >= 0", ErrInvalidPayload)
	}

	inner, err := uint256BytesArgs.Pack(p.MaxSubmissionCost, normBytes(p.ExtraData))
	if err != nil {
		return nil, fmt.Errorf("gatewayabi: pack inner deposit payload: %w", err)
	}
	outer, err := addressBytesArgs.Pack(p.Sender, inner)
	if err != nil {
		return nil, fmt.Errorf("gatewayabi: pack outer deposit payload: %w", err)
	}
	return outer, nil
}

// DecodeRouterPayload reverses EncodeRouterPayload.
func DecodeRouterPayload(b []byte) (RouterPayload, error) {
	if err := initABI(); err != nil {
		return RouterPayload{}, err
	}

	outer, err := addressBytesArgs.Unpack(b)
	if err != nil {
		return RouterPayload{}, fmt.Errorf("%w: outer deposit payload: %v", ErrInvalidPayload, err)
	}
	sender, ok0 := outer[0].(common.Address)
	innerRaw, ok1 := outer[1].([]byte)
	if !ok0 || !ok1 {
		return RouterPayload{}, fmt.Errorf("%w: outer deposit payload types", ErrInvalidPayload)
	}

	inner, err := uint256BytesArgs.Unpack(innerRaw)
	if err != nil {
		return RouterPayload{}, fmt.Errorf("%w: inner deposit payload: %v", ErrInvalidPayload, err)
	}
	cost, ok0 := inner[0].(*big.Int)
	extra, ok1 := inner[1].([]byte)
	if !ok0 || !ok1 {
		return RouterPayload{}, fmt.Errorf("%w: inner deposit payload types", ErrInvalidPayload)
	}

	return RouterPayload{Sender: sender, MaxSubmissionCost: cost, ExtraData: extra}, nil
}

// EncodeDeployData packs the metadata triple carried to the counterpart so
// it can deploy or describe the paired token: abi.encode(name, symbol,
// decimals), each field the raw return bytes of the probe (possibly empty).
func EncodeDeployData(md TokenMetadata) ([]byte, error) {
	if err := initABI(); err != nil {
		return nil, err
	}
	b, err := bytesTripleArgs.Pack(normBytes(md.Name), normBytes(md.Symbol), normBytes(md.Decimals))
	if err != nil {
		return nil, fmt.Errorf("gatewayabi: pack deploy data: %w", err)
	}
	return b, nil
}

// DecodeDeployData reverses EncodeDeployData.
func DecodeDeployData(b []byte) (TokenMetadata, error) {
	if err := initABI(); err != nil {
		return TokenMetadata{}, err
	}
	vals, err := bytesTripleArgs.Unpack(b)
	if err != nil {
		return TokenMetadata{}, fmt.Errorf("%w: deploy data: %v", ErrInvalidPayload, err)
	}
	name, ok0 := vals[0].([]byte)
	symbol, ok1 := vals[1].([]byte)
	decimals, ok2 := vals[2].([]byte)
	if !ok0 || !ok1 || !ok2 {
		return TokenMetadata{}, fmt.Errorf("%w: deploy data types", ErrInvalidPayload)
	}
	return TokenMetadata{Name: name, Symbol: symbol, Decimals: decimals}, nil
}

// EncodeFinalizeData packs the data argument of an outbound finalize call:
// abi.encode(deployData, extraData).
func EncodeFinalizeData(deployData, extraData []byte) ([]byte, error) {
	if err := initABI(); err != nil {
		return nil, err
	}
	b, err := bytesPairArgs.Pack(normBytes(deployData), normBytes(extraData))
	if err != nil {
		return nil, fmt.Errorf("gatewayabi: pack finalize data: %w", err)
	}
	return b, nil
}

// DecodeFinalizeData reverses EncodeFinalizeData.
func DecodeFinalizeData(b []byte) (deployData, extraData []byte, err error) {
	if err := initABI(); err != nil {
		return nil, nil, err
	}
	vals, err := bytesPairArgs.Unpack(b)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: finalize data: %v", ErrInvalidPayload, err)
	}
	deployData, ok0 := vals[0].([]byte)
	extraData, ok1 := vals[1].([]byte)
	if !ok0 || !ok1 {
		return nil, nil, fmt.Errorf("%w: finalize data types", ErrInvalidPayload)
	}
	return deployData, extraData, nil
}

// PackFinalizeInboundTransfer builds the selector-tagged calldata the
// counterpart decodes on delivery.
func PackFinalizeInboundTransfer(c FinalizeCall) ([]byte, error) {
	if err := initABI(); err != nil {
		return nil, err
	}
	if c.Amount == nil || c.Amount.Sign() < 0 {
		return nil, fmt.Errorf("%w: Amount must be >= 0", ErrInvalidPayload)
	}
	b, err := gatewayABI.Pack("finalizeInboundTransfer", c.Token, c.From, c.To, c.Amount, normBytes(c.Data))
	if err != nil {
		return nil, fmt.Errorf("gatewayabi: pack finalizeInboundTransfer: %w", err)
	}
	return b, nil
}

// UnpackFinalizeInboundTransfer reverses PackFinalizeInboundTransfer,
// checking the selector.
func UnpackFinalizeInboundTransfer(calldata []byte) (FinalizeCall, error) {
	if err := initABI(); err != nil {
		return FinalizeCall{}, err
	}
	m := gatewayABI.Methods["finalizeInboundTransfer"]
	if len(calldata) < 4 || string(calldata[:4]) != string(m.ID) {
		return FinalizeCall{}, fmt.Errorf("%w: finalizeInboundTransfer selector mismatch", ErrInvalidPayload)
	}
	vals, err := m.Inputs.Unpack(calldata[4:])
	if err != nil {
		return FinalizeCall{}, fmt.Errorf("%w: finalizeInboundTransfer args: %v", ErrInvalidPayload, err)
	}
	token, ok0 := vals[0].(common.Address)
	from, ok1 := vals[1].(common.Address)
	to, ok2 := vals[2].(common.Address)
	amount, ok3 := vals[3].(*big.Int)
	data, ok4 := vals[4].([]byte)
	if !ok0 || !ok1 || !ok2 || !ok3 || !ok4 {
		return FinalizeCall{}, fmt.Errorf("%w: finalizeInboundTransfer arg types", ErrInvalidPayload)
	}
	return FinalizeCall{Token: token, From: from, To: to, Amount: amount, Data: data}, nil
}

// FinalizeInboundTransferID returns the 4-byte selector of the finalize
// entry point.
func FinalizeInboundTransferID() ([]byte, error) {
	if err := initABI(); err != nil {
		return nil, err
	}
	id := gatewayABI.Methods["finalizeInboundTransfer"].ID
	return append([]byte(nil), id...), nil
}

// EncodeWithdrawalPayload packs the inbound data blob:
// abi.encode(exitNum, extraData).
func EncodeWithdrawalPayload(p WithdrawalPayload) ([]byte, error) {
	if err := initABI(); err != nil {
		return nil, err
	}
	if p.ExitNum == nil || p.ExitNum.Sign() < 0 {
		return nil, fmt.Errorf("%w: ExitNum must be >= 0", ErrInvalidPayload)
	}
	b, err := uint256BytesArgs.Pack(p.ExitNum, normBytes(p.ExtraData))
	if err != nil {
		return nil, fmt.Errorf("gatewayabi: pack withdrawal payload: %w", err)
	}
	return b, nil
}

// DecodeWithdrawalPayload reverses EncodeWithdrawalPayload.
func DecodeWithdrawalPayload(b []byte) (WithdrawalPayload, error) {
	if err := initABI(); err != nil {
		return WithdrawalPayload{}, err
	}
	vals, err := uint256BytesArgs.Unpack(b)
	if err != nil {
		return WithdrawalPayload{}, fmt.Errorf("%w: withdrawal payload: %v", ErrInvalidPayload, err)
	}
	exitNum, ok0 := vals[0].(*big.Int)
	extra, ok1 := vals[1].([]byte)
	if !ok0 || !ok1 {
		return WithdrawalPayload{}, fmt.Errorf("%w: withdrawal payload types", ErrInvalidPayload)
	}
	return WithdrawalPayload{ExitNum: exitNum, ExtraData: extra}, nil
}

// EncodeDepositResult packs the deposit return value: abi.encode(seqNum).
func EncodeDepositResult(seqNum *big.Int) ([]byte, error) {
	if err := initABI(); err != nil {
		return nil, err
	}
	if seqNum == nil || seqNum.Sign() < 0 {
		return nil, fmt.Errorf("%w: sequence number must be >= 0", ErrInvalidPayload)
	}
	b, err := uint256Args.Pack(seqNum)
	if err != nil {
		return nil, fmt.Errorf("gatewayabi: pack deposit result: %w", err)
	}
	return b, nil
}

// DecodeDepositResult reverses EncodeDepositResult.
func DecodeDepositResult(b []byte) (*big.Int, error) {
	if err := initABI(); err != nil {
		return nil, err
	}
	vals, err := uint256Args.Unpack(b)
	if err != nil {
		return nil, fmt.Errorf("%w: deposit result: %v", ErrInvalidPayload, err)
	}
	seqNum, ok := vals[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: deposit result type", ErrInvalidPayload)
	}
	return seqNum, nil
}

// normBytes maps nil to an empty slice so packed payloads are canonical.
func normBytes(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

const gatewayABIJSON = `[
  {
    "inputs": [
      {"internalType":"address","name":"token","type":"address"},
      {"internalType":"address","name":"from","type":"address"},
      {"internalType":"address","name":"to","type":"address"},
      {"internalType":"uint256","name":"amount","type":"uint256"},
      {"internalType":"bytes","name":"data","type":"bytes"}
    ],
    "name":"finalizeInboundTransfer",
    "outputs":[],
    "stateMutability":"payable",
    "type":"function"
  }
]`
