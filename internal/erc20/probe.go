package erc20

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/basebridge/gateway-l1/internal/gatewayabi"
)

// StaticCaller executes a read-only call against a token contract and
// returns the raw ABI return bytes.
type StaticCaller interface {
	StaticCall(ctx context.Context, token common.Address, calldata []byte) ([]byte, error)
}

var (
	metaOnce sync.Once
	metaErr  error
	metaABI  abi.ABI
)

func initMetaABI() error {
	metaOnce.Do(func() {
		var err error
		metaABI, err = abi.JSON(strings.NewReader(metadataABIJSON))
		if err != nil {
			metaErr = fmt.Errorf("erc20: parse metadata ABI: %w", err)
		}
	})
	return metaErr
}

// ProbeMetadata performs the tolerant name/symbol/decimals probes. A failed
// probe degrades to empty bytes for that field rather than failing the
// caller; this is the one deliberate exception to the all-or-nothing error
// model, so nonstandard tokens still bridge with degraded metadata.
func ProbeMetadata(ctx context.Context, c StaticCaller, token common.Address) gatewayabi.TokenMetadata {
	if c == nil {
		return gatewayabi.TokenMetadata{}
	}
	return gatewayabi.TokenMetadata{
		Name:     tryCall(ctx, c, token, "name"),
		Symbol:   tryCall(ctx, c, token, "symbol"),
		Decimals: tryCall(ctx, c, token, "decimals"),
	}
}

func tryCall(ctx context.Context, c StaticCaller, token common.Address, method string) []byte {
	if err := initMetaABI(); err != nil {
		return nil
	}
	calldata, err := metaABI.Pack(method)
	if err != nil {
		return nil
	}
	out, err := c.StaticCall(ctx, token, calldata)
	if err != nil {
		return nil
	}
	return out
}

// ContractCaller is the slice of an ethclient the RPC prober needs.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// RPCCaller probes live token contracts through an RPC client.
type RPCCaller struct {
	caller ContractCaller
}

func NewRPCCaller(caller ContractCaller) (*RPCCaller, error) {
	if caller == nil {
		return nil, fmt.Errorf("%w: nil contract caller", ErrInvalidConfig)
	}
	return &RPCCaller{caller: caller}, nil
}

func (c *RPCCaller) StaticCall(ctx context.Context, token common.Address, calldata []byte) ([]byte, error) {
	out, err := c.caller.CallContract(ctx, ethereum.CallMsg{To: &token, Data: calldata}, nil)
	if err != nil {
		return nil, fmt.Errorf("erc20: static call %s: %w", token, err)
	}
	return out, nil
}

// BankCaller answers metadata probes from a memory bank, returning the same
// ABI return bytes a deployed token would.
type BankCaller struct {
	bank *MemoryBank
}

func NewBankCaller(bank *MemoryBank) (*BankCaller, error) {
	if bank == nil {
		return nil, fmt.Errorf("%w: nil bank", ErrInvalidConfig)
	}
	return &BankCaller{bank: bank}, nil
}

func (c *BankCaller) StaticCall(_ context.Context, token common.Address, calldata []byte) ([]byte, error) {
	if err := initMetaABI(); err != nil {
		return nil, err
	}
	t, ok := c.bank.MemoryTokenAt(token)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownToken, token)
	}
	md, ok := t.Metadata()
	if !ok {
		return nil, fmt.Errorf("erc20: token %s has no metadata accessors", token)
	}
	if len(calldata) < 4 {
		return nil, fmt.Errorf("erc20: calldata too short")
	}

	method, err := metaABI.MethodById(calldata[:4])
	if err != nil {
		return nil, fmt.Errorf("erc20: unknown metadata selector %x", calldata[:4])
	}
	switch method.Name {
	case "name":
		return method.Outputs.Pack(md.Name)
	case "symbol":
		return method.Outputs.Pack(md.Symbol)
	case "decimals":
		return method.Outputs.Pack(md.Decimals)
	default:
		return nil, fmt.Errorf("erc20: unsupported metadata method %s", method.Name)
	}
}

const metadataABIJSON = `[
  {"inputs":[],"name":"name","outputs":[{"internalType":"string","name":"","type":"string"}],"stateMutability":"view","type":"function"},
  {"inputs":[],"name":"symbol","outputs":[{"internalType":"string","name":"","type":"string"}],"stateMutability":"view","type":"function"},
  {"inputs":[],"name":"decimals","outputs":[{"internalType":"uint8","name":"","type":"uint8"}],"stateMutability":"view","type":"function"}
]`
