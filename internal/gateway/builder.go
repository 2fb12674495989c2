package gateway

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/basebridge/gateway-l1/internal/erc20"
	"github.com/basebridge/gateway-l1/internal/gatewayabi"
)

// CalldataBuilder composes the calldata the counterpart executes on message
// delivery. One implementation per token variant; StandardBuilder covers
// plain ERC20.
type CalldataBuilder interface {
	BuildFinalizeCalldata(ctx context.Context, token, from, to common.Address, amount *big.Int, extraData []byte) ([]byte, error)
}

// StandardBuilder builds finalize calldata for standard ERC20 tokens,
// attaching probed metadata so the counterpart can deploy or describe the
// paired token. Probe failures degrade to empty fields.
type StandardBuilder struct {
	prober erc20.StaticCaller
}

func NewStandardBuilder(prober erc20.StaticCaller) (*StandardBuilder, error) {
	if prober == nil {
		return nil, fmt.Errorf("%w: nil metadata prober", ErrInvalidConfig)
	}
	return &StandardBuilder{prober: prober}, nil
}

func (b *StandardBuilder) BuildFinalizeCalldata(ctx context.Context, token, from, to common.Address, amount *big.Int, extraData []byte) ([]byte, error) {
	md := erc20.ProbeMetadata(ctx, b.prober, token)

	deployData, err := gatewayabi.EncodeDeployData(md)
	if err != nil {
		return nil, err
	}
	data, err := gatewayabi.EncodeFinalizeData(deployData, extraData)
	if err != nil {
		return nil, err
	}
	return gatewayabi.PackFinalizeInboundTransfer(gatewayabi.FinalizeCall{
		Token:  token,
		From:   from,
		To:     to,
		Amount: amount,
		Data:   data,
	})
}
