package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/basebridge/gateway-l1/internal/gatewayabi"
)

func main() {
	if err := runMain(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runMain(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("calldata-inspect", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	kind := fs.String("kind", "", "payload kind: router|finalize|withdrawal|deposit-result")
	dataHex := fs.String("data", "", "0x-prefixed payload hex")
	dataFile := fs.String("data-file", "", "file holding the payload hex; use instead of --data")
	outputPath := fs.String("output", "-", "output path or '-' for stdout")

	if err := fs.Parse(args); err != nil {
		return err
	}

	raw := strings.TrimSpace(*dataHex)
	if strings.TrimSpace(*dataFile) != "" {
		if raw != "" {
			return errors.New("use only one of --data or --data-file")
		}
		b, err := os.ReadFile(strings.TrimSpace(*dataFile))
		if err != nil {
			return fmt.Errorf("read data file: %w", err)
		}
		raw = strings.TrimSpace(string(b))
	}
	if raw == "" {
		return errors.New("--data or --data-file is required")
	}
	if !strings.HasPrefix(raw, "0x") {
		raw = "0x" + raw
	}
	data, err := hexutil.Decode(raw)
	if err != nil {
		return fmt.Errorf("decode payload hex: %w", err)
	}

	out, err := inspect(strings.ToLower(strings.TrimSpace(*kind)), data)
	if err != nil {
		return err
	}

	encoded, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	encoded = append(encoded, '\n')

	if strings.TrimSpace(*outputPath) == "" || *outputPath == "-" {
		_, err := stdout.Write(encoded)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(*outputPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(*outputPath, encoded, 0o644)
}

func inspect(kind string, data []byte) (any, error) {
	switch kind {
	case "router":
		p, err := gatewayabi.DecodeRouterPayload(data)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"kind":              "router",
			"sender":            p.Sender.Hex(),
			"maxSubmissionCost": p.MaxSubmissionCost.String(),
			"extraData":         hexutil.Encode(p.ExtraData),
		}, nil

	case "finalize":
		c, err := gatewayabi.UnpackFinalizeInboundTransfer(data)
		if err != nil {
			return nil, err
		}
		deployData, extraData, err := gatewayabi.DecodeFinalizeData(c.Data)
		if err != nil {
			return nil, err
		}
		out := map[string]any{
			"kind":      "finalize",
			"token":     c.Token.Hex(),
			"from":      c.From.Hex(),
			"to":        c.To.Hex(),
			"amount":    c.Amount.String(),
			"extraData": hexutil.Encode(extraData),
		}
		if len(deployData) > 0 {
			md, err := gatewayabi.DecodeDeployData(deployData)
			if err != nil {
				return nil, err
			}
			out["deployData"] = map[string]any{
				"name":     hexutil.Encode(md.Name),
				"symbol":   hexutil.Encode(md.Symbol),
				"decimals": hexutil.Encode(md.Decimals),
			}
		}
		return out, nil

	case "withdrawal":
		p, err := gatewayabi.DecodeWithdrawalPayload(data)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"kind":      "withdrawal",
			"exitNum":   p.ExitNum.String(),
			"extraData": hexutil.Encode(p.ExtraData),
		}, nil

	case "deposit-result":
		seq, err := gatewayabi.DecodeDepositResult(data)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"kind":           "deposit-result",
			"sequenceNumber": seq.String(),
		}, nil

	default:
		return nil, fmt.Errorf("unsupported --kind %q", kind)
	}
}
