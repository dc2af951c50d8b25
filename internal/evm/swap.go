package evm

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"uniswap-flow-lab/internal/domain"
)

// SwapEventSignature is the canonical V3 Swap event signature.
const SwapEventSignature = "Swap(address,address,int256,int256,uint160,uint128,int24)"

// SwapEventTopic is topic0 of every V3 Swap log.
var SwapEventTopic = crypto.Keccak256Hash([]byte(SwapEventSignature))

// swapDataArgs describes the non-indexed Swap fields, in data layout order.
var swapDataArgs = mustSwapArgs()

func mustSwapArgs() abi.Arguments {
	newType := func(t string) abi.Type {
		typ, err := abi.NewType(t, "", nil)
		if err != nil {
			panic(fmt.Sprintf("abi type %s: %v", t, err))
		}
		return typ
	}
	return abi.Arguments{
		{Name: "amount0", Type: newType("int256")},
		{Name: "amount1", Type: newType("int256")},
		{Name: "sqrtPriceX96", Type: newType("uint160")},
		{Name: "liquidity", Type: newType("uint128")},
		{Name: "tick", Type: newType("int24")},
	}
}

// DecodeSwapLog decodes one raw Swap log into a SwapEvent.
// The block timestamp is not part of the log and is filled in by the caller.
func DecodeSwapLog(lg types.Log) (*domain.SwapEvent, error) {
	if len(lg.Topics) != 3 {
		return nil, fmt.Errorf("swap log %s/%d: expected 3 topics, got %d", lg.TxHash.Hex(), lg.Index, len(lg.Topics))
	}
	if lg.Topics[0] != SwapEventTopic {
		return nil, fmt.Errorf("swap log %s/%d: unexpected topic0 %s", lg.TxHash.Hex(), lg.Index, lg.Topics[0].Hex())
	}

	values, err := swapDataArgs.Unpack(lg.Data)
	if err != nil {
		return nil, fmt.Errorf("swap log %s/%d: unpack data: %w", lg.TxHash.Hex(), lg.Index, err)
	}
	if len(values) != 5 {
		return nil, fmt.Errorf("swap log %s/%d: expected 5 data fields, got %d", lg.TxHash.Hex(), lg.Index, len(values))
	}

	amount0, ok0 := values[0].(*big.Int)
	amount1, ok1 := values[1].(*big.Int)
	sqrtPrice, ok2 := values[2].(*big.Int)
	liquidity, ok3 := values[3].(*big.Int)
	tick, ok4 := values[4].(*big.Int)
	if !ok0 || !ok1 || !ok2 || !ok3 || !ok4 {
		return nil, fmt.Errorf("swap log %s/%d: unexpected field types", lg.TxHash.Hex(), lg.Index)
	}

	sender := common.BytesToAddress(lg.Topics[1].Bytes())
	recipient := common.BytesToAddress(lg.Topics[2].Bytes())

	return &domain.SwapEvent{
		Pool:         strings.ToLower(lg.Address.Hex()),
		Block:        lg.BlockNumber,
		TxHash:       lg.TxHash.Hex(),
		LogIndex:     lg.Index,
		Sender:       sender.Hex(),
		Recipient:    recipient.Hex(),
		Amount0:      amount0,
		Amount1:      amount1,
		SqrtPriceX96: sqrtPrice,
		Liquidity:    liquidity,
		Tick:         int(tick.Int64()),
		Direction:    domain.DeriveDirection(amount0),
	}, nil
}
