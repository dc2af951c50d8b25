package evm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Method selectors for the V3 pool read calls.
var (
	slot0Selector     = crypto.Keccak256([]byte("slot0()"))[:4]
	liquiditySelector = crypto.Keccak256([]byte("liquidity()"))[:4]
)

// PoolState is a point-in-time read of a pool's price and liquidity.
type PoolState struct {
	SqrtPriceX96 *big.Int
	Tick         int
	Liquidity    *big.Int
}

// PoolState reads slot0 and liquidity from a pool contract at the given
// block. A zero block reads the latest state.
func (c *Client) PoolState(ctx context.Context, address common.Address, block uint64) (PoolState, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var at *big.Int
	if block > 0 {
		at = new(big.Int).SetUint64(block)
	}

	slot0, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &address, Data: slot0Selector}, at)
	if err != nil {
		return PoolState{}, fmt.Errorf("call slot0 on %s: %w", address.Hex(), err)
	}
	if len(slot0) < 64 {
		return PoolState{}, fmt.Errorf("call slot0 on %s: short return of %d bytes", address.Hex(), len(slot0))
	}

	liq, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &address, Data: liquiditySelector}, at)
	if err != nil {
		return PoolState{}, fmt.Errorf("call liquidity on %s: %w", address.Hex(), err)
	}
	if len(liq) < 32 {
		return PoolState{}, fmt.Errorf("call liquidity on %s: short return of %d bytes", address.Hex(), len(liq))
	}

	return PoolState{
		SqrtPriceX96: new(big.Int).SetBytes(slot0[:32]),
		Tick:         int(signedWord(slot0[32:64]).Int64()),
		Liquidity:    new(big.Int).SetBytes(liq[:32]),
	}, nil
}

// signedWord decodes one 32-byte ABI word as a signed integer.
func signedWord(word []byte) *big.Int {
	v := new(big.Int).SetBytes(word)
	if word[0]&0x80 != 0 {
		v.Sub(v, new(big.Int).Lsh(big.NewInt(1), 256))
	}
	return v
}
