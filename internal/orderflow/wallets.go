package orderflow

import (
	"math"
	"math/big"
	"sort"

	"uniswap-flow-lab/internal/domain"
)

// WalletSet holds per-wallet aggregates plus first-seen iteration order so
// downstream ranking is deterministic.
type WalletSet struct {
	ByAddress map[string]*domain.WalletActivity
	Order     []string // addresses in first-seen order
}

// AggregateWallets groups events by recipient address and accumulates counts,
// volumes and net positions. The recipient is the effective counterparty of a
// swap; the sender is usually a router contract.
func AggregateWallets(events []*domain.SwapEvent) *WalletSet {
	set := &WalletSet{ByAddress: make(map[string]*domain.WalletActivity)}

	for _, e := range events {
		addr := e.Recipient
		w, ok := set.ByAddress[addr]
		if !ok {
			w = &domain.WalletActivity{Address: addr, FirstSeen: e.Timestamp}
			set.ByAddress[addr] = w
			set.Order = append(set.Order, addr)
		}
		w.LastSeen = e.Timestamp

		amt0 := bigAbsFloat(e.Amount0)
		amt1 := bigAbsFloat(e.Amount1)

		if e.IsBuy() {
			w.BuyCount++
			w.BuyVolumeToken0 += amt0
			w.BuyVolumeToken1 += amt1
		} else {
			w.SellCount++
			w.SellVolumeToken0 += amt0
			w.SellVolumeToken1 += amt1
		}

		// A received (negative) amount contributes positively to net position.
		w.NetToken0 += -bigFloat(e.Amount0)
		w.NetToken1 += -bigFloat(e.Amount1)

		w.Txs = append(w.Txs, domain.WalletTx{
			Timestamp: e.Timestamp,
			Direction: e.Direction,
			Amount0:   bigFloat(e.Amount0),
			Amount1:   bigFloat(e.Amount1),
			Tick:      e.Tick,
		})
	}

	return set
}

// IdentifyWhales ranks wallets by total token0 volume descending and returns
// the top thresholdPct percent, with a floor of one wallet.
func IdentifyWhales(set *WalletSet, thresholdPct float64) []*domain.Whale {
	if set == nil || len(set.ByAddress) == 0 {
		return nil
	}

	ranked := make([]*domain.WalletActivity, 0, len(set.Order))
	for _, addr := range set.Order {
		ranked = append(ranked, set.ByAddress[addr])
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TotalVolumeToken0() > ranked[j].TotalVolumeToken0()
	})

	whaleCount := int(float64(len(ranked)) * thresholdPct / 100)
	if whaleCount < 1 {
		whaleCount = 1
	}

	whales := make([]*domain.Whale, 0, whaleCount)
	for _, w := range ranked[:whaleCount] {
		behavior := domain.BehaviorNeutral
		if w.NetToken0 > 0 {
			behavior = domain.BehaviorAccumulating
		} else if w.NetToken0 < 0 {
			behavior = domain.BehaviorDistributing
		}

		whales = append(whales, &domain.Whale{
			Address:     w.Address,
			TotalVolume: w.TotalVolumeToken0(),
			NetToken0:   w.NetToken0,
			NetToken1:   w.NetToken1,
			BuyCount:    w.BuyCount,
			SellCount:   w.SellCount,
			Behavior:    behavior,
			FirstSeen:   w.FirstSeen,
			LastSeen:    w.LastSeen,
		})
	}
	return whales
}

// bigFloat converts a big.Int to float64, nil-safe.
func bigFloat(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}

// bigAbsFloat converts |v| to float64, nil-safe.
func bigAbsFloat(v *big.Int) float64 {
	return math.Abs(bigFloat(v))
}
