package orderflow

import (
	"math"
	"sort"
	"time"

	"uniswap-flow-lab/internal/domain"
)

// buySellRatioCap is the sentinel for an all-buy window (sell volume zero).
const buySellRatioCap = 999.0

// ComputeFlowMetrics computes aggregate order-flow metrics over a window.
func ComputeFlowMetrics(events []*domain.SwapEvent) domain.FlowMetrics {
	var m domain.FlowMetrics
	if len(events) == 0 {
		return m
	}

	hourly := make(map[string]*domain.FlowBucket)
	var hourOrder []string

	for _, e := range events {
		amt0 := bigAbsFloat(e.Amount0)
		hour := time.Unix(e.Timestamp, 0).UTC().Format("2006-01-02T15")

		b, ok := hourly[hour]
		if !ok {
			b = &domain.FlowBucket{}
			hourly[hour] = b
			hourOrder = append(hourOrder, hour)
		}

		if e.IsBuy() {
			m.TotalBuyVolume += amt0
			m.BuyCount++
			b.BuyVolume += amt0
			b.BuyCount++
		} else {
			m.TotalSellVolume += amt0
			m.SellCount++
			b.SellVolume += amt0
			b.SellCount++
		}
	}

	m.NetFlow = m.TotalBuyVolume - m.TotalSellVolume

	switch {
	case m.TotalSellVolume > 0:
		m.BuySellRatio = m.TotalBuyVolume / m.TotalSellVolume
	case m.TotalBuyVolume > 0:
		m.BuySellRatio = buySellRatioCap
	default:
		m.BuySellRatio = 1.0
	}

	if total := m.TotalBuyVolume + m.TotalSellVolume; total > 0 {
		m.Imbalance = (m.TotalBuyVolume - m.TotalSellVolume) / total
	}

	m.TrendChange = hourlyTrendChange(hourly)

	switch {
	case m.Imbalance > 0.1:
		m.MarketDirection = domain.DirectionBullish
	case m.Imbalance < -0.1:
		m.MarketDirection = domain.DirectionBearish
	default:
		m.MarketDirection = domain.DirectionNeutral
	}

	switch {
	case m.TrendChange > 0.2:
		m.TrendSignal = domain.TrendAccelerating
	case m.TrendChange < -0.2:
		m.TrendSignal = domain.TrendDecelerating
	default:
		m.TrendSignal = domain.TrendStable
	}

	return m
}

// hourlyTrendChange compares recent hourly net flow against the preceding
// buckets. With at least 12 buckets the recent window is the last 6 hours;
// with fewer it is the most recent half.
func hourlyTrendChange(hourly map[string]*domain.FlowBucket) float64 {
	if len(hourly) < 2 {
		return 0
	}

	hours := make([]string, 0, len(hourly))
	for h := range hourly {
		hours = append(hours, h)
	}
	sort.Strings(hours)

	recentN := 6
	if len(hours) < 12 {
		recentN = len(hours) / 2
	}

	var recentNet, olderNet float64
	for i, h := range hours {
		net := hourly[h].BuyVolume - hourly[h].SellVolume
		if i >= len(hours)-recentN {
			recentNet += net
		} else {
			olderNet += net
		}
	}

	if olderNet != 0 {
		return (recentNet - olderNet) / math.Abs(olderNet)
	}
	switch {
	case recentNet > 0:
		return 1
	case recentNet < 0:
		return -1
	default:
		return 0
	}
}

// HourlyBuckets aggregates events into per-UTC-hour flow buckets for the
// timeseries store, ordered by hour ascending.
func HourlyBuckets(poolName string, events []*domain.SwapEvent) []*domain.FlowBucket {
	byHour := make(map[int64]*domain.FlowBucket)
	var order []int64

	for _, e := range events {
		hour := time.Unix(e.Timestamp, 0).UTC().Truncate(time.Hour).Unix()
		b, ok := byHour[hour]
		if !ok {
			b = &domain.FlowBucket{PoolName: poolName, HourStart: hour}
			byHour[hour] = b
			order = append(order, hour)
		}

		amt0 := bigAbsFloat(e.Amount0)
		if e.IsBuy() {
			b.BuyVolume += amt0
			b.BuyCount++
		} else {
			b.SellVolume += amt0
			b.SellCount++
		}
	}

	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	buckets := make([]*domain.FlowBucket, 0, len(order))
	for _, hour := range order {
		buckets = append(buckets, byHour[hour])
	}
	return buckets
}

// ComputeVolumeMetrics computes trailing-hours swap totals for the feature
// builder: volumes, OFI, unique wallets and the dominant wallet's net flow.
func ComputeVolumeMetrics(events []*domain.SwapEvent, hours int, now time.Time) domain.VolumeMetrics {
	var m domain.VolumeMetrics
	cutoff := now.UTC().Add(-time.Duration(hours) * time.Hour).Unix()

	flows := make(map[string]float64)
	var flowOrder []string

	for _, e := range events {
		if e.Timestamp <= cutoff {
			continue
		}

		amt0 := bigFloat(e.Amount0)
		m.VolumeToken0 += math.Abs(amt0)
		m.VolumeToken1 += bigAbsFloat(e.Amount1)
		m.SwapCount++

		if e.IsBuy() {
			m.BuyVolume += math.Abs(amt0)
		} else {
			m.SellVolume += math.Abs(amt0)
		}

		if _, ok := flows[e.Recipient]; !ok {
			flowOrder = append(flowOrder, e.Recipient)
		}
		flows[e.Recipient] += -amt0
	}

	if total := m.BuyVolume + m.SellVolume; total > 0 {
		m.Imbalance = (m.BuyVolume - m.SellVolume) / total
	}

	// Whale flow: the wallet with the largest absolute net flow.
	var whaleAbs float64
	for _, addr := range flowOrder {
		if abs := math.Abs(flows[addr]); abs > whaleAbs {
			whaleAbs = abs
			m.WhaleNetFlow = flows[addr]
		}
	}
	m.UniqueWallets = len(flows)

	return m
}
