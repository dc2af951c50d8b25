package orderflow

import (
	"fmt"
	"sort"
	"time"

	"uniswap-flow-lab/internal/domain"
)

// DetectPatterns buckets events into fixed windows of windowHours hours and
// classifies each bucket. The grouping key is the UTC calendar day plus the
// integer hour-bucket index within the day.
func DetectPatterns(events []*domain.SwapEvent, windowHours int) *domain.PatternSummary {
	if windowHours <= 0 {
		windowHours = DefaultWindowHours
	}

	summary := &domain.PatternSummary{
		PatternCounts:   make(map[string]int),
		DominantPattern: domain.PatternUnknown,
	}
	if len(events) == 0 {
		return summary
	}

	type bucket struct {
		buyVol, sellVol      float64
		buyCount, sellCount  int
	}
	buckets := make(map[string]*bucket)

	for _, e := range events {
		t := time.Unix(e.Timestamp, 0).UTC()
		key := fmt.Sprintf("%s_%d", t.Format("2006-01-02"), t.Hour()/windowHours)

		b, ok := buckets[key]
		if !ok {
			b = &bucket{}
			buckets[key] = b
		}

		amt0 := bigAbsFloat(e.Amount0)
		if e.IsBuy() {
			b.buyVol += amt0
			b.buyCount++
		} else {
			b.sellVol += amt0
			b.sellCount++
		}
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var patternOrder []string
	for _, key := range keys {
		b := buckets[key]
		pattern := classifyWindow(b.buyVol, b.sellVol, b.buyCount, b.sellCount)

		summary.Windows = append(summary.Windows, domain.WindowPattern{
			Window:     key,
			BuyVolume:  b.buyVol,
			SellVolume: b.sellVol,
			BuyCount:   b.buyCount,
			SellCount:  b.sellCount,
			Pattern:    pattern,
		})
		if _, seen := summary.PatternCounts[pattern]; !seen {
			patternOrder = append(patternOrder, pattern)
		}
		summary.PatternCounts[pattern]++
	}

	// Most frequent label wins; ties go to the first label encountered.
	best := -1
	for _, pattern := range patternOrder {
		if summary.PatternCounts[pattern] > best {
			best = summary.PatternCounts[pattern]
			summary.DominantPattern = pattern
		}
	}

	return summary
}

// classifyWindow applies the pattern rules in precedence order.
// All comparisons are strict: equal volumes or counts fall through.
func classifyWindow(buyVol, sellVol float64, buyCount, sellCount int) string {
	switch {
	case buyVol > sellVol*1.5 && buyCount > sellCount:
		return domain.PatternAccumulation
	case sellVol > buyVol*1.5 && sellCount > buyCount:
		return domain.PatternDistribution
	case buyCount > sellCount*2:
		return domain.PatternRetailBuying
	case sellCount > buyCount*2:
		return domain.PatternRetailSelling
	default:
		return domain.PatternMixed
	}
}
