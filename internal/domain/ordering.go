package domain

import "sort"

// CompareEvents is the single total order every merge and replay uses:
// event date first, then accounting period key, then the per-date sequence.
// Sequence numbers are global per calendar date, so the order is strict
// across all accounts and variants.
func CompareEvents(a, b *BalanceEvent) int {
	ad, bd := dateOnly(a.Date), dateOnly(b.Date)
	if !ad.Equal(bd) {
		if ad.Before(bd) {
			return -1
		}

		return 1
	}

	if c := a.Period.Compare(b.Period); c != 0 {
		return c
	}

	if a.Sequence != b.Sequence {
		if a.Sequence < b.Sequence {
			return -1
		}

		return 1
	}

	return 0
}

// EventBefore reports whether a sorts strictly before b.
func EventBefore(a, b *BalanceEvent) bool {
	return CompareEvents(a, b) < 0
}

// SortEvents orders events in place by the total order.
func SortEvents(events []*BalanceEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return CompareEvents(events[i], events[j]) < 0
	})
}
