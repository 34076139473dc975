package domain

import (
	"testing"
	"time"
)

func TestCompareEvents_TotalOrder(t *testing.T) {
	jan31 := date(2025, time.January, 31)
	feb1 := date(2025, time.February, 1)

	janKey := PeriodKey{Year: 2025, Month: time.January}
	febKey := PeriodKey{Year: 2025, Month: time.February}

	// Same day, recorded against adjacent periods, mixed variants.
	events := []*BalanceEvent{
		{ID: "d", Date: feb1, Period: febKey, Sequence: 2, Kind: EventKindChangeInValue},
		{ID: "b", Date: jan31, Period: febKey, Sequence: 3, Kind: EventKindFundConversion},
		{ID: "a", Date: jan31, Period: janKey, Sequence: 5, Kind: EventKindTransactionLeg},
		{ID: "c", Date: feb1, Period: febKey, Sequence: 1, Kind: EventKindAccountAdded},
	}

	SortEvents(events)

	want := []string{"a", "b", "c", "d"}
	for i, ev := range events {
		if ev.ID != want[i] {
			t.Fatalf("position %d = %s, want %s", i, ev.ID, want[i])
		}
	}

	// Strictness: exactly one of <, > holds for every distinct pair.
	for i := range events {
		for j := range events {
			if i == j {
				continue
			}

			ab := CompareEvents(events[i], events[j])
			ba := CompareEvents(events[j], events[i])

			if ab == 0 || ba == 0 || ab == ba {
				t.Errorf("events %s and %s are not strictly ordered (%d, %d)",
					events[i].ID, events[j].ID, ab, ba)
			}
		}
	}
}

func TestCompareEvents_DateIgnoresTimeOfDay(t *testing.T) {
	key := PeriodKey{Year: 2025, Month: time.January}

	a := &BalanceEvent{Date: time.Date(2025, time.January, 10, 23, 0, 0, 0, time.UTC), Period: key, Sequence: 1}
	b := &BalanceEvent{Date: time.Date(2025, time.January, 10, 1, 0, 0, 0, time.UTC), Period: key, Sequence: 2}

	if CompareEvents(a, b) >= 0 {
		t.Error("sequence must break ties on the same calendar day regardless of time of day")
	}
}

func TestEventBefore(t *testing.T) {
	key := PeriodKey{Year: 2025, Month: time.January}

	a := &BalanceEvent{Date: date(2025, time.January, 9), Period: key, Sequence: 7}
	b := &BalanceEvent{Date: date(2025, time.January, 10), Period: key, Sequence: 1}

	if !EventBefore(a, b) || EventBefore(b, a) {
		t.Error("earlier date must sort first irrespective of sequence")
	}
}
