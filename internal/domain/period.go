package domain

import (
	"fmt"
	"time"
)

// Year bounds accepted for accounting periods.
const (
	MinPeriodYear = 1900
	MaxPeriodYear = 9999
)

// PeriodKey identifies an accounting period by calendar month.
type PeriodKey struct {
	Year  int
	Month time.Month
}

// NewPeriodKey validates year and month bounds.
func NewPeriodKey(year int, month time.Month) (PeriodKey, error) {
	if month < time.January || month > time.December {
		return PeriodKey{}, ErrInvalidMonth
	}

	if year < MinPeriodYear || year > MaxPeriodYear {
		return PeriodKey{}, fmt.Errorf("%w: %d", ErrInvalidYear, year)
	}

	return PeriodKey{Year: year, Month: month}, nil
}

// PeriodKeyOf returns the key of the calendar month containing t.
func PeriodKeyOf(t time.Time) PeriodKey {
	return PeriodKey{Year: t.Year(), Month: t.Month()}
}

// Next returns the key of the following calendar month.
func (k PeriodKey) Next() PeriodKey {
	if k.Month == time.December {
		return PeriodKey{Year: k.Year + 1, Month: time.January}
	}

	return PeriodKey{Year: k.Year, Month: k.Month + 1}
}

// Previous returns the key of the preceding calendar month.
func (k PeriodKey) Previous() PeriodKey {
	if k.Month == time.January {
		return PeriodKey{Year: k.Year - 1, Month: time.December}
	}

	return PeriodKey{Year: k.Year, Month: k.Month - 1}
}

// Compare orders keys chronologically: -1, 0 or +1.
func (k PeriodKey) Compare(other PeriodKey) int {
	if k.Year != other.Year {
		if k.Year < other.Year {
			return -1
		}

		return 1
	}

	if k.Month != other.Month {
		if k.Month < other.Month {
			return -1
		}

		return 1
	}

	return 0
}

// Before reports whether k is an earlier month than other.
func (k PeriodKey) Before(other PeriodKey) bool {
	return k.Compare(other) < 0
}

// Start returns midnight UTC on the first day of the month.
func (k PeriodKey) Start() time.Time {
	return time.Date(k.Year, k.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns midnight UTC on the last day of the month.
func (k PeriodKey) End() time.Time {
	return k.Next().Start().AddDate(0, 0, -1)
}

// MonthsTo returns the signed number of whole calendar months from k to the
// month containing date.
func (k PeriodKey) MonthsTo(date time.Time) int {
	return (date.Year()-k.Year)*12 + int(date.Month()) - int(k.Month)
}

func (k PeriodKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month))
}

// AccountingPeriod is the unit of settlement. All balance events dated
// within its adjacency window belong to it; at most one period is open
// system-wide and periods form a gap-free monthly sequence.
type AccountingPeriod struct {
	ID        string
	Year      int
	Month     time.Month
	IsOpen    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewAccountingPeriod creates an open period after validating its key.
func NewAccountingPeriod(id string, year int, month time.Month, now time.Time) (*AccountingPeriod, error) {
	if _, err := NewPeriodKey(year, month); err != nil {
		return nil, err
	}

	return &AccountingPeriod{
		ID:        id,
		Year:      year,
		Month:     month,
		IsOpen:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Key returns the period's calendar-month key.
func (p *AccountingPeriod) Key() PeriodKey {
	return PeriodKey{Year: p.Year, Month: p.Month}
}

// Close flips the period to closed. Closing twice is an error.
func (p *AccountingPeriod) Close(now time.Time) error {
	if !p.IsOpen {
		return ErrAccountingPeriodIsClosed
	}

	p.IsOpen = false
	p.UpdatedAt = now

	return nil
}
