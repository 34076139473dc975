package domain

import (
	"fmt"
	"time"
)

// dateOnly truncates a time to its UTC calendar day.
func dateOnly(t time.Time) time.Time {
	t = t.UTC()

	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DateOnly is the exported form used by callers normalizing event dates.
func DateOnly(t time.Time) time.Time {
	return dateOnly(t)
}

// ValidateEventDate is the gate every balance event factory runs before an
// event is attached to a period:
//
//   - the target period must be open;
//   - the date must not be the zero sentinel;
//   - the date may fall in the period's own month or an adjacent month,
//     never further away;
//   - for an existing account, the date must not precede the account's
//     added-event date, and the period must not be keyed earlier than the
//     added-event's period.
//
// Pass a nil account when validating the added-event itself.
func ValidateEventDate(period *AccountingPeriod, account *Account, date time.Time) error {
	if !period.IsOpen {
		return ErrAccountingPeriodIsClosed
	}

	if date.IsZero() {
		return fmt.Errorf("%w: date is not set", ErrInvalidEventDate)
	}

	months := period.Key().MonthsTo(date)
	if months < -1 || months > 1 {
		return fmt.Errorf("%w: %s is not adjacent to period %s",
			ErrInvalidEventDate, dateOnly(date).Format("2006-01-02"), period.Key())
	}

	if account == nil {
		return nil
	}

	if dateOnly(date).Before(dateOnly(account.AddedDate)) {
		return fmt.Errorf("%w: before account %s was added", ErrInvalidEventDate, account.Name)
	}

	if period.Key().Before(account.AddedPeriod) {
		return fmt.Errorf("%w: period %s precedes the account's first period %s",
			ErrInvalidAccountingPeriod, period.Key(), account.AddedPeriod)
	}

	return nil
}
