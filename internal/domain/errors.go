package domain

import "errors"

// All domain errors are deterministic validation failures. None are
// transient: callers must correct input and re-validate, never retry
// the same call verbatim.
var (
	// Accounting period errors
	ErrDuplicateAccountingPeriod                = errors.New("accounting period already exists")
	ErrNonSequentialAccountingPeriod            = errors.New("accounting period is not the next calendar month")
	ErrAccountingPeriodIsClosed                 = errors.New("accounting period is closed")
	ErrAccountingPeriodHasBalanceEvents         = errors.New("accounting period has balance events")
	ErrAccountingPeriodHasPendingBalanceChanges = errors.New("accounting period has pending balance changes")
	ErrEarlierAccountingPeriodStillOpen         = errors.New("an earlier accounting period is still open")
	ErrUnableToCloseAccountingPeriod            = errors.New("unable to close accounting period")
	ErrUnableToDeleteAccountingPeriod           = errors.New("unable to delete accounting period")
	ErrInvalidMonth                             = errors.New("month must be between 1 and 12")
	ErrInvalidYear                              = errors.New("year is out of range")
	ErrAccountingPeriodNotFound                 = errors.New("accounting period not found")
	ErrNoOpenAccountingPeriod                   = errors.New("no accounting period is open")

	// Balance event errors
	ErrInvalidEventDate            = errors.New("invalid event date")
	ErrInvalidAccountingPeriod     = errors.New("event does not belong to accounting period")
	ErrInvalidAccountBalance       = errors.New("account balance would become negative")
	ErrInvalidFundBalance          = errors.New("fund balance would become negative")
	ErrInvalidFundAmount           = errors.New("invalid fund amount")
	ErrBalanceEventNotFound        = errors.New("balance event not found")
	ErrTransactionLegAlreadyPosted = errors.New("transaction leg is already posted")

	// Account and fund errors
	ErrInvalidAccountName = errors.New("invalid account name")
	ErrInvalidAccountType = errors.New("invalid account type")
	ErrCheckpointNotFound = errors.New("balance checkpoint not found")
	ErrInvalidFundName    = errors.New("invalid fund name")
	ErrFundStillInUse     = errors.New("fund is referenced by balance events")
	ErrUnableToDelete     = errors.New("entity is still referenced")
	ErrAccountNotFound    = errors.New("account not found")
	ErrFundNotFound       = errors.New("fund not found")
)
