package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/infrastructure/postgres"
	"github.com/iho/fundledger/internal/usecase"
)

func (a *app) migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migrations",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return postgres.RunMigrations(a.cfg.DatabaseURL, a.cfg.MigrationsPath, a.log)
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the last migration",
			RunE: func(cmd *cobra.Command, args []string) error {
				return postgres.RunMigrationsDown(a.cfg.DatabaseURL, a.cfg.MigrationsPath, a.log)
			},
		},
	)

	return cmd
}

func (a *app) fundCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fund",
		Short: "Fund management",
	}

	var limit, offset int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List funds",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.connect(ctx); err != nil {
				return err
			}

			funds, err := a.funds.ListFunds(ctx, limit, offset)
			if err != nil {
				return err
			}

			return printJSON(funds)
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of funds to return")
	listCmd.Flags().IntVar(&offset, "offset", 0, "Number of funds to skip")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "create <name>",
			Short: "Create a fund",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				if err := a.connect(ctx); err != nil {
					return err
				}

				fund, err := a.funds.CreateFund(ctx, args[0])
				if err != nil {
					return err
				}

				return printJSON(fund)
			},
		},
		listCmd,
		&cobra.Command{
			Use:   "delete <name|id>",
			Short: "Delete a fund that no event references",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				if err := a.connect(ctx); err != nil {
					return err
				}

				fund, err := a.resolveFund(ctx, args[0])
				if err != nil {
					return err
				}

				return a.funds.DeleteFund(ctx, fund.ID)
			},
		},
	)

	return cmd
}

func (a *app) accountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Account management",
	}

	var (
		accountType string
		dateStr     string
		opening     []string
		newName     string
		limit       int
		offset      int
	)

	addCmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an account with its opening balances",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.connect(ctx); err != nil {
				return err
			}

			date, err := parseDate(dateStr)
			if err != nil {
				return err
			}

			amounts, err := a.parseAmounts(ctx, opening)
			if err != nil {
				return err
			}

			account, err := a.events.AddAccount(ctx, usecase.AddAccountInput{
				Name:    args[0],
				Type:    domain.AccountType(accountType),
				Date:    date,
				Opening: amounts,
			})
			if err != nil {
				return err
			}

			return printJSON(account)
		},
	}
	addCmd.Flags().StringVar(&accountType, "type", "standard", "Account type: standard, debt or investment")
	addCmd.Flags().StringVar(&dateStr, "date", "", "Date the account is added (YYYY-MM-DD)")
	addCmd.Flags().StringArrayVar(&opening, "opening", nil, "Opening balance as fund=amount (repeatable)")
	_ = addCmd.MarkFlagRequired("date")
	_ = addCmd.MarkFlagRequired("opening")

	renameCmd := &cobra.Command{
		Use:   "rename <name|id>",
		Short: "Rename an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.connect(ctx); err != nil {
				return err
			}

			account, err := a.resolveAccount(ctx, args[0])
			if err != nil {
				return err
			}

			account, err = a.accounts.RenameAccount(ctx, account.ID, newName)
			if err != nil {
				return err
			}

			return printJSON(account)
		},
	}
	renameCmd.Flags().StringVar(&newName, "name", "", "New account name")
	_ = renameCmd.MarkFlagRequired("name")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.connect(ctx); err != nil {
				return err
			}

			accounts, err := a.accounts.ListAccounts(ctx, limit, offset)
			if err != nil {
				return err
			}

			return printJSON(accounts)
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of accounts to return")
	listCmd.Flags().IntVar(&offset, "offset", 0, "Number of accounts to skip")

	cmd.AddCommand(
		addCmd,
		renameCmd,
		listCmd,
		&cobra.Command{
			Use:   "delete <name|id>",
			Short: "Delete an account with no events beyond its added-event",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				if err := a.connect(ctx); err != nil {
					return err
				}

				account, err := a.resolveAccount(ctx, args[0])
				if err != nil {
					return err
				}

				return a.accounts.DeleteAccount(ctx, account.ID)
			},
		},
		&cobra.Command{
			Use:   "show <name|id>",
			Short: "Show an account",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				if err := a.connect(ctx); err != nil {
					return err
				}

				account, err := a.resolveAccount(ctx, args[0])
				if err != nil {
					return err
				}

				return printJSON(account)
			},
		},
	)

	return cmd
}

func (a *app) periodCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "period",
		Short: "Accounting period lifecycle",
	}

	var limit, offset int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List accounting periods",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.connect(ctx); err != nil {
				return err
			}

			periods, err := a.periods.ListPeriods(ctx, limit, offset)
			if err != nil {
				return err
			}

			return printJSON(periods)
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of periods to return")
	listCmd.Flags().IntVar(&offset, "offset", 0, "Number of periods to skip")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <YYYY-MM>",
			Short: "Open the next accounting period",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				if err := a.connect(ctx); err != nil {
					return err
				}

				year, month, err := parseMonth(args[0])
				if err != nil {
					return err
				}

				period, err := a.periods.AddPeriod(ctx, year, month)
				if err != nil {
					return err
				}

				return printJSON(period)
			},
		},
		&cobra.Command{
			Use:   "close <YYYY-MM>",
			Short: "Close a period and checkpoint every account",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				if err := a.connect(ctx); err != nil {
					return err
				}

				period, err := a.periodByMonth(ctx, args[0])
				if err != nil {
					return err
				}

				return a.periods.ClosePeriod(ctx, period.ID)
			},
		},
		&cobra.Command{
			Use:   "delete <YYYY-MM>",
			Short: "Delete the latest period if it has no events",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				if err := a.connect(ctx); err != nil {
					return err
				}

				period, err := a.periodByMonth(ctx, args[0])
				if err != nil {
					return err
				}

				return a.periods.DeletePeriod(ctx, period.ID)
			},
		},
		listCmd,
	)

	return cmd
}

func (a *app) txCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tx",
		Short: "Transactions between accounts",
	}

	var (
		dateStr string
		debit   string
		credit  string
		amounts []string
	)

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Record a pending transaction between two accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.connect(ctx); err != nil {
				return err
			}

			date, err := parseDate(dateStr)
			if err != nil {
				return err
			}

			parsed, err := a.parseAmounts(ctx, amounts)
			if err != nil {
				return err
			}

			debitAccount, err := a.resolveAccount(ctx, debit)
			if err != nil {
				return err
			}

			creditAccount, err := a.resolveAccount(ctx, credit)
			if err != nil {
				return err
			}

			legs, err := a.events.AddTransaction(ctx, usecase.AddTransactionInput{
				Date:            date,
				Amounts:         parsed,
				DebitAccountID:  debitAccount.ID,
				CreditAccountID: creditAccount.ID,
			})
			if err != nil {
				return err
			}

			return printJSON(legs)
		},
	}
	addCmd.Flags().StringVar(&dateStr, "date", "", "Transaction date (YYYY-MM-DD)")
	addCmd.Flags().StringVar(&debit, "debit", "", "Account to debit (name or ID)")
	addCmd.Flags().StringVar(&credit, "credit", "", "Account to credit (name or ID)")
	addCmd.Flags().StringArrayVar(&amounts, "amount", nil, "Amount as fund=amount (repeatable)")
	_ = addCmd.MarkFlagRequired("date")
	_ = addCmd.MarkFlagRequired("debit")
	_ = addCmd.MarkFlagRequired("credit")
	_ = addCmd.MarkFlagRequired("amount")

	var postDateStr string
	postCmd := &cobra.Command{
		Use:   "post <leg-event-id>",
		Short: "Settle a pending transaction leg",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.connect(ctx); err != nil {
				return err
			}

			date, err := parseDate(postDateStr)
			if err != nil {
				return err
			}

			event, err := a.events.PostTransactionLeg(ctx, usecase.PostTransactionLegInput{
				LegEventID: args[0],
				PostedDate: date,
			})
			if err != nil {
				return err
			}

			return printJSON(event)
		},
	}
	postCmd.Flags().StringVar(&postDateStr, "date", "", "Posting date (YYYY-MM-DD)")
	_ = postCmd.MarkFlagRequired("date")

	cmd.AddCommand(addCmd, postCmd)

	return cmd
}

func (a *app) convertCmd() *cobra.Command {
	var (
		accountRef string
		dateStr    string
		from       string
		to         string
		amountStr  string
	)

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert money between funds within one account",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.connect(ctx); err != nil {
				return err
			}

			date, err := parseDate(dateStr)
			if err != nil {
				return err
			}

			amount, err := decimal.NewFromString(amountStr)
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", amountStr, err)
			}

			account, err := a.resolveAccount(ctx, accountRef)
			if err != nil {
				return err
			}

			fromFund, err := a.resolveFund(ctx, from)
			if err != nil {
				return err
			}

			toFund, err := a.resolveFund(ctx, to)
			if err != nil {
				return err
			}

			event, err := a.events.AddFundConversion(ctx, usecase.AddFundConversionInput{
				AccountID:  account.ID,
				Date:       date,
				FromFundID: fromFund.ID,
				ToFundID:   toFund.ID,
				Amount:     amount,
			})
			if err != nil {
				return err
			}

			return printJSON(event)
		},
	}

	cmd.Flags().StringVar(&accountRef, "account", "", "Account (name or ID)")
	cmd.Flags().StringVar(&dateStr, "date", "", "Conversion date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&from, "from", "", "Source fund (name or ID)")
	cmd.Flags().StringVar(&to, "to", "", "Destination fund (name or ID)")
	cmd.Flags().StringVar(&amountStr, "amount", "", "Amount to convert")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func (a *app) revalueCmd() *cobra.Command {
	var (
		accountRef string
		dateStr    string
		fund       string
		amountStr  string
	)

	cmd := &cobra.Command{
		Use:   "revalue",
		Short: "Record a change in value on an investment account",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.connect(ctx); err != nil {
				return err
			}

			date, err := parseDate(dateStr)
			if err != nil {
				return err
			}

			amount, err := decimal.NewFromString(amountStr)
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", amountStr, err)
			}

			account, err := a.resolveAccount(ctx, accountRef)
			if err != nil {
				return err
			}

			f, err := a.resolveFund(ctx, fund)
			if err != nil {
				return err
			}

			event, err := a.events.AddChangeInValue(ctx, usecase.AddChangeInValueInput{
				AccountID: account.ID,
				Date:      date,
				FundID:    f.ID,
				Amount:    amount,
			})
			if err != nil {
				return err
			}

			return printJSON(event)
		},
	}

	cmd.Flags().StringVar(&accountRef, "account", "", "Account (name or ID)")
	cmd.Flags().StringVar(&dateStr, "date", "", "Revaluation date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&fund, "fund", "", "Fund to revalue (name or ID)")
	cmd.Flags().StringVar(&amountStr, "amount", "", "Signed change in value")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("fund")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func (a *app) balanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Balance queries",
	}

	var atDateStr string
	atCmd := &cobra.Command{
		Use:   "at <account>",
		Short: "Balance at the end of a calendar day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.connect(ctx); err != nil {
				return err
			}

			date, err := parseDate(atDateStr)
			if err != nil {
				return err
			}

			account, err := a.resolveAccount(ctx, args[0])
			if err != nil {
				return err
			}

			balance, err := a.balances.BalanceAtDate(ctx, account.ID, date)
			if err != nil {
				return err
			}

			return printJSON(renderBalance(balance))
		},
	}
	atCmd.Flags().StringVar(&atDateStr, "date", "", "Date (YYYY-MM-DD)")
	_ = atCmd.MarkFlagRequired("date")

	periodCmd := &cobra.Command{
		Use:   "period <account> <YYYY-MM>",
		Short: "Balances at the start and end of an accounting period",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.connect(ctx); err != nil {
				return err
			}

			account, err := a.resolveAccount(ctx, args[0])
			if err != nil {
				return err
			}

			year, month, err := parseMonth(args[1])
			if err != nil {
				return err
			}

			key, err := domain.NewPeriodKey(year, month)
			if err != nil {
				return err
			}

			start, end, err := a.balances.BalanceByAccountingPeriod(ctx, account.ID, key)
			if err != nil {
				return err
			}

			return printJSON(map[string]renderedBalance{
				"start": renderBalance(start),
				"end":   renderBalance(end),
			})
		},
	}

	var fromStr, toStr string
	rangeCmd := &cobra.Command{
		Use:   "range <account>",
		Short: "End-of-day balances over a date range",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.connect(ctx); err != nil {
				return err
			}

			from, err := parseDate(fromStr)
			if err != nil {
				return err
			}

			to, err := parseDate(toStr)
			if err != nil {
				return err
			}

			account, err := a.resolveAccount(ctx, args[0])
			if err != nil {
				return err
			}

			dated, err := a.balances.BalancesOverDateRange(ctx, account.ID, from, to)
			if err != nil {
				return err
			}

			out := make([]map[string]any, 0, len(dated))
			for _, d := range dated {
				out = append(out, map[string]any{
					"date":    d.Date.Format("2006-01-02"),
					"balance": renderBalance(d.Balance),
				})
			}

			return printJSON(out)
		},
	}
	rangeCmd.Flags().StringVar(&fromStr, "from", "", "First date (YYYY-MM-DD)")
	rangeCmd.Flags().StringVar(&toStr, "to", "", "Last date (YYYY-MM-DD)")
	_ = rangeCmd.MarkFlagRequired("from")
	_ = rangeCmd.MarkFlagRequired("to")

	eventsCmd := &cobra.Command{
		Use:   "events <account>",
		Short: "Balance after every event in a date range",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.connect(ctx); err != nil {
				return err
			}

			from, err := parseDate(fromStr)
			if err != nil {
				return err
			}

			to, err := parseDate(toStr)
			if err != nil {
				return err
			}

			account, err := a.resolveAccount(ctx, args[0])
			if err != nil {
				return err
			}

			events, err := a.balances.BalancesByEvent(ctx, account.ID, from, to)
			if err != nil {
				return err
			}

			out := make([]map[string]any, 0, len(events))
			for _, e := range events {
				out = append(out, map[string]any{
					"event":   e.Event,
					"balance": renderBalance(e.Balance),
				})
			}

			return printJSON(out)
		},
	}
	eventsCmd.Flags().StringVar(&fromStr, "from", "", "First date (YYYY-MM-DD)")
	eventsCmd.Flags().StringVar(&toStr, "to", "", "Last date (YYYY-MM-DD)")
	_ = eventsCmd.MarkFlagRequired("from")
	_ = eventsCmd.MarkFlagRequired("to")

	cmd.AddCommand(atCmd, periodCmd, rangeCmd, eventsCmd)

	return cmd
}

// renderedBalance is the CLI-facing view of an account balance, with per-fund
// settled, pending and available figures plus the totals.
type renderedBalance struct {
	AccountID string            `json:"account_id"`
	Settled   map[string]string `json:"settled"`
	Pending   map[string]string `json:"pending"`
	Available map[string]string `json:"available"`
	Balance   string            `json:"balance"`
	Total     string            `json:"balance_including_pending"`
}

func renderBalance(b domain.AccountBalance) renderedBalance {
	out := renderedBalance{
		AccountID: b.AccountID,
		Settled:   map[string]string{},
		Pending:   map[string]string{},
		Available: map[string]string{},
		Balance:   b.Balance().String(),
		Total:     b.BalanceIncludingPending().String(),
	}

	fundIDs := map[string]struct{}{}
	for _, fa := range b.Settled {
		out.Settled[fa.FundID] = fa.Amount.String()
		fundIDs[fa.FundID] = struct{}{}
	}
	for _, fa := range b.Pending {
		out.Pending[fa.FundID] = fa.Amount.String()
		fundIDs[fa.FundID] = struct{}{}
	}
	for id := range fundIDs {
		out.Available[id] = b.AvailableFor(id).String()
	}

	return out
}

// parseAmounts turns repeated fund=amount flags into fund amounts, resolving
// fund names to IDs.
func (a *app) parseAmounts(ctx context.Context, entries []string) ([]domain.FundAmount, error) {
	out := make([]domain.FundAmount, 0, len(entries))
	for _, entry := range entries {
		ref, value, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("invalid amount %q: expected fund=amount", entry)
		}

		amount, err := decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("invalid amount %q: %w", entry, err)
		}

		fund, err := a.resolveFund(ctx, ref)
		if err != nil {
			return nil, err
		}

		out = append(out, domain.FundAmount{FundID: fund.ID, Amount: amount})
	}

	return out, nil
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}

	return domain.DateOnly(t), nil
}

func parseMonth(s string) (int, time.Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month %q: expected YYYY-MM", s)
	}

	return t.Year(), t.Month(), nil
}

func (a *app) periodByMonth(ctx context.Context, s string) (*domain.AccountingPeriod, error) {
	year, month, err := parseMonth(s)
	if err != nil {
		return nil, err
	}

	return a.periods.GetPeriodByKey(ctx, year, month)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}
