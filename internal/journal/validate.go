package journal

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledger/internal/apperr"
	"github.com/cleared-dev/ledger/internal/model"
)

// Problem identifies which rule a transaction broke.
type Problem int

const (
	ProblemMissingDate Problem = iota + 1
	ProblemNegativeAmount
	ProblemSubCent
	ProblemBothSides
	ProblemMissingAccount
	ProblemTooFewLines
	ProblemImbalance
	ProblemUnknownAccount
	ProblemAmountTooLarge
)

// minLines is the fewest usable lines a transaction may have.
const minLines = 2

// LineError describes a single rule violation. Line is the 1-based position
// in the submitted line set, or 0 when the problem concerns the whole
// transaction.
type LineError struct {
	Problem     Problem
	Line        int
	Description string
}

func (e LineError) Error() string {
	if e.Line == 0 {
		return e.Description
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Description)
}

// AccountChecker tests whether an account ID exists in the chart of accounts.
type AccountChecker interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// ValidateTransaction checks a submitted transaction and returns the usable
// lines. Lines with both amounts zero are dropped before counting. Every
// violation found is reported.
func ValidateTransaction(in model.TransactionInput) ([]model.LineInput, []LineError) {
	var errs []LineError

	if in.Date.IsZero() {
		errs = append(errs, LineError{Problem: ProblemMissingDate, Description: "transaction date is required"})
	}

	var usable []model.LineInput
	badLines := false
	for i, line := range in.Lines {
		n := i + 1
		bad := false

		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			errs = append(errs, LineError{Problem: ProblemNegativeAmount, Line: n, Description: "amounts must not be negative"})
			bad = true
		}
		for _, amt := range []decimal.Decimal{line.Debit, line.Credit} {
			if model.HasSubCent(amt) {
				errs = append(errs, LineError{Problem: ProblemSubCent, Line: n, Description: fmt.Sprintf("amount %s has more than 2 decimal places", amt)})
				bad = true
			}
			if amt.GreaterThan(model.MaxAmount) {
				errs = append(errs, LineError{Problem: ProblemAmountTooLarge, Line: n, Description: fmt.Sprintf("amount %s exceeds %s", amt, model.MaxAmount.StringFixed(2))})
				bad = true
			}
		}
		if line.Debit.IsPositive() && line.Credit.IsPositive() {
			errs = append(errs, LineError{Problem: ProblemBothSides, Line: n, Description: "line must have exactly one of debit or credit"})
			bad = true
		}
		if line.Debit.IsZero() && line.Credit.IsZero() {
			continue
		}
		if line.AccountID <= 0 {
			errs = append(errs, LineError{Problem: ProblemMissingAccount, Line: n, Description: "account is required"})
			bad = true
		}
		if bad {
			badLines = true
			continue
		}
		usable = append(usable, line)
	}

	if len(usable) < minLines && !badLines {
		errs = append(errs, LineError{
			Problem:     ProblemTooFewLines,
			Description: fmt.Sprintf("at least %d lines with an account and an amount are required", minLines),
		})
	}

	if !badLines && len(usable) >= minLines {
		debit, credit := Totals(usable)
		if debit.GreaterThan(model.MaxAmount) || credit.GreaterThan(model.MaxAmount) {
			errs = append(errs, LineError{
				Problem:     ProblemAmountTooLarge,
				Description: fmt.Sprintf("transaction total exceeds %s", model.MaxAmount.StringFixed(2)),
			})
		} else if !model.WithinTolerance(debit, credit) {
			errs = append(errs, LineError{
				Problem:     ProblemImbalance,
				Description: fmt.Sprintf("debits (%s) != credits (%s)", debit.StringFixed(2), credit.StringFixed(2)),
			})
		}
	}

	return usable, errs
}

// Totals sums the debit and credit columns independently.
func Totals(lines []model.LineInput) (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, l := range lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	return debit, credit
}

// CheckAccounts reports submitted lines whose account does not exist. Lines
// are expected to have passed ValidateTransaction; zero lines are skipped.
func CheckAccounts(ctx context.Context, accounts AccountChecker, lines []model.LineInput) ([]LineError, error) {
	var errs []LineError
	seen := make(map[int64]bool)
	for i, line := range lines {
		if line.Debit.IsZero() && line.Credit.IsZero() {
			continue
		}
		ok, cached := seen[line.AccountID]
		if !cached {
			var err error
			ok, err = accounts.Exists(ctx, line.AccountID)
			if err != nil {
				return nil, err
			}
			seen[line.AccountID] = ok
		}
		if !ok {
			errs = append(errs, LineError{
				Problem:     ProblemUnknownAccount,
				Line:        i + 1,
				Description: fmt.Sprintf("unknown account %d", line.AccountID),
			})
		}
	}
	return errs, nil
}

// validationError folds line errors into a single caller-facing error.
func validationError(op string, errs []LineError) error {
	msgs := make([]string, len(errs))
	imbalanced := false
	for i, e := range errs {
		msgs[i] = e.Error()
		if e.Problem == ProblemImbalance {
			imbalanced = true
		}
	}
	msg := "validation failed: " + strings.Join(msgs, "; ")
	if imbalanced {
		return apperr.Imbalance(op, "%s", msg)
	}
	return apperr.Validation(op, "%s", msg)
}
