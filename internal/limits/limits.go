/**
 * @description
 * Pure transfer policy checks: per-transaction ceiling, daily aggregate
 * ceiling, ownership, account status and currency rules. The transfer engine
 * runs these during precheck and the store runs them again inside the atomic
 * commit, so every rule lives here exactly once.
 */

package limits

import (
	"github.com/shopspring/decimal"

	"github.com/imSurme/interchat-banking-assistant/internal/domain"
)

// Policy carries the limits in force for one transfer evaluation.
type Policy struct {
	PerTxn decimal.Decimal
	Daily  decimal.Decimal
}

// Fee returns the transfer fee for the given amount. Currently always zero;
// callers must still budget from-balance checks as amount+fee so a future
// fee model slots in without touching them.
func (p Policy) Fee(amount decimal.Decimal) decimal.Decimal {
	return decimal.Zero
}

// CheckAmount rejects non-positive amounts and amounts above the
// per-transaction ceiling. It is evaluated before any account state is read.
func (p Policy) CheckAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return domain.NewValidation("invalid_amount", "The amount is invalid.")
	}
	if amount.GreaterThan(p.PerTxn) {
		return domain.NewLimitExceeded("per_txn_limit_exceeded", "Per-transaction transfer limit exceeded.")
	}
	return nil
}

// CheckDaily rejects a transfer that would push the customer's posted
// outbound total for the day over the daily aggregate ceiling.
func (p Policy) CheckDaily(usedToday, amount decimal.Decimal) error {
	if usedToday.Add(amount).GreaterThan(p.Daily) {
		return domain.NewLimitExceeded("daily_limit_exceeded", "Daily transfer limit exceeded.")
	}
	return nil
}

// CheckAccountsDistinct rejects a transfer from an account to itself.
func CheckAccountsDistinct(fromID, toID int64) error {
	if fromID == toID {
		return domain.NewValidation("same_account", "The source and destination accounts must differ.")
	}
	return nil
}

// CheckOwnership rejects a source account not owned by the requester.
func CheckOwnership(from *domain.Account, customerID int64) error {
	if from.CustomerID != customerID {
		return domain.NewForbidden("from_account_not_owned", "This account does not belong to you.")
	}
	return nil
}

// CheckSourceStatus requires the source account to be active.
func CheckSourceStatus(from *domain.Account) error {
	if from.Status != domain.AccountStatusActive {
		return domain.NewValidation("from_account_inactive", "The source account is not active.")
	}
	return nil
}

// CheckDestinationStatus allows active and external destination accounts.
func CheckDestinationStatus(to *domain.Account) error {
	if to.Status != domain.AccountStatusActive && to.Status != domain.AccountStatusExternal {
		return domain.NewValidation("to_account_inactive", "The destination account is not active.")
	}
	return nil
}

// CheckCurrency requires the source, destination and requested currencies to
// agree; cross-currency transfer is not supported. An empty requested
// currency defaults to the source account's currency. Returns the effective
// currency on success.
func CheckCurrency(from, to *domain.Account, requested string) (string, error) {
	ccy := requested
	if ccy == "" {
		ccy = from.Currency
	}
	if ccy != from.Currency || from.Currency != to.Currency {
		return "", domain.NewCurrencyMismatch("The account currencies do not match.")
	}
	return ccy, nil
}

// CheckFunds requires the source balance to cover amount plus fee.
func CheckFunds(from *domain.Account, amount, fee decimal.Decimal) error {
	if from.Balance.LessThan(amount.Add(fee)) {
		return domain.NewValidation("insufficient_funds", "Insufficient balance.")
	}
	return nil
}
