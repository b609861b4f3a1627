/**
 * @description
 * This file defines the core domain models for the banking assistant core.
 * These structs represent the entities shared by the account store, the
 * transfer engine and the tool invocation layer.
 *
 * @notes
 * - Monetary values use shopspring/decimal to avoid floating-point drift on
 *   balances, limits and transfer amounts.
 * - A TransferRecord is only ever written for a successfully posted commit;
 *   rejected prechecks and failed commits leave no trace in storage.
 */

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account statuses as stored in the accounts table.
const (
	AccountStatusActive   = "active"
	AccountStatusFrozen   = "frozen"
	AccountStatusClosed   = "closed"
	AccountStatusExternal = "external"
)

// TransferStatusPosted is the only persisted transfer status; failures are
// surfaced to the caller and never recorded.
const TransferStatusPosted = "posted"

// CustomerContext carries the verified identity of the requesting customer.
// It is scoped to a single mediated request and never persisted.
type CustomerContext struct {
	CustomerID int64 `json:"customer_id"`
}

// Account represents one customer account row.
type Account struct {
	AccountID     int64           `json:"account_id"`
	CustomerID    int64           `json:"customer_id"`
	AccountNumber string          `json:"account_number"`
	AccountType   string          `json:"account_type"`
	Balance       decimal.Decimal `json:"balance"`
	Currency      string          `json:"currency"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Card represents one customer card row.
type Card struct {
	CardID       int64           `json:"card_id"`
	CustomerID   int64           `json:"customer_id"`
	CardNumber   string          `json:"card_number"`
	CardType     string          `json:"card_type"`
	CreditLimit  decimal.Decimal `json:"credit_limit"`
	CurrentDebt  decimal.Decimal `json:"current_debt"`
	StatementDay int             `json:"statement_day"`
	DueDay       int             `json:"due_day"`
	Status       string          `json:"status"`
}

// AccountTransaction is one ledger entry of an account's history.
type AccountTransaction struct {
	TxnID        int64           `json:"txn_id"`
	AccountID    int64           `json:"account_id"`
	Timestamp    time.Time       `json:"ts"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	Direction    string          `json:"direction"` // "in" | "out"
	Description  string          `json:"description"`
	Counterparty string          `json:"counterparty"`
}

// LimitsSnapshot captures the transfer limits in force when a precheck ran.
type LimitsSnapshot struct {
	PerTxn    decimal.Decimal `json:"per_txn"`
	Daily     decimal.Decimal `json:"daily"`
	UsedToday decimal.Decimal `json:"used_today"`
}

// PrecheckResult is the ephemeral outcome of a successful transfer precheck.
// It is advisory only: the commit path re-validates everything from scratch.
type PrecheckResult struct {
	FromAccount int64           `json:"from_account"`
	ToAccount   int64           `json:"to_account"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Fee         decimal.Decimal `json:"fee"`
	Note        string          `json:"note"`
	Limits      LimitsSnapshot  `json:"limits"`
}

// TransferRecord is the persisted result of a committed transfer.
type TransferRecord struct {
	PaymentID        string          `json:"payment_id"`
	ClientRef        string          `json:"client_ref,omitempty"`
	CustomerID       int64           `json:"customer_id"`
	FromAccount      int64           `json:"from_account"`
	ToAccount        int64           `json:"to_account"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	Fee              decimal.Decimal `json:"fee"`
	Note             string          `json:"note"`
	Status           string          `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
	PostedAt         time.Time       `json:"posted_at"`
	FromBalanceAfter decimal.Decimal `json:"from_balance_after"`
	ToBalanceAfter   decimal.Decimal `json:"to_balance_after"`
}

// UIComponent is an opaque structured payload rendered by the frontend.
type UIComponent struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

// ResponseEnvelope is the uniform response returned to the agent layer after
// classification and sanitization. It is never persisted.
type ResponseEnvelope struct {
	Text      string       `json:"text"`
	Component *UIComponent `json:"ui_component,omitempty"`
}
