/**
 * @description
 * This file defines the `Repository` interface: the contract for all account,
 * card and payment data access the assistant core needs. The interface keeps
 * the transfer engine and the banking tools decoupled from the concrete
 * backend (PostgreSQL in production, in-memory for tests).
 *
 * @dependencies
 * - github.com/shopspring/decimal: Monetary amounts.
 * - internal/domain, internal/limits: Domain models and transfer policy.
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/imSurme/interchat-banking-assistant/internal/domain"
	"github.com/imSurme/interchat-banking-assistant/internal/limits"
)

var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrCardNotFound     = errors.New("card not found")
	ErrTransferNotFound = errors.New("transfer not found")
)

// PostTransferParams carries one validated transfer into the atomic unit of
// work. The store re-runs every policy check against current, locked data
// before mutating anything; the engine's precheck is advisory only.
type PostTransferParams struct {
	CustomerID  int64
	FromAccount int64
	ToAccount   int64
	Amount      decimal.Decimal
	Fee         decimal.Decimal
	Currency    string
	Note        string
	ClientRef   string
	PaymentID   string
	Limits      limits.Policy
}

// Repository defines the data access methods of the banking core.
type Repository interface {
	// Account reads
	GetAccount(ctx context.Context, accountID int64) (*domain.Account, error)
	GetAccountsByCustomer(ctx context.Context, customerID int64) ([]domain.Account, error)

	// GetDailyOutboundTotal returns the sum of posted outbound transfer
	// amounts for the customer on the given calendar day (UTC).
	GetDailyOutboundTotal(ctx context.Context, customerID int64, day time.Time) (decimal.Decimal, error)

	// Card reads
	GetCard(ctx context.Context, cardID, customerID int64) (*domain.Card, error)
	ListCardsByCustomer(ctx context.Context, customerID int64) ([]domain.Card, error)

	// Transaction history
	ListTransactions(ctx context.Context, accountID int64, limit int) ([]domain.AccountTransaction, error)

	// FindTransferByClientRef returns the posted transfer a customer
	// previously committed under the given idempotency reference.
	FindTransferByClientRef(ctx context.Context, customerID int64, clientRef string) (*domain.TransferRecord, error)

	// PostTransfer executes the atomic unit of work: re-validate, debit the
	// source by amount+fee, credit the destination by amount, and insert one
	// posted TransferRecord. All mutations succeed or none do.
	PostTransfer(ctx context.Context, p PostTransferParams) (*domain.TransferRecord, error)
}
