/**
 * @description
 * In-memory implementation of the `Repository` interface. A single mutex
 * serializes all access, and PostTransfer stages its mutations so that a
 * failure at any point leaves the store untouched. Used by the test suite
 * and by local development without a database.
 */

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/imSurme/interchat-banking-assistant/internal/domain"
	"github.com/imSurme/interchat-banking-assistant/internal/limits"
)

// MemoryRepository is a mutex-guarded, map-backed Repository.
type MemoryRepository struct {
	mu        sync.Mutex
	accounts  map[int64]*domain.Account
	cards     map[int64]*domain.Card
	txns      map[int64][]domain.AccountTransaction
	transfers []domain.TransferRecord
	nextTxnID int64

	// commitHook, when set, runs between the staged debit and credit of
	// PostTransfer; returning an error aborts the unit of work. Test-only.
	commitHook func() error
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		accounts: make(map[int64]*domain.Account),
		cards:    make(map[int64]*domain.Card),
		txns:     make(map[int64][]domain.AccountTransaction),
	}
}

// PutAccount seeds or replaces an account.
func (r *MemoryRepository) PutAccount(acc domain.Account) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copy := acc
	r.accounts[acc.AccountID] = &copy
}

// PutCard seeds or replaces a card.
func (r *MemoryRepository) PutCard(c domain.Card) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copy := c
	r.cards[c.CardID] = &copy
}

// SetCommitHook installs a fault-injection hook invoked mid-commit.
func (r *MemoryRepository) SetCommitHook(hook func() error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commitHook = hook
}

// GetAccount retrieves one account by id.
func (r *MemoryRepository) GetAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[accountID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	copy := *acc
	return &copy, nil
}

// GetAccountsByCustomer retrieves all accounts owned by a customer, ordered
// by account id.
func (r *MemoryRepository) GetAccountsByCustomer(ctx context.Context, customerID int64) ([]domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Account
	for _, acc := range r.accounts {
		if acc.CustomerID == customerID {
			out = append(out, *acc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out, nil
}

// GetDailyOutboundTotal sums posted transfers of the customer for one UTC day.
func (r *MemoryRepository) GetDailyOutboundTotal(ctx context.Context, customerID int64, day time.Time) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dailyOutboundTotalLocked(customerID, day), nil
}

func (r *MemoryRepository) dailyOutboundTotalLocked(customerID int64, day time.Time) decimal.Decimal {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)
	total := decimal.Zero
	for _, rec := range r.transfers {
		if rec.CustomerID != customerID || rec.Status != domain.TransferStatusPosted {
			continue
		}
		if rec.CreatedAt.Before(dayStart) || !rec.CreatedAt.Before(dayEnd) {
			continue
		}
		total = total.Add(rec.Amount)
	}
	return total
}

// GetCard retrieves one card and verifies ownership.
func (r *MemoryRepository) GetCard(ctx context.Context, cardID, customerID int64) (*domain.Card, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cards[cardID]
	if !ok || c.CustomerID != customerID {
		return nil, ErrCardNotFound
	}
	copy := *c
	return &copy, nil
}

// ListCardsByCustomer retrieves all cards owned by a customer.
func (r *MemoryRepository) ListCardsByCustomer(ctx context.Context, customerID int64) ([]domain.Card, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Card
	for _, c := range r.cards {
		if c.CustomerID == customerID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CardID < out[j].CardID })
	return out, nil
}

// ListTransactions retrieves the most recent ledger entries of an account.
func (r *MemoryRepository) ListTransactions(ctx context.Context, accountID int64, limit int) ([]domain.AccountTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 {
		limit = 20
	}
	entries := append([]domain.AccountTransaction(nil), r.txns[accountID]...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Timestamp.After(entries[j].Timestamp) })
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// FindTransferByClientRef looks up a posted transfer by idempotency reference.
func (r *MemoryRepository) FindTransferByClientRef(ctx context.Context, customerID int64, clientRef string) (*domain.TransferRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.transfers {
		rec := r.transfers[i]
		if rec.CustomerID == customerID && rec.ClientRef == clientRef && rec.Status == domain.TransferStatusPosted {
			copy := rec
			return &copy, nil
		}
	}
	return nil, ErrTransferNotFound
}

// PostTransfer re-validates against current state and applies the debit,
// credit and record insert as one staged unit: nothing is visible until all
// steps have succeeded.
func (r *MemoryRepository) PostTransfer(ctx context.Context, p PostTransferParams) (*domain.TransferRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Replay check inside the unit of work, same as the SQL path: a repeated
	// reference returns the already-posted record instead of posting again.
	if p.ClientRef != "" {
		for i := range r.transfers {
			rec := r.transfers[i]
			if rec.CustomerID == p.CustomerID && rec.ClientRef == p.ClientRef && rec.Status == domain.TransferStatusPosted {
				copy := rec
				return &copy, nil
			}
		}
	}

	from, ok := r.accounts[p.FromAccount]
	if !ok {
		return nil, domain.NewNotFound("from_account_not_found", "The source account was not found.")
	}
	to, ok := r.accounts[p.ToAccount]
	if !ok {
		return nil, domain.NewNotFound("to_account_not_found", "The destination account was not found.")
	}

	if err := p.Limits.CheckAmount(p.Amount); err != nil {
		return nil, err
	}
	if err := limits.CheckAccountsDistinct(from.AccountID, to.AccountID); err != nil {
		return nil, err
	}
	if err := limits.CheckOwnership(from, p.CustomerID); err != nil {
		return nil, err
	}
	if err := limits.CheckSourceStatus(from); err != nil {
		return nil, err
	}
	if err := limits.CheckDestinationStatus(to); err != nil {
		return nil, err
	}
	if _, err := limits.CheckCurrency(from, to, p.Currency); err != nil {
		return nil, err
	}
	if err := limits.CheckFunds(from, p.Amount, p.Fee); err != nil {
		return nil, err
	}
	usedToday := r.dailyOutboundTotalLocked(p.CustomerID, time.Now().UTC())
	if err := p.Limits.CheckDaily(usedToday, p.Amount); err != nil {
		return nil, err
	}

	// Stage the mutations on copies; commit by swapping at the end.
	debit := p.Amount.Add(p.Fee)
	fromAfter := from.Balance.Sub(debit)
	if r.commitHook != nil {
		if err := r.commitHook(); err != nil {
			return nil, domain.NewStorage(err)
		}
	}
	toAfter := to.Balance.Add(p.Amount)

	now := time.Now().UTC()
	rec := domain.TransferRecord{
		PaymentID:        p.PaymentID,
		ClientRef:        p.ClientRef,
		CustomerID:       p.CustomerID,
		FromAccount:      p.FromAccount,
		ToAccount:        p.ToAccount,
		Amount:           p.Amount,
		Currency:         p.Currency,
		Fee:              p.Fee,
		Note:             p.Note,
		Status:           domain.TransferStatusPosted,
		CreatedAt:        now,
		PostedAt:         now,
		FromBalanceAfter: fromAfter,
		ToBalanceAfter:   toAfter,
	}

	from.Balance = fromAfter
	to.Balance = toAfter
	r.transfers = append(r.transfers, rec)

	outDesc := fmt.Sprintf("Transfer to #%d", p.ToAccount)
	inDesc := fmt.Sprintf("Transfer from #%d", p.FromAccount)
	if p.Note != "" {
		outDesc += " | " + p.Note
		inDesc += " | " + p.Note
	}
	r.nextTxnID++
	r.txns[p.FromAccount] = append(r.txns[p.FromAccount], domain.AccountTransaction{
		TxnID:        r.nextTxnID,
		AccountID:    p.FromAccount,
		Timestamp:    now,
		Amount:       debit,
		Currency:     p.Currency,
		Direction:    "out",
		Description:  outDesc,
		Counterparty: fmt.Sprintf("%d", p.ToAccount),
	})
	r.nextTxnID++
	r.txns[p.ToAccount] = append(r.txns[p.ToAccount], domain.AccountTransaction{
		TxnID:        r.nextTxnID,
		AccountID:    p.ToAccount,
		Timestamp:    now,
		Amount:       p.Amount,
		Currency:     p.Currency,
		Direction:    "in",
		Description:  inDesc,
		Counterparty: fmt.Sprintf("%d", p.FromAccount),
	})

	result := rec
	return &result, nil
}
