package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imSurme/interchat-banking-assistant/internal/domain"
	"github.com/imSurme/interchat-banking-assistant/internal/limits"
)

func seedMemory(t *testing.T) *MemoryRepository {
	t.Helper()
	repo := NewMemoryRepository()
	repo.PutAccount(domain.Account{
		AccountID:  101,
		CustomerID: 42,
		Balance:    decimal.NewFromInt(1000),
		Currency:   "TRY",
		Status:     domain.AccountStatusActive,
	})
	repo.PutAccount(domain.Account{
		AccountID:  202,
		CustomerID: 7,
		Balance:    decimal.NewFromInt(50),
		Currency:   "TRY",
		Status:     domain.AccountStatusActive,
	})
	return repo
}

func postParams(amount int64) PostTransferParams {
	return PostTransferParams{
		CustomerID:  42,
		FromAccount: 101,
		ToAccount:   202,
		Amount:      decimal.NewFromInt(amount),
		Fee:         decimal.Zero,
		Currency:    "TRY",
		PaymentID:   "TX1",
		Limits: limits.Policy{
			PerTxn: decimal.NewFromInt(20000),
			Daily:  decimal.NewFromInt(50000),
		},
	}
}

func TestMemoryAccountLookups(t *testing.T) {
	repo := seedMemory(t)
	ctx := context.Background()

	acc, err := repo.GetAccount(ctx, 101)
	require.NoError(t, err)
	assert.Equal(t, int64(42), acc.CustomerID)

	_, err = repo.GetAccount(ctx, 999)
	assert.ErrorIs(t, err, ErrAccountNotFound)

	accounts, err := repo.GetAccountsByCustomer(ctx, 42)
	require.NoError(t, err)
	require.Len(t, accounts, 1)

	// Returned values are copies; mutating them must not touch the store.
	accounts[0].Balance = decimal.Zero
	acc, err = repo.GetAccount(ctx, 101)
	require.NoError(t, err)
	assert.True(t, acc.Balance.Equal(decimal.NewFromInt(1000)))
}

func TestMemoryPostTransferWritesLedger(t *testing.T) {
	repo := seedMemory(t)
	ctx := context.Background()

	p := postParams(300)
	p.Note = "rent"
	rec, err := repo.PostTransfer(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStatusPosted, rec.Status)
	assert.True(t, rec.FromBalanceAfter.Equal(decimal.NewFromInt(700)))
	assert.True(t, rec.ToBalanceAfter.Equal(decimal.NewFromInt(350)))

	out, err := repo.ListTransactions(ctx, 101, 5)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "out", out[0].Direction)
	assert.Contains(t, out[0].Description, "rent")

	in, err := repo.ListTransactions(ctx, 202, 5)
	require.NoError(t, err)
	require.Len(t, in, 1)
	assert.Equal(t, "in", in[0].Direction)
}

func TestMemoryPostTransferRevalidates(t *testing.T) {
	repo := seedMemory(t)
	ctx := context.Background()

	p := postParams(2000) // more than the balance
	_, err := repo.PostTransfer(ctx, p)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	p = postParams(100)
	p.CustomerID = 7 // not the owner of the source account
	_, err = repo.PostTransfer(ctx, p)
	assert.Equal(t, domain.KindForbidden, domain.KindOf(err))
}

func TestMemoryDailyOutboundTotal(t *testing.T) {
	repo := seedMemory(t)
	ctx := context.Background()

	_, err := repo.PostTransfer(ctx, postParams(100))
	require.NoError(t, err)
	p := postParams(250)
	p.PaymentID = "TX2"
	_, err = repo.PostTransfer(ctx, p)
	require.NoError(t, err)

	total, err := repo.GetDailyOutboundTotal(ctx, 42, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(350)), "got %s", total)

	// Another customer's day is unaffected.
	total, err = repo.GetDailyOutboundTotal(ctx, 7, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, total.IsZero())
}

func TestMemoryPostTransferDuplicateClientRef(t *testing.T) {
	repo := seedMemory(t)
	ctx := context.Background()

	p := postParams(100)
	p.ClientRef = "ref-dup"
	first, err := repo.PostTransfer(ctx, p)
	require.NoError(t, err)

	// A second posting with the same reference replays the first record even
	// when it arrives with a fresh payment id.
	p2 := postParams(100)
	p2.ClientRef = "ref-dup"
	p2.PaymentID = "TX2"
	second, err := repo.PostTransfer(ctx, p2)
	require.NoError(t, err)
	assert.Equal(t, first.PaymentID, second.PaymentID)

	acc, err := repo.GetAccount(ctx, 101)
	require.NoError(t, err)
	assert.True(t, acc.Balance.Equal(decimal.NewFromInt(900)), "money moved twice: %s", acc.Balance)
}

func TestMemoryFindTransferByClientRef(t *testing.T) {
	repo := seedMemory(t)
	ctx := context.Background()

	p := postParams(100)
	p.ClientRef = "ref-9"
	_, err := repo.PostTransfer(ctx, p)
	require.NoError(t, err)

	rec, err := repo.FindTransferByClientRef(ctx, 42, "ref-9")
	require.NoError(t, err)
	assert.Equal(t, "TX1", rec.PaymentID)

	_, err = repo.FindTransferByClientRef(ctx, 42, "missing")
	assert.ErrorIs(t, err, ErrTransferNotFound)

	// The reference is scoped per customer.
	_, err = repo.FindTransferByClientRef(ctx, 7, "ref-9")
	assert.ErrorIs(t, err, ErrTransferNotFound)
}
