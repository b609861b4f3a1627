package transfer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/imSurme/interchat-banking-assistant/internal/domain"
	"github.com/imSurme/interchat-banking-assistant/internal/limits"
	"github.com/imSurme/interchat-banking-assistant/internal/store"
)

func testPolicy() limits.Policy {
	return limits.Policy{
		PerTxn: decimal.NewFromInt(20000),
		Daily:  decimal.NewFromInt(50000),
	}
}

func seedRepo(t *testing.T) *store.MemoryRepository {
	t.Helper()
	repo := store.NewMemoryRepository()
	repo.PutAccount(domain.Account{
		AccountID:  101,
		CustomerID: 1,
		Balance:    decimal.NewFromInt(5000),
		Currency:   "TRY",
		Status:     domain.AccountStatusActive,
	})
	repo.PutAccount(domain.Account{
		AccountID:  202,
		CustomerID: 2,
		Balance:    decimal.NewFromInt(100),
		Currency:   "TRY",
		Status:     domain.AccountStatusActive,
	})
	return repo
}

func TestPrecheckHappyPath(t *testing.T) {
	repo := seedRepo(t)
	eng := NewEngine(repo, testPolicy(), "TRY", nil)

	pre, err := eng.Precheck(context.Background(), Request{
		CustomerID:  1,
		FromAccount: 101,
		ToAccount:   202,
		Amount:      decimal.NewFromInt(1000),
	})
	if err != nil {
		t.Fatalf("Precheck failed: %v", err)
	}
	if pre.Currency != "TRY" {
		t.Errorf("expected default currency TRY, got %s", pre.Currency)
	}
	if !pre.Fee.IsZero() {
		t.Errorf("expected zero fee, got %s", pre.Fee)
	}
	if !pre.Limits.PerTxn.Equal(decimal.NewFromInt(20000)) {
		t.Errorf("unexpected per-txn limit in snapshot: %s", pre.Limits.PerTxn)
	}

	// A precheck must not touch balances.
	from, _ := repo.GetAccount(context.Background(), 101)
	if !from.Balance.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("precheck mutated source balance: %s", from.Balance)
	}
}

func TestPrecheckRejections(t *testing.T) {
	repo := seedRepo(t)
	repo.PutAccount(domain.Account{
		AccountID:  303,
		CustomerID: 1,
		Balance:    decimal.NewFromInt(200),
		Currency:   "TRY",
		Status:     domain.AccountStatusFrozen,
	})
	repo.PutAccount(domain.Account{
		AccountID:  404,
		CustomerID: 2,
		Balance:    decimal.NewFromInt(0),
		Currency:   "USD",
		Status:     domain.AccountStatusActive,
	})
	eng := NewEngine(repo, testPolicy(), "TRY", nil)

	tests := []struct {
		name     string
		req      Request
		wantKind domain.ErrorKind
		wantCode string
	}{
		{
			name:     "zero amount",
			req:      Request{CustomerID: 1, FromAccount: 101, ToAccount: 202, Amount: decimal.Zero},
			wantKind: domain.KindValidation,
			wantCode: "invalid_amount",
		},
		{
			name:     "per-txn limit applies before account lookup",
			req:      Request{CustomerID: 1, FromAccount: 999, ToAccount: 202, Amount: decimal.NewFromInt(20001)},
			wantKind: domain.KindLimitExceeded,
			wantCode: "per_txn_limit_exceeded",
		},
		{
			name:     "same source and destination",
			req:      Request{CustomerID: 1, FromAccount: 101, ToAccount: 101, Amount: decimal.NewFromInt(10)},
			wantKind: domain.KindValidation,
			wantCode: "same_account",
		},
		{
			name:     "source not owned",
			req:      Request{CustomerID: 1, FromAccount: 202, ToAccount: 101, Amount: decimal.NewFromInt(10)},
			wantKind: domain.KindForbidden,
			wantCode: "from_account_not_owned",
		},
		{
			name:     "frozen source",
			req:      Request{CustomerID: 1, FromAccount: 303, ToAccount: 202, Amount: decimal.NewFromInt(10)},
			wantKind: domain.KindValidation,
			wantCode: "from_account_inactive",
		},
		{
			name:     "missing destination",
			req:      Request{CustomerID: 1, FromAccount: 101, ToAccount: 999, Amount: decimal.NewFromInt(10)},
			wantKind: domain.KindNotFound,
			wantCode: "to_account_not_found",
		},
		{
			name:     "currency mismatch",
			req:      Request{CustomerID: 1, FromAccount: 101, ToAccount: 404, Amount: decimal.NewFromInt(10)},
			wantKind: domain.KindCurrencyMismatch,
			wantCode: "currency_mismatch",
		},
		{
			name:     "insufficient funds",
			req:      Request{CustomerID: 1, FromAccount: 101, ToAccount: 202, Amount: decimal.NewFromInt(5001)},
			wantKind: domain.KindValidation,
			wantCode: "insufficient_funds",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := eng.Precheck(context.Background(), tc.req)
			if err == nil {
				t.Fatal("expected an error")
			}
			var de *domain.Error
			if !errors.As(err, &de) {
				t.Fatalf("expected a classified error, got %T: %v", err, err)
			}
			if de.Kind != tc.wantKind || de.Code != tc.wantCode {
				t.Errorf("got kind=%s code=%s, want kind=%s code=%s", de.Kind, de.Code, tc.wantKind, tc.wantCode)
			}
		})
	}
}

func TestCommitMovesBalancesAtomically(t *testing.T) {
	repo := seedRepo(t)
	eng := NewEngine(repo, testPolicy(), "TRY", nil)

	rec, err := eng.Commit(context.Background(), Request{
		CustomerID:  1,
		FromAccount: 101,
		ToAccount:   202,
		Amount:      decimal.NewFromInt(1000),
		Note:        "rent",
	})
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if rec.Status != domain.TransferStatusPosted {
		t.Errorf("expected posted status, got %s", rec.Status)
	}
	if len(rec.PaymentID) < 3 || rec.PaymentID[:2] != "TX" {
		t.Errorf("unexpected payment id %q", rec.PaymentID)
	}
	if !rec.FromBalanceAfter.Equal(decimal.NewFromInt(4000)) {
		t.Errorf("from_balance_after = %s, want 4000", rec.FromBalanceAfter)
	}
	if !rec.ToBalanceAfter.Equal(decimal.NewFromInt(1100)) {
		t.Errorf("to_balance_after = %s, want 1100", rec.ToBalanceAfter)
	}

	from, _ := repo.GetAccount(context.Background(), 101)
	to, _ := repo.GetAccount(context.Background(), 202)
	if !from.Balance.Equal(decimal.NewFromInt(4000)) || !to.Balance.Equal(decimal.NewFromInt(1100)) {
		t.Errorf("balances not applied: from=%s to=%s", from.Balance, to.Balance)
	}

	txns, err := repo.ListTransactions(context.Background(), 101, 10)
	if err != nil {
		t.Fatalf("ListTransactions failed: %v", err)
	}
	if len(txns) != 1 || txns[0].Direction != "out" {
		t.Fatalf("expected one outbound ledger entry, got %+v", txns)
	}
}

func TestCommitFailureLeavesBalancesUntouched(t *testing.T) {
	repo := seedRepo(t)
	repo.SetCommitHook(func() error { return errors.New("write failed") })
	eng := NewEngine(repo, testPolicy(), "TRY", nil)

	_, err := eng.Commit(context.Background(), Request{
		CustomerID:  1,
		FromAccount: 101,
		ToAccount:   202,
		Amount:      decimal.NewFromInt(1000),
	})
	if domain.KindOf(err) != domain.KindStorage {
		t.Fatalf("expected a storage error, got %v", err)
	}

	from, _ := repo.GetAccount(context.Background(), 101)
	to, _ := repo.GetAccount(context.Background(), 202)
	if !from.Balance.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("source balance changed after failed commit: %s", from.Balance)
	}
	if !to.Balance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("destination balance changed after failed commit: %s", to.Balance)
	}
}

func TestCommitEnforcesDailyLimitAcrossTransfers(t *testing.T) {
	repo := store.NewMemoryRepository()
	repo.PutAccount(domain.Account{
		AccountID:  101,
		CustomerID: 1,
		Balance:    decimal.NewFromInt(100000),
		Currency:   "TRY",
		Status:     domain.AccountStatusActive,
	})
	repo.PutAccount(domain.Account{
		AccountID:  202,
		CustomerID: 2,
		Balance:    decimal.Zero,
		Currency:   "TRY",
		Status:     domain.AccountStatusActive,
	})
	eng := NewEngine(repo, testPolicy(), "TRY", nil)

	for i := 0; i < 2; i++ {
		if _, err := eng.Commit(context.Background(), Request{
			CustomerID: 1, FromAccount: 101, ToAccount: 202,
			Amount: decimal.NewFromInt(20000),
		}); err != nil {
			t.Fatalf("commit %d failed: %v", i+1, err)
		}
	}

	// 40000 used; another 20000 exceeds the 50000 daily cap.
	_, err := eng.Commit(context.Background(), Request{
		CustomerID: 1, FromAccount: 101, ToAccount: 202,
		Amount: decimal.NewFromInt(20000),
	})
	var de *domain.Error
	if !errors.As(err, &de) || de.Code != "daily_limit_exceeded" {
		t.Fatalf("expected daily_limit_exceeded, got %v", err)
	}

	// A smaller transfer that still fits must pass.
	if _, err := eng.Commit(context.Background(), Request{
		CustomerID: 1, FromAccount: 101, ToAccount: 202,
		Amount: decimal.NewFromInt(10000),
	}); err != nil {
		t.Fatalf("within-limit commit failed: %v", err)
	}
}

func TestCommitIdempotentClientRef(t *testing.T) {
	repo := seedRepo(t)
	eng := NewEngine(repo, testPolicy(), "TRY", nil)

	req := Request{
		CustomerID:  1,
		FromAccount: 101,
		ToAccount:   202,
		Amount:      decimal.NewFromInt(500),
		ClientRef:   "ref-abc",
	}
	first, err := eng.Commit(context.Background(), req)
	if err != nil {
		t.Fatalf("first commit failed: %v", err)
	}
	second, err := eng.Commit(context.Background(), req)
	if err != nil {
		t.Fatalf("replayed commit failed: %v", err)
	}
	if second.PaymentID != first.PaymentID {
		t.Errorf("replay posted a new transfer: %s vs %s", second.PaymentID, first.PaymentID)
	}

	from, _ := repo.GetAccount(context.Background(), 101)
	if !from.Balance.Equal(decimal.NewFromInt(4500)) {
		t.Errorf("replay moved money twice, balance=%s", from.Balance)
	}
}

// refBlindStore hides posted client references from the engine's fast-path
// lookup, the situation of a retried commit whose lookup ran before the first
// commit landed.
type refBlindStore struct {
	*store.MemoryRepository
}

func (s refBlindStore) FindTransferByClientRef(ctx context.Context, customerID int64, clientRef string) (*domain.TransferRecord, error) {
	return nil, store.ErrTransferNotFound
}

func TestCommitClientRefRacePostsOnce(t *testing.T) {
	repo := seedRepo(t)
	pub := &recordingPublisher{}
	eng := NewEngine(refBlindStore{repo}, testPolicy(), "TRY", pub)

	req := Request{
		CustomerID:  1,
		FromAccount: 101,
		ToAccount:   202,
		Amount:      decimal.NewFromInt(500),
		ClientRef:   "ref-race",
	}
	first, err := eng.Commit(context.Background(), req)
	if err != nil {
		t.Fatalf("first commit failed: %v", err)
	}
	second, err := eng.Commit(context.Background(), req)
	if err != nil {
		t.Fatalf("retried commit failed: %v", err)
	}
	if second.PaymentID != first.PaymentID {
		t.Errorf("retry posted a second transfer: %s vs %s", second.PaymentID, first.PaymentID)
	}

	from, _ := repo.GetAccount(context.Background(), 101)
	if !from.Balance.Equal(decimal.NewFromInt(4500)) {
		t.Errorf("retry moved money twice, balance=%s", from.Balance)
	}
	if len(pub.posted) != 1 {
		t.Errorf("expected exactly one published event, got %d", len(pub.posted))
	}
}

type recordingPublisher struct {
	posted []*domain.TransferRecord
}

func (p *recordingPublisher) PublishPaymentPosted(ctx context.Context, rec *domain.TransferRecord) error {
	p.posted = append(p.posted, rec)
	return nil
}

func TestCommitPublishesEvent(t *testing.T) {
	repo := seedRepo(t)
	pub := &recordingPublisher{}
	eng := NewEngine(repo, testPolicy(), "TRY", pub)
	eng.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 42, time.UTC) }

	rec, err := eng.Commit(context.Background(), Request{
		CustomerID: 1, FromAccount: 101, ToAccount: 202,
		Amount: decimal.NewFromInt(50),
	})
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if rec.PaymentID != "TX20250301120000000000042" {
		t.Errorf("unexpected payment id %q", rec.PaymentID)
	}
	if len(pub.posted) != 1 || pub.posted[0].PaymentID != rec.PaymentID {
		t.Errorf("expected one published event for %s, got %+v", rec.PaymentID, pub.posted)
	}
}
