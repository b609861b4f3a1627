/**
 * @description
 * PostgreSQL implementation of the `Repository` interface. It owns all SQL
 * against the accounts, cards, txns and payments tables, including the
 * atomic transfer commit.
 *
 * Key behaviors:
 * - PostTransfer locks both account rows with SELECT ... FOR UPDATE in
 *   ascending account-id order, so concurrent transfers over an overlapping
 *   account serialize while disjoint pairs proceed in parallel, and lock
 *   ordering cannot deadlock.
 * - The daily aggregate is re-read inside the same transaction as the
 *   balance mutation, closing the precheck-read / commit-write gap.
 * - The client_ref replay lookup also runs inside the transaction, after
 *   the row locks, with a partial UNIQUE index on (customer_id, client_ref)
 *   as the final guard against a duplicate posting.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: PostgreSQL driver and connection pooling.
 * - github.com/shopspring/decimal: Monetary amounts.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/imSurme/interchat-banking-assistant/internal/domain"
	"github.com/imSurme/interchat-banking-assistant/internal/limits"
)

// PostgresRepository is the production Repository backed by a pgx pool.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const accountColumns = `account_id, customer_id, account_number, account_type, balance, currency, status, created_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var acc domain.Account
	err := row.Scan(
		&acc.AccountID,
		&acc.CustomerID,
		&acc.AccountNumber,
		&acc.AccountType,
		&acc.Balance,
		&acc.Currency,
		&acc.Status,
		&acc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &acc, nil
}

// GetAccount retrieves one account row by id.
func (r *PostgresRepository) GetAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = $1`
	return scanAccount(r.db.QueryRow(ctx, query, accountID))
}

// GetAccountsByCustomer retrieves all accounts owned by a customer.
func (r *PostgresRepository) GetAccountsByCustomer(ctx context.Context, customerID int64) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE customer_id = $1 ORDER BY account_id`
	rows, err := r.db.Query(ctx, query, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *acc)
	}
	return accounts, rows.Err()
}

// GetDailyOutboundTotal sums the customer's posted outbound transfers for one
// UTC calendar day. Only committed rows count; in-flight transfers are
// invisible to this query by design.
func (r *PostgresRepository) GetDailyOutboundTotal(ctx context.Context, customerID int64, day time.Time) (decimal.Decimal, error) {
	return dailyOutboundTotal(ctx, r.db, customerID, day)
}

// queryRower is satisfied by both *pgxpool.Pool and pgx.Tx, so the daily
// aggregate can run standalone for precheck and inside the commit tx.
type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func dailyOutboundTotal(ctx context.Context, q queryRower, customerID int64, day time.Time) (decimal.Decimal, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM payments
		WHERE status = 'posted'
		  AND customer_id = $1
		  AND created_at >= $2 AND created_at < $3
	`
	var total decimal.Decimal
	if err := q.QueryRow(ctx, query, customerID, dayStart, dayEnd).Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// GetCard retrieves one card and verifies it belongs to the customer.
func (r *PostgresRepository) GetCard(ctx context.Context, cardID, customerID int64) (*domain.Card, error) {
	query := `
		SELECT card_id, customer_id, card_number, card_type, credit_limit, current_debt, statement_day, due_day, status
		FROM cards
		WHERE card_id = $1 AND customer_id = $2
	`
	var c domain.Card
	err := r.db.QueryRow(ctx, query, cardID, customerID).Scan(
		&c.CardID,
		&c.CustomerID,
		&c.CardNumber,
		&c.CardType,
		&c.CreditLimit,
		&c.CurrentDebt,
		&c.StatementDay,
		&c.DueDay,
		&c.Status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCardNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ListCardsByCustomer retrieves all cards owned by a customer.
func (r *PostgresRepository) ListCardsByCustomer(ctx context.Context, customerID int64) ([]domain.Card, error) {
	query := `
		SELECT card_id, customer_id, card_number, card_type, credit_limit, current_debt, statement_day, due_day, status
		FROM cards
		WHERE customer_id = $1
		ORDER BY card_id
	`
	rows, err := r.db.Query(ctx, query, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []domain.Card
	for rows.Next() {
		var c domain.Card
		if err := rows.Scan(
			&c.CardID,
			&c.CustomerID,
			&c.CardNumber,
			&c.CardType,
			&c.CreditLimit,
			&c.CurrentDebt,
			&c.StatementDay,
			&c.DueDay,
			&c.Status,
		); err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// ListTransactions retrieves the most recent ledger entries of an account.
func (r *PostgresRepository) ListTransactions(ctx context.Context, accountID int64, limit int) ([]domain.AccountTransaction, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT txn_id, account_id, ts, amount, currency, direction, description, counterparty
		FROM txns
		WHERE account_id = $1
		ORDER BY ts DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []domain.AccountTransaction
	for rows.Next() {
		var t domain.AccountTransaction
		if err := rows.Scan(
			&t.TxnID,
			&t.AccountID,
			&t.Timestamp,
			&t.Amount,
			&t.Currency,
			&t.Direction,
			&t.Description,
			&t.Counterparty,
		); err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

const transferColumns = `payment_id, COALESCE(client_ref, ''), customer_id, from_account, to_account, amount, currency, fee, note, status, created_at, posted_at, from_balance_after, to_balance_after`

func scanTransfer(row pgx.Row) (*domain.TransferRecord, error) {
	var rec domain.TransferRecord
	err := row.Scan(
		&rec.PaymentID,
		&rec.ClientRef,
		&rec.CustomerID,
		&rec.FromAccount,
		&rec.ToAccount,
		&rec.Amount,
		&rec.Currency,
		&rec.Fee,
		&rec.Note,
		&rec.Status,
		&rec.CreatedAt,
		&rec.PostedAt,
		&rec.FromBalanceAfter,
		&rec.ToBalanceAfter,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransferNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// FindTransferByClientRef looks up a customer's posted transfer by its
// idempotency reference.
func (r *PostgresRepository) FindTransferByClientRef(ctx context.Context, customerID int64, clientRef string) (*domain.TransferRecord, error) {
	return findTransferByClientRef(ctx, r.db, customerID, clientRef)
}

func findTransferByClientRef(ctx context.Context, q queryRower, customerID int64, clientRef string) (*domain.TransferRecord, error) {
	query := `SELECT ` + transferColumns + ` FROM payments WHERE customer_id = $1 AND client_ref = $2 AND status = 'posted'`
	return scanTransfer(q.QueryRow(ctx, query, customerID, clientRef))
}

// PostTransfer performs the atomic transfer commit. Every policy rule is
// re-checked against the locked rows; any rejection rolls the whole unit back.
func (r *PostgresRepository) PostTransfer(ctx context.Context, p PostTransferParams) (*domain.TransferRecord, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, domain.NewStorage(err)
	}
	defer tx.Rollback(ctx)

	from, to, err := lockAccountPair(ctx, tx, p.FromAccount, p.ToAccount)
	if err != nil {
		return nil, err
	}

	// The replay check runs after the row locks: a concurrent commit with
	// the same reference serializes on the account pair, so the loser's
	// lookup sees the winner's committed row instead of posting a second
	// transfer.
	if p.ClientRef != "" {
		existing, refErr := findTransferByClientRef(ctx, tx, p.CustomerID, p.ClientRef)
		if refErr == nil {
			return existing, nil
		}
		if !errors.Is(refErr, ErrTransferNotFound) {
			return nil, domain.NewStorage(refErr)
		}
	}

	if err := revalidateTransfer(ctx, tx, from, to, p); err != nil {
		return nil, err
	}

	debit := p.Amount.Add(p.Fee)
	if _, err := tx.Exec(ctx,
		`UPDATE accounts SET balance = balance - $1 WHERE account_id = $2`, debit, p.FromAccount); err != nil {
		return nil, domain.NewStorage(err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE accounts SET balance = balance + $1 WHERE account_id = $2`, p.Amount, p.ToAccount); err != nil {
		return nil, domain.NewStorage(err)
	}

	var fromAfter, toAfter decimal.Decimal
	if err := tx.QueryRow(ctx, `SELECT balance FROM accounts WHERE account_id = $1`, p.FromAccount).Scan(&fromAfter); err != nil {
		return nil, domain.NewStorage(err)
	}
	if err := tx.QueryRow(ctx, `SELECT balance FROM accounts WHERE account_id = $1`, p.ToAccount).Scan(&toAfter); err != nil {
		return nil, domain.NewStorage(err)
	}

	now := time.Now().UTC()
	rec := &domain.TransferRecord{
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

	// client_ref carries a partial UNIQUE index (customer_id, client_ref)
	// WHERE client_ref IS NOT NULL; a violation here means another commit
	// with the same reference won a race the in-tx lookup could not see,
	// so the unit rolls back and the winner's row is replayed instead.
	var clientRef *string
	if p.ClientRef != "" {
		clientRef = &p.ClientRef
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO payments (payment_id, client_ref, customer_id, from_account, to_account, amount, currency, fee, note, status, created_at, posted_at, from_balance_after, to_balance_after)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		rec.PaymentID, clientRef, rec.CustomerID, rec.FromAccount, rec.ToAccount,
		rec.Amount, rec.Currency, rec.Fee, rec.Note, rec.Status,
		rec.CreatedAt, rec.PostedAt, rec.FromBalanceAfter, rec.ToBalanceAfter,
	); err != nil {
		var pgErr *pgconn.PgError
		if p.ClientRef != "" && errors.As(err, &pgErr) && pgErr.Code == "23505" {
			_ = tx.Rollback(ctx)
			return r.FindTransferByClientRef(ctx, p.CustomerID, p.ClientRef)
		}
		return nil, domain.NewStorage(err)
	}

	// Mirror the movement into the account history so transactions_list
	// reflects transfers without a join against payments.
	outDesc := fmt.Sprintf("Transfer to #%d", p.ToAccount)
	inDesc := fmt.Sprintf("Transfer from #%d", p.FromAccount)
	if p.Note != "" {
		outDesc += " | " + p.Note
		inDesc += " | " + p.Note
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO txns (account_id, ts, amount, currency, direction, description, counterparty)
		VALUES ($1, $2, $3, $4, 'out', $5, $6)`,
		p.FromAccount, now, debit, p.Currency, outDesc, fmt.Sprintf("%d", p.ToAccount),
	); err != nil {
		return nil, domain.NewStorage(err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO txns (account_id, ts, amount, currency, direction, description, counterparty)
		VALUES ($1, $2, $3, $4, 'in', $5, $6)`,
		p.ToAccount, now, p.Amount, p.Currency, inDesc, fmt.Sprintf("%d", p.FromAccount),
	); err != nil {
		return nil, domain.NewStorage(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.NewStorage(err)
	}
	return rec, nil
}

// lockAccountPair locks both account rows FOR UPDATE in ascending id order
// and returns them mapped back to (from, to).
func lockAccountPair(ctx context.Context, tx pgx.Tx, fromID, toID int64) (*domain.Account, *domain.Account, error) {
	firstID, secondID := fromID, toID
	if secondID < firstID {
		firstID, secondID = secondID, firstID
	}

	lock := func(id int64, code, message string) (*domain.Account, error) {
		query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = $1 FOR UPDATE`
		acc, err := scanAccount(tx.QueryRow(ctx, query, id))
		if err != nil {
			if errors.Is(err, ErrAccountNotFound) {
				return nil, domain.NewNotFound(code, message)
			}
			return nil, domain.NewStorage(err)
		}
		return acc, nil
	}

	codeFor := func(id int64) (string, string) {
		if id == fromID {
			return "from_account_not_found", "The source account was not found."
		}
		return "to_account_not_found", "The destination account was not found."
	}

	code, msg := codeFor(firstID)
	first, err := lock(firstID, code, msg)
	if err != nil {
		return nil, nil, err
	}
	code, msg = codeFor(secondID)
	second, err := lock(secondID, code, msg)
	if err != nil {
		return nil, nil, err
	}

	if first.AccountID == fromID {
		return first, second, nil
	}
	return second, first, nil
}

// revalidateTransfer re-runs the full transfer policy against the locked
// rows, including the daily aggregate read inside the same transaction.
func revalidateTransfer(ctx context.Context, tx pgx.Tx, from, to *domain.Account, p PostTransferParams) error {
	if err := p.Limits.CheckAmount(p.Amount); err != nil {
		return err
	}
	if err := limits.CheckAccountsDistinct(from.AccountID, to.AccountID); err != nil {
		return err
	}
	if err := limits.CheckOwnership(from, p.CustomerID); err != nil {
		return err
	}
	if err := limits.CheckSourceStatus(from); err != nil {
		return err
	}
	if err := limits.CheckDestinationStatus(to); err != nil {
		return err
	}
	if _, err := limits.CheckCurrency(from, to, p.Currency); err != nil {
		return err
	}
	if err := limits.CheckFunds(from, p.Amount, p.Fee); err != nil {
		return err
	}
	usedToday, err := dailyOutboundTotal(ctx, tx, p.CustomerID, time.Now().UTC())
	if err != nil {
		return domain.NewStorage(err)
	}
	return p.Limits.CheckDaily(usedToday, p.Amount)
}
