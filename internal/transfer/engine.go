/**
 * @description
 * Two-phase transfer engine: a read-only Precheck that validates a proposed
 * transfer against current state, and a Commit that re-validates everything
 * inside the store's unit of work and atomically posts the movement.
 *
 * Key features:
 * - Precheck never mutates anything and holds no reservation; two customers
 *   can precheck against the same balance concurrently.
 * - Commit trusts nothing from a prior precheck: every rule runs again
 *   against state as of commit time, under the store's row locks.
 * - Optional client reference makes Commit idempotent: a repeated reference
 *   returns the already-posted transfer instead of moving money twice.
 * - A posted commit emits a payment.posted event; publish failures are
 *   logged and never fail the transfer.
 */

package transfer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/imSurme/interchat-banking-assistant/internal/domain"
	"github.com/imSurme/interchat-banking-assistant/internal/limits"
	"github.com/imSurme/interchat-banking-assistant/internal/store"
)

// EventPublisher publishes a posted-transfer event. Implemented by the
// rabbitmq producer; a nil publisher disables events.
type EventPublisher interface {
	PublishPaymentPosted(ctx context.Context, rec *domain.TransferRecord) error
}

// Engine validates and posts transfers against an account store.
type Engine struct {
	store     store.Repository
	policy    limits.Policy
	currency  string
	publisher EventPublisher
	now       func() time.Time
}

// NewEngine creates a transfer engine. publisher may be nil.
func NewEngine(st store.Repository, policy limits.Policy, defaultCurrency string, publisher EventPublisher) *Engine {
	return &Engine{
		store:     st,
		policy:    policy,
		currency:  defaultCurrency,
		publisher: publisher,
		now:       time.Now,
	}
}

// Request describes one proposed transfer.
type Request struct {
	CustomerID  int64
	FromAccount int64
	ToAccount   int64
	Amount      decimal.Decimal
	Currency    string
	Note        string
	ClientRef   string
}

// Precheck validates a proposed transfer without mutating any state. The
// rules run in a fixed order so the caller always sees the most fundamental
// failure first.
func (e *Engine) Precheck(ctx context.Context, req Request) (*domain.PrecheckResult, error) {
	if err := e.policy.CheckAmount(req.Amount); err != nil {
		return nil, err
	}
	if err := limits.CheckAccountsDistinct(req.FromAccount, req.ToAccount); err != nil {
		return nil, err
	}

	from, err := e.store.GetAccount(ctx, req.FromAccount)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return nil, domain.NewNotFound("from_account_not_found", "The source account was not found.")
		}
		return nil, domain.NewStorage(err)
	}
	if err := limits.CheckOwnership(from, req.CustomerID); err != nil {
		return nil, err
	}
	if err := limits.CheckSourceStatus(from); err != nil {
		return nil, err
	}

	to, err := e.store.GetAccount(ctx, req.ToAccount)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return nil, domain.NewNotFound("to_account_not_found", "The destination account was not found.")
		}
		return nil, domain.NewStorage(err)
	}
	if err := limits.CheckDestinationStatus(to); err != nil {
		return nil, err
	}

	requested := req.Currency
	if requested == "" {
		requested = e.currency
	}
	currency, err := limits.CheckCurrency(from, to, requested)
	if err != nil {
		return nil, err
	}

	fee := e.policy.Fee(req.Amount)
	if err := limits.CheckFunds(from, req.Amount, fee); err != nil {
		return nil, err
	}

	usedToday, err := e.store.GetDailyOutboundTotal(ctx, req.CustomerID, e.now().UTC())
	if err != nil {
		return nil, domain.NewStorage(err)
	}
	if err := e.policy.CheckDaily(usedToday, req.Amount); err != nil {
		return nil, err
	}

	return &domain.PrecheckResult{
		FromAccount: req.FromAccount,
		ToAccount:   req.ToAccount,
		Amount:      req.Amount,
		Currency:    currency,
		Fee:         fee,
		Note:        req.Note,
		Limits: domain.LimitsSnapshot{
			PerTxn:    e.policy.PerTxn,
			Daily:     e.policy.Daily,
			UsedToday: usedToday,
		},
	}, nil
}

// Commit re-validates and posts the transfer atomically. If the request
// carries a client reference already posted for this customer, the existing
// record is returned unchanged.
func (e *Engine) Commit(ctx context.Context, req Request) (*domain.TransferRecord, error) {
	if req.ClientRef != "" {
		existing, err := e.store.FindTransferByClientRef(ctx, req.CustomerID, req.ClientRef)
		if err == nil {
			log.Printf("level=info component=transfer_engine msg=\"idempotent replay\" payment_id=%s client_ref=%s", existing.PaymentID, req.ClientRef)
			return existing, nil
		}
		if !errors.Is(err, store.ErrTransferNotFound) {
			return nil, domain.NewStorage(err)
		}
	}

	pre, err := e.Precheck(ctx, req)
	if err != nil {
		return nil, err
	}

	paymentID := e.newPaymentID()
	rec, err := e.store.PostTransfer(ctx, store.PostTransferParams{
		CustomerID:  req.CustomerID,
		FromAccount: req.FromAccount,
		ToAccount:   req.ToAccount,
		Amount:      req.Amount,
		Fee:         pre.Fee,
		Currency:    pre.Currency,
		Note:        req.Note,
		ClientRef:   req.ClientRef,
		PaymentID:   paymentID,
		Limits:      e.policy,
	})
	if err != nil {
		return nil, err
	}

	// The store resolves client_ref races inside its unit of work; a record
	// carrying a different payment id is a replay of an earlier posting, so
	// nothing moved and no event is due.
	if rec.PaymentID != paymentID {
		log.Printf("level=info component=transfer_engine msg=\"idempotent replay\" payment_id=%s client_ref=%s", rec.PaymentID, req.ClientRef)
		return rec, nil
	}

	log.Printf("level=info component=transfer_engine msg=\"transfer posted\" payment_id=%s from=%d to=%d amount=%s %s", rec.PaymentID, rec.FromAccount, rec.ToAccount, rec.Amount.StringFixed(2), rec.Currency)

	if e.publisher != nil {
		if pubErr := e.publisher.PublishPaymentPosted(ctx, rec); pubErr != nil {
			log.Printf("level=error component=transfer_engine msg=\"failed to publish payment.posted event\" payment_id=%s error=%v", rec.PaymentID, pubErr)
		}
	}
	return rec, nil
}

// newPaymentID builds a "TX" identifier from the current UTC time with
// nanosecond suffix, unique enough for a single posting path.
func (e *Engine) newPaymentID() string {
	now := e.now().UTC()
	return fmt.Sprintf("TX%s%09d", now.Format("20060102150405"), now.Nanosecond())
}
