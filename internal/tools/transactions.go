/**
 * @description
 * Transaction history handler. Resolves the target account from an explicit
 * account_id (ownership checked) or, when omitted, from the customer's
 * accounts with a disambiguation prompt if several exist.
 */

package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/imSurme/interchat-banking-assistant/internal/domain"
	"github.com/imSurme/interchat-banking-assistant/internal/store"
)

const defaultTxnLimit = 10

func (d Deps) transactionsList(ctx context.Context, args map[string]any) (any, error) {
	customerID, ok := int64Arg(args, "user_id")
	if !ok {
		return nil, domain.NewValidation("invalid_customer_id", "The customer id is invalid.")
	}

	var account *domain.Account
	if accountID, ok := int64Arg(args, "account_id"); ok {
		acc, err := d.Store.GetAccount(ctx, accountID)
		if err != nil {
			if errors.Is(err, store.ErrAccountNotFound) {
				return nil, domain.NewNotFound("account_not_found", "The account was not found.")
			}
			return nil, domain.NewStorage(err)
		}
		if acc.CustomerID != customerID {
			return nil, domain.NewForbidden("account_not_owned", "This account does not belong to you.")
		}
		account = acc
	} else {
		accounts, err := d.Store.GetAccountsByCustomer(ctx, customerID)
		if err != nil {
			return nil, domain.NewStorage(err)
		}
		switch len(accounts) {
		case 0:
			return nil, domain.NewNotFound("no_accounts", "No accounts found.")
		case 1:
			account = &accounts[0]
		default:
			return accountDisambiguation(accounts), nil
		}
	}

	limit := intArg(args, "limit", defaultTxnLimit)
	txns, err := d.Store.ListTransactions(ctx, account.AccountID, limit)
	if err != nil {
		return nil, domain.NewStorage(err)
	}

	items := make([]any, len(txns))
	for i, t := range txns {
		items[i] = map[string]any{
			"ts":          t.Timestamp.Format(time.RFC3339),
			"amount":      domain.MoneyString(t.Amount),
			"currency":    t.Currency,
			"direction":   t.Direction,
			"description": t.Description,
		}
	}
	return domain.Generic{
		Text: fmt.Sprintf("Showing the last %d transactions of account #%d.", len(txns), account.AccountID),
		UI: &domain.UIComponent{Type: "transactions", Data: map[string]any{
			"account_id":   account.AccountID,
			"transactions": items,
		}},
	}, nil
}
