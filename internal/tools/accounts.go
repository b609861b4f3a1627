/**
 * @description
 * Account and balance query handlers.
 */

package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/imSurme/interchat-banking-assistant/internal/domain"
)

func accountLabel(a domain.Account) string {
	return fmt.Sprintf("%s (%s)", a.AccountType, a.Currency)
}

func accountData(a domain.Account) map[string]any {
	return map[string]any{
		"account_id":     a.AccountID,
		"account_number": a.AccountNumber,
		"account_type":   a.AccountType,
		"balance":        domain.MoneyString(a.Balance),
		"currency":       a.Currency,
		"status":         a.Status,
	}
}

func balanceResult(a domain.Account) domain.Generic {
	return domain.Generic{
		Text: fmt.Sprintf("Your %s account #%d balance is %s %s.",
			a.AccountType, a.AccountID, domain.MoneyString(a.Balance), a.Currency),
		UI: &domain.UIComponent{Type: "balance", Data: accountData(a)},
	}
}

func accountDisambiguation(accounts []domain.Account) domain.Disambiguation {
	items := make([]domain.DisambiguationItem, len(accounts))
	for i, a := range accounts {
		items[i] = domain.DisambiguationItem{ID: a.AccountID, Label: accountLabel(a)}
	}
	return domain.Disambiguation{Kind: "accounts", Items: items}
}

func (d Deps) getBalance(ctx context.Context, args map[string]any) (any, error) {
	customerID, ok := int64Arg(args, "customer_id")
	if !ok {
		return nil, domain.NewValidation("invalid_customer_id", "The customer id is invalid.")
	}
	accounts, err := d.Store.GetAccountsByCustomer(ctx, customerID)
	if err != nil {
		return nil, domain.NewStorage(err)
	}
	switch len(accounts) {
	case 0:
		return nil, domain.NewNotFound("no_accounts", "No accounts found.")
	case 1:
		return balanceResult(accounts[0]), nil
	default:
		return accountDisambiguation(accounts), nil
	}
}

func (d Deps) getAccounts(ctx context.Context, args map[string]any) (any, error) {
	customerID, ok := int64Arg(args, "customer_id")
	if !ok {
		return nil, domain.NewValidation("invalid_customer_id", "The customer id is invalid.")
	}
	accounts, err := d.Store.GetAccountsByCustomer(ctx, customerID)
	if err != nil {
		return nil, domain.NewStorage(err)
	}
	if len(accounts) == 0 {
		return nil, domain.NewNotFound("no_accounts", "No accounts found.")
	}
	items := make([]any, len(accounts))
	for i, a := range accounts {
		items[i] = accountData(a)
	}
	return domain.Generic{
		Text: fmt.Sprintf("You have %d accounts.", len(accounts)),
		UI:   &domain.UIComponent{Type: "account_list", Data: map[string]any{"accounts": items}},
	}, nil
}

func (d Deps) getBalanceByAccountType(ctx context.Context, args map[string]any) (any, error) {
	customerID, ok := int64Arg(args, "customer_id")
	if !ok {
		return nil, domain.NewValidation("invalid_customer_id", "The customer id is invalid.")
	}
	accountType := strings.ToLower(strings.TrimSpace(stringArg(args, "account_type")))
	if accountType == "" {
		return nil, domain.NewValidation("invalid_account_type", "The account type is missing.")
	}
	accounts, err := d.Store.GetAccountsByCustomer(ctx, customerID)
	if err != nil {
		return nil, domain.NewStorage(err)
	}
	var matched []domain.Account
	for _, a := range accounts {
		if strings.ToLower(a.AccountType) == accountType {
			matched = append(matched, a)
		}
	}
	switch len(matched) {
	case 0:
		return nil, domain.NewNotFound("no_account_of_type",
			fmt.Sprintf("You have no %s account.", accountType))
	case 1:
		return balanceResult(matched[0]), nil
	default:
		return accountDisambiguation(matched), nil
	}
}
