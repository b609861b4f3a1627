/**
 * @description
 * Two-phase payment handlers. Without confirm the request runs a read-only
 * precheck and returns a confirmation preview; with confirm it commits
 * through the transfer engine. payment_request_by_type first resolves the
 * source account from the customer's accounts by type and refuses to guess
 * between several of the same type.
 *
 * These operations are registered as mutating: the mediator never
 * alias-retries them, because a retried commit without an idempotency
 * reference could post twice.
 */

package tools

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/imSurme/interchat-banking-assistant/internal/domain"
	"github.com/imSurme/interchat-banking-assistant/internal/transfer"
)

func (d Deps) paymentRequest(ctx context.Context, args map[string]any) (any, error) {
	customerID, ok := int64Arg(args, "customer_id")
	if !ok {
		return nil, domain.NewValidation("invalid_customer_id", "The customer id is invalid.")
	}
	fromAccount, ok := int64Arg(args, "from_account")
	if !ok {
		return nil, domain.NewValidation("invalid_from_account", "The source account id is invalid.")
	}
	return d.runPayment(ctx, args, customerID, fromAccount)
}

func (d Deps) paymentRequestByType(ctx context.Context, args map[string]any) (any, error) {
	customerID, ok := int64Arg(args, "customer_id")
	if !ok {
		return nil, domain.NewValidation("invalid_customer_id", "The customer id is invalid.")
	}
	accountType := strings.ToLower(strings.TrimSpace(stringArg(args, "from_account_type")))
	if accountType == "" {
		return nil, domain.NewValidation("invalid_account_type", "The source account type is missing.")
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
		return d.runPayment(ctx, args, customerID, matched[0].AccountID)
	default:
		return nil, domain.NewValidation("ambiguous_account_type",
			fmt.Sprintf("You have multiple %s accounts. Please specify the account number.", accountType))
	}
}

func (d Deps) runPayment(ctx context.Context, args map[string]any, customerID, fromAccount int64) (any, error) {
	toAccount, ok := int64Arg(args, "to_account")
	if !ok {
		return nil, domain.NewValidation("invalid_to_account", "The destination account id is invalid.")
	}
	amount, ok := decimalArg(args, "amount")
	if !ok {
		return nil, domain.NewValidation("invalid_amount", "The amount is invalid.")
	}
	currency := stringArg(args, "currency")
	if currency == "" {
		currency = d.DefaultCurrency
	}

	req := transfer.Request{
		CustomerID:  customerID,
		FromAccount: fromAccount,
		ToAccount:   toAccount,
		Amount:      amount,
		Currency:    currency,
		Note:        stringArg(args, "note"),
		ClientRef:   stringArg(args, "client_ref"),
	}

	if !boolArg(args, "confirm") {
		pre, err := d.Engine.Precheck(ctx, req)
		if err != nil {
			return nil, err
		}
		ref := req.ClientRef
		if ref == "" {
			ref = uuid.NewString()
		}
		return domain.PaymentPreview{
			CustomerID:         customerID,
			Preview:            *pre,
			SuggestedClientRef: ref,
		}, nil
	}

	rec, err := d.Engine.Commit(ctx, req)
	if err != nil {
		return nil, err
	}
	receipt := domain.PaymentReceipt{Transfer: rec}
	if d.ReceiptDir != "" {
		receipt.ReceiptFile = d.writeReceipt(rec)
	}
	return receipt, nil
}

// writeReceipt drops a plain-text receipt next to the service. Failures are
// logged and never fail the payment.
func (d Deps) writeReceipt(rec *domain.TransferRecord) string {
	path := filepath.Join(d.ReceiptDir, rec.PaymentID+".txt")
	body := fmt.Sprintf(
		"Payment receipt\npayment_id: %s\nfrom_account: %d\nto_account: %d\namount: %s %s\nfee: %s\nposted_at: %s\n",
		rec.PaymentID, rec.FromAccount, rec.ToAccount,
		domain.MoneyString(rec.Amount), rec.Currency,
		domain.MoneyString(rec.Fee), rec.PostedAt.UTC().Format("2006-01-02 15:04:05"),
	)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		log.Printf("level=error component=payments msg=\"failed to write receipt file\" payment_id=%s error=%v", rec.PaymentID, err)
		return ""
	}
	return path
}
