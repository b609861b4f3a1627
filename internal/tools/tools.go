/**
 * @description
 * Banking operations exposed through the operation registry: balance and
 * account queries, card queries, transaction history and the two-phase
 * payment operations. Each handler constructs an explicit result shape from
 * the domain package; classification happens downstream in the formatter.
 *
 * The identity parameter name differs per operation on purpose: older
 * operations grew up in different services and kept their original argument
 * names. The mediator discovers the right one through its alias retry.
 */

package tools

import (
	"time"

	"github.com/imSurme/interchat-banking-assistant/internal/registry"
	"github.com/imSurme/interchat-banking-assistant/internal/store"
	"github.com/imSurme/interchat-banking-assistant/internal/transfer"
)

// DefaultIdentityCandidates is the ordered list of parameter names the
// mediator tries when binding the caller identity.
var DefaultIdentityCandidates = []string{"customer_id", "customerId", "user_id", "customer"}

// Deps carries everything the operation handlers need.
type Deps struct {
	Store  store.Repository
	Engine *transfer.Engine
	// DefaultCurrency applies when a payment request names no currency.
	DefaultCurrency string
	// ReceiptDir, when set, receives a plain-text receipt file per posted
	// payment. Empty disables receipt files.
	ReceiptDir string
}

// Register wires every banking operation into the registry.
func Register(reg *registry.Registry, d Deps) {
	reg.MustRegister(registry.Descriptor{
		Name:        "get_balance",
		Description: "Balance of the customer's account, asking which one if several exist.",
		Params: []registry.ParamSpec{
			{Name: "customer_id", Required: true},
		},
		IdentityCandidates: DefaultIdentityCandidates,
		Handler:            d.getBalance,
	})
	reg.MustRegister(registry.Descriptor{
		Name:        "get_accounts",
		Description: "All accounts of the customer with balances and statuses.",
		Params: []registry.ParamSpec{
			{Name: "customer_id", Required: true},
		},
		IdentityCandidates: DefaultIdentityCandidates,
		Handler:            d.getAccounts,
	})
	reg.MustRegister(registry.Descriptor{
		Name:        "get_balance_by_account_type",
		Description: "Balance of the customer's account of a given type.",
		Params: []registry.ParamSpec{
			{Name: "customer_id", Required: true},
			{Name: "account_type", Required: true},
		},
		IdentityCandidates: DefaultIdentityCandidates,
		Handler:            d.getBalanceByAccountType,
	})
	reg.MustRegister(registry.Descriptor{
		Name:        "list_customer_cards",
		Description: "All cards of the customer.",
		Params: []registry.ParamSpec{
			{Name: "customerId", Required: true},
		},
		IdentityCandidates: DefaultIdentityCandidates,
		Handler:            d.listCustomerCards,
	})
	reg.MustRegister(registry.Descriptor{
		Name:        "get_card_info",
		Description: "Details of one card, asking which one if several exist.",
		Params: []registry.ParamSpec{
			{Name: "customerId", Required: true},
			{Name: "card_id"},
		},
		IdentityCandidates: DefaultIdentityCandidates,
		Handler:            d.getCardInfo,
	})
	reg.MustRegister(registry.Descriptor{
		Name:        "transactions_list",
		Description: "Recent transactions of one account.",
		Params: []registry.ParamSpec{
			{Name: "user_id", Required: true},
			{Name: "account_id"},
			{Name: "limit"},
		},
		IdentityCandidates: DefaultIdentityCandidates,
		Handler:            d.transactionsList,
	})
	reg.MustRegister(registry.Descriptor{
		Name:        "payment_request",
		Description: "Two-phase money transfer: preview without confirm, post with confirm.",
		Params: []registry.ParamSpec{
			{Name: "customer_id", Required: true},
			{Name: "from_account", Required: true},
			{Name: "to_account", Required: true},
			{Name: "amount", Required: true},
			{Name: "currency"},
			{Name: "note"},
			{Name: "confirm"},
			{Name: "client_ref"},
		},
		IdentityCandidates: DefaultIdentityCandidates,
		Timeout:            6 * time.Second,
		Mutating:           true,
		Handler:            d.paymentRequest,
	})
	reg.MustRegister(registry.Descriptor{
		Name:        "payment_request_by_type",
		Description: "Transfer from the customer's account of a given type.",
		Params: []registry.ParamSpec{
			{Name: "customer_id", Required: true},
			{Name: "from_account_type", Required: true},
			{Name: "to_account", Required: true},
			{Name: "amount", Required: true},
			{Name: "currency"},
			{Name: "note"},
			{Name: "confirm"},
			{Name: "client_ref"},
		},
		IdentityCandidates: DefaultIdentityCandidates,
		Timeout:            6 * time.Second,
		Mutating:           true,
		Handler:            d.paymentRequestByType,
	})
}
