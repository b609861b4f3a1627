/**
 * @description
 * Card query handlers. Card numbers leave here unmasked; the sanitizer masks
 * them on the way out along with every other outbound payload.
 */

package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/imSurme/interchat-banking-assistant/internal/domain"
	"github.com/imSurme/interchat-banking-assistant/internal/store"
)

func cardData(c domain.Card) map[string]any {
	available := c.CreditLimit.Sub(c.CurrentDebt)
	return map[string]any{
		"card_id":         c.CardID,
		"card_number":     c.CardNumber,
		"card_type":       c.CardType,
		"credit_limit":    domain.MoneyString(c.CreditLimit),
		"current_debt":    domain.MoneyString(c.CurrentDebt),
		"available_limit": domain.MoneyString(available),
		"statement_day":   c.StatementDay,
		"due_day":         c.DueDay,
		"status":          c.Status,
	}
}

func (d Deps) listCustomerCards(ctx context.Context, args map[string]any) (any, error) {
	customerID, ok := int64Arg(args, "customerId")
	if !ok {
		return nil, domain.NewValidation("invalid_customer_id", "The customer id is invalid.")
	}
	cards, err := d.Store.ListCardsByCustomer(ctx, customerID)
	if err != nil {
		return nil, domain.NewStorage(err)
	}
	if len(cards) == 0 {
		return nil, domain.NewNotFound("no_cards", "No cards found.")
	}
	items := make([]any, len(cards))
	for i, c := range cards {
		items[i] = cardData(c)
	}
	return domain.Generic{
		Text: fmt.Sprintf("You have %d cards.", len(cards)),
		UI:   &domain.UIComponent{Type: "card_list", Data: map[string]any{"cards": items}},
	}, nil
}

func (d Deps) getCardInfo(ctx context.Context, args map[string]any) (any, error) {
	customerID, ok := int64Arg(args, "customerId")
	if !ok {
		return nil, domain.NewValidation("invalid_customer_id", "The customer id is invalid.")
	}

	if cardID, ok := int64Arg(args, "card_id"); ok {
		card, err := d.Store.GetCard(ctx, cardID, customerID)
		if err != nil {
			if errors.Is(err, store.ErrCardNotFound) {
				return nil, domain.NewNotFound("card_not_found", "The card was not found.")
			}
			return nil, domain.NewStorage(err)
		}
		return cardDetail(*card), nil
	}

	cards, err := d.Store.ListCardsByCustomer(ctx, customerID)
	if err != nil {
		return nil, domain.NewStorage(err)
	}
	switch len(cards) {
	case 0:
		return nil, domain.NewNotFound("no_cards", "No cards found.")
	case 1:
		return cardDetail(cards[0]), nil
	default:
		items := make([]domain.DisambiguationItem, len(cards))
		for i, c := range cards {
			items[i] = domain.DisambiguationItem{ID: c.CardID, Label: c.CardType}
		}
		return domain.Disambiguation{Kind: "cards", Items: items}, nil
	}
}

func cardDetail(c domain.Card) domain.Generic {
	return domain.Generic{
		Text: fmt.Sprintf("Your %s card debt is %s, available limit %s.",
			c.CardType, domain.MoneyString(c.CurrentDebt), domain.MoneyString(c.CreditLimit.Sub(c.CurrentDebt))),
		UI: &domain.UIComponent{Type: "card_detail", Data: cardData(c)},
	}
}
