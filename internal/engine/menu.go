package engine

import (
	"context"
	"fmt"
	"strings"
)

const newClientWelcome = "Мы храним ваши вещи, пока вы занимаетесь важными делами.\n" +
	"Арендуйте бокс на нашем складе: привезите вещи сами или закажите вывоз нашими грузчиками.\n"

// handleStart resolves the caller's role and replies with the root menu.
// For a brand-new user the /start payload is kept as the referring-campaign
// tag until the first completed order.
func (e *Engine) handleStart(ctx context.Context, c *call) (Result, error) {
	user, isNew, err := e.gw.FindOrCreateUser(ctx, c.ev.Identity)
	if err != nil {
		return Result{}, fmt.Errorf("resolve user: %w", err)
	}
	if isNew {
		if tag := utmFromPayload(c.ev.Text); tag != "" {
			c.sess.UTMSource = tag
		}
	}

	text := fmt.Sprintf("Здравствуйте %s!\n", user.Username)

	if user.IsOwner {
		return Result{
			Text: text,
			Choices: [][]Choice{
				{{Label: "Посмотреть промокоды", Action: ActionOwnerPromos}},
				{{Label: "Посмотреть просроченные боксы", Action: ActionUnpaidBoxes}},
				{{Label: "Посмотреть открытые трансферы", Action: ActionTransfers}},
			},
		}, nil
	}

	boxes, err := e.gw.ListBoxesForUser(ctx, user.ID)
	if err != nil {
		return Result{}, fmt.Errorf("list boxes: %w", err)
	}
	if len(boxes) > 0 {
		return Result{
			Text: text,
			Choices: [][]Choice{
				{{Label: "Список ваших боксов", Action: ActionListBoxes}},
				{{Label: "Купить еще один бокс", Action: ActionBuyBox}},
			},
		}, nil
	}

	return Result{
		Text: text + newClientWelcome,
		Choices: [][]Choice{
			{{Label: "Купить бокс", Action: ActionBuyBox}},
		},
	}, nil
}

// utmFromPayload extracts the campaign tag from a /start deep-link payload.
func utmFromPayload(payload string) string {
	fields := strings.Fields(payload)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
