package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"storagebot/internal/domain"
	"storagebot/internal/storage"
)

func (e *Engine) handleOwnerPromos(ctx context.Context, c *call) (Result, error) {
	promos, err := e.gw.ListPromoCodes(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list promo codes: %w", err)
	}

	text := "Действующих промокодов нет"
	if len(promos) > 0 {
		lines := make([]string, 0, len(promos))
		for _, p := range promos {
			lines = append(lines, fmt.Sprintf("Промокод %s: скидка %d%%, действует до %s",
				p.Code, p.Discount, fmtDate(p.ValidTill)))
		}
		text = strings.Join(lines, "\n")
	}
	return Result{Text: text, Choices: [][]Choice{backRow()}}, nil
}

func (e *Engine) handleUnpaidBoxes(ctx context.Context, c *call) (Result, error) {
	boxes, err := e.gw.FindUnpaidBoxes(ctx, e.now())
	if err != nil {
		return Result{}, fmt.Errorf("find unpaid boxes: %w", err)
	}

	text := "Просроченных боксов нет"
	if len(boxes) > 0 {
		lines := make([]string, 0, len(boxes))
		for _, b := range boxes {
			lines = append(lines, fmt.Sprintf("Бокс № %d оплачен до %s, клиент %d",
				b.ID, fmtDate(b.PaidTill), b.UserID))
		}
		text = strings.Join(lines, "\n")
	}
	return Result{Text: text, Choices: [][]Choice{backRow()}}, nil
}

func (e *Engine) handleTransfers(ctx context.Context, c *call) (Result, error) {
	transfers, err := e.gw.ListOpenTransferRequests(ctx, e.cfg.TransferListLimit)
	if err != nil {
		return Result{}, fmt.Errorf("list transfer requests: %w", err)
	}

	text := "Заявок на перевозку нет"
	var choices [][]Choice
	if len(transfers) > 0 {
		text = "Список заявок на перевозку грузов\n"
		for _, t := range transfers {
			choices = append(choices, []Choice{{
				Label:  fmt.Sprintf("Бокс № %d, %s", t.BoxID, transferTypeLabel(t.Type)),
				Action: ActionTransferBox + strconv.FormatInt(t.ID, 10),
			}})
		}
	}
	choices = append(choices, backRow())
	return Result{Text: text, Choices: choices}, nil
}

func (e *Engine) handleTransferBox(ctx context.Context, c *call) (Result, error) {
	id, err := strconv.ParseInt(c.param, 10, 64)
	if err != nil {
		return Result{}, fmt.Errorf("%w: transfer id %q", ErrMalformedEvent, c.param)
	}
	transfer, err := e.gw.GetTransferRequest(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return notFoundResult(), nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("get transfer request: %w", err)
	}

	text := fmt.Sprintf("Заявка № %d\nБокс № %d\nАдрес: %s\nУдобное время: %s",
		transfer.ID, transfer.BoxID, transfer.Address, transfer.TimeWindow)
	return Result{
		Text: text,
		Choices: [][]Choice{
			{{Label: "Пометить трансфер как выполненный", Action: ActionTransferComplete + strconv.FormatInt(transfer.ID, 10)}},
			backRow(),
		},
	}, nil
}

// handleTransferComplete is idempotent: completing an already completed
// transfer replies with the same confirmation.
func (e *Engine) handleTransferComplete(ctx context.Context, c *call) (Result, error) {
	id, err := strconv.ParseInt(c.param, 10, 64)
	if err != nil {
		return Result{}, fmt.Errorf("%w: transfer id %q", ErrMalformedEvent, c.param)
	}
	err = e.gw.MarkTransferComplete(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return notFoundResult(), nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("complete transfer: %w", err)
	}
	return Result{
		Text:    fmt.Sprintf("Трансфер %d выполнен", id),
		Choices: [][]Choice{backRow()},
	}, nil
}

func transferTypeLabel(t domain.TransferType) string {
	if t == domain.TransferPickup {
		return "забор вещей"
	}
	return strconv.Itoa(int(t))
}
