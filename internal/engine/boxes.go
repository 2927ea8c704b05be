package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"storagebot/internal/storage"
)

// Delivery actions shown on the box card. The delivery flows themselves are
// not wired yet; the engine drops these tags as unknown.
// TODO: implement partial and full delivery orders from a stored box.
const (
	actionDeliverAll  = "client_deliver_all"
	actionDeliverPart = "client_deliver_part"
	actionPickupQR    = "client_pickup_qr"
)

func (e *Engine) handleListBoxes(ctx context.Context, c *call) (Result, error) {
	user, _, err := e.gw.FindOrCreateUser(ctx, c.ev.Identity)
	if err != nil {
		return Result{}, fmt.Errorf("resolve user: %w", err)
	}
	boxes, err := e.gw.ListBoxesForUser(ctx, user.ID)
	if err != nil {
		return Result{}, fmt.Errorf("list boxes: %w", err)
	}

	var choices [][]Choice
	for _, b := range boxes {
		choices = append(choices, []Choice{{
			Label:  fmt.Sprintf("Бокс номер %d весом %s, оплачен по %s", b.ID, fmtFloat(b.Weight), fmtDate(b.PaidTill)),
			Action: ActionShowBox + strconv.FormatInt(b.ID, 10),
		}})
	}
	choices = append(choices, backRow())
	return Result{Text: "Список ваших боксов\n", Choices: choices}, nil
}

func (e *Engine) handleShowBox(ctx context.Context, c *call) (Result, error) {
	id, err := strconv.ParseInt(c.param, 10, 64)
	if err != nil {
		return Result{}, fmt.Errorf("%w: box id %q", ErrMalformedEvent, c.param)
	}
	box, err := e.gw.GetBox(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return notFoundResult(), nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("get box: %w", err)
	}
	c.sess.CurrentBoxID = box.ID

	text := fmt.Sprintf("Бокс № %d\nВес: %s кг\nОбъем: %s м³\nОплачен по %s",
		box.ID, fmtFloat(box.Weight), fmtFloat(box.Volume), fmtDate(box.PaidTill))
	return Result{
		Text: text,
		Choices: [][]Choice{
			{{Label: "Заказать доставку всех вещей", Action: actionDeliverAll}},
			{{Label: "Заказать доставку части вещей", Action: actionDeliverPart}},
			{{Label: "QR код чтобы забрать самостоятельно", Action: actionPickupQR}},
			backRow(),
		},
	}, nil
}

func fmtDate(t time.Time) string {
	return t.Format("02.01.2006")
}
