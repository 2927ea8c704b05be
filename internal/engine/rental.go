package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"storagebot/core/logger"
	"storagebot/internal/domain"
	"storagebot/internal/flow"
)

// advance moves the session to the next flow step. The flow is permissive:
// an out-of-order step is logged and taken anyway, with missing draft fields
// left at their zero values. A step taken without an active draft starts one.
func (e *Engine) advance(ctx context.Context, c *call, next flow.State) {
	if c.sess.Draft.FlowID == "" {
		c.sess.BeginFlow()
	}
	if !flow.InOrder(c.sess.State, next) {
		logger.Warn(ctx, "engine", "flow.out_of_order",
			slog.String("flow_id", c.sess.Draft.FlowID),
			slog.String("from", string(c.sess.State)),
			slog.String("to", string(next)),
		)
	}
	c.sess.State = next
}

func (e *Engine) handleBuyBox(_ context.Context, c *call) (Result, error) {
	c.sess.BeginFlow()

	choices := make([][]Choice, 0, len(e.cfg.WeightBands))
	for _, b := range e.cfg.WeightBands {
		choices = append(choices, []Choice{{
			Label:  b.Label,
			Action: ActionSetWeight + fmtFloat(b.Value),
		}})
	}
	return Result{
		Text:    "Укажите вес вещей, которые вы хотите хранить в боксе:",
		Choices: choices,
	}, nil
}

func (e *Engine) handleSetWeight(ctx context.Context, c *call) (Result, error) {
	weight, err := strconv.ParseFloat(c.param, 64)
	if err != nil {
		return Result{}, fmt.Errorf("%w: weight %q", ErrMalformedEvent, c.param)
	}
	e.advance(ctx, c, flow.StateWeightChosen)
	c.sess.Draft.Weight = weight

	text := ""
	if weight == 0 {
		text = "Не переживайте, наши грузчики взвесят ваш груз. " +
			"Однако будьте готовы к тому, что цена может измениться\n\n"
	}
	text += "Теперь укажите объем груза. Объем рассчитывается как перемножение" +
		" трех величин в метрах: высоты, ширины и длины:"

	choices := make([][]Choice, 0, len(e.cfg.VolumeBands))
	for _, b := range e.cfg.VolumeBands {
		choices = append(choices, []Choice{{
			Label:  b.Label,
			Action: ActionSetVolume + fmtFloat(b.Value),
		}})
	}
	return Result{Text: text, Choices: choices}, nil
}

func (e *Engine) handleSetVolume(ctx context.Context, c *call) (Result, error) {
	volume, err := strconv.ParseFloat(c.param, 64)
	if err != nil {
		return Result{}, fmt.Errorf("%w: volume %q", ErrMalformedEvent, c.param)
	}
	e.advance(ctx, c, flow.StateVolumeChosen)
	d := &c.sess.Draft
	d.Volume = volume
	d.Price = e.calc.Price(d.Weight, volume)

	text := ""
	switch {
	case d.Weight == 0 && volume == 0:
		text = "Цена бокса зависит от веса и объема." +
			"После того, как эти величины измерят грузчики, вам сообщат цену\n\n"
	case volume == 0:
		text = "Не переживайте, наши грузчики измерят размеры вашего груза. " +
			"Однако будьте готовы к тому, что цена может измениться\n\n"
	}
	if d.Price != 0 {
		text += fmt.Sprintf("Цена вашего бокса составляет: %d руб. в месяц\n\n"+
			"Укажите период аренды:", d.Price)
	}

	choices := make([][]Choice, 0, len(e.cfg.RentPeriods))
	for _, months := range e.cfg.RentPeriods {
		choices = append(choices, []Choice{{
			Label:  fmt.Sprintf("%d %s", months, monthsNoun(months)),
			Action: ActionRentPeriod + strconv.Itoa(months),
		}})
	}
	return Result{Text: text, Choices: choices}, nil
}

func (e *Engine) handleRentPeriod(ctx context.Context, c *call) (Result, error) {
	months, err := strconv.Atoi(c.param)
	if err != nil {
		return Result{}, fmt.Errorf("%w: rent period %q", ErrMalformedEvent, c.param)
	}
	e.advance(ctx, c, flow.StatePeriodChosen)
	c.sess.Draft.PeriodMonths = months

	// A client with a phone number on file skips the phone step.
	user, _, err := e.gw.FindOrCreateUser(ctx, c.ev.Identity)
	if err != nil {
		return Result{}, fmt.Errorf("resolve user: %w", err)
	}
	pickupAction := ActionAskPhone
	if user.Phone != "" {
		pickupAction = ActionAskAddress
	}

	return Result{
		Text: "Как ваши вещи окажутся на складе?",
		Choices: [][]Choice{
			{{Label: "Нужно забрать вещи по адресу", Action: pickupAction}},
			{{Label: "Доставлю свои вещи сам", Action: ActionSelfTransfer}},
		},
	}, nil
}

func (e *Engine) handleAskPhone(ctx context.Context, c *call) (Result, error) {
	e.advance(ctx, c, flow.StateAwaitingPhone)
	c.sess.Draft.Fulfillment = flow.FulfillmentPickup
	c.sess.AwaitingPhone = true
	return Result{Text: "Пожалуйста, введите ваш номер телефона:"}, nil
}

func (e *Engine) handleAskAddress(ctx context.Context, c *call) (Result, error) {
	e.advance(ctx, c, flow.StateAwaitingAddress)
	c.sess.Draft.Fulfillment = flow.FulfillmentPickup
	c.sess.AwaitingAddress = true
	return Result{Text: "Пожалуйста, введите ваш адрес:"}, nil
}

// handleText routes free-text messages into the field the flow is waiting
// for. Text outside a collection step is ignored.
func (e *Engine) handleText(ctx context.Context, c *call) (Result, error) {
	switch {
	case c.sess.AwaitingPhone:
		c.sess.Draft.Phone = strings.TrimSpace(c.ev.Text)
		c.sess.AwaitingPhone = false
		return e.handleAskAddress(ctx, c)
	case c.sess.AwaitingAddress:
		c.sess.Draft.Address = strings.TrimSpace(c.ev.Text)
		c.sess.AwaitingAddress = false
		return e.askTimeWindow(ctx, c)
	}
	return Result{}, nil
}

func (e *Engine) askTimeWindow(ctx context.Context, c *call) (Result, error) {
	e.advance(ctx, c, flow.StateAwaitingWindow)

	choices := make([][]Choice, 0, len(e.cfg.PickupWindows))
	for _, window := range e.cfg.PickupWindows {
		choices = append(choices, []Choice{{
			Label:  window,
			Action: ActionTimeArrive + window,
		}})
	}
	return Result{
		Text:    "В какое время вам удобно, чтобы приехали наши грузчики?",
		Choices: choices,
	}, nil
}

func (e *Engine) handleTimeArrive(ctx context.Context, c *call) (Result, error) {
	if c.param == "" {
		return Result{}, fmt.Errorf("%w: empty time window", ErrMalformedEvent)
	}
	e.advance(ctx, c, flow.StateWindowChosen)
	c.sess.Draft.TimeWindow = c.param

	return Result{
		Text: "Подтвердите согласие на обработку персональных данных. Полный текст доступен по адресу:" +
			e.cfg.ConsentURL,
		Choices: [][]Choice{
			{{Label: "Согласен на обработку перс.данных", Action: ActionSaveTransfer}},
		},
	}, nil
}

// handleSaveTransfer closes a pickup flow: the consent is recorded, the
// client's contact details are saved, the box and its pickup request are
// created, and the campaign tag is written once if the user has none yet.
func (e *Engine) handleSaveTransfer(ctx context.Context, c *call) (Result, error) {
	e.advance(ctx, c, flow.StateCompleted)
	c.sess.Draft.Consent = true

	user, _, err := e.gw.FindOrCreateUser(ctx, c.ev.Identity)
	if err != nil {
		return Result{}, fmt.Errorf("resolve user: %w", err)
	}
	d := c.sess.Draft

	if d.Phone != "" {
		user.Phone = d.Phone
	}
	user.Address = d.Address
	if err := e.gw.UpdateUser(ctx, user); err != nil {
		return Result{}, fmt.Errorf("save contact details: %w", err)
	}

	box, err := e.createBox(ctx, c, user.ID)
	if err != nil {
		return Result{}, err
	}

	_, err = e.gw.CreateTransferRequest(ctx, domain.TransferRequest{
		BoxID:      box.ID,
		Type:       domain.TransferPickup,
		Address:    d.Address,
		TimeWindow: d.TimeWindow,
		IsComplete: false,
	})
	if err != nil {
		return Result{}, fmt.Errorf("save transfer request: %w", err)
	}

	if err := e.saveUTM(ctx, c, user); err != nil {
		return Result{}, err
	}
	c.sess.FinishFlow()

	return Result{
		Text:    "Спасибо за ваш заказ! Наши грузчики позвонят вам за 1 час до приезда",
		Choices: [][]Choice{backRow()},
	}, nil
}

// handleSelfTransfer closes a self-delivery flow: only the box is created,
// and the reply tells the client where to bring the goods.
func (e *Engine) handleSelfTransfer(ctx context.Context, c *call) (Result, error) {
	e.advance(ctx, c, flow.StateCompleted)
	c.sess.Draft.Fulfillment = flow.FulfillmentSelf

	user, _, err := e.gw.FindOrCreateUser(ctx, c.ev.Identity)
	if err != nil {
		return Result{}, fmt.Errorf("resolve user: %w", err)
	}
	if _, err := e.createBox(ctx, c, user.ID); err != nil {
		return Result{}, err
	}
	if err := e.saveUTM(ctx, c, user); err != nil {
		return Result{}, err
	}
	c.sess.FinishFlow()

	site := e.cfg.Site
	text := fmt.Sprintf("Ждем вас на нашем складе!\nАдрес: %s\nТелефон: %s\nЧасы работы: %s",
		site.Address, site.Phone, site.WorkingHours)
	return Result{Text: text, Choices: [][]Choice{backRow()}}, nil
}

func (e *Engine) createBox(ctx context.Context, c *call, userID int64) (domain.Box, error) {
	d := c.sess.Draft
	now := e.now()
	box, err := e.gw.CreateBox(ctx, domain.Box{
		UserID:      userID,
		Weight:      d.Weight,
		Volume:      d.Volume,
		PaidFrom:    now,
		PaidTill:    now.AddDate(0, 0, d.PeriodMonths*30),
		Description: "заявка " + d.FlowID,
	})
	if err != nil {
		return domain.Box{}, fmt.Errorf("save box: %w", err)
	}
	return box, nil
}

// saveUTM persists the referring-campaign tag captured at first contact.
// It is written at most once: a user with a tag on file keeps it.
func (e *Engine) saveUTM(ctx context.Context, c *call, user domain.User) error {
	if c.sess.UTMSource == "" || user.UTMSource != "" {
		return nil
	}
	user.UTMSource = c.sess.UTMSource
	if err := e.gw.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("save utm source: %w", err)
	}
	c.sess.UTMSource = ""
	return nil
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func monthsNoun(n int) string {
	switch {
	case n%10 == 1 && n%100 != 11:
		return "месяц"
	case n%10 >= 2 && n%10 <= 4 && (n%100 < 10 || n%100 >= 20):
		return "месяца"
	default:
		return "месяцев"
	}
}
