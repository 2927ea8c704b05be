// Package bot binds the conversational engine to Telegram: it turns telebot
// updates into engine events and renders engine results back as messages
// with inline keyboards.
package bot

import (
	"errors"

	tele "gopkg.in/telebot.v4"

	"storagebot/core/telegram"
	"storagebot/core/telegram/callbacks"
	tghelpers "storagebot/core/telegram/helpers"
	"storagebot/core/telegram/keyboard"
	"storagebot/internal/domain"
	"storagebot/internal/engine"
)

const genericErrorText = "Что-то пошло не так. Попробуйте еще раз чуть позже."

// Bot is the telebot-facing adapter around the engine.
type Bot struct {
	engine *engine.Engine
}

func New(eng *engine.Engine) *Bot {
	return &Bot{engine: eng}
}

// Routes lists the bot endpoints: the /start command, inline keyboard
// callbacks, and free-text messages.
func (b *Bot) Routes() []telegram.Route {
	return []telegram.Route{
		{Endpoint: "/start", Handler: b.onStart},
		{Endpoint: tele.OnCallback, Handler: b.onCallback},
		{Endpoint: tele.OnText, Handler: b.onText},
	}
}

func (b *Bot) onStart(c tele.Context) error {
	ev := engine.Event{
		Identity: identityFrom(c),
		Tag:      engine.ActionStart,
		Text:     c.Message().Payload,
	}
	return b.dispatch(c, "start", ev)
}

func (b *Bot) onCallback(c tele.Context) error {
	// Ack first so the client stops showing the spinner regardless of the
	// handler outcome.
	_ = c.Respond()
	ev := engine.Event{
		Identity: identityFrom(c),
		Tag:      callbacks.CallbackKey(c),
	}
	return b.dispatch(c, "callback", ev)
}

func (b *Bot) onText(c tele.Context) error {
	ev := engine.Event{
		Identity: identityFrom(c),
		Text:     c.Text(),
	}
	return b.dispatch(c, "text", ev)
}

func (b *Bot) dispatch(c tele.Context, name string, ev engine.Event) error {
	ctx := tghelpers.WithHandler(c, name)

	res, err := b.engine.Handle(ctx, ev)
	if err != nil {
		// Malformed and unknown events are dropped silently; the engine
		// already logged them. Anything else is an infrastructure failure
		// the user gets a generic reply for.
		if errors.Is(err, engine.ErrMalformedEvent) || errors.Is(err, engine.ErrUnknownAction) {
			return nil
		}
		return tghelpers.SendText(c, genericErrorText)
	}
	if res.Empty() {
		return nil
	}
	if len(res.Choices) == 0 {
		return tghelpers.SendText(c, res.Text)
	}
	return tghelpers.SendWithMarkup(c, res.Text, renderChoices(res.Choices))
}

func renderChoices(rows [][]engine.Choice) *tele.ReplyMarkup {
	btnRows := make([][]keyboard.InlineBtn, len(rows))
	for i, row := range rows {
		r := make([]keyboard.InlineBtn, len(row))
		for j, ch := range row {
			r[j] = keyboard.InlineBtn{Text: ch.Label, Unique: ch.Action}
		}
		btnRows[i] = r
	}
	return keyboard.InlineButtonsRows(btnRows...)
}

func identityFrom(c tele.Context) domain.ChatIdentity {
	id := domain.ChatIdentity{}
	if chat := c.Chat(); chat != nil {
		id.ChatID = chat.ID
	}
	if sender := c.Sender(); sender != nil {
		id.Username = sender.Username
	}
	return id
}
