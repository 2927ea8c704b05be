package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"storagebot/core/config"
	"storagebot/core/logger"
	"storagebot/internal/pricing"
	"storagebot/internal/session"
	"storagebot/internal/storage"
)

// Action tags routed by the engine. Parameterized actions carry their payload
// after the prefix (e.g. "client_set_weight_10").
const (
	ActionStart            = "start"
	ActionOwnerPromos      = "owner_promos"
	ActionUnpaidBoxes      = "unpaid_boxes"
	ActionTransfers        = "transfers"
	ActionTransferBox      = "transfer_box_"
	ActionTransferComplete = "transfer_complete_"
	ActionListBoxes        = "client_listboxes"
	ActionShowBox          = "client_show_box_"
	ActionBuyBox           = "client_buy_box"
	ActionSetWeight        = "client_set_weight_"
	ActionSetVolume        = "client_set_volume_"
	ActionRentPeriod       = "client_rent_period_"
	ActionAskPhone         = "client_ask_phone"
	ActionAskAddress       = "client_ask_address"
	ActionTimeArrive       = "client_time_arrive_"
	ActionSaveTransfer     = "client_save_transfer"
	ActionSelfTransfer     = "client_self_transfer"
)

// call bundles everything a handler needs for one event: the event itself,
// the locked session of its chat, and the action parameter (the tag suffix
// after the matched prefix).
type call struct {
	ev    Event
	sess  *session.Session
	param string
}

type handlerFunc func(ctx context.Context, c *call) (Result, error)

type route struct {
	name    string
	prefix  string
	handler handlerFunc
}

// Engine routes inbound events to handlers and drives the rental flow. It is
// transport-agnostic: callers feed it Events and deliver the Results.
type Engine struct {
	gw       storage.Gateway
	sessions *session.Store
	calc     pricing.Calculator
	cfg      config.StorageConfig
	routes   []route
	now      func() time.Time
}

func New(gw storage.Gateway, sessions *session.Store, cfg config.StorageConfig) *Engine {
	e := &Engine{
		gw:       gw,
		sessions: sessions,
		calc:     pricing.New(bandValues(cfg.WeightBands), bandValues(cfg.VolumeBands)),
		cfg:      cfg,
		now:      time.Now,
	}
	e.routes = []route{
		{"start", ActionStart, e.handleStart},
		{"owner_promos", ActionOwnerPromos, e.handleOwnerPromos},
		{"unpaid_boxes", ActionUnpaidBoxes, e.handleUnpaidBoxes},
		{"transfers", ActionTransfers, e.handleTransfers},
		{"transfer_box", ActionTransferBox, e.handleTransferBox},
		{"transfer_complete", ActionTransferComplete, e.handleTransferComplete},
		{"list_boxes", ActionListBoxes, e.handleListBoxes},
		{"show_box", ActionShowBox, e.handleShowBox},
		{"buy_box", ActionBuyBox, e.handleBuyBox},
		{"set_weight", ActionSetWeight, e.handleSetWeight},
		{"set_volume", ActionSetVolume, e.handleSetVolume},
		{"rent_period", ActionRentPeriod, e.handleRentPeriod},
		{"ask_phone", ActionAskPhone, e.handleAskPhone},
		{"ask_address", ActionAskAddress, e.handleAskAddress},
		{"time_arrive", ActionTimeArrive, e.handleTimeArrive},
		{"save_transfer", ActionSaveTransfer, e.handleSaveTransfer},
		{"self_transfer", ActionSelfTransfer, e.handleSelfTransfer},
	}
	return e
}

func bandValues(bands []config.Band) []float64 {
	out := make([]float64, len(bands))
	for i, b := range bands {
		out[i] = b.Value
	}
	return out
}

// Handle processes one event under the per-chat session lock. Events of the
// same chat are serialized; different chats run concurrently.
func (e *Engine) Handle(ctx context.Context, ev Event) (Result, error) {
	sess, release := e.sessions.Acquire(ev.Identity.ChatID)
	defer release()

	start := time.Now()
	name := "text"
	c := &call{ev: ev, sess: sess}

	var (
		res Result
		err error
	)
	switch {
	case ev.Tag == "":
		res, err = e.handleText(ctx, c)
	default:
		rt := e.match(ev.Tag)
		if rt == nil {
			err = fmt.Errorf("%w: %q", ErrUnknownAction, ev.Tag)
		} else {
			name = rt.name
			c.param = ev.Tag[len(rt.prefix):]
			res, err = rt.handler(ctx, c)
		}
	}

	level := slog.LevelInfo
	if err != nil {
		level = slog.LevelWarn
	}
	logger.LogEvent(ctx, logger.Engine, level, "handler.handled",
		slog.String("handler", name),
		slog.String("status", logger.Status(err)),
		slog.Int64("chat_id", ev.Identity.ChatID),
		slog.String("state", string(sess.State)),
		slog.Duration("duration_ms", logger.RoundMS(logger.Took(start))),
	)
	return res, err
}

// match picks the route whose literal prefix is the longest match for the
// tag, so "transfer_complete_3" never lands on "transfer_box_".
func (e *Engine) match(tag string) *route {
	var best *route
	for i := range e.routes {
		r := &e.routes[i]
		if strings.HasPrefix(tag, r.prefix) && (best == nil || len(r.prefix) > len(best.prefix)) {
			best = r
		}
	}
	return best
}

func backRow() []Choice {
	return []Choice{{Label: "В начало", Action: ActionStart}}
}

func notFoundResult() Result {
	return Result{
		Text:    "Запись не найдена.",
		Choices: [][]Choice{backRow()},
	}
}
