package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"storagebot/core/config"
	"storagebot/internal/domain"
	"storagebot/internal/flow"
	"storagebot/internal/session"
	"storagebot/internal/storage"
)

var testNow = time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

func testEngine(gw storage.Gateway) *Engine {
	e := New(gw, session.NewStore(16), config.DefaultStorage())
	e.now = func() time.Time { return testNow }
	return e
}

func identity(chatID int64) domain.ChatIdentity {
	return domain.ChatIdentity{ChatID: chatID, Username: "client"}
}

func tag(chatID int64, action string) Event {
	return Event{Identity: identity(chatID), Tag: action}
}

func text(chatID int64, msg string) Event {
	return Event{Identity: identity(chatID), Text: msg}
}

// actions flattens the result keyboard into its action tags, row by row.
func actions(res Result) []string {
	var out []string
	for _, row := range res.Choices {
		for _, ch := range row {
			out = append(out, ch.Action)
		}
	}
	return out
}

func TestStart_NewClientMenu(t *testing.T) {
	gw := storage.NewMemoryGateway()
	e := testEngine(gw)
	ctx := context.Background()

	res, err := e.Handle(ctx, tag(1, ActionStart))
	require.NoError(t, err)
	require.Contains(t, res.Text, "Здравствуйте client!")
	require.Contains(t, res.Text, "Арендуйте бокс")
	require.Equal(t, []string{ActionBuyBox}, actions(res))
}

func TestStart_ReturningClientMenu(t *testing.T) {
	gw := storage.NewMemoryGateway()
	e := testEngine(gw)
	ctx := context.Background()

	user, _, err := gw.FindOrCreateUser(ctx, identity(1))
	require.NoError(t, err)
	_, err = gw.CreateBox(ctx, domain.Box{UserID: user.ID, PaidTill: testNow.AddDate(0, 1, 0)})
	require.NoError(t, err)

	res, err := e.Handle(ctx, tag(1, ActionStart))
	require.NoError(t, err)
	require.Equal(t, []string{ActionListBoxes, ActionBuyBox}, actions(res))
}

func TestStart_OwnerMenu(t *testing.T) {
	gw := storage.NewMemoryGateway()
	e := testEngine(gw)
	ctx := context.Background()

	_, _, err := gw.FindOrCreateUser(ctx, identity(1))
	require.NoError(t, err)
	gw.SetOwner(1)

	res, err := e.Handle(ctx, tag(1, ActionStart))
	require.NoError(t, err)
	require.Equal(t, []string{ActionOwnerPromos, ActionUnpaidBoxes, ActionTransfers}, actions(res))
}

func TestRentalFlow_PickupEndToEnd(t *testing.T) {
	gw := storage.NewMemoryGateway()
	e := testEngine(gw)
	ctx := context.Background()

	_, err := e.Handle(ctx, Event{Identity: identity(1), Tag: ActionStart, Text: "ads1"})
	require.NoError(t, err)

	res, err := e.Handle(ctx, tag(1, ActionBuyBox))
	require.NoError(t, err)
	require.Contains(t, res.Text, "Укажите вес")
	require.Len(t, res.Choices, 7)
	require.Equal(t, ActionSetWeight+"10", res.Choices[0][0].Action)

	res, err = e.Handle(ctx, tag(1, ActionSetWeight+"10"))
	require.NoError(t, err)
	require.Contains(t, res.Text, "укажите объем")
	require.Len(t, res.Choices, 7)

	res, err = e.Handle(ctx, tag(1, ActionSetVolume+"0.1"))
	require.NoError(t, err)
	require.Contains(t, res.Text, "100 руб. в месяц")

	res, err = e.Handle(ctx, tag(1, ActionRentPeriod+"1"))
	require.NoError(t, err)
	require.Contains(t, res.Text, "Как ваши вещи окажутся на складе?")
	// no phone on file, so pickup starts with the phone question
	require.Equal(t, []string{ActionAskPhone, ActionSelfTransfer}, actions(res))

	res, err = e.Handle(ctx, tag(1, ActionAskPhone))
	require.NoError(t, err)
	require.Contains(t, res.Text, "номер телефона")

	res, err = e.Handle(ctx, text(1, "+7 999 123-45-67"))
	require.NoError(t, err)
	require.Contains(t, res.Text, "ваш адрес")

	res, err = e.Handle(ctx, text(1, "Москва, Арбат 1"))
	require.NoError(t, err)
	require.Contains(t, res.Text, "грузчики")
	require.Equal(t, ActionTimeArrive+"9-13", res.Choices[0][0].Action)

	res, err = e.Handle(ctx, tag(1, ActionTimeArrive+"9-13"))
	require.NoError(t, err)
	require.Contains(t, res.Text, "персональных данных")
	require.Equal(t, []string{ActionSaveTransfer}, actions(res))

	res, err = e.Handle(ctx, tag(1, ActionSaveTransfer))
	require.NoError(t, err)
	require.Contains(t, res.Text, "Спасибо за ваш заказ!")

	user, created, err := gw.FindOrCreateUser(ctx, identity(1))
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, "+7 999 123-45-67", user.Phone)
	require.Equal(t, "Москва, Арбат 1", user.Address)
	require.Equal(t, "ads1", user.UTMSource)

	boxes, err := gw.ListBoxesForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, boxes, 1)
	require.Equal(t, 10.0, boxes[0].Weight)
	require.Equal(t, 0.1, boxes[0].Volume)
	require.Equal(t, testNow, boxes[0].PaidFrom)
	require.Equal(t, testNow.AddDate(0, 0, 30), boxes[0].PaidTill)

	transfers, err := gw.ListOpenTransferRequests(ctx, 10)
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	require.Equal(t, boxes[0].ID, transfers[0].BoxID)
	require.Equal(t, domain.TransferPickup, transfers[0].Type)
	require.Equal(t, "Москва, Арбат 1", transfers[0].Address)
	require.Equal(t, "9-13", transfers[0].TimeWindow)
	require.False(t, transfers[0].IsComplete)
}

func TestRentalFlow_SelfDelivery(t *testing.T) {
	gw := storage.NewMemoryGateway()
	e := testEngine(gw)
	ctx := context.Background()

	steps := []string{
		ActionStart,
		ActionBuyBox,
		ActionSetWeight + "25",
		ActionSetVolume + "2",
		ActionRentPeriod + "6",
	}
	for _, action := range steps {
		_, err := e.Handle(ctx, tag(2, action))
		require.NoError(t, err)
	}

	res, err := e.Handle(ctx, tag(2, ActionSelfTransfer))
	require.NoError(t, err)
	require.Contains(t, res.Text, "г. Москва, ул. Ленина 104")
	require.Contains(t, res.Text, "+7 495 432 31 90")

	user, _, err := gw.FindOrCreateUser(ctx, identity(2))
	require.NoError(t, err)
	boxes, err := gw.ListBoxesForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, boxes, 1)
	require.Equal(t, testNow.AddDate(0, 0, 180), boxes[0].PaidTill)

	// self delivery creates no pickup request
	transfers, err := gw.ListOpenTransferRequests(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, transfers)
}

func TestRentPeriod_PhoneOnFileSkipsPhoneStep(t *testing.T) {
	gw := storage.NewMemoryGateway()
	e := testEngine(gw)
	ctx := context.Background()

	user, _, err := gw.FindOrCreateUser(ctx, identity(3))
	require.NoError(t, err)
	user.Phone = "+7 999 000 00 00"
	require.NoError(t, gw.UpdateUser(ctx, user))

	_, err = e.Handle(ctx, tag(3, ActionBuyBox))
	require.NoError(t, err)
	res, err := e.Handle(ctx, tag(3, ActionRentPeriod+"1"))
	require.NoError(t, err)
	require.Equal(t, []string{ActionAskAddress, ActionSelfTransfer}, actions(res))
}

func TestRentalFlow_OutOfOrderVolume(t *testing.T) {
	gw := storage.NewMemoryGateway()
	e := testEngine(gw)
	ctx := context.Background()

	// volume arrives without a weight step; pricing falls back to the
	// weight table mean and the flow still runs to completion
	res, err := e.Handle(ctx, tag(4, ActionSetVolume+"0.1"))
	require.NoError(t, err)
	require.Contains(t, res.Text, "636 руб. в месяц")

	_, err = e.Handle(ctx, tag(4, ActionRentPeriod+"1"))
	require.NoError(t, err)
	_, err = e.Handle(ctx, tag(4, ActionSelfTransfer))
	require.NoError(t, err)

	user, _, err := gw.FindOrCreateUser(ctx, identity(4))
	require.NoError(t, err)
	boxes, err := gw.ListBoxesForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, boxes, 1)
	require.Equal(t, 0.0, boxes[0].Weight)
	require.Equal(t, 0.1, boxes[0].Volume)
}

func TestUTMSource_WrittenAtMostOnce(t *testing.T) {
	gw := storage.NewMemoryGateway()
	e := testEngine(gw)
	ctx := context.Background()

	_, err := e.Handle(ctx, Event{Identity: identity(5), Tag: ActionStart, Text: "ads1"})
	require.NoError(t, err)

	for _, action := range []string{ActionBuyBox, ActionRentPeriod + "1", ActionSelfTransfer} {
		_, err := e.Handle(ctx, tag(5, action))
		require.NoError(t, err)
	}

	// a later /start with a different payload is not a first contact
	_, err = e.Handle(ctx, Event{Identity: identity(5), Tag: ActionStart, Text: "ads2"})
	require.NoError(t, err)
	for _, action := range []string{ActionBuyBox, ActionRentPeriod + "1", ActionSelfTransfer} {
		_, err := e.Handle(ctx, tag(5, action))
		require.NoError(t, err)
	}

	user, _, err := gw.FindOrCreateUser(ctx, identity(5))
	require.NoError(t, err)
	require.Equal(t, "ads1", user.UTMSource)
}

func TestHandle_MalformedAndUnknown(t *testing.T) {
	gw := storage.NewMemoryGateway()
	e := testEngine(gw)
	ctx := context.Background()

	_, err := e.Handle(ctx, tag(6, ActionSetWeight+"heavy"))
	require.ErrorIs(t, err, ErrMalformedEvent)

	_, err = e.Handle(ctx, tag(6, ActionTransferBox+"abc"))
	require.ErrorIs(t, err, ErrMalformedEvent)

	_, err = e.Handle(ctx, tag(6, "bogus_action"))
	require.ErrorIs(t, err, ErrUnknownAction)

	// stray text outside a collection step is ignored
	res, err := e.Handle(ctx, text(6, "привет"))
	require.NoError(t, err)
	require.True(t, res.Empty())
}

func TestRoute_LongestPrefixWins(t *testing.T) {
	gw := storage.NewMemoryGateway()
	e := testEngine(gw)

	rt := e.match(ActionTransferComplete + "3")
	require.NotNil(t, rt)
	require.Equal(t, "transfer_complete", rt.name)

	rt = e.match(ActionTransferBox + "3")
	require.NotNil(t, rt)
	require.Equal(t, "transfer_box", rt.name)
}

func TestOwner_TransfersListIsBounded(t *testing.T) {
	gw := storage.NewMemoryGateway()
	e := testEngine(gw)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := gw.CreateTransferRequest(ctx, domain.TransferRequest{BoxID: int64(i + 1)})
		require.NoError(t, err)
	}

	res, err := e.Handle(ctx, tag(7, ActionTransfers))
	require.NoError(t, err)
	require.Contains(t, res.Text, "Список заявок на перевозку грузов")
	// eight transfer rows plus the back-to-start row
	require.Len(t, res.Choices, 9)
}

func TestOwner_TransferCompleteIsIdempotent(t *testing.T) {
	gw := storage.NewMemoryGateway()
	e := testEngine(gw)
	ctx := context.Background()

	transfer, err := gw.CreateTransferRequest(ctx, domain.TransferRequest{BoxID: 1, Address: "Арбат 1"})
	require.NoError(t, err)

	res, err := e.Handle(ctx, tag(7, ActionTransferComplete+"1"))
	require.NoError(t, err)
	require.Contains(t, res.Text, "Трансфер 1 выполнен")

	res, err = e.Handle(ctx, tag(7, ActionTransferComplete+"1"))
	require.NoError(t, err)
	require.Contains(t, res.Text, "Трансфер 1 выполнен")

	stored, err := gw.GetTransferRequest(ctx, transfer.ID)
	require.NoError(t, err)
	require.True(t, stored.IsComplete)

	open, err := gw.ListOpenTransferRequests(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, open)
}

func TestOwner_TransferNotFound(t *testing.T) {
	gw := storage.NewMemoryGateway()
	e := testEngine(gw)
	ctx := context.Background()

	res, err := e.Handle(ctx, tag(7, ActionTransferBox+"99"))
	require.NoError(t, err)
	require.Contains(t, res.Text, "Запись не найдена")
	require.Equal(t, []string{ActionStart}, actions(res))
}

func TestOwner_UnpaidBoxes(t *testing.T) {
	gw := storage.NewMemoryGateway()
	e := testEngine(gw)
	ctx := context.Background()

	_, err := gw.CreateBox(ctx, domain.Box{UserID: 1, PaidTill: testNow.AddDate(0, 0, -5)})
	require.NoError(t, err)
	_, err = gw.CreateBox(ctx, domain.Box{UserID: 1, PaidTill: testNow.AddDate(0, 1, 0)})
	require.NoError(t, err)

	res, err := e.Handle(ctx, tag(7, ActionUnpaidBoxes))
	require.NoError(t, err)
	require.Contains(t, res.Text, "Бокс № 1")
	require.NotContains(t, res.Text, "Бокс № 2")
}

func TestOwner_PromoCodes(t *testing.T) {
	gw := storage.NewMemoryGateway()
	e := testEngine(gw)
	ctx := context.Background()

	res, err := e.Handle(ctx, tag(7, ActionOwnerPromos))
	require.NoError(t, err)
	require.Contains(t, res.Text, "Действующих промокодов нет")

	gw.AddPromoCode(domain.PromoCode{Code: "LETO10", Discount: 10, ValidTill: testNow.AddDate(0, 1, 0)})

	res, err = e.Handle(ctx, tag(7, ActionOwnerPromos))
	require.NoError(t, err)
	require.Contains(t, res.Text, "LETO10")
	require.Contains(t, res.Text, "10%")
}

func TestBoxes_ListAndShow(t *testing.T) {
	gw := storage.NewMemoryGateway()
	e := testEngine(gw)
	ctx := context.Background()

	user, _, err := gw.FindOrCreateUser(ctx, identity(8))
	require.NoError(t, err)
	box, err := gw.CreateBox(ctx, domain.Box{UserID: user.ID, Weight: 40, Volume: 1, PaidTill: testNow.AddDate(0, 1, 0)})
	require.NoError(t, err)

	res, err := e.Handle(ctx, tag(8, ActionListBoxes))
	require.NoError(t, err)
	require.Contains(t, res.Text, "Список ваших боксов")
	require.Equal(t, ActionShowBox+"1", res.Choices[0][0].Action)

	res, err = e.Handle(ctx, tag(8, ActionShowBox+"1"))
	require.NoError(t, err)
	require.Contains(t, res.Text, "Вес: 40 кг")
	require.Contains(t, res.Text, "Объем: 1 м³")

	sess, release := e.sessions.Acquire(8)
	require.Equal(t, box.ID, sess.CurrentBoxID)
	release()

	res, err = e.Handle(ctx, tag(8, ActionShowBox+"99"))
	require.NoError(t, err)
	require.Contains(t, res.Text, "Запись не найдена")
}

func TestBuyBox_ResetsAbandonedDraft(t *testing.T) {
	gw := storage.NewMemoryGateway()
	e := testEngine(gw)
	ctx := context.Background()

	_, err := e.Handle(ctx, tag(9, ActionBuyBox))
	require.NoError(t, err)
	_, err = e.Handle(ctx, tag(9, ActionSetWeight+"200"))
	require.NoError(t, err)

	// the client starts over; the stale weight must not leak into pricing
	_, err = e.Handle(ctx, tag(9, ActionBuyBox))
	require.NoError(t, err)
	_, err = e.Handle(ctx, tag(9, ActionSetWeight+"10"))
	require.NoError(t, err)
	res, err := e.Handle(ctx, tag(9, ActionSetVolume+"0.1"))
	require.NoError(t, err)
	require.Contains(t, res.Text, "100 руб. в месяц")

	sess, release := e.sessions.Acquire(9)
	require.Equal(t, flow.StateVolumeChosen, sess.State)
	release()
}
