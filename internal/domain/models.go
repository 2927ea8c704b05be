package domain

import "time"

// ChatIdentity identifies one conversation: the transport chat id plus the
// sender's username. It keys sessions and the persisted user record.
type ChatIdentity struct {
	ChatID   int64
	Username string
}

// User is the persisted account behind a chat identity.
type User struct {
	ID        int64     `db:"id"`
	ChatID    int64     `db:"chat_id"`
	Username  string    `db:"tg_username"`
	Phone     string    `db:"phone"`
	Address   string    `db:"address"`
	UTMSource string    `db:"utm_source"`
	IsOwner   bool      `db:"from_owner"`
	CreatedAt time.Time `db:"created_at"`
}

// Box is a rented storage box.
type Box struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	Weight      float64   `db:"weight"`
	Volume      float64   `db:"volume"`
	PaidFrom    time.Time `db:"paid_from"`
	PaidTill    time.Time `db:"paid_till"`
	Description string    `db:"description"`
}

// TransferType enumerates how goods move between the client and the site.
type TransferType int

// TransferPickup means the operators collect the goods at the client's address.
const TransferPickup TransferType = 0

// TransferRequest is a pending pickup task for a box.
type TransferRequest struct {
	ID         int64        `db:"id"`
	BoxID      int64        `db:"box_id"`
	Type       TransferType `db:"transfer_type"`
	Address    string       `db:"address"`
	TimeWindow string       `db:"time_arrive"`
	IsComplete bool         `db:"is_complete"`
}

// PromoCode is a marketing discount code shown to the owner.
type PromoCode struct {
	ID        int64     `db:"id"`
	Code      string    `db:"code"`
	Discount  int       `db:"discount"`
	ValidTill time.Time `db:"valid_till"`
}
