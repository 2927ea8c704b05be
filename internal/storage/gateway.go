package storage

import (
	"context"
	"errors"
	"time"

	"storagebot/internal/domain"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("storage: not found")

// Gateway is the persistence contract consumed by the conversational engine.
// Implementations must map their driver's missing-row condition to ErrNotFound.
type Gateway interface {
	// FindOrCreateUser looks up the user for a chat identity, creating the
	// record on first contact. The boolean reports whether it was created.
	FindOrCreateUser(ctx context.Context, identity domain.ChatIdentity) (domain.User, bool, error)
	// UpdateUser persists phone/address/utm_source changes.
	UpdateUser(ctx context.Context, user domain.User) error

	ListBoxesForUser(ctx context.Context, userID int64) ([]domain.Box, error)
	GetBox(ctx context.Context, id int64) (domain.Box, error)
	CreateBox(ctx context.Context, box domain.Box) (domain.Box, error)
	// FindUnpaidBoxes returns boxes whose paid period ended at or before asOf.
	FindUnpaidBoxes(ctx context.Context, asOf time.Time) ([]domain.Box, error)

	ListPromoCodes(ctx context.Context) ([]domain.PromoCode, error)

	ListOpenTransferRequests(ctx context.Context, limit int) ([]domain.TransferRequest, error)
	GetTransferRequest(ctx context.Context, id int64) (domain.TransferRequest, error)
	CreateTransferRequest(ctx context.Context, req domain.TransferRequest) (domain.TransferRequest, error)
	// MarkTransferComplete is idempotent: completing a completed request is a no-op.
	MarkTransferComplete(ctx context.Context, id int64) error
}
