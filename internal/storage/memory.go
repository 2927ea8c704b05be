package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"storagebot/internal/domain"
)

// MemoryGateway is an in-memory Gateway implementation for tests and development.
type MemoryGateway struct {
	mu sync.Mutex

	users     map[int64]domain.User // keyed by chat id
	boxes     map[int64]domain.Box
	transfers map[int64]domain.TransferRequest
	promos    []domain.PromoCode

	nextUserID     int64
	nextBoxID      int64
	nextTransferID int64
}

// NewMemoryGateway constructs an empty in-memory gateway.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		users:     make(map[int64]domain.User),
		boxes:     make(map[int64]domain.Box),
		transfers: make(map[int64]domain.TransferRequest),
	}
}

var _ Gateway = (*MemoryGateway)(nil)

// FindOrCreateUser looks up or creates the user for a chat identity.
func (g *MemoryGateway) FindOrCreateUser(_ context.Context, identity domain.ChatIdentity) (domain.User, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if user, ok := g.users[identity.ChatID]; ok {
		return user, false, nil
	}
	g.nextUserID++
	user := domain.User{
		ID:        g.nextUserID,
		ChatID:    identity.ChatID,
		Username:  identity.Username,
		CreatedAt: time.Now(),
	}
	g.users[identity.ChatID] = user
	return user, true, nil
}

// UpdateUser persists user field changes.
func (g *MemoryGateway) UpdateUser(_ context.Context, user domain.User) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	stored, ok := g.users[user.ChatID]
	if !ok || stored.ID != user.ID {
		return fmt.Errorf("update user %d: %w", user.ID, ErrNotFound)
	}
	g.users[user.ChatID] = user
	return nil
}

// SetOwner flags the user behind chatID as an operator account. Test helper.
func (g *MemoryGateway) SetOwner(chatID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if user, ok := g.users[chatID]; ok {
		user.IsOwner = true
		g.users[chatID] = user
	}
}

// ListBoxesForUser returns the user's boxes ordered by id.
func (g *MemoryGateway) ListBoxesForUser(_ context.Context, userID int64) ([]domain.Box, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var boxes []domain.Box
	for _, box := range g.boxes {
		if box.UserID == userID {
			boxes = append(boxes, box)
		}
	}
	sort.Slice(boxes, func(i, j int) bool { return boxes[i].ID < boxes[j].ID })
	return boxes, nil
}

// GetBox fetches one box by id.
func (g *MemoryGateway) GetBox(_ context.Context, id int64) (domain.Box, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	box, ok := g.boxes[id]
	if !ok {
		return domain.Box{}, fmt.Errorf("box %d: %w", id, ErrNotFound)
	}
	return box, nil
}

// CreateBox stores a box under a fresh id.
func (g *MemoryGateway) CreateBox(_ context.Context, box domain.Box) (domain.Box, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.nextBoxID++
	box.ID = g.nextBoxID
	g.boxes[box.ID] = box
	return box, nil
}

// FindUnpaidBoxes returns boxes with paid_till at or before asOf.
func (g *MemoryGateway) FindUnpaidBoxes(_ context.Context, asOf time.Time) ([]domain.Box, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var boxes []domain.Box
	for _, box := range g.boxes {
		if !box.PaidTill.After(asOf) {
			boxes = append(boxes, box)
		}
	}
	sort.Slice(boxes, func(i, j int) bool { return boxes[i].PaidTill.Before(boxes[j].PaidTill) })
	return boxes, nil
}

// ListPromoCodes returns every promo code.
func (g *MemoryGateway) ListPromoCodes(_ context.Context) ([]domain.PromoCode, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]domain.PromoCode(nil), g.promos...), nil
}

// AddPromoCode registers a promo code. Test helper.
func (g *MemoryGateway) AddPromoCode(promo domain.PromoCode) {
	g.mu.Lock()
	defer g.mu.Unlock()
	promo.ID = int64(len(g.promos) + 1)
	g.promos = append(g.promos, promo)
}

// ListOpenTransferRequests returns incomplete requests ordered by id.
func (g *MemoryGateway) ListOpenTransferRequests(_ context.Context, limit int) ([]domain.TransferRequest, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var reqs []domain.TransferRequest
	for _, req := range g.transfers {
		if !req.IsComplete {
			reqs = append(reqs, req)
		}
	}
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].ID < reqs[j].ID })
	if limit > 0 && len(reqs) > limit {
		reqs = reqs[:limit]
	}
	return reqs, nil
}

// GetTransferRequest fetches one transfer request by id.
func (g *MemoryGateway) GetTransferRequest(_ context.Context, id int64) (domain.TransferRequest, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	req, ok := g.transfers[id]
	if !ok {
		return domain.TransferRequest{}, fmt.Errorf("transfer request %d: %w", id, ErrNotFound)
	}
	return req, nil
}

// CreateTransferRequest stores a request under a fresh id.
func (g *MemoryGateway) CreateTransferRequest(_ context.Context, req domain.TransferRequest) (domain.TransferRequest, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.nextTransferID++
	req.ID = g.nextTransferID
	g.transfers[req.ID] = req
	return req, nil
}

// MarkTransferComplete flips is_complete; repeating the call is harmless.
func (g *MemoryGateway) MarkTransferComplete(_ context.Context, id int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	req, ok := g.transfers[id]
	if !ok {
		return fmt.Errorf("transfer request %d: %w", id, ErrNotFound)
	}
	req.IsComplete = true
	g.transfers[id] = req
	return nil
}
