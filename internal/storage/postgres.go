package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"storagebot/core/logger"
	"storagebot/internal/domain"
)

// PostgresGateway implements Gateway on top of a sqlx Postgres connection.
type PostgresGateway struct {
	db *sqlx.DB
}

// NewPostgresGateway wraps the provided connection pool.
func NewPostgresGateway(db *sqlx.DB) *PostgresGateway {
	return &PostgresGateway{db: db}
}

var _ Gateway = (*PostgresGateway)(nil)

// FindOrCreateUser looks up the user by chat id, inserting a fresh record on
// first contact.
func (g *PostgresGateway) FindOrCreateUser(ctx context.Context, identity domain.ChatIdentity) (domain.User, bool, error) {
	var user domain.User
	err := g.db.GetContext(ctx, &user,
		`SELECT id, chat_id, tg_username, phone, address, utm_source, from_owner, created_at
		 FROM users WHERE chat_id = $1`, identity.ChatID)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, false, fmt.Errorf("find user: %w", err)
	}

	err = g.db.GetContext(ctx, &user,
		`INSERT INTO users (chat_id, tg_username)
		 VALUES ($1, $2)
		 RETURNING id, chat_id, tg_username, phone, address, utm_source, from_owner, created_at`,
		identity.ChatID, identity.Username)
	if err != nil {
		return domain.User{}, false, fmt.Errorf("create user: %w", err)
	}
	logger.Gateway.Info("user created",
		slog.String("event", "user.create"),
		slog.Int64("user_id", user.ID),
		slog.Int64("chat_id", user.ChatID),
	)
	return user, true, nil
}

// UpdateUser persists the mutable user fields.
func (g *PostgresGateway) UpdateUser(ctx context.Context, user domain.User) error {
	res, err := g.db.ExecContext(ctx,
		`UPDATE users SET tg_username = $2, phone = $3, address = $4, utm_source = $5
		 WHERE id = $1`,
		user.ID, user.Username, user.Phone, user.Address, user.UTMSource)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update user %d: %w", user.ID, ErrNotFound)
	}
	return nil
}

// ListBoxesForUser returns the user's boxes, oldest first.
func (g *PostgresGateway) ListBoxesForUser(ctx context.Context, userID int64) ([]domain.Box, error) {
	var boxes []domain.Box
	err := g.db.SelectContext(ctx, &boxes,
		`SELECT id, user_id, weight, volume, paid_from, paid_till, description
		 FROM boxes WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list boxes: %w", err)
	}
	return boxes, nil
}

// GetBox fetches one box by id.
func (g *PostgresGateway) GetBox(ctx context.Context, id int64) (domain.Box, error) {
	var box domain.Box
	err := g.db.GetContext(ctx, &box,
		`SELECT id, user_id, weight, volume, paid_from, paid_till, description
		 FROM boxes WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Box{}, fmt.Errorf("box %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return domain.Box{}, fmt.Errorf("get box: %w", err)
	}
	return box, nil
}

// CreateBox inserts a box and returns it with the assigned id.
func (g *PostgresGateway) CreateBox(ctx context.Context, box domain.Box) (domain.Box, error) {
	err := g.db.GetContext(ctx, &box.ID,
		`INSERT INTO boxes (user_id, weight, volume, paid_from, paid_till, description)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		box.UserID, box.Weight, box.Volume, box.PaidFrom, box.PaidTill, box.Description)
	if err != nil {
		return domain.Box{}, fmt.Errorf("create box: %w", err)
	}
	logger.Gateway.Info("box created",
		slog.String("event", "box.create"),
		slog.Int64("box_id", box.ID),
		slog.Int64("user_id", box.UserID),
	)
	return box, nil
}

// FindUnpaidBoxes returns boxes with paid_till at or before asOf.
func (g *PostgresGateway) FindUnpaidBoxes(ctx context.Context, asOf time.Time) ([]domain.Box, error) {
	var boxes []domain.Box
	err := g.db.SelectContext(ctx, &boxes,
		`SELECT id, user_id, weight, volume, paid_from, paid_till, description
		 FROM boxes WHERE paid_till <= $1 ORDER BY paid_till`, asOf)
	if err != nil {
		return nil, fmt.Errorf("find unpaid boxes: %w", err)
	}
	return boxes, nil
}

// ListPromoCodes returns every promo code.
func (g *PostgresGateway) ListPromoCodes(ctx context.Context) ([]domain.PromoCode, error) {
	var promos []domain.PromoCode
	err := g.db.SelectContext(ctx, &promos,
		`SELECT id, code, discount, valid_till FROM promocodes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list promo codes: %w", err)
	}
	return promos, nil
}

// ListOpenTransferRequests returns incomplete requests, oldest first.
func (g *PostgresGateway) ListOpenTransferRequests(ctx context.Context, limit int) ([]domain.TransferRequest, error) {
	var reqs []domain.TransferRequest
	err := g.db.SelectContext(ctx, &reqs,
		`SELECT id, box_id, transfer_type, address, time_arrive, is_complete
		 FROM transfer_requests WHERE is_complete = FALSE ORDER BY id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list transfer requests: %w", err)
	}
	return reqs, nil
}

// GetTransferRequest fetches one transfer request by id.
func (g *PostgresGateway) GetTransferRequest(ctx context.Context, id int64) (domain.TransferRequest, error) {
	var req domain.TransferRequest
	err := g.db.GetContext(ctx, &req,
		`SELECT id, box_id, transfer_type, address, time_arrive, is_complete
		 FROM transfer_requests WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.TransferRequest{}, fmt.Errorf("transfer request %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return domain.TransferRequest{}, fmt.Errorf("get transfer request: %w", err)
	}
	return req, nil
}

// CreateTransferRequest inserts a request and returns it with the assigned id.
func (g *PostgresGateway) CreateTransferRequest(ctx context.Context, req domain.TransferRequest) (domain.TransferRequest, error) {
	err := g.db.GetContext(ctx, &req.ID,
		`INSERT INTO transfer_requests (box_id, transfer_type, address, time_arrive, is_complete)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		req.BoxID, req.Type, req.Address, req.TimeWindow, req.IsComplete)
	if err != nil {
		return domain.TransferRequest{}, fmt.Errorf("create transfer request: %w", err)
	}
	logger.Gateway.Info("transfer request created",
		slog.String("event", "transfer.create"),
		slog.Int64("transfer_id", req.ID),
		slog.Int64("box_id", req.BoxID),
	)
	return req, nil
}

// MarkTransferComplete flips is_complete; repeating the call is harmless.
func (g *PostgresGateway) MarkTransferComplete(ctx context.Context, id int64) error {
	res, err := g.db.ExecContext(ctx,
		`UPDATE transfer_requests SET is_complete = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark transfer complete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("transfer request %d: %w", id, ErrNotFound)
	}
	return nil
}
