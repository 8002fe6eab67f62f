package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Service struct {
	db      *pgxpool.Pool
	log     *slog.Logger
	session *Session
	bc      Broadcaster
}

func NewService(db *pgxpool.Pool, session *Session, bc Broadcaster, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if bc == nil {
		bc = NopBroadcaster{}
	}
	return &Service{
		db:      db,
		log:     logger,
		session: session,
		bc:      bc,
	}
}

var schemaStatements = []string{
	`CREATE SCHEMA IF NOT EXISTS shop`,
	`CREATE TABLE IF NOT EXISTS shop.users (
		id UUID PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		roll_number TEXT,
		balance DOUBLE PRECISION NOT NULL DEFAULT 100000,
		is_finished BOOLEAN NOT NULL DEFAULT FALSE,
		is_eliminated BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS shop.items (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		category TEXT NOT NULL DEFAULT 'General',
		base_price DOUBLE PRECISION NOT NULL,
		current_price DOUBLE PRECISION NOT NULL,
		current_stock INT NOT NULL DEFAULT 10,
		is_sold_out BOOLEAN NOT NULL DEFAULT FALSE,
		sold_out_at TIMESTAMPTZ,
		restock_penalty DOUBLE PRECISION NOT NULL DEFAULT 1.2,
		last_purchase_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS shop.transactions (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES shop.users(id),
		item_id BIGINT NOT NULL REFERENCES shop.items(id),
		price_at_purchase DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS transactions_user_item_idx
		ON shop.transactions (user_id, item_id)`,
}

func (s *Service) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// SeedCatalog populates the item catalog once; subsequent calls no-op.
func (s *Service) SeedCatalog(ctx context.Context) error {
	var count int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(1) FROM shop.items`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	seed := []struct {
		Name     string
		Category string
		Price    float64
	}{
		{"Basmati Rice (1kg)", "Pantry", 180.00},
		{"Olive Oil (500ml)", "Pantry", 650.00},
		{"Dark Chocolate Bar", "Snacks", 250.00},
		{"Green Tea (100 bags)", "Beverages", 420.00},
		{"Almonds (250g)", "Snacks", 380.00},
		{"Saffron (1g)", "Gourmet", 750.00},
		{"Protein Powder (1kg)", "Health", 2200.00},
		{"Manuka Honey (250g)", "Gourmet", 3500.00},
		{"Truffle Salt (100g)", "Gourmet", 1200.00},
		{"Wagyu Beef Strips (200g)", "Gourmet", 4800.00},
		{"Imported Cheese Wheel", "Dairy", 1800.00},
		{"Avocado Pack (6)", "Produce", 560.00},
		{"Quinoa (500g)", "Pantry", 340.00},
		{"Vanilla Extract (50ml)", "Pantry", 890.00},
		{"Acai Berry Pack (300g)", "Produce", 1100.00},
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, row := range seed {
		_, err := tx.Exec(ctx, `
			INSERT INTO shop.items (name, category, base_price, current_price, current_stock, restock_penalty)
			VALUES ($1, $2, $3, $3, $4, $5)
		`, row.Name, row.Category, row.Price, RestockQuantity, DefaultRestockPenalty)
		if err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	s.log.Info("catalog seeded", "items", len(seed))
	return nil
}

func (s *Service) Register(ctx context.Context, username, rollNumber string) (UserView, error) {
	var out UserView
	username = strings.TrimSpace(username)
	if err := ValidateUsername(username); err != nil {
		return out, err
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	cmd, err := s.db.Exec(ctx, `
		INSERT INTO shop.users (id, username, roll_number, balance, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5)
		ON CONFLICT (username) DO NOTHING
	`, id, username, strings.TrimSpace(rollNumber), DefaultBalance, now)
	if err != nil {
		return out, err
	}
	if cmd.RowsAffected() == 0 {
		return out, ErrUsernameTaken
	}
	return UserView{
		ID:         id,
		Username:   username,
		RollNumber: strings.TrimSpace(rollNumber),
		Balance:    DefaultBalance,
		Inventory:  map[int64]int64{},
		GameActive: s.session.IsActive(),
		CreatedAt:  now,
	}, nil
}

func (s *Service) GetUser(ctx context.Context, userID string) (UserView, error) {
	var out UserView
	out.ID = userID
	err := s.db.QueryRow(ctx, `
		SELECT username, COALESCE(roll_number, ''), balance, is_finished, is_eliminated, created_at
		FROM shop.users
		WHERE id = $1
	`, userID).Scan(&out.Username, &out.RollNumber, &out.Balance, &out.IsFinished, &out.IsEliminated, &out.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return out, ErrUserNotFound
		}
		return out, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT item_id, COUNT(1)
		FROM shop.transactions
		WHERE user_id = $1
		GROUP BY item_id
	`, userID)
	if err != nil {
		return out, err
	}
	defer rows.Close()

	out.Inventory = map[int64]int64{}
	for rows.Next() {
		var itemID, count int64
		if err := rows.Scan(&itemID, &count); err != nil {
			return out, err
		}
		out.Inventory[itemID] = count
	}
	if err := rows.Err(); err != nil {
		return out, err
	}
	out.GameActive = s.session.IsActive()
	return out, nil
}

func (s *Service) ListItems(ctx context.Context) ([]ItemView, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, category, base_price, current_price, current_stock, is_sold_out
		FROM shop.items
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]ItemView, 0)
	for rows.Next() {
		var v ItemView
		if err := rows.Scan(&v.ID, &v.Name, &v.Category, &v.BasePrice, &v.CurrentPrice, &v.CurrentStock, &v.IsSoldOut); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Leaderboard ranks the non-eliminated field: finished players first, then
// by remaining balance.
func (s *Service) Leaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT username, COALESCE(roll_number, ''), balance, is_finished
		FROM shop.users
		WHERE NOT is_eliminated
		ORDER BY is_finished DESC, balance DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]LeaderboardEntry, 0)
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.Username, &e.RollNumber, &e.Balance, &e.IsFinished); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Purchase executes an atomic buy. The item row is locked first, then the
// user row; the fixed order keeps concurrent purchases on overlapping
// pairs serialized and deadlock-free. All preconditions are evaluated
// against the locked rows, so no interleaving can oversell stock or
// overdraw a balance.
func (s *Service) Purchase(ctx context.Context, userID string, itemID int64) (BuyResult, error) {
	var out BuyResult
	if !s.session.IsActive() {
		return out, ErrSessionInactive
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrTxAborted, err)
	}
	defer tx.Rollback(ctx)

	var (
		itemName     string
		category     string
		basePrice    float64
		currentPrice float64
		stock        int
		soldOut      bool
	)
	err = tx.QueryRow(ctx, `
		SELECT name, category, base_price, current_price, current_stock, is_sold_out
		FROM shop.items
		WHERE id = $1
		FOR UPDATE
	`, itemID).Scan(&itemName, &category, &basePrice, &currentPrice, &stock, &soldOut)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return out, ErrItemNotFound
		}
		return out, err
	}
	if soldOut || stock <= 0 {
		return out, fmt.Errorf("%w: %s", ErrOutOfStock, itemName)
	}

	var (
		username string
		balance  float64
		finished bool
	)
	err = tx.QueryRow(ctx, `
		SELECT username, balance, is_finished
		FROM shop.users
		WHERE id = $1
		FOR UPDATE
	`, userID).Scan(&username, &balance, &finished)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return out, ErrUserNotFound
		}
		return out, err
	}
	if finished {
		return out, ErrAlreadyFinished
	}
	if balance < currentPrice {
		return out, fmt.Errorf("%w: need %.2f, have %.2f", ErrInsufficientBal, currentPrice, balance)
	}

	var ownedCount int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(1)
		FROM shop.transactions
		WHERE user_id = $1 AND item_id = $2
	`, userID, itemID).Scan(&ownedCount)
	if err != nil {
		return out, err
	}
	if ownedCount >= MaxPerItem {
		return out, fmt.Errorf("%w: already own %d of %s", ErrOwnershipCap, ownedCount, itemName)
	}

	// Completion is derived before the ledger insert: distinct items from
	// committed history plus this purchase when it is the user's first
	// unit. Never relies on the pending row being visible to a re-count.
	var distinctOwned int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(DISTINCT item_id)
		FROM shop.transactions
		WHERE user_id = $1 AND item_id <> $2
	`, userID, itemID).Scan(&distinctOwned)
	if err != nil {
		return out, err
	}
	distinctOwned++ // this item, whether first or second unit

	var totalItems int
	if err := tx.QueryRow(ctx, `SELECT COUNT(1) FROM shop.items`).Scan(&totalItems); err != nil {
		return out, err
	}

	now := time.Now().UTC()
	purchasePrice := currentPrice
	newBalance := round2(balance - purchasePrice)
	newStock := stock - 1
	newPrice := nextPurchasePrice(currentPrice, basePrice, newStock)
	nowSoldOut := newStock == 0
	var soldOutAt *time.Time
	if nowSoldOut {
		soldOutAt = &now
	}

	if _, err := tx.Exec(ctx, `
		UPDATE shop.items
		SET current_price = $1,
		    current_stock = $2,
		    is_sold_out = $3,
		    sold_out_at = $4,
		    last_purchase_at = $5
		WHERE id = $6
	`, newPrice, newStock, nowSoldOut, soldOutAt, now, itemID); err != nil {
		return out, err
	}

	isNowFinished := totalItems > 0 && distinctOwned >= totalItems
	if _, err := tx.Exec(ctx, `
		UPDATE shop.users
		SET balance = $1, is_finished = $2
		WHERE id = $3
	`, newBalance, isNowFinished, userID); err != nil {
		return out, err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO shop.transactions (id, user_id, item_id, price_at_purchase, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.NewString(), userID, itemID, purchasePrice, now); err != nil {
		return out, err
	}

	if err := tx.Commit(ctx); err != nil {
		return out, fmt.Errorf("%w: %v", ErrTxAborted, err)
	}

	// Post-commit notifications are best-effort and never affect the
	// committed purchase.
	s.bc.Broadcast(itemUpdate(itemID, itemName, newPrice, newStock, nowSoldOut))
	if isNowFinished {
		s.bc.Broadcast(PlayerFinishedEvent{
			Type:     EventPlayerFinished,
			Username: username,
			Balance:  newBalance,
		})
	}
	s.broadcastLeaderboard(ctx)

	return BuyResult{
		Message:    fmt.Sprintf("Purchased %s for %.2f", itemName, purchasePrice),
		NewBalance: newBalance,
		Item: ItemView{
			ID:           itemID,
			Name:         itemName,
			Category:     category,
			BasePrice:    basePrice,
			CurrentPrice: newPrice,
			CurrentStock: newStock,
			IsSoldOut:    nowSoldOut,
		},
		IsFinished: isNowFinished,
	}, nil
}

// UpdateItem applies an admin override to price and stock. The sold-out
// flag and timestamp are kept consistent with the new stock level.
func (s *Service) UpdateItem(ctx context.Context, itemID int64, patch ItemPatch) (ItemView, error) {
	var out ItemView
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return out, err
	}
	defer tx.Rollback(ctx)

	var soldOut bool
	err = tx.QueryRow(ctx, `
		SELECT id, name, category, base_price, current_price, current_stock, is_sold_out
		FROM shop.items
		WHERE id = $1
		FOR UPDATE
	`, itemID).Scan(&out.ID, &out.Name, &out.Category, &out.BasePrice, &out.CurrentPrice, &out.CurrentStock, &soldOut)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return out, ErrItemNotFound
		}
		return out, err
	}

	if patch.BasePrice != nil && *patch.BasePrice > 0 {
		out.BasePrice = round2(*patch.BasePrice)
	}
	if patch.CurrentPrice != nil && *patch.CurrentPrice > 0 {
		out.CurrentPrice = round2(*patch.CurrentPrice)
	}
	if patch.CurrentStock != nil && *patch.CurrentStock >= 0 {
		out.CurrentStock = *patch.CurrentStock
	}
	out.IsSoldOut = out.CurrentStock == 0
	var soldOutAt *time.Time
	if out.IsSoldOut {
		now := time.Now().UTC()
		soldOutAt = &now
	}

	if _, err := tx.Exec(ctx, `
		UPDATE shop.items
		SET base_price = $1,
		    current_price = $2,
		    current_stock = $3,
		    is_sold_out = $4,
		    sold_out_at = $5
		WHERE id = $6
	`, out.BasePrice, out.CurrentPrice, out.CurrentStock, out.IsSoldOut, soldOutAt, itemID); err != nil {
		return out, err
	}
	if err := tx.Commit(ctx); err != nil {
		return out, fmt.Errorf("%w: %v", ErrTxAborted, err)
	}

	s.bc.Broadcast(itemUpdate(out.ID, out.Name, out.CurrentPrice, out.CurrentStock, out.IsSoldOut))
	return out, nil
}

func (s *Service) broadcastLeaderboard(ctx context.Context) {
	entries, err := s.Leaderboard(ctx)
	if err != nil {
		s.log.Error("leaderboard broadcast skipped", "err", err)
		return
	}
	s.bc.Broadcast(LeaderboardUpdateEvent{
		Type:        EventLeaderboardUpdate,
		Leaderboard: entries,
	})
}
