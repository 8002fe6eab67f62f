package game

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// The two market loops run for the lifetime of the process. A tick that
// fails for any reason (store outage, broadcast panic) is logged and
// dropped; the next interval retries from scratch. Cancellation is
// cooperative and only observed between ticks.

// RunRestockLoop periodically replenishes items that have been sold out
// for longer than delay, at a price penalty.
func (s *Service) RunRestockLoop(ctx context.Context, interval, delay time.Duration) {
	s.log.Info("restock loop started", "interval", interval.String(), "delay", delay.String())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("restock loop stopped")
			return
		case <-ticker.C:
			if err := runTick(func() error { return s.restockTick(ctx, delay) }); err != nil {
				s.log.Error("restock tick failed", "err", err)
			}
		}
	}
}

// RunDecayLoop periodically lowers the price of items nobody has bought
// recently, down to the price floor.
func (s *Service) RunDecayLoop(ctx context.Context, interval, idleAfter time.Duration) {
	s.log.Info("decay loop started", "interval", interval.String(), "idle_after", idleAfter.String())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("decay loop stopped")
			return
		case <-ticker.C:
			if err := runTick(func() error { return s.decayTick(ctx, idleAfter) }); err != nil {
				s.log.Error("decay tick failed", "err", err)
			}
		}
	}
}

// runTick is the per-iteration failure boundary: a panicking tick becomes
// an error instead of killing the loop.
func runTick(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tick panic: %v", r)
		}
	}()
	return fn()
}

func (s *Service) restockTick(ctx context.Context, delay time.Duration) error {
	if !s.session.IsActive() {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	cutoff := time.Now().UTC().Add(-delay)
	rows, err := tx.Query(ctx, `
		SELECT id, name, current_price, restock_penalty
		FROM shop.items
		WHERE is_sold_out
		  AND sold_out_at IS NOT NULL
		  AND sold_out_at <= $1
		FOR UPDATE
	`, cutoff)
	if err != nil {
		return err
	}
	type restock struct {
		id      int64
		name    string
		price   float64
		penalty float64
	}
	var due []restock
	for rows.Next() {
		var r restock
		if err := rows.Scan(&r.id, &r.name, &r.price, &r.penalty); err != nil {
			rows.Close()
			return err
		}
		due = append(due, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	if len(due) == 0 {
		return nil
	}

	events := make([]ItemUpdateEvent, 0, len(due))
	for _, r := range due {
		newPrice := restockPrice(r.price, r.penalty)
		if _, err := tx.Exec(ctx, `
			UPDATE shop.items
			SET current_stock = $1,
			    is_sold_out = FALSE,
			    sold_out_at = NULL,
			    current_price = $2
			WHERE id = $3
		`, RestockQuantity, newPrice, r.id); err != nil {
			return err
		}
		events = append(events, itemUpdate(r.id, r.name, newPrice, RestockQuantity, false))
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	for _, ev := range events {
		s.bc.Broadcast(ev)
	}
	s.log.Info("items restocked", "count", len(due))
	return nil
}

func (s *Service) decayTick(ctx context.Context, idleAfter time.Duration) error {
	if !s.session.IsActive() {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	cutoff := time.Now().UTC().Add(-idleAfter)
	rows, err := tx.Query(ctx, `
		SELECT id, name, base_price, current_price, current_stock
		FROM shop.items
		WHERE NOT is_sold_out
		  AND (last_purchase_at IS NULL OR last_purchase_at <= $1)
		FOR UPDATE
	`, cutoff)
	if err != nil {
		return err
	}
	type idle struct {
		id    int64
		name  string
		base  float64
		price float64
		stock int
	}
	var idles []idle
	for rows.Next() {
		var r idle
		if err := rows.Scan(&r.id, &r.name, &r.base, &r.price, &r.stock); err != nil {
			rows.Close()
			return err
		}
		idles = append(idles, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	// Items already at the floor produce no write and no event, which
	// bounds event volume once the market goes quiet.
	events := make([]ItemUpdateEvent, 0, len(idles))
	for _, r := range idles {
		next, changed := decayedPrice(r.price, r.base)
		if !changed {
			continue
		}
		if _, err := tx.Exec(ctx, `
			UPDATE shop.items
			SET current_price = $1
			WHERE id = $2
		`, next, r.id); err != nil {
			return err
		}
		events = append(events, itemUpdate(r.id, r.name, next, r.stock, false))
	}
	if len(events) == 0 {
		return nil
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	for _, ev := range events {
		s.bc.Broadcast(ev)
	}
	return nil
}
