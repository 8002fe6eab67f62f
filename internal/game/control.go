package game

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// StartRound flips the session active and announces the new round. The
// catalog itself is untouched; pricing resumes from wherever the previous
// round (or reset) left it.
func (s *Service) StartRound(ctx context.Context) error {
	if err := s.session.Start(); err != nil {
		return err
	}
	s.log.Info("round started", "round", s.session.Round())
	s.bc.Broadcast(RoundStartedEvent{
		Type:        EventRoundStarted,
		RoundNumber: s.session.Round(),
	})
	return nil
}

// StopRound closes the round and computes its winners: finished status
// outranks balance, so a player who completed the catalog beats a richer
// one who did not.
func (s *Service) StopRound(ctx context.Context) (StopResult, error) {
	var out StopResult
	if !s.session.IsActive() {
		return out, ErrRoundNotActive
	}

	leaderboard, err := s.Leaderboard(ctx)
	if err != nil {
		return out, err
	}
	winners := rankWinners(leaderboard, WinnerCount)

	if err := s.session.Stop(winners); err != nil {
		return out, err
	}
	s.log.Info("round stopped", "round", s.session.Round(), "winners", len(winners))

	s.bc.Broadcast(RoundOverEvent{
		Type:        EventRoundOver,
		Winners:     winners,
		Leaderboard: leaderboard,
	})
	return StopResult{Winners: winners, Leaderboard: leaderboard}, nil
}

// rankWinners takes entries already ordered by (finished desc, balance
// desc) and assigns ranks to the top n.
func rankWinners(leaderboard []LeaderboardEntry, n int) []Winner {
	winners := make([]Winner, 0, n)
	for i, e := range leaderboard {
		if i >= n {
			break
		}
		winners = append(winners, Winner{
			Rank:       i + 1,
			Username:   e.Username,
			RollNumber: e.RollNumber,
			Balance:    e.Balance,
		})
	}
	return winners
}

// ResetRound wipes the round state: the ledger is emptied and every item
// returns to full stock at the reset opening price. With topN > 0 only the
// topN richest non-eliminated players survive into the next round; the
// rest are flagged eliminated (archived, never deleted). With topN == 0
// everyone is reset uniformly. Returns the ids eliminated by this call so
// observing clients can force those players out.
func (s *Service) ResetRound(ctx context.Context, topN int) (ResetResult, error) {
	var out ResetResult
	if s.session.IsActive() {
		return out, ErrRoundInProgress
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrTxAborted, err)
	}
	defer tx.Rollback(ctx)

	eliminated := []string{}
	if topN > 0 {
		rows, err := tx.Query(ctx, `
			SELECT id
			FROM shop.users
			WHERE NOT is_eliminated
			ORDER BY balance DESC, created_at ASC
		`)
		if err != nil {
			return out, err
		}
		var ids []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return out, err
			}
			ids = append(ids, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return out, err
		}

		survivors := ids
		if len(ids) > topN {
			survivors = ids[:topN]
			eliminated = ids[topN:]
		}

		if _, err := tx.Exec(ctx, `
			UPDATE shop.users
			SET balance = $1, is_finished = FALSE, is_eliminated = FALSE
			WHERE id = ANY($2::uuid[])
		`, DefaultBalance, survivors); err != nil {
			return out, err
		}
		if len(eliminated) > 0 {
			if _, err := tx.Exec(ctx, `
				UPDATE shop.users
				SET is_eliminated = TRUE
				WHERE id = ANY($1::uuid[])
			`, eliminated); err != nil {
				return out, err
			}
		}
	} else {
		if _, err := tx.Exec(ctx, `
			UPDATE shop.users
			SET balance = $1, is_finished = FALSE, is_eliminated = FALSE
		`, DefaultBalance); err != nil {
			return out, err
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM shop.transactions`); err != nil {
		return out, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE shop.items
		SET current_price = ROUND((base_price * $1)::numeric, 2)::double precision,
		    current_stock = $2,
		    is_sold_out = FALSE,
		    sold_out_at = NULL,
		    last_purchase_at = NULL
	`, ResetPriceFactor, RestockQuantity); err != nil {
		return out, err
	}

	if err := tx.Commit(ctx); err != nil {
		return out, fmt.Errorf("%w: %v", ErrTxAborted, err)
	}

	s.session.ClearWinners()
	s.log.Info("round reset", "top_n", topN, "eliminated", len(eliminated))
	s.bc.Broadcast(RoundResetEvent{
		Type:              EventRoundReset,
		EliminatedUserIDs: eliminated,
	})

	msg := "Game reset: all players back to the starting balance"
	if len(eliminated) > 0 {
		msg = fmt.Sprintf("Game reset: top %d advance, %d players eliminated", topN, len(eliminated))
	}
	return ResetResult{
		Message:           msg,
		EliminatedCount:   len(eliminated),
		EliminatedUserIDs: eliminated,
	}, nil
}

// SessionSnapshot reports the session state plus live observer count for
// the admin console.
func (s *Service) SessionSnapshot() SessionSnapshot {
	return s.session.Snapshot(s.bc.Count())
}
