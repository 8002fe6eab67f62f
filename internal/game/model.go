package game

import (
	"errors"
	"math"
	"strings"
)

const (
	// DefaultBalance is every player's starting (and reset) wallet.
	DefaultBalance = 100_000.00

	// RestockQuantity is the stock level items are replenished to, both on
	// restock and on a round reset.
	RestockQuantity = 10

	// DefaultRestockPenalty multiplies an item's price when it comes back
	// in stock. Stored per item so individual goods can be tuned.
	DefaultRestockPenalty = 1.2

	// FireSaleThreshold: a purchase leaving stock in (0, threshold] snaps
	// the price back to base as a liquidation signal.
	FireSaleThreshold = 3

	// PurchaseHikeRate is the per-purchase price increase outside fire sale.
	PurchaseHikeRate = 0.02

	// DecayRate is the per-tick price drop for idle items.
	DecayRate = 0.02

	// MinPriceFactor bounds decay: current price never drops below
	// base_price * MinPriceFactor.
	MinPriceFactor = 0.5

	// MaxPerItem caps how many units of one item a player may ever buy.
	MaxPerItem = 2

	// ResetPriceFactor: a reset reopens the market at a premium over base.
	ResetPriceFactor = 2.0

	// WinnerCount is how many ranked winners a stopped round produces.
	WinnerCount = 3
)

var (
	ErrSessionInactive = errors.New("game is not active")
	ErrItemNotFound    = errors.New("item not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrOutOfStock      = errors.New("item is out of stock")
	ErrAlreadyFinished = errors.New("player already finished the game")
	ErrInsufficientBal = errors.New("insufficient balance")
	ErrOwnershipCap    = errors.New("per-item ownership cap reached")
	ErrTxAborted       = errors.New("transaction aborted")
	ErrRoundActive     = errors.New("a round is already active")
	ErrRoundNotActive  = errors.New("no round is active")
	ErrRoundInProgress = errors.New("cannot reset while a round is in progress")
	ErrUsernameTaken   = errors.New("username already taken")
	ErrInvalidUsername = errors.New("username must be 2-50 characters")
)

// ValidateUsername enforces the registration contract: 2-50 characters
// after trimming surrounding whitespace.
func ValidateUsername(name string) error {
	name = strings.TrimSpace(name)
	if len(name) < 2 || len(name) > 50 {
		return ErrInvalidUsername
	}
	return nil
}

// round2 rounds a price to 2 decimal places. Every repricing rule is
// defined in rounded currency, so each mutation path goes through this.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// nextPurchasePrice returns the item price after a buy that left
// remainingStock units. Low stock crashes the price to base (fire sale);
// otherwise each purchase hikes it 2%.
func nextPurchasePrice(current, base float64, remainingStock int) float64 {
	if remainingStock > 0 && remainingStock <= FireSaleThreshold {
		return round2(base)
	}
	return round2(current * (1 + PurchaseHikeRate))
}

// decayedPrice returns the price after one decay tick, clamped to the
// floor, and whether it actually changed. Items sitting at the floor
// report changed=false so the caller skips the write and the broadcast.
func decayedPrice(current, base float64) (float64, bool) {
	floor := round2(base * MinPriceFactor)
	next := round2(current * (1 - DecayRate))
	if next < floor {
		next = floor
	}
	return next, next != current
}

// restockPrice applies the per-item penalty multiplier on restock.
func restockPrice(current, penalty float64) float64 {
	return round2(current * penalty)
}

// resetPrice is the opening price after a round reset.
func resetPrice(base float64) float64 {
	return round2(base * ResetPriceFactor)
}
