package game

import "time"

type ItemView struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	BasePrice    float64 `json:"base_price"`
	CurrentPrice float64 `json:"current_price"`
	CurrentStock int     `json:"current_stock"`
	IsSoldOut    bool    `json:"is_sold_out"`
}

type UserView struct {
	ID           string          `json:"id"`
	Username     string          `json:"username"`
	RollNumber   string          `json:"roll_number,omitempty"`
	Balance      float64         `json:"balance"`
	IsFinished   bool            `json:"is_finished"`
	IsEliminated bool            `json:"is_eliminated"`
	Inventory    map[int64]int64 `json:"inventory"`
	GameActive   bool            `json:"game_active"`
	CreatedAt    time.Time       `json:"created_at"`
}

type BuyResult struct {
	Message    string   `json:"message"`
	NewBalance float64  `json:"new_balance"`
	Item       ItemView `json:"item"`
	IsFinished bool     `json:"is_finished"`
}

type LeaderboardEntry struct {
	Username   string  `json:"username"`
	RollNumber string  `json:"roll_number,omitempty"`
	Balance    float64 `json:"balance"`
	IsFinished bool    `json:"is_finished"`
}

type Winner struct {
	Rank       int     `json:"rank"`
	Username   string  `json:"username"`
	RollNumber string  `json:"roll_number,omitempty"`
	Balance    float64 `json:"balance"`
}

type StopResult struct {
	Winners     []Winner           `json:"winners"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

type ResetResult struct {
	Message           string   `json:"message"`
	EliminatedCount   int      `json:"eliminated_count"`
	EliminatedUserIDs []string `json:"eliminated_user_ids"`
}

type SessionSnapshot struct {
	IsActive           bool     `json:"is_active"`
	RoundNumber        int      `json:"round_number"`
	Winners            []Winner `json:"winners"`
	ConnectedObservers int      `json:"connected_players"`
}

// ItemPatch carries optional admin overrides for a single item.
type ItemPatch struct {
	BasePrice    *float64 `json:"base_price,omitempty"`
	CurrentPrice *float64 `json:"current_price,omitempty"`
	CurrentStock *int     `json:"current_stock,omitempty"`
}
