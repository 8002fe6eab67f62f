package game

// Event types pushed to every connected observer. Clients switch on the
// "type" field.
const (
	EventItemUpdate        = "ITEM_UPDATE"
	EventPlayerFinished    = "PLAYER_FINISHED"
	EventLeaderboardUpdate = "LEADERBOARD_UPDATE"
	EventRoundStarted      = "ROUND_STARTED"
	EventRoundOver         = "ROUND_OVER"
	EventRoundReset        = "ROUND_RESET"
)

type ItemUpdateEvent struct {
	Type      string  `json:"type"`
	ItemID    int64   `json:"item_id"`
	Name      string  `json:"name"`
	NewPrice  float64 `json:"new_price"`
	NewStock  int     `json:"new_stock"`
	IsSoldOut bool    `json:"is_sold_out"`
}

type PlayerFinishedEvent struct {
	Type     string  `json:"type"`
	Username string  `json:"username"`
	Balance  float64 `json:"balance"`
}

type LeaderboardUpdateEvent struct {
	Type        string             `json:"type"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

type RoundStartedEvent struct {
	Type        string `json:"type"`
	RoundNumber int    `json:"round_number"`
}

type RoundOverEvent struct {
	Type        string             `json:"type"`
	Winners     []Winner           `json:"winners"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

type RoundResetEvent struct {
	Type              string   `json:"type"`
	EliminatedUserIDs []string `json:"eliminated_user_ids"`
}

func itemUpdate(id int64, name string, price float64, stock int, soldOut bool) ItemUpdateEvent {
	return ItemUpdateEvent{
		Type:      EventItemUpdate,
		ItemID:    id,
		Name:      name,
		NewPrice:  price,
		NewStock:  stock,
		IsSoldOut: soldOut,
	}
}

// Broadcaster fans events out to live observers. Delivery is best-effort:
// implementations must never report failures back to the mutation path.
type Broadcaster interface {
	Broadcast(event any)
	Count() int
}

// NopBroadcaster satisfies Broadcaster for tests and tooling that do not
// care about fan-out.
type NopBroadcaster struct{}

func (NopBroadcaster) Broadcast(any) {}
func (NopBroadcaster) Count() int    { return 0 }
