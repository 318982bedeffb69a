// internal/protocol/snapshot.go
package protocol

// Player roles as reported in TableState.MyRole.
const (
	RoleSeated    = "seated"
	RoleSpectator = "spectator"
	RoleWaitlist  = "waitlist"
)

// Player is one seated participant as the server describes them.
type Player struct {
	PID       string `json:"pid"`
	Name      string `json:"name"`
	Stack     int    `json:"stack"`
	Seat      int    `json:"seat"`
	Connected bool   `json:"connected"`
	Folded    bool   `json:"folded"`
}

// SpectatorInfo identifies a connected spectator.
type SpectatorInfo struct {
	PID  string `json:"pid"`
	Name string `json:"name"`
}

// WaitlistEntry is one queued participant with their FIFO position.
type WaitlistEntry struct {
	PID      string `json:"pid"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}

// LastAction records the most recent betting action for display purposes.
type LastAction struct {
	PID    string `json:"pid"`
	Action string `json:"action"`
	Amount int    `json:"amount"`
}

// ShowdownPlayer holds one participant's revealed cards. Best5, Highlight and
// HandName are absent during a run-out reveal.
type ShowdownPlayer struct {
	HoleCards []string `json:"hole_cards"`
	Best5     []string `json:"best_5_cards,omitempty"`
	Highlight []string `json:"highlight_cards,omitempty"`
	HandName  string   `json:"hand_name,omitempty"`
}

// SidePot is one line of the pot breakdown shown after a multi-way all-in.
type SidePot struct {
	Type    string   `json:"type"`
	Amount  int      `json:"amount"`
	Winners []string `json:"winners"`
}

// Showdown is the block describing a just-concluded hand. It stays on the
// snapshot until the server starts the next hand. The Runout variant appears
// first when all action has ended with community cards still to come; a
// terminal block with winners follows once the board is complete.
type Showdown struct {
	Players         map[string]ShowdownPlayer `json:"players"`
	WinnerPIDs      []string                  `json:"winner_pids"`
	WinningHandName string                    `json:"winning_hand_name,omitempty"`
	PotWon          int                       `json:"pot_won,omitempty"`
	Board           []string                  `json:"board,omitempty"`
	SidePots        []SidePot                 `json:"side_pots,omitempty"`
	FoldWin         bool                      `json:"fold_win,omitempty"`
	Runout          bool                      `json:"runout,omitempty"`
}

// TableState is the server's complete, authoritative view of one table,
// replaced wholesale on every state frame. Field names follow the game
// service's public_state serialization.
type TableState struct {
	TableID string   `json:"table_id"`
	Players []Player `json:"players"`

	HandInProgress bool     `json:"hand_in_progress"`
	DealerSeat     int      `json:"dealer_seat"`
	SBPID          string   `json:"sb_pid"`
	BBPID          string   `json:"bb_pid"`
	CurrentTurnPID string   `json:"current_turn_pid"`
	TurnDeadline   *float64 `json:"turn_deadline"`
	TurnTimeoutSec int      `json:"turn_timeout_seconds"`

	Pot        int            `json:"pot"`
	Board      []string       `json:"board"`
	Street     string         `json:"street"`
	CurrentBet int            `json:"current_bet"`
	PlayerBets map[string]int `json:"player_bets"`

	HoleCards []string `json:"hole_cards"`

	Showdown   *Showdown   `json:"showdown"`
	LastAction *LastAction `json:"last_action"`

	MyRole           string          `json:"my_role"`
	WaitlistPosition int             `json:"waitlist_position"`
	Spectators       []SpectatorInfo `json:"spectators"`
	Waitlist         []WaitlistEntry `json:"waitlist"`
}

// FoldedSet returns the identifiers of currently folded participants.
func (s *TableState) FoldedSet() map[string]bool {
	folded := make(map[string]bool)
	for _, p := range s.Players {
		if p.Folded {
			folded[p.PID] = true
		}
	}
	return folded
}

// Me finds the caller's own player entry, or nil for spectators.
func (s *TableState) Me(pid string) *Player {
	for i := range s.Players {
		if s.Players[i].PID == pid {
			return &s.Players[i]
		}
	}
	return nil
}

// ToCall returns the amount pid must add to match the current bet.
func (s *TableState) ToCall(pid string) int {
	owed := s.CurrentBet - s.PlayerBets[pid]
	if owed < 0 {
		return 0
	}
	return owed
}

// EligiblePlayers counts connected participants who still hold chips, which
// decides whether a new hand can be dealt.
func (s *TableState) EligiblePlayers() int {
	n := 0
	for _, p := range s.Players {
		if p.Connected && p.Stack > 0 {
			n++
		}
	}
	return n
}
