package game

import (
	"errors"
	"time"

	"github.com/wfunc/ludoserver/board"
)

// Phase 对局当前所处的阶段
type Phase string

const (
	PhaseRoll Phase = "roll"
	PhaseMove Phase = "move"
	// PhaseTransition holds a forfeited turn until its deadline passes.
	PhaseTransition Phase = "transition"
	PhaseDone       Phase = "done"
)

// Controller tells whether a seat is driven by a person or by the move advisor.
type Controller string

const (
	ControllerHuman    Controller = "human"
	ControllerComputer Controller = "computer"
)

// ForfeitReason explains why a roll ended the turn without a move.
type ForfeitReason string

const (
	ForfeitNone       ForfeitReason = ""
	ForfeitNoMoves    ForfeitReason = "no_moves"
	ForfeitThreeSixes ForfeitReason = "three_sixes"
)

const maxConsecutiveSixes = 3

var (
	ErrPlayerCount    = errors.New("a match needs 2 to 4 players")
	ErrDuplicateColor = errors.New("each player needs a distinct color")
)

// Seat configures one player at match creation.
type Seat struct {
	Color      board.Color
	UserID     string
	Name       string
	Controller Controller
}

// Player owns four tokens of one color.
type Player struct {
	Seat
	Tokens        [board.TokensPerPlayer]Token
	FinishedCount int
}

// RollResult is the outcome of an accepted roll.
type RollResult struct {
	Color   board.Color   `json:"color"`
	Value   int           `json:"value"`
	Movable []int         `json:"movable"`
	Forfeit ForfeitReason `json:"forfeit,omitempty"`
}

// Capture identifies a token sent back to its yard.
type Capture struct {
	Color   board.Color `json:"color"`
	TokenID int         `json:"token_id"`
}

// MoveResult is the outcome of an accepted move.
type MoveResult struct {
	Color     board.Color `json:"color"`
	TokenID   int         `json:"token_id"`
	Dice      int         `json:"dice"`
	Captures  []Capture   `json:"captures,omitempty"`
	Finished  bool        `json:"finished"`
	Won       bool        `json:"won"`
	ExtraTurn bool        `json:"extra_turn"`
}

// Captured reports whether the move sent at least one token home.
func (r MoveResult) Captured() bool {
	return len(r.Captures) > 0
}

type pendingTransition struct {
	deadline time.Time
	reason   ForfeitReason
}

// Option configures a Match.
type Option func(*Match)

// WithDice replaces the default random die.
func WithDice(d Dice) Option {
	return func(m *Match) { m.dice = d }
}

// WithForfeitDelay keeps forfeited rolls visible for d before the turn passes.
// Zero advances the turn synchronously.
func WithForfeitDelay(d time.Duration) Option {
	return func(m *Match) { m.forfeitDelay = d }
}

// WithClock overrides the time source used for transition deadlines.
func WithClock(now func() time.Time) Option {
	return func(m *Match) { m.now = now }
}

// Match 是单局游戏的权威状态机，调用方负责串行访问
type Match struct {
	players      []*Player
	current      int
	lastRoll     int
	phase        Phase
	sixes        int
	winner       board.Color
	movable      []int
	pending      *pendingTransition
	dice         Dice
	forfeitDelay time.Duration
	now          func() time.Time
}

// NewMatch creates a match with every token in its yard and the first seat to roll.
func NewMatch(seats []Seat, opts ...Option) (*Match, error) {
	if len(seats) < 2 || len(seats) > len(board.Colors) {
		return nil, ErrPlayerCount
	}

	m := &Match{
		players: make([]*Player, 0, len(seats)),
		phase:   PhaseRoll,
		winner:  board.NoColor,
		now:     time.Now,
	}
	used := make(map[board.Color]bool)
	for _, seat := range seats {
		if !seat.Color.Valid() || used[seat.Color] {
			return nil, ErrDuplicateColor
		}
		used[seat.Color] = true
		if seat.Controller == "" {
			seat.Controller = ControllerHuman
		}
		p := &Player{Seat: seat}
		for i := range p.Tokens {
			p.Tokens[i] = newToken(i, seat.Color)
		}
		m.players = append(m.players, p)
	}

	for _, opt := range opts {
		opt(m)
	}
	if m.dice == nil {
		m.dice = NewRandomDice(0)
	}
	return m, nil
}

func (m *Match) Phase() Phase { return m.phase }

func (m *Match) LastRoll() int { return m.lastRoll }

func (m *Match) CurrentPlayerIndex() int { return m.current }

func (m *Match) PlayerCount() int { return len(m.players) }

// CurrentPlayer returns a copy of the player whose turn it is.
func (m *Match) CurrentPlayer() Player {
	return *m.players[m.current]
}

// Player returns a copy of the player at index i.
func (m *Match) Player(i int) Player {
	return *m.players[i]
}

// Winner returns the winning color, or NoColor while the match is running.
func (m *Match) Winner() board.Color { return m.winner }

// MovableTokenIDs returns the token ids legal for the active roll.
func (m *Match) MovableTokenIDs() []int {
	return append([]int(nil), m.movable...)
}

// Pending reports whether a forfeited turn is waiting for its deadline.
func (m *Match) Pending() (time.Time, bool) {
	if m.pending == nil {
		return time.Time{}, false
	}
	return m.pending.deadline, true
}

// SetController hands a seat to a person or to the move advisor.
func (m *Match) SetController(userID string, c Controller) bool {
	for _, p := range m.players {
		if p.UserID == userID {
			p.Controller = c
			return true
		}
	}
	return false
}

// RollDice draws a die for the current player. It is a no-op returning ok=false
// unless the match is waiting for a roll.
func (m *Match) RollDice() (RollResult, bool) {
	if m.phase != PhaseRoll || m.winner != board.NoColor {
		return RollResult{}, false
	}

	player := m.players[m.current]
	value := m.dice.Roll()
	m.lastRoll = value
	result := RollResult{Color: player.Color, Value: value}

	if value == 6 {
		m.sixes++
	} else {
		m.sixes = 0
	}

	if m.sixes >= maxConsecutiveSixes {
		m.sixes = 0
		m.movable = nil
		result.Forfeit = ForfeitThreeSixes
		m.forfeit(ForfeitThreeSixes)
		return result, true
	}

	m.movable = m.movable[:0]
	for _, t := range player.Tokens {
		if CanMove(t, player.Color, value) {
			m.movable = append(m.movable, t.ID)
		}
	}
	result.Movable = append([]int(nil), m.movable...)

	if len(m.movable) == 0 {
		result.Forfeit = ForfeitNoMoves
		m.forfeit(ForfeitNoMoves)
		return result, true
	}

	m.phase = PhaseMove
	return result, true
}

// MoveToken moves one of the current player's movable tokens by the active roll.
// It is a no-op returning ok=false when tokenID is not in the movable set.
func (m *Match) MoveToken(tokenID int) (MoveResult, bool) {
	if m.phase != PhaseMove || m.winner != board.NoColor || !m.isMovable(tokenID) {
		return MoveResult{}, false
	}
	if tokenID < 0 || tokenID >= board.TokensPerPlayer {
		return MoveResult{}, false
	}

	player := m.players[m.current]
	token := &player.Tokens[tokenID]
	dice := m.lastRoll
	result := MoveResult{Color: player.Color, TokenID: tokenID, Dice: dice}

	m.applyMove(player, token, dice)
	result.Finished = token.Status == StatusFinished

	if token.OnRing() {
		result.Captures = m.capture(player.Color, token.RingPosition)
	}

	if player.FinishedCount == board.TokensPerPlayer {
		m.winner = player.Color
		m.phase = PhaseDone
		m.movable = nil
		result.Won = true
		return result, true
	}

	if dice == 6 || result.Captured() {
		result.ExtraTurn = true
		m.phase = PhaseRoll
		m.movable = nil
		return result, true
	}

	m.advanceTurn()
	return result, true
}

// Tick completes a pending transition once now reaches its deadline.
func (m *Match) Tick(now time.Time) bool {
	if m.pending == nil || now.Before(m.pending.deadline) {
		return false
	}
	m.advanceTurn()
	return true
}

// Settle completes a pending transition immediately.
func (m *Match) Settle() bool {
	if m.pending == nil {
		return false
	}
	m.advanceTurn()
	return true
}

func (m *Match) isMovable(tokenID int) bool {
	for _, id := range m.movable {
		if id == tokenID {
			return true
		}
	}
	return false
}

func (m *Match) forfeit(reason ForfeitReason) {
	if m.forfeitDelay <= 0 {
		m.advanceTurn()
		return
	}
	m.phase = PhaseTransition
	m.pending = &pendingTransition{
		deadline: m.now().Add(m.forfeitDelay),
		reason:   reason,
	}
}

func (m *Match) applyMove(player *Player, token *Token, dice int) {
	dest := Project(*token, player.Color, dice)
	token.Status = StatusActive
	token.RingPosition = dest.RingPosition
	token.HomeProgress = dest.HomeProgress
	if dest.Finishes() {
		token.Status = StatusFinished
		token.RingPosition = NoPosition
		token.HomeProgress = board.FinishedIndex
		player.FinishedCount++
	}
}

// capture sends every opposing ring token on cell back to its yard.
func (m *Match) capture(mover board.Color, cell int) []Capture {
	if board.IsSafeCell(cell) {
		return nil
	}
	var captures []Capture
	for _, p := range m.players {
		if p.Color == mover {
			continue
		}
		for i := range p.Tokens {
			t := &p.Tokens[i]
			if t.OnRing() && t.RingPosition == cell {
				t.sendToYard()
				captures = append(captures, Capture{Color: p.Color, TokenID: t.ID})
			}
		}
	}
	return captures
}

func (m *Match) advanceTurn() {
	m.lastRoll = 0
	m.movable = nil
	m.sixes = 0
	m.pending = nil
	m.phase = PhaseRoll

	for tries := 0; tries < len(m.players); tries++ {
		m.current = (m.current + 1) % len(m.players)
		if m.players[m.current].FinishedCount < board.TokensPerPlayer {
			return
		}
	}
}
