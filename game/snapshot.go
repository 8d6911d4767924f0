package game

import "github.com/wfunc/ludoserver/board"

// PlayerSnapshot is the published view of one player.
type PlayerSnapshot struct {
	Color         board.Color `json:"color"`
	UserID        string      `json:"user_id,omitempty"`
	Name          string      `json:"name"`
	Controller    Controller  `json:"controller"`
	FinishedCount int         `json:"finished_count"`
	Tokens        []Token     `json:"tokens"`
}

// Snapshot is an immutable copy of the match taken after a transition.
type Snapshot struct {
	Players            []PlayerSnapshot `json:"players"`
	CurrentPlayerIndex int              `json:"current_player_index"`
	CurrentColor       board.Color      `json:"current_color"`
	CurrentUserID      string           `json:"current_user_id,omitempty"`
	LastRoll           int              `json:"dice_value"`
	Phase              Phase            `json:"phase"`
	Forfeit            ForfeitReason    `json:"forfeit,omitempty"`
	Winner             *board.Color     `json:"winner"`
	MovableTokenIDs    []int            `json:"movable_token_ids"`
}

// Snapshot copies the current state. The result shares no memory with the match.
func (m *Match) Snapshot() Snapshot {
	s := Snapshot{
		Players:            make([]PlayerSnapshot, len(m.players)),
		CurrentPlayerIndex: m.current,
		CurrentColor:       m.players[m.current].Color,
		CurrentUserID:      m.players[m.current].UserID,
		LastRoll:           m.lastRoll,
		Phase:              m.phase,
		MovableTokenIDs:    append([]int{}, m.movable...),
	}
	if m.pending != nil {
		s.Forfeit = m.pending.reason
	}
	if m.winner != board.NoColor {
		w := m.winner
		s.Winner = &w
	}
	for i, p := range m.players {
		s.Players[i] = PlayerSnapshot{
			Color:         p.Color,
			UserID:        p.UserID,
			Name:          p.Name,
			Controller:    p.Controller,
			FinishedCount: p.FinishedCount,
			Tokens:        append([]Token(nil), p.Tokens[:]...),
		}
	}
	return s
}

// Current returns the snapshot of the player whose turn it is.
func (s Snapshot) Current() PlayerSnapshot {
	return s.Players[s.CurrentPlayerIndex]
}

// Token looks up a token of the given color.
func (s Snapshot) Token(c board.Color, id int) (Token, bool) {
	for _, p := range s.Players {
		if p.Color != c {
			continue
		}
		if id < 0 || id >= len(p.Tokens) {
			return Token{}, false
		}
		return p.Tokens[id], true
	}
	return Token{}, false
}
