package game

import (
	"fmt"

	"github.com/wfunc/ludoserver/board"
)

// TokenStatus 棋子状态
type TokenStatus int

const (
	StatusYard TokenStatus = iota
	StatusActive
	StatusFinished
)

var statusNames = [...]string{"yard", "active", "finished"}

func (s TokenStatus) String() string {
	if s < StatusYard || s > StatusFinished {
		return "unknown"
	}
	return statusNames[s]
}

func (s TokenStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *TokenStatus) UnmarshalText(text []byte) error {
	for i, n := range statusNames {
		if n == string(text) {
			*s = TokenStatus(i)
			return nil
		}
	}
	return fmt.Errorf("unknown token status %q", text)
}

// NoPosition is the ring position of a token that is not on the ring.
const NoPosition = -1

// NotInHome is the home progress of a token outside its home column.
const NotInHome = -1

// Token is one of a player's four pieces.
type Token struct {
	ID           int         `json:"id"`
	Color        board.Color `json:"color"`
	Status       TokenStatus `json:"status"`
	RingPosition int         `json:"ring_position"`
	HomeProgress int         `json:"home_progress"`
}

func newToken(id int, c board.Color) Token {
	return Token{
		ID:           id,
		Color:        c,
		Status:       StatusYard,
		RingPosition: NoPosition,
		HomeProgress: NotInHome,
	}
}

// OnRing reports whether the token sits on the shared outer ring.
func (t Token) OnRing() bool {
	return t.Status == StatusActive && t.HomeProgress < 0
}

// InHomeColumn reports whether the token is inside its private home column.
func (t Token) InHomeColumn() bool {
	return t.Status == StatusActive && t.HomeProgress >= 0
}

// Cell resolves the token to its grid coordinate.
func (t Token) Cell() board.Cell {
	switch {
	case t.Status == StatusYard:
		return board.YardSlot(t.Color, t.ID)
	case t.Status == StatusFinished:
		return board.Center
	case t.HomeProgress >= 0:
		return board.HomeColumnCell(t.Color, t.HomeProgress)
	default:
		return board.RingCell(t.RingPosition)
	}
}

func (t *Token) sendToYard() {
	t.Status = StatusYard
	t.RingPosition = NoPosition
	t.HomeProgress = NotInHome
}

// CanMove reports whether a token of the given color may move by dice.
func CanMove(t Token, c board.Color, dice int) bool {
	switch {
	case t.Status == StatusFinished:
		return false
	case t.Status == StatusYard:
		return dice == 6
	case t.HomeProgress >= 0:
		return t.HomeProgress+dice <= board.FinishedIndex
	}

	d := board.RingDistance(t.RingPosition, board.HomeEntryCell(c))
	if d == 0 {
		return dice <= board.FinishedIndex
	}
	if dice > d {
		// 从外圈直接拐进终点通道时不能一步到达中心
		return dice-d-1 <= board.HomeColumnLength-1
	}
	return true
}

// Destination describes where a legal move would leave a token.
type Destination struct {
	// RingPosition is NoPosition when the token leaves the ring.
	RingPosition int
	// HomeProgress is NotInHome while the token stays on the ring.
	HomeProgress int
}

// Finishes reports whether the destination is the center.
func (d Destination) Finishes() bool {
	return d.HomeProgress >= board.FinishedIndex
}

// Project computes the destination of moving t by dice without mutating anything.
// The caller is expected to have checked CanMove.
func Project(t Token, c board.Color, dice int) Destination {
	if t.Status == StatusYard {
		return Destination{RingPosition: board.EntryCell(c), HomeProgress: NotInHome}
	}
	if t.HomeProgress >= 0 {
		return Destination{RingPosition: NoPosition, HomeProgress: clampHome(t.HomeProgress + dice)}
	}
	d := board.RingDistance(t.RingPosition, board.HomeEntryCell(c))
	if dice > d {
		return Destination{RingPosition: NoPosition, HomeProgress: clampHome(dice - d - 1)}
	}
	return Destination{RingPosition: (t.RingPosition + dice) % board.RingLength, HomeProgress: NotInHome}
}

func clampHome(p int) int {
	if p > board.FinishedIndex {
		return board.FinishedIndex
	}
	return p
}
