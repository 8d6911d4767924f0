// Package ai picks moves for computer-controlled seats.
package ai

import (
	"github.com/wfunc/ludoserver/board"
	"github.com/wfunc/ludoserver/game"
)

// 评分权重
const (
	scoreFinish      = 1000
	scoreCapture     = 500
	scoreRelease     = 100
	scoreSafe        = 80
	penaltyExposed   = 60
	homeProgressBase = 52
	homeProgressStep = 10
)

// ChooseToken returns the movable token with the highest score for the current
// player of s. Ties go to the first token in movable order.
func ChooseToken(s game.Snapshot) (int, bool) {
	movable := s.MovableTokenIDs
	if len(movable) == 0 {
		return 0, false
	}
	if len(movable) == 1 {
		return movable[0], true
	}

	player := s.Current()
	best, bestScore := movable[0], 0
	for i, id := range movable {
		score := Score(s, player.Color, player.Tokens[id], s.LastRoll)
		if i == 0 || score > bestScore {
			best, bestScore = id, score
		}
	}
	return best, true
}

// Score rates moving tok of color c by dice against the board in s.
func Score(s game.Snapshot, c board.Color, tok game.Token, dice int) int {
	dest := game.Project(tok, c, dice)
	// the yard release and home-column moves never land on a contested ring cell
	landsOnRing := tok.OnRing() && dest.RingPosition != game.NoPosition

	score := 0
	if dest.Finishes() {
		score += scoreFinish
	}
	if landsOnRing && !board.IsSafeCell(dest.RingPosition) && occupiedByOpponent(s, c, dest.RingPosition) {
		score += scoreCapture
	}
	if tok.Status == game.StatusYard {
		score += scoreRelease
	}
	score += progress(tok, c)
	if landsOnRing && board.IsSafeCell(dest.RingPosition) {
		score += scoreSafe
	}
	if landsOnRing && !board.IsSafeCell(dest.RingPosition) && threatened(s, c, dest.RingPosition) {
		score -= penaltyExposed
	}
	return score
}

func progress(tok game.Token, c board.Color) int {
	switch {
	case tok.Status == game.StatusYard:
		return 0
	case tok.HomeProgress >= 0:
		return homeProgressBase + tok.HomeProgress*homeProgressStep
	default:
		return board.StepsFromEntry(c, tok.RingPosition)
	}
}

func occupiedByOpponent(s game.Snapshot, c board.Color, cell int) bool {
	for _, p := range s.Players {
		if p.Color == c {
			continue
		}
		for _, t := range p.Tokens {
			if t.OnRing() && t.RingPosition == cell {
				return true
			}
		}
	}
	return false
}

// threatened reports whether an opposing ring token is 1..6 cells behind cell.
func threatened(s game.Snapshot, c board.Color, cell int) bool {
	for _, p := range s.Players {
		if p.Color == c {
			continue
		}
		for _, t := range p.Tokens {
			if !t.OnRing() {
				continue
			}
			if d := board.RingDistance(t.RingPosition, cell); d >= 1 && d <= 6 {
				return true
			}
		}
	}
	return false
}
