package ai

import "github.com/wfunc/ludoserver/game"

// Step records one action taken for a computer-controlled seat.
type Step struct {
	Roll *game.RollResult
	Move *game.MoveResult
}

// Act performs the next action for the current player: a roll in the roll
// phase, the advised move in the move phase. It returns false when the match
// is not waiting on the current player.
func Act(m *game.Match) (Step, bool) {
	switch m.Phase() {
	case game.PhaseRoll:
		roll, ok := m.RollDice()
		if !ok {
			return Step{}, false
		}
		return Step{Roll: &roll}, true
	case game.PhaseMove:
		id, ok := ChooseToken(m.Snapshot())
		if !ok {
			return Step{}, false
		}
		move, ok := m.MoveToken(id)
		if !ok {
			return Step{}, false
		}
		return Step{Move: &move}, true
	default:
		return Step{}, false
	}
}

// MaxAutoSteps bounds one autoplay burst.
const MaxAutoSteps = 64

// PlayComputerTurns acts for computer seats until a human seat is to act, the
// match is held in a transition, it ends, or MaxAutoSteps steps were taken.
// Each step goes to publish as soon as it is applied. The result reports
// whether a computer seat is still due when the burst stops.
func PlayComputerTurns(m *game.Match, publish func(Step)) bool {
	for i := 0; i < MaxAutoSteps; i++ {
		if !ComputerToAct(m) {
			return false
		}
		step, ok := Act(m)
		if !ok {
			return false
		}
		if publish != nil {
			publish(step)
		}
	}
	return ComputerToAct(m)
}

// ComputerToAct reports whether the match waits on a computer seat.
func ComputerToAct(m *game.Match) bool {
	if m.CurrentPlayer().Controller != game.ControllerComputer {
		return false
	}
	return m.Phase() == game.PhaseRoll || m.Phase() == game.PhaseMove
}
