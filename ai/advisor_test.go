package ai

import (
	"testing"

	"github.com/wfunc/ludoserver/board"
	"github.com/wfunc/ludoserver/game"
)

func yardToken(c board.Color, id int) game.Token {
	return game.Token{ID: id, Color: c, Status: game.StatusYard, RingPosition: game.NoPosition, HomeProgress: game.NotInHome}
}

func ringToken(c board.Color, id, cell int) game.Token {
	return game.Token{ID: id, Color: c, Status: game.StatusActive, RingPosition: cell, HomeProgress: game.NotInHome}
}

func homeToken(c board.Color, id, progress int) game.Token {
	return game.Token{ID: id, Color: c, Status: game.StatusActive, RingPosition: game.NoPosition, HomeProgress: progress}
}

// redToMove builds a red-vs-green snapshot with red to move.
func redToMove(dice int, movable []int, red, green []game.Token) game.Snapshot {
	fill := func(c board.Color, toks []game.Token) []game.Token {
		out := make([]game.Token, board.TokensPerPlayer)
		for i := range out {
			out[i] = yardToken(c, i)
		}
		for _, t := range toks {
			out[t.ID] = t
		}
		return out
	}
	return game.Snapshot{
		Players: []game.PlayerSnapshot{
			{Color: board.Red, Tokens: fill(board.Red, red)},
			{Color: board.Green, Tokens: fill(board.Green, green)},
		},
		CurrentColor:    board.Red,
		LastRoll:        dice,
		Phase:           game.PhaseMove,
		MovableTokenIDs: movable,
	}
}

func TestChooseToken(t *testing.T) {
	tests := []struct {
		name string
		snap game.Snapshot
		want int
	}{
		{
			name: "finishing beats progress",
			snap: redToMove(2, []int{0, 1},
				[]game.Token{homeToken(board.Red, 0, 3), ringToken(board.Red, 1, 40)}, nil),
			want: 0,
		},
		{
			name: "capture beats a plain advance",
			snap: redToMove(3, []int{0, 1},
				[]game.Token{ringToken(board.Red, 0, 7), ringToken(board.Red, 1, 30)},
				[]game.Token{ringToken(board.Green, 0, 10)}),
			want: 0,
		},
		{
			name: "release beats stepping next to an opponent",
			snap: redToMove(6, []int{0, 1},
				[]game.Token{yardToken(board.Red, 0), ringToken(board.Red, 1, 5)},
				[]game.Token{ringToken(board.Green, 0, 10)}),
			want: 0,
		},
		{
			name: "safe cell bonus",
			snap: redToMove(3, []int{0, 1},
				[]game.Token{ringToken(board.Red, 0, 5), ringToken(board.Red, 1, 20)}, nil),
			want: 0,
		},
		{
			name: "ties go to the first movable token",
			snap: redToMove(2, []int{1, 0},
				[]game.Token{ringToken(board.Red, 0, 30), ringToken(board.Red, 1, 30)}, nil),
			want: 1,
		},
		{
			name: "single movable token",
			snap: redToMove(4, []int{2},
				[]game.Token{ringToken(board.Red, 2, 12)}, nil),
			want: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ChooseToken(tt.snap)
			if !ok {
				t.Fatal("expected a choice")
			}
			if got != tt.want {
				t.Errorf("ChooseToken = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestChooseToken_NoMovable(t *testing.T) {
	if _, ok := ChooseToken(redToMove(3, nil, nil, nil)); ok {
		t.Fatal("no movable tokens should yield no choice")
	}
}

func TestScore(t *testing.T) {
	snap := redToMove(3, nil, nil, []game.Token{ringToken(board.Green, 0, 10)})

	tests := []struct {
		name string
		tok  game.Token
		dice int
		want int
	}{
		{"yard release", yardToken(board.Red, 0), 6, scoreRelease},
		{"capture on unsafe cell", ringToken(board.Red, 0, 7), 3, scoreCapture + 7},
		{"safe landing", ringToken(board.Red, 0, 5), 3, scoreSafe + 5},
		{"exposed landing", ringToken(board.Red, 0, 9), 3, 9 - penaltyExposed},
		{"home column step", homeToken(board.Red, 0, 1), 2, homeProgressBase + homeProgressStep},
		{"home column finish", homeToken(board.Red, 0, 2), 3, scoreFinish + homeProgressBase + 2*homeProgressStep},
		{"peel into home column", ringToken(board.Red, 0, 48), 4, 48},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(snap, board.Red, tt.tok, tt.dice); got != tt.want {
				t.Errorf("Score = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPlayComputerTurns_StopsAtHuman(t *testing.T) {
	m, err := game.NewMatch([]game.Seat{
		{Color: board.Red, Controller: game.ControllerHuman},
		{Color: board.Green, Controller: game.ControllerComputer},
	})
	if err != nil {
		t.Fatal(err)
	}
	steps := 0
	if more := PlayComputerTurns(m, func(Step) { steps++ }); more || steps != 0 {
		t.Fatalf("human seat should not be played, got %d steps (more=%v)", steps, more)
	}
}

func TestPlayComputerTurns_FinishesMatch(t *testing.T) {
	m, err := game.NewMatch([]game.Seat{
		{Color: board.Red, Controller: game.ControllerComputer},
		{Color: board.Yellow, Controller: game.ControllerComputer},
	}, game.WithDice(game.NewRandomDice(7)))
	if err != nil {
		t.Fatal(err)
	}

	steps := 0
	more := PlayComputerTurns(m, func(Step) { steps++ })
	if !more || steps != MaxAutoSteps {
		t.Fatalf("first burst should stop at the cap with work left, steps=%d more=%v", steps, more)
	}
	for i := 0; i < 10000 && more; i++ {
		more = PlayComputerTurns(m, nil)
	}
	if m.Phase() != game.PhaseDone || !m.Winner().Valid() {
		t.Fatalf("match did not finish: phase=%s", m.Phase())
	}
}
