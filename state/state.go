package state

import (
	"errors"
	"sync"
)

// 状态机接口
type StateMachine interface {
	ChangeState(state State) error
	GetCurrentState() State
	AddTransition(from State, to State, condition func() bool) error
}

// 状态接口
type State interface {
	OnEnter()
	OnExit()
	OnUpdate()
	GetID() string
	HandleAction(player Player, action Action) (Outcome, error)
}

// 房间状态ID
const (
	StateWaiting  = "waiting"
	StateGaming   = "gaming"
	StateFinished = "finished"
)

var (
	// ErrTransitionNotAllowed is returned when a state transition is not allowed.
	ErrTransitionNotAllowed = errors.New("state transition not allowed")
	ErrNotInGame            = errors.New("room is not in game")
	ErrNotYourTurn          = errors.New("not your turn")
	ErrWrongPhase           = errors.New("action not allowed in this phase")
	ErrIllegalMove          = errors.New("token cannot move")
	ErrUnknownAction        = errors.New("unknown action")
)

// 基础状态机实现
type BaseStateMachine struct {
	currentState State
	transitions  map[string]map[string]func() bool // fromState -> toState -> condition
	mutex        sync.RWMutex
}

func NewBaseStateMachine(initialState State) *BaseStateMachine {
	machine := &BaseStateMachine{
		currentState: initialState,
		transitions:  make(map[string]map[string]func() bool),
	}
	initialState.OnEnter()
	return machine
}

// ChangeState runs OnExit of the current state and OnEnter of newState.
// OnEnter must not call ChangeState again.
func (sm *BaseStateMachine) ChangeState(newState State) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	currentID := sm.currentState.GetID()
	newID := newState.GetID()

	if conditions, exists := sm.transitions[currentID]; exists {
		if condition, exists := conditions[newID]; exists {
			if condition != nil && !condition() {
				return ErrTransitionNotAllowed
			}
		}
	}

	sm.currentState.OnExit()
	sm.currentState = newState
	sm.currentState.OnEnter()

	return nil
}

func (sm *BaseStateMachine) GetCurrentState() State {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.currentState
}

func (sm *BaseStateMachine) AddTransition(from State, to State, condition func() bool) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	fromID := from.GetID()
	toID := to.GetID()

	if _, exists := sm.transitions[fromID]; !exists {
		sm.transitions[fromID] = make(map[string]func() bool)
	}

	sm.transitions[fromID][toID] = condition
	return nil
}

// NewRoomStateMachine builds the room lifecycle: waiting -> gaming -> finished.
// Any other transition is refused.
func NewRoomStateMachine(room RoomContext) *BaseStateMachine {
	waiting := NewWaitingState(room)
	gaming := &RoomStateBase{ID: StateGaming}
	finished := &RoomStateBase{ID: StateFinished}

	sm := NewBaseStateMachine(waiting)
	never := func() bool { return false }
	sm.AddTransition(waiting, finished, never)
	sm.AddTransition(gaming, waiting, never)
	sm.AddTransition(finished, waiting, never)
	sm.AddTransition(finished, gaming, never)
	return sm
}

// 房间状态基础结构
type RoomStateBase struct {
	ID   string
	Room RoomContext
}

func (s *RoomStateBase) GetID() string {
	return s.ID
}

func (s *RoomStateBase) OnEnter() {}

func (s *RoomStateBase) OnExit() {}

func (s *RoomStateBase) OnUpdate() {}

// HandleAction rejects game actions outside of a running match.
func (s *RoomStateBase) HandleAction(player Player, action Action) (Outcome, error) {
	return Outcome{}, ErrNotInGame
}

// NewWaitingState creates the lobby state a room starts in.
func NewWaitingState(room RoomContext) *WaitingState {
	return &WaitingState{
		RoomStateBase: RoomStateBase{
			ID:   StateWaiting,
			Room: room,
		},
	}
}

// 等待状态: 成员加入，房主开局
type WaitingState struct {
	RoomStateBase
}
