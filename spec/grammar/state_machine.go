package grammar

import "fmt"

// StateMachineKind is the Kind column of the StateMachine table. Negative kinds are reserved for
// third-party extensions.
type StateMachineKind int64

const (
	StateMachineKindDFA                   = StateMachineKind(0)
	StateMachineKindDFAWithConflicts      = StateMachineKind(1)
	StateMachineKindDFADefaultTransitions = StateMachineKind(2)
	StateMachineKindLALR                  = StateMachineKind(3)
	StateMachineKindGLR                   = StateMachineKind(4)
)

func (k StateMachineKind) IsKnown() bool {
	return k >= StateMachineKindDFA && k <= StateMachineKindGLR
}

func (k StateMachineKind) String() string {
	switch k {
	case StateMachineKindDFA:
		return "dfa"
	case StateMachineKindDFAWithConflicts:
		return "dfa-with-conflicts"
	case StateMachineKindDFADefaultTransitions:
		return "dfa-default-transitions"
	case StateMachineKindLALR:
		return "lalr"
	case StateMachineKindGLR:
		return "glr"
	}
	return fmt.Sprintf("unknown(%d)", int64(k))
}

// StateMachine is one of *DFA, *DefaultTransitions, *LR, or *UnknownStateMachine.
type StateMachine interface {
	Kind() StateMachineKind
	stateMachine()
}

var (
	_ StateMachine = &DFA{}
	_ StateMachine = &DefaultTransitions{}
	_ StateMachine = &LR{}
	_ StateMachine = &UnknownStateMachine{}
)

// DFAStateID is a 0-based DFA state number. The initial state is always 0.
type DFAStateID uint32

const DFAStateIDInitial = DFAStateID(0)

func (id DFAStateID) Int() int {
	return int(id)
}

// DFAEdge moves a DFA from its state on any character in [From, To].
// When Stop is true, the edge tells a tokenizer to stop without moving, and Target is meaningless.
type DFAEdge struct {
	From   rune
	To     rune
	Target DFAStateID
	Stop   bool
}

func (e DFAEdge) Contains(c rune) bool {
	return c >= e.From && c <= e.To
}

type DFAState struct {
	// Edges are sorted by From and don't overlap.
	Edges []DFAEdge

	// Accept holds the token symbols this state accepts. Only a DFA with conflicts may have more than one.
	Accept []TokenSymbolID
}

type DFA struct {
	States    []DFAState
	Conflicts bool
}

func (*DFA) stateMachine() {}

func (m *DFA) Kind() StateMachineKind {
	if m.Conflicts {
		return StateMachineKindDFAWithConflicts
	}
	return StateMachineKindDFA
}

// Next scans the edges of a state linearly.
func (m *DFA) Next(state DFAStateID, c rune) (DFAEdge, bool) {
	for _, e := range m.States[state].Edges {
		if e.Contains(c) {
			return e, true
		}
		if e.From > c {
			break
		}
	}
	return DFAEdge{}, false
}

// DFATarget is a fallback transition of a DFA state.
type DFATarget struct {
	State DFAStateID
	Valid bool
}

// DefaultTransitions supplies a per-state fallback that a tokenizer follows when no edge of the state
// matches. It always has as many entries as the grammar's DFA has states.
type DefaultTransitions struct {
	Targets []DFATarget
}

func (*DefaultTransitions) stateMachine() {}

func (*DefaultTransitions) Kind() StateMachineKind {
	return StateMachineKindDFADefaultTransitions
}

// LRStateID is a 0-based LR state number. The initial state is always 0.
type LRStateID uint32

const LRStateIDInitial = LRStateID(0)

func (id LRStateID) Int() int {
	return int(id)
}

type ActionKind uint8

const (
	ActionKindError  = ActionKind(0)
	ActionKindShift  = ActionKind(1)
	ActionKindReduce = ActionKind(2)
	ActionKindAccept = ActionKind(3)
)

func (k ActionKind) String() string {
	switch k {
	case ActionKindError:
		return "error"
	case ActionKindShift:
		return "shift"
	case ActionKindReduce:
		return "reduce"
	case ActionKindAccept:
		return "accept"
	}
	return fmt.Sprintf("<unknown action kind %d>", uint8(k))
}

// Action is an LR parser action. State is meaningful only for shifts and Production only for reductions.
type Action struct {
	Kind       ActionKind
	State      LRStateID
	Production ProductionID
}

func Shift(state LRStateID) Action {
	return Action{
		Kind:  ActionKindShift,
		State: state,
	}
}

func Reduce(prod ProductionID) Action {
	return Action{
		Kind:       ActionKindReduce,
		Production: prod,
	}
}

func Accept() Action {
	return Action{
		Kind: ActionKindAccept,
	}
}

func (a Action) String() string {
	switch a.Kind {
	case ActionKindShift:
		return fmt.Sprintf("shift %v", a.State)
	case ActionKindReduce:
		return fmt.Sprintf("reduce %v", a.Production)
	}
	return a.Kind.String()
}

type TerminalAction struct {
	Terminal TokenSymbolID
	Action   Action
}

type Goto struct {
	Nonterminal NonterminalID
	State       LRStateID
}

type LRState struct {
	// Actions are sorted by terminal. In an LALR table every terminal appears at most once.
	Actions []TerminalAction

	// EOFActions are taken at the end of the input. An LALR state has at most one; none means an error.
	EOFActions []Action

	// Gotos are sorted by nonterminal, each appearing at most once.
	Gotos []Goto
}

// LR is an LALR table, or a GLR table when GLR is true.
type LR struct {
	States []LRState
	GLR    bool
}

func (*LR) stateMachine() {}

func (m *LR) Kind() StateMachineKind {
	if m.GLR {
		return StateMachineKindGLR
	}
	return StateMachineKindLALR
}

// UnknownStateMachine keeps a state machine this package cannot interpret so it can be written back unchanged.
type UnknownStateMachine struct {
	MachineKind StateMachineKind
	Data        []byte
}

func (*UnknownStateMachine) stateMachine() {}

func (m *UnknownStateMachine) Kind() StateMachineKind {
	return m.MachineKind
}
