package format

import (
	"fmt"

	verr "github.com/nihei9/farkle/error"
	spec "github.com/nihei9/farkle/spec/grammar"
)

// machineContext carries the row counts the state machine encodings size their symbol and production
// references by.
type machineContext struct {
	tokenSymbolCount int
	nonterminalCount int
	productionCount  int
}

func (c *machineContext) tokenSymbolWidth() int {
	return TableIndexWidth(c.tokenSymbolCount)
}

func (c *machineContext) nonterminalWidth() int {
	return TableIndexWidth(c.nonterminalCount)
}

// actionWidth sizes an LR action value `target<<1 | tag`, where the target is either a 0-based state or a
// 1-based production.
func (c *machineContext) actionWidth(stateCount int) int {
	return CodedIndexWidth(1, max(stateCount, c.productionCount))
}

// eofActionWidth sizes an EOF action value: 0 for an error, 1 for accept, and p+1 for a reduction by p.
func (c *machineContext) eofActionWidth() int {
	return TableIndexWidth(c.productionCount + 1)
}

const (
	actionTagShift  = 0
	actionTagReduce = 1
)

const (
	eofActionError  = 0
	eofActionAccept = 1
)

func blobError(cause error, format string, a ...interface{}) error {
	return &verr.FormatError{
		Cause:  cause,
		Stream: streamNameBlob,
		Detail: fmt.Sprintf(format, a...),
	}
}

// decodeStateMachine interprets a blob by its kind. Kinds it doesn't know come back as *spec.UnknownStateMachine
// with known set to false.
func decodeStateMachine(kind spec.StateMachineKind, data []byte, ctx *machineContext) (m spec.StateMachine, known bool, err error) {
	switch kind {
	case spec.StateMachineKindDFA:
		m, err = decodeDFA(data, false, ctx)
	case spec.StateMachineKindDFAWithConflicts:
		m, err = decodeDFA(data, true, ctx)
	case spec.StateMachineKindDFADefaultTransitions:
		m, err = decodeDefaultTransitions(data)
	case spec.StateMachineKindLALR:
		m, err = decodeLR(data, false, ctx)
	case spec.StateMachineKindGLR:
		m, err = decodeLR(data, true, ctx)
	default:
		return &spec.UnknownStateMachine{
			MachineKind: kind,
			Data:        append([]byte{}, data...),
		}, false, nil
	}
	if err != nil {
		return nil, true, err
	}
	return m, true, nil
}

func encodeStateMachine(m spec.StateMachine, ctx *machineContext) ([]byte, error) {
	switch m := m.(type) {
	case *spec.DFA:
		return encodeDFA(m, ctx), nil
	case *spec.DefaultTransitions:
		return encodeDefaultTransitions(m), nil
	case *spec.LR:
		return encodeLR(m, ctx), nil
	case *spec.UnknownStateMachine:
		return m.Data, nil
	}
	return nil, verr.Errorf(verr.ErrInconsistentGrammar, "unsupported state machine %T", m)
}

func charWidth(maxChar rune) int {
	if maxChar <= 0xffff {
		return 2
	}
	return 4
}

func encodeDFA(m *spec.DFA, ctx *machineContext) []byte {
	stateCount := len(m.States)
	edgeCount := 0
	acceptCount := 0
	maxChar := rune(0)
	for _, st := range m.States {
		edgeCount += len(st.Edges)
		acceptCount += len(st.Accept)
		for _, e := range st.Edges {
			if e.To > maxChar {
				maxChar = e.To
			}
		}
	}
	cw := charWidth(maxChar)
	edgeWidth := countWidth(edgeCount)
	stateWidth := countWidth(stateCount)
	symWidth := ctx.tokenSymbolWidth()

	w := &byteWriter{}
	w.u32(uint32(stateCount))
	w.u32(uint32(edgeCount))
	if m.Conflicts {
		w.u32(uint32(acceptCount))
	}
	w.u8(uint8(cw))

	firstEdge := make([]uint32, 0, stateCount)
	from := make([]uint32, 0, edgeCount)
	to := make([]uint32, 0, edgeCount)
	target := make([]uint32, 0, edgeCount)
	for _, st := range m.States {
		firstEdge = append(firstEdge, uint32(len(from)))
		for _, e := range st.Edges {
			from = append(from, uint32(e.From))
			to = append(to, uint32(e.To))
			if e.Stop {
				target = append(target, 0)
			} else {
				target = append(target, uint32(e.Target)+1)
			}
		}
	}
	w.uints(edgeWidth, firstEdge)
	w.uints(cw, from)
	w.uints(cw, to)
	w.uints(stateWidth, target)

	if m.Conflicts {
		firstAccept := make([]uint32, 0, stateCount)
		accept := make([]uint32, 0, acceptCount)
		for _, st := range m.States {
			firstAccept = append(firstAccept, uint32(len(accept)))
			for _, a := range st.Accept {
				accept = append(accept, uint32(a))
			}
		}
		w.uints(countWidth(acceptCount), firstAccept)
		w.uints(symWidth, accept)
	} else {
		accept := make([]uint32, stateCount)
		for i, st := range m.States {
			if len(st.Accept) > 0 {
				accept[i] = uint32(st.Accept[0])
			}
		}
		w.uints(symWidth, accept)
	}

	return w.b
}

// runBounds checks that 0-based run starts are non-decreasing and within [0, total], and returns the end of
// every run.
func runBounds(firsts []uint32, total int, what string) ([]int, error) {
	ends := make([]int, len(firsts))
	for i, f := range firsts {
		if int64(f) > int64(total) {
			return nil, blobError(verr.ErrMalformedIndex, "%v run of state %v starts at %v, past the %v entries", what, i, f, total)
		}
		if i > 0 && f < firsts[i-1] {
			return nil, blobError(verr.ErrInconsistentGrammar, "%v runs of states %v and %v are out of order", what, i-1, i)
		}
		if i > 0 {
			ends[i-1] = int(f)
		}
	}
	if len(firsts) > 0 {
		if firsts[0] != 0 {
			return nil, blobError(verr.ErrInconsistentGrammar, "the first %v run must start at 0", what)
		}
		ends[len(ends)-1] = total
	}
	return ends, nil
}

func decodeDFA(data []byte, conflicts bool, ctx *machineContext) (*spec.DFA, error) {
	r := newByteReader(data, streamNameBlob)
	stateCount := int(r.u32())
	edgeCount := int(r.u32())
	acceptCount := 0
	if conflicts {
		acceptCount = int(r.u32())
	}
	cw := int(r.u8())
	if r.err != nil {
		return nil, r.err
	}
	if cw != 2 && cw != 4 {
		return nil, blobError(verr.ErrMalformedIndex, "unsupported character width %v", cw)
	}
	if stateCount == 0 {
		return nil, blobError(verr.ErrInconsistentGrammar, "a DFA needs at least one state")
	}

	firstEdge := r.uints(stateCount, countWidth(edgeCount))
	from := r.uints(edgeCount, cw)
	to := r.uints(edgeCount, cw)
	target := r.uints(edgeCount, countWidth(stateCount))
	var firstAccept, accept []uint32
	if conflicts {
		firstAccept = r.uints(stateCount, countWidth(acceptCount))
		accept = r.uints(acceptCount, ctx.tokenSymbolWidth())
	} else {
		accept = r.uints(stateCount, ctx.tokenSymbolWidth())
	}
	if r.err != nil {
		return nil, r.err
	}

	edgeEnds, err := runBounds(firstEdge, edgeCount, "edge")
	if err != nil {
		return nil, err
	}
	var acceptEnds []int
	if conflicts {
		acceptEnds, err = runBounds(firstAccept, acceptCount, "accept")
		if err != nil {
			return nil, err
		}
	}

	checkSymbol := func(v uint32) error {
		if int64(v) > int64(ctx.tokenSymbolCount) {
			return blobError(verr.ErrMalformedIndex, "accept symbol %v is out of range", v)
		}
		return nil
	}

	states := make([]spec.DFAState, stateCount)
	for s := range states {
		lo, hi := int(firstEdge[s]), edgeEnds[s]
		if hi > lo {
			edges := make([]spec.DFAEdge, 0, hi-lo)
			for e := lo; e < hi; e++ {
				edge := spec.DFAEdge{
					From: rune(from[e]),
					To:   rune(to[e]),
				}
				switch {
				case target[e] == 0:
					edge.Stop = true
				case int(target[e]) > stateCount:
					return nil, blobError(verr.ErrMalformedIndex, "edge %v targets the undefined state %v", e, target[e]-1)
				default:
					edge.Target = spec.DFAStateID(target[e] - 1)
				}
				edges = append(edges, edge)
			}
			states[s].Edges = edges
		}

		if conflicts {
			for a := int(firstAccept[s]); a < acceptEnds[s]; a++ {
				if accept[a] == 0 {
					return nil, blobError(verr.ErrMalformedIndex, "accept entry %v is nil", a)
				}
				if err := checkSymbol(accept[a]); err != nil {
					return nil, err
				}
				states[s].Accept = append(states[s].Accept, spec.TokenSymbolID(accept[a]))
			}
		} else if accept[s] != 0 {
			if err := checkSymbol(accept[s]); err != nil {
				return nil, err
			}
			states[s].Accept = []spec.TokenSymbolID{spec.TokenSymbolID(accept[s])}
		}
	}

	return &spec.DFA{
		States:    states,
		Conflicts: conflicts,
	}, nil
}

func encodeDefaultTransitions(m *spec.DefaultTransitions) []byte {
	stateCount := len(m.Targets)
	targets := make([]uint32, stateCount)
	for i, t := range m.Targets {
		if t.Valid {
			targets[i] = uint32(t.State) + 1
		}
	}
	w := &byteWriter{}
	w.u32(uint32(stateCount))
	w.uints(countWidth(stateCount), targets)
	return w.b
}

func decodeDefaultTransitions(data []byte) (*spec.DefaultTransitions, error) {
	r := newByteReader(data, streamNameBlob)
	stateCount := int(r.u32())
	targets := r.uints(stateCount, countWidth(stateCount))
	if r.err != nil {
		return nil, r.err
	}
	m := &spec.DefaultTransitions{
		Targets: make([]spec.DFATarget, stateCount),
	}
	for i, t := range targets {
		if t == 0 {
			continue
		}
		if int(t) > stateCount {
			return nil, blobError(verr.ErrMalformedIndex, "state %v targets the undefined state %v", i, t-1)
		}
		m.Targets[i] = spec.DFATarget{
			State: spec.DFAStateID(t - 1),
			Valid: true,
		}
	}
	return m, nil
}

func encodeAction(a spec.Action) uint32 {
	if a.Kind == spec.ActionKindReduce {
		return uint32(a.Production)<<1 | actionTagReduce
	}
	return uint32(a.State)<<1 | actionTagShift
}

func decodeAction(v uint32, stateCount int, ctx *machineContext) (spec.Action, error) {
	target := v >> 1
	if v&1 == actionTagReduce {
		if target == 0 || int64(target) > int64(ctx.productionCount) {
			return spec.Action{}, blobError(verr.ErrMalformedIndex, "reduction by the undefined production %v", target)
		}
		return spec.Reduce(spec.ProductionID(target)), nil
	}
	if int64(target) >= int64(stateCount) {
		return spec.Action{}, blobError(verr.ErrMalformedIndex, "shift to the undefined state %v", target)
	}
	return spec.Shift(spec.LRStateID(target)), nil
}

func encodeEOFAction(a spec.Action) uint32 {
	switch a.Kind {
	case spec.ActionKindAccept:
		return eofActionAccept
	case spec.ActionKindReduce:
		return uint32(a.Production) + 1
	}
	return eofActionError
}

func decodeEOFAction(v uint32, ctx *machineContext) (spec.Action, bool, error) {
	switch v {
	case eofActionError:
		return spec.Action{}, false, nil
	case eofActionAccept:
		return spec.Accept(), true, nil
	}
	prod := v - 1
	if int64(prod) > int64(ctx.productionCount) {
		return spec.Action{}, false, blobError(verr.ErrMalformedIndex, "EOF reduction by the undefined production %v", prod)
	}
	return spec.Reduce(spec.ProductionID(prod)), true, nil
}

func encodeLR(m *spec.LR, ctx *machineContext) []byte {
	stateCount := len(m.States)
	actionCount := 0
	gotoCount := 0
	eofActionCount := 0
	for _, st := range m.States {
		actionCount += len(st.Actions)
		gotoCount += len(st.Gotos)
		eofActionCount += len(st.EOFActions)
	}

	firstAction := make([]uint32, 0, stateCount)
	firstGoto := make([]uint32, 0, stateCount)
	firstEOFAction := make([]uint32, 0, stateCount)
	actionTerminal := make([]uint32, 0, actionCount)
	actionValue := make([]uint32, 0, actionCount)
	var eofAction []uint32
	gotoNonterminal := make([]uint32, 0, gotoCount)
	gotoState := make([]uint32, 0, gotoCount)
	for _, st := range m.States {
		firstAction = append(firstAction, uint32(len(actionTerminal)))
		firstGoto = append(firstGoto, uint32(len(gotoNonterminal)))
		firstEOFAction = append(firstEOFAction, uint32(len(eofAction)))
		for _, a := range st.Actions {
			actionTerminal = append(actionTerminal, uint32(a.Terminal))
			actionValue = append(actionValue, encodeAction(a.Action))
		}
		if m.GLR {
			for _, a := range st.EOFActions {
				eofAction = append(eofAction, encodeEOFAction(a))
			}
		} else {
			v := uint32(eofActionError)
			if len(st.EOFActions) > 0 {
				v = encodeEOFAction(st.EOFActions[0])
			}
			eofAction = append(eofAction, v)
		}
		for _, g := range st.Gotos {
			gotoNonterminal = append(gotoNonterminal, uint32(g.Nonterminal))
			gotoState = append(gotoState, uint32(g.State))
		}
	}

	w := &byteWriter{}
	w.u32(uint32(stateCount))
	w.u32(uint32(actionCount))
	w.u32(uint32(gotoCount))
	if m.GLR {
		w.u32(uint32(eofActionCount))
	}
	w.uints(countWidth(actionCount), firstAction)
	w.uints(countWidth(gotoCount), firstGoto)
	if m.GLR {
		w.uints(countWidth(eofActionCount), firstEOFAction)
	}
	w.uints(ctx.tokenSymbolWidth(), actionTerminal)
	w.uints(ctx.actionWidth(stateCount), actionValue)
	w.uints(ctx.eofActionWidth(), eofAction)
	w.uints(ctx.nonterminalWidth(), gotoNonterminal)
	w.uints(countWidth(stateCount), gotoState)

	return w.b
}

func decodeLR(data []byte, glr bool, ctx *machineContext) (*spec.LR, error) {
	r := newByteReader(data, streamNameBlob)
	stateCount := int(r.u32())
	actionCount := int(r.u32())
	gotoCount := int(r.u32())
	eofActionCount := stateCount
	if glr {
		eofActionCount = int(r.u32())
	}
	if r.err != nil {
		return nil, r.err
	}
	if stateCount == 0 {
		return nil, blobError(verr.ErrInconsistentGrammar, "an LR table needs at least one state")
	}

	firstAction := r.uints(stateCount, countWidth(actionCount))
	firstGoto := r.uints(stateCount, countWidth(gotoCount))
	var firstEOFAction []uint32
	if glr {
		firstEOFAction = r.uints(stateCount, countWidth(eofActionCount))
	}
	actionTerminal := r.uints(actionCount, ctx.tokenSymbolWidth())
	actionValue := r.uints(actionCount, ctx.actionWidth(stateCount))
	eofAction := r.uints(eofActionCount, ctx.eofActionWidth())
	gotoNonterminal := r.uints(gotoCount, ctx.nonterminalWidth())
	gotoState := r.uints(gotoCount, countWidth(stateCount))
	if r.err != nil {
		return nil, r.err
	}

	actionEnds, err := runBounds(firstAction, actionCount, "action")
	if err != nil {
		return nil, err
	}
	gotoEnds, err := runBounds(firstGoto, gotoCount, "goto")
	if err != nil {
		return nil, err
	}
	var eofEnds []int
	if glr {
		eofEnds, err = runBounds(firstEOFAction, eofActionCount, "EOF action")
		if err != nil {
			return nil, err
		}
	}

	states := make([]spec.LRState, stateCount)
	for s := range states {
		st := &states[s]
		for i := int(firstAction[s]); i < actionEnds[s]; i++ {
			term := actionTerminal[i]
			if term == 0 || int64(term) > int64(ctx.tokenSymbolCount) {
				return nil, blobError(verr.ErrMalformedIndex, "action %v refers to the undefined token symbol %v", i, term)
			}
			a, err := decodeAction(actionValue[i], stateCount, ctx)
			if err != nil {
				return nil, err
			}
			st.Actions = append(st.Actions, spec.TerminalAction{
				Terminal: spec.TokenSymbolID(term),
				Action:   a,
			})
		}

		lo, hi := s, s+1
		if glr {
			lo, hi = int(firstEOFAction[s]), eofEnds[s]
		}
		for i := lo; i < hi; i++ {
			a, ok, err := decodeEOFAction(eofAction[i], ctx)
			if err != nil {
				return nil, err
			}
			if !ok {
				if glr {
					return nil, blobError(verr.ErrInconsistentGrammar, "GLR state %v lists an explicit error action", s)
				}
				continue
			}
			st.EOFActions = append(st.EOFActions, a)
		}

		for i := int(firstGoto[s]); i < gotoEnds[s]; i++ {
			nt := gotoNonterminal[i]
			if nt == 0 || int64(nt) > int64(ctx.nonterminalCount) {
				return nil, blobError(verr.ErrMalformedIndex, "goto %v refers to the undefined nonterminal %v", i, nt)
			}
			if int(gotoState[i]) >= stateCount {
				return nil, blobError(verr.ErrMalformedIndex, "goto %v targets the undefined state %v", i, gotoState[i])
			}
			st.Gotos = append(st.Gotos, spec.Goto{
				Nonterminal: spec.NonterminalID(nt),
				State:       spec.LRStateID(gotoState[i]),
			})
		}
	}

	return &spec.LR{
		States: states,
		GLR:    glr,
	}, nil
}
