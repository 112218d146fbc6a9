package grammar

import (
	"fmt"
	"strings"
)

// TokenSymbolID is a 1-based row number of the TokenSymbol table.
type TokenSymbolID uint32

const (
	TokenSymbolIDNil = TokenSymbolID(0)
	TokenSymbolIDMin = TokenSymbolID(1)
)

func (id TokenSymbolID) Int() int {
	return int(id)
}

func (id TokenSymbolID) IsNil() bool {
	return id == TokenSymbolIDNil
}

// NonterminalID is a 1-based row number of the Nonterminal table.
type NonterminalID uint32

const (
	NonterminalIDNil = NonterminalID(0)
	NonterminalIDMin = NonterminalID(1)
)

func (id NonterminalID) Int() int {
	return int(id)
}

func (id NonterminalID) IsNil() bool {
	return id == NonterminalIDNil
}

// GroupID is a 1-based row number of the Group table.
type GroupID uint32

const (
	GroupIDNil = GroupID(0)
	GroupIDMin = GroupID(1)
)

func (id GroupID) Int() int {
	return int(id)
}

func (id GroupID) IsNil() bool {
	return id == GroupIDNil
}

// ProductionID is a 1-based row number of the Production table.
type ProductionID uint32

const (
	ProductionIDNil = ProductionID(0)
	ProductionIDMin = ProductionID(1)
)

func (id ProductionID) Int() int {
	return int(id)
}

func (id ProductionID) IsNil() bool {
	return id == ProductionIDNil
}

type TokenSymbolFlags uint32

const (
	// TokenSymbolTerminal marks a symbol that can appear in productions and LR actions.
	// Terminals must precede all other token symbols in table order.
	TokenSymbolTerminal TokenSymbolFlags = 1 << iota
	TokenSymbolGroupStart
	TokenSymbolNoise
	TokenSymbolHidden
	TokenSymbolHasSpecialName
	TokenSymbolGenerated

	tokenSymbolFlagsKnown = TokenSymbolTerminal | TokenSymbolGroupStart | TokenSymbolNoise |
		TokenSymbolHidden | TokenSymbolHasSpecialName | TokenSymbolGenerated
)

// Known returns the flags this package understands and whether any other bit was set.
func (f TokenSymbolFlags) Known() (TokenSymbolFlags, bool) {
	return f & tokenSymbolFlagsKnown, f&^tokenSymbolFlagsKnown != 0
}

func (f TokenSymbolFlags) String() string {
	return flagString(uint64(f), []string{"terminal", "group-start", "noise", "hidden", "special-name", "generated"})
}

type NonterminalFlags uint16

const (
	NonterminalGenerated NonterminalFlags = 1 << iota
	NonterminalHasSpecialName

	nonterminalFlagsKnown = NonterminalGenerated | NonterminalHasSpecialName
)

func (f NonterminalFlags) Known() (NonterminalFlags, bool) {
	return f & nonterminalFlagsKnown, f&^nonterminalFlagsKnown != 0
}

func (f NonterminalFlags) String() string {
	return flagString(uint64(f), []string{"generated", "special-name"})
}

type GroupFlags uint16

const (
	// GroupEndsOnEndOfInput allows a group to be closed by the end of the input instead of its end symbol.
	GroupEndsOnEndOfInput GroupFlags = 1 << iota
	// GroupAdvanceByCharacter makes a tokenizer skip a group's content one character at a time
	// instead of one token at a time.
	GroupAdvanceByCharacter
	// GroupKeepEndToken leaves the end token in the input after the group closes.
	GroupKeepEndToken

	groupFlagsKnown = GroupEndsOnEndOfInput | GroupAdvanceByCharacter | GroupKeepEndToken
)

func (f GroupFlags) Known() (GroupFlags, bool) {
	return f & groupFlagsKnown, f&^groupFlagsKnown != 0
}

func (f GroupFlags) String() string {
	return flagString(uint64(f), []string{"ends-on-eoi", "advance-by-char", "keep-end-token"})
}

func flagString(f uint64, names []string) string {
	var fs []string
	for i, name := range names {
		if f&(1<<i) != 0 {
			fs = append(fs, name)
		}
	}
	if len(fs) == 0 {
		return "-"
	}
	return strings.Join(fs, ",")
}

type TokenSymbol struct {
	Name  string
	Flags TokenSymbolFlags
}

func (s *TokenSymbol) IsTerminal() bool {
	return s.Flags&TokenSymbolTerminal != 0
}

type Nonterminal struct {
	Name  string
	Flags NonterminalFlags
}

// Group is a lexical region such as a comment or a string literal.
type Group struct {
	Name string

	// Container is the token symbol the whole group is reported as.
	Container TokenSymbolID

	// Start opens the group and must carry the TokenSymbolGroupStart flag.
	Start TokenSymbolID

	// End closes the group. It is nil only when the group ends on the end of the input.
	End TokenSymbolID

	Flags GroupFlags

	// Nesting lists the groups that may start inside this one.
	Nesting []GroupID
}

type SymbolKind uint8

const (
	SymbolKindTerminal    = SymbolKind(0)
	SymbolKindNonterminal = SymbolKind(1)
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolKindTerminal:
		return "terminal"
	case SymbolKindNonterminal:
		return "nonterminal"
	}
	return fmt.Sprintf("<unknown symbol kind %d>", uint8(k))
}

// Symbol refers to either a token symbol or a nonterminal.
type Symbol struct {
	Kind SymbolKind
	ID   uint32
}

func TerminalSymbol(id TokenSymbolID) Symbol {
	return Symbol{
		Kind: SymbolKindTerminal,
		ID:   uint32(id),
	}
}

func NonterminalSymbol(id NonterminalID) Symbol {
	return Symbol{
		Kind: SymbolKindNonterminal,
		ID:   uint32(id),
	}
}

func (s Symbol) Terminal() (TokenSymbolID, bool) {
	if s.Kind != SymbolKindTerminal {
		return TokenSymbolIDNil, false
	}
	return TokenSymbolID(s.ID), true
}

func (s Symbol) Nonterminal() (NonterminalID, bool) {
	if s.Kind != SymbolKindNonterminal {
		return NonterminalIDNil, false
	}
	return NonterminalID(s.ID), true
}

func (s Symbol) String() string {
	if s.Kind == SymbolKindNonterminal {
		return fmt.Sprintf("n%v", s.ID)
	}
	return fmt.Sprintf("t%v", s.ID)
}

// Production is one alternative of its head nonterminal.
type Production struct {
	Head    NonterminalID
	Members []Symbol
}

// SpecialName maps a stable identifier to a symbol for use by tools.
type SpecialName struct {
	Name   string
	Symbol Symbol
}
