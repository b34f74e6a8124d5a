package depexpr

import (
	"fmt"
	"strings"
)

// TokenKind discriminates the variants of [Token].
type TokenKind int

const (
	// PackageName is a "category/name[-version]" package reference.
	PackageName TokenKind = iota
	// PackageSlot is a ":slot[/subslot][=|*]" selector; Token.Slot holds the
	// text without the leading colon.
	PackageSlot
	// PackageUseGroup is a "[flag,flag,...]" USE dependency; Token.Flags holds
	// the comma-split flags.
	PackageUseGroup
	// UseFlag is a bare word, usually followed by an If conditional.
	UseFlag
	// Conditional is an operator symbol; Token.Op holds its meaning.
	Conditional
	// Bracket is a grouping parenthesis; Token.Bracket tells which side.
	Bracket
)

var kindNames = [...]string{
	PackageName:     "PackageName",
	PackageSlot:     "PackageSlot",
	PackageUseGroup: "PackageUseGroup",
	UseFlag:         "UseFlag",
	Conditional:     "Conditional",
	Bracket:         "Bracket",
}

func (k TokenKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// Operator is the meaning of a Conditional token.
type Operator int

const (
	WeakBlocker    Operator = iota // !
	StrongBlocker                  // !!
	BlockLess                      // !<
	BlockGreater                   // !>
	Less                           // <
	Equal                          // =
	Greater                        // >
	LessOrEqual                    // =< or <=
	GreaterOrEqual                 // => or >=
	Or                             // ||
	If                             // ?
)

var operatorNames = [...]string{
	WeakBlocker:    "WeakBlocker",
	StrongBlocker:  "StrongBlocker",
	BlockLess:      "BlockLess",
	BlockGreater:   "BlockGreater",
	Less:           "Less",
	Equal:          "Equal",
	Greater:        "Greater",
	LessOrEqual:    "LessOrEqual",
	GreaterOrEqual: "GreaterOrEqual",
	Or:             "Or",
	If:             "If",
}

func (o Operator) String() string {
	if int(o) < len(operatorNames) {
		return operatorNames[o]
	}
	return fmt.Sprintf("Operator(%d)", int(o))
}

// IsBlocker reports whether o forbids coexistence with the following atom.
func (o Operator) IsBlocker() bool {
	return o == WeakBlocker || o == StrongBlocker || o == BlockLess || o == BlockGreater
}

// IsVersionConstraint reports whether o constrains the version of the
// following atom.
func (o Operator) IsVersionConstraint() bool {
	switch o {
	case Less, Equal, Greater, LessOrEqual, GreaterOrEqual:
		return true
	}
	return false
}

var operators = map[string]Operator{
	"!":  WeakBlocker,
	"!!": StrongBlocker,
	"!<": BlockLess,
	"!>": BlockGreater,
	"<":  Less,
	"=":  Equal,
	">":  Greater,
	"=<": LessOrEqual,
	"<=": LessOrEqual,
	"=>": GreaterOrEqual,
	">=": GreaterOrEqual,
	"||": Or,
	"?":  If,
}

// BracketSide tells an opening parenthesis from a closing one.
type BracketSide int

const (
	Open BracketSide = iota
	Close
)

func (b BracketSide) String() string {
	if b == Open {
		return "Open"
	}
	return "Close"
}

// Token is one lexical element of a dependency expression. Only the payload
// field matching Kind is meaningful; Text always holds the source text and
// Offset its byte position.
type Token struct {
	Kind    TokenKind
	Text    string
	Offset  int
	Slot    string
	Flags   []string
	Op      Operator
	Bracket BracketSide
}

func (t Token) String() string {
	switch t.Kind {
	case PackageSlot:
		return fmt.Sprintf("%s(%s)", t.Kind, t.Slot)
	case PackageUseGroup:
		return fmt.Sprintf("%s[%s]", t.Kind, strings.Join(t.Flags, ","))
	case Conditional:
		return fmt.Sprintf("%s(%s)", t.Kind, t.Op)
	case Bracket:
		return fmt.Sprintf("%s(%s)", t.Kind, t.Bracket)
	default:
		return fmt.Sprintf("%s(%s)", t.Kind, t.Text)
	}
}
