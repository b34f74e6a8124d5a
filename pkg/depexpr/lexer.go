package depexpr

import (
	"iter"
	"regexp"
	"strings"

	"github.com/samber/lo"

	"github.com/matzehuels/emergo/pkg/errors"
)

const (
	ident     = `[A-Za-z0-9_][A-Za-z0-9_.+-]*`
	slotIdent = `[A-Za-z0-9_+][A-Za-z0-9_+.-]*`
)

type rule struct {
	kind TokenKind
	re   *regexp.Regexp
}

// rules are listed in matching priority; the longest match wins and ties go
// to the earlier rule.
var rules = []rule{
	{PackageName, regexp.MustCompile(`^` + ident + `/` + ident)},
	{PackageSlot, regexp.MustCompile(`^:(?:` + slotIdent + `(?:/` + slotIdent + `)?[=*]?|[=*])`)},
	{PackageUseGroup, regexp.MustCompile(`^\[[^\[\]]*\]`)},
	{UseFlag, regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_+@.-]*`)},
	{Conditional, regexp.MustCompile(`^(?:!!|!<|!>|=<|=>|<=|>=|\|\||!|<|=|>|\?)`)},
	{Bracket, regexp.MustCompile(`^[()]`)},
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\f', '\r', '\v':
		return true
	}
	return false
}

// Tokenize returns a lazy sequence over the tokens of a dependency
// expression. Every range over the sequence restarts from the beginning of
// text. On a character that starts no token the sequence yields a LEX_ERROR
// and stops.
func Tokenize(text string) iter.Seq2[Token, error] {
	return func(yield func(Token, error) bool) {
		pos := 0
		for {
			for pos < len(text) && isSpace(text[pos]) {
				pos++
			}
			if pos >= len(text) {
				return
			}
			tok, n := match(text[pos:])
			if n == 0 {
				yield(Token{}, errors.New(errors.ErrCodeLex,
					"unexpected character %q at offset %d in dependency expression", text[pos], pos))
				return
			}
			tok.Offset = pos
			if !yield(tok, nil) {
				return
			}
			pos += n
		}
	}
}

// match applies maximal munch at the start of s and returns the token and the
// number of bytes consumed, or zero when nothing matches.
func match(s string) (Token, int) {
	best, bestLen := -1, 0
	for i, r := range rules {
		if loc := r.re.FindStringIndex(s); loc != nil && loc[1] > bestLen {
			best, bestLen = i, loc[1]
		}
	}
	if best < 0 {
		return Token{}, 0
	}
	lexeme := s[:bestLen]
	tok := Token{Kind: rules[best].kind, Text: lexeme}
	switch tok.Kind {
	case PackageSlot:
		tok.Slot = lexeme[1:]
	case PackageUseGroup:
		tok.Flags = splitFlags(lexeme[1 : len(lexeme)-1])
	case Conditional:
		tok.Op = operators[lexeme]
	case Bracket:
		if lexeme == ")" {
			tok.Bracket = Close
		}
	}
	return tok, bestLen
}

func splitFlags(s string) []string {
	flags := lo.Map(strings.Split(s, ","), func(f string, _ int) string {
		return strings.TrimSpace(f)
	})
	return lo.Compact(flags)
}

// Collect drains Tokenize(text) into a slice.
func Collect(text string) ([]Token, error) {
	var out []Token
	for tok, err := range Tokenize(text) {
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
	}
	return out, nil
}

// PackageNames returns the text of every PackageName token in text, in source
// order.
func PackageNames(text string) ([]string, error) {
	var names []string
	for tok, err := range Tokenize(text) {
		if err != nil {
			return nil, err
		}
		if tok.Kind == PackageName {
			names = append(names, tok.Text)
		}
	}
	return names, nil
}
