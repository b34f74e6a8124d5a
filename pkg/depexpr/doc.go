// Package depexpr lexes dependency expressions as found in the DEPEND field
// of build metadata.
//
// A dependency expression such as
//
//	>=dev-libs/openssl-3:0= ssl? ( net-misc/curl[ssl,http2] ) || ( a/b c/d )
//
// is split into typed [Token] values: package references, slot selectors,
// USE-dependency groups, bare USE flags, operators and grouping brackets.
// The lexer does not interpret the tokens; blockers, version operators,
// any-of groups and USE conditionals are left to later stages.
//
// # Matching
//
// At each position every token pattern is tried and the longest match wins
// (maximal munch). Ties go to the pattern listed first: package name, slot,
// USE group, USE flag, operator, bracket. Whitespace separates tokens and
// produces none. Both "=<"/"=>" and the common "<="/">=" spellings are
// accepted for the inclusive comparisons.
//
// # Errors
//
// A character that starts no token ends the sequence with a LEX_ERROR from
// [github.com/matzehuels/emergo/pkg/errors].
package depexpr
