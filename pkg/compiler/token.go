package compiler

import "sort"

// Binary operator precedence. Higher binds tighter. Levels 1 and 2 are
// right-associative.
var binaryOps = map[string]int{
	"=": 1, "+=": 1, "-=": 1, "*=": 1, "/=": 1, "%=": 1,
	"<<=": 1, ">>=": 1, "&=": 1, "^=": 1, "|=": 1,
	"?":  2,
	"||": 3,
	"&&": 4,
	"|":  5,
	"^":  6,
	"&":  7,
	"==": 8, "!=": 8, "<": 8, "<=": 8, ">": 8, ">=": 8,
	"<<": 9, ">>": 9,
	"+": 10, "-": 10,
	"*": 11, "/": 11, "%": 11,
	".": 13, "->": 13,
}

const (
	assignPrec  = 1
	ternaryPrec = 2
	memberPrec  = 13
)

// Operators that may only appear before an operand. sizeof is matched as a
// keyword so that `sizeofx` stays an identifier.
var prefixOps = sortLongestFirst([]string{"++", "--", "!", "~", "&", "*", "+", "-"})

var suffixOps = []string{"++", "--"}

// sortedOps lists every binary operator longest first, so that lookahead
// never matches "<" where "<<=" was written.
var sortedOps = func() []string {
	ops := make([]string, 0, len(binaryOps))
	for op := range binaryOps {
		ops = append(ops, op)
	}
	return sortLongestFirst(ops)
}()

// IsAssignment reports whether op belongs to the assignment family.
func IsAssignment(op string) bool {
	return binaryOps[op] == assignPrec
}

func rightAssoc(prec int) bool {
	return prec == assignPrec || prec == ternaryPrec
}

func sortLongestFirst(list []string) []string {
	sort.SliceStable(list, func(i, j int) bool {
		if len(list[i]) != len(list[j]) {
			return len(list[i]) > len(list[j])
		}
		return list[i] < list[j]
	})
	return list
}

var stringEscapes = map[rune]rune{
	'a':  '\a',
	'b':  '\b',
	'f':  '\f',
	'n':  '\n',
	'r':  '\r',
	't':  '\t',
	'v':  '\v',
	'\\': '\\',
	'\'': '\'',
	'"':  '"',
	'?':  '?',
}
