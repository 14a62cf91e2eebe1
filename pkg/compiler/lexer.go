package compiler

import (
	"strconv"
	"strings"
	"unicode"
)

// Scanner is a character cursor over the source with on-demand
// classification. The parser drives it directly; there is no token stream.
type Scanner struct {
	src  []rune
	pos  int // index of the next rune to consume
	line int // current 1-based source line
}

func newScanner(src string) *Scanner {
	return &Scanner{src: []rune(src), pos: 0, line: 1}
}

// peek returns the rune at the current position without advancing.
func (s *Scanner) peek() rune {
	return s.peekAt(0)
}

func (s *Scanner) peekAt(offset int) rune {
	if s.pos+offset >= len(s.src) {
		return 0
	}
	return s.src[s.pos+offset]
}

// advance consumes one rune and returns it.
func (s *Scanner) advance() rune {
	if s.pos >= len(s.src) {
		return 0
	}
	r := s.src[s.pos]
	s.pos++
	if r == '\n' {
		s.line++
	}
	return r
}

func (s *Scanner) eof() bool {
	return s.pos >= len(s.src)
}

// skipBlank skips whitespace and comments. It never enters a string or
// character literal because those start with a quote.
func (s *Scanner) skipBlank() {
	for !s.eof() {
		r := s.peek()
		switch {
		case unicode.IsSpace(r):
			s.advance()
		case r == '/' && s.peekAt(1) == '/':
			for !s.eof() && s.peek() != '\n' {
				s.advance()
			}
		case r == '/' && s.peekAt(1) == '*':
			s.advance()
			s.advance()
			for !s.eof() && !(s.peek() == '*' && s.peekAt(1) == '/') {
				s.advance()
			}
			s.advance()
			s.advance()
		default:
			return
		}
	}
}

// skipLineSpace skips spaces and tabs but stops at a newline. Directives
// are line oriented.
func (s *Scanner) skipLineSpace() {
	for !s.eof() && (s.peek() == ' ' || s.peek() == '\t') {
		s.advance()
	}
}

func (s *Scanner) hasPrefix(str string) bool {
	rs := []rune(str)
	if s.pos+len(rs) > len(s.src) {
		return false
	}
	for i, r := range rs {
		if s.src[s.pos+i] != r {
			return false
		}
	}
	return true
}

// lookahead reports whether str comes next, after skipping blanks. Word-like
// strings must end at an identifier boundary. Nothing is consumed.
func (s *Scanner) lookahead(str string) bool {
	save, line := s.pos, s.line
	defer func() { s.pos, s.line = save, line }()
	s.skipBlank()
	if !s.hasPrefix(str) {
		return false
	}
	if isIdentRune(lastRune(str)) && isIdentRune(s.peekAt(len([]rune(str)))) {
		return false
	}
	return true
}

// accept consumes str if it is next and reports whether it did.
func (s *Scanner) accept(str string) bool {
	if !s.lookahead(str) {
		return false
	}
	s.skipBlank()
	for range []rune(str) {
		s.advance()
	}
	return true
}

// lookaheadAny returns the first entry of list that comes next.
func (s *Scanner) lookaheadAny(list []string) (string, bool) {
	for _, str := range list {
		if s.lookahead(str) {
			return str, true
		}
	}
	return "", false
}

func (s *Scanner) identifierIncoming() bool {
	save, line := s.pos, s.line
	defer func() { s.pos, s.line = save, line }()
	s.skipBlank()
	r := s.peek()
	return r == '_' || unicode.IsLetter(r)
}

func (s *Scanner) numberIncoming() bool {
	save, line := s.pos, s.line
	defer func() { s.pos, s.line = save, line }()
	s.skipBlank()
	r := s.peek()
	return unicode.IsDigit(r) || (r == '.' && unicode.IsDigit(s.peekAt(1)))
}

// readIdentifier consumes an identifier. It returns "" if none is next.
func (s *Scanner) readIdentifier() string {
	s.skipBlank()
	start := s.pos
	if r := s.peek(); r != '_' && !unicode.IsLetter(r) {
		return ""
	}
	for !s.eof() && isIdentRune(s.peek()) {
		s.advance()
	}
	return string(s.src[start:s.pos])
}

// readNumber consumes an integer or floating literal: decimal, 0x hex,
// 0b binary, leading-zero octal, with optional u/l suffixes.
func (s *Scanner) readNumber() (lit *Literal, ok bool) {
	s.skipBlank()
	line := s.line
	start := s.pos
	base := 10
	switch {
	case s.peek() == '0' && (s.peekAt(1) == 'x' || s.peekAt(1) == 'X'):
		base = 16
		s.advance()
		s.advance()
	case s.peek() == '0' && (s.peekAt(1) == 'b' || s.peekAt(1) == 'B'):
		base = 2
		s.advance()
		s.advance()
	}
	digitsStart := s.pos
	isFloat := false
	for !s.eof() {
		r := s.peek()
		if base == 16 && isHexRune(r) || base != 16 && unicode.IsDigit(r) {
			s.advance()
			continue
		}
		if base == 10 && r == '.' && !isFloat {
			isFloat = true
			s.advance()
			continue
		}
		if base == 10 && (r == 'e' || r == 'E') && exponentFollows(s.peekAt(1), s.peekAt(2)) {
			isFloat = true
			s.advance()
			s.advance()
			continue
		}
		break
	}
	digits := string(s.src[digitsStart:s.pos])
	for !s.eof() && strings.ContainsRune("uUlLfF", s.peek()) {
		s.advance()
	}
	if digits == "" {
		s.pos = start
		return nil, false
	}
	if isFloat {
		f, err := strconv.ParseFloat(digits, 64)
		if err != nil {
			return nil, false
		}
		return &Literal{Kind: FloatLit, Float: f, Line: line}, true
	}
	if base == 10 && len(digits) > 1 && digits[0] == '0' {
		base = 8
	}
	n, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		return nil, false
	}
	return &Literal{Kind: IntLit, Int: int64(n), Line: line}, true
}

// exponentFollows reports whether the runes after an 'e' start an exponent.
func exponentFollows(r, next rune) bool {
	if r == '+' || r == '-' {
		return unicode.IsDigit(next)
	}
	return unicode.IsDigit(r)
}

// readQuoted consumes a string or character literal delimited by quote and
// returns its decoded contents.
func (s *Scanner) readQuoted(quote rune) (string, bool) {
	s.skipBlank()
	if s.peek() != quote {
		return "", false
	}
	s.advance()
	var sb strings.Builder
	for {
		if s.eof() || s.peek() == '\n' {
			return "", false
		}
		r := s.advance()
		if r == quote {
			return sb.String(), true
		}
		if r != '\\' {
			sb.WriteRune(r)
			continue
		}
		esc, ok := s.readEscape()
		if !ok {
			return "", false
		}
		sb.WriteRune(esc)
	}
}

// readEscape decodes the escape sequence after a backslash.
func (s *Scanner) readEscape() (rune, bool) {
	r := s.peek()
	if v, ok := stringEscapes[r]; ok {
		s.advance()
		return v, true
	}
	if r >= '0' && r <= '7' {
		var v rune
		for i := 0; i < 3 && s.peek() >= '0' && s.peek() <= '7'; i++ {
			v = v*8 + (s.advance() - '0')
		}
		return v, true
	}
	if r == 'x' {
		s.advance()
		var v rune
		n := 0
		for n < 2 && isHexRune(s.peek()) {
			d, _ := strconv.ParseUint(string(s.advance()), 16, 8)
			v = v*16 + rune(d)
			n++
		}
		return v, n > 0
	}
	return 0, false
}

// restOfLine consumes and returns everything up to the end of the line.
func (s *Scanner) restOfLine() string {
	start := s.pos
	for !s.eof() && s.peek() != '\n' {
		s.advance()
	}
	return strings.TrimSpace(string(s.src[start:s.pos]))
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isHexRune(r rune) bool {
	return unicode.IsDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func lastRune(str string) rune {
	rs := []rune(str)
	if len(rs) == 0 {
		return 0
	}
	return rs[len(rs)-1]
}
