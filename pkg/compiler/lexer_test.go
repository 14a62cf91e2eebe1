package compiler

import "testing"

func TestScannerLookahead(t *testing.T) {
	tests := []struct {
		name  string
		input string
		probe string
		want  bool
	}{
		{"Operator", "  <<= 1", "<<=", true},
		{"Prefix operator", "<= 1", "<", true},
		{"Keyword", "while (1)", "while", true},
		{"Keyword needs boundary", "whilex", "while", false},
		{"Skips line comment", "// note\nint", "int", true},
		{"Skips block comment", "/* a\n b */ return", "return", true},
		{"No match", "x", "y", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newScanner(tt.input)
			if got := s.lookahead(tt.probe); got != tt.want {
				t.Errorf("lookahead(%q) on %q = %v, want %v", tt.probe, tt.input, got, tt.want)
			}
			if s.pos != 0 || s.line != 1 {
				t.Errorf("lookahead moved the cursor to pos %d line %d", s.pos, s.line)
			}
		})
	}
}

func TestScannerLookaheadAnyPrefersLongest(t *testing.T) {
	s := newScanner(">>= 2")
	op, ok := s.lookaheadAny(sortedOps)
	if !ok || op != ">>=" {
		t.Errorf("expected >>=, got %q (ok=%v)", op, ok)
	}
}

func TestScannerReadNumber(t *testing.T) {
	tests := []struct {
		input string
		kind  LiteralKind
		i     int64
		f     float64
	}{
		{"42", IntLit, 42, 0},
		{"0x2A", IntLit, 42, 0},
		{"0b101010", IntLit, 42, 0},
		{"052", IntLit, 42, 0},
		{"42u", IntLit, 42, 0},
		{"100UL", IntLit, 100, 0},
		{"0", IntLit, 0, 0},
		{"1.5", FloatLit, 0, 1.5},
		{"2e3", FloatLit, 0, 2000},
		{"1.5e+1", FloatLit, 0, 15},
		{"25e-1", FloatLit, 0, 2.5},
		{"7e", IntLit, 7, 0},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			lit, ok := newScanner(tt.input).readNumber()
			if !ok {
				t.Fatalf("readNumber(%q) failed", tt.input)
			}
			if lit.Kind != tt.kind || lit.Int != tt.i || lit.Float != tt.f {
				t.Errorf("readNumber(%q) = %+v", tt.input, lit)
			}
		})
	}
}

func TestScannerReadQuoted(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{`"plain"`, "plain", true},
		{`"tab\there"`, "tab\there", true},
		{`"q\"uote\?"`, `q"uote?`, true},
		{`"\a\b\f\v\r"`, "\a\b\f\v\r", true},
		{`"\0"`, "\x00", true},
		{`"\x7e"`, "~", true},
		{`"unterminated`, "", false},
		{"\"new\nline\"", "", false},
		{`"\q"`, "", false},
	}
	for _, tt := range tests {
		got, ok := newScanner(tt.input).readQuoted('"')
		if ok != tt.ok || got != tt.want {
			t.Errorf("readQuoted(%s) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestScannerTracksLines(t *testing.T) {
	s := newScanner("a\n\nb /* x\n */ c")
	for _, want := range []struct {
		name string
		line int
	}{{"a", 1}, {"b", 3}, {"c", 4}} {
		got := s.readIdentifier()
		if got != want.name || s.line != want.line {
			t.Errorf("expected %s on line %d, got %s on line %d", want.name, want.line, got, s.line)
		}
	}
}
