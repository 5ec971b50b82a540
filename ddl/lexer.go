package ddl

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// Lexer defines the token types of the CREATE TABLE subset understood by
// the parser. Rules are tried in order; Other guarantees the lexer never
// fails on unexpected input.
var Lexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `--[^\n]*|/\*(?:[^*]|\*+[^*/])*\*+/`},
	{Name: "Whitespace", Pattern: `\s+`},

	// Literals
	{Name: "Blob", Pattern: `[xX]'[0-9A-Fa-f]*'`},
	{Name: "String", Pattern: `'(?:[^']|'')*'`},
	{Name: "QuotedIdent", Pattern: `"(?:[^"]|"")*"|` + "`[^`]*`" + `|\[[^\]]*\]`},
	{Name: "Number", Pattern: `[-+]?(?:\d+(?:\.\d*)?|\.\d+)(?:[eE][-+]?\d+)?`},

	{Name: "Ident", Pattern: `[\p{L}_][\p{L}\p{N}_$]*`},

	{Name: "Punct", Pattern: `[(),;.]`},
	{Name: "Operator", Pattern: `[-+*/%<>=!|&~]+`},
	{Name: "Other", Pattern: `.`},
})

type tokenKind int

const (
	kindEOF tokenKind = iota
	kindIdent
	kindQuoted
	kindString
	kindBlob
	kindNumber
	kindPunct
	kindOperator
	kindOther
)

// token is one lexeme with quoting already removed from text. raw keeps the
// source spelling for places where it must survive verbatim.
type token struct {
	kind tokenKind
	text string
	raw  string
}

var kinds = func() map[lexer.TokenType]tokenKind {
	symbols := Lexer.Symbols()
	return map[lexer.TokenType]tokenKind{
		symbols["Blob"]:        kindBlob,
		symbols["String"]:      kindString,
		symbols["QuotedIdent"]: kindQuoted,
		symbols["Number"]:      kindNumber,
		symbols["Ident"]:       kindIdent,
		symbols["Punct"]:       kindPunct,
		symbols["Operator"]:    kindOperator,
		symbols["Other"]:       kindOther,
	}
}()

// tokenize returns the significant tokens of src followed by a single EOF
// token. Whitespace and comments are dropped.
func tokenize(src string) []token {
	lex, err := Lexer.LexString("", src)
	if err != nil {
		return []token{{kind: kindEOF}}
	}
	raw, err := lexer.ConsumeAll(lex)
	if err != nil {
		return []token{{kind: kindEOF}}
	}

	out := make([]token, 0, len(raw))
	for _, t := range raw {
		if t.EOF() {
			break
		}
		kind, ok := kinds[t.Type]
		if !ok {
			// Whitespace and comments
			continue
		}
		out = append(out, token{kind: kind, text: unquote(kind, t.Value), raw: t.Value})
	}
	return append(out, token{kind: kindEOF})
}

func unquote(kind tokenKind, v string) string {
	switch kind {
	case kindString:
		return strings.ReplaceAll(v[1:len(v)-1], "''", "'")
	case kindQuoted:
		inner := v[1 : len(v)-1]
		if v[0] == '"' {
			return strings.ReplaceAll(inner, `""`, `"`)
		}
		return inner
	}
	return v
}

// wordy reports whether two adjacent tokens of this kind need a separating
// space when rendered back to text.
func (t token) wordy() bool {
	switch t.kind {
	case kindIdent, kindQuoted, kindString, kindBlob, kindNumber:
		return true
	}
	return false
}

func (t token) is(kind tokenKind, text string) bool {
	return t.kind == kind && t.text == text
}

// keyword matches an unquoted identifier case-insensitively.
func (t token) keyword(kw string) bool {
	return t.kind == kindIdent && strings.EqualFold(t.text, kw)
}

// cursor is a peekable position over a token slice. The slice always ends
// with EOF, and the cursor never moves past it.
type cursor struct {
	toks []token
	pos  int
}

func newCursor(src string) *cursor {
	return &cursor{toks: tokenize(src)}
}

func (c *cursor) peek() token {
	return c.toks[c.pos]
}

// peekAt looks n tokens ahead, stopping at EOF.
func (c *cursor) peekAt(n int) token {
	if c.pos+n >= len(c.toks) {
		return c.toks[len(c.toks)-1]
	}
	return c.toks[c.pos+n]
}

func (c *cursor) next() token {
	t := c.toks[c.pos]
	if t.kind != kindEOF {
		c.pos++
	}
	return t
}

func (c *cursor) eof() bool {
	return c.peek().kind == kindEOF
}

func (c *cursor) acceptKeyword(kw string) bool {
	if c.peek().keyword(kw) {
		c.pos++
		return true
	}
	return false
}

func (c *cursor) acceptPunct(p string) bool {
	if c.peek().is(kindPunct, p) {
		c.pos++
		return true
	}
	return false
}

// name consumes an identifier, quoted or not.
func (c *cursor) name() (string, bool) {
	t := c.peek()
	if t.kind != kindIdent && t.kind != kindQuoted {
		return "", false
	}
	c.pos++
	return t.text, true
}

// group consumes a balanced parenthesized run starting at "(" and returns it
// rendered as compact text, e.g. "(10,2)" or "(age>0)".
func (c *cursor) group() (string, bool) {
	if !c.acceptPunct("(") {
		return "", false
	}
	var sb strings.Builder
	sb.WriteString("(")
	depth := 1
	var prev token
	for depth > 0 {
		t := c.next()
		switch {
		case t.kind == kindEOF:
			return "", false
		case t.is(kindPunct, "("):
			depth++
		case t.is(kindPunct, ")"):
			depth--
		}
		if prev.wordy() && t.wordy() {
			sb.WriteString(" ")
		}
		sb.WriteString(t.raw)
		prev = t
	}
	return sb.String(), true
}
