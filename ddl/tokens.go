package ddl

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// Folded token prefixes.
const (
	TokenPrimaryKey = "primarykey"
	tokenDefault    = "default "
	tokenForeignKey = "foreignkey "
)

var (
	plainIdent    = regexp.MustCompile(`^[\p{L}_][\p{L}\p{N}_$]*$`)
	numberLiteral = regexp.MustCompile(`^[-+]?(?:\d+(?:\.\d*)?|\.\d+)(?:[eE][-+]?\d+)?$`)
	blobLiteral   = regexp.MustCompile(`^[xX]'[0-9A-Fa-f]*'$`)
)

// DefaultToken folds a default literal into a single token.
func DefaultToken(literal string) string {
	return tokenDefault + literal
}

// SplitDefault returns the literal of a default token.
func SplitDefault(tok string) (string, bool) {
	if !strings.HasPrefix(tok, tokenDefault) {
		return "", false
	}
	return tok[len(tokenDefault):], true
}

// ForeignKeyToken folds a REFERENCES target into a single token.
func ForeignKeyToken(table string, columns []string) string {
	if len(columns) == 0 {
		return tokenForeignKey + table
	}
	return tokenForeignKey + table + "." + strings.Join(columns, ",")
}

// SplitForeignKey returns the target table and columns of a foreign-key
// token.
func SplitForeignKey(tok string) (string, []string, bool) {
	if !strings.HasPrefix(tok, tokenForeignKey) {
		return "", nil, false
	}
	target := tok[len(tokenForeignKey):]
	table, cols, found := strings.Cut(target, ".")
	if !found {
		return table, nil, true
	}
	return table, strings.Split(cols, ","), true
}

// IsPrimaryKey reports whether tok is the folded PRIMARY KEY token.
func IsPrimaryKey(tok string) bool {
	return strings.EqualFold(tok, TokenPrimaryKey)
}

// QuoteIdent returns name unchanged when it is a plain identifier and double
// quoted otherwise.
func QuoteIdent(name string) string {
	if plainIdent.MatchString(name) {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Render turns constraint tokens back into declaration text. The default
// literal is quoted by RenderLiteral's guess; use RenderDecl when its
// original quoting is known.
func Render(tokens []string) string {
	return render(tokens, RenderLiteral)
}

// RenderDecl is Render with the default literal quoted exactly when
// quotedDefault is set.
func RenderDecl(tokens []string, quotedDefault bool) string {
	if quotedDefault {
		return render(tokens, QuoteLiteral)
	}
	return render(tokens, RenderLiteral)
}

func render(tokens []string, literal func(string) string) string {
	parts := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		parts = append(parts, renderToken(tok, literal))
	}
	return strings.Join(parts, " ")
}

func renderToken(tok string, literal func(string) string) string {
	if IsPrimaryKey(tok) {
		return "PRIMARY KEY"
	}
	if lit, ok := SplitDefault(tok); ok {
		return "DEFAULT " + literal(lit)
	}
	if table, cols, ok := SplitForeignKey(tok); ok {
		if len(cols) == 0 {
			return "REFERENCES " + QuoteIdent(table)
		}
		quoted := make([]string, len(cols))
		for i, c := range cols {
			quoted[i] = QuoteIdent(c)
		}
		return "REFERENCES " + QuoteIdent(table) + "(" + strings.Join(quoted, ", ") + ")"
	}
	return tok
}

// RenderLiteral renders a default literal the way it has to appear in DDL.
// Numbers, keywords, blobs and parenthesized expressions stay bare; anything
// else becomes a single-quoted string.
func RenderLiteral(lit string) string {
	switch strings.ToUpper(lit) {
	case "NULL", "TRUE", "FALSE", "CURRENT_TIME", "CURRENT_DATE", "CURRENT_TIMESTAMP":
		return lit
	}
	if numberLiteral.MatchString(lit) || blobLiteral.MatchString(lit) {
		return lit
	}
	if strings.HasPrefix(lit, "(") && strings.HasSuffix(lit, ")") {
		return lit
	}
	return QuoteLiteral(lit)
}

// QuoteLiteral renders lit as a single-quoted SQL string.
func QuoteLiteral(lit string) string {
	return "'" + strings.ReplaceAll(lit, "'", "''") + "'"
}

// Equal reports whether two token lists hold the same constraints, ignoring
// order and keyword case. Default literals and single-quoted strings inside
// tokens such as CHECK(k <> 'A') compare exactly.
func Equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	na, nb := normalize(a), normalize(b)
	for i := range na {
		if na[i] != nb[i] {
			return false
		}
	}
	return true
}

func normalize(tokens []string) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		if _, ok := SplitDefault(tok); ok {
			out[i] = tok
			continue
		}
		out[i] = foldCase(tok)
	}
	sort.Strings(out)
	return out
}

// foldCase lowercases tok outside single-quoted strings. An escaped quote
// ('') closes and reopens the string, which leaves it unfolded.
func foldCase(tok string) string {
	if !strings.ContainsRune(tok, '\'') {
		return strings.ToLower(tok)
	}
	var b strings.Builder
	b.Grow(len(tok))
	inString := false
	for _, r := range tok {
		if r == '\'' {
			inString = !inString
		}
		if !inString {
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
