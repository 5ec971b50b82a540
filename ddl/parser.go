// Package ddl parses CREATE TABLE statements into per-column constraint
// tokens and renders those tokens back into DDL text.
package ddl

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedDeclaration is returned when a single column declaration
// cannot be tokenized into constraints.
var ErrMalformedDeclaration = errors.New("malformed column declaration")

// ColumnDef is one column of a parsed CREATE TABLE statement.
type ColumnDef struct {
	Name   string
	Tokens []string

	// DefaultQuoted records that the DEFAULT literal was written as a
	// quoted string. The folded token drops the quotes, so '007' and 007
	// fold alike; this keeps them apart when the declaration is rebuilt.
	DefaultQuoted bool
}

// Render rebuilds the declaration text of the column, without its name.
func (c ColumnDef) Render() string {
	return RenderDecl(c.Tokens, c.DefaultQuoted)
}

// TableDef is the parsed form of a CREATE TABLE statement. An empty Columns
// slice means the text could not be trusted, not that the table has no
// columns.
type TableDef struct {
	Name        string
	Columns     []ColumnDef
	Constraints []string // table-level constraints, e.g. "PRIMARY KEY(a,b)"
}

// Empty reports whether no column could be parsed.
func (t *TableDef) Empty() bool {
	return t == nil || len(t.Columns) == 0
}

// Column looks up a column by name.
func (t *TableDef) Column(name string) (ColumnDef, bool) {
	if t == nil {
		return ColumnDef{}, false
	}
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnDef{}, false
}

// Names returns the column names in declaration order.
func (t *TableDef) Names() []string {
	if t == nil {
		return nil
	}
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// ParseCreate parses the text of one CREATE TABLE statement. It never fails:
// text that does not start with CREATE TABLE yields an empty TableDef, and a
// statement that breaks down after the table name yields that name with no
// columns.
func ParseCreate(sql string) *TableDef {
	c := newCursor(sql)
	def := &TableDef{}

	if !c.acceptKeyword("CREATE") {
		return def
	}
	if !c.acceptKeyword("TEMP") {
		c.acceptKeyword("TEMPORARY")
	}
	if !c.acceptKeyword("TABLE") {
		return def
	}
	if c.acceptKeyword("IF") && !(c.acceptKeyword("NOT") && c.acceptKeyword("EXISTS")) {
		return def
	}

	name, ok := c.name()
	if !ok {
		return def
	}
	// schema-qualified name, keep the table part
	if c.acceptPunct(".") {
		if name, ok = c.name(); !ok {
			return def
		}
	}
	def.Name = name

	if !c.acceptPunct("(") {
		return def
	}

	columns, constraints, ok := parseBody(c)
	if !ok {
		return def
	}
	def.Columns = columns
	def.Constraints = constraints
	return def
}

// parseBody scans column definitions up to the closing parenthesis of the
// column list.
func parseBody(c *cursor) ([]ColumnDef, []string, bool) {
	var (
		columns     []ColumnDef
		constraints []string
		seen        = make(map[string]bool)
	)

	for {
		if tableConstraintStart(c) {
			text, ok := parseTableConstraint(c)
			if !ok {
				return nil, nil, false
			}
			constraints = append(constraints, text)
		} else {
			name, ok := c.name()
			if !ok || seen[name] {
				return nil, nil, false
			}
			seen[name] = true

			col, ok := parseConstraints(c)
			if !ok || c.eof() {
				return nil, nil, false
			}
			col.Name = name
			columns = append(columns, col)
		}

		switch {
		case c.acceptPunct(","):
		case c.acceptPunct(")"):
			return columns, constraints, true
		default:
			return nil, nil, false
		}
	}
}

func tableConstraintStart(c *cursor) bool {
	t := c.peek()
	for _, kw := range []string{"CONSTRAINT", "PRIMARY", "FOREIGN", "UNIQUE", "CHECK", "FULLTEXT", "SPATIAL"} {
		if t.keyword(kw) {
			return true
		}
	}
	// MySQL index clauses: KEY [`name`] (cols)
	if t.keyword("KEY") || t.keyword("INDEX") {
		next := c.peekAt(1)
		return next.is(kindPunct, "(") || next.kind == kindQuoted && c.peekAt(2).is(kindPunct, "(")
	}
	return false
}

// parseTableConstraint renders a table-level constraint as a single string.
func parseTableConstraint(c *cursor) (string, bool) {
	var parts []string
	for {
		t := c.peek()
		switch {
		case t.kind == kindEOF:
			return "", false
		case t.is(kindPunct, ",") || t.is(kindPunct, ")"):
			return strings.Join(parts, " "), true
		case t.is(kindPunct, "("):
			g, ok := c.group()
			if !ok {
				return "", false
			}
			if len(parts) > 0 {
				parts[len(parts)-1] += g
			} else {
				parts = append(parts, g)
			}
		default:
			c.next()
			parts = append(parts, t.text)
		}
	}
}

// parseConstraints collects the constraint tokens of one column up to a
// top-level comma, the closing parenthesis, or the end of input.
func parseConstraints(c *cursor) (ColumnDef, bool) {
	var (
		out    []string
		quoted bool
	)
	for {
		t := c.peek()
		switch {
		case t.kind == kindEOF, t.is(kindPunct, ","), t.is(kindPunct, ")"):
			return ColumnDef{Tokens: out, DefaultQuoted: quoted}, true

		case t.keyword("PRIMARY"):
			out = append(out, parsePrimaryKey(c))

		case t.keyword("REFERENCES"):
			tok, ok := parseReferences(c)
			if !ok {
				return ColumnDef{}, false
			}
			out = append(out, tok)

		case t.keyword("DEFAULT"):
			tok, q, ok := parseDefault(c)
			if !ok {
				return ColumnDef{}, false
			}
			out = append(out, tok)
			quoted = q

		case t.is(kindPunct, "("):
			// type sizes and CHECK bodies stick to the token before them
			g, ok := c.group()
			if !ok {
				return ColumnDef{}, false
			}
			if len(out) > 0 {
				out[len(out)-1] += g
			} else {
				out = append(out, g)
			}

		default:
			c.next()
			out = append(out, t.text)
		}
	}
}

// parsePrimaryKey folds PRIMARY KEY into one token. A lone PRIMARY passes
// through unchanged.
func parsePrimaryKey(c *cursor) string {
	t := c.next()
	if c.acceptKeyword("KEY") {
		return TokenPrimaryKey
	}
	return t.text
}

// parseReferences folds REFERENCES <table> [( <col>[, <col>...] )] into one
// token.
func parseReferences(c *cursor) (string, bool) {
	c.next()
	table, ok := c.name()
	if !ok {
		return "", false
	}

	var cols []string
	if c.acceptPunct("(") {
		for !c.acceptPunct(")") {
			if c.eof() {
				return "", false
			}
			if c.acceptPunct(",") {
				continue
			}
			col, ok := c.name()
			if !ok {
				return "", false
			}
			cols = append(cols, col)
		}
	}
	return ForeignKeyToken(table, cols), true
}

// parseDefault folds DEFAULT <literal> into one token with quotes stripped
// and reports whether the literal was quoted. Parenthesized expressions are
// kept verbatim.
func parseDefault(c *cursor) (string, bool, bool) {
	c.next()
	t := c.peek()
	switch {
	case t.is(kindPunct, "("):
		g, ok := c.group()
		if !ok {
			return "", false, false
		}
		return DefaultToken(g), false, true
	case t.kind == kindString, t.kind == kindQuoted:
		c.next()
		return DefaultToken(t.text), true, true
	case t.kind == kindNumber, t.kind == kindIdent, t.kind == kindBlob:
		c.next()
		return DefaultToken(t.text), false, true
	}
	return "", false, false
}

// ParseColumn tokenizes a bare column declaration such as
// "INTEGER NOT NULL DEFAULT 0" into the same tokens ParseCreate produces.
func ParseColumn(decl string) ([]string, error) {
	col, err := ParseColumnDef(decl)
	if err != nil {
		return nil, err
	}
	return col.Tokens, nil
}

// ParseColumnDef is ParseColumn keeping the quoting of the DEFAULT literal.
// The returned ColumnDef has no name.
func ParseColumnDef(decl string) (ColumnDef, error) {
	c := newCursor(decl)
	col, ok := parseConstraints(c)
	if !ok || !c.eof() {
		return ColumnDef{}, fmt.Errorf("%w: %q", ErrMalformedDeclaration, decl)
	}
	return col, nil
}

// ParseFragment splits a column fragment as produced inside CREATE TABLE
// ("age INTEGER DEFAULT 0") into its name and constraint tokens.
func ParseFragment(fragment string) (string, []string, error) {
	c := newCursor(fragment)
	name, ok := c.name()
	if !ok {
		return "", nil, fmt.Errorf("%w: %q", ErrMalformedDeclaration, fragment)
	}
	col, ok := parseConstraints(c)
	if !ok || !c.eof() {
		return "", nil, fmt.Errorf("%w: %q", ErrMalformedDeclaration, fragment)
	}
	return name, col.Tokens, nil
}
